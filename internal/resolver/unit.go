// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package resolver

import (
	"fmt"

	"github.com/google/csymtab/internal/errors"
	"github.com/google/csymtab/internal/position"
	"github.com/google/csymtab/internal/symtab"
)

// Decl is a declaration found in a translation unit.  It is bound to the
// dictionary entry that defined it through the entry's Decl field.
type Decl struct {
	Name  string
	Kind  symtab.Kind
	Scope int // nesting level of the declaration
	Pos   position.Position
}

func (d *Decl) String() string {
	return fmt.Sprintf("%s %s %q scope %d", d.Pos, d.Kind, d.Name, d.Scope)
}

// Ref is a use of an identifier.  Decl is nil if the identifier did not
// resolve to any visible declaration.
type Ref struct {
	Name string
	Pos  position.Position
	Decl *Decl
}

// Resolved reports whether the reference was bound to a declaration.
func (r *Ref) Resolved() bool {
	return r.Decl != nil
}

func (r *Ref) String() string {
	if r.Decl == nil {
		return fmt.Sprintf("%s %q unresolved", r.Pos, r.Name)
	}
	return fmt.Sprintf("%s %q -> %s", r.Pos, r.Name, r.Decl)
}

// Unit holds the result of resolving one translation unit.
type Unit struct {
	Name       string
	Decls      []*Decl // in source order
	Refs       []*Ref  // in source order
	Unresolved []*Ref  // the members of Refs with no declaration
	Tokens     int     // tokens read from the lexer
	MaxDepth   int     // deepest scope nesting reached
	Errors     errors.ErrorList
}

// Count returns the number of declarations of each kind.
func (u *Unit) Count() map[symtab.Kind]int {
	r := make(map[symtab.Kind]int)
	for _, d := range u.Decls {
		r[d.Kind]++
	}
	return r
}
