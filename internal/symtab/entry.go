// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import (
	"fmt"

	"github.com/google/csymtab/internal/position"
)

// Entry is one record in a Dictionary.  Entries have identity: two entries
// with the same key are distinct symbols, and the more recently defined one
// shadows the other.
//
// An Entry is a node in two singly linked lists: the chain of its hash
// bucket, linked by next, and the chain of the scope it was defined in,
// linked by scopeNext.
type Entry struct {
	Pos  *position.Position // Source position of the declaration
	Decl interface{}        // Binding to the semantic model, opaque to the dictionary

	key        string // interned identifier text
	kind       Kind   // category used to filter lookups
	hashCode   int    // bucket the entry was placed in
	scopeIndex int    // scope the entry was defined in
	next       *Entry // next entry in the same bucket
	scopeNext  *Entry // next entry defined in the same scope
}

// NewEntry creates an entry for key of the given kind, declared at pos.  The
// entry has no bucket (HashCode returns -1) until it is defined in a
// Dictionary.
func NewEntry(key string, kind Kind, pos *position.Position) *Entry {
	return &Entry{Pos: pos, key: key, kind: kind, hashCode: -1}
}

// Key returns the identifier text of the entry.
func (e *Entry) Key() string { return e.key }

// Kind returns the symbol category of the entry.
func (e *Entry) Kind() Kind { return e.kind }

// HashCode returns the index of the bucket holding this entry.
func (e *Entry) HashCode() int { return e.hashCode }

// SetHashCode overwrites the recorded bucket index.
func (e *Entry) SetHashCode(h int) { e.hashCode = h }

// Next returns the following entry in the same bucket.
func (e *Entry) Next() *Entry { return e.next }

// SetNext relinks the bucket chain after this entry.
func (e *Entry) SetNext(n *Entry) { e.next = n }

// ScopeNext returns the entry defined after this one in the same scope.
func (e *Entry) ScopeNext() *Entry { return e.scopeNext }

// SetScopeNext relinks the scope chain after this entry.
func (e *Entry) SetScopeNext(n *Entry) { e.scopeNext = n }

// ScopeIndex returns the nesting level the entry was defined at.
func (e *Entry) ScopeIndex() int { return e.scopeIndex }

// IsTypeOf reports whether the entry belongs to category k.  Unspecified
// entries belong to no category.
func (e *Entry) IsTypeOf(k Kind) bool {
	return e.kind != Unspecified && e.kind == k
}

func (e *Entry) String() string {
	if e.Pos != nil {
		return fmt.Sprintf("%s %q scope %d at %s", e.kind, e.key, e.scopeIndex, e.Pos)
	}
	return fmt.Sprintf("%s %q scope %d", e.kind, e.key, e.scopeIndex)
}
