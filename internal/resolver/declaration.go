// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package resolver

import (
	"github.com/golang/glog"
	"github.com/google/csymtab/internal/lexer"
	"github.com/google/csymtab/internal/symtab"
)

// declarator describes the name introduced by one declarator.
type declarator struct {
	name      lexer.Token
	found     bool
	function  bool          // declares a function, not a pointer to one
	qualified bool          // the name was qualified, as in C::m, so is declared elsewhere
	params    []lexer.Token // parameter names of a function declarator
}

// declaration reads a declaration whose first token has already been read.
// The token that ends the declaration is left unread, except for the closing
// brace of a function definition.
func (r *resolver) declaration(first lexer.Token) error {
	typedef, err := r.specifiers(first)
	if err != nil {
		return err
	}
	for {
		d, err := r.declarator()
		if err != nil {
			return err
		}
		if !d.found {
			return nil
		}
		kind := symtab.Variable
		switch {
		case typedef:
			kind = symtab.TypeName
		case d.function:
			kind = symtab.Function
		}
		if !d.qualified {
			r.define(d.name, kind)
		}

		tok := r.next()
		if tok.Kind == lexer.COLON && d.function {
			r.initializers()
			tok = r.next()
		}
		switch tok.Kind {
		case lexer.LCURLY:
			if d.function && !typedef {
				return r.functionBody(tok, d.params)
			}
			// brace initializer
			r.backup(tok)
			r.expression(lexer.COMMA, lexer.SEMI)
		case lexer.ASSIGN, lexer.COLON:
			// initializer or bit-field width
			r.expression(lexer.COMMA, lexer.SEMI)
		default:
			r.backup(tok)
		}
		if sep := r.next(); sep.Kind != lexer.COMMA {
			r.backup(sep)
			return nil
		}
	}
}

// specifiers reads the declaration specifiers beginning with tok and reports
// whether they include typedef.  An identifier as the first token is taken
// to be a type name; the caller has decided that.
func (r *resolver) specifiers(tok lexer.Token) (typedef bool, err error) {
	sawType := false
	for first := true; ; first = false {
		switch tok.Kind {
		case lexer.TYPEDEF:
			typedef = true
		case lexer.QUALIFIER:
		case lexer.TYPESPEC:
			sawType = true
		case lexer.STRUCT, lexer.UNION, lexer.CLASS, lexer.ENUM:
			if err := r.tagged(tok); err != nil {
				return typedef, err
			}
			sawType = true
		case lexer.ID:
			if sawType || (!first && !r.startsDeclaration(tok)) {
				r.backup(tok)
				return typedef, nil
			}
			r.typeReference(tok)
			sawType = true
		default:
			r.backup(tok)
			return typedef, nil
		}
		tok = r.next()
	}
}

// tagged reads the rest of a struct, union, class or enum specifier begun
// by kw.  A tag followed by a body or by a semicolon is defined; otherwise
// it is a reference.
func (r *resolver) tagged(kw lexer.Token) error {
	name := r.next()
	named := name.Kind == lexer.ID
	if !named {
		r.backup(name)
	}
	tok := r.next()
	switch tok.Kind {
	case lexer.LCURLY:
	case lexer.COLON:
		// base classes, or the underlying type of an enum
		r.bases()
		if tok = r.next(); tok.Kind != lexer.LCURLY {
			r.backup(tok)
			if named {
				r.define(name, symtab.Tag)
			}
			return nil
		}
	case lexer.SEMI:
		r.backup(tok)
		if named {
			r.define(name, symtab.Tag)
		}
		return nil
	default:
		r.backup(tok)
		if named {
			r.tagReference(name)
		}
		return nil
	}
	if named {
		r.define(name, symtab.Tag)
	}
	if kw.Kind == lexer.ENUM {
		r.enumerators()
		return nil
	}
	return r.block(tok)
}

// tagReference binds a use of a tag.  An unknown tag declares an incomplete
// type in the current scope.
func (r *resolver) tagReference(name lexer.Token) {
	if e := r.dict.LookupKind(name.Spelling, symtab.Tag); e != nil {
		r.bind(name, e)
		return
	}
	glog.V(1).Infof("%s: implicit declaration of tag %q", name.Pos, name.Spelling)
	r.define(name, symtab.Tag)
}

// bases reads a base class list up to the class body.
func (r *resolver) bases() {
	for {
		tok := r.next()
		switch tok.Kind {
		case lexer.LCURLY, lexer.SEMI, lexer.EOF:
			r.backup(tok)
			return
		case lexer.ID:
			r.typeReference(tok)
		case lexer.SCOPE:
			r.skipName()
		}
	}
}

// enumerators reads an enumerator list after its left brace.  Enumeration
// constants belong to the enclosing scope.
func (r *resolver) enumerators() {
	for {
		tok := r.next()
		switch tok.Kind {
		case lexer.RCURLY:
			return
		case lexer.EOF:
			r.backup(tok)
			return
		case lexer.ID:
			r.define(tok, symtab.EnumConstant)
		case lexer.ASSIGN:
			r.expression(lexer.COMMA, lexer.RCURLY)
		case lexer.INVALID:
			r.invalid(tok)
		}
	}
}

// initializers skips a constructor's member initializer list.  The members
// named belong to the class and are not looked up.
func (r *resolver) initializers() {
	depth := 0
	for {
		tok := r.next()
		switch tok.Kind {
		case lexer.LPAREN:
			depth++
		case lexer.RPAREN:
			depth--
		case lexer.SEMI, lexer.EOF:
			r.backup(tok)
			return
		case lexer.LCURLY:
			if depth <= 0 {
				r.backup(tok)
				return
			}
		}
	}
}

// functionBody opens the scope of a function definition at the brace tok,
// defines the parameters in it, and reads the body.
func (r *resolver) functionBody(tok lexer.Token, params []lexer.Token) error {
	if err := r.openScope(tok); err != nil {
		return err
	}
	for _, p := range params {
		r.define(p, symtab.Parameter)
	}
	if err := r.walk(r.dict.CurrentScopeIndex()); err != nil {
		return err
	}
	r.stmtStart = true
	return nil
}

func isPointer(tok lexer.Token) bool {
	return tok.Kind == lexer.STAR || isReference(tok)
}

func isReference(tok lexer.Token) bool {
	return tok.Kind == lexer.OPERATOR && (tok.Spelling == "&" || tok.Spelling == "&&")
}

// declarator reads one declarator.  If no name is found, found is false and
// the token that could not start a declarator is left unread.
func (r *resolver) declarator() (d declarator, err error) {
	tok := r.next()
	for isPointer(tok) || tok.Kind == lexer.QUALIFIER {
		tok = r.next()
	}
	grouped := false
	switch tok.Kind {
	case lexer.ID:
		d.name, d.found = tok, true
		for {
			sep := r.next()
			if sep.Kind != lexer.SCOPE {
				r.backup(sep)
				break
			}
			name := r.next()
			if name.Kind != lexer.ID {
				r.backup(name)
				break
			}
			r.reference(d.name, symtab.Unspecified)
			d.name, d.qualified = name, true
		}
	case lexer.LPAREN:
		// (*name) groups; anything else is not a declarator
		if !isPointer(r.peek()) {
			r.backup(tok)
			return d, nil
		}
		if d, err = r.declarator(); err != nil {
			return d, err
		}
		if closing := r.next(); closing.Kind != lexer.RPAREN {
			r.backup(closing)
		}
		grouped = true
	default:
		r.backup(tok)
		return d, nil
	}

	for first := true; ; first = false {
		tok := r.next()
		switch tok.Kind {
		case lexer.LSQUARE:
			r.expression(lexer.RSQUARE)
			if closing := r.next(); closing.Kind != lexer.RSQUARE {
				r.backup(closing)
			}
		case lexer.LPAREN:
			params, err := r.parameters()
			if err != nil {
				return d, err
			}
			if first && !grouped {
				d.function = true
				d.params = params
			}
		case lexer.QUALIFIER:
		default:
			r.backup(tok)
			return d, nil
		}
	}
}

// parameters reads a parameter list after its left parenthesis, up to and
// including the right parenthesis, and returns the names it declares.
func (r *resolver) parameters() (names []lexer.Token, err error) {
	for {
		tok := r.next()
		switch tok.Kind {
		case lexer.RPAREN:
			return names, nil
		case lexer.SEMI, lexer.LCURLY, lexer.RCURLY, lexer.EOF:
			r.backup(tok)
			return names, nil
		case lexer.ID:
			if !r.startsDeclaration(tok) {
				r.reference(tok, symtab.Unspecified)
				continue
			}
			fallthrough
		case lexer.TYPESPEC, lexer.QUALIFIER, lexer.STRUCT, lexer.UNION, lexer.CLASS, lexer.ENUM:
			if _, err := r.specifiers(tok); err != nil {
				return names, err
			}
			d, err := r.declarator()
			if err != nil {
				return names, err
			}
			if d.found {
				names = append(names, d.name)
			}
			if eq := r.next(); eq.Kind == lexer.ASSIGN {
				// default argument
				r.expression(lexer.COMMA, lexer.RPAREN)
			} else {
				r.backup(eq)
			}
		case lexer.DOT, lexer.ARROW, lexer.SCOPE:
			r.skipName()
		case lexer.LPAREN:
			r.expression(lexer.RPAREN)
			if closing := r.next(); closing.Kind != lexer.RPAREN {
				r.backup(closing)
			}
		case lexer.INVALID:
			r.invalid(tok)
		}
	}
}
