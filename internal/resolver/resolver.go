// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package resolver recognizes declarations in C and C++ source in a single
// pass and resolves identifier uses against them.
//
// The resolver does not build a syntax tree.  It reads tokens, opens and
// closes dictionary scopes at braces, defines the names introduced by
// declarations, and looks up every other identifier.  Whether an identifier
// begins a declaration is decided the way a C parser must decide it: by
// asking the dictionary whether the nearest visible definition of the name is
// a typedef name.
package resolver

import (
	"io"

	"github.com/golang/glog"
	"github.com/google/csymtab/internal/errors"
	"github.com/google/csymtab/internal/lexer"
	"github.com/google/csymtab/internal/position"
	"github.com/google/csymtab/internal/symtab"
)

// Option configures a resolver.
type Option func(*resolver)

// DumpScopes writes the contents of each scope to w just before the scope is removed.
func DumpScopes(w io.Writer) Option {
	return func(r *resolver) {
		r.dump = w
	}
}

type resolver struct {
	lex     *lexer.Lexer
	dict    *symtab.Dictionary
	pending []lexer.Token // tokens pushed back, last is next
	unit    *Unit

	base      int  // scope the unit started in
	stmtStart bool // the last token ended a statement or opened a block

	dump io.Writer
}

// Resolve reads the translation unit named name from input and resolves it
// using dict, starting in the dictionary's current scope.  That scope keeps
// the unit's file scope declarations afterwards; all scopes nested in it are
// removed, even when resolution stops early.  The returned error, if any,
// is the unit's ErrorList.  Lexical errors are recorded and skipped;
// unbalanced braces and scope overflow stop resolution.
func Resolve(name string, input io.Reader, dict *symtab.Dictionary, opts ...Option) (*Unit, error) {
	r := &resolver{
		lex:  lexer.New(name, input),
		dict: dict,
		unit: &Unit{Name: name},
		base: dict.CurrentScopeIndex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.walk(r.base); err != nil {
		glog.V(1).Info(err)
		for dict.CurrentScopeIndex() > r.base {
			dict.RemoveScope()
			if err := dict.RestoreScope(); err != nil {
				glog.Error(err)
				break
			}
		}
	}
	r.unit.MaxDepth = dict.MaxDepth()
	return r.unit, r.unit.Errors.Err()
}

// next returns the next token, taking pushed back tokens first.
func (r *resolver) next() lexer.Token {
	if n := len(r.pending); n > 0 {
		tok := r.pending[n-1]
		r.pending = r.pending[:n-1]
		return tok
	}
	r.unit.Tokens++
	return r.lex.NextToken()
}

// backup pushes tok back to be returned by the next call to next.
func (r *resolver) backup(tok lexer.Token) {
	r.pending = append(r.pending, tok)
}

func (r *resolver) peek() lexer.Token {
	tok := r.next()
	r.backup(tok)
	return tok
}

// fail records a diagnostic that stops resolution of the unit.
func (r *resolver) fail(pos position.Position, format string, args ...interface{}) error {
	r.unit.Errors.Addf(&pos, format, args...)
	return errors.Errorf("%s: resolution stopped at %s", r.unit.Name, pos)
}

func (r *resolver) invalid(tok lexer.Token) {
	r.unit.Errors.Add(&tok.Pos, tok.Spelling)
}

// walk reads statements until the scope at depth is closed by a right brace,
// or until the end of input at the outermost scope.
func (r *resolver) walk(depth int) error {
	r.stmtStart = true
	for {
		tok := r.next()
		start := r.stmtStart
		r.stmtStart = false
		switch tok.Kind {
		case lexer.EOF:
			if depth > r.base {
				return r.fail(tok.Pos, "unexpected end of input, missing %d closing braces", depth-r.base)
			}
			return nil

		case lexer.INVALID:
			r.invalid(tok)
			r.stmtStart = start

		case lexer.DIRECTIVE:
			r.stmtStart = start

		case lexer.LCURLY:
			if err := r.block(tok); err != nil {
				return err
			}

		case lexer.RCURLY:
			if depth == r.base {
				return r.fail(tok.Pos, "unbalanced '}'")
			}
			return r.closeScope(tok)

		case lexer.SEMI, lexer.COLON:
			r.stmtStart = true

		case lexer.KEYWORD:
			r.stmtStart = tok.Spelling == "else" || tok.Spelling == "do"

		case lexer.TYPEDEF, lexer.TYPESPEC, lexer.QUALIFIER,
			lexer.STRUCT, lexer.UNION, lexer.CLASS, lexer.ENUM:
			if err := r.declaration(tok); err != nil {
				return err
			}

		case lexer.NAMESPACE:
			r.namespace()

		case lexer.GOTO, lexer.DOT, lexer.ARROW, lexer.SCOPE:
			r.skipName()

		case lexer.ID:
			switch {
			case start && r.peek().Kind == lexer.COLON:
				glog.V(2).Infof("label %s", tok)
				r.next()
				r.stmtStart = true
			case start && r.startsDeclaration(tok):
				if err := r.declaration(tok); err != nil {
					return err
				}
			default:
				r.reference(tok, symtab.Unspecified)
			}
		}
	}
}

// block opens a scope at the brace tok and walks it until it is closed.
func (r *resolver) block(tok lexer.Token) error {
	if err := r.openScope(tok); err != nil {
		return err
	}
	if err := r.walk(r.dict.CurrentScopeIndex()); err != nil {
		return err
	}
	r.stmtStart = true
	return nil
}

func (r *resolver) openScope(tok lexer.Token) error {
	if err := r.dict.SaveScope(); err != nil {
		return r.fail(tok.Pos, "%s", err)
	}
	glog.V(2).Infof("%s: entered scope %d", tok.Pos, r.dict.CurrentScopeIndex())
	return nil
}

func (r *resolver) closeScope(tok lexer.Token) error {
	scope := r.dict.CurrentScopeIndex()
	if r.dump != nil {
		if err := r.dict.DumpScope(r.dump, scope); err != nil {
			glog.Warning(err)
		}
	}
	n := 0
	for e := r.dict.RemoveScope(); e != nil; e = e.ScopeNext() {
		n++
	}
	glog.V(2).Infof("%s: left scope %d, removed %d symbols", tok.Pos, scope, n)
	if err := r.dict.RestoreScope(); err != nil {
		return r.fail(tok.Pos, "%s", err)
	}
	return nil
}

// startsDeclaration reports whether the identifier tok, at the start of a
// statement, names a type.  It does if its nearest definition is a typedef
// name, or if another identifier follows it, which no expression allows.
func (r *resolver) startsDeclaration(tok lexer.Token) bool {
	if r.dict.LookupKind(tok.Spelling, symtab.TypeName) != nil {
		return true
	}
	return r.peek().Kind == lexer.ID
}

func (r *resolver) define(tok lexer.Token, kind symtab.Kind) *Decl {
	d := &Decl{Name: tok.Spelling, Kind: kind, Scope: r.dict.CurrentScopeIndex(), Pos: tok.Pos}
	e := symtab.NewEntry(tok.Spelling, kind, &d.Pos)
	e.Decl = d
	r.dict.Define(tok.Spelling, e)
	r.unit.Decls = append(r.unit.Decls, d)
	return d
}

// reference records a use of tok, bound to its nearest definition if that
// is of the given kind.
func (r *resolver) reference(tok lexer.Token, kind symtab.Kind) *Ref {
	return r.bind(tok, r.dict.LookupKind(tok.Spelling, kind))
}

// typeReference records a use of tok as a type.  Type names and tags both qualify.
func (r *resolver) typeReference(tok lexer.Token) *Ref {
	e := r.dict.Lookup(tok.Spelling)
	if e != nil && !e.IsTypeOf(symtab.TypeName) && !e.IsTypeOf(symtab.Tag) {
		e = nil
	}
	return r.bind(tok, e)
}

func (r *resolver) bind(tok lexer.Token, e *symtab.Entry) *Ref {
	ref := &Ref{Name: tok.Spelling, Pos: tok.Pos}
	if e != nil {
		ref.Decl, _ = e.Decl.(*Decl)
	}
	r.unit.Refs = append(r.unit.Refs, ref)
	if ref.Decl == nil {
		glog.V(1).Infof("%s: unresolved identifier %q", tok.Pos, tok.Spelling)
		r.unit.Unresolved = append(r.unit.Unresolved, ref)
	}
	return ref
}

// skipName consumes the identifier after a member access, scope operator or
// goto.  Such names are not looked up in the dictionary.
func (r *resolver) skipName() {
	if tok := r.next(); tok.Kind != lexer.ID {
		r.backup(tok)
	}
}

func (r *resolver) namespace() {
	name := r.next()
	if name.Kind != lexer.ID {
		// anonymous
		r.backup(name)
		return
	}
	switch r.peek().Kind {
	case lexer.LCURLY, lexer.ASSIGN:
		r.define(name, symtab.Namespace)
	default:
		r.reference(name, symtab.Namespace)
	}
}

// expression reads tokens up to one of stops at nesting level zero, which is
// left unread, resolving the identifiers found.  It also stops without
// consuming at an unmatched closing bracket or a semicolon.  End of input
// stops it at any depth; brackets still open then are reported as an error.
func (r *resolver) expression(stops ...lexer.Kind) {
	var open []position.Position
	for {
		tok := r.next()
		if tok.Kind == lexer.EOF {
			r.backup(tok)
			if len(open) > 0 {
				r.unit.Errors.Addf(position.Merge(&open[0], &tok.Pos), "unexpected end of input, missing %d closing brackets", len(open))
			}
			return
		}
		if len(open) == 0 && r.endsExpression(tok.Kind, stops) {
			r.backup(tok)
			return
		}
		switch tok.Kind {
		case lexer.LPAREN, lexer.LSQUARE, lexer.LCURLY:
			open = append(open, tok.Pos)
		case lexer.RPAREN, lexer.RSQUARE, lexer.RCURLY:
			open = open[:len(open)-1]
		case lexer.DOT, lexer.ARROW, lexer.SCOPE:
			r.skipName()
		case lexer.ID:
			r.reference(tok, symtab.Unspecified)
		case lexer.INVALID:
			r.invalid(tok)
		}
	}
}

func (r *resolver) endsExpression(k lexer.Kind, stops []lexer.Kind) bool {
	switch k {
	case lexer.EOF, lexer.SEMI, lexer.RPAREN, lexer.RSQUARE, lexer.RCURLY:
		return true
	}
	for _, s := range stops {
		if k == s {
			return true
		}
	}
	return false
}
