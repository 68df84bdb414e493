// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package lexer

import (
	"fmt"

	"github.com/google/csymtab/internal/position"
)

// Kind enumerates the types of lexical tokens in C and C++ source.
type Kind int

// Token kinds.
const (
	INVALID Kind = iota // An error token; the spelling holds the message.
	EOF
	DIRECTIVE // A whole preprocessor line, continuations included.

	ID
	NUMBER
	CHAR
	STRING

	// Keywords that start or shape declarations.
	TYPEDEF
	STRUCT
	UNION
	ENUM
	CLASS
	NAMESPACE
	TYPESPEC  // builtin type specifiers such as int and unsigned
	QUALIFIER // storage classes, qualifiers and function specifiers
	GOTO
	KEYWORD // any other reserved word

	LCURLY
	RCURLY
	LPAREN
	RPAREN
	LSQUARE
	RSQUARE
	SEMI
	COMMA
	COLON
	SCOPE // ::
	DOT
	ARROW
	STAR
	ASSIGN
	OPERATOR // any other operator or punctuator
)

var kindNames = [...]string{
	INVALID:   "INVALID",
	EOF:       "EOF",
	DIRECTIVE: "DIRECTIVE",
	ID:        "ID",
	NUMBER:    "NUMBER",
	CHAR:      "CHAR",
	STRING:    "STRING",
	TYPEDEF:   "TYPEDEF",
	STRUCT:    "STRUCT",
	UNION:     "UNION",
	ENUM:      "ENUM",
	CLASS:     "CLASS",
	NAMESPACE: "NAMESPACE",
	TYPESPEC:  "TYPESPEC",
	QUALIFIER: "QUALIFIER",
	GOTO:      "GOTO",
	KEYWORD:   "KEYWORD",
	LCURLY:    "LCURLY",
	RCURLY:    "RCURLY",
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	LSQUARE:   "LSQUARE",
	RSQUARE:   "RSQUARE",
	SEMI:      "SEMI",
	COMMA:     "COMMA",
	COLON:     "COLON",
	SCOPE:     "SCOPE",
	DOT:       "DOT",
	ARROW:     "ARROW",
	STAR:      "STAR",
	ASSIGN:    "ASSIGN",
	OPERATOR:  "OPERATOR",
}

// String returns a readable name of the token Kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token describes a lexed Token from the input, containing its type, the
// original text of the Token, and its position in the input.
type Token struct {
	Kind     Kind
	Spelling string
	Pos      position.Position
}

// String returns a printable form of a Token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q,%s)", t.Kind.String(), t.Spelling, t.Pos)
}
