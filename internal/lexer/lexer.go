// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package lexer splits C and C++ source text into tokens for the declaration
// resolver.  It recognizes the lexical structure only; preprocessor lines are
// returned whole and not interpreted.
package lexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/golang/glog"
	"github.com/google/csymtab/internal/position"
)

// List of keywords.  Keep this list sorted!
var keywords = map[string]Kind{
	"_Bool":        TYPESPEC,
	"_Complex":     TYPESPEC,
	"alignas":      QUALIFIER,
	"auto":         QUALIFIER,
	"bool":         TYPESPEC,
	"break":        KEYWORD,
	"case":         KEYWORD,
	"char":         TYPESPEC,
	"class":        CLASS,
	"const":        QUALIFIER,
	"constexpr":    QUALIFIER,
	"continue":     KEYWORD,
	"default":      KEYWORD,
	"delete":       KEYWORD,
	"do":           KEYWORD,
	"double":       TYPESPEC,
	"else":         KEYWORD,
	"enum":         ENUM,
	"explicit":     QUALIFIER,
	"extern":       QUALIFIER,
	"false":        KEYWORD,
	"float":        TYPESPEC,
	"for":          KEYWORD,
	"friend":       QUALIFIER,
	"goto":         GOTO,
	"if":           KEYWORD,
	"inline":       QUALIFIER,
	"int":          TYPESPEC,
	"long":         TYPESPEC,
	"mutable":      QUALIFIER,
	"namespace":    NAMESPACE,
	"new":          KEYWORD,
	"nullptr":      KEYWORD,
	"operator":     KEYWORD,
	"private":      KEYWORD,
	"protected":    KEYWORD,
	"public":       KEYWORD,
	"register":     QUALIFIER,
	"restrict":     QUALIFIER,
	"return":       KEYWORD,
	"short":        TYPESPEC,
	"signed":       TYPESPEC,
	"sizeof":       KEYWORD,
	"static":       QUALIFIER,
	"struct":       STRUCT,
	"switch":       KEYWORD,
	"template":     KEYWORD,
	"this":         KEYWORD,
	"thread_local": QUALIFIER,
	"true":         KEYWORD,
	"typedef":      TYPEDEF,
	"typename":     KEYWORD,
	"union":        UNION,
	"unsigned":     TYPESPEC,
	"using":        KEYWORD,
	"virtual":      QUALIFIER,
	"void":         TYPESPEC,
	"volatile":     QUALIFIER,
	"wchar_t":      TYPESPEC,
	"while":        KEYWORD,
}

// Keyword reports the token kind of a reserved word, and whether word is reserved.
func Keyword(word string) (Kind, bool) {
	k, ok := keywords[word]
	return k, ok
}

// Multi-character operators and punctuators.  A run of operator characters
// is extended only while it remains a prefix of one of these.
var operators = map[string]bool{
	"++": true, "--": true, "->": true, "::": true, "...": true, "..": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "==": true, "!=": true,
	"<=": true, ">=": true, "&&": true, "||": true,
	"<<": true, ">>": true, "<<=": true, ">>=": true, "->*": true, ".*": true,
}

// String literal prefixes.
var stringPrefixes = map[string]bool{
	"L": true, "u": true, "U": true, "u8": true,
}

// A stateFn represents each state the scanner can be in.
type stateFn func(*Lexer) stateFn

// A Lexer holds the state of the scanner.
type Lexer struct {
	name  string        // Name of the translation unit.
	input *bufio.Reader // Source text
	state stateFn       // Current state function of the lexer.

	// The "read cursor" in the input.
	rune  rune // The current rune.
	width int  // Width in bytes.
	line  int  // The line position of the current rune.
	col   int  // The column position of the current rune.

	// The currently being lexed token.
	startcol  int             // Starting column of the current token.
	startline int             // Starting line of the current token.
	text      strings.Builder // the text of the current token

	tokens chan Token // Output channel for tokens emitted.
}

// New creates a new scanner that reads the input provided.
func New(name string, input io.Reader) *Lexer {
	return &Lexer{
		name:   name,
		input:  bufio.NewReader(input),
		state:  lexSource,
		tokens: make(chan Token, 2),
	}
}

// NextToken returns the next token in the input.  When no token is available
// to be returned it executes the next action in the state machine.  After
// EOF has been returned every further call returns EOF again.
func (l *Lexer) NextToken() Token {
	for {
		select {
		case tok := <-l.tokens:
			return tok
		default:
			if l.state == nil {
				return Token{EOF, "", l.pos()}
			}
			l.state = l.state(l)
		}
	}
}

func (l *Lexer) pos() position.Position {
	return position.Position{Filename: l.name, Line: l.startline, Startcol: l.startcol, Endcol: l.col - 1, Endline: l.line}
}

// emit passes a token to the client.
func (l *Lexer) emit(kind Kind) {
	pos := l.pos()
	glog.V(2).Infof("Emitting %v spelled %q at %v", kind, l.text.String(), pos)
	l.tokens <- Token{kind, l.text.String(), pos}
	// Reset the current token
	l.text.Reset()
	l.startcol = l.col
	l.startline = l.line
}

// Internal end of file value.
const eof rune = -1

// next returns the next rune in the input.
func (l *Lexer) next() rune {
	var err error
	l.rune, l.width, err = l.input.ReadRune()
	if errors.Is(err, io.EOF) {
		l.width = 1
		l.rune = eof
	}
	return l.rune
}

// peek returns the rune after the current one without consuming it.
func (l *Lexer) peek() rune {
	r, _, err := l.input.ReadRune()
	if err != nil {
		return eof
	}
	if err := l.input.UnreadRune(); err != nil {
		glog.Info(err)
	}
	return r
}

// backup indicates that we haven't yet dealt with the next rune. Use when
// terminating tokens on unknown runes.
func (l *Lexer) backup() {
	l.width = 0
	if l.rune == eof {
		return
	}
	if err := l.input.UnreadRune(); err != nil {
		glog.Info(err)
	}
}

// stepCursor moves the read cursor.
func (l *Lexer) stepCursor() {
	if l.rune == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col += l.width
	}
}

// accept accepts the current rune and its position into the current token.
func (l *Lexer) accept() {
	l.text.WriteRune(l.rune)
	l.stepCursor()
}

// skip does not accept the current rune into the current token's text, but
// does accept its position into the token. Use only at the start or end of a
// token.
func (l *Lexer) skip() {
	l.stepCursor()
}

// ignore skips over the current rune, removing it from the text of the token,
// and resetting the start position of the current token. Use only between
// tokens.
func (l *Lexer) ignore() {
	l.stepCursor()
	l.startcol = l.col
	l.startline = l.line
}

// errorf returns an error token and resets the scanner.
func (l *Lexer) errorf(format string, args ...interface{}) stateFn {
	l.tokens <- Token{
		Kind:     INVALID,
		Spelling: fmt.Sprintf(format, args...),
		Pos:      l.pos(),
	}
	// Reset the current token
	l.text.Reset()
	l.startcol = l.col
	l.startline = l.line
	return lexSource
}

// State functions.

// lexSource starts lexing a token.
func lexSource(l *Lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		l.skip()
		l.emit(EOF)
		// Stop the machine, we're done.
		return nil
	case isSpace(r):
		l.ignore()
	case r == '#':
		return lexDirective
	case r == '/':
		switch l.peek() {
		case '/':
			return lexLineComment
		case '*':
			return lexBlockComment
		}
		return lexOperator
	case r == '{':
		l.accept()
		l.emit(LCURLY)
	case r == '}':
		l.accept()
		l.emit(RCURLY)
	case r == '(':
		l.accept()
		l.emit(LPAREN)
	case r == ')':
		l.accept()
		l.emit(RPAREN)
	case r == '[':
		l.accept()
		l.emit(LSQUARE)
	case r == ']':
		l.accept()
		l.emit(RSQUARE)
	case r == ';':
		l.accept()
		l.emit(SEMI)
	case r == ',':
		l.accept()
		l.emit(COMMA)
	case r == '"':
		return lexQuoted
	case r == '\'':
		return lexQuoted
	case r == '.' && isDigit(l.peek()):
		return lexNumeric
	case isDigit(r):
		return lexNumeric
	case isIdentStart(r):
		return lexIdentifier
	case strings.ContainsRune("+-*/%=<>!&|^~?:.", r):
		return lexOperator
	default:
		l.accept()
		return l.errorf("Unexpected input: %q", r)
	}
	return lexSource
}

// Lex a preprocessor line, which ends at an unescaped newline.
func lexDirective(l *Lexer) stateFn {
	l.accept()
	for {
		switch r := l.next(); r {
		case '\\':
			l.accept()
			if l.next() == eof {
				l.emit(DIRECTIVE)
				return lexSource
			}
			l.accept()
		case '\n', eof:
			l.backup()
			l.emit(DIRECTIVE)
			return lexSource
		default:
			l.accept()
		}
	}
}

// Lex a // comment.
func lexLineComment(l *Lexer) stateFn {
	l.ignore()
	for {
		switch l.next() {
		case '\n', eof:
			l.backup()
			return lexSource
		default:
			l.ignore()
		}
	}
}

// Lex a /* */ comment.
func lexBlockComment(l *Lexer) stateFn {
	l.ignore()
	l.next() // the '*'
	l.ignore()
	for {
		switch l.next() {
		case '*':
			l.ignore()
			if l.peek() == '/' {
				l.next()
				l.ignore()
				return lexSource
			}
		case eof:
			return l.errorf("Unterminated comment")
		default:
			l.ignore()
		}
	}
}

// Lex an operator or punctuator, taking the longest known spelling.
func lexOperator(l *Lexer) stateFn {
	l.accept()
	for {
		r := l.peek()
		if r == eof || !operators[l.text.String()+string(r)] {
			break
		}
		l.next()
		l.accept()
	}
	switch l.text.String() {
	case "*":
		l.emit(STAR)
	case "=":
		l.emit(ASSIGN)
	case ":":
		l.emit(COLON)
	case "::":
		l.emit(SCOPE)
	case ".":
		l.emit(DOT)
	case "->":
		l.emit(ARROW)
	case "..":
		return l.errorf("Unexpected input: %q", "..")
	default:
		l.emit(OPERATOR)
	}
	return lexSource
}

// Lex a numeric constant: integer, floating, hex or binary, with any suffix.
func lexNumeric(l *Lexer) stateFn {
	l.accept()
	for {
		r := l.next()
		switch {
		case isAlnum(r) || r == '_' || r == '.':
			l.accept()
		case r == '+' || r == '-':
			if !strings.ContainsRune("eEpP", lastRune(l.text.String())) {
				l.backup()
				l.emit(NUMBER)
				return lexSource
			}
			l.accept()
		default:
			l.backup()
			l.emit(NUMBER)
			return lexSource
		}
	}
}

// Lex a string or character literal, including its quotes.  The opening
// quote is the current rune.
func lexQuoted(l *Lexer) stateFn {
	quote := l.rune
	kind := STRING
	if quote == '\'' {
		kind = CHAR
	}
	l.accept()
	for {
		switch r := l.next(); r {
		case '\\':
			l.accept()
			if r := l.next(); r == eof {
				return l.errorf("Unterminated literal: %s", l.text.String())
			}
			l.accept()
		case '\n', eof:
			l.backup()
			return l.errorf("Unterminated literal: %s", l.text.String())
		case quote:
			l.accept()
			l.emit(kind)
			return lexSource
		default:
			l.accept()
		}
	}
}

// Lex an identifier or keyword.
func lexIdentifier(l *Lexer) stateFn {
	l.accept()
	for {
		r := l.next()
		if isAlnum(r) || r == '_' {
			l.accept()
			continue
		}
		if (r == '"' || r == '\'') && stringPrefixes[l.text.String()] {
			return lexQuoted
		}
		l.backup()
		break
	}
	if k, ok := keywords[l.text.String()]; ok {
		l.emit(k)
	} else {
		l.emit(ID)
	}
	return lexSource
}

// Helper predicates.

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return eof
	}
	return r[len(r)-1]
}

// isIdentStart reports whether r can begin an identifier.
func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// isAlnum reports whether r is an alphanumeric rune.
func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || isDigit(r)
}

// isDigit reports whether r is a numerical rune.
func isDigit(r rune) bool {
	return unicode.IsDigit(r)
}

// isSpace reports whether r is whitespace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
