// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package position records where tokens, declarations and diagnostics lie in
// a translation unit.
package position

import "fmt"

// A Position is a span of a translation unit.  Lines and columns count from
// zero.  Most tokens lie on one line, where Endline equals Line; directives
// continued with a backslash, block comments and multi-line initializers end
// on a later line.  An Endline before Line is treated as Line, so positions
// built without one stay single-line.
type Position struct {
	Filename string // Translation unit the span lies in.
	Line     int    // First line of the span.
	Startcol int    // Column of the first character.
	Endcol   int    // Column of the last character, on Endline.
	Endline  int    // Last line of the span.
}

// lastLine returns the line the span ends on.
func (p Position) lastLine() int {
	if p.Endline > p.Line {
		return p.Endline
	}
	return p.Line
}

// String formats a position for diagnostics in the file:line:col form C
// compilers use, with -col or -line:col appended for a span.
func (p Position) String() string {
	r := fmt.Sprintf("%s:%d:%d", p.Filename, p.Line+1, p.Startcol+1)
	switch {
	case p.lastLine() > p.Line:
		r += fmt.Sprintf("-%d:%d", p.lastLine()+1, p.Endcol+1)
	case p.Endcol > p.Startcol:
		r += fmt.Sprintf("-%d", p.Endcol+1)
	}
	return r
}

// before reports whether line:col comes before line2:col2.
func before(line, col, line2, col2 int) bool {
	return line < line2 || line == line2 && col < col2
}

// Merge returns the smallest span that covers both a and b, which may lie on
// different lines.  Positions in different files are not merged; a is
// returned.
func Merge(a, b *Position) *Position {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Filename != b.Filename {
		return a
	}
	r := *a
	if before(b.Line, b.Startcol, r.Line, r.Startcol) {
		r.Line, r.Startcol = b.Line, b.Startcol
	}
	r.Endline, r.Endcol = a.lastLine(), a.Endcol
	if before(r.Endline, r.Endcol, b.lastLine(), b.Endcol) {
		r.Endline, r.Endcol = b.lastLine(), b.Endcol
	}
	return &r
}
