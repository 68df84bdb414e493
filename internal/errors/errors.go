// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package errors collects diagnostics reported while recognizing a
// translation unit.
package errors

import (
	"fmt"
	"strings"

	"github.com/google/csymtab/internal/position"
	"github.com/pkg/errors"
)

type diagnostic struct {
	pos position.Position
	msg string
}

func (e diagnostic) Error() string {
	return e.pos.String() + ": " + e.msg
}

// ErrorList contains a list of positioned diagnostics.
type ErrorList []*diagnostic

// Add appends an error at a position to the list of errors.
func (p *ErrorList) Add(pos *position.Position, msg string) {
	*p = append(*p, &diagnostic{*pos, msg})
}

// Addf appends a formatted error at a position.
func (p *ErrorList) Addf(pos *position.Position, format string, args ...interface{}) {
	p.Add(pos, fmt.Sprintf(format, args...))
}

// Append puts an ErrorList on the end of this ErrorList.
func (p *ErrorList) Append(l ErrorList) {
	*p = append(*p, l...)
}

// ErrorList implements the error interface.
func (p ErrorList) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	var r strings.Builder
	for i, e := range p {
		if i > 0 {
			r.WriteString("\n")
		}
		r.WriteString(e.Error())
	}
	return r.String()
}

// Err returns the list as an error, or nil if it is empty.
func (p ErrorList) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
