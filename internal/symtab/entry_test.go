// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import (
	"testing"

	"github.com/google/csymtab/internal/position"
)

func TestIsTypeOf(t *testing.T) {
	for k := Unspecified; k < endKind; k++ {
		e := NewEntry("e", k, nil)
		for f := Unspecified; f < endKind; f++ {
			want := k != Unspecified && k == f
			if got := e.IsTypeOf(f); got != want {
				t.Errorf("%s entry IsTypeOf(%s) = %v, want %v", k, f, got, want)
			}
		}
	}
}

func TestEntryString(t *testing.T) {
	e := NewEntry("size_t", TypeName, &position.Position{Filename: "stddef.h", Line: 9, Startcol: 13, Endcol: 18, Endline: 9})
	if got, want := e.String(), `type name "size_t" scope 0 at stddef.h:10:14-19`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	e = NewEntry("n", Parameter, nil)
	if got, want := e.String(), `parameter "n" scope 0`; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEntryLinks(t *testing.T) {
	a := NewEntry("a", Variable, nil)
	b := NewEntry("b", Variable, nil)
	a.SetNext(b)
	a.SetScopeNext(b)
	a.SetHashCode(3)
	if a.Next() != b || a.ScopeNext() != b || a.HashCode() != 3 {
		t.Errorf("links not set: %#v", a)
	}
}

func TestKindString(t *testing.T) {
	seen := make(map[string]Kind)
	for k := Unspecified; k < endKind; k++ {
		s := k.String()
		if other, ok := seen[s]; ok {
			t.Errorf("%d and %d share the name %q", k, other, s)
		}
		seen[s] = k
	}
	if got := endKind.String(); got != "Kind(8)" {
		t.Errorf("endKind.String() = %q", got)
	}
}
