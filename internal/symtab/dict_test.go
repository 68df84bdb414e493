// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symtab

import (
	"bytes"
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"testing/quick"

	"github.com/google/csymtab/internal/intern"
	"github.com/google/csymtab/internal/testutil"
	"github.com/pkg/errors"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestDictionary(tb testing.TB, bucketCount, maxScopes int) *Dictionary {
	tb.Helper()
	d, err := New(bucketCount, maxScopes, WithInterner(intern.New(0)))
	testutil.FatalIfErr(tb, err)
	return d
}

func TestNewErrors(t *testing.T) {
	for _, tc := range []struct {
		buckets, scopes int
	}{
		{0, 4},
		{-1, 4},
		{8, 0},
		{8, -3},
	} {
		if _, err := New(tc.buckets, tc.scopes); err == nil {
			t.Errorf("New(%d, %d) expecting error, got nil", tc.buckets, tc.scopes)
		}
	}
	if _, err := New(8, 4, WithInterner(nil)); err == nil {
		t.Error("New with nil interner expecting error, got nil")
	}
}

func TestNewDictionary(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	if d.BucketCount() != 8 || d.MaxScopes() != 4 {
		t.Errorf("sizes: got %d buckets %d scopes", d.BucketCount(), d.MaxScopes())
	}
	if d.CurrentScopeIndex() != 0 {
		t.Errorf("CurrentScopeIndex() = %d, want 0", d.CurrentScopeIndex())
	}
	if d.CurrentScope() != nil {
		t.Errorf("CurrentScope() = %v, want nil", d.CurrentScope())
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
}

func TestDefineLookup(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	a := NewEntry("x", Variable, nil)
	if a.HashCode() != -1 {
		t.Errorf("undefined entry HashCode() = %d, want -1", a.HashCode())
	}
	d.Define("x", a)
	if got := d.Lookup("x"); got != a {
		t.Errorf("Lookup(x) = %v, want %v", got, a)
	}
	if got := d.Lookup("y"); got != nil {
		t.Errorf("Lookup(y) = %v, want nil", got)
	}
	if a.Key() != "x" || a.ScopeIndex() != 0 || a.HashCode() != d.BucketIndex("x") {
		t.Errorf("entry fields not set by Define: %#v", a)
	}
}

func TestScopeScenario(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	a := NewEntry("x", Variable, nil)
	b := NewEntry("x", Variable, nil)

	d.Define("x", a)
	if got := d.Lookup("x"); got != a {
		t.Fatalf("Lookup(x) = %v, want A", got)
	}
	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("x", b)
	if got := d.Lookup("x"); got != b {
		t.Fatalf("Lookup(x) = %v, want B", got)
	}
	if b.ScopeIndex() != 1 {
		t.Errorf("B.ScopeIndex() = %d, want 1", b.ScopeIndex())
	}
	if removed := d.RemoveScope(); removed != b {
		t.Errorf("RemoveScope() = %v, want B", removed)
	}
	if got := d.Lookup("x"); got != a {
		t.Errorf("Lookup(x) after RemoveScope = %v, want A", got)
	}
	testutil.FatalIfErr(t, d.RestoreScope())
	if d.CurrentScopeIndex() != 0 {
		t.Errorf("CurrentScopeIndex() = %d, want 0", d.CurrentScopeIndex())
	}
	if d.MaxDepth() != 1 {
		t.Errorf("MaxDepth() = %d, want 1", d.MaxDepth())
	}
}

func TestShadowing(t *testing.T) {
	// One bucket so every entry shares a chain.
	d := newTestDictionary(t, 1, 4)
	first := NewEntry("k", Variable, nil)
	other := NewEntry("j", Variable, nil)
	second := NewEntry("k", Function, nil)
	d.Define("k", first)
	d.Define("j", other)
	d.Define("k", second)
	if got := d.Lookup("k"); got != second {
		t.Errorf("Lookup(k) = %v, want second definition", got)
	}
	if got := d.Lookup("j"); got != other {
		t.Errorf("Lookup(j) = %v, want other", got)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d, want 3", d.Len())
	}
}

func TestScopeIsolation(t *testing.T) {
	d := newTestDictionary(t, 16, 4)
	e := NewEntry("inner", Variable, nil)
	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("inner", e)
	if got := d.Lookup("inner"); got != e {
		t.Fatalf("Lookup(inner) = %v, want e", got)
	}
	testutil.FatalIfErr(t, d.RestoreScope())
	d.RemoveScopeAt(1)
	if got := d.Lookup("inner"); got != nil {
		t.Errorf("Lookup(inner) after removing its scope = %v, want nil", got)
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
}

func TestLookupKindShortCircuit(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	typedef := NewEntry("T", TypeName, nil)
	variable := NewEntry("T", Variable, nil)
	d.Define("T", typedef)
	if got := d.LookupKind("T", TypeName); got != typedef {
		t.Fatalf("LookupKind(T, TypeName) = %v, want typedef", got)
	}
	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("T", variable)

	filtered := promtest.ToFloat64(lookupFiltered)
	// The nearer variable hides the typedef even for a typed lookup.
	if got := d.LookupKind("T", TypeName); got != nil {
		t.Errorf("LookupKind(T, TypeName) = %v, want nil", got)
	}
	if delta := promtest.ToFloat64(lookupFiltered) - filtered; delta != 1 {
		t.Errorf("filtered lookups delta = %v, want 1", delta)
	}
	if got := d.LookupKind("T", Variable); got != variable {
		t.Errorf("LookupKind(T, Variable) = %v, want variable", got)
	}
	if got := d.LookupKind("T", Unspecified); got != variable {
		t.Errorf("LookupKind(T, Unspecified) = %v, want variable", got)
	}
}

func TestUnspecifiedEntryMatchesNoKind(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	e := NewEntry("u", Unspecified, nil)
	d.Define("u", e)
	for k := Unspecified + 1; k < endKind; k++ {
		if got := d.LookupKind("u", k); got != nil {
			t.Errorf("LookupKind(u, %s) = %v, want nil", k, got)
		}
	}
	if got := d.Lookup("u"); got != e {
		t.Errorf("Lookup(u) = %v, want e", got)
	}
}

func TestScopeChainOrder(t *testing.T) {
	d := newTestDictionary(t, 1, 4)
	names := []string{"a", "b", "c", "d"}
	var entries []*Entry
	for _, n := range names {
		e := NewEntry(n, Variable, nil)
		d.Define(n, e)
		entries = append(entries, e)
	}
	if d.CurrentScope() != entries[0] {
		t.Errorf("CurrentScope() = %v, want first defined entry", d.CurrentScope())
	}
	got := d.ScopeEntries(0)
	if len(got) != len(entries) {
		t.Fatalf("ScopeEntries(0) has %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("ScopeEntries(0)[%d] = %v, want %v", i, got[i], entries[i])
		}
	}

	// The bucket chain runs the other way.
	var bucket []string
	for e := d.buckets[0]; e != nil; e = e.Next() {
		bucket = append(bucket, e.Key())
	}
	testutil.ExpectNoDiff(t, []string{"d", "c", "b", "a"}, bucket)
}

func TestRemoveScopeReturnsChain(t *testing.T) {
	d := newTestDictionary(t, 4, 4)
	testutil.FatalIfErr(t, d.SaveScope())
	for _, n := range []string{"p", "q", "r"} {
		d.Define(n, NewEntry(n, Parameter, nil))
	}
	head := d.RemoveScope()
	var got []string
	for e := head; e != nil; e = e.ScopeNext() {
		got = append(got, e.Key())
		if e.Next() != nil {
			t.Errorf("%v still linked into its bucket", e)
		}
	}
	testutil.ExpectNoDiff(t, []string{"p", "q", "r"}, got)
	if d.CurrentScope() != nil {
		t.Errorf("CurrentScope() = %v after RemoveScope, want nil", d.CurrentScope())
	}
	if d.CurrentScopeIndex() != 1 {
		t.Errorf("RemoveScope changed the scope index to %d", d.CurrentScopeIndex())
	}
	if d.RemoveScope() != nil {
		t.Error("RemoveScope of an empty scope returned an entry")
	}
}

func TestRemoveScopeKeepsOuterScopes(t *testing.T) {
	d := newTestDictionary(t, 1, 4)
	outer := NewEntry("o", Variable, nil)
	d.Define("o", outer)
	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("i", NewEntry("i", Variable, nil))
	d.Define("o", NewEntry("o", Variable, nil))
	d.RemoveScope()
	testutil.FatalIfErr(t, d.RestoreScope())
	if got := d.Lookup("o"); got != outer {
		t.Errorf("Lookup(o) = %v, want outer", got)
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestRemoveByKey(t *testing.T) {
	d := newTestDictionary(t, 1, 4)
	first := NewEntry("k", Variable, nil)
	second := NewEntry("k", Variable, nil)
	d.Define("k", first)
	d.Define("z", NewEntry("z", Variable, nil))
	d.Define("k", second)

	if got := d.Remove("k"); got != second {
		t.Fatalf("Remove(k) = %v, want second", got)
	}
	if second.Next() != nil {
		t.Error("removed entry still has a bucket successor")
	}
	if got := d.Lookup("k"); got != first {
		t.Errorf("Lookup(k) = %v, want first", got)
	}
	if got := d.Remove("k"); got != first {
		t.Errorf("second Remove(k) = %v, want first", got)
	}
	if got := d.Remove("k"); got != nil {
		t.Errorf("third Remove(k) = %v, want nil", got)
	}
	if got := d.Lookup("z"); got == nil {
		t.Error("Lookup(z) lost after removing k")
	}
}

func TestRemoveEntryByIdentity(t *testing.T) {
	d := newTestDictionary(t, 1, 4)
	shadowed := NewEntry("k", Variable, nil)
	nearest := NewEntry("k", Variable, nil)
	d.Define("k", shadowed)
	d.Define("k", nearest)

	if got := d.RemoveEntry(shadowed); got != shadowed {
		t.Fatalf("RemoveEntry(shadowed) = %v", got)
	}
	if got := d.Lookup("k"); got != nearest {
		t.Errorf("Lookup(k) = %v, want nearest", got)
	}
	if got := d.RemoveEntry(shadowed); got != nil {
		t.Errorf("RemoveEntry of an already removed entry = %v, want nil", got)
	}
	stranger := NewEntry("k", Variable, nil)
	if got := d.RemoveEntry(stranger); got != nil {
		t.Errorf("RemoveEntry of an undefined entry = %v, want nil", got)
	}
	testutil.ExpectPanic(t, func() { d.RemoveEntry(nil) })
}

func TestRemoveScopeAfterSingleRemove(t *testing.T) {
	d := newTestDictionary(t, 2, 4)
	testutil.FatalIfErr(t, d.SaveScope())
	a := NewEntry("a", Variable, nil)
	b := NewEntry("b", Variable, nil)
	d.Define("a", a)
	d.Define("b", b)
	d.Remove("a")
	if head := d.RemoveScope(); head != a {
		t.Errorf("RemoveScope() = %v, want a", head)
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0", d.Len())
	}
}

func TestScopeOverflow(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	for i := 0; i < d.MaxScopes()-1; i++ {
		testutil.FatalIfErr(t, d.SaveScope())
	}
	err := d.SaveScope()
	if errors.Cause(err) != ErrScopeOverflow {
		t.Errorf("SaveScope() = %v, want ErrScopeOverflow", err)
	}
	if d.CurrentScopeIndex() != 3 {
		t.Errorf("CurrentScopeIndex() = %d after overflow, want 3", d.CurrentScopeIndex())
	}
}

func TestScopeUnderflow(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	err := d.RestoreScope()
	if errors.Cause(err) != ErrScopeUnderflow {
		t.Errorf("RestoreScope() = %v, want ErrScopeUnderflow", err)
	}
	if d.CurrentScopeIndex() != 0 {
		t.Errorf("CurrentScopeIndex() = %d, want 0", d.CurrentScopeIndex())
	}
}

func TestDefineInScope(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	testutil.FatalIfErr(t, d.SaveScope())
	testutil.FatalIfErr(t, d.SaveScope())
	// A symbol can be hoisted into an enclosing scope.
	e := NewEntry("f", Function, nil)
	d.DefineInScope("f", e, 0)
	if e.ScopeIndex() != 0 {
		t.Errorf("ScopeIndex() = %d, want 0", e.ScopeIndex())
	}
	if d.CurrentScope() != nil {
		t.Errorf("CurrentScope() = %v, want nil", d.CurrentScope())
	}
	d.RemoveScope()
	if d.Lookup("f") != e {
		t.Error("removing the current scope removed a hoisted symbol")
	}
	testutil.ExpectPanic(t, func() { d.DefineInScope("g", NewEntry("g", Function, nil), 4) })
	testutil.ExpectPanic(t, func() { d.DefineInScope("g", NewEntry("g", Function, nil), -1) })
	testutil.ExpectPanic(t, func() { d.Define("g", nil) })
	testutil.ExpectPanic(t, func() { d.RemoveScopeAt(4) })
}

func TestDefineInterns(t *testing.T) {
	p := intern.New(0)
	d, err := New(8, 4, WithInterner(p))
	testutil.FatalIfErr(t, err)
	d.Define("name", NewEntry("unused", Variable, nil))
	d.Define(strings.ToLower("NAME"), NewEntry("unused", Variable, nil))
	if hits, misses := p.Stats(); hits != 1 || misses != 1 {
		t.Errorf("intern stats = %d hits %d misses, want 1 and 1", hits, misses)
	}
}

func TestBucketCorruption(t *testing.T) {
	d := newTestDictionary(t, 1, 4)
	e := NewEntry("a", Variable, nil)
	d.Define("a", e)
	e.SetHashCode(7)
	before := promtest.ToFloat64(BucketCorruptions)
	if got := d.Lookup("a"); got != e {
		t.Errorf("Lookup(a) = %v, want e", got)
	}
	if delta := promtest.ToFloat64(BucketCorruptions) - before; delta != 1 {
		t.Errorf("corruptions delta = %v, want 1", delta)
	}
}

func TestMetrics(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	defines := promtest.ToFloat64(Defines)
	hits := promtest.ToFloat64(lookupHits)
	misses := promtest.ToFloat64(lookupMisses)
	byScope := promtest.ToFloat64(removedByScope)

	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("m", NewEntry("m", Variable, nil))
	d.Lookup("m")
	d.Lookup("n")
	d.RemoveScope()

	for _, tc := range []struct {
		name        string
		before, now float64
	}{
		{"defines", defines, promtest.ToFloat64(Defines)},
		{"hits", hits, promtest.ToFloat64(lookupHits)},
		{"misses", misses, promtest.ToFloat64(lookupMisses)},
		{"scope removals", byScope, promtest.ToFloat64(removedByScope)},
	} {
		if tc.now-tc.before != 1 {
			t.Errorf("%s delta = %v, want 1", tc.name, tc.now-tc.before)
		}
	}
}

func TestDump(t *testing.T) {
	d := newTestDictionary(t, 8, 4)
	d.Define("g", NewEntry("g", Variable, nil))
	testutil.FatalIfErr(t, d.SaveScope())
	d.Define("g", NewEntry("g", Parameter, nil))

	var buf bytes.Buffer
	testutil.FatalIfErr(t, d.DumpScopes(&buf))
	h := d.BucketIndex("g")
	want := "scope 0 {\n" +
		"\tvariable \"g\" scope 0 bucket " + strconv.Itoa(h) + " hidden\n" +
		"}\n" +
		"scope 1 (current) {\n" +
		"\tparameter \"g\" scope 1 bucket " + strconv.Itoa(h) + "\n" +
		"}\n"
	testutil.ExpectNoDiff(t, want, buf.String())

	buf.Reset()
	testutil.FatalIfErr(t, d.DumpSymbol(&buf, "g"))
	if n := strings.Count(buf.String(), "\"g\" scope"); n != 2 {
		t.Errorf("DumpSymbol listed %d entries, want 2:\n%s", n, buf.String())
	}
	if !strings.Contains(d.String(), "live 2") {
		t.Errorf("String() missing live count:\n%s", d.String())
	}
}

// Generate implements the quick.Generator interface for Kind.
func (Kind) Generate(rand *rand.Rand, size int) reflect.Value {
	return reflect.ValueOf(Kind(rand.Intn(int(endKind))))
}

func TestBucketConsistencyQuick(t *testing.T) {
	testutil.SkipIfShort(t)
	check := func(names []string, kind Kind) bool {
		d, err := New(7, 4, WithInterner(intern.Identity{}))
		if err != nil {
			return false
		}
		for _, n := range names {
			d.Define(n, NewEntry(n, kind, nil))
		}
		for _, n := range names {
			e := d.Lookup(n)
			if e == nil || e.HashCode() != d.BucketIndex(e.Key()) {
				return false
			}
			if h := d.BucketIndex(n); h < 0 || h >= d.BucketCount() {
				return false
			}
		}
		return d.Len() == len(names)
	}
	if err := quick.Check(check, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestRemoveDisjointQuick(t *testing.T) {
	testutil.SkipIfShort(t)
	check := func(name string, copies uint8) bool {
		d, err := New(3, 2, WithInterner(intern.Identity{}))
		if err != nil {
			return false
		}
		n := int(copies%8) + 1
		for i := 0; i < n; i++ {
			d.Define(name, NewEntry(name, Variable, nil))
		}
		seen := make(map[*Entry]bool)
		for i := 0; i < n; i++ {
			e := d.Remove(name)
			if e == nil || seen[e] {
				return false
			}
			seen[e] = true
		}
		return d.Remove(name) == nil && d.Len() == 0
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}
