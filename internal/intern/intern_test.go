// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package intern

import (
	"strings"
	"sync"
	"testing"
	"unsafe"
)

// dataPtr returns the address of the bytes backing s.
func dataPtr(s string) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.StringData(s)))
}

func TestInternSharesStorage(t *testing.T) {
	p := New(0)
	a := p.Intern(strings.Repeat("x", 4))
	b := p.Intern(strings.Repeat("x", 4))
	if a != b {
		t.Fatalf("Intern returned different contents %q and %q", a, b)
	}
	if dataPtr(a) != dataPtr(b) {
		t.Errorf("Intern did not return the canonical copy")
	}
	hits, misses := p.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d, %d; want 1, 1", hits, misses)
	}
}

func TestInternBounded(t *testing.T) {
	p := New(2)
	for _, s := range []string{"a", "b", "c"} {
		p.Intern(s)
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	// "a" was evicted, so a fresh copy becomes canonical.
	first := p.Intern(strings.Repeat("a", 1))
	if first != "a" {
		t.Errorf("Intern(a) = %q", first)
	}
}

func TestInternConcurrent(t *testing.T) {
	p := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Intern("shared")
			}
		}()
	}
	wg.Wait()
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestIdentity(t *testing.T) {
	var i Interner = Identity{}
	if got := i.Intern("foo"); got != "foo" {
		t.Errorf("Identity.Intern(foo) = %q", got)
	}
}
