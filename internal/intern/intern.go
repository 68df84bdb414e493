// Copyright 2024 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package intern canonicalizes identifier text so that equal identifiers
// share one string.
package intern

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// Interner returns a canonical handle for equal text.  The returned string
// must compare equal to the input.
type Interner interface {
	Intern(s string) string
}

// Pool is an Interner backed by a bounded LRU cache.  When the pool is full
// the least recently interned identifiers are forgotten; strings already
// handed out stay valid, only the sharing of future copies is lost.  A Pool
// may be shared between goroutines.
type Pool struct {
	mu     sync.Mutex
	cache  *lru.Cache
	hits   int64
	misses int64
}

// New creates a Pool holding at most maxEntries identifiers.  Zero means no
// limit.
func New(maxEntries int) *Pool {
	return &Pool{cache: lru.New(maxEntries)}
}

// Default is the process wide pool used by dictionaries that are not given
// one explicitly.
var Default = New(0)

// Intern returns the canonical copy of s.
func (p *Pool) Intern(s string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.cache.Get(s); ok {
		p.hits++
		return v.(string)
	}
	p.misses++
	p.cache.Add(s, s)
	return s
}

// Len returns the number of identifiers currently held.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// Stats returns the number of Intern calls that found an existing copy, and
// the number that added one.
func (p *Pool) Stats() (hits, misses int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

// Identity is an Interner that returns its argument unchanged.
type Identity struct{}

func (Identity) Intern(s string) string { return s }
