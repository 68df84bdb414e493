// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package symtab implements the symbol dictionary used while recognizing
// declarations in C and C++ source.
//
// A Dictionary is a fixed width hash table whose buckets hold singly linked
// chains of entries, plus one chain per scope nesting level recording the
// entries defined at that level.  Defining a symbol prepends it to its bucket,
// so the most recent definition of a name shadows older ones, and appends it
// to its scope chain, so that all the symbols of a scope can be removed when
// the scope closes.  A Dictionary is owned by one goroutine; concurrent
// translation units use one Dictionary each.
package symtab

import (
	"github.com/cespare/xxhash/v2"
	"github.com/golang/glog"
	"github.com/google/csymtab/internal/intern"
	"github.com/pkg/errors"
)

var (
	// ErrScopeOverflow is returned by SaveScope when the dictionary is already at its maximum nesting depth.
	ErrScopeOverflow = errors.New("symtab: scope overflow")
	// ErrScopeUnderflow is returned by RestoreScope at the outermost scope.
	ErrScopeUnderflow = errors.New("symtab: scope underflow")
)

// Dictionary maps identifiers to entries across nested scopes.
type Dictionary struct {
	buckets    []*Entry // heads of the bucket chains
	scopeHeads []*Entry // first entry defined in each scope
	scopeTails []*Entry // last entry defined in each scope

	current  int // active scope index, in [0, len(scopeHeads))
	maxDepth int // deepest scope index reached
	live     int // entries reachable from buckets

	interner intern.Interner
}

// Option configures a new Dictionary.
type Option func(*Dictionary) error

// WithInterner sets the identifier interning facility used when defining
// symbols.  The default is intern.Default.
func WithInterner(i intern.Interner) Option {
	return func(d *Dictionary) error {
		if i == nil {
			return errors.New("symtab: nil interner")
		}
		d.interner = i
		return nil
	}
}

// New creates an empty Dictionary with bucketCount hash buckets and room for
// maxScopes nested scopes, starting in scope 0.  Neither can change afterwards.
func New(bucketCount, maxScopes int, opts ...Option) (*Dictionary, error) {
	if bucketCount <= 0 {
		return nil, errors.Errorf("symtab: bucket count must be positive, not %d", bucketCount)
	}
	if maxScopes <= 0 {
		return nil, errors.Errorf("symtab: maximum scope count must be positive, not %d", maxScopes)
	}
	d := &Dictionary{
		buckets:    make([]*Entry, bucketCount),
		scopeHeads: make([]*Entry, maxScopes),
		scopeTails: make([]*Entry, maxScopes),
		interner:   intern.Default,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Hash returns the hash of an identifier.  It is stable for equal text.
func Hash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// BucketIndex returns the bucket that key belongs in.  The hash is unsigned
// so the result is always in [0, BucketCount()).
func (d *Dictionary) BucketIndex(key string) int {
	return int(Hash(key) % uint64(len(d.buckets)))
}

// BucketCount returns the number of hash buckets.
func (d *Dictionary) BucketCount() int { return len(d.buckets) }

// MaxScopes returns the number of scope levels the dictionary can hold.
func (d *Dictionary) MaxScopes() int { return len(d.scopeHeads) }

// Len returns the number of entries visible to Lookup, including shadowed ones.
func (d *Dictionary) Len() int { return d.live }

// MaxDepth returns the deepest scope index entered so far.
func (d *Dictionary) MaxDepth() int { return d.maxDepth }

// Lookup returns the most recently defined entry for key, or nil.
func (d *Dictionary) Lookup(key string) *Entry {
	return d.LookupKind(key, Unspecified)
}

// LookupKind returns the most recently defined entry for key if it is of the
// given kind.  Only the nearest entry for key is considered: if it is not of
// the requested kind the lookup fails, even when an older, shadowed entry
// would match.  An Unspecified kind matches any entry.
func (d *Dictionary) LookupKind(key string, kind Kind) *Entry {
	e := d.nearest(key)
	switch {
	case e == nil:
		lookupMisses.Inc()
		return nil
	case kind == Unspecified || e.IsTypeOf(kind):
		lookupHits.Inc()
		return e
	default:
		lookupFiltered.Inc()
		glog.V(2).Infof("lookup %q: nearest entry is a %s, not a %s", key, e.kind, kind)
		return nil
	}
}

// nearest returns the first entry for key in its bucket chain.
func (d *Dictionary) nearest(key string) *Entry {
	h := d.BucketIndex(key)
	for e := d.buckets[h]; e != nil; e = e.next {
		if e.hashCode != h {
			d.corrupt(e, h)
		}
		if e.key == key {
			return e
		}
	}
	return nil
}

// corrupt reports an entry found in bucket h whose recorded hash code differs.
func (d *Dictionary) corrupt(e *Entry, h int) {
	BucketCorruptions.Inc()
	glog.Errorf("symtab: hash table corrupted: %s recorded in bucket %d, found in bucket %d", e, e.hashCode, h)
}

// Define defines e under key in the current scope.
func (d *Dictionary) Define(key string, e *Entry) {
	d.DefineInScope(key, e, d.current)
}

// DefineInScope defines e under key in the given scope.  The entry's key is
// replaced by the interned form of key.  The entry is placed at the head of
// its bucket, shadowing earlier entries with the same key, and at the tail
// of the scope's chain.  It panics if e is nil or scope is out of range.
func (d *Dictionary) DefineInScope(key string, e *Entry, scope int) {
	if e == nil {
		panic("symtab: DefineInScope of nil entry")
	}
	d.checkScope("DefineInScope", scope)
	h := d.BucketIndex(key)
	e.scopeIndex = scope
	e.key = d.interner.Intern(key)
	e.hashCode = h

	e.next = d.buckets[h]
	d.buckets[h] = e

	e.scopeNext = nil
	if tail := d.scopeTails[scope]; tail == nil {
		d.scopeHeads[scope] = e
	} else {
		tail.scopeNext = e
	}
	d.scopeTails[scope] = e

	d.live++
	Defines.Inc()
	glog.V(2).Infof("defined %s in bucket %d", e, h)
}

// SaveScope enters a new nested scope.  It returns ErrScopeOverflow, leaving
// the current scope unchanged, if the dictionary has no room for another level.
func (d *Dictionary) SaveScope() error {
	if d.current+1 >= len(d.scopeHeads) {
		return errors.Wrapf(ErrScopeOverflow, "cannot nest deeper than %d scopes", len(d.scopeHeads))
	}
	d.current++
	if d.current > d.maxDepth {
		d.maxDepth = d.current
	}
	ScopeDepth.Observe(float64(d.current))
	return nil
}

// RestoreScope leaves the current scope.  It does not remove the scope's
// symbols; call RemoveScope first for that.  It returns ErrScopeUnderflow
// at the outermost scope.
func (d *Dictionary) RestoreScope() error {
	if d.current == 0 {
		return errors.Wrap(ErrScopeUnderflow, "cannot leave the outermost scope")
	}
	d.current--
	return nil
}

// CurrentScope returns the first entry defined in the current scope, or nil
// if the scope is empty.  The rest of the scope follows via ScopeNext.
func (d *Dictionary) CurrentScope() *Entry {
	return d.scopeHeads[d.current]
}

// CurrentScopeIndex returns the nesting level of the current scope.
func (d *Dictionary) CurrentScopeIndex() int {
	return d.current
}

// ScopeEntries returns the entries defined in scope, in definition order.
func (d *Dictionary) ScopeEntries(scope int) []*Entry {
	d.checkScope("ScopeEntries", scope)
	var r []*Entry
	for e := d.scopeHeads[scope]; e != nil; e = e.scopeNext {
		r = append(r, e)
	}
	return r
}

// RemoveScope removes every entry defined in the current scope.  See RemoveScopeAt.
func (d *Dictionary) RemoveScope() *Entry {
	return d.RemoveScopeAt(d.current)
}

// RemoveScopeAt unlinks every entry defined in scope from its bucket and
// empties the scope.  It returns the former head of the scope chain, whose
// ScopeNext links still enumerate the removed entries, or nil if the scope
// was empty.  The current scope index is not changed.
func (d *Dictionary) RemoveScopeAt(scope int) *Entry {
	d.checkScope("RemoveScopeAt", scope)
	head := d.scopeHeads[scope]
	for e := head; e != nil; e = e.scopeNext {
		if d.unlink(e) {
			removedByScope.Inc()
		}
	}
	d.scopeHeads[scope] = nil
	d.scopeTails[scope] = nil
	return head
}

// Remove unlinks the most recently defined entry for key from its bucket and
// returns it, or returns nil if no entry has that key.  The entry stays on
// its scope chain.
func (d *Dictionary) Remove(key string) *Entry {
	h := d.BucketIndex(key)
	var prev *Entry
	for e := d.buckets[h]; e != nil; prev, e = e, e.next {
		if e.hashCode != h {
			d.corrupt(e, h)
		}
		if e.key != key {
			continue
		}
		d.splice(h, prev, e)
		removedByKey.Inc()
		return e
	}
	glog.V(1).Infof("symtab: remove of undefined symbol %q", key)
	return nil
}

// RemoveEntry unlinks this particular entry from its bucket and returns it.
// Unlike Remove it compares identity, so it can remove a shadowed entry.  It
// returns nil if the entry is not in the bucket its key hashes to, and panics
// if e is nil.
func (d *Dictionary) RemoveEntry(e *Entry) *Entry {
	if e == nil {
		panic("symtab: RemoveEntry of nil entry")
	}
	if !d.unlink(e) {
		glog.V(1).Infof("symtab: %s not found in its bucket", e)
		return nil
	}
	removedByEntry.Inc()
	return e
}

// unlink removes e from the bucket its key hashes to, reporting whether it was there.
func (d *Dictionary) unlink(e *Entry) bool {
	h := d.BucketIndex(e.key)
	var prev *Entry
	for n := d.buckets[h]; n != nil; prev, n = n, n.next {
		if n.hashCode != h {
			d.corrupt(n, h)
		}
		if n == e {
			d.splice(h, prev, e)
			return true
		}
	}
	return false
}

// splice removes e, whose predecessor in bucket h is prev, from the chain.
func (d *Dictionary) splice(h int, prev, e *Entry) {
	if prev == nil {
		d.buckets[h] = e.next
	} else {
		prev.next = e.next
	}
	e.next = nil
	d.live--
	glog.V(2).Infof("removed %s from bucket %d", e, h)
}

func (d *Dictionary) checkScope(op string, scope int) {
	if scope < 0 || scope >= len(d.scopeHeads) {
		err := errors.Errorf("symtab: %s: scope %d out of range [0, %d)", op, scope, len(d.scopeHeads))
		glog.Error(err)
		panic(err)
	}
}
