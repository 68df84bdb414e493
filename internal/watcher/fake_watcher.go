// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
)

// FakeWatcher implements an in-memory Watcher.  Events are injected by the
// test and delivered synchronously.
type FakeWatcher struct {
	watchesMu sync.RWMutex
	watches   map[string][]Processor
	closed    bool
}

// NewFakeWatcher returns a fake Watcher for use in tests.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{watches: make(map[string][]Processor)}
}

// Observe registers p for events on name.
func (w *FakeWatcher) Observe(name string, p Processor) error {
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()
	for _, q := range w.watches[name] {
		if q == p {
			return nil
		}
	}
	w.watches[name] = append(w.watches[name], p)
	return nil
}

// Unobserve removes an observer from the FakeWatcher.  If it's the last
// observer for a name, the name is no longer watched.
func (w *FakeWatcher) Unobserve(name string, p Processor) error {
	w.watchesMu.Lock()
	defer w.watchesMu.Unlock()
	var ps []Processor
	for _, q := range w.watches[name] {
		if q != p {
			ps = append(ps, q)
		}
	}
	if len(ps) == 0 {
		delete(w.watches, name)
		return nil
	}
	w.watches[name] = ps
	return nil
}

// IsWatching reports whether any processor observes name.
func (w *FakeWatcher) IsWatching(name string) bool {
	w.watchesMu.RLock()
	defer w.watchesMu.RUnlock()
	_, ok := w.watches[name]
	return ok
}

// Close closes down the FakeWatcher.  Later injected events are dropped.
func (w *FakeWatcher) Close() error {
	w.watchesMu.Lock()
	w.closed = true
	w.watchesMu.Unlock()
	return nil
}

// SendEvent delivers e to the processors observing its path, or the path's
// directory.
func (w *FakeWatcher) SendEvent(e Event) {
	w.watchesMu.RLock()
	if w.closed {
		w.watchesMu.RUnlock()
		return
	}
	ps, ok := w.watches[e.Pathname]
	if !ok {
		ps, ok = w.watches[filepath.Dir(e.Pathname)]
	}
	ps = append([]Processor(nil), ps...)
	w.watchesMu.RUnlock()
	if !ok {
		glog.Infof("Didn't find %s in watched list", e.Pathname)
		return
	}
	for _, p := range ps {
		p.ProcessFileEvent(context.Background(), e)
	}
}

// InjectCreate lets a test inject a fake creation event.
func (w *FakeWatcher) InjectCreate(name string) {
	w.SendEvent(Event{Create, name})
}

// InjectUpdate lets a test inject a fake update event.
func (w *FakeWatcher) InjectUpdate(name string) {
	w.SendEvent(Event{Update, name})
}

// InjectDelete lets a test inject a fake deletion event.
func (w *FakeWatcher) InjectDelete(name string) {
	w.SendEvent(Event{Delete, name})
}

// Poll does nothing in the fake watcher; events are injected.
func (w *FakeWatcher) Poll() {
}
