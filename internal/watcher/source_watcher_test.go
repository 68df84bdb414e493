// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/csymtab/internal/testutil"
)

// newPollingWatcher returns a watcher that only sees changes when Poll is called.
func newPollingWatcher(t *testing.T) *SourceWatcher {
	t.Helper()
	w, err := NewSourceWatcher(time.Hour, false)
	testutil.FatalIfErr(t, err)
	t.Cleanup(func() {
		testutil.FatalIfErr(t, w.Close())
	})
	return w
}

func TestSourceWatcherPoll(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	a := filepath.Join(workdir, "a.c")
	testutil.WriteSourceFile(t, a, "int a;\n")

	w := newPollingWatcher(t)
	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))
	if !w.IsWatching(a) {
		t.Errorf("existing file %s not watched", a)
	}

	w.Poll()
	expected := []Event{}
	testutil.ExpectNoDiff(t, expected, s.events())

	b := filepath.Join(workdir, "b.c")
	testutil.WriteSourceFile(t, b, "int b;\n")
	w.Poll()
	expected = append(expected, Event{Create, b})
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.WriteSourceFile(t, a, "int a, aa;\n")
	w.Poll()
	expected = append(expected, Event{Update, a})
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, os.Remove(b))
	w.Poll()
	expected = append(expected, Event{Delete, b})
	testutil.ExpectNoDiff(t, expected, s.events())

	sub := filepath.Join(workdir, "sub")
	testutil.FatalIfErr(t, os.Mkdir(sub, 0o700))
	h := filepath.Join(sub, "c.h")
	testutil.WriteSourceFile(t, h, "typedef int c;\n")
	w.Poll()
	expected = append(expected, Event{Create, sub}, Event{Create, h})
	testutil.ExpectNoDiff(t, expected, s.events())
}

func TestSourceWatcherSkipsHidden(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w := newPollingWatcher(t)
	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))

	testutil.WriteSourceFile(t, filepath.Join(workdir, ".a.c.swp"), "x")
	w.Poll()
	testutil.ExpectNoDiff(t, []Event{}, s.events())
}

func TestSourceWatcherUnobserve(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	a := filepath.Join(workdir, "a.c")
	testutil.WriteSourceFile(t, a, "int a;\n")

	w := newPollingWatcher(t)
	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))
	testutil.FatalIfErr(t, w.Unobserve(workdir, s))
	if w.IsWatching(workdir) || w.IsWatching(a) {
		t.Error("still watching after Unobserve")
	}

	testutil.WriteSourceFile(t, filepath.Join(workdir, "b.c"), "int b;\n")
	w.Poll()
	testutil.ExpectNoDiff(t, []Event{}, s.events())
}

func TestSourceWatcherObserveNotFound(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w := newPollingWatcher(t)
	if err := w.Observe(filepath.Join(workdir, "missing"), &stubProcessor{}); err == nil {
		t.Error("did not receive an error for nonexistent file")
	}
}

func TestSourceWatcherFsnotify(t *testing.T) {
	testutil.SkipIfShort(t)
	workdir := testutil.TestTempDir(t)

	w, err := NewSourceWatcher(0, true)
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()
	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))

	name := filepath.Join(workdir, "new.c")
	testutil.WriteSourceFile(t, name, "int x;\n")
	ok, err := testutil.DoOrTimeout(func() (bool, error) {
		for _, e := range s.events() {
			if e.Pathname == name {
				return true, nil
			}
		}
		return false, nil
	}, 10*time.Second, 10*time.Millisecond)
	testutil.FatalIfErr(t, err)
	if !ok {
		t.Errorf("no event for %s, got %v", name, s.events())
	}
}
