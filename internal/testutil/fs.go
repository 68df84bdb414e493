// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/glog"
)

// TestTempDir creates a temporary directory for use during tests, returning the pathname.
func TestTempDir(tb testing.TB) string {
	tb.Helper()
	name, err := ioutil.TempDir("", "csym-test")
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := os.RemoveAll(name); err != nil {
			tb.Fatalf("os.RemoveAll(%s): %s", name, err)
		}
	})
	return name
}

// WriteSourceFile creates or truncates the file called name, writes the
// source text into it, and syncs and closes it, so a watcher observing the
// file sees the whole text.
func WriteSourceFile(tb testing.TB, name, source string) {
	tb.Helper()
	f, err := os.OpenFile(filepath.Clean(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	FatalIfErr(tb, err)
	n, err := f.WriteString(source)
	FatalIfErr(tb, err)
	glog.V(2).Infof("Wrote %d bytes to %s", n, name)
	FatalIfErr(tb, f.Sync())
	FatalIfErr(tb, f.Close())
}
