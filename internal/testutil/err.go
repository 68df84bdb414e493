// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import "testing"

// FatalIfErr fails the test with a fatal error if err is not nil.
func FatalIfErr(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatal(err)
	}
}

// ExpectPanic runs f and fails the test if it returns without panicking.
func ExpectPanic(tb testing.TB, f func()) {
	tb.Helper()
	defer func() {
		tb.Helper()
		if r := recover(); r == nil {
			tb.Error("expected panic, but call returned normally")
		}
	}()
	f()
}
