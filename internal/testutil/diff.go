// Copyright 2018 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package testutil collects helpers shared by the csymtab tests.  go-cmp is
// reimported here so tests compare values with one consistent set of options.
package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// ExpectNoDiff reports a test error, with the diff, if want and got differ.
// It returns true when they are equal.
func ExpectNoDiff(tb testing.TB, want, got interface{}, opts ...cmp.Option) bool {
	tb.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		tb.Errorf("Unexpected diff, -want +got:\n%s", diff)
		tb.Logf("expected:\n%#v", want)
		tb.Logf("received:\n%#v", got)
		return false
	}
	return true
}

// EquateEmpty treats nil and empty slices and maps as equal.
func EquateEmpty() cmp.Option {
	return cmpopts.EquateEmpty()
}
