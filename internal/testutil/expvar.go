// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"expvar"
	"testing"
	"time"

	"github.com/golang/glog"
)

// TestGetExpvar fetches the expvar metric `name`, and returns the expvar.
// Callers are responsible for type assertions on the returned value.
func TestGetExpvar(tb testing.TB, name string) expvar.Var {
	tb.Helper()
	v := expvar.Get(name)
	glog.Infof("Var %q is %v", name, v)
	return v
}

const defaultDoOrTimeoutDeadline = 10 * time.Second

func mapExpvarValue(tb testing.TB, name, key string) int64 {
	tb.Helper()
	v := TestGetExpvar(tb, name).(*expvar.Map).Get(key)
	if v == nil {
		return 0
	}
	return v.(*expvar.Int).Value()
}

// ExpectMapExpvarDeltaWithDeadline returns a deferrable function which tests
// if the expvar map metric with name and key has changed by want within the
// default deadline.  The starting value is read before returning.
func ExpectMapExpvarDeltaWithDeadline(tb testing.TB, name, key string, want int64) func() {
	tb.Helper()
	start := mapExpvarValue(tb, name, key)
	check := func() (bool, error) {
		return mapExpvarValue(tb, name, key)-start == want, nil
	}
	return func() {
		tb.Helper()
		ok, err := DoOrTimeout(check, defaultDoOrTimeoutDeadline, 10*time.Millisecond)
		FatalIfErr(tb, err)
		if !ok {
			now := mapExpvarValue(tb, name, key)
			tb.Errorf("Did not see %s[%s] have delta by deadline: got %v - %v = %d, want %d", name, key, now, start, now-start, want)
		}
	}
}
