// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"expvar"
	"testing"
)

// ExpectExpvarDelta returns a deferrable function that checks the expvar.Int
// called name has changed by want since ExpectExpvarDelta was called.
func ExpectExpvarDelta(tb testing.TB, name string, want int64) func() {
	tb.Helper()
	start := expvarInt(tb, name)
	return func() {
		tb.Helper()
		if got := expvarInt(tb, name) - start; got != want {
			tb.Errorf("expvar %s delta: got %d, want %d", name, got, want)
		}
	}
}

func expvarInt(tb testing.TB, name string) int64 {
	tb.Helper()
	v, ok := expvar.Get(name).(*expvar.Int)
	if !ok {
		tb.Fatalf("expvar %q is not an *expvar.Int", name)
	}
	return v.Value()
}
