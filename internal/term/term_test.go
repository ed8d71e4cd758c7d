// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package term

import (
	"os"
	"testing"

	"github.com/google/pl0/internal/testutil"
)

func TestRegularFileIsNotTerminal(t *testing.T) {
	dir := testutil.TestTempDir(t)
	f, err := os.Create(testutil.WriteFile(t, dir, "out", ""))
	testutil.FatalIfErr(t, err)
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as a terminal")
	}
	if IsTerminal(nil) {
		t.Error("nil file reported as a terminal")
	}
}

func TestColorEnabled(t *testing.T) {
	dir := testutil.TestTempDir(t)
	f, err := os.Create(testutil.WriteFile(t, dir, "out", ""))
	testutil.FatalIfErr(t, err)
	defer f.Close()
	for _, tc := range []struct {
		mode string
		want bool
	}{
		{"always", true},
		{"ALWAYS", true},
		{"never", false},
		{"auto", false},
		{"", false},
	} {
		if got := ColorEnabled(tc.mode, f); got != tc.want {
			t.Errorf("ColorEnabled(%q): got %v, want %v", tc.mode, got, tc.want)
		}
	}
}
