// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package position_test

import (
	"testing"

	"github.com/google/pl0/internal/runtime/compiler/position"
)

func TestPosition(t *testing.T) {
	for _, tc := range []struct {
		pos        position.Position
		wantString string
		wantLength int
	}{
		{position.Position{"a.pl0", 0, 0, 0}, "a.pl0:1:1", 1},
		{position.Position{"a.pl0", 4, 7, 9}, "a.pl0:5:8", 3},
		{position.Position{"", 2, 5, 3}, ":3:6", 1},
	} {
		if got := tc.pos.String(); got != tc.wantString {
			t.Errorf("%#v.String() = %q, want %q", tc.pos, got, tc.wantString)
		}
		if got := tc.pos.Length(); got != tc.wantLength {
			t.Errorf("%#v.Length() = %d, want %d", tc.pos, got, tc.wantLength)
		}
	}
}
