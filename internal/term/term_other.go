// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package term

func isTerminal(fd int) bool {
	return false
}
