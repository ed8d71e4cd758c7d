// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build linux

package term

import "golang.org/x/sys/unix"

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}
