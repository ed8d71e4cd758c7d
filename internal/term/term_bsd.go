// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build darwin || freebsd || netbsd || openbsd

package term

import "golang.org/x/sys/unix"

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	return err == nil
}
