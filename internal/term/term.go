// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package term detects whether output goes to a terminal, for colour and
// prompts.
package term

import (
	"os"
	"strings"
)

// IsTerminal reports whether f refers to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isTerminal(int(f.Fd()))
}

// ColorEnabled decides whether to colour output written to f.  mode is one
// of "always", "never" or "auto"; auto colours terminals unless NO_COLOR is
// set or TERM is "dumb".
func ColorEnabled(mode string, f *os.File) bool {
	switch strings.ToLower(mode) {
	case "always", "true", "yes", "on":
		return true
	case "never", "false", "no", "off":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return IsTerminal(f)
}
