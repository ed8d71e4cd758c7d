// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package vm

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// DefaultStackSize is the number of cells in the data stack unless the
// StackSize option says otherwise.
const DefaultStackSize = 10000

// Option configures a VM.
type Option func(*VM) error

// StackSize sets the capacity of the data stack.
func StackSize(n int) Option {
	return func(v *VM) error {
		if n < 3 {
			return errors.Errorf("stack size %d is too small, need at least 3 cells", n)
		}
		v.capacity = n
		return nil
	}
}

// Input sets the reader RED takes integers from.  A *bufio.Reader is used
// as is, so that several VMs can share one input stream.
func Input(r io.Reader) Option {
	return func(v *VM) error {
		if br, ok := r.(*bufio.Reader); ok {
			v.in = br
		} else {
			v.in = bufio.NewReader(r)
		}
		return nil
	}
}

// Output sets the writer WRT and the input prompt print to.
func Output(w io.Writer) Option {
	return func(v *VM) error {
		v.out = w
		return nil
	}
}

// Prompt is printed to the output before each RED.
func Prompt(p string) Option {
	return func(v *VM) error {
		v.prompt = p
		return nil
	}
}

// Trace writes a line for each executed instruction to w, followed by a
// snapshot of the registers and the top of the stack.
func Trace(w io.Writer) Option {
	return func(v *VM) error {
		v.trace = w
		return nil
	}
}

// HardCrash makes the VM repanic instead of recovering.  Useful when
// debugging the VM itself.
func HardCrash() Option {
	return func(v *VM) error {
		v.hardCrash = true
		return nil
	}
}
