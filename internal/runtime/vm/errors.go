// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package vm

import (
	"fmt"

	"github.com/google/pl0/internal/runtime/code"
	"github.com/pkg/errors"
)

// Fatal conditions that stop a program.  A RuntimeError wraps exactly one of
// these.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrBadInstruction = errors.New("bad instruction")
	ErrInput          = errors.New("bad input")

	// ErrHalted is returned by Step once the program has stopped.
	ErrHalted = errors.New("program has halted")
)

// RuntimeError describes the instruction that stopped a program.
type RuntimeError struct {
	Prog  string
	PC    int // Address of the faulting instruction.
	Instr code.Instr
	Err   error  // One of the sentinels above, or an output error.
	Info  string // Optional detail.
}

func (e *RuntimeError) Error() string {
	msg := e.Err.Error()
	if e.Info != "" {
		msg += ": " + e.Info
	}
	return fmt.Sprintf("%s: runtime error: %s at instruction %d {%s %d %d}, line %d",
		e.Prog, msg, e.PC, e.Instr.Opcode, e.Instr.Level, e.Instr.Operand, e.Instr.SourceLine+1)
}

// Cause returns the sentinel error, for errors.Cause.
func (e *RuntimeError) Cause() error { return e.Err }

// Unwrap returns the sentinel error, for errors.Is.
func (e *RuntimeError) Unwrap() error { return e.Err }

// kind names the sentinel for the runtime error metric.
func kind(err error) string {
	switch errors.Cause(err) {
	case ErrDivisionByZero:
		return "division_by_zero"
	case ErrStackOverflow:
		return "stack_overflow"
	case ErrBadInstruction:
		return "bad_instruction"
	case ErrInput:
		return "input"
	}
	return "other"
}
