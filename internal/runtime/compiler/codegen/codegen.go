// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package codegen holds the instruction buffer that the translator emits
// into.
package codegen

import (
	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/code"
	"github.com/pkg/errors"
)

// Generator is an append-only instruction buffer.  Instructions are never
// removed or reordered; only the operand of an already emitted instruction can
// be changed, by Backpatch.
type Generator struct {
	prog []code.Instr
	line int // source line stamped on emitted instructions
}

// New returns an empty Generator.
func New() *Generator {
	return &Generator{}
}

// SetLine sets the source line recorded on instructions emitted from now on.
func (g *Generator) SetLine(line int) {
	g.line = line
}

// Emit appends an instruction and returns its address.
func (g *Generator) Emit(op code.Opcode, level, operand int) int {
	addr := len(g.prog)
	glog.V(2).Infof("emitting %d: `%s %d %d' from line %d", addr, op, level, operand, g.line+1)
	g.prog = append(g.prog, code.Instr{Opcode: op, Level: level, Operand: operand, SourceLine: g.line})
	return addr
}

// EmitOpr appends an Opr instruction for o and returns its address.
func (g *Generator) EmitOpr(o code.OprCode) int {
	return g.Emit(code.Opr, 0, int(o))
}

// Backpatch sets the operand of the instruction at addr.
func (g *Generator) Backpatch(addr, operand int) error {
	if addr < 0 || addr >= len(g.prog) {
		return errors.Errorf("backpatch address %d out of range [0, %d)", addr, len(g.prog))
	}
	glog.V(2).Infof("backpatching %d: `%s' operand %d -> %d", addr, g.prog[addr].Opcode, g.prog[addr].Operand, operand)
	g.prog[addr].Operand = operand
	return nil
}

// NextAddress returns the address the next emitted instruction will have.
func (g *Generator) NextAddress() int {
	return len(g.prog)
}

// Program returns a copy of the instructions emitted so far.
func (g *Generator) Program() []code.Instr {
	p := make([]code.Instr, len(g.prog))
	copy(p, g.prog)
	return p
}
