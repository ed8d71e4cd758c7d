// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package code

import "fmt"

// Instr is a single P-code instruction.
type Instr struct {
	Opcode     Opcode
	Level      int // Lexical level difference for Lod, Sto, Cal and Red.
	Operand    int
	SourceLine int // Line number of the original source file, zero-based numbering.
}

// debug print for instructions.
func (i Instr) String() string {
	return fmt.Sprintf("{%s %d %d %d}", i.Opcode, i.Level, i.Operand, i.SourceLine)
}

// Comment describes the instruction for a code listing, or returns the empty
// string if there is nothing useful to say.
func (i Instr) Comment() string {
	switch i.Opcode {
	case Opr:
		return "; " + OprCode(i.Operand).String()
	case Lit:
		return fmt.Sprintf("; load constant %d", i.Operand)
	case Jmp:
		return fmt.Sprintf("; jump to %d", i.Operand)
	case Jpc:
		return fmt.Sprintf("; jump to %d if false", i.Operand)
	case Cal:
		return fmt.Sprintf("; call %d", i.Operand)
	}
	return ""
}

// IsJump reports whether the operand of i is a program address.
func (i Instr) IsJump() bool {
	return i.Opcode == Jmp || i.Opcode == Jpc || i.Opcode == Cal
}
