// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package code contains the bytecode instructions for the pl0 virtual machine.
package code

import "fmt"

// Opcode is the operation of an instruction.  The numeric values are part of
// the object file format and must not change.
type Opcode int

const (
	Lit Opcode = iota // Push the operand onto the stack.
	Opr               // Arithmetic, comparison or return; the operand selects which.
	Lod               // Push the variable at (level, operand).
	Sto               // Pop into the variable at (level, operand).
	Cal               // Call the procedure at operand, declared level levels out.
	Int               // Grow the stack by operand cells.
	Jmp               // Unconditional jump.
	Jpc               // Pop, and jump if the value was zero.
	Red               // Read an integer into the variable at (level, operand).
	Wrt               // Pop and print.

	lastOpcode
)

var opNames = map[Opcode]string{
	Lit: "LIT",
	Opr: "OPR",
	Lod: "LOD",
	Sto: "STO",
	Cal: "CAL",
	Int: "INT",
	Jmp: "JMP",
	Jpc: "JPC",
	Red: "RED",
	Wrt: "WRT",
}

func (o Opcode) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("opcode(%d)", int(o))
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool {
	return o >= Lit && o < lastOpcode
}

// OprCode selects the operation performed by an Opr instruction.
type OprCode int

const (
	Ret OprCode = 0  // Return from the current procedure.
	Neg OprCode = 1  // Negate TOS.
	Add OprCode = 2  // Pop b, a; push a+b.
	Sub OprCode = 3  // Pop b, a; push a-b.
	Mul OprCode = 4  // Pop b, a; push a*b.
	Div OprCode = 5  // Pop b, a; push a/b, truncating.
	Odd OprCode = 6  // Replace TOS with 1 if it is odd, otherwise 0.
	Eq  OprCode = 8  // Pop b, a; push a=b.
	Neq OprCode = 9  // Pop b, a; push a<>b.
	Lt  OprCode = 10 // Pop b, a; push a<b.
	Geq OprCode = 11 // Pop b, a; push a>=b.
	Gt  OprCode = 12 // Pop b, a; push a>b.
	Leq OprCode = 13 // Pop b, a; push a<=b.
)

var oprNames = map[OprCode]string{
	Ret: "RET",
	Neg: "NEG",
	Add: "ADD",
	Sub: "SUB",
	Mul: "MUL",
	Div: "DIV",
	Odd: "ODD",
	Eq:  "EQ",
	Neq: "NEQ",
	Lt:  "LT",
	Geq: "GEQ",
	Gt:  "GT",
	Leq: "LEQ",
}

func (o OprCode) String() string {
	if s, ok := oprNames[o]; ok {
		return s
	}
	return "UNKNOWN"
}

// Valid reports whether o is a known Opr operation.  Code 7 is reserved.
func (o OprCode) Valid() bool {
	_, ok := oprNames[o]
	return ok
}
