// Copyright 2017 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package code

import (
	"github.com/pkg/errors"
)

// Object is the bytecode resulting from compiled program source.
type Object struct {
	Name    string  // Name of the program, usually the source filename.
	Program []Instr // The program bytecode.
}

// Validate checks that every instruction in o could be executed: opcodes and
// Opr codes are known, levels are not negative, and jump and call targets lie
// inside the program.
func (o *Object) Validate() error {
	for addr, i := range o.Program {
		if !i.Opcode.Valid() {
			return errors.Errorf("%s: instruction %d: bad opcode %d", o.Name, addr, int(i.Opcode))
		}
		if i.Level < 0 {
			return errors.Errorf("%s: instruction %d: negative level %d", o.Name, addr, i.Level)
		}
		if i.Opcode == Opr && !OprCode(i.Operand).Valid() {
			return errors.Errorf("%s: instruction %d: bad OPR code %d", o.Name, addr, i.Operand)
		}
		if i.IsJump() && (i.Operand < 0 || i.Operand >= len(o.Program)) {
			return errors.Errorf("%s: instruction %d: target %d out of range", o.Name, addr, i.Operand)
		}
	}
	return nil
}
