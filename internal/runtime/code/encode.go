// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package code

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

const (
	objectMagic   = "pl0o"
	objectVersion = 1
)

// objectFile is the on-disk form of an Object.  Each instruction is the tuple
// [opcode, level, operand, line], so the numeric opcode values are preserved.
type objectFile struct {
	Magic   string   `cbor:"1,keyasint"`
	Version int      `cbor:"2,keyasint"`
	Name    string   `cbor:"3,keyasint"`
	Program [][4]int `cbor:"4,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes o as a CBOR object file.
func Marshal(o *Object) ([]byte, error) {
	f := objectFile{
		Magic:   objectMagic,
		Version: objectVersion,
		Name:    o.Name,
		Program: make([][4]int, len(o.Program)),
	}
	for addr, i := range o.Program {
		f.Program[addr] = [4]int{int(i.Opcode), i.Level, i.Operand, i.SourceLine}
	}
	return encMode.Marshal(f)
}

// Unmarshal decodes an object file written by Marshal.  The decoded program
// is validated before it is returned.
func Unmarshal(data []byte) (*Object, error) {
	var f objectFile
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding object file")
	}
	if f.Magic != objectMagic {
		return nil, errors.Errorf("not an object file: bad magic %q", f.Magic)
	}
	if f.Version != objectVersion {
		return nil, errors.Errorf("unsupported object file version %d", f.Version)
	}
	o := &Object{Name: f.Name, Program: make([]Instr, len(f.Program))}
	for addr, t := range f.Program {
		o.Program[addr] = Instr{Opcode: Opcode(t[0]), Level: t[1], Operand: t[2], SourceLine: t[3]}
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}
