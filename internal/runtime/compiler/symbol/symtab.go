// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package symbol implements the lexically scoped symbol table used by the
// translator.
package symbol

import (
	"bytes"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/compiler/position"
)

// Kind enumerates the kind of a Symbol.
type Kind int

// Kind enumerates the kinds of symbols found in the program text.
const (
	Const     Kind = iota // Named integer constants
	Var                   // Variables, including procedure parameters
	Procedure             // Procedures
)

func (k Kind) String() string {
	switch k {
	case Const:
		return "constant"
	case Var:
		return "variable"
	case Procedure:
		return "procedure"
	default:
		panic("unexpected symbol kind")
	}
}

// FirstLocal is the frame offset of the first variable in an activation
// record.  The cells below it hold the return address, dynamic link and
// static link.
const FirstLocal = 3

// Symbol describes a named program object.
type Symbol struct {
	Name  string            // identifier name
	Kind  Kind              // kind of program object
	Level int               // lexical level of the declaring scope
	Value int               // constant value, frame offset, or entry address
	Pos   position.Position // Source file position of definition
}

// Ref is a stable handle to a symbol: the level of the scope that holds it and
// its index in that scope's declaration order.
type Ref struct {
	Level int
	Slot  int
}

type scope struct {
	symbols []Symbol
	index   map[string]int
	addr    int // next free frame offset
}

func newScope() *scope {
	return &scope{index: make(map[string]int), addr: FirstLocal}
}

// Table is a stack of scopes indexed by lexical level.  Level 0 is the
// program's global scope and always exists.
type Table struct {
	scopes   []*scope
	declared []Symbol
}

// NewTable returns a Table holding only the global scope.
func NewTable() *Table {
	return &Table{scopes: []*scope{newScope()}}
}

// Level returns the current lexical level.
func (t *Table) Level() int {
	return len(t.scopes) - 1
}

func (t *Table) current() *scope {
	return t.scopes[len(t.scopes)-1]
}

// EnterScope pushes a new scope one level deeper than the current one.
func (t *Table) EnterScope() {
	t.scopes = append(t.scopes, newScope())
}

// ExitScope discards the current scope.  The global scope cannot be exited.
func (t *Table) ExitScope() {
	if t.Level() == 0 {
		glog.Error("symbol: ExitScope called at level 0")
		return
	}
	t.scopes[len(t.scopes)-1] = nil
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// AddSymbol appends a symbol to the current scope and returns its Ref.  A Var
// is given the next free frame offset; other kinds keep value.  AddSymbol does
// not check for duplicates; use LookupCurrentScope first.
func (t *Table) AddSymbol(name string, kind Kind, value int, pos position.Position) Ref {
	s := t.current()
	if kind == Var {
		value = t.NextAddress()
	}
	sym := Symbol{Name: name, Kind: kind, Level: t.Level(), Value: value, Pos: pos}
	s.symbols = append(s.symbols, sym)
	if _, ok := s.index[name]; !ok {
		s.index[name] = len(s.symbols) - 1
	}
	t.declared = append(t.declared, sym)
	glog.V(2).Infof("declared %s %q at level %d value %d", kind, name, sym.Level, value)
	return Ref{Level: sym.Level, Slot: len(s.symbols) - 1}
}

// Lookup finds name in the current scope or any enclosing one, innermost
// first.  It returns a copy of the symbol and its Ref.
func (t *Table) Lookup(name string) (Symbol, Ref, bool) {
	for level := t.Level(); level >= 0; level-- {
		s := t.scopes[level]
		if slot, ok := s.index[name]; ok {
			return s.symbols[slot], Ref{Level: level, Slot: slot}, true
		}
	}
	return Symbol{}, Ref{}, false
}

// LookupCurrentScope finds name in the current scope only.
func (t *Table) LookupCurrentScope(name string) (Symbol, Ref, bool) {
	s := t.current()
	if slot, ok := s.index[name]; ok {
		return s.symbols[slot], Ref{Level: t.Level(), Slot: slot}, true
	}
	return Symbol{}, Ref{}, false
}

// Get returns the symbol that ref names, if its scope is still active.
func (t *Table) Get(ref Ref) (Symbol, bool) {
	if ref.Level < 0 || ref.Level > t.Level() {
		return Symbol{}, false
	}
	s := t.scopes[ref.Level]
	if ref.Slot < 0 || ref.Slot >= len(s.symbols) {
		return Symbol{}, false
	}
	return s.symbols[ref.Slot], true
}

// NextAddress returns the next free frame offset in the current scope and
// advances the counter.
func (t *Table) NextAddress() int {
	s := t.current()
	a := s.addr
	s.addr++
	return a
}

// CurrentAddress returns the next free frame offset without advancing it.
// After all declarations of a block, it is the frame size of that block.
func (t *Table) CurrentAddress() int {
	return t.current().addr
}

// SetAddress sets the frame offset counter of the current scope.
func (t *Table) SetAddress(addr int) {
	t.current().addr = addr
}

// Declared returns every symbol ever added, in declaration order, including
// those whose scopes have since been exited.
func (t *Table) Declared() []Symbol {
	r := make([]Symbol, len(t.declared))
	copy(r, t.declared)
	return r
}

// String prints the active scopes, innermost first.  This method is only
// used for debugging.
func (t *Table) String() string {
	var buf bytes.Buffer
	for level := t.Level(); level >= 0; level-- {
		fmt.Fprintf(&buf, "scope %d {\n", level)
		for _, sym := range t.scopes[level].symbols {
			fmt.Fprintf(&buf, "\t%q: %s %d\n", sym.Name, sym.Kind, sym.Value)
		}
		fmt.Fprintf(&buf, "}\n")
	}
	return buf.String()
}
