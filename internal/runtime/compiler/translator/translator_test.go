// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package translator_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/pl0/internal/runtime/code"
	"github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/symbol"
	"github.com/google/pl0/internal/runtime/compiler/translator"
	"github.com/google/pl0/internal/testutil"
)

func translate(tb testing.TB, src string, opts ...translator.Option) (*translator.Translator, *errors.Diagnostics, bool) {
	tb.Helper()
	diags := &errors.Diagnostics{}
	toks := parser.Tokenize("test.pl0", strings.NewReader(src), diags)
	tr := translator.New(toks, diags, opts...)
	ok := tr.Translate()
	return tr, diags, ok
}

var ignoreLine = testutil.IgnoreFields(code.Instr{}, "SourceLine")

// i builds an instruction without a source line.
func i(op code.Opcode, l, a int) code.Instr {
	return code.Instr{Opcode: op, Level: l, Operand: a}
}

func opr(o code.OprCode) code.Instr {
	return i(code.Opr, 0, int(o))
}

var codegenTests = []struct {
	name   string
	source string
	prog   []code.Instr
}{
	{"empty program",
		"program p; begin end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 3),
			opr(code.Ret),
		}},
	{"write constant",
		"program P; const a:=5; begin write(a) end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 3),
			i(code.Lit, 0, 5),
			i(code.Wrt, 0, 0),
			opr(code.Ret),
		}},
	{"signed constants",
		"program p; const a := -3, b := +4; begin write(a, b) end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 3),
			i(code.Lit, 0, -3),
			i(code.Wrt, 0, 0),
			i(code.Lit, 0, 4),
			i(code.Wrt, 0, 0),
			opr(code.Ret),
		}},
	{"assignment and arithmetic",
		"program p; var x, y; begin x := -2 + 3 * y; y := (x - 1) / 2 end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 5),
			i(code.Lit, 0, 2),
			opr(code.Neg),
			i(code.Lit, 0, 3),
			i(code.Lod, 0, 4),
			opr(code.Mul),
			opr(code.Add),
			i(code.Sto, 0, 3),
			i(code.Lod, 0, 3),
			i(code.Lit, 0, 1),
			opr(code.Sub),
			i(code.Lit, 0, 2),
			opr(code.Div),
			i(code.Sto, 0, 4),
			opr(code.Ret),
		}},
	{"if else",
		"program p; var x; begin if x < 1 then x := 1 else x := 2 end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 4),
			i(code.Lod, 0, 3),
			i(code.Lit, 0, 1),
			opr(code.Lt),
			i(code.Jpc, 0, 9),
			i(code.Lit, 0, 1),
			i(code.Sto, 0, 3),
			i(code.Jmp, 0, 11),
			i(code.Lit, 0, 2),
			i(code.Sto, 0, 3),
			opr(code.Ret),
		}},
	{"if without else",
		"program p; var x; begin if odd x then write(x) end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 4),
			i(code.Lod, 0, 3),
			opr(code.Odd),
			i(code.Jpc, 0, 7),
			i(code.Lod, 0, 3),
			i(code.Wrt, 0, 0),
			opr(code.Ret),
		}},
	{"while false on entry",
		"program p; var x; begin while 0 = 1 do x := 1 end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 4),
			i(code.Lit, 0, 0),
			i(code.Lit, 0, 1),
			opr(code.Eq),
			i(code.Jpc, 0, 9),
			i(code.Lit, 0, 1),
			i(code.Sto, 0, 3),
			i(code.Jmp, 0, 2),
			opr(code.Ret),
		}},
	{"read",
		"program p; var a, b; begin read(a, b) end",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 5),
			i(code.Red, 0, 3),
			i(code.Red, 0, 4),
			opr(code.Ret),
		}},
	{"nested procedures",
		`program p;
var x;
procedure q();
  var y;
  procedure r();
  begin x := 1; y := 2 end;
begin call r() end;
begin call q(); write(x) end`,
		[]code.Instr{
			i(code.Jmp, 0, 12),
			i(code.Jmp, 0, 9),
			i(code.Jmp, 0, 3),
			i(code.Int, 0, 3),
			i(code.Lit, 0, 1),
			i(code.Sto, 2, 3),
			i(code.Lit, 0, 2),
			i(code.Sto, 1, 3),
			opr(code.Ret),
			i(code.Int, 0, 4),
			i(code.Cal, 0, 2),
			opr(code.Ret),
			i(code.Int, 0, 4),
			i(code.Cal, 0, 1),
			i(code.Lod, 0, 3),
			i(code.Wrt, 0, 0),
			opr(code.Ret),
		}},
	{"parameters and discarded arguments",
		"program p; procedure q(a, b); begin write(a) end; begin call q(1, 2) end",
		[]code.Instr{
			i(code.Jmp, 0, 6),
			i(code.Jmp, 0, 2),
			i(code.Int, 0, 5),
			i(code.Lod, 0, 3),
			i(code.Wrt, 0, 0),
			opr(code.Ret),
			i(code.Int, 0, 3),
			i(code.Lit, 0, 1),
			i(code.Jpc, 0, 9),
			i(code.Lit, 0, 2),
			i(code.Jpc, 0, 11),
			i(code.Cal, 0, 1),
			opr(code.Ret),
		}},
	{"variables after procedures",
		"program p; procedure q(); begin end; var v; begin v := 1 end",
		[]code.Instr{
			i(code.Jmp, 0, 4),
			i(code.Jmp, 0, 2),
			i(code.Int, 0, 3),
			opr(code.Ret),
			i(code.Int, 0, 4),
			i(code.Lit, 0, 1),
			i(code.Sto, 0, 3),
			opr(code.Ret),
		}},
	{"trailing semicolon and period",
		"PROGRAM p; VAR x; BEGIN x := 1; END.",
		[]code.Instr{
			i(code.Jmp, 0, 1),
			i(code.Int, 0, 4),
			i(code.Lit, 0, 1),
			i(code.Sto, 0, 3),
			opr(code.Ret),
		}},
}

func TestCodegen(t *testing.T) {
	for _, tc := range codegenTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tr, diags, ok := translate(t, tc.source)
			if !ok {
				t.Fatalf("translation failed: %v", diags.Err())
			}
			testutil.ExpectNoDiff(t, tc.prog, tr.Program(), ignoreLine)
			obj := &code.Object{Name: tc.name, Program: tr.Program()}
			testutil.FatalIfErr(t, obj.Validate())
		})
	}
}

func TestSourceLines(t *testing.T) {
	tr, _, ok := translate(t, "program p;\nbegin\n  write(1);\n  write(2)\nend")
	if !ok {
		t.Fatal("translation failed")
	}
	var lines []int
	for _, in := range tr.Program() {
		if in.Opcode == code.Wrt {
			lines = append(lines, in.SourceLine)
		}
	}
	testutil.ExpectNoDiff(t, []int{2, 3}, lines)
}

var errorTests = []struct {
	name   string
	source string
	msgs   []string
}{
	{"redeclared variable",
		"program p; var a, a; begin end",
		[]string{"redefinition of 'a'"}},
	{"redeclared procedure",
		"program p; var q; procedure q(); begin end; begin end",
		[]string{"redefinition of 'q'"}},
	{"undeclared call",
		"program p; begin call q() end",
		[]string{"call to undeclared procedure 'q'"}},
	{"call a variable",
		"program p; var v; begin call v(1) end",
		[]string{"'v' is a variable, not a procedure"}},
	{"assign to constant",
		"program p; const c := 1; begin c := 2 end",
		[]string{"cannot assign to constant 'c'"}},
	{"assign to procedure",
		"program p; procedure q(); begin end; begin q := 2 end",
		[]string{"cannot assign to procedure 'q'"}},
	{"assign to undeclared",
		"program p; begin z := 2 end",
		[]string{"use of undeclared identifier 'z'"}},
	{"equals for assignment",
		"program p; var x; begin x = 1 end",
		[]string{"use ':=' for assignment, not '='"}},
	{"equals for constant",
		"program p; const c = 1; begin write(c) end",
		[]string{"use ':=' for constant definition, not '='"}},
	{"read into constant",
		"program p; const c := 1; begin read(c) end",
		[]string{"cannot read into constant 'c'"}},
	{"procedure as value",
		"program p; procedure q(); begin end; begin write(q) end",
		[]string{"procedure 'q' cannot be used as a value"}},
	{"undeclared in expression",
		"program p; begin write(y) end",
		[]string{"use of undeclared identifier 'y'"}},
	{"missing relational operator",
		"program p; var x; begin if x then x := 1 end",
		[]string{"expected relational operator (=, <>, <, <=, >, >=)"}},
	{"missing semicolon between statements",
		"program p; var x; begin x := 1 x := 2 end",
		[]string{"expected ';'"}},
	{"missing end",
		"program p; begin write(1)",
		[]string{"expected 'end', found end of file"}},
	{"missing then",
		"program p; var x; begin if x = 1 x := 2 end",
		[]string{"expected 'then', found 'x'"}},
	{"missing program header",
		"var x; begin x := 1 end",
		[]string{"expected 'program', found 'var'"}},
	{"token after program",
		"program p; begin end x",
		[]string{"unexpected token after end of program"}},
	{"unexpected token in statement",
		"program p; begin := 1 end",
		[]string{"unexpected token in statement"}},
	{"incomplete expression",
		"program p; var x; begin x := end",
		[]string{"expected expression (identifier, number, or '(')"}},
	{"lexical error is counted",
		"program p; var x; begin x := 1 ! end",
		[]string{"unexpected character '!'"}},
}

func TestErrors(t *testing.T) {
	for _, tc := range errorTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, diags, ok := translate(t, tc.source)
			if ok {
				t.Fatal("translation succeeded, want failure")
			}
			var msgs []string
			for _, d := range diags.List() {
				msgs = append(msgs, d.Msg)
			}
			testutil.ExpectNoDiff(t, tc.msgs, msgs)
		})
	}
}

func TestErrorSitesEmitNothing(t *testing.T) {
	for _, tc := range []struct {
		name   string
		source string
		absent code.Opcode
	}{
		{"undeclared call", "program p; begin call q(1) end", code.Cal},
		{"assign to constant", "program p; const c := 1; begin c := 2 end", code.Sto},
		{"read into constant", "program p; const c := 1; begin read(c) end", code.Red},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tr, _, _ := translate(t, tc.source)
			for addr, in := range tr.Program() {
				if in.Opcode == tc.absent {
					t.Errorf("instruction %d is %s", addr, in)
				}
				if in.Opcode == code.Lit && in.Operand != 0 && tc.absent != code.Red {
					t.Errorf("instruction %d evaluates the invalid construct: %s", addr, in)
				}
			}
		})
	}
}

func TestRedeclarationKeepsFirstBinding(t *testing.T) {
	tr, diags, _ := translate(t, "program p; const a := 1; const a := 2; begin write(a) end")
	if diags.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d, want 1", diags.ErrorCount())
	}
	found := false
	for _, in := range tr.Program() {
		if in.Opcode == code.Lit {
			found = true
			if in.Operand != 1 {
				t.Errorf("a resolved to %d, want 1", in.Operand)
			}
		}
	}
	if !found {
		t.Error("no LIT emitted for a")
	}
}

func TestMissingSemicolonPosition(t *testing.T) {
	_, diags, _ := translate(t, "program p; var x; begin x := 1 x := 2 end")
	d := diags.List()[0]
	if d.Pos.Startcol != 30 {
		t.Errorf("error at column %d, want 30 (just after '1')", d.Pos.Startcol)
	}
	testutil.ExpectNoDiff(t, "add ';' after '1'", d.Suggestion)
}

func TestEqualsFix(t *testing.T) {
	_, diags, _ := translate(t, "program p; var x; begin x = 1 end")
	testutil.ExpectNoDiff(t, ":=", diags.List()[0].Fix)
}

func TestSymbols(t *testing.T) {
	tr, _, ok := translate(t, "program p; const k := 7; var v; procedure q(a); var w; begin end; begin end")
	if !ok {
		t.Fatal("translation failed")
	}
	var got []symbol.Symbol
	for _, s := range tr.Symbols() {
		s.Pos.Filename = ""
		s.Pos.Line = 0
		s.Pos.Startcol = 0
		s.Pos.Endcol = 0
		got = append(got, s)
	}
	want := []symbol.Symbol{
		{Name: "k", Kind: symbol.Const, Level: 0, Value: 7},
		{Name: "v", Kind: symbol.Var, Level: 0, Value: 3},
		{Name: "q", Kind: symbol.Procedure, Level: 0, Value: 1},
		{Name: "a", Kind: symbol.Var, Level: 1, Value: 3},
		{Name: "w", Kind: symbol.Var, Level: 1, Value: 4},
	}
	testutil.ExpectNoDiff(t, want, got)
}

func TestTrace(t *testing.T) {
	var b bytes.Buffer
	_, _, ok := translate(t, "program p; begin end", translator.TraceTo(&b))
	if !ok {
		t.Fatal("translation failed")
	}
	want := "├─ <program>\n  Program name: p\n  ├─ <block>\n    ├─ <body>\n      ├─ <statement>\n"
	testutil.ExpectNoDiff(t, want, b.String())
}

func TestNoTokens(t *testing.T) {
	diags := &errors.Diagnostics{}
	tr := translator.New(nil, diags)
	if tr.Translate() {
		t.Error("translating nothing succeeded")
	}
}
