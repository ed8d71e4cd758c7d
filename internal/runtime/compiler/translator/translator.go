// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package translator implements the single pass PL/0 translator.  It parses
// the token stream by recursive descent and emits code for each construct as
// soon as it is recognised; there is no syntax tree.
package translator

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/code"
	"github.com/google/pl0/internal/runtime/compiler/codegen"
	"github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/position"
	"github.com/google/pl0/internal/runtime/compiler/symbol"
)

// Option configures a Translator.
type Option func(*Translator)

// TraceTo writes an indented trace of the grammar rules entered to w.
func TraceTo(w io.Writer) Option {
	return func(t *Translator) {
		t.trace = w
	}
}

// Translator holds the state of one translation.
type Translator struct {
	toks  []parser.Token
	cur   int          // index of the current token
	prev  parser.Token // last token consumed
	syms  *symbol.Table
	gen   *codegen.Generator
	diags *errors.Diagnostics

	mute int // emission is suppressed while positive

	trace io.Writer
	depth int
}

// New creates a Translator over tokens.  The token slice is expected to end
// with EOF; one is appended if it does not.  Diagnostics are reported to
// diags.
func New(tokens []parser.Token, diags *errors.Diagnostics, opts ...Option) *Translator {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != parser.EOF {
		var pos position.Position
		if len(tokens) > 0 {
			pos = tokens[len(tokens)-1].Pos
		}
		tokens = append(tokens, parser.Token{Kind: parser.EOF, Pos: pos})
	}
	t := &Translator{
		toks:  tokens,
		syms:  symbol.NewTable(),
		gen:   codegen.New(),
		diags: diags,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.skipInvalid()
	return t
}

// Translate translates the whole program.  It returns true if no errors were
// reported, including any reported by the lexer to the same Diagnostics.
func (t *Translator) Translate() bool {
	t.program()
	return !t.diags.HasErrors()
}

// Program returns the instructions emitted.
func (t *Translator) Program() []code.Instr {
	return t.gen.Program()
}

// Symbols returns every symbol declared during translation.
func (t *Translator) Symbols() []symbol.Symbol {
	return t.syms.Declared()
}

// Token cursor.

func (t *Translator) tok() parser.Token {
	return t.toks[t.cur]
}

// skipInvalid steps over INVALID tokens; the lexer has already reported them.
func (t *Translator) skipInvalid() {
	for t.toks[t.cur].Kind == parser.INVALID {
		t.cur++
	}
}

func (t *Translator) advance() {
	if t.tok().Kind == parser.EOF {
		return
	}
	t.prev = t.tok()
	t.cur++
	t.skipInvalid()
}

func (t *Translator) check(k parser.Kind) bool {
	return t.tok().Kind == k
}

func (t *Translator) match(k parser.Kind) bool {
	if t.check(k) {
		t.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k.  If the current token is something else,
// it reports an error naming what, synchronizes, and returns false.
func (t *Translator) expect(k parser.Kind, what string) bool {
	if t.match(k) {
		return true
	}
	t.expected(what)
	t.synchronize()
	return false
}

// expected reports that what was required at the current token.
func (t *Translator) expected(what string) {
	tok := t.tok()
	d := t.diags.Expected(tok.Pos, what, found(tok))
	switch what {
	case "';'":
		switch tok.Kind {
		case parser.BEGIN:
			d.WithSuggestion("add ';' before 'begin'")
		case parser.ID:
			d.WithSuggestion("statements must be separated by ';'")
		case parser.END:
			d.WithSuggestion("add ';' after the last statement before 'end'")
		}
	case "':='":
		if tok.Kind == parser.EQ {
			d.WithSuggestion("use ':=' for assignment, '=' is for comparison").WithFix(":=")
		}
	case "'then'":
		d.WithSuggestion("'if' condition must be followed by 'then'")
	case "'do'":
		d.WithSuggestion("'while' condition must be followed by 'do'")
	case "'end'":
		d.WithSuggestion("'begin' must have a matching 'end'")
	case "')'":
		d.WithSuggestion("missing closing parenthesis")
	case "'('":
		d.WithSuggestion("missing opening parenthesis")
	}
}

// expectSemicolon consumes a ';'.  When the current token could begin a
// statement, the semicolon was most likely forgotten after the previous
// token, so the error points there.
func (t *Translator) expectSemicolon() {
	if t.match(parser.SEMICOLON) {
		return
	}
	if startsStatement(t.tok().Kind) {
		t.missingSemicolon()
	} else {
		t.diags.Expected(t.tok().Pos, "';'", found(t.tok()))
	}
	t.synchronize()
}

func (t *Translator) missingSemicolon() {
	p := t.prev.Pos
	pos := position.Position{Filename: p.Filename, Line: p.Line, Startcol: p.Endcol + 1, Endcol: p.Endcol + 1}
	t.diags.Errorf(pos, "expected ';'").WithSuggestion("add ';' after '%s'", t.prev.Spelling)
}

// synchronize skips tokens after a syntax error until a point where parsing
// can resume: just past a ';', or at 'begin', 'end' or a declaration keyword.
func (t *Translator) synchronize() {
	for !t.check(parser.EOF) {
		switch t.tok().Kind {
		case parser.SEMICOLON:
			t.advance()
			return
		case parser.BEGIN, parser.END, parser.CONST, parser.VAR, parser.PROCEDURE:
			return
		}
		glog.V(2).Infof("synchronize: skipping %s", t.tok())
		t.advance()
	}
}

func found(tok parser.Token) string {
	if tok.Kind == parser.EOF {
		return ""
	}
	return tok.Spelling
}

func startsStatement(k parser.Kind) bool {
	switch k {
	case parser.ID, parser.IF, parser.WHILE, parser.CALL, parser.BEGIN, parser.READ, parser.WRITE:
		return true
	}
	return false
}

// Code emission.

func (t *Translator) emit(op code.Opcode, level, operand int) int {
	if t.mute > 0 {
		return t.gen.NextAddress()
	}
	t.gen.SetLine(t.prev.Pos.Line)
	return t.gen.Emit(op, level, operand)
}

func (t *Translator) emitOpr(o code.OprCode) int {
	return t.emit(code.Opr, 0, int(o))
}

func (t *Translator) backpatch(addr, operand int) {
	if t.mute > 0 {
		return
	}
	if err := t.gen.Backpatch(addr, operand); err != nil {
		t.diags.Errorf(t.tok().Pos, "internal compiler error: %s", err)
	}
}

// levelDiff is the number of static links to follow from the current level
// to reach the frame that declared sym.
func (t *Translator) levelDiff(sym symbol.Symbol) int {
	return t.syms.Level() - sym.Level
}

// Parse tree trace.

func (t *Translator) enter(rule string) {
	if t.trace == nil {
		return
	}
	fmt.Fprintf(t.trace, "%s├─ %s\n", strings.Repeat("  ", t.depth), rule)
	t.depth++
}

func (t *Translator) exit() {
	if t.trace == nil {
		return
	}
	t.depth--
}

func (t *Translator) logf(format string, args ...interface{}) {
	if t.trace == nil {
		return
	}
	fmt.Fprintf(t.trace, "%s%s\n", strings.Repeat("  ", t.depth), fmt.Sprintf(format, args...))
}

func (t *Translator) number(tok parser.Token) int {
	n, err := strconv.Atoi(tok.Spelling)
	if err != nil {
		// The lexer has reported the overflow.
		glog.V(1).Infof("bad integer literal %q: %s", tok.Spelling, err)
		return 0
	}
	return n
}
