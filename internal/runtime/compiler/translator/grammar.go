// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package translator

import (
	"github.com/google/pl0/internal/runtime/code"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/symbol"
)

// <prog> -> program <id> ; <block> [.]
func (t *Translator) program() {
	t.enter("<program>")
	defer t.exit()

	header := t.match(parser.PROGRAM)
	if !header {
		t.expected("'program'")
	}
	if header || t.check(parser.ID) {
		if t.check(parser.ID) {
			t.logf("Program name: %s", t.tok().Spelling)
			t.advance()
		} else {
			t.expected("program name (identifier)")
		}
		t.expect(parser.SEMICOLON, "';'")
	}

	t.block()
	t.emitOpr(code.Ret)

	t.match(parser.PERIOD)
	if !t.check(parser.EOF) {
		t.diags.Errorf(t.tok().Pos, "unexpected token after end of program").
			WithSuggestion("program should end after the main block")
	}
}

// <block> -> { <condecl> | <vardecl> | <proc> } <body>
func (t *Translator) block() {
	t.enter("<block>")
	defer t.exit()

	jmp := t.emit(code.Jmp, 0, 0)
Decls:
	for {
		switch t.tok().Kind {
		case parser.CONST:
			t.constDecl()
		case parser.VAR:
			t.varDecl()
		case parser.PROCEDURE:
			t.procDecl()
		default:
			break Decls
		}
	}
	t.backpatch(jmp, t.gen.NextAddress())
	t.emit(code.Int, 0, t.syms.CurrentAddress())
	t.body()
}

// <condecl> -> const <const> { , <const> } ;
// <const>   -> <id> := [+|-] <integer>
func (t *Translator) constDecl() {
	t.enter("<const-declaration>")
	defer t.exit()

	t.advance()
	for {
		if !t.check(parser.ID) {
			t.expected("identifier")
			break
		}
		name := t.tok()
		t.advance()

		if t.check(parser.EQ) {
			t.diags.Errorf(t.tok().Pos, "use ':=' for constant definition, not '='").
				WithSuggestion("PL/0 uses ':=' for both assignment and constant definition").
				WithFix(":=")
			t.advance()
		} else if !t.expect(parser.ASSIGN, "':='") {
			return
		}

		negative := false
		if t.match(parser.MINUS) {
			negative = true
		} else {
			t.match(parser.PLUS)
		}
		if t.check(parser.NUMBER) {
			value := t.number(t.tok())
			if negative {
				value = -value
			}
			if _, _, ok := t.syms.LookupCurrentScope(name.Spelling); ok {
				t.diags.Redeclared(name.Pos, name.Spelling)
			} else {
				t.syms.AddSymbol(name.Spelling, symbol.Const, value, name.Pos)
				t.logf("Constant: %s = %d", name.Spelling, value)
			}
			t.advance()
		} else {
			t.expected("integer value")
		}
		if !t.match(parser.COMMA) {
			break
		}
	}
	t.expectSemicolon()
}

// <vardecl> -> var <id> { , <id> } ;
func (t *Translator) varDecl() {
	t.enter("<var-declaration>")
	defer t.exit()

	t.advance()
	for {
		if !t.check(parser.ID) {
			t.expected("identifier")
			break
		}
		t.declareVar(t.tok())
		t.advance()
		if !t.match(parser.COMMA) {
			break
		}
	}
	t.expectSemicolon()
}

func (t *Translator) declareVar(name parser.Token) {
	if _, _, ok := t.syms.LookupCurrentScope(name.Spelling); ok {
		t.diags.Redeclared(name.Pos, name.Spelling)
		return
	}
	t.syms.AddSymbol(name.Spelling, symbol.Var, 0, name.Pos)
	t.logf("Variable: %s", name.Spelling)
}

// <proc> -> procedure <id> ( [ <id> { , <id> } ] ) ; <block> ;
func (t *Translator) procDecl() {
	t.enter("<procedure>")
	defer t.exit()

	t.advance()
	if t.check(parser.ID) {
		name := t.tok()
		if _, _, ok := t.syms.LookupCurrentScope(name.Spelling); ok {
			t.diags.Redeclared(name.Pos, name.Spelling)
		} else {
			// The procedure's block begins with its jump over nested
			// declarations, which is the next instruction emitted.
			t.syms.AddSymbol(name.Spelling, symbol.Procedure, t.gen.NextAddress(), name.Pos)
			t.logf("Procedure: %s", name.Spelling)
		}
		t.advance()
	} else {
		t.expected("procedure name")
	}

	t.expect(parser.LPAREN, "'('")
	t.syms.EnterScope()
	if t.check(parser.ID) {
		t.logf("Parameters:")
		for {
			if !t.check(parser.ID) {
				t.expected("parameter name")
				break
			}
			t.declareVar(t.tok())
			t.advance()
			if !t.match(parser.COMMA) {
				break
			}
		}
	}
	t.expect(parser.RPAREN, "')'")
	t.expectSemicolon()

	t.block()
	t.emitOpr(code.Ret)
	t.syms.ExitScope()

	t.expectSemicolon()
}

// <body> -> begin <statement> { ; <statement> } end
func (t *Translator) body() {
	t.enter("<body>")
	defer t.exit()

	t.expect(parser.BEGIN, "'begin'")
	t.statement()
	for {
		if t.match(parser.SEMICOLON) {
			if t.check(parser.END) {
				// Trailing semicolon before 'end'.
				break
			}
			t.statement()
			continue
		}
		if startsStatement(t.tok().Kind) {
			// A statement follows without a separator, unless error
			// recovery has just consumed it.
			if t.prev.Kind != parser.SEMICOLON {
				t.missingSemicolon()
			}
			t.statement()
			continue
		}
		break
	}
	t.expect(parser.END, "'end'")
}

// <statement> -> <id> := <exp>
//              | if <lexp> then <statement> [else <statement>]
//              | while <lexp> do <statement>
//              | call <id> ( [<exp> {, <exp>}] )
//              | <body>
//              | read ( <id> {, <id>} )
//              | write ( <exp> {, <exp>} )
//              | (empty)
func (t *Translator) statement() {
	t.enter("<statement>")
	defer t.exit()

	switch tok := t.tok(); tok.Kind {
	case parser.ID:
		t.assignment()
	case parser.IF:
		t.ifStatement()
	case parser.WHILE:
		t.whileStatement()
	case parser.CALL:
		t.callStatement()
	case parser.BEGIN:
		t.body()
	case parser.READ:
		t.readStatement()
	case parser.WRITE:
		t.writeStatement()
	case parser.SEMICOLON, parser.END, parser.ELSE, parser.PERIOD, parser.EOF:
		// Empty statement.
	default:
		t.diags.Errorf(tok.Pos, "unexpected token in statement").
			WithSuggestion("expected statement starting with identifier, 'if', 'while', 'call', 'begin', 'read', or 'write'")
		t.synchronize()
	}
}

func (t *Translator) assignment() {
	name := t.tok()
	t.logf("Assignment to: %s", name.Spelling)
	sym, _, ok := t.syms.Lookup(name.Spelling)
	t.advance()

	switch {
	case !ok:
		t.diags.Undeclared(name.Pos, name.Spelling).
			WithSuggestion("declare '%s' with 'var' before use", name.Spelling)
		t.skipAssignment()
		return
	case sym.Kind == symbol.Const:
		t.diags.Errorf(name.Pos, "cannot assign to constant '%s'", name.Spelling).
			WithSuggestion("'%s' was declared as 'const'", name.Spelling)
		t.skipAssignment()
		return
	case sym.Kind == symbol.Procedure:
		t.diags.Errorf(name.Pos, "cannot assign to procedure '%s'", name.Spelling).
			WithSuggestion("did you mean 'call %s(...)'?", name.Spelling)
		t.skipAssignment()
		return
	}

	if t.check(parser.EQ) {
		t.diags.Errorf(t.tok().Pos, "use ':=' for assignment, not '='").
			WithSuggestion("'=' is for comparison, ':=' is for assignment").
			WithFix(":=")
		t.advance()
	} else if !t.expect(parser.ASSIGN, "':='") {
		return
	}
	t.expression()
	t.emit(code.Sto, t.levelDiff(sym), sym.Value)
}

// skipAssignment parses the rest of an invalid assignment without emitting
// code for it.
func (t *Translator) skipAssignment() {
	if t.match(parser.ASSIGN) || t.match(parser.EQ) {
		t.mute++
		t.expression()
		t.mute--
	}
}

func (t *Translator) ifStatement() {
	t.logf("IF statement")
	t.advance()
	t.condition()
	t.expect(parser.THEN, "'then'")

	jpc := t.emit(code.Jpc, 0, 0)
	t.statement()
	if t.match(parser.ELSE) {
		t.logf("ELSE clause")
		jmp := t.emit(code.Jmp, 0, 0)
		t.backpatch(jpc, t.gen.NextAddress())
		t.statement()
		t.backpatch(jmp, t.gen.NextAddress())
	} else {
		t.backpatch(jpc, t.gen.NextAddress())
	}
}

func (t *Translator) whileStatement() {
	t.logf("WHILE loop")
	t.advance()
	loop := t.gen.NextAddress()
	t.condition()
	t.expect(parser.DO, "'do'")

	jpc := t.emit(code.Jpc, 0, 0)
	t.statement()
	t.emit(code.Jmp, 0, loop)
	t.backpatch(jpc, t.gen.NextAddress())
}

// callStatement translates a procedure call.  Arguments are evaluated and
// their values dropped before the call, since procedures do not take
// parameters by value.
func (t *Translator) callStatement() {
	t.logf("CALL statement")
	t.advance()

	var (
		callee symbol.Symbol
		valid  bool
	)
	if t.check(parser.ID) {
		name := t.tok()
		t.logf("Calling: %s", name.Spelling)
		sym, _, ok := t.syms.Lookup(name.Spelling)
		switch {
		case !ok:
			t.diags.Errorf(name.Pos, "call to undeclared procedure '%s'", name.Spelling).
				WithSuggestion("declare procedure before calling it")
		case sym.Kind != symbol.Procedure:
			t.diags.KindMismatch(name.Pos, name.Spelling, "procedure", sym.Kind.String()).
				WithSuggestion("only procedures can be called")
		default:
			callee, valid = sym, true
		}
		t.advance()
	} else {
		t.expected("procedure name")
	}

	if !t.expect(parser.LPAREN, "'('") {
		return
	}
	if !valid {
		t.mute++
		defer func() { t.mute-- }()
	}
	if !t.check(parser.RPAREN) {
		for {
			t.expression()
			// Jpc to the next instruction pops the value whether or not it is zero.
			t.emit(code.Jpc, 0, t.gen.NextAddress()+1)
			if !t.match(parser.COMMA) {
				break
			}
		}
	}
	t.expect(parser.RPAREN, "')'")
	if valid {
		t.emit(code.Cal, t.levelDiff(callee), callee.Value)
	}
}

func (t *Translator) readStatement() {
	t.logf("READ statement")
	t.advance()
	if !t.expect(parser.LPAREN, "'('") {
		return
	}
	for {
		if !t.check(parser.ID) {
			t.expected("identifier")
			break
		}
		name := t.tok()
		t.logf("Reading into: %s", name.Spelling)
		sym, _, ok := t.syms.Lookup(name.Spelling)
		switch {
		case !ok:
			t.diags.Undeclared(name.Pos, name.Spelling)
		case sym.Kind == symbol.Const:
			t.diags.Errorf(name.Pos, "cannot read into constant '%s'", name.Spelling).
				WithSuggestion("'%s' was declared as 'const'", name.Spelling)
		case sym.Kind == symbol.Procedure:
			t.diags.Errorf(name.Pos, "cannot read into procedure '%s'", name.Spelling)
		default:
			t.emit(code.Red, t.levelDiff(sym), sym.Value)
		}
		t.advance()
		if !t.match(parser.COMMA) {
			break
		}
	}
	t.expect(parser.RPAREN, "')'")
}

func (t *Translator) writeStatement() {
	t.logf("WRITE statement")
	t.advance()
	if !t.expect(parser.LPAREN, "'('") {
		return
	}
	for {
		t.expression()
		t.emit(code.Wrt, 0, 0)
		if !t.match(parser.COMMA) {
			break
		}
	}
	t.expect(parser.RPAREN, "')'")
}

var relops = map[parser.Kind]code.OprCode{
	parser.EQ: code.Eq,
	parser.NE: code.Neq,
	parser.LT: code.Lt,
	parser.LE: code.Leq,
	parser.GT: code.Gt,
	parser.GE: code.Geq,
}

// <lexp> -> <exp> <lop> <exp> | odd <exp>
func (t *Translator) condition() {
	t.enter("<condition>")
	defer t.exit()

	if t.match(parser.ODD) {
		t.logf("ODD operator")
		t.expression()
		t.emitOpr(code.Odd)
		return
	}
	t.expression()
	op, ok := relops[t.tok().Kind]
	if !ok {
		t.diags.Errorf(t.tok().Pos, "expected relational operator (=, <>, <, <=, >, >=)").
			WithSuggestion("conditions require a comparison")
		return
	}
	t.logf("Relational operator: %s", t.tok().Spelling)
	t.advance()
	t.expression()
	t.emitOpr(op)
}

// <exp> -> [+|-] <term> { <aop> <term> }
func (t *Translator) expression() {
	t.enter("<expression>")
	defer t.exit()

	negative := false
	if t.match(parser.PLUS) {
		t.logf("Unary +")
	} else if t.match(parser.MINUS) {
		t.logf("Unary -")
		negative = true
	}
	t.term()
	if negative {
		t.emitOpr(code.Neg)
	}
	for t.check(parser.PLUS) || t.check(parser.MINUS) {
		op := t.tok().Kind
		t.logf("Operator: %s", t.tok().Spelling)
		t.advance()
		t.term()
		if op == parser.PLUS {
			t.emitOpr(code.Add)
		} else {
			t.emitOpr(code.Sub)
		}
	}
}

// <term> -> <factor> { <mop> <factor> }
func (t *Translator) term() {
	t.enter("<term>")
	defer t.exit()

	t.factor()
	for t.check(parser.TIMES) || t.check(parser.SLASH) {
		op := t.tok().Kind
		t.logf("Operator: %s", t.tok().Spelling)
		t.advance()
		t.factor()
		if op == parser.TIMES {
			t.emitOpr(code.Mul)
		} else {
			t.emitOpr(code.Div)
		}
	}
}

// <factor> -> <id> | <integer> | ( <exp> )
func (t *Translator) factor() {
	t.enter("<factor>")
	defer t.exit()

	switch tok := t.tok(); tok.Kind {
	case parser.ID:
		t.logf("Identifier: %s", tok.Spelling)
		sym, _, ok := t.syms.Lookup(tok.Spelling)
		switch {
		case !ok:
			t.diags.Undeclared(tok.Pos, tok.Spelling).
				WithSuggestion("declare '%s' before use", tok.Spelling)
		case sym.Kind == symbol.Const:
			t.emit(code.Lit, 0, sym.Value)
		case sym.Kind == symbol.Var:
			t.emit(code.Lod, t.levelDiff(sym), sym.Value)
		default:
			t.diags.Errorf(tok.Pos, "procedure '%s' cannot be used as a value", tok.Spelling).
				WithSuggestion("procedures cannot appear in expressions")
		}
		t.advance()
	case parser.NUMBER:
		value := t.number(tok)
		t.logf("Integer: %d", value)
		t.emit(code.Lit, 0, value)
		t.advance()
	case parser.LPAREN:
		t.logf("( expression )")
		t.advance()
		t.expression()
		t.expect(parser.RPAREN, "')'")
	case parser.EOF:
		t.diags.Errorf(tok.Pos, "unexpected end of file in expression").
			WithSuggestion("expression is incomplete")
	default:
		t.diags.Errorf(tok.Pos, "expected expression (identifier, number, or '(')").
			WithSuggestion("found '%s' which cannot start an expression", tok.Spelling)
	}
}
