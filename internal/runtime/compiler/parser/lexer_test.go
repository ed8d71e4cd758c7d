// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser_test

import (
	"strings"
	"testing"

	"github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/position"
	"github.com/google/pl0/internal/testutil"
)

type lexerTest struct {
	name   string
	input  string
	tokens []parser.Token
}

var lexerTests = []lexerTest{
	{"empty", "", []parser.Token{
		{parser.EOF, "", position.Position{Filename: "empty", Line: 0, Startcol: 0, Endcol: 0}}}},
	{"spaces", " \t", []parser.Token{
		{parser.EOF, "", position.Position{Filename: "spaces", Line: 0, Startcol: 2, Endcol: 2}}}},
	{"newlines", "a\n  b", []parser.Token{
		{parser.ID, "a", position.Position{Filename: "newlines", Line: 0, Startcol: 0, Endcol: 0}},
		{parser.ID, "b", position.Position{Filename: "newlines", Line: 1, Startcol: 2, Endcol: 2}},
		{parser.EOF, "", position.Position{Filename: "newlines", Line: 1, Startcol: 3, Endcol: 3}}}},
	{"header", "program p;", []parser.Token{
		{parser.PROGRAM, "program", position.Position{Filename: "header", Line: 0, Startcol: 0, Endcol: 6}},
		{parser.ID, "p", position.Position{Filename: "header", Line: 0, Startcol: 8, Endcol: 8}},
		{parser.SEMICOLON, ";", position.Position{Filename: "header", Line: 0, Startcol: 9, Endcol: 9}},
		{parser.EOF, "", position.Position{Filename: "header", Line: 0, Startcol: 10, Endcol: 10}}}},
	{"delimiters", "(),;.", []parser.Token{
		{parser.LPAREN, "(", position.Position{Filename: "delimiters", Line: 0, Startcol: 0, Endcol: 0}},
		{parser.RPAREN, ")", position.Position{Filename: "delimiters", Line: 0, Startcol: 1, Endcol: 1}},
		{parser.COMMA, ",", position.Position{Filename: "delimiters", Line: 0, Startcol: 2, Endcol: 2}},
		{parser.SEMICOLON, ";", position.Position{Filename: "delimiters", Line: 0, Startcol: 3, Endcol: 3}},
		{parser.PERIOD, ".", position.Position{Filename: "delimiters", Line: 0, Startcol: 4, Endcol: 4}},
		{parser.EOF, "", position.Position{Filename: "delimiters", Line: 0, Startcol: 5, Endcol: 5}}}},
	{"operators", ":= = <> < <= > >= + - * /", []parser.Token{
		{parser.ASSIGN, ":=", position.Position{Filename: "operators", Line: 0, Startcol: 0, Endcol: 1}},
		{parser.EQ, "=", position.Position{Filename: "operators", Line: 0, Startcol: 3, Endcol: 3}},
		{parser.NE, "<>", position.Position{Filename: "operators", Line: 0, Startcol: 5, Endcol: 6}},
		{parser.LT, "<", position.Position{Filename: "operators", Line: 0, Startcol: 8, Endcol: 8}},
		{parser.LE, "<=", position.Position{Filename: "operators", Line: 0, Startcol: 10, Endcol: 11}},
		{parser.GT, ">", position.Position{Filename: "operators", Line: 0, Startcol: 13, Endcol: 13}},
		{parser.GE, ">=", position.Position{Filename: "operators", Line: 0, Startcol: 15, Endcol: 16}},
		{parser.PLUS, "+", position.Position{Filename: "operators", Line: 0, Startcol: 18, Endcol: 18}},
		{parser.MINUS, "-", position.Position{Filename: "operators", Line: 0, Startcol: 20, Endcol: 20}},
		{parser.TIMES, "*", position.Position{Filename: "operators", Line: 0, Startcol: 22, Endcol: 22}},
		{parser.SLASH, "/", position.Position{Filename: "operators", Line: 0, Startcol: 24, Endcol: 24}},
		{parser.EOF, "", position.Position{Filename: "operators", Line: 0, Startcol: 25, Endcol: 25}}}},
	{"keywords are case insensitive", "BEGIN End wHiLe", []parser.Token{
		{parser.BEGIN, "BEGIN", position.Position{Filename: "keywords are case insensitive", Line: 0, Startcol: 0, Endcol: 4}},
		{parser.END, "End", position.Position{Filename: "keywords are case insensitive", Line: 0, Startcol: 6, Endcol: 8}},
		{parser.WHILE, "wHiLe", position.Position{Filename: "keywords are case insensitive", Line: 0, Startcol: 10, Endcol: 14}},
		{parser.EOF, "", position.Position{Filename: "keywords are case insensitive", Line: 0, Startcol: 15, Endcol: 15}}}},
	{"identifiers", "x1 a_b Odd2", []parser.Token{
		{parser.ID, "x1", position.Position{Filename: "identifiers", Line: 0, Startcol: 0, Endcol: 1}},
		{parser.ID, "a_b", position.Position{Filename: "identifiers", Line: 0, Startcol: 3, Endcol: 5}},
		{parser.ID, "Odd2", position.Position{Filename: "identifiers", Line: 0, Startcol: 7, Endcol: 10}},
		{parser.EOF, "", position.Position{Filename: "identifiers", Line: 0, Startcol: 11, Endcol: 11}}}},
	{"numbers", "42 007", []parser.Token{
		{parser.NUMBER, "42", position.Position{Filename: "numbers", Line: 0, Startcol: 0, Endcol: 1}},
		{parser.NUMBER, "007", position.Position{Filename: "numbers", Line: 0, Startcol: 3, Endcol: 5}},
		{parser.EOF, "", position.Position{Filename: "numbers", Line: 0, Startcol: 6, Endcol: 6}}}},
	{"assignment", "x:=x-1", []parser.Token{
		{parser.ID, "x", position.Position{Filename: "assignment", Line: 0, Startcol: 0, Endcol: 0}},
		{parser.ASSIGN, ":=", position.Position{Filename: "assignment", Line: 0, Startcol: 1, Endcol: 2}},
		{parser.ID, "x", position.Position{Filename: "assignment", Line: 0, Startcol: 3, Endcol: 3}},
		{parser.MINUS, "-", position.Position{Filename: "assignment", Line: 0, Startcol: 4, Endcol: 4}},
		{parser.NUMBER, "1", position.Position{Filename: "assignment", Line: 0, Startcol: 5, Endcol: 5}},
		{parser.EOF, "", position.Position{Filename: "assignment", Line: 0, Startcol: 6, Endcol: 6}}}},
}

func TestLex(t *testing.T) {
	for _, tc := range lexerTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			diags := &errors.Diagnostics{}
			tokens := parser.Tokenize(tc.name, strings.NewReader(tc.input), diags)
			testutil.ExpectNoDiff(t, tc.tokens, tokens)
			if diags.ErrorCount() != 0 {
				t.Errorf("unexpected errors: %v", diags.Err())
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	for _, tc := range []struct {
		name      string
		input     string
		kinds     []parser.Kind
		msgs      []string
		fix       string
		errCount  int
		warnCount int
	}{
		{"lone colon", "x : 1",
			[]parser.Kind{parser.ID, parser.INVALID, parser.NUMBER, parser.EOF},
			[]string{"unexpected ':' - did you mean ':='?"}, ":=", 1, 0},
		{"c style not equal", "a != b",
			[]parser.Kind{parser.ID, parser.INVALID, parser.ID, parser.EOF},
			[]string{"'!=' is not valid in PL/0"}, "<>", 1, 0},
		{"lone bang", "!",
			[]parser.Kind{parser.INVALID, parser.EOF},
			[]string{"unexpected character '!'"}, "", 1, 0},
		{"logical and", "a && b",
			[]parser.Kind{parser.ID, parser.INVALID, parser.ID, parser.EOF},
			[]string{"'&&' is not valid in PL/0"}, "", 1, 0},
		{"bitwise or", "a|b",
			[]parser.Kind{parser.ID, parser.INVALID, parser.ID, parser.EOF},
			[]string{"'|' is not valid in PL/0"}, "", 1, 0},
		{"underscore identifier", "_foo",
			[]parser.Kind{parser.INVALID, parser.EOF},
			[]string{"identifier cannot start with underscore"}, "", 1, 0},
		{"digit identifier", "1abc := 2",
			[]parser.Kind{parser.INVALID, parser.ASSIGN, parser.NUMBER, parser.EOF},
			[]string{"invalid identifier '1abc'"}, "", 1, 0},
		{"braces", "{ }",
			[]parser.Kind{parser.INVALID, parser.INVALID, parser.EOF},
			[]string{"unexpected character '{'", "unexpected character '}'"}, "", 2, 0},
		{"run of junk", "@#$ x",
			[]parser.Kind{parser.INVALID, parser.ID, parser.EOF},
			[]string{"unexpected character '@#$'"}, "", 1, 0},
		{"non ascii", "x := é",
			[]parser.Kind{parser.ID, parser.ASSIGN, parser.INVALID, parser.EOF},
			[]string{"invalid character(s) 'é'"}, "", 1, 0},
		{"large literal", "99999999999",
			[]parser.Kind{parser.NUMBER, parser.EOF},
			[]string{"integer literal is too large"}, "", 0, 1},
		{"literal overflow", "99999999999999999999999",
			[]parser.Kind{parser.NUMBER, parser.EOF},
			[]string{"integer literal overflow"}, "", 1, 0},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			diags := &errors.Diagnostics{}
			tokens := parser.Tokenize(tc.name, strings.NewReader(tc.input), diags)
			var kinds []parser.Kind
			for _, tok := range tokens {
				kinds = append(kinds, tok.Kind)
			}
			testutil.ExpectNoDiff(t, tc.kinds, kinds)

			var msgs []string
			for _, d := range diags.List() {
				msgs = append(msgs, d.Msg)
			}
			testutil.ExpectNoDiff(t, tc.msgs, msgs)
			if tc.fix != "" && diags.List()[0].Fix != tc.fix {
				t.Errorf("fix = %q, want %q", diags.List()[0].Fix, tc.fix)
			}
			if diags.ErrorCount() != tc.errCount || diags.WarningCount() != tc.warnCount {
				t.Errorf("counts = %d errors, %d warnings; want %d, %d",
					diags.ErrorCount(), diags.WarningCount(), tc.errCount, tc.warnCount)
			}
		})
	}
}

func TestInvalidTokenSpan(t *testing.T) {
	diags := &errors.Diagnostics{}
	tokens := parser.Tokenize("span", strings.NewReader("  1abc"), diags)
	want := parser.Token{Kind: parser.INVALID, Spelling: "1abc", Pos: position.Position{Filename: "span", Line: 0, Startcol: 2, Endcol: 5}}
	testutil.ExpectNoDiff(t, want, tokens[0])
	testutil.ExpectNoDiff(t, 4, diags.List()[0].Pos.Length())
}

func TestNextTokenAfterEOF(t *testing.T) {
	l := parser.NewLexer("eof", strings.NewReader("x"), nil)
	for _, want := range []parser.Kind{parser.ID, parser.EOF, parser.EOF} {
		if got := l.NextToken().Kind; got != want {
			t.Errorf("NextToken() = %s, want %s", got, want)
		}
	}
}

func TestWriteTokens(t *testing.T) {
	var b strings.Builder
	toks := parser.Tokenize("w", strings.NewReader("x := 1"), nil)
	testutil.FatalIfErr(t, parser.WriteTokens(&b, toks))
	want := `Line:Col  Kind    Spelling
1:1       ID      "x"
1:3       ASSIGN  ":="
1:6       NUMBER  "1"
1:7       EOF     ""
`
	testutil.ExpectNoDiff(t, want, b.String())
}
