// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"fmt"

	"github.com/google/pl0/internal/runtime/compiler/position"
)

// Kind enumerates the types of lexical tokens in a PL/0 program.
type Kind int

const (
	INVALID Kind = iota // A lexical error; the diagnostic has already been reported.
	EOF                 // End of input.

	// Keywords.
	PROGRAM
	CONST
	VAR
	PROCEDURE
	BEGIN
	END
	IF
	THEN
	ELSE
	WHILE
	DO
	CALL
	READ
	WRITE
	ODD

	ID     // Identifier.
	NUMBER // Unsigned integer literal.

	// Arithmetic operators.
	PLUS
	MINUS
	TIMES
	SLASH

	// Relational operators.
	EQ
	NE
	LT
	LE
	GT
	GE

	ASSIGN // :=

	// Delimiters.
	LPAREN
	RPAREN
	COMMA
	SEMICOLON
	PERIOD
)

var kindNames = [...]string{
	INVALID:   "INVALID",
	EOF:       "EOF",
	PROGRAM:   "PROGRAM",
	CONST:     "CONST",
	VAR:       "VAR",
	PROCEDURE: "PROCEDURE",
	BEGIN:     "BEGIN",
	END:       "END",
	IF:        "IF",
	THEN:      "THEN",
	ELSE:      "ELSE",
	WHILE:     "WHILE",
	DO:        "DO",
	CALL:      "CALL",
	READ:      "READ",
	WRITE:     "WRITE",
	ODD:       "ODD",
	ID:        "ID",
	NUMBER:    "NUMBER",
	PLUS:      "PLUS",
	MINUS:     "MINUS",
	TIMES:     "TIMES",
	SLASH:     "SLASH",
	EQ:        "EQ",
	NE:        "NE",
	LT:        "LT",
	LE:        "LE",
	GT:        "GT",
	GE:        "GE",
	ASSIGN:    "ASSIGN",
	LPAREN:    "LPAREN",
	RPAREN:    "RPAREN",
	COMMA:     "COMMA",
	SEMICOLON: "SEMICOLON",
	PERIOD:    "PERIOD",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= PROGRAM && k <= ODD
}

// Token describes a lexed Token from the input, containing its type, the
// original text of the Token, and its position in the input.
type Token struct {
	Kind     Kind
	Spelling string
	Pos      position.Position
}

// String returns a printable form of a Token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q,%s)", t.Kind, t.Spelling, t.Pos)
}
