// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package parser contains the PL/0 lexer.
package parser

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/position"
)

// List of keywords.  Keep this list sorted!
var keywords = map[string]Kind{
	"begin":     BEGIN,
	"call":      CALL,
	"const":     CONST,
	"do":        DO,
	"else":      ELSE,
	"end":       END,
	"if":        IF,
	"odd":       ODD,
	"procedure": PROCEDURE,
	"program":   PROGRAM,
	"read":      READ,
	"then":      THEN,
	"var":       VAR,
	"while":     WHILE,
	"write":     WRITE,
}

// A stateFn represents each state the scanner can be in.
type stateFn func(*Lexer) stateFn

// A Lexer holds the state of the scanner.
type Lexer struct {
	name  string        // Name of program.
	input *bufio.Reader // Source program
	state stateFn       // Current state function of the lexer.
	diags *errors.Diagnostics

	// The "read cursor" in the input.
	rune  rune // The current rune.
	width int  // Width in columns.
	line  int  // The line position of the current rune.
	col   int  // The column position of the current rune.

	// The currently being lexed token.
	startcol int             // Starting column of the current token.
	text     strings.Builder // the text of the current token

	tokens chan Token // Output channel for tokens emitted.
}

// NewLexer creates a new scanner that reads the input provided.  Lexical
// errors are reported to diags, which may be nil.
func NewLexer(name string, input io.Reader, diags *errors.Diagnostics) *Lexer {
	if diags == nil {
		diags = &errors.Diagnostics{}
	}
	return &Lexer{
		name:   name,
		input:  bufio.NewReader(input),
		state:  lexProg,
		diags:  diags,
		tokens: make(chan Token, 2),
	}
}

// NextToken returns the next token in the input.  When no token is available
// to be returned it executes the next action in the state machine.  After EOF
// has been returned, further calls return EOF again.
func (l *Lexer) NextToken() Token {
	for {
		select {
		case tok := <-l.tokens:
			return tok
		default:
			if l.state == nil {
				return Token{Kind: EOF, Pos: l.pos()}
			}
			l.state = l.state(l)
		}
	}
}

// Tokenize runs a Lexer over input to completion and returns every token,
// ending with EOF.
func Tokenize(name string, input io.Reader, diags *errors.Diagnostics) []Token {
	l := NewLexer(name, input, diags)
	var toks []Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Kind == EOF {
			return toks
		}
	}
}

func (l *Lexer) pos() position.Position {
	return position.Position{Filename: l.name, Line: l.line, Startcol: l.startcol, Endcol: l.col - 1}
}

// emit passes a token to the client.
func (l *Lexer) emit(kind Kind) {
	pos := l.pos()
	glog.V(2).Infof("Emitting %v spelled %q at %v", kind, l.text.String(), pos)
	l.tokens <- Token{kind, l.text.String(), pos}
	// Reset the current token
	l.text.Reset()
	l.startcol = l.col
}

// Internal end of file value.
const eof rune = -1

// next returns the next rune in the input.
func (l *Lexer) next() rune {
	var err error
	l.rune, _, err = l.input.ReadRune()
	l.width = 1
	if err != nil {
		if err != io.EOF {
			glog.Info(err)
		}
		l.rune = eof
	}
	return l.rune
}

// backup indicates that we haven't yet dealt with the next rune. Use when
// terminating tokens on unknown runes.
func (l *Lexer) backup() {
	l.width = 0
	if l.rune == eof {
		return
	}
	if err := l.input.UnreadRune(); err != nil {
		glog.Info(err)
	}
}

// stepCursor moves the read cursor.
func (l *Lexer) stepCursor() {
	if l.rune == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col += l.width
	}
}

// accept accepts the current rune and its position into the current token.
func (l *Lexer) accept() {
	l.text.WriteRune(l.rune)
	l.stepCursor()
}

// skip does not accept the current rune into the current token's text, but
// does accept its position into the token. Use only at the start or end of a
// token.
func (l *Lexer) skip() {
	l.stepCursor()
}

// ignore skips over the current rune, removing it from the text of the token,
// and resetting the start position of the current token. Use only between
// tokens.
func (l *Lexer) ignore() {
	l.stepCursor()
	l.startcol = l.col
}

// errorf reports a diagnostic spanning the current token, emits it as an
// INVALID token, and resets the scanner.
func (l *Lexer) errorf(format string, args ...interface{}) *errors.Diagnostic {
	d := l.diags.Errorf(l.pos(), format, args...)
	l.emit(INVALID)
	return d
}

// State functions.

// lexProg starts lexing a program.
func lexProg(l *Lexer) stateFn {
	switch r := l.next(); {
	case isSpace(r):
		l.ignore()
	case r == '(':
		l.accept()
		l.emit(LPAREN)
	case r == ')':
		l.accept()
		l.emit(RPAREN)
	case r == ',':
		l.accept()
		l.emit(COMMA)
	case r == ';':
		l.accept()
		l.emit(SEMICOLON)
	case r == '.':
		l.accept()
		l.emit(PERIOD)
	case r == '+':
		l.accept()
		l.emit(PLUS)
	case r == '-':
		l.accept()
		l.emit(MINUS)
	case r == '*':
		l.accept()
		l.emit(TIMES)
	case r == '/':
		l.accept()
		l.emit(SLASH)
	case r == '=':
		l.accept()
		l.emit(EQ)
	case r == '<':
		l.accept()
		switch l.next() {
		case '=':
			l.accept()
			l.emit(LE)
		case '>':
			l.accept()
			l.emit(NE)
		default:
			l.backup()
			l.emit(LT)
		}
	case r == '>':
		l.accept()
		switch l.next() {
		case '=':
			l.accept()
			l.emit(GE)
		default:
			l.backup()
			l.emit(GT)
		}
	case r == ':':
		l.accept()
		if l.next() == '=' {
			l.accept()
			l.emit(ASSIGN)
			break
		}
		l.backup()
		l.errorf("unexpected ':' - did you mean ':='?").
			WithSuggestion("use ':=' for assignment").
			WithFix(":=")
	case r == '!':
		l.accept()
		if l.next() == '=' {
			l.accept()
			l.errorf("'!=' is not valid in PL/0").
				WithSuggestion("use '<>' for not-equal comparison").
				WithFix("<>")
			break
		}
		l.backup()
		l.errorf("unexpected character '!'")
	case r == '&' || r == '|':
		l.accept()
		if l.next() == r {
			l.accept()
		} else {
			l.backup()
		}
		l.errorf("'%s' is not valid in PL/0", l.text.String()).
			WithSuggestion("PL/0 does not have logical operators")
	case isDigit(r):
		l.accept()
		return lexNumber
	case isAlpha(r) || r == '_':
		l.accept()
		return lexIdentifier
	case r == eof:
		l.skip()
		l.emit(EOF)
		// Stop the machine, we're done.
		return nil
	default:
		l.accept()
		return lexInvalid
	}
	return lexProg
}

// lexIdentifier lexes an identifier or keyword.  The first rune has already
// been accepted.
func lexIdentifier(l *Lexer) stateFn {
	for {
		r := l.next()
		if !isAlnum(r) && r != '_' {
			l.backup()
			break
		}
		l.accept()
	}
	text := l.text.String()
	if strings.HasPrefix(text, "_") {
		l.errorf("identifier cannot start with underscore").
			WithSuggestion("identifiers must start with a letter")
		return lexProg
	}
	if k, ok := keywords[strings.ToLower(text)]; ok {
		l.emit(k)
	} else {
		l.emit(ID)
	}
	return lexProg
}

// lexNumber lexes an unsigned integer literal.  The first digit has already
// been accepted.
func lexNumber(l *Lexer) stateFn {
	for {
		r := l.next()
		if isDigit(r) {
			l.accept()
			continue
		}
		if isAlpha(r) || r == '_' {
			// A digit run followed by letters is a malformed identifier.
			l.accept()
			for r = l.next(); isAlnum(r) || r == '_'; r = l.next() {
				l.accept()
			}
			l.backup()
			l.errorf("invalid identifier '%s'", l.text.String()).
				WithSuggestion("identifiers cannot start with a digit")
			return lexProg
		}
		l.backup()
		break
	}
	n, err := strconv.ParseInt(l.text.String(), 10, strconv.IntSize)
	switch {
	case err != nil:
		l.diags.Errorf(l.pos(), "integer literal overflow").
			WithSuggestion("maximum value is %d", math.MaxInt64)
	case n > math.MaxInt32:
		l.diags.Warningf(l.pos(), "integer literal is too large").
			WithSuggestion("maximum portable value is %d", math.MaxInt32)
	}
	l.emit(NUMBER)
	return lexProg
}

// lexInvalid collects a run of characters that cannot start a token.  The
// first has already been accepted.
func lexInvalid(l *Lexer) stateFn {
	for {
		r := l.next()
		if r == eof || isSpace(r) || isTokenStart(r) {
			l.backup()
			break
		}
		l.accept()
	}
	text := l.text.String()
	for _, r := range text {
		if r > unicode.MaxASCII {
			l.errorf("invalid character(s) '%s'", text).
				WithSuggestion("PL/0 only supports ASCII characters")
			return lexProg
		}
	}
	d := l.errorf("unexpected character '%s'", text)
	switch text {
	case "{", "}":
		d.WithSuggestion("use 'begin' and 'end' for blocks in PL/0")
	case "[", "]":
		d.WithSuggestion("PL/0 does not support arrays")
	case `"`, "'":
		d.WithSuggestion("PL/0 does not support string literals")
	}
	return lexProg
}

// Helper predicates.

// isAlpha reports whether r is an ASCII letter.
func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isDigit reports whether r is an ASCII digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnum(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

// isSpace reports whether r is whitespace.
func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// isTokenStart reports whether r can begin a valid token, ending a run of
// invalid characters.
func isTokenStart(r rune) bool {
	return isAlnum(r) || strings.ContainsRune("+-*/(),;=<>:._!&|", r)
}
