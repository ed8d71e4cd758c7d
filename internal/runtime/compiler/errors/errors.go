// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package errors collects the diagnostics produced while compiling a program.
package errors

import (
	"fmt"

	"github.com/google/pl0/internal/runtime/compiler/position"
	"github.com/pkg/errors"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Diagnostic is a single message about the program being compiled.
type Diagnostic struct {
	Severity   Severity
	Pos        position.Position
	Msg        string
	Suggestion string // Human readable hint, printed after "help:".
	Fix        string // Replacement text for the span, printed after "try:".
}

func (d *Diagnostic) Error() string {
	return d.Pos.String() + ": " + d.Msg
}

// WithSuggestion attaches a hint to d and returns it.
func (d *Diagnostic) WithSuggestion(format string, args ...interface{}) *Diagnostic {
	d.Suggestion = fmt.Sprintf(format, args...)
	return d
}

// WithFix attaches replacement text to d and returns it.
func (d *Diagnostic) WithFix(fix string) *Diagnostic {
	d.Fix = fix
	return d
}

// ErrorList contains a list of compile errors.
type ErrorList []*Diagnostic

// Add appends an error at a position to the list of errors.
func (p *ErrorList) Add(pos *position.Position, msg string) {
	if pos == nil {
		pos = &position.Position{}
	}
	*p = append(*p, &Diagnostic{Severity: Error, Pos: *pos, Msg: msg})
}

// Append puts an ErrorList on the end of this ErrorList.
func (p *ErrorList) Append(l ErrorList) {
	*p = append(*p, l...)
}

// ErrorList implements the error interface.
func (p ErrorList) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	var r string
	for _, e := range p {
		r += fmt.Sprintf("%s\n", e)
	}
	return r[:len(r)-1]
}

// Diagnostics accumulates every diagnostic for one compilation.  One
// Diagnostics is shared by the lexer and the translator; it is not safe for
// concurrent use.
type Diagnostics struct {
	list     ErrorList
	errors   int
	warnings int
}

// Report records d and updates the error and warning counts.
func (d *Diagnostics) Report(diag *Diagnostic) *Diagnostic {
	d.list = append(d.list, diag)
	switch diag.Severity {
	case Error:
		d.errors++
	case Warning:
		d.warnings++
	}
	return diag
}

// Errorf reports an error at pos.
func (d *Diagnostics) Errorf(pos position.Position, format string, args ...interface{}) *Diagnostic {
	return d.Report(&Diagnostic{Severity: Error, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Warningf reports a warning at pos.
func (d *Diagnostics) Warningf(pos position.Position, format string, args ...interface{}) *Diagnostic {
	return d.Report(&Diagnostic{Severity: Warning, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Notef reports a note at pos.  Notes do not affect the counts.
func (d *Diagnostics) Notef(pos position.Position, format string, args ...interface{}) *Diagnostic {
	return d.Report(&Diagnostic{Severity: Note, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// Expected reports that the token found at pos is not the one the grammar
// requires.  An empty found means the end of the input was reached.
func (d *Diagnostics) Expected(pos position.Position, expected, found string) *Diagnostic {
	if found == "" {
		found = "end of file"
	} else {
		found = "'" + found + "'"
	}
	return d.Errorf(pos, "expected %s, found %s", expected, found)
}

// Undeclared reports a use of name that resolves to no symbol.
func (d *Diagnostics) Undeclared(pos position.Position, name string) *Diagnostic {
	return d.Errorf(pos, "use of undeclared identifier '%s'", name).
		WithSuggestion("declare '%s' before use with 'var' or 'const'", name)
}

// Redeclared reports a second declaration of name in one scope.
func (d *Diagnostics) Redeclared(pos position.Position, name string) *Diagnostic {
	return d.Errorf(pos, "redefinition of '%s'", name).
		WithSuggestion("'%s' was already declared in this scope", name)
}

// KindMismatch reports that name is declared as got but used as want.
func (d *Diagnostics) KindMismatch(pos position.Position, name, want, got string) *Diagnostic {
	return d.Errorf(pos, "'%s' is a %s, not a %s", name, got, want)
}

// ErrorCount returns the number of errors reported.
func (d *Diagnostics) ErrorCount() int { return d.errors }

// WarningCount returns the number of warnings reported.
func (d *Diagnostics) WarningCount() int { return d.warnings }

// HasErrors reports whether any error has been reported.
func (d *Diagnostics) HasErrors() bool { return d.errors > 0 }

// List returns every diagnostic in the order reported.
func (d *Diagnostics) List() ErrorList {
	l := make(ErrorList, len(d.list))
	copy(l, d.list)
	return l
}

// Err returns an ErrorList holding only the errors, or nil if there were none.
func (d *Diagnostics) Err() error {
	if d.errors == 0 {
		return nil
	}
	var l ErrorList
	for _, e := range d.list {
		if e.Severity == Error {
			l = append(l, e)
		}
	}
	return l
}

// Summary returns the clang-style count line, or the empty string if nothing
// was reported.
func (d *Diagnostics) Summary() string {
	var s string
	if d.errors > 0 {
		s = plural(d.errors, "error")
	}
	if d.errors > 0 && d.warnings > 0 {
		s += " and "
	}
	if d.warnings > 0 {
		s += plural(d.warnings, "warning")
	}
	if s == "" {
		return ""
	}
	return s + " generated."
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Errorf returns a new error, recording the stack.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
