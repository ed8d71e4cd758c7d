// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package errors

import (
	"fmt"
	"io"
	"strings"
)

const (
	reset       = "\x1b[0m"
	bold        = "\x1b[1m"
	boldRed     = "\x1b[1;31m"
	boldGreen   = "\x1b[1;32m"
	boldYellow  = "\x1b[1;33m"
	boldMagenta = "\x1b[1;35m"
	boldWhite   = "\x1b[1;37m"
	blue        = "\x1b[34m"
	cyan        = "\x1b[36m"
)

const gutterWidth = 5

// A Renderer prints diagnostics in the style of clang, quoting the offending
// source line with a caret under the span.
type Renderer struct {
	w     io.Writer
	lines []string
	color bool
}

// NewRenderer returns a Renderer that writes to w, quoting lines from source.
func NewRenderer(w io.Writer, source string, color bool) *Renderer {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &Renderer{w: w, lines: lines, color: color}
}

func (r *Renderer) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + reset
}

func (r *Renderer) severityColor(s Severity) string {
	switch s {
	case Error:
		return boldRed
	case Warning:
		return boldMagenta
	}
	return bold
}

// Render writes one diagnostic.
func (r *Renderer) Render(d *Diagnostic) {
	fmt.Fprintf(r.w, "%s %s %s\n",
		r.paint(boldWhite, d.Pos.String()+":"),
		r.paint(r.severityColor(d.Severity), d.Severity.String()+":"),
		r.paint(boldWhite, d.Msg))

	margin := strings.Repeat(" ", gutterWidth) + r.paint(blue, " | ")
	if d.Pos.Line >= 0 && d.Pos.Line < len(r.lines) {
		src := r.lines[d.Pos.Line]
		fmt.Fprintf(r.w, "%s%s\n", r.paint(blue, fmt.Sprintf("%*d | ", gutterWidth, d.Pos.Line+1)), expandTabs(src))
		fmt.Fprintf(r.w, "%s%s%s\n", margin, strings.Repeat(" ", visualColumn(src, d.Pos.Startcol)),
			r.paint(boldGreen, "^"+strings.Repeat("~", d.Pos.Length()-1)))
	}
	if d.Suggestion != "" {
		fmt.Fprintf(r.w, "%s%s%s\n", margin, r.paint(boldGreen, "help: "), d.Suggestion)
	}
	if d.Fix != "" {
		fmt.Fprintf(r.w, "%s%s%s\n", margin, r.paint(cyan, "try: "), r.paint(bold, d.Fix))
	}
	fmt.Fprintln(r.w)
}

// RenderAll writes every diagnostic in d followed by the summary line.
func (r *Renderer) RenderAll(d *Diagnostics) {
	for _, diag := range d.List() {
		r.Render(diag)
	}
	if d.errors == 0 && d.warnings == 0 {
		return
	}
	var parts []string
	if d.errors > 0 {
		parts = append(parts, r.paint(boldRed, plural(d.errors, "error")))
	}
	if d.warnings > 0 {
		parts = append(parts, r.paint(boldYellow, plural(d.warnings, "warning")))
	}
	fmt.Fprintf(r.w, "%s generated.\n", strings.Join(parts, " and "))
}

func expandTabs(s string) string {
	return strings.Replace(s, "\t", "    ", -1)
}

// visualColumn converts a rune column in s into a display column, counting
// tabs as four spaces.
func visualColumn(s string, col int) int {
	v := 0
	i := 0
	for _, c := range s {
		if i >= col {
			break
		}
		if c == '\t' {
			v += 4
		} else {
			v++
		}
		i++
	}
	return v
}
