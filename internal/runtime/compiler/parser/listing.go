// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteTokens writes a table of toks to w, one token per line with its
// one-based line and column.
func WriteTokens(w io.Writer, toks []Token) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Line:Col\tKind\tSpelling")
	for _, t := range toks {
		fmt.Fprintf(tw, "%d:%d\t%s\t%q\n", t.Pos.Line+1, t.Pos.Startcol+1, t.Kind, t.Spelling)
	}
	return tw.Flush()
}
