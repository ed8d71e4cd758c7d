// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symbol

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteListing writes a table of syms to w, one per line.
func WriteListing(w io.Writer, syms []Symbol) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tKind\tLevel\tValue/Addr\tDeclared")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.Name, s.Kind, s.Level, s.Value, s.Pos)
	}
	return tw.Flush()
}
