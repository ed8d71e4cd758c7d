// Copyright 2018 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package code

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Disassemble writes a listing of the program in o to w, one instruction per
// line with its address, operation, level, operand and a comment.
func Disassemble(w io.Writer, o *Object) error {
	fmt.Fprintf(w, "Code for %s\n", o.Name)
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "Addr\tOP\tL\tA\tComment")
	for addr, i := range o.Program {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", addr, i.Opcode, i.Level, i.Operand, i.Comment())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, strings.Repeat("-", 40))
	return err
}
