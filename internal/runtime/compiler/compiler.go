// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package compiler turns PL/0 source into an Object.
package compiler

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/code"
	"github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/symbol"
	"github.com/google/pl0/internal/runtime/compiler/translator"
	pkgerrors "github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Compiler compiles programs.  A Compiler may be reused; each call to
// Compile is independent.
type Compiler struct {
	parseTree io.Writer
	lexOnly   bool
}

// Option configures a Compiler.
type Option func(*Compiler) error

// EmitParseTree writes the trace of grammar rules of every compilation to w.
func EmitParseTree(w io.Writer) Option {
	return func(c *Compiler) error {
		c.parseTree = w
		return nil
	}
}

// LexOnly stops each compilation after lexical analysis.  The Result has
// tokens and diagnostics but no symbols or Object.
func LexOnly() Option {
	return func(c *Compiler) error {
		c.lexOnly = true
		return nil
	}
}

// New creates a Compiler with the given options.
func New(options ...Option) (*Compiler, error) {
	c := &Compiler{}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Result holds everything produced by one compilation, whether or not it
// succeeded.
type Result struct {
	Name        string
	Source      string
	Tokens      []parser.Token
	Symbols     []symbol.Symbol
	Diagnostics *errors.Diagnostics
	Object      *code.Object // nil if there were errors
}

// Compile compiles a program read from input.  The Result is returned even
// when the program has errors, in which case the error is the
// errors.ErrorList of those errors.  A nil Result means input could not be
// read.
func (c *Compiler) Compile(ctx context.Context, name string, input io.Reader) (*Result, error) {
	_, span := trace.StartSpan(ctx, "compiler.Compile")
	defer span.End()

	name = filepath.Base(name)
	src, err := ioutil.ReadAll(input)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading %s", name)
	}

	r := &Result{Name: name, Source: string(src), Diagnostics: &errors.Diagnostics{}}
	r.Tokens = parser.Tokenize(name, bytes.NewReader(src), r.Diagnostics)
	if c.lexOnly {
		glog.V(1).Infof("%s: lexed %d tokens", name, len(r.Tokens))
		return r, r.Diagnostics.Err()
	}

	var opts []translator.Option
	if c.parseTree != nil {
		opts = append(opts, translator.TraceTo(c.parseTree))
	}
	t := translator.New(r.Tokens, r.Diagnostics, opts...)
	ok := t.Translate()
	r.Symbols = t.Symbols()
	span.AddAttributes(
		trace.Int64Attribute("errors", int64(r.Diagnostics.ErrorCount())),
		trace.Int64Attribute("warnings", int64(r.Diagnostics.WarningCount())))
	if !ok {
		glog.V(1).Infof("%s: %d errors", name, r.Diagnostics.ErrorCount())
		return r, r.Diagnostics.Err()
	}
	r.Object = &code.Object{Name: name, Program: t.Program()}
	glog.V(1).Infof("%s: compiled %d instructions", name, len(r.Object.Program))
	return r, nil
}
