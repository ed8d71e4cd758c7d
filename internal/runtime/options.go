// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"bufio"
	"io"

	"github.com/google/pl0/internal/runtime/vm"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a new program Runtime.
type Option func(*Runtime) error

// CompileOnly sets the Runtime to compile programs only, without executing them.
func CompileOnly() Option {
	return func(r *Runtime) error {
		r.compileOnly = true
		return nil
	}
}

// DumpSource instructs the Runtime to print the numbered program source
// before compilation.
func DumpSource() Option {
	return func(r *Runtime) error {
		r.dumpSource = true
		return nil
	}
}

// DumpTokens instructs the Runtime to print the token stream after lexing.
func DumpTokens() Option {
	return func(r *Runtime) error {
		r.dumpTokens = true
		return nil
	}
}

// DumpSymbols instructs the Runtime to print every symbol declared by the
// program.
func DumpSymbols() Option {
	return func(r *Runtime) error {
		r.dumpSymbols = true
		return nil
	}
}

// DumpBytecode instructs the Runtime to print the compiled bytecode after code generation.
func DumpBytecode() Option {
	return func(r *Runtime) error {
		r.dumpBytecode = true
		return nil
	}
}

// DumpParseTree instructs the Runtime to print the grammar rules entered
// while translating.
func DumpParseTree() Option {
	return func(r *Runtime) error {
		r.dumpParseTree = true
		return nil
	}
}

// LexerOnly stops each compilation after lexical analysis and prints the
// tokens.  Programs are not run.
func LexerOnly() Option {
	return func(r *Runtime) error {
		r.lexerOnly = true
		r.dumpTokens = true
		return nil
	}
}

// ParseOnly stops each compilation after translation and prints the parse
// tree.  No code is listed, saved or run.
func ParseOnly() Option {
	return func(r *Runtime) error {
		r.parseOnly = true
		r.dumpParseTree = true
		return nil
	}
}

// Verbose makes the Runtime report each compile and run on its output.
func Verbose() Option {
	return func(r *Runtime) error {
		r.verbose = true
		return nil
	}
}

// StackSize sets the stack capacity of each VM.
func StackSize(n int) Option {
	return func(r *Runtime) error {
		if n < 3 {
			return errors.Errorf("stack size %d is too small", n)
		}
		r.vmOpts = append(r.vmOpts, vm.StackSize(n))
		return nil
	}
}

// Trace instructs each VM to print every instruction it executes.
func Trace() Option {
	return func(r *Runtime) error {
		r.trace = true
		return nil
	}
}

// Prompt sets the text printed before each RED.
func Prompt(p string) Option {
	return func(r *Runtime) error {
		r.vmOpts = append(r.vmOpts, vm.Prompt(p))
		return nil
	}
}

// Color turns on ANSI colours in diagnostics.
func Color(on bool) Option {
	return func(r *Runtime) error {
		r.color = on
		return nil
	}
}

// Input sets the reader programs read from.  It is shared between runs.
func Input(in io.Reader) Option {
	return func(r *Runtime) error {
		r.input = bufio.NewReader(in)
		return nil
	}
}

// Output sets the writer for program output and listings.
func Output(w io.Writer) Option {
	return func(r *Runtime) error {
		r.stdout = w
		return nil
	}
}

// Stderr sets the writer diagnostics are rendered to.
func Stderr(w io.Writer) Option {
	return func(r *Runtime) error {
		r.stderr = w
		return nil
	}
}

// ObjectOutput makes the Runtime write each compiled program as an object
// file at path.
func ObjectOutput(path string) Option {
	return func(r *Runtime) error {
		r.objectOutput = path
		return nil
	}
}

// CacheSize sets the number of compiled programs kept in memory.
func CacheSize(n int) Option {
	return func(r *Runtime) error {
		if n < 1 {
			return errors.Errorf("cache size %d must be positive", n)
		}
		r.cacheSize = n
		return nil
	}
}

// SetBuildInfo sets the version reported by the build info metric.
func SetBuildInfo(info BuildInfo) Option {
	return func(r *Runtime) error {
		r.buildInfo = info
		return nil
	}
}

// PrometheusRegisterer passes in a registry for setting up exported metrics.
// A build info collector is registered on it once the Runtime is created.
func PrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runtime) error {
		r.reg = reg
		r.reg.MustRegister(vm.InstructionsExecuted, vm.RuntimeErrors, vm.RunDurations)
		return nil
	}
}
