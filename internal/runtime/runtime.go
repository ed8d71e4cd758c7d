// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package runtime compiles PL/0 programs and runs them on the virtual
// machine, caching compiled objects and reloading programs when their files
// change.
package runtime

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"expvar"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/golang/groupcache/lru"
	"github.com/google/pl0/internal/runtime/code"
	"github.com/google/pl0/internal/runtime/compiler"
	cerrors "github.com/google/pl0/internal/runtime/compiler/errors"
	"github.com/google/pl0/internal/runtime/compiler/parser"
	"github.com/google/pl0/internal/runtime/compiler/symbol"
	"github.com/google/pl0/internal/runtime/vm"
	"github.com/google/pl0/internal/watcher"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"go.opencensus.io/trace"
)

var (
	// ProgCompiles counts the number of compilations of each program.
	ProgCompiles = expvar.NewMap("prog_compiles_total")
	// ProgCompileErrors counts the number of failed compilations of each program.
	ProgCompileErrors = expvar.NewMap("prog_compile_errors_total")
	// ProgRuns counts the number of times each program was started.
	ProgRuns = expvar.NewMap("prog_runs_total")
	// ProgLoadErrors counts the number of program load errors.
	ProgLoadErrors = expvar.NewMap("prog_load_errors_total")
	// CacheHits counts compilations avoided because the source was unchanged.
	CacheHits = expvar.NewInt("object_cache_hits_total")
)

const (
	// SourceExt is the file extension of program source.
	SourceExt = ".pl0"
	// ObjectExt is the file extension of compiled object files.
	ObjectExt = ".pl0o"

	defaultCacheSize = 16
)

// Runtime handles the lifecycle of programs: compiling source, reporting
// diagnostics, and running the resulting objects on fresh virtual machines.
type Runtime struct {
	mu sync.Mutex // serialises compile-and-run cycles

	reg       prometheus.Registerer // VM and build info metrics are registered here
	buildInfo BuildInfo

	c      *compiler.Compiler
	vmOpts []vm.Option

	cacheSize int
	cache     *lru.Cache // compiled objects by name and source hash

	input  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	programErrorMu sync.RWMutex     // guards access to programErrors
	programErrors  map[string]error // errors from the last load of the program

	compileOnly   bool   // Only compile programs and report errors, do not run them.
	dumpSource    bool   // Print the numbered source before compiling.
	dumpTokens    bool   // Print the token stream.
	dumpSymbols   bool   // Print the symbol table.
	dumpBytecode  bool   // Print the compiled bytecode.
	dumpParseTree bool   // Print the grammar rules entered by the translator.
	lexerOnly     bool   // Stop after lexical analysis.
	parseOnly     bool   // Stop after translation, before any code is used.
	verbose       bool   // Report each phase on the output.
	trace         bool   // Trace execution of each VM.
	color         bool   // Colour diagnostics.
	objectOutput  string // Write compiled objects to this file.
}

type cacheKey struct {
	name string
	sum  [sha256.Size]byte
}

// compiled is a cache entry: the object and the warnings its compilation
// produced, which are shown again each time the object is reused.
type compiled struct {
	obj    *code.Object
	source string
	diags  *cerrors.Diagnostics
}

// New creates a new Runtime.
func New(options ...Option) (*Runtime, error) {
	r := &Runtime{
		cacheSize:     defaultCacheSize,
		input:         bufio.NewReader(os.Stdin),
		stdout:        os.Stdout,
		stderr:        os.Stderr,
		programErrors: make(map[string]error),
	}
	if err := r.SetOption(options...); err != nil {
		return nil, err
	}
	var cOpts []compiler.Option
	if r.dumpParseTree {
		cOpts = append(cOpts, compiler.EmitParseTree(r.stdout))
	}
	if r.lexerOnly {
		cOpts = append(cOpts, compiler.LexOnly())
	}
	var err error
	if r.c, err = compiler.New(cOpts...); err != nil {
		return nil, err
	}
	r.cache = lru.New(r.cacheSize)
	if r.reg != nil {
		version.Branch = r.buildInfo.Branch
		version.Version = r.buildInfo.Version
		version.Revision = r.buildInfo.Revision
		r.reg.MustRegister(version.NewCollector("pl0"))
	}
	return r, nil
}

// SetOption takes one or more option functions and applies them in order to Runtime.
func (r *Runtime) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option(r); err != nil {
			return err
		}
	}
	return nil
}

// listing reports whether any output needs the full compilation result,
// which the cache does not keep.
func (r *Runtime) listing() bool {
	return r.dumpSource || r.dumpTokens || r.dumpSymbols || r.dumpParseTree || r.lexerOnly || r.parseOnly
}

// CompileAndRun compiles a program read from input and, unless the Runtime
// is compile only, runs it to completion.  Diagnostics are rendered to the
// Runtime's error writer.  An unchanged program is not recompiled.  The
// returned error is the compile error list or the runtime error.
func (r *Runtime) CompileAndRun(ctx context.Context, name string, input io.Reader) error {
	ctx, span := trace.StartSpan(ctx, "runtime.CompileAndRun")
	defer span.End()
	r.mu.Lock()
	defer r.mu.Unlock()

	name = filepath.Base(name)
	glog.V(2).Infof("CompileAndRun %s", name)
	src, err := ioutil.ReadAll(input)
	if err != nil {
		ProgLoadErrors.Add(name, 1)
		return errors.Wrapf(err, "reading %q failed", name)
	}
	key := cacheKey{name, sha256.Sum256(src)}

	var c *compiled
	if cached, ok := r.cache.Get(key); ok && !r.listing() {
		glog.V(1).Infof("contents match, not recompiling %q", name)
		CacheHits.Add(1)
		c = cached.(*compiled)
		if len(c.diags.List()) > 0 {
			cerrors.NewRenderer(r.stderr, c.source, r.color).RenderAll(c.diags)
		}
	} else {
		c, err = r.compile(ctx, name, src)
		if err != nil {
			return err
		}
		switch {
		case r.lexerOnly:
			fmt.Fprintln(r.stdout, "Lexical analysis completed successfully.")
			return nil
		case r.parseOnly:
			fmt.Fprintln(r.stdout, "Syntax analysis completed successfully.")
			return nil
		}
		r.cache.Add(key, c)
	}
	return r.execute(ctx, c.obj)
}

// compile compiles src, printing the requested listings and any
// diagnostics.
func (r *Runtime) compile(ctx context.Context, name string, src []byte) (*compiled, error) {
	ProgCompiles.Add(name, 1)
	if r.dumpSource {
		writeSource(r.stdout, name, src)
	}
	r.verbosef("Compiling %s", name)
	res, err := r.c.Compile(ctx, name, bytes.NewReader(src))
	if res == nil {
		ProgCompileErrors.Add(name, 1)
		return nil, err
	}
	if r.dumpTokens {
		fmt.Fprintf(r.stdout, "Tokens for %s\n", name)
		if werr := parser.WriteTokens(r.stdout, res.Tokens); werr != nil {
			glog.Warning(werr)
		}
	}
	if r.dumpSymbols && err == nil && !r.lexerOnly && !r.parseOnly {
		fmt.Fprintf(r.stdout, "Symbols for %s\n", name)
		if werr := symbol.WriteListing(r.stdout, res.Symbols); werr != nil {
			glog.Warning(werr)
		}
	}
	if len(res.Diagnostics.List()) > 0 {
		cerrors.NewRenderer(r.stderr, res.Source, r.color).RenderAll(res.Diagnostics)
	}
	if err != nil {
		ProgCompileErrors.Add(name, 1)
		return nil, err
	}
	if res.Object == nil {
		r.verbosef("Checked %s", name)
		return &compiled{source: res.Source, diags: res.Diagnostics}, nil
	}
	glog.Infof("Compiled program %s", name)
	r.verbosef("Compiled %s: %d instructions", name, len(res.Object.Program))
	return &compiled{obj: res.Object, source: res.Source, diags: res.Diagnostics}, nil
}

// verbosef reports progress on the output when the Runtime is verbose.
func (r *Runtime) verbosef(format string, args ...interface{}) {
	if r.verbose {
		fmt.Fprintf(r.stdout, "[pl0] "+format+"\n", args...)
	}
}

// execute dumps and saves obj as requested, then runs it unless the
// Runtime is compile only.
func (r *Runtime) execute(ctx context.Context, obj *code.Object) error {
	if r.dumpBytecode {
		if err := code.Disassemble(r.stdout, obj); err != nil {
			glog.Warning(err)
		}
	}
	if r.objectOutput != "" {
		if err := writeObject(r.objectOutput, obj); err != nil {
			return err
		}
	}
	if r.compileOnly {
		return nil
	}
	opts := append([]vm.Option{vm.Input(r.input), vm.Output(r.stdout)}, r.vmOpts...)
	if r.trace {
		opts = append(opts, vm.Trace(r.stdout))
	}
	v, err := vm.New(obj.Name, obj, opts...)
	if err != nil {
		return err
	}
	ProgRuns.Add(obj.Name, 1)
	glog.Infof("Running program %s", obj.Name)
	r.verbosef("Running %s", obj.Name)
	if err := v.Run(ctx); err != nil {
		fmt.Fprintln(r.stderr, err)
		return err
	}
	glog.V(1).Infof("%s: finished after %d steps", obj.Name, v.Steps())
	r.verbosef("%s finished after %d steps", obj.Name, v.Steps())
	return nil
}

// LoadProgram loads, compiles if needed and runs the program in the file at
// programPath.  Files ending in ObjectExt are decoded as object files; any
// other file is compiled as source.  The error is also recorded for
// ProgramError.
func (r *Runtime) LoadProgram(ctx context.Context, programPath string) error {
	name := filepath.Base(programPath)
	err := r.loadProgram(ctx, programPath)
	r.programErrorMu.Lock()
	r.programErrors[name] = err
	r.programErrorMu.Unlock()
	return err
}

func (r *Runtime) loadProgram(ctx context.Context, programPath string) error {
	name := filepath.Base(programPath)
	if filepath.Ext(name) == ObjectExt {
		obj, err := readObject(programPath)
		if err != nil {
			ProgLoadErrors.Add(name, 1)
			return err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.execute(ctx, obj)
	}
	f, err := os.OpenFile(filepath.Clean(programPath), os.O_RDONLY, 0o600)
	if err != nil {
		ProgLoadErrors.Add(name, 1)
		return errors.Wrapf(err, "failed to read program %q", programPath)
	}
	defer func() {
		if err := f.Close(); err != nil {
			glog.Warning(err)
		}
	}()
	return r.CompileAndRun(ctx, name, f)
}

// ProgramError returns the error from the last load of the named program.
func (r *Runtime) ProgramError(name string) error {
	r.programErrorMu.RLock()
	defer r.programErrorMu.RUnlock()
	return r.programErrors[filepath.Base(name)]
}

// ProcessFileEvent reloads a program when its file is created or changed.
func (r *Runtime) ProcessFileEvent(ctx context.Context, event watcher.Event) {
	name := filepath.Base(event.Pathname)
	if strings.HasPrefix(name, ".") {
		glog.V(2).Infof("Skipping %s because it is a hidden file.", event.Pathname)
		return
	}
	switch event.Op {
	case watcher.Delete:
		glog.Infof("Program %s was removed", event.Pathname)
	case watcher.Create, watcher.Update:
		if err := r.LoadProgram(ctx, event.Pathname); err != nil {
			glog.Infof("Load of %s failed: %s", event.Pathname, err)
		}
	default:
		glog.V(2).Infof("Unexpected event type %+#v", event)
	}
}

// FindSource locates a program named on the command line.  It tries the name
// as given, then with SourceExt appended, then the same two in the test and
// ../test directories.
func FindSource(name string) (string, error) {
	var candidates []string
	for _, dir := range []string{"", "test", filepath.Join("..", "test")} {
		p := filepath.Join(dir, name)
		candidates = append(candidates, p, p+SourceExt)
	}
	for _, c := range candidates {
		if s, err := os.Stat(c); err == nil && !s.IsDir() {
			return c, nil
		}
	}
	return "", errors.Errorf("cannot find program %q", name)
}

func writeSource(w io.Writer, name string, src []byte) {
	fmt.Fprintf(w, "Source for %s\n", name)
	lines := strings.Split(strings.TrimSuffix(string(src), "\n"), "\n")
	for n, line := range lines {
		fmt.Fprintf(w, "%4d | %s\n", n+1, strings.TrimSuffix(line, "\r"))
	}
	fmt.Fprintln(w)
}

func writeObject(path string, obj *code.Object) error {
	data, err := code.Marshal(obj)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing object file %q", path)
	}
	glog.Infof("Wrote object file %s", path)
	return nil
}

func readObject(path string) (*code.Object, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read object file %q", path)
	}
	obj, err := code.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %q", path)
	}
	return obj, nil
}
