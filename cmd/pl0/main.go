// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Command pl0 compiles a PL/0 program and runs it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/golang/glog"
	"github.com/google/pl0/internal/config"
	"github.com/google/pl0/internal/runtime"
	"github.com/google/pl0/internal/runtime/vm"
	"github.com/google/pl0/internal/term"
	"github.com/google/pl0/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tebeka/atexit"
	"go.opencensus.io/trace"
)

var (
	version    = flag.Bool("version", false, "Print pl0 version information.")
	configFile = flag.String("config", "", "TOML file of default settings.  Flags given on the command line take precedence.")

	// Listings.
	source    = flag.Bool("source", false, "Print the numbered program source.")
	tokens    = flag.Bool("tokens", false, "Print the token stream.")
	symbols   = flag.Bool("symbols", false, "Print the symbol table.")
	code      = flag.Bool("code", false, "Print the generated code.")
	parseTree = flag.Bool("parse_tree", false, "Print the grammar rules entered while translating.")
	all       = flag.Bool("all", false, "Print every listing: source, tokens, parse tree, symbols and code.")
	color     = flag.String("color", "auto", "Colour diagnostics: always, never or auto.")

	// Compiler behaviour flags.
	compileOnly = flag.Bool("compile_only", false, "Compile the program only, do not run it.")
	lexerOnly   = flag.Bool("lexer_only", false, "Run the lexer only and print the tokens.  Implies -compile_only.")
	parseOnly   = flag.Bool("parse_only", false, "Run the parser only and print the parse tree.  Implies -compile_only.")
	verbose     = flag.Bool("verbose", false, "Report each compile and run phase on stdout.")
	run         = flag.Bool("run", true, "Run the program after compiling it.  -run=false is the same as -compile_only.")
	output      = flag.String("o", "", "Write the compiled object file here.  Object files (.pl0o) may be given as the input instead of source.")

	// VM behaviour flags.
	traceExec = flag.Bool("trace", false, "Print each instruction executed, with the registers and stack.")
	stackSize = flag.Int("stack_size", vm.DefaultStackSize, "Number of cells in the VM data stack.")
	prompt    = flag.String("prompt", "auto", "Text printed before each read.  \"auto\" prints \"? \" when stdin is a terminal.")

	// Watch mode.
	watch             = flag.Bool("watch", false, "Recompile and rerun the program whenever its file changes.")
	watchDebounce     = flag.Duration("watch_debounce", 100*time.Millisecond, "Wait for the file to be quiet this long before recompiling.")
	watchPollInterval = flag.Duration("watch_poll_interval", 0, "Also poll the program file at this interval.  Zero relies on filesystem notifications.")

	// Ops flags.
	metricsTextfile = flag.String("metrics_textfile", "", "Write the VM metrics in Prometheus text format to this file on exit.")
	jaegerEndpoint  = flag.String("jaeger_endpoint", "", "If set, collector endpoint URL of jaeger thrift service")
)

var (
	// Branch as well as Version and Revision identifies where in the git
	// history the build came from, as supplied by the linker when compiled
	// with `make'.  The defaults here indicate that the user did not use
	// `make' as instructed.
	Branch   = "invalid:-use-make-to-build"
	Version  = "invalid:-use-make-to-build"
	Revision = "invalid:-use-make-to-build"
)

// runtimeOptions translates the flags into Runtime options.
func runtimeOptions(reg prometheus.Registerer, info runtime.BuildInfo) []runtime.Option {
	opts := []runtime.Option{
		runtime.StackSize(*stackSize),
		runtime.Color(term.ColorEnabled(*color, os.Stderr)),
		runtime.SetBuildInfo(info),
		runtime.PrometheusRegisterer(reg),
	}
	if *all {
		*source, *tokens, *parseTree, *symbols, *code = true, true, true, true, true
	}
	if *source {
		opts = append(opts, runtime.DumpSource())
	}
	if *tokens {
		opts = append(opts, runtime.DumpTokens())
	}
	if *parseTree {
		opts = append(opts, runtime.DumpParseTree())
	}
	if *symbols {
		opts = append(opts, runtime.DumpSymbols())
	}
	if *code {
		opts = append(opts, runtime.DumpBytecode())
	}
	if *compileOnly || !*run {
		opts = append(opts, runtime.CompileOnly())
	}
	if *lexerOnly {
		opts = append(opts, runtime.LexerOnly())
	}
	if *parseOnly {
		opts = append(opts, runtime.ParseOnly())
	}
	if *verbose {
		opts = append(opts, runtime.Verbose())
	}
	if *traceExec {
		opts = append(opts, runtime.Trace())
	}
	switch *prompt {
	case "auto":
		if term.IsTerminal(os.Stdin) {
			opts = append(opts, runtime.Prompt("? "))
		}
	default:
		opts = append(opts, runtime.Prompt(*prompt))
	}
	if *output != "" {
		opts = append(opts, runtime.ObjectOutput(*output))
	}
	return opts
}

func main() {
	buildInfo := runtime.BuildInfo{
		Branch:   Branch,
		Version:  Version,
		Revision: Revision,
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", buildInfo.String())
		fmt.Fprintf(os.Stderr, "\nUsage: %s [flags] <file.pl0 | file.pl0o>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *version {
		fmt.Println(buildInfo.String())
		os.Exit(0)
	}
	atexit.Register(glog.Flush)
	if *configFile != "" {
		c, err := config.Load(*configFile)
		if err != nil {
			glog.Exit(err)
		}
		if err := c.Apply(flag.CommandLine); err != nil {
			glog.Exit(err)
		}
	}
	glog.Info(buildInfo.String())
	glog.Infof("Commandline: %q", os.Args)
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "error: exactly one input file must be given.")
		flag.Usage()
		atexit.Exit(1)
	}

	reg := prometheus.NewRegistry()
	if *metricsTextfile != "" {
		atexit.Register(func() {
			if err := prometheus.WriteToTextfile(*metricsTextfile, reg); err != nil {
				glog.Error(err)
			}
		})
	}
	if *jaegerEndpoint != "" {
		je, err := jaeger.NewExporter(jaeger.Options{
			CollectorEndpoint: *jaegerEndpoint,
			Process: jaeger.Process{
				ServiceName: "pl0",
			},
		})
		if err != nil {
			glog.Exit(err)
		}
		trace.RegisterExporter(je)
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.AlwaysSample()})
		atexit.Register(je.Flush)
	}

	path, err := runtime.FindSource(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		atexit.Exit(1)
	}
	r, err := runtime.New(runtimeOptions(reg, buildInfo)...)
	if err != nil {
		glog.Exit(err)
	}

	ctx := context.Background()
	err = r.LoadProgram(ctx, path)
	if !*watch {
		if err != nil {
			glog.Info(err)
			atexit.Exit(1)
		}
		atexit.Exit(0)
	}

	w, err := watcher.NewSourceWatcher(watcher.Debounce(*watchDebounce), watcher.PollInterval(*watchPollInterval))
	if err != nil {
		glog.Exit(err)
	}
	if err := w.Observe(path, r); err != nil {
		glog.Exit(err)
	}
	fmt.Fprintf(os.Stderr, "watching %s for changes, interrupt to stop\n", path)
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	sig := <-sigint
	glog.Infof("Received %+v, exiting...", sig)
	if err := w.Close(); err != nil {
		glog.Error(err)
	}
	atexit.Exit(0)
}
