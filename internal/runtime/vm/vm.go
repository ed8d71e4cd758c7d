// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package vm provides the stack machine that executes compiled PL/0
// programs.
package vm

import (
	"bufio"
	"bytes"
	"context"
	"expvar"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/golang/glog"
	"github.com/google/pl0/internal/runtime/code"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/trace"
)

// Offsets of the linkage cells at the start of every activation record.
const (
	raOffset = 0 // Return address.
	dlOffset = 1 // Dynamic link: the caller's base.
	slOffset = 2 // Static link: the base of the lexically enclosing frame.
)

var (
	// InstructionsExecuted counts the instructions run by each program.
	InstructionsExecuted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pl0",
		Subsystem: "vm",
		Name:      "instructions_executed_total",
		Help:      "Number of instructions executed.",
	}, []string{"prog"})

	// RuntimeErrors counts the fatal errors of each program by kind.
	RuntimeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pl0",
		Subsystem: "vm",
		Name:      "runtime_errors_total",
		Help:      "Number of programs stopped by a runtime error.",
	}, []string{"prog", "kind"})

	// RunDurations is the distribution of the time taken by Run.
	RunDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pl0",
		Subsystem: "vm",
		Name:      "run_duration_seconds",
		Help:      "VM run time distribution in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.00002, 2.0, 12),
	}, []string{"prog"})

	progRuntimeErrors = expvar.NewMap("prog_runtime_errors_total")
)

// State is the execution state of a VM.
type State int

const (
	Loaded  State = iota // Registers reset, nothing executed yet.
	Running              // At least one instruction executed.
	Halted               // The outermost RET executed.
	Failed               // Stopped by a runtime error; cannot resume.
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// VM describes the virtual machine for one program.  It holds the program,
// the registers and the data stack.
type VM struct {
	name string
	prog []code.Instr

	capacity  int
	in        *bufio.Reader
	out       io.Writer
	prompt    string
	trace     io.Writer
	hardCrash bool

	state State
	pc    int // Address of the next instruction.
	base  int // Base of the current activation record.
	top   int // Index of the top of stack; -1 when empty.
	stack []int
	steps int

	ip    int        // Address of the instruction being executed.
	instr code.Instr // The instruction being executed.
	note  string     // What the instruction did, for the trace.
	err   error      // Set once the program fails.
}

// New creates a virtual machine for the program in obj.
func New(name string, obj *code.Object, options ...Option) (*VM, error) {
	v := &VM{
		name:     name,
		capacity: DefaultStackSize,
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}
	for _, opt := range options {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	v.Load(obj)
	return v, nil
}

// Load copies the program in obj into the VM and resets the registers and
// the stack.
func (v *VM) Load(obj *code.Object) {
	v.prog = append([]code.Instr(nil), obj.Program...)
	v.stack = make([]int, v.capacity)
	v.pc, v.base, v.top = 0, 0, -1
	v.steps = 0
	v.state = Loaded
	v.err = nil
	glog.V(1).Infof("%s: loaded %d instructions", v.name, len(v.prog))
}

// Name returns the name of the loaded program.
func (v *VM) Name() string { return v.name }

// State returns the execution state.
func (v *VM) State() State { return v.state }

// PC returns the address of the next instruction.
func (v *VM) PC() int { return v.pc }

// Base returns the base of the current activation record.
func (v *VM) Base() int { return v.base }

// Top returns the index of the top of the stack, or -1 if it is empty.
func (v *VM) Top() int { return v.top }

// Steps returns the number of instructions executed since Load.
func (v *VM) Steps() int { return v.steps }

// Err returns the runtime error that stopped the program, if any.
func (v *VM) Err() error { return v.err }

// Stack returns a copy of the live part of the stack, bottom first.
func (v *VM) Stack() []int {
	return append([]int(nil), v.stack[:v.top+1]...)
}

// errorf records a runtime error at the current instruction and stops the
// program.
func (v *VM) errorf(sentinel error, format string, args ...interface{}) error {
	e := &RuntimeError{Prog: v.name, PC: v.ip, Instr: v.instr, Err: sentinel}
	if format != "" {
		e.Info = fmt.Sprintf(format, args...)
	}
	v.err = e
	v.state = Failed
	progRuntimeErrors.Add(v.name, 1)
	RuntimeErrors.WithLabelValues(v.name, kind(sentinel)).Inc()
	glog.Info(e)
	if glog.V(1) {
		glog.Infof("Dumping vm state")
		glog.Infof("Name: %s", v.name)
		glog.Infof(" PC %d", v.ip)
		glog.Infof(" Base %d", v.base)
		glog.Infof(" Top %d", v.top)
		glog.Infof(" Stack %v", v.window())
	}
	return e
}

// Step executes one instruction.  It returns ErrHalted once the program has
// halted, and the same runtime error on every call after a failure.
func (v *VM) Step() error {
	switch v.state {
	case Halted:
		return ErrHalted
	case Failed:
		return v.err
	}
	v.state = Running
	v.ip = v.pc
	if v.pc < 0 || v.pc >= len(v.prog) {
		v.instr = code.Instr{}
		return v.errorf(ErrBadInstruction, "program counter %d out of range", v.pc)
	}
	v.instr = v.prog[v.pc]
	v.pc++
	v.steps++
	InstructionsExecuted.WithLabelValues(v.name).Inc()
	glog.V(2).Infof("%s: %d: %s", v.name, v.ip, v.instr)
	v.note = ""
	err := v.execute(v.instr)
	if v.trace != nil {
		v.traceStep()
	}
	return err
}

// Run executes the program until it halts or fails.
func (v *VM) Run(ctx context.Context) error {
	_, span := trace.StartSpan(ctx, "vm.Run")
	defer span.End()
	start := time.Now()
	defer func() {
		RunDurations.WithLabelValues(v.name).Observe(time.Since(start).Seconds())
		span.AddAttributes(
			trace.StringAttribute("prog", v.name),
			trace.Int64Attribute("steps", int64(v.steps)))
	}()
	for v.state == Loaded || v.state == Running {
		if err := v.Step(); err != nil {
			span.SetStatus(trace.Status{Code: trace.StatusCodeInternal, Message: err.Error()})
			return err
		}
	}
	return v.err
}

// execute performs an instruction cycle in the VM.
func (v *VM) execute(i code.Instr) (err error) {
	// In normal operation, recover from panics, otherwise dump that state and repanic.
	defer func() {
		if r := recover(); r != nil {
			if v.hardCrash {
				fmt.Printf("panic at instr %d %s: %s\n%s", v.ip, i, r, debug.Stack())
				panic(r)
			}
			err = v.errorf(ErrBadInstruction, "panic: %v", r)
		}
	}()

	switch i.Opcode {
	case code.Lit:
		v.notef("LIT: Push %d", i.Operand)
		return v.push(i.Operand)

	case code.Opr:
		return v.operate(code.OprCode(i.Operand))

	case code.Lod:
		addr, err := v.address(i.Level, i.Operand)
		if err != nil {
			return err
		}
		v.notef("LOD: Load %d from [%d+%d]", v.stack[addr], addr-i.Operand, i.Operand)
		return v.push(v.stack[addr])

	case code.Sto:
		addr, err := v.address(i.Level, i.Operand)
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.stack[addr] = x
		v.notef("STO: Store %d to [%d+%d]", x, addr-i.Operand, i.Operand)

	case code.Cal:
		if v.top+3 >= v.capacity {
			return v.errorf(ErrStackOverflow, "no room for the activation record at %d", v.top+1)
		}
		sl, err := v.frame(i.Level)
		if err != nil {
			return err
		}
		v.stack[v.top+1+raOffset] = v.pc
		v.stack[v.top+1+dlOffset] = v.base
		v.stack[v.top+1+slOffset] = sl
		v.base = v.top + 1
		v.pc = i.Operand
		v.notef("CAL: Call procedure at %d, SL=%d, DL=%d, RA=%d", i.Operand, sl, v.stack[v.base+dlOffset], v.stack[v.base+raOffset])

	case code.Int:
		top := v.top + i.Operand
		if top >= v.capacity {
			return v.errorf(ErrStackOverflow, "allocating %d cells at %d", i.Operand, v.top+1)
		}
		if top < -1 {
			return v.errorf(ErrBadInstruction, "releasing %d cells from %d", -i.Operand, v.top)
		}
		v.top = top
		v.notef("INT: Allocate %d cells, T=%d", i.Operand, v.top)

	case code.Jmp:
		v.pc = i.Operand
		v.notef("JMP: Jump to %d", i.Operand)

	case code.Jpc:
		x, err := v.pop()
		if err != nil {
			return err
		}
		if x == 0 {
			v.pc = i.Operand
			v.notef("JPC: Condition false, jump to %d", i.Operand)
		} else {
			v.notef("JPC: Condition true, continue")
		}

	case code.Red:
		addr, err := v.address(i.Level, i.Operand)
		if err != nil {
			return err
		}
		if v.prompt != "" {
			fmt.Fprint(v.out, v.prompt)
		}
		var x int
		if _, err := fmt.Fscan(v.in, &x); err != nil {
			if err == io.EOF {
				return v.errorf(ErrInput, "unexpected end of input")
			}
			return v.errorf(ErrInput, "%s", err)
		}
		v.stack[addr] = x
		v.notef("RED: Read %d into [%d+%d]", x, addr-i.Operand, i.Operand)

	case code.Wrt:
		x, err := v.pop()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(v.out, x); err != nil {
			return v.errorf(err, "")
		}
		v.notef("WRT: Write %d", x)

	default:
		return v.errorf(ErrBadInstruction, "unknown opcode %d", int(i.Opcode))
	}
	return nil
}

// operate executes the Opr instruction selected by op.
func (v *VM) operate(op code.OprCode) error {
	switch op {
	case code.Ret:
		b := v.base
		if b < 0 || b+dlOffset >= v.capacity {
			return v.errorf(ErrBadInstruction, "base %d out of range", b)
		}
		v.top = b - 1
		v.pc = v.stack[b+raOffset]
		v.base = v.stack[b+dlOffset]
		v.notef("OPR RET: Return to %d, B=%d", v.pc, v.base)
		if v.top < 0 {
			v.state = Halted
			glog.V(1).Infof("%s: halted after %d steps", v.name, v.steps)
		}
		return nil

	case code.Neg:
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.notef("OPR NEG: %d", -x)
		return v.push(-x)

	case code.Odd:
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.notef("OPR ODD: %d", boolToInt(x%2 != 0))
		return v.push(boolToInt(x%2 != 0))
	}

	if !op.Valid() {
		return v.errorf(ErrBadInstruction, "unknown operation %d", int(op))
	}
	b, err := v.pop()
	if err != nil {
		return err
	}
	a, err := v.pop()
	if err != nil {
		return err
	}
	var r int
	switch op {
	case code.Add:
		r = a + b
	case code.Sub:
		r = a - b
	case code.Mul:
		r = a * b
	case code.Div:
		if b == 0 {
			return v.errorf(ErrDivisionByZero, "")
		}
		r = a / b
	case code.Eq:
		r = boolToInt(a == b)
	case code.Neq:
		r = boolToInt(a != b)
	case code.Lt:
		r = boolToInt(a < b)
	case code.Geq:
		r = boolToInt(a >= b)
	case code.Gt:
		r = boolToInt(a > b)
	case code.Leq:
		r = boolToInt(a <= b)
	}
	v.notef("OPR %s: %d", op, r)
	return v.push(r)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (v *VM) push(x int) error {
	if v.top+1 >= v.capacity {
		return v.errorf(ErrStackOverflow, "push at %d", v.top+1)
	}
	v.top++
	v.stack[v.top] = x
	return nil
}

func (v *VM) pop() (int, error) {
	if v.top < 0 {
		return 0, v.errorf(ErrBadInstruction, "pop from empty stack")
	}
	x := v.stack[v.top]
	v.top--
	return x, nil
}

// frame follows level static links from the current base and returns the
// base of the activation record it reaches.
func (v *VM) frame(level int) (int, error) {
	b := v.base
	for ; level > 0; level-- {
		if b < 0 || b+slOffset >= v.capacity {
			return 0, v.errorf(ErrBadInstruction, "static link at %d out of range", b+slOffset)
		}
		b = v.stack[b+slOffset]
	}
	return b, nil
}

// address returns the stack index of the variable at offset in the frame
// level static links out.
func (v *VM) address(level, offset int) (int, error) {
	b, err := v.frame(level)
	if err != nil {
		return 0, err
	}
	addr := b + offset
	if addr < 0 || addr >= v.capacity {
		return 0, v.errorf(ErrBadInstruction, "address %d out of range", addr)
	}
	return addr, nil
}

// window is the bottom of the live stack, as much as is useful to print.
func (v *VM) window() []int {
	const max = 20
	n := v.top + 1
	if n > max {
		n = max
	}
	if n < 0 {
		n = 0
	}
	return v.stack[:n]
}

// notef records what the current instruction did, when tracing.
func (v *VM) notef(format string, args ...interface{}) {
	if v.trace != nil {
		v.note = fmt.Sprintf(format, args...)
	}
}

func (v *VM) traceStep() {
	fmt.Fprintf(v.trace, "Step %d: %s %d %d\n", v.steps, v.instr.Opcode, v.instr.Level, v.instr.Operand)
	if v.note != "" {
		fmt.Fprintf(v.trace, "  %s\n", v.note)
	}
	fmt.Fprintf(v.trace, "  Registers: P=%d, T=%d, B=%d\n", v.pc, v.top, v.base)
	b := new(bytes.Buffer)
	for n, x := range v.window() {
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(b, x)
	}
	if v.top >= 20 {
		b.WriteString(", ...")
	}
	fmt.Fprintf(v.trace, "  Stack (T=%d, B=%d): [%s]\n", v.top, v.base, b.String())
}

// DumpByteCode returns the disassembly of the loaded program.
func (v *VM) DumpByteCode() string {
	b := new(bytes.Buffer)
	if err := code.Disassemble(b, &code.Object{Name: v.name, Program: v.prog}); err != nil {
		glog.Infof("disassemble error: %s", err)
	}
	return b.String()
}
