// Completion: 100% - Compile-and-execute pipeline with debug dumps and timing
package main

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Options are the knobs the command line exposes. ProfilePath empty means
// profiling is off.
type Options struct {
	Debug        bool
	NoOptimize   bool
	Timing       bool
	Unsafe       bool
	ProfilePath  string
	MemorySize   int
	MemoryOffset int
}

// RunFile compiles and executes the program at path.
func RunFile(path string, opts Options) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Run(src, opts)
}

// Run takes a source program through the whole pipeline: parse, optimize,
// generate code for the host, map it executable, and run it against a
// fresh tape.
func Run(src []byte, opts Options) error {
	if opts.MemoryOffset < 0 || opts.MemoryOffset >= opts.MemorySize {
		return fmt.Errorf("memory offset %d outside tape of %d cells", opts.MemoryOffset, opts.MemorySize)
	}
	profiling := opts.ProfilePath != ""

	parseStart := time.Now()
	nodes, err := Parse(src)
	if err != nil {
		return err
	}
	parseTime := time.Since(parseStart)

	optStart := time.Now()
	if !opts.NoOptimize {
		nodes = Optimize(nodes)
	}
	optTime := time.Since(optStart)

	platform, err := HostPlatform()
	if err != nil {
		return err
	}
	if opts.Debug {
		fmt.Fprintf(os.Stderr, "target: %s, %d IR nodes\n", platform, CountNodes(nodes))
		DumpIR(os.Stderr, nodes, 0)
	}

	cfg := CodegenConfig{
		OS:           platform.OS,
		MemorySize:   opts.MemorySize,
		MemoryOffset: opts.MemoryOffset,
		Unsafe:       opts.Unsafe,
		Profiling:    profiling,
	}
	backend, err := NewBackend(platform, cfg)
	if err != nil {
		return err
	}

	codegenStart := time.Now()
	em := NewEmitter(backend, profiling || opts.Debug, CountNodes(nodes))
	size, err := em.Emit(nodes)
	if err != nil {
		return err
	}
	buf, err := NewCodeBuffer(size)
	if err != nil {
		return err
	}
	if err := em.Assembler().Encode(buf.Bytes()); err != nil {
		buf.Close()
		return err
	}
	code, err := buf.Seal()
	if err != nil {
		buf.Close()
		return err
	}
	defer code.Close()
	codegenTime := time.Since(codegenStart)

	if opts.Debug {
		DumpCodeHex(os.Stderr, em.Assembler().Bytes())
		em.DebugMap().Dump(os.Stderr)
	}

	tape, err := NewTape(opts.MemorySize)
	if err != nil {
		return err
	}
	defer tape.Close()

	var prof *Profiler
	var hub uintptr
	if profiling {
		prof, err = NewProfiler(em.DebugMap())
		if err != nil {
			return err
		}
		defer prof.Close()
		hub = prof.HubAddr()
		prof.Start()
	}

	execStart := time.Now()
	code.Invoke(tape.Base(), hub)
	execTime := time.Since(execStart)

	if prof != nil {
		prof.Stop()
		if err := writeProfile(opts.ProfilePath, prof); err != nil {
			return err
		}
	}

	if opts.Timing {
		fmt.Fprintf(os.Stderr, "timing: parse %v, optimize %v, codegen %v, execute %v\n",
			parseTime, optTime, codegenTime, execTime)
	}
	return nil
}

func writeProfile(path string, prof *Profiler) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("profile output: %w", err)
	}
	prof.Dump(f)
	return f.Close()
}

// DumpCodeHex writes the generated code as 16-byte hex rows.
func DumpCodeHex(w io.Writer, code []byte) {
	fmt.Fprintf(w, "generated %d bytes of machine code\n", len(code))
	for i := 0; i < len(code); i += 16 {
		fmt.Fprintf(w, "%#06x ", i)
		end := i + 16
		if end > len(code) {
			end = len(code)
		}
		for _, b := range code[i:end] {
			fmt.Fprintf(w, " %02x", b)
		}
		fmt.Fprintln(w)
	}
}
