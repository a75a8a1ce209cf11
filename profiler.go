// Completion: 100% - Sampling profiler with folded stack output
package main

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/xyproto/env/v2"
	"golang.org/x/sys/unix"
)

// profiler.go - wall-clock sampling profiler
//
// The generated code stores its current code offset into the hub slot at
// every debug label. A sampler goroutine reads the slot on a fixed tick,
// maps the offset back to an IR node through the debug map, and bumps that
// node's sample counter. The result is a statistical picture of where the
// program spends its time, dumped as folded stacks.

const (
	defaultProfRateHz = 1000
	profMaxSamples    = 100000
)

type profSample struct {
	offset  uint32
	elapsed time.Duration
}

// Profiler owns the hub page the generated code reports into and the
// sampler goroutine that reads it.
type Profiler struct {
	hub     []byte
	slot    *uint32
	dbg     *DebugMap
	rate    int
	samples []profSample
	dropped bool
	started time.Time
	stopped chan struct{}
	done    chan struct{}
}

// NewProfiler maps the hub page. The slot lives outside the Go heap so the
// generated code has a stable address to store through.
func NewProfiler(dbg *DebugMap) (*Profiler, error) {
	hub, err := unix.Mmap(-1, 0, os.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("profiler: mmap hub: %w", err)
	}
	return &Profiler{
		hub:     hub,
		slot:    (*uint32)(unsafe.Pointer(&hub[0])),
		dbg:     dbg,
		rate:    env.Int("BFJIT_PROFILE_RATE", defaultProfRateHz),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// HubAddr is the slot address passed to the entry point, which the
// prologue keeps in the hub register.
func (p *Profiler) HubAddr() uintptr {
	return uintptr(unsafe.Pointer(p.slot))
}

// Start launches the sampler.
func (p *Profiler) Start() {
	fmt.Fprintf(os.Stderr, "profiling: sampling at %d Hz, %d mapped nodes\n", p.rate, p.dbg.Len())
	p.started = time.Now()
	go p.sample()
}

func (p *Profiler) sample() {
	defer close(p.done)
	tick := time.NewTicker(time.Second / time.Duration(p.rate))
	defer tick.Stop()
	for {
		select {
		case <-p.stopped:
			return
		case <-tick.C:
			off := atomic.LoadUint32(p.slot)
			e := p.dbg.FindByOffset(int(off))
			if e == nil {
				continue
			}
			e.Node.Samples.Add(1)
			// The node counters drive the folded dump and keep counting even
			// once the raw sample buffer is full.
			if len(p.samples) >= profMaxSamples {
				if !p.dropped {
					fmt.Fprintln(os.Stderr, "profiling: sample buffer full, dropping further samples")
					p.dropped = true
				}
				continue
			}
			p.samples = append(p.samples, profSample{offset: off, elapsed: time.Since(p.started)})
		}
	}
}

// Stop ends sampling, waits for the sampler goroutine, and invalidates the
// slot so a stale offset cannot be attributed later.
func (p *Profiler) Stop() {
	close(p.stopped)
	<-p.done
	atomic.StoreUint32(p.slot, 0)
	fmt.Fprintf(os.Stderr, "profiling: collected %d samples\n", len(p.samples))
}

// Samples reports how many samples were attributed to nodes.
func (p *Profiler) Samples() int { return len(p.samples) }

// Dump writes the folded-stack report: comment headers, then one line per
// sampled node with the enclosing loop chain as semicolon-separated frames
// and the sample count last. Loops never get a line of their own; they only
// appear as stack frames of the nodes inside them. The format feeds straight
// into flame graph tooling.
func (p *Profiler) Dump(w io.Writer) {
	fmt.Fprintf(w, "# bfjit profile\n")
	fmt.Fprintf(w, "# sample rate: %d Hz\n", p.rate)
	fmt.Fprintf(w, "# samples: %d\n", len(p.samples))
	for i := 0; i < p.dbg.Len(); i++ {
		e := &p.dbg.entries[i]
		if e.Node.Kind == NodeLoop {
			continue
		}
		count := e.Node.Samples.Load()
		if count == 0 {
			continue
		}
		for _, loop := range e.Stack {
			fmt.Fprintf(w, "@%d:%d %s;", loop.Line, loop.Column, loop.Kind)
		}
		fmt.Fprintf(w, "@%d:%d %s %d\n", e.Node.Line, e.Node.Column, e.Node.Kind, count)
	}
}

// Close unmaps the hub page. Only safe once the generated code has
// returned.
func (p *Profiler) Close() error {
	if p.hub == nil {
		return nil
	}
	err := unix.Munmap(p.hub)
	p.hub = nil
	p.slot = nil
	return err
}
