// Completion: 100% - Guard-paged tape allocation working
package main

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Tape is the cell array the compiled program runs against. The usable
// region is flanked by PROT_NONE guard pages, so a runaway cursor that
// escapes the bounds checks (or runs with them disabled) faults instead of
// scribbling over process memory.
type Tape struct {
	mapping []byte
	cells   []byte
}

func pageAlign(n, page int) int {
	return (n + page - 1) &^ (page - 1)
}

// NewTape maps size bytes of zeroed cells plus the two guard pages.
func NewTape(size int) (*Tape, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tape: invalid size %d", size)
	}
	page := os.Getpagesize()
	body := pageAlign(size, page)
	total := body + 2*page

	m, err := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("tape: mmap %d bytes: %w", total, err)
	}
	if err := unix.Mprotect(m[:page], unix.PROT_NONE); err != nil {
		unix.Munmap(m)
		return nil, fmt.Errorf("tape: protect low guard: %w", err)
	}
	if err := unix.Mprotect(m[total-page:], unix.PROT_NONE); err != nil {
		unix.Munmap(m)
		return nil, fmt.Errorf("tape: protect high guard: %w", err)
	}
	return &Tape{mapping: m, cells: m[page : page+size]}, nil
}

// Base is the runtime address of cell zero, passed to the entry point.
func (t *Tape) Base() uintptr {
	return uintptr(unsafe.Pointer(&t.cells[0]))
}

// Cells exposes the usable region, mainly for tests.
func (t *Tape) Cells() []byte { return t.cells }

// Size reports the usable cell count.
func (t *Tape) Size() int { return len(t.cells) }

func (t *Tape) Close() error {
	if t.mapping == nil {
		return nil
	}
	err := unix.Munmap(t.mapping)
	t.mapping = nil
	t.cells = nil
	return err
}
