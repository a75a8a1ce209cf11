// Completion: 100% - Executable mapping lifecycle and invocation done
package main

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

// CodeBuffer is the writable stage of the code mapping. Sealing consumes it
// and yields the executable stage, so W^X holds by construction: no value
// exists through which the same pages are both writable and runnable.
type CodeBuffer struct {
	mem []byte
}

// NewCodeBuffer maps enough writable pages for size bytes of code.
func NewCodeBuffer(size int) (*CodeBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("exec: invalid code size %d", size)
	}
	m, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, execMapFlags())
	if err != nil {
		return nil, fmt.Errorf("exec: mmap %d bytes: %w", size, err)
	}
	return &CodeBuffer{mem: m}, nil
}

// Bytes is the destination for Assembler.Encode.
func (b *CodeBuffer) Bytes() []byte { return b.mem }

// Seal flips the pages to read-execute and consumes the buffer.
func (b *CodeBuffer) Seal() (*ExecMapping, error) {
	if b.mem == nil {
		return nil, fmt.Errorf("exec: buffer already sealed or closed")
	}
	if err := unix.Mprotect(b.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return nil, fmt.Errorf("exec: mprotect RX: %w", err)
	}
	m := &ExecMapping{mem: b.mem}
	b.mem = nil
	return m, nil
}

// Close releases a buffer that was never sealed, for failure paths.
func (b *CodeBuffer) Close() error {
	if b.mem == nil {
		return nil
	}
	err := unix.Munmap(b.mem)
	b.mem = nil
	return err
}

// ExecMapping is the sealed, runnable stage of the code mapping.
type ExecMapping struct {
	mem []byte
}

// Entry is the address of the first instruction.
func (m *ExecMapping) Entry() uintptr {
	return uintptr(unsafe.Pointer(&m.mem[0]))
}

// Size reports the mapped code size.
func (m *ExecMapping) Size() int { return len(m.mem) }

// Invoke runs the code to completion on the calling thread, passing the
// tape cursor base and the profiler slot in the first two integer argument
// registers. The generated prologue and epilogue follow the C calling
// convention, so the raw foreign-call path works without a wrapper.
func (m *ExecMapping) Invoke(tape, hub uintptr) {
	purego.SyscallN(m.Entry(), tape, hub)
}

func (m *ExecMapping) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}
