// Completion: 100% - Backend interface and platform selection done
package main

import "fmt"

// CodegenConfig carries the target parameters every backend needs: the OS
// picks the syscall convention, the tape geometry sizes the bounds checks,
// and the flags switch guard emission and profiling stores on or off.
type CodegenConfig struct {
	OS           OS
	MemorySize   int
	MemoryOffset int
	Unsafe       bool
	Profiling    bool
}

// Backend emits machine code for one IR operation at a time. Emission order
// matches IR order; loop control flow is split into a test at the head and a
// back-branch at the tail, with the labels owned by the caller.
type Backend interface {
	Name() string

	// Prologue establishes the register state from the two entry arguments
	// (tape base, profiler slot): the cell cursor at base plus the
	// configured offset, and the bounds registers when guard checks are
	// enabled. Emission never needs runtime addresses, so code can be
	// generated before any mapping exists.
	Prologue(a *Assembler)
	// Epilogue restores callee-saved state and returns.
	Epilogue(a *Assembler)

	MovePtr(a *Assembler, count int32)
	AddVal(a *Assembler, count int32, offset int32)
	Output(a *Assembler, offset int32)
	Input(a *Assembler, offset int32)
	SetConst(a *Assembler, value int32, offset int32)
	Mul(a *Assembler, multiplier int32, srcOffset, dstOffset int32)
	CopyCell(a *Assembler, srcOffset, dstOffset int32)

	// LoopTest emits the zero test on the current cell and the conditional
	// forward branch to end. LoopBack emits the unconditional branch to
	// start. Both record patches against the assembler's label table.
	LoopTest(a *Assembler, end Label)
	LoopBack(a *Assembler, start Label)

	// DebugLabel stores the code offset bound to l into the profiler hub
	// slot, so the sampler can attribute time to the node that follows.
	// A no-op when profiling is disabled.
	DebugLabel(a *Assembler, l Label)
}

// NewBackend selects the code generator for the platform.
func NewBackend(p Platform, cfg CodegenConfig) (Backend, error) {
	switch p.Arch {
	case ArchX86_64:
		return NewX86_64Backend(cfg), nil
	case ArchARM64:
		return NewARM64Backend(cfg), nil
	default:
		return nil, fmt.Errorf("no code generator for %s", p)
	}
}
