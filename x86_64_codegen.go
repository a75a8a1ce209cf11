// Completion: 100% - x86-64 code generation with bounds guards and syscall I/O
package main

// x86_64_codegen.go - System V x86-64 code generation
//
// Register plan (all callee-saved, so library calls made by the host stay
// out of the way):
//
//	RBX  cell cursor
//	R12  first valid tape address (bounds check)
//	R13  one past the last valid tape address (bounds check)
//	R14  profiler hub slot address
//
// RAX, RSI, RDI, RDX are scratch for syscalls and arithmetic. The kernel
// clobbers RCX and R11 on syscall, which never hold live state here.

// Linux syscall numbers; the Darwin equivalents carry the BSD class bit.
const (
	linuxSysRead   = 0
	linuxSysWrite  = 1
	darwinSysRead  = 0x2000003
	darwinSysWrite = 0x2000004
)

type X86_64Backend struct {
	cfg CodegenConfig
}

func NewX86_64Backend(cfg CodegenConfig) *X86_64Backend {
	return &X86_64Backend{cfg: cfg}
}

func (b *X86_64Backend) Name() string { return "x86_64" }

func (b *X86_64Backend) sysRead() uint32 {
	if b.cfg.OS == OSDarwin {
		return darwinSysRead
	}
	return linuxSysRead
}

func (b *X86_64Backend) sysWrite() uint32 {
	if b.cfg.OS == OSDarwin {
		return darwinSysWrite
	}
	return linuxSysWrite
}

// Prologue receives the tape base in RDI and the profiler slot in RSI per
// the SysV integer argument order.
func (b *X86_64Backend) Prologue(a *Assembler) {
	a.WriteBytes(0x53)       // push rbx
	a.WriteBytes(0x41, 0x54) // push r12
	a.WriteBytes(0x41, 0x55) // push r13
	a.WriteBytes(0x41, 0x56) // push r14

	a.WriteBytes(0x48, 0x89, 0xFB) // mov rbx, rdi
	if off := int32(b.cfg.MemoryOffset); off != 0 {
		a.WriteBytes(0x48, 0x81, 0xC3) // add rbx, offset
		a.Write32(uint32(off))
	}
	if !b.cfg.Unsafe {
		a.WriteBytes(0x49, 0x89, 0xFC) // mov r12, rdi
		a.WriteBytes(0x49, 0x89, 0xFD) // mov r13, rdi
		a.WriteBytes(0x49, 0x81, 0xC5) // add r13, size
		a.Write32(uint32(b.cfg.MemorySize))
	}
	if b.cfg.Profiling {
		a.WriteBytes(0x49, 0x89, 0xF6) // mov r14, rsi
	}
}

func (b *X86_64Backend) Epilogue(a *Assembler) {
	a.WriteBytes(0x31, 0xC0) // xor eax, eax
	a.WriteBytes(0x41, 0x5E) // pop r14
	a.WriteBytes(0x41, 0x5D) // pop r13
	a.WriteBytes(0x41, 0x5C) // pop r12
	a.WriteBytes(0x5B)       // pop rbx
	a.WriteBytes(0xC3)       // ret
}

func (b *X86_64Backend) MovePtr(a *Assembler, count int32) {
	a.WriteBytes(0x48, 0x81, 0xC3) // add rbx, imm32
	a.Write32(uint32(count))
	if b.cfg.Unsafe {
		return
	}
	// cmp rbx, r12; jb trap; cmp rbx, r13; jb ok; trap: ud2; ok:
	a.WriteBytes(0x4C, 0x39, 0xE3)
	a.WriteBytes(0x72, 0x05)
	a.WriteBytes(0x4C, 0x39, 0xEB)
	a.WriteBytes(0x72, 0x02)
	a.WriteBytes(0x0F, 0x0B)
}

func (b *X86_64Backend) AddVal(a *Assembler, count int32, offset int32) {
	a.WriteBytes(0x80, 0x83) // add byte [rbx+disp32], imm8
	a.Write32(uint32(offset))
	a.WriteBytes(byte(count))
}

func (b *X86_64Backend) SetConst(a *Assembler, value int32, offset int32) {
	a.WriteBytes(0xC6, 0x83) // mov byte [rbx+disp32], imm8
	a.Write32(uint32(offset))
	a.WriteBytes(byte(value))
}

func (b *X86_64Backend) Output(a *Assembler, offset int32) {
	a.WriteBytes(0x48, 0x8D, 0xB3) // lea rsi, [rbx+disp32]
	a.Write32(uint32(offset))
	a.WriteBytes(0xBF, 0x01, 0x00, 0x00, 0x00) // mov edi, 1 (stdout)
	a.WriteBytes(0xBA, 0x01, 0x00, 0x00, 0x00) // mov edx, 1
	a.WriteBytes(0xB8)                         // mov eax, write
	a.Write32(b.sysWrite())
	a.WriteBytes(0x0F, 0x05) // syscall
}

// Input reads straight into the cell, so a zero-length read at end of input
// leaves the cell untouched.
func (b *X86_64Backend) Input(a *Assembler, offset int32) {
	a.WriteBytes(0x48, 0x8D, 0xB3) // lea rsi, [rbx+disp32]
	a.Write32(uint32(offset))
	a.WriteBytes(0x31, 0xFF)                   // xor edi, edi (stdin)
	a.WriteBytes(0xBA, 0x01, 0x00, 0x00, 0x00) // mov edx, 1
	a.WriteBytes(0xB8)                         // mov eax, read
	a.Write32(b.sysRead())
	a.WriteBytes(0x0F, 0x05) // syscall
}

func (b *X86_64Backend) Mul(a *Assembler, multiplier int32, srcOffset, dstOffset int32) {
	a.WriteBytes(0x0F, 0xB6, 0x83) // movzx eax, byte [rbx+src]
	a.Write32(uint32(srcOffset))
	a.WriteBytes(0x69, 0xC0) // imul eax, eax, imm32
	a.Write32(uint32(multiplier))
	a.WriteBytes(0x00, 0x83) // add [rbx+dst], al
	a.Write32(uint32(dstOffset))
}

func (b *X86_64Backend) CopyCell(a *Assembler, srcOffset, dstOffset int32) {
	a.WriteBytes(0x0F, 0xB6, 0x83) // movzx eax, byte [rbx+src]
	a.Write32(uint32(srcOffset))
	a.WriteBytes(0x00, 0x83) // add [rbx+dst], al
	a.Write32(uint32(dstOffset))
}

func (b *X86_64Backend) LoopTest(a *Assembler, end Label) {
	a.WriteBytes(0x80, 0x3B, 0x00) // cmp byte [rbx], 0
	a.WriteBytes(0x0F, 0x84)       // je rel32
	a.AddPatch(patchRel32, a.Here(), end)
	a.Write32(0)
}

func (b *X86_64Backend) LoopBack(a *Assembler, start Label) {
	a.WriteBytes(0xE9) // jmp rel32
	a.AddPatch(patchRel32, a.Here(), start)
	a.Write32(0)
}

func (b *X86_64Backend) DebugLabel(a *Assembler, l Label) {
	if !b.cfg.Profiling {
		return
	}
	a.WriteBytes(0x41, 0xC7, 0x06) // mov dword [r14], imm32
	a.AddPatch(patchAbs32, a.Here(), l)
	a.Write32(0)
}
