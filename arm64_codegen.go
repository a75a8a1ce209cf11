// Completion: 100% - AArch64 code generation with bounds guards and syscall I/O
package main

// arm64_codegen.go - AAPCS64 code generation
//
// Register plan (callee-saved, preserved around any host library call):
//
//	X19  cell cursor
//	X20  first valid tape address (bounds check)
//	X21  one past the last valid tape address (bounds check)
//	X22  profiler hub slot address
//
// W9-W11 hold cell values and products, X12/X13 hold computed cell
// addresses, X15 stages large immediates. X0-X2 and X8/X16 are the
// syscall argument and number registers.

const (
	a64RegCursor = 19
	a64RegLow    = 20
	a64RegHigh   = 21
	a64RegHub    = 22
)

// Linux AArch64 syscall numbers; Darwin keeps the classic BSD ones and
// takes the number in X16 with svc #0x80 instead of X8 with svc #0.
const (
	linuxArmSysRead  = 63
	linuxArmSysWrite = 64
	darwinArmSysRead = 3
	darwinArmSysWrit = 4
)

type ARM64Backend struct {
	cfg CodegenConfig
}

func NewARM64Backend(cfg CodegenConfig) *ARM64Backend {
	return &ARM64Backend{cfg: cfg}
}

func (b *ARM64Backend) Name() string { return "aarch64" }

// advance adds a non-negative compile-time distance to rd, starting from
// rn. Distances beyond the plain immediate form go through the shifted
// form or a staged constant.
func (b *ARM64Backend) advance(a *Assembler, rd, rn int, dist int) {
	switch {
	case dist == 0:
		if rd != rn {
			a.Write32(a64MovXReg(rd, rn))
		}
	case dist < 4096:
		a.Write32(a64AddXImm(rd, rn, uint32(dist)))
	case dist&0xFFF == 0 && dist>>12 < 4096:
		a.Write32(a64AddXImmLSL12(rd, rn, uint32(dist>>12)))
	default:
		a64LoadImm64(a, 15, uint64(dist))
		a.Write32(a64AddXReg(rd, rn, 15))
	}
}

// Prologue receives the tape base in X0 and the profiler slot in X1 per
// AAPCS64.
func (b *ARM64Backend) Prologue(a *Assembler) {
	a.Write32(a64StpX29X30Pre)
	a.Write32(a64StpX19X20Pre)
	a.Write32(a64StpX21X22Pre)
	a.Write32(a64MovX29SP)

	b.advance(a, a64RegCursor, 0, b.cfg.MemoryOffset)
	if !b.cfg.Unsafe {
		a.Write32(a64MovXReg(a64RegLow, 0))
		b.advance(a, a64RegHigh, 0, b.cfg.MemorySize)
	}
	if b.cfg.Profiling {
		a.Write32(a64MovXReg(a64RegHub, 1))
	}
}

func (b *ARM64Backend) Epilogue(a *Assembler) {
	a.Write32(a64MovzX(0, 0, 0)) // mov x0, #0
	a.Write32(a64LdpX21X22)
	a.Write32(a64LdpX19X20)
	a.Write32(a64LdpX29X30)
	a.Write32(a64Ret)
}

// cellAddr leaves the address of the cell at offset in a register and
// reports which one: the cursor itself for offset zero, otherwise scratch.
func (b *ARM64Backend) cellAddr(a *Assembler, scratch int, offset int32) int {
	switch {
	case offset == 0:
		return a64RegCursor
	case offset > 0 && offset < 4096:
		a.Write32(a64AddXImm(scratch, a64RegCursor, uint32(offset)))
	case offset < 0 && offset > -4096:
		a.Write32(a64SubXImm(scratch, a64RegCursor, uint32(-offset)))
	default:
		a64LoadImm64(a, 15, uint64(int64(offset)))
		a.Write32(a64AddXReg(scratch, a64RegCursor, 15))
	}
	return scratch
}

func (b *ARM64Backend) MovePtr(a *Assembler, count int32) {
	switch {
	case count > 0 && count < 4096:
		a.Write32(a64AddXImm(a64RegCursor, a64RegCursor, uint32(count)))
	case count < 0 && count > -4096:
		a.Write32(a64SubXImm(a64RegCursor, a64RegCursor, uint32(-count)))
	case count != 0:
		a64LoadImm64(a, 15, uint64(int64(count)))
		a.Write32(a64AddXReg(a64RegCursor, a64RegCursor, 15))
	}
	if b.cfg.Unsafe {
		return
	}
	// cmp cursor, low; b.lo trap; cmp cursor, high; b.lo past; trap: brk
	a.Write32(a64CmpXX(a64RegCursor, a64RegLow))
	a.Write32(a64BLo(3))
	a.Write32(a64CmpXX(a64RegCursor, a64RegHigh))
	a.Write32(a64BLo(2))
	a.Write32(a64Brk0)
}

func (b *ARM64Backend) AddVal(a *Assembler, count int32, offset int32) {
	rn := b.cellAddr(a, 12, offset)
	a.Write32(a64Ldrb(9, rn))
	// Stores truncate to the cell width, so adding count mod 256 is exact.
	a.Write32(a64AddWImm(9, 9, uint32(count)&0xFF))
	a.Write32(a64Strb(9, rn))
}

func (b *ARM64Backend) SetConst(a *Assembler, value int32, offset int32) {
	rn := b.cellAddr(a, 12, offset)
	a.Write32(a64MovzW(9, uint32(value)&0xFF))
	a.Write32(a64Strb(9, rn))
}

func (b *ARM64Backend) emitSyscall(a *Assembler, linuxNum, darwinNum uint32) {
	if b.cfg.OS == OSDarwin {
		a.Write32(a64MovzX(16, darwinNum, 0))
		a.Write32(a64SvcDarwin)
	} else {
		a.Write32(a64MovzX(8, linuxNum, 0))
		a.Write32(a64SvcLinux)
	}
}

func (b *ARM64Backend) Output(a *Assembler, offset int32) {
	src := b.cellAddr(a, 1, offset)
	if src != 1 {
		a.Write32(a64MovXReg(1, src))
	}
	a.Write32(a64MovzX(0, 1, 0)) // stdout
	a.Write32(a64MovzX(2, 1, 0)) // one byte
	b.emitSyscall(a, linuxArmSysWrite, darwinArmSysWrit)
}

// Input reads straight into the cell, so a zero-length read at end of input
// leaves the cell untouched.
func (b *ARM64Backend) Input(a *Assembler, offset int32) {
	src := b.cellAddr(a, 1, offset)
	if src != 1 {
		a.Write32(a64MovXReg(1, src))
	}
	a.Write32(a64MovzX(0, 0, 0)) // stdin
	a.Write32(a64MovzX(2, 1, 0)) // one byte
	b.emitSyscall(a, linuxArmSysRead, darwinArmSysRead)
}

func (b *ARM64Backend) Mul(a *Assembler, multiplier int32, srcOffset, dstOffset int32) {
	rs := b.cellAddr(a, 12, srcOffset)
	a.Write32(a64Ldrb(9, rs))
	a.Write32(a64MovzW(10, uint32(multiplier)&0xFFFF))
	a.Write32(a64MulW(9, 9, 10))
	rd := b.cellAddr(a, 13, dstOffset)
	a.Write32(a64Ldrb(11, rd))
	a.Write32(a64AddWReg(9, 11, 9))
	a.Write32(a64Strb(9, rd))
}

func (b *ARM64Backend) CopyCell(a *Assembler, srcOffset, dstOffset int32) {
	rs := b.cellAddr(a, 12, srcOffset)
	a.Write32(a64Ldrb(9, rs))
	rd := b.cellAddr(a, 13, dstOffset)
	a.Write32(a64Ldrb(11, rd))
	a.Write32(a64AddWReg(9, 11, 9))
	a.Write32(a64Strb(9, rd))
}

func (b *ARM64Backend) LoopTest(a *Assembler, end Label) {
	a.Write32(a64Ldrb(9, a64RegCursor))
	a.AddPatch(patchBranch19, a.Here(), end)
	a.Write32(0x34000009) // cbz w9, end
}

func (b *ARM64Backend) LoopBack(a *Assembler, start Label) {
	a.AddPatch(patchBranch26, a.Here(), start)
	a.Write32(0x14000000) // b start
}

func (b *ARM64Backend) DebugLabel(a *Assembler, l Label) {
	if !b.cfg.Profiling {
		return
	}
	a.AddPatch(patchMovPair32, a.Here(), l)
	a.Write32(a64MovzW(9, 0))
	a.Write32(a64MovkW(9, 0))
	a.Write32(a64StrW(9, a64RegHub))
}
