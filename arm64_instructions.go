// Completion: 100% - AArch64 instruction word builders done
package main

// arm64_instructions.go - AArch64 instruction word construction
//
// Each function returns one little-endian instruction word. Register
// arguments are plain register numbers; 31 means XZR/WZR where the
// encoding allows it.

func a64MovzX(rd int, imm16 uint32, hw int) uint32 {
	return 0xD2800000 | uint32(hw)<<21 | imm16<<5 | uint32(rd)
}

func a64MovkX(rd int, imm16 uint32, hw int) uint32 {
	return 0xF2800000 | uint32(hw)<<21 | imm16<<5 | uint32(rd)
}

func a64MovzW(rd int, imm16 uint32) uint32 {
	return 0x52800000 | imm16<<5 | uint32(rd)
}

func a64MovkW(rd int, imm16 uint32) uint32 {
	return 0x72A00000 | imm16<<5 | uint32(rd) // LSL #16
}

func a64AddXImm(rd, rn int, imm12 uint32) uint32 {
	return 0x91000000 | imm12<<10 | uint32(rn)<<5 | uint32(rd)
}

// a64AddXImmLSL12 is ADD Xd, Xn, #imm12, LSL #12 for page-multiple
// distances.
func a64AddXImmLSL12(rd, rn int, imm12 uint32) uint32 {
	return 0x91400000 | imm12<<10 | uint32(rn)<<5 | uint32(rd)
}

func a64SubXImm(rd, rn int, imm12 uint32) uint32 {
	return 0xD1000000 | imm12<<10 | uint32(rn)<<5 | uint32(rd)
}

func a64AddXReg(rd, rn, rm int) uint32 {
	return 0x8B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// a64MovXReg is ORR Xd, XZR, Xm, the canonical register move.
func a64MovXReg(rd, rm int) uint32 {
	return 0xAA0003E0 | uint32(rm)<<16 | uint32(rd)
}

func a64AddWImm(rd, rn int, imm12 uint32) uint32 {
	return 0x11000000 | imm12<<10 | uint32(rn)<<5 | uint32(rd)
}

func a64AddWReg(rd, rn, rm int) uint32 {
	return 0x0B000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// a64MulW is MADD Wd, Wn, Wm, WZR.
func a64MulW(rd, rn, rm int) uint32 {
	return 0x1B007C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

// a64Ldrb loads a byte at [Xn] with zero offset.
func a64Ldrb(rt, rn int) uint32 {
	return 0x39400000 | uint32(rn)<<5 | uint32(rt)
}

func a64Strb(rt, rn int) uint32 {
	return 0x39000000 | uint32(rn)<<5 | uint32(rt)
}

// a64StrW stores Wt at [Xn] with zero offset.
func a64StrW(rt, rn int) uint32 {
	return 0xB9000000 | uint32(rn)<<5 | uint32(rt)
}

// a64CmpXX is SUBS XZR, Xn, Xm.
func a64CmpXX(rn, rm int) uint32 {
	return 0xEB00001F | uint32(rm)<<16 | uint32(rn)<<5
}

// a64BLo is B.LO with a word offset known at emission time.
func a64BLo(words int32) uint32 {
	return 0x54000003 | (uint32(words)&0x7FFFF)<<5
}

const (
	a64StpX29X30Pre = 0xA9BF7BFD // stp x29, x30, [sp, #-16]!
	a64StpX19X20Pre = 0xA9BF53F3 // stp x19, x20, [sp, #-16]!
	a64StpX21X22Pre = 0xA9BF5BF5 // stp x21, x22, [sp, #-16]!
	a64MovX29SP     = 0x910003FD // mov x29, sp
	a64LdpX21X22    = 0xA8C15BF5 // ldp x21, x22, [sp], #16
	a64LdpX19X20    = 0xA8C153F3 // ldp x19, x20, [sp], #16
	a64LdpX29X30    = 0xA8C17BFD // ldp x29, x30, [sp], #16
	a64Ret          = 0xD65F03C0
	a64Brk0         = 0xD4200000 // brk #0
	a64SvcLinux     = 0xD4000001 // svc #0
	a64SvcDarwin    = 0xD4001001 // svc #0x80
)

// a64LoadImm64 materializes a full 64-bit constant into Xd with one MOVZ
// and up to three MOVKs, skipping all-zero chunks after the first.
func a64LoadImm64(a *Assembler, rd int, v uint64) {
	a.Write32(a64MovzX(rd, uint32(v&0xFFFF), 0))
	for hw := 1; hw < 4; hw++ {
		chunk := uint32((v >> (16 * hw)) & 0xFFFF)
		if chunk != 0 {
			a.Write32(a64MovkX(rd, chunk, hw))
		}
	}
}
