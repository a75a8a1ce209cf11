// Completion: 100% - AArch64 encoding tests pass
package main

import (
	"encoding/binary"
	"testing"
)

func a64Words(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words
}

func a64Emit(cfg CodegenConfig, emit func(b *ARM64Backend, a *Assembler)) []uint32 {
	a := NewAssembler(4)
	emit(NewARM64Backend(cfg), a)
	return a64Words(a.Bytes())
}

func wordsEqual(t *testing.T, got, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d words % 08x, want %d words % 08x", len(got), got, len(want), want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("word %d: got %#08x, want %#08x", i, got[i], want[i])
		}
	}
}

func TestARM64AddValCurrentCell(t *testing.T) {
	got := a64Emit(CodegenConfig{}, func(b *ARM64Backend, a *Assembler) {
		b.AddVal(a, 1, 0)
	})
	wordsEqual(t, got, []uint32{
		0x39400269, // ldrb w9, [x19]
		0x11000529, // add w9, w9, #1
		0x39000269, // strb w9, [x19]
	})
}

func TestARM64AddValOffsetAndWrap(t *testing.T) {
	got := a64Emit(CodegenConfig{}, func(b *ARM64Backend, a *Assembler) {
		b.AddVal(a, -1, 2)
	})
	wordsEqual(t, got, []uint32{
		0x91000A6C, // add x12, x19, #2
		0x39400189, // ldrb w9, [x12]
		0x1103FD29, // add w9, w9, #255
		0x39000189, // strb w9, [x12]
	})
}

func TestARM64SetConstNegativeOffset(t *testing.T) {
	got := a64Emit(CodegenConfig{}, func(b *ARM64Backend, a *Assembler) {
		b.SetConst(a, 0, -3)
	})
	wordsEqual(t, got, []uint32{
		0xD1000E6C, // sub x12, x19, #3
		0x52800009, // movz w9, #0
		0x39000189, // strb w9, [x12]
	})
}

func TestARM64MovePtrGuarded(t *testing.T) {
	got := a64Emit(CodegenConfig{}, func(b *ARM64Backend, a *Assembler) {
		b.MovePtr(a, -1)
	})
	wordsEqual(t, got, []uint32{
		0xD1000673, // sub x19, x19, #1
		0xEB14027F, // cmp x19, x20
		0x54000063, // b.lo trap
		0xEB15027F, // cmp x19, x21
		0x54000043, // b.lo past
		0xD4200000, // brk #0
	})
}

func TestARM64MovePtrUnsafe(t *testing.T) {
	got := a64Emit(CodegenConfig{Unsafe: true}, func(b *ARM64Backend, a *Assembler) {
		b.MovePtr(a, 5)
	})
	wordsEqual(t, got, []uint32{0x91001673}) // add x19, x19, #5
}

func TestARM64OutputLinux(t *testing.T) {
	got := a64Emit(CodegenConfig{OS: OSLinux}, func(b *ARM64Backend, a *Assembler) {
		b.Output(a, 0)
	})
	wordsEqual(t, got, []uint32{
		0xAA1303E1, // mov x1, x19
		0xD2800020, // mov x0, #1
		0xD2800022, // mov x2, #1
		0xD2800808, // mov x8, #64
		0xD4000001, // svc #0
	})
}

func TestARM64InputDarwin(t *testing.T) {
	got := a64Emit(CodegenConfig{OS: OSDarwin}, func(b *ARM64Backend, a *Assembler) {
		b.Input(a, 0)
	})
	wordsEqual(t, got, []uint32{
		0xAA1303E1, // mov x1, x19
		0xD2800000, // mov x0, #0
		0xD2800022, // mov x2, #1
		0xD2800070, // mov x16, #3
		0xD4001001, // svc #0x80
	})
}

func TestARM64LoopBranches(t *testing.T) {
	b := NewARM64Backend(CodegenConfig{Unsafe: true})
	a := NewAssembler(2)
	start := a.NewLabel()
	end := a.NewLabel()
	a.Bind(start)
	b.LoopTest(a, end)
	b.AddVal(a, -1, 0)
	b.LoopBack(a, start)
	a.Bind(end)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	words := a64Words(a.Bytes())
	if len(words) != 6 {
		t.Fatalf("got %d words, want 6", len(words))
	}
	// cbz at word 1 skips forward 5 words to the end.
	if words[1] != 0x34000009|(5<<5) {
		t.Fatalf("cbz word %#08x", words[1])
	}
	// b at word 5 jumps back 5 words to the start.
	offset := int32(-5)
	if words[5] != 0x14000000|(uint32(offset)&0x03FFFFFF) {
		t.Fatalf("b word %#08x", words[5])
	}
}

func TestARM64PrologueEpilogue(t *testing.T) {
	b := NewARM64Backend(CodegenConfig{Unsafe: true, MemoryOffset: 0})
	a := NewAssembler(0)
	b.Prologue(a)
	b.Epilogue(a)
	wordsEqual(t, a64Words(a.Bytes()), []uint32{
		0xA9BF7BFD, // stp x29, x30, [sp, #-16]!
		0xA9BF53F3, // stp x19, x20, [sp, #-16]!
		0xA9BF5BF5, // stp x21, x22, [sp, #-16]!
		0x910003FD, // mov x29, sp
		0xAA0003F3, // mov x19, x0
		0xD2800000, // mov x0, #0
		0xA8C15BF5, // ldp x21, x22, [sp], #16
		0xA8C153F3, // ldp x19, x20, [sp], #16
		0xA8C17BFD, // ldp x29, x30, [sp], #16
		0xD65F03C0, // ret
	})
}

func TestARM64PrologueGuardedWithProfiling(t *testing.T) {
	b := NewARM64Backend(CodegenConfig{MemorySize: 65536, MemoryOffset: 4096, Profiling: true})
	a := NewAssembler(0)
	b.Prologue(a)
	wordsEqual(t, a64Words(a.Bytes()), []uint32{
		0xA9BF7BFD, // stp x29, x30, [sp, #-16]!
		0xA9BF53F3, // stp x19, x20, [sp, #-16]!
		0xA9BF5BF5, // stp x21, x22, [sp, #-16]!
		0x910003FD, // mov x29, sp
		0x91400413, // add x19, x0, #1, lsl #12
		0xAA0003F4, // mov x20, x0
		0x91404015, // add x21, x0, #16, lsl #12
		0xAA0103F6, // mov x22, x1
	})
}

func TestARM64DebugLabelStore(t *testing.T) {
	b := NewARM64Backend(CodegenConfig{Profiling: true})
	a := NewAssembler(1)
	a.Write32(0xD503201F) // nop, so the label offset is nonzero
	l := a.NewLabel()
	a.Bind(l)
	b.DebugLabel(a, l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	words := a64Words(a.Bytes())
	if words[1] != a64MovzW(9, 4) {
		t.Fatalf("movz word %#08x", words[1])
	}
	if words[2] != a64MovkW(9, 0) {
		t.Fatalf("movk word %#08x", words[2])
	}
	if words[3] != 0xB90002C9 { // str w9, [x22]
		t.Fatalf("str word %#08x", words[3])
	}
}
