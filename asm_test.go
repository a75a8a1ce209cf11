// Completion: 100% - Assembler lifecycle and patch tests pass
package main

import (
	"encoding/binary"
	"testing"
)

func TestAssemblerRel32Patch(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.WriteBytes(0x0F, 0x84)
	a.AddPatch(patchRel32, a.Here(), l)
	a.Write32(0)
	a.WriteBytes(0x90, 0x90, 0x90)
	a.Bind(l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	disp := int32(binary.LittleEndian.Uint32(a.Bytes()[2:]))
	// Target is offset 9, immediate ends at offset 6.
	if disp != 3 {
		t.Fatalf("got displacement %d, want 3", disp)
	}
}

func TestAssemblerBackwardRel32(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.Bind(l)
	a.WriteBytes(0x90)
	a.WriteBytes(0xE9)
	a.AddPatch(patchRel32, a.Here(), l)
	a.Write32(0)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	disp := int32(binary.LittleEndian.Uint32(a.Bytes()[2:]))
	if disp != -6 {
		t.Fatalf("got displacement %d, want -6", disp)
	}
}

func TestAssemblerAbs32Patch(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.AddPatch(patchAbs32, a.Here(), l)
	a.Write32(0)
	a.WriteBytes(0x90, 0x90)
	a.Bind(l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	if v := binary.LittleEndian.Uint32(a.Bytes()); v != 6 {
		t.Fatalf("got absolute offset %d, want 6", v)
	}
}

func TestAssemblerBranch26Patch(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.Bind(l)
	a.Write32(0xD503201F) // nop
	a.AddPatch(patchBranch26, a.Here(), l)
	a.Write32(0x14000000)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	w := binary.LittleEndian.Uint32(a.Bytes()[4:])
	// Word offset -1 occupies all 26 bits.
	if w != 0x17FFFFFF {
		t.Fatalf("got %#08x, want 0x17ffffff", w)
	}
}

func TestAssemblerBranch19Patch(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.AddPatch(patchBranch19, a.Here(), l)
	a.Write32(0x34000009) // cbz w9
	a.Write32(0xD503201F)
	a.Write32(0xD503201F)
	a.Bind(l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	w := binary.LittleEndian.Uint32(a.Bytes())
	if w != 0x34000009|(3<<5) {
		t.Fatalf("got %#08x, want word offset 3 in bits 5..23", w)
	}
}

func TestAssemblerMovPairPatch(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.AddPatch(patchMovPair32, a.Here(), l)
	a.Write32(a64MovzW(9, 0))
	a.Write32(a64MovkW(9, 0))
	for i := 0; i < 0x12345/4+1; i++ {
		a.Write32(0xD503201F)
	}
	a.Bind(l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	target, err := a.Resolve(l)
	if err != nil {
		t.Fatal(err)
	}
	movz := binary.LittleEndian.Uint32(a.Bytes())
	movk := binary.LittleEndian.Uint32(a.Bytes()[4:])
	lo := (movz >> 5) & 0xFFFF
	hi := (movk >> 5) & 0xFFFF
	if int(hi<<16|lo) != target {
		t.Fatalf("reassembled %#x, want %#x", hi<<16|lo, target)
	}
}

func TestAssemblerUnboundLabelFails(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.WriteBytes(0xE9)
	a.AddPatch(patchRel32, a.Here(), l)
	a.Write32(0)
	if _, err := a.Link(); err == nil {
		t.Fatal("expected unbound label error")
	}
}

func TestAssemblerLifecycle(t *testing.T) {
	a := NewAssembler(1)
	l := a.NewLabel()
	a.Bind(l)
	a.WriteBytes(0xC3)

	if _, err := a.Resolve(l); err == nil {
		t.Fatal("Resolve before Link must fail")
	}
	size, err := a.Link()
	if err != nil || size != 1 {
		t.Fatalf("Link: size %d, err %v", size, err)
	}
	if _, err := a.Link(); err == nil {
		t.Fatal("second Link must fail")
	}
	if off, err := a.Resolve(l); err != nil || off != 0 {
		t.Fatalf("Resolve: off %d, err %v", off, err)
	}

	dst := make([]byte, 1)
	if err := a.Encode(dst); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 0xC3 {
		t.Fatalf("encoded %#x", dst[0])
	}
	if err := a.Encode(dst); err == nil {
		t.Fatal("second Encode must fail")
	}
	if _, err := a.Resolve(l); err == nil {
		t.Fatal("Resolve after Encode must fail")
	}
}

func TestAssemblerEncodeChecksSize(t *testing.T) {
	a := NewAssembler(0)
	a.WriteBytes(1, 2, 3, 4)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	if err := a.Encode(make([]byte, 2)); err == nil {
		t.Fatal("expected destination-too-small error")
	}
}

func TestAssemblerBindAfterLinkPanics(t *testing.T) {
	a := NewAssembler(2)
	l := a.NewLabel()
	a.Bind(l)
	if _, err := a.Link(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	a.Bind(a.NewLabel())
}
