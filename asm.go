// Completion: 100% - Assembler state machine complete with label patching
package main

import (
	"encoding/binary"
	"fmt"
)

// Label is an opaque handle for a code position, resolved to a byte offset
// when the assembler links.
type Label int

const unboundOffset = -1

type patchKind int

const (
	// patchRel32 is an x86-64 little-endian imm32 at pos, relative to the
	// end of the immediate (pos+4).
	patchRel32 patchKind = iota
	// patchAbs32 is an x86-64 little-endian imm32 at pos holding the
	// label's absolute code offset.
	patchAbs32
	// patchBranch26 is an AArch64 B instruction word at pos; the word
	// offset to the target fills bits 0..25.
	patchBranch26
	// patchBranch19 is an AArch64 B.cond/CBZ/CBNZ word at pos; the word
	// offset fills bits 5..23.
	patchBranch19
	// patchMovPair32 is an AArch64 MOVZ at pos plus MOVK at pos+4; the
	// label's absolute code offset fills the two imm16 fields.
	patchMovPair32
)

type patch struct {
	pos   int
	label Label
	kind  patchKind
}

type asmState int

const (
	asmEmitting asmState = iota
	asmLinked
	asmEncoded
)

// Assembler accumulates machine code and PC-labels. The lifecycle is
// strictly ordered: emit and bind, then Link (which patches all branch and
// offset sites and freezes the buffer), then Resolve for any label offsets
// the caller needs, then Encode exactly once into the destination mapping.
// Out-of-order calls are errors.
type Assembler struct {
	buf     []byte
	labels  []int
	patches []patch
	state   asmState
}

// NewAssembler creates an assembler with capacity reserved for the given
// number of labels.
func NewAssembler(reserveLabels int) *Assembler {
	return &Assembler{
		buf:    make([]byte, 0, 4096),
		labels: make([]int, 0, reserveLabels),
	}
}

// NewLabel allocates a fresh unbound label from the monotonic pool.
func (a *Assembler) NewLabel() Label {
	a.labels = append(a.labels, unboundOffset)
	return Label(len(a.labels) - 1)
}

// Bind attaches the label to the current code position.
func (a *Assembler) Bind(l Label) {
	if a.state != asmEmitting {
		panic("assembler: Bind after Link")
	}
	if a.labels[l] != unboundOffset {
		panic(fmt.Sprintf("assembler: label %d bound twice", l))
	}
	a.labels[l] = len(a.buf)
}

// Here reports the current code offset.
func (a *Assembler) Here() int {
	return len(a.buf)
}

func (a *Assembler) WriteBytes(bs ...byte) {
	if a.state != asmEmitting {
		panic("assembler: emit after Link")
	}
	a.buf = append(a.buf, bs...)
}

// Write32 appends a little-endian 32-bit value (an AArch64 instruction word
// or an x86-64 immediate).
func (a *Assembler) Write32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.WriteBytes(b[:]...)
}

// AddPatch records a site to fix up at link time. pos addresses the first
// byte the patch rewrites.
func (a *Assembler) AddPatch(kind patchKind, pos int, l Label) {
	if a.state != asmEmitting {
		panic("assembler: AddPatch after Link")
	}
	a.patches = append(a.patches, patch{pos: pos, label: l, kind: kind})
}

// Link applies every recorded patch and freezes the buffer, returning the
// final code size. After Link no further emission is accepted.
func (a *Assembler) Link() (int, error) {
	if a.state != asmEmitting {
		return 0, fmt.Errorf("assembler: Link called twice")
	}
	for _, p := range a.patches {
		target := a.labels[p.label]
		if target == unboundOffset {
			return 0, fmt.Errorf("assembler: unbound label %d referenced at offset %d", p.label, p.pos)
		}
		switch p.kind {
		case patchRel32:
			disp := int32(target - (p.pos + 4))
			binary.LittleEndian.PutUint32(a.buf[p.pos:], uint32(disp))
		case patchAbs32:
			binary.LittleEndian.PutUint32(a.buf[p.pos:], uint32(target))
		case patchBranch26:
			words := int32(target-p.pos) / 4
			w := binary.LittleEndian.Uint32(a.buf[p.pos:])
			w |= uint32(words) & 0x03FFFFFF
			binary.LittleEndian.PutUint32(a.buf[p.pos:], w)
		case patchBranch19:
			words := int32(target-p.pos) / 4
			w := binary.LittleEndian.Uint32(a.buf[p.pos:])
			w |= (uint32(words) & 0x7FFFF) << 5
			binary.LittleEndian.PutUint32(a.buf[p.pos:], w)
		case patchMovPair32:
			off := uint32(target)
			movz := binary.LittleEndian.Uint32(a.buf[p.pos:])
			movz |= (off & 0xFFFF) << 5
			binary.LittleEndian.PutUint32(a.buf[p.pos:], movz)
			movk := binary.LittleEndian.Uint32(a.buf[p.pos+4:])
			movk |= (off >> 16) << 5
			binary.LittleEndian.PutUint32(a.buf[p.pos+4:], movk)
		}
	}
	a.state = asmLinked
	return len(a.buf), nil
}

// Resolve returns the code offset of a bound label. Only valid between Link
// and Encode, matching the rule that label resolution precedes encoding.
func (a *Assembler) Resolve(l Label) (int, error) {
	if a.state != asmLinked {
		return 0, fmt.Errorf("assembler: Resolve is only valid between Link and Encode")
	}
	off := a.labels[l]
	if off == unboundOffset {
		return 0, fmt.Errorf("assembler: label %d never bound", l)
	}
	return off, nil
}

// Encode copies the linked code into dst, which must be at least the size
// Link reported. Encode consumes the assembler; it can run only once.
func (a *Assembler) Encode(dst []byte) error {
	if a.state != asmLinked {
		return fmt.Errorf("assembler: Encode requires exactly one prior Link")
	}
	if len(dst) < len(a.buf) {
		return fmt.Errorf("assembler: destination too small: %d < %d", len(dst), len(a.buf))
	}
	copy(dst, a.buf)
	a.state = asmEncoded
	return nil
}

// Bytes exposes the linked code for debugging dumps.
func (a *Assembler) Bytes() []byte {
	return a.buf
}
