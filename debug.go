// Completion: 100% - Debug map with offset resolution and position lookup
package main

import (
	"fmt"
	"io"
)

// DebugEntry associates a code offset with the IR node emitted there, plus
// the chain of loops enclosing that node, outermost first.
type DebugEntry struct {
	label  Label
	Offset int
	Node   *Node
	Stack  []*Node
}

// DebugMap records one entry per emitted node, in emission order, which
// keeps the entries sorted by code offset once resolved.
type DebugMap struct {
	entries []DebugEntry
}

func NewDebugMap(reserve int) *DebugMap {
	return &DebugMap{entries: make([]DebugEntry, 0, reserve)}
}

// Add records a node under a still-unresolved label. stack is copied, since
// the emitter mutates its loop chain in place.
func (m *DebugMap) Add(l Label, n *Node, stack []*Node) {
	var chain []*Node
	if len(stack) > 0 {
		chain = make([]*Node, len(stack))
		copy(chain, stack)
	}
	m.entries = append(m.entries, DebugEntry{label: l, Node: n, Stack: chain})
}

// ResolveAll fills in the byte offsets once the assembler has linked.
func (m *DebugMap) ResolveAll(a *Assembler) error {
	for i := range m.entries {
		off, err := a.Resolve(m.entries[i].label)
		if err != nil {
			return err
		}
		m.entries[i].Offset = off
	}
	return nil
}

// FindByOffset returns the entry covering the given code offset: the last
// entry at or before it. A linear scan is fine at the rates the sampler
// runs; the map has one entry per IR node.
func (m *DebugMap) FindByOffset(off int) *DebugEntry {
	var found *DebugEntry
	for i := range m.entries {
		if m.entries[i].Offset > off {
			break
		}
		found = &m.entries[i]
	}
	return found
}

// Len reports the number of recorded entries.
func (m *DebugMap) Len() int { return len(m.entries) }

// Dump writes the resolved map, one entry per line.
func (m *DebugMap) Dump(w io.Writer) {
	fmt.Fprintf(w, "debug map: %d entries\n", len(m.entries))
	for i := range m.entries {
		e := &m.entries[i]
		if s := e.Node.PayloadSummary(); s != "" {
			fmt.Fprintf(w, "  %#06x  %s (%s) at %d:%d\n", e.Offset, e.Node.Kind, s, e.Node.Line, e.Node.Column)
		} else {
			fmt.Fprintf(w, "  %#06x  %s at %d:%d\n", e.Offset, e.Node.Kind, e.Node.Line, e.Node.Column)
		}
	}
}
