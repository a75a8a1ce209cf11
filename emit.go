// Completion: 100% - IR-to-machine-code emission with debug label tracking
package main

// Emitter drives a Backend over the IR tree, owning the label pool for loop
// control flow and, when tracking is on, one debug label per node so the
// debug map and the profiler can attribute code positions back to IR.
type Emitter struct {
	asm     *Assembler
	backend Backend
	debug   *DebugMap
	stack   []*Node
}

// NewEmitter prepares emission for the given backend. When track is true a
// debug map is built alongside the code; nodeCount sizes the label pool.
func NewEmitter(backend Backend, track bool, nodeCount int) *Emitter {
	reserve := 2 * MaxNesting
	var dbg *DebugMap
	if track {
		reserve += nodeCount
		dbg = NewDebugMap(nodeCount)
	}
	return &Emitter{
		asm:     NewAssembler(reserve),
		backend: backend,
		debug:   dbg,
	}
}

// DebugMap returns the map built during emission, or nil when tracking was
// off.
func (e *Emitter) DebugMap() *DebugMap { return e.debug }

// Assembler exposes the underlying assembler for encoding and dumping.
func (e *Emitter) Assembler() *Assembler { return e.asm }

// Emit lowers the whole program and links it, returning the code size.
func (e *Emitter) Emit(nodes []*Node) (int, error) {
	e.backend.Prologue(e.asm)
	for _, n := range nodes {
		e.emitNode(n)
	}
	e.backend.Epilogue(e.asm)
	size, err := e.asm.Link()
	if err != nil {
		return 0, err
	}
	if e.debug != nil {
		if err := e.debug.ResolveAll(e.asm); err != nil {
			return 0, err
		}
	}
	return size, nil
}

func (e *Emitter) emitNode(n *Node) {
	if n.Kind == NodeLoop {
		start := e.asm.NewLabel()
		end := e.asm.NewLabel()
		e.asm.Bind(start)
		// The debug label sits inside the loop head so every iteration
		// re-reports the loop before its body runs.
		e.mark(n)
		e.backend.LoopTest(e.asm, end)
		e.stack = append(e.stack, n)
		for _, c := range n.Body {
			e.emitNode(c)
		}
		e.stack = e.stack[:len(e.stack)-1]
		e.backend.LoopBack(e.asm, start)
		e.asm.Bind(end)
		return
	}

	e.mark(n)
	switch n.Kind {
	case NodeMovePtr:
		e.backend.MovePtr(e.asm, n.Count)
	case NodeAddVal:
		e.backend.AddVal(e.asm, n.Count, n.Offset)
	case NodeOutput:
		e.backend.Output(e.asm, n.Offset)
	case NodeInput:
		e.backend.Input(e.asm, n.Offset)
	case NodeSetConst:
		e.backend.SetConst(e.asm, n.Value, n.Offset)
	case NodeMul:
		e.backend.Mul(e.asm, n.Multiplier, n.SrcOffset, n.DstOffset)
	case NodeCopyCell:
		e.backend.CopyCell(e.asm, n.SrcOffset, n.DstOffset)
	}
}

// mark binds a fresh label at the current position, emits the hub store for
// it, and records the node with its enclosing loop chain in the debug map.
func (e *Emitter) mark(n *Node) {
	if e.debug == nil {
		return
	}
	l := e.asm.NewLabel()
	e.asm.Bind(l)
	e.backend.DebugLabel(e.asm, l)
	e.debug.Add(l, n, e.stack)
}
