// Completion: 100% - Peephole and loop-pattern optimization implemented and working
package main

// optimizer.go - IR optimization passes
//
// Two passes run over the tree, in order:
//  1. Sequence rewriting: within each maximal loop-free run of siblings,
//     pointer movement is folded into the cell offsets of the other nodes,
//     leaving at most one residual MOVE_PTR per run.
//  2. A fixed-point local rewriter: run-length folding, clear-loop and
//     multiplication-loop lowering, offset-add collapse, and constant
//     coalescing.
//
// Rewritten nodes adopt the source location of the first node they consume.

// Optimize runs both passes and returns the rewritten sibling list.
func Optimize(root []*Node) []*Node {
	return optimizeTree(rewriteSequences(root))
}

// rewriteSequences folds MOVE_PTR chains into the offsets of the nodes that
// follow them. Loops delimit the runs: the cursor must be at its logical
// position when a loop tests its cell, so the residual movement is flushed
// right before each loop.
func rewriteSequences(list []*Node) []*Node {
	out := make([]*Node, 0, len(list))
	var pending []*Node
	var firstMove *Node
	run := int32(0)

	flush := func() {
		out = append(out, pending...)
		if run != 0 {
			out = append(out, NewMovePtr(run, firstMove.Line, firstMove.Column))
		}
		pending = nil
		firstMove = nil
		run = 0
	}

	for _, n := range list {
		switch n.Kind {
		case NodeLoop:
			n.Body = rewriteSequences(n.Body)
			flush()
			out = append(out, n)
		case NodeMovePtr:
			if firstMove == nil {
				firstMove = n
			}
			run += n.Count
		default:
			rebase(n, run)
			pending = append(pending, n)
		}
	}
	flush()
	return out
}

func rebase(n *Node, delta int32) {
	switch n.Kind {
	case NodeAddVal, NodeOutput, NodeInput, NodeSetConst:
		n.Offset += delta
	case NodeMul, NodeCopyCell:
		n.SrcOffset += delta
		n.DstOffset += delta
	}
}

// optimizeTree applies the local rewrite rules bottom-up until none fires.
func optimizeTree(nodes []*Node) []*Node {
	for _, n := range nodes {
		if n.Kind == NodeLoop {
			n.Body = optimizeTree(n.Body)
		}
	}
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(nodes); {
			repl, consumed, ok := matchAt(nodes, i)
			if !ok {
				i++
				continue
			}
			nodes = splice(nodes, i, consumed, repl)
			changed = true
			// Step back one so adjacencies created by the rewrite are seen.
			if i > 0 {
				i--
			}
		}
	}
	return nodes
}

// matchAt tries each rewrite rule at index i and reports the replacement
// nodes plus how many siblings the match consumed.
func matchAt(nodes []*Node, i int) ([]*Node, int, bool) {
	n := nodes[i]
	var next *Node
	if i+1 < len(nodes) {
		next = nodes[i+1]
	}

	// Run-length fold: two consecutive MOVE_PTR, or two consecutive ADD_VAL
	// on the same cell.
	if next != nil && n.Kind == NodeMovePtr && next.Kind == NodeMovePtr {
		if sum := n.Count + next.Count; sum != 0 {
			return []*Node{NewMovePtr(sum, n.Line, n.Column)}, 2, true
		}
		return nil, 2, true
	}
	if next != nil && n.Kind == NodeAddVal && next.Kind == NodeAddVal && n.Offset == next.Offset {
		if sum := n.Count + next.Count; sum != 0 {
			return []*Node{NewAddVal(sum, n.Offset, n.Line, n.Column)}, 2, true
		}
		return nil, 2, true
	}

	// Clear loop: [-] on the current cell.
	if n.Kind == NodeLoop && len(n.Body) == 1 {
		b := n.Body[0]
		if b.Kind == NodeAddVal && b.Count == -1 && b.Offset == 0 {
			return []*Node{NewSetConst(0, 0, n.Line, n.Column)}, 1, true
		}
	}

	// Multiplication loop.
	if repl, ok := matchMulLoop(n); ok {
		return repl, 1, true
	}

	// Offset-add collapse: MOVE_PTR(+n) ADD_VAL(c,0) MOVE_PTR(-n).
	if i+2 < len(nodes) && n.Kind == NodeMovePtr && n.Count != 0 {
		add, back := nodes[i+1], nodes[i+2]
		if add.Kind == NodeAddVal && add.Offset == 0 &&
			back.Kind == NodeMovePtr && back.Count == -n.Count {
			return []*Node{NewAddVal(add.Count, n.Count, n.Line, n.Column)}, 3, true
		}
	}

	// Constant coalescing: SET_CONST then ADD_VAL on the same cell folds
	// into the constant; ADD_VAL then SET_CONST makes the add a dead store.
	if next != nil && n.Kind == NodeSetConst && next.Kind == NodeAddVal && n.Offset == next.Offset {
		return []*Node{NewSetConst(n.Value+next.Count, n.Offset, n.Line, n.Column)}, 2, true
	}
	if next != nil && n.Kind == NodeAddVal && next.Kind == NodeSetConst && n.Offset == next.Offset {
		return []*Node{NewSetConst(next.Value, n.Offset, n.Line, n.Column)}, 2, true
	}

	return nil, 0, false
}

// matchMulLoop recognizes a loop whose body only redistributes the current
// cell: every node is an ADD_VAL, exactly one of them is the counter
// decrement ADD_VAL(-1, 0), and no other node touches cell 0. Residual
// pointer movement in the body (which sequence rewriting would have left as
// a trailing MOVE_PTR) disqualifies the loop, as does any other node kind.
func matchMulLoop(n *Node) ([]*Node, bool) {
	if n.Kind != NodeLoop {
		return nil, false
	}
	decrements := 0
	var transfers []*Node
	for _, b := range n.Body {
		switch b.Kind {
		case NodeMovePtr:
			if b.Count != 0 {
				return nil, false
			}
		case NodeAddVal:
			if b.Offset == 0 {
				if b.Count != -1 {
					return nil, false
				}
				decrements++
			} else {
				transfers = append(transfers, b)
			}
		default:
			return nil, false
		}
	}
	if decrements != 1 {
		return nil, false
	}
	repl := make([]*Node, 0, len(transfers)+1)
	for _, b := range transfers {
		if b.Count == 1 {
			repl = append(repl, NewCopyCell(0, b.Offset, n.Line, n.Column))
		} else {
			repl = append(repl, NewMul(b.Count, 0, b.Offset, n.Line, n.Column))
		}
	}
	repl = append(repl, NewSetConst(0, 0, n.Line, n.Column))
	return repl, true
}

func splice(nodes []*Node, i, consumed int, repl []*Node) []*Node {
	out := make([]*Node, 0, len(nodes)-consumed+len(repl))
	out = append(out, nodes[:i]...)
	out = append(out, repl...)
	out = append(out, nodes[i+consumed:]...)
	return out
}
