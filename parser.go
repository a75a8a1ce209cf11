// Completion: 100% - Parser complete, bracket matching with positions
package main

// MaxNesting bounds loop depth. The assembler reserves two loop labels per
// level up front, so the parser enforces the same bound.
const MaxNesting = 1000

// Parse builds the IR tree for a source program. Unmatched brackets and
// over-deep nesting are reported as ParseErrors with the offending position.
func Parse(src []byte) ([]*Node, error) {
	lexer := NewLexer(src)

	type frame struct {
		nodes  []*Node
		line   int
		column int
	}
	stack := []frame{{}}

	for {
		tok := lexer.Next()
		if tok.Type == TokenEOF {
			break
		}
		top := &stack[len(stack)-1]
		switch tok.Type {
		case TokenMoveRight:
			top.nodes = append(top.nodes, NewMovePtr(1, tok.Line, tok.Column))
		case TokenMoveLeft:
			top.nodes = append(top.nodes, NewMovePtr(-1, tok.Line, tok.Column))
		case TokenInc:
			top.nodes = append(top.nodes, NewAddVal(1, 0, tok.Line, tok.Column))
		case TokenDec:
			top.nodes = append(top.nodes, NewAddVal(-1, 0, tok.Line, tok.Column))
		case TokenOutput:
			top.nodes = append(top.nodes, NewOutput(0, tok.Line, tok.Column))
		case TokenInput:
			top.nodes = append(top.nodes, NewInput(0, tok.Line, tok.Column))
		case TokenLoopOpen:
			if len(stack) > MaxNesting {
				return nil, parseErrorf(tok.Line, tok.Column, "too many nested loops (limit %d)", MaxNesting)
			}
			stack = append(stack, frame{line: tok.Line, column: tok.Column})
		case TokenLoopClose:
			if len(stack) == 1 {
				return nil, parseErrorf(tok.Line, tok.Column, "unmatched ']'")
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top = &stack[len(stack)-1]
			top.nodes = append(top.nodes, NewLoop(closed.nodes, closed.line, closed.column))
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1]
		return nil, parseErrorf(open.line, open.column, "unmatched '['")
	}
	return stack[0].nodes, nil
}
