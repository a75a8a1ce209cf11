// Completion: 100% - Lexer tests pass
package main

import "testing"

func TestLexerTokensAndPositions(t *testing.T) {
	src := []byte("+- note\n>[.]")
	lexer := NewLexer(src)

	expected := []Token{
		{TokenInc, 1, 1},
		{TokenDec, 1, 2},
		{TokenMoveRight, 2, 1},
		{TokenLoopOpen, 2, 2},
		{TokenOutput, 2, 3},
		{TokenLoopClose, 2, 4},
	}
	for i, want := range expected {
		got := lexer.Next()
		if got != want {
			t.Fatalf("token %d: got %+v, want %+v", i, got, want)
		}
	}
	if tok := lexer.Next(); tok.Type != TokenEOF {
		t.Fatalf("expected EOF, got %+v", tok)
	}
}

func TestLexerCommentsAdvanceColumns(t *testing.T) {
	lexer := NewLexer([]byte("abc+"))
	tok := lexer.Next()
	if tok.Type != TokenInc || tok.Line != 1 || tok.Column != 4 {
		t.Fatalf("got %+v, want + at 1:4", tok)
	}
}

func TestLexerEmptyInput(t *testing.T) {
	lexer := NewLexer(nil)
	tok := lexer.Next()
	if tok.Type != TokenEOF || tok.Line != 1 || tok.Column != 1 {
		t.Fatalf("got %+v, want EOF at 1:1", tok)
	}
}

func TestLexerEOFPosition(t *testing.T) {
	lexer := NewLexer([]byte("+\n"))
	lexer.Next()
	tok := lexer.Next()
	if tok.Type != TokenEOF || tok.Line != 2 || tok.Column != 1 {
		t.Fatalf("got %+v, want EOF at 2:1", tok)
	}
}
