package grammar

import (
	"fmt"
	"strings"
)

// SyntaxError reports a grammar violation. Line and Column are 1-based and point
// at the start of the offending text.
type SyntaxError struct {
	Message string
	Line    int
	Column  int
	Offset  int
}

func newSyntaxError(pos Position, message string) *SyntaxError {
	return &SyntaxError{
		Message: message,
		Line:    pos.Line,
		Column:  pos.Column,
		Offset:  pos.Offset,
	}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
}

// Position returns where the error occurred
func (e *SyntaxError) Position() Position {
	return Position{Line: e.Line, Column: e.Column, Offset: e.Offset}
}

// Excerpt returns the source line containing the error followed by a caret
// under the offending column. Tabs before the column are kept so the caret
// lines up in a terminal.
func (e *SyntaxError) Excerpt(src string) string {
	lines := strings.Split(src, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}
	line := strings.TrimRight(lines[e.Line-1], "\r")

	var caret strings.Builder
	col := 1
	for _, r := range line {
		if col >= e.Column {
			break
		}
		if r == '\t' {
			caret.WriteByte('\t')
		} else {
			caret.WriteByte(' ')
		}
		col++
	}
	for ; col < e.Column; col++ {
		caret.WriteByte(' ')
	}
	caret.WriteByte('^')

	return line + "\n" + caret.String()
}
