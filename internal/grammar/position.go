package grammar

import "fmt"

// Position is a location in source text.
// Line and Column are 1-based; Column counts Unicode code points.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"` // 0-based byte offset
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// tracker advances a Position through source text one rune at a time
type tracker struct {
	src string
	pos Position
}

func newTracker(src string) *tracker {
	return &tracker{src: src, pos: Position{Line: 1, Column: 1}}
}

func (t *tracker) mark() Position {
	return t.pos
}

func (t *tracker) done() bool {
	return t.pos.Offset >= len(t.src)
}

func (t *tracker) advance(r rune, size int) {
	if r == '\n' {
		t.pos.Line++
		t.pos.Column = 1
	} else {
		t.pos.Column++
	}
	t.pos.Offset += size
}
