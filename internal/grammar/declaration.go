package grammar

import "fmt"

// Kind enumerates the declaration productions of the grammar
type Kind int

const (
	KindEntry Kind = iota + 1
	KindAdvice
	KindChange
	KindTip
)

func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "entry"
	case KindAdvice:
		return "advice"
	case KindChange:
		return "change"
	case KindTip:
		return "tip"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pair is a `category : value` pair as written in the source
type Pair struct {
	Category string
	Value    string
	Pos      Position
}

// Declaration is one top-level production.
//
// For KindEntry, ID is the author's entry number, Attributes holds the `if`/`and`
// pairs and Pair is the terminal `then` pair. For the prompt kinds, Pair holds
// the category and its text.
type Declaration struct {
	Kind       Kind
	Pos        Position
	ID         int
	Attributes []Pair
	Pair       Pair
}
