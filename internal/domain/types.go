package domain

import (
	"fmt"
	"time"
)

// Pair is a (category, value) fact
type Pair struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s: %s", p.Category, p.Value)
}

// Entry is one classified concept: the conclusion Value, the Category it is an
// instance of, and the attribute pairs that distinguish it
type Entry struct {
	Value      string `json:"value"`
	Category   string `json:"category"`
	Attributes []Pair `json:"attributes"`
}

// HasAttribute reports whether p appears verbatim among the entry's attributes
func (e Entry) HasAttribute(p Pair) bool {
	for _, a := range e.Attributes {
		if a == p {
			return true
		}
	}
	return false
}

// Source is a knowledge-base text as it was loaded
type Source struct {
	ID       string    `json:"id"`
	Location string    `json:"location"`
	Content  string    `json:"content,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// QueryRecord is one resolution attempt against a loaded source
type QueryRecord struct {
	ID         string    `json:"id"`
	SourceID   *string   `json:"source_id,omitempty"`
	Target     string    `json:"target,omitempty"`
	Answers    []Pair    `json:"answers"`
	Conclusion string    `json:"conclusion,omitempty"`
	Found      bool      `json:"found"`
	CreatedAt  time.Time `json:"created_at"`
}
