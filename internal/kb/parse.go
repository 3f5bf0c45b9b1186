// Package kb turns knowledge-base source text into a domain.DB and resolves
// questionnaire answers against it.
package kb

import (
	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/grammar"
)

// Parse builds a knowledge base from source text. It is all-or-nothing: on any
// grammar violation it returns a *SyntaxError and a nil DB.
func Parse(text string) (*domain.DB, error) {
	decls, err := grammar.Parse(text)
	if err != nil {
		return nil, err
	}
	return build(decls), nil
}

// build feeds declarations into a Builder in source order. A declaration kind
// the grammar cannot produce means grammar and builder disagree, which is a
// programming error.
func build(decls []grammar.Declaration) *domain.DB {
	b := domain.NewBuilder()

	for _, d := range decls {
		switch d.Kind {
		case grammar.KindEntry:
			attrs := make([]domain.Pair, len(d.Attributes))
			for i, a := range d.Attributes {
				attrs[i] = domain.Pair{Category: a.Category, Value: a.Value}
			}
			b.AddEntry(d.Pair.Category, d.Pair.Value, attrs)
		case grammar.KindAdvice:
			b.SetQuestion(d.Pair.Category, d.Pair.Value)
		case grammar.KindChange:
			b.SetChange(d.Pair.Category, d.Pair.Value)
		case grammar.KindTip:
			b.SetTip(d.Pair.Category, d.Pair.Value)
		default:
			panic(errors.AssertionFailedf("declaration at %s has unexpected kind %s", d.Pos, d.Kind))
		}
	}

	return b.Build()
}
