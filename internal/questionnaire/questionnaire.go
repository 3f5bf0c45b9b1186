// Package questionnaire drives a questionnaire session over a knowledge base:
// choosing the target category, answering prompts with catalog values, and
// resolving the collected answers.
package questionnaire

import (
	"context"
	"slices"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
)

// Question is one prompt shown to the user
type Question struct {
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Tip      string   `json:"tip,omitempty"`
	Choices  []string `json:"choices"`
	Answer   string   `json:"answer,omitempty"`
}

// Form holds the state of one session. It is not safe for concurrent use.
type Form struct {
	db      *domain.DB
	target  string
	answers map[string]string
}

// New starts a session over db with no target and no answers
func New(db *domain.DB) *Form {
	if db == nil {
		db = domain.Empty()
	}
	return &Form{db: db, answers: make(map[string]string)}
}

// Targets lists the categories that can be chosen as target, in catalog order
func (f *Form) Targets() []string {
	return f.db.CategoryNames()
}

// Target returns the selected target category, or kb.NoTarget
func (f *Form) Target() string {
	return f.target
}

// SelectTarget chooses the category to resolve. The target's own question is
// hidden from then on and any answer already given to it is dropped.
func (f *Form) SelectTarget(category string) error {
	if category != kb.NoTarget && !slices.Contains(f.db.CategoryNames(), category) {
		return errors.NewInvalidRequestError("unknown target category %q", category)
	}
	f.target = category
	delete(f.answers, category)
	return nil
}

// Questions lists every prompt except the target's, in declaration order
func (f *Form) Questions() []Question {
	var out []Question
	for _, category := range f.db.QuestionCategories() {
		if f.target != kb.NoTarget && category == f.target {
			continue
		}
		prompt, _ := f.db.Question(category)
		tip, _ := f.db.Tip(category)
		out = append(out, Question{
			Category: category,
			Prompt:   prompt,
			Tip:      tip,
			Choices:  f.db.Values(category),
			Answer:   f.answers[category],
		})
	}
	return out
}

// Answer records value as the answer to the question for category
func (f *Form) Answer(category, value string) error {
	if _, ok := f.db.Question(category); !ok || category == f.target {
		return errors.NewInvalidRequestError("no question for category %q", category)
	}
	if !slices.Contains(f.db.Values(category), value) {
		return errors.WithHintf(
			errors.NewInvalidRequestError("%q is not a known value of %q", value, category),
			"choose one of %v", f.db.Values(category))
	}
	f.answers[category] = value
	return nil
}

// Clear forgets the answer for category
func (f *Form) Clear(category string) {
	delete(f.answers, category)
}

// Answers returns the answered questions, in question order
func (f *Form) Answers() []domain.Pair {
	var out []domain.Pair
	for _, q := range f.Questions() {
		if q.Answer != "" {
			out = append(out, domain.Pair{Category: q.Category, Value: q.Answer})
		}
	}
	return out
}

// Resolve runs the resolver with the current target and answers
func (f *Form) Resolve(ctx context.Context) (string, error) {
	return kb.ResolveContext(ctx, f.db, f.target, f.Answers())
}
