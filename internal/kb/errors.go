package kb

import (
	"fmt"
	"strings"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/grammar"
)

// SyntaxError is returned by Parse when the source violates the grammar
type SyntaxError = grammar.SyntaxError

// NotFoundError is returned by Resolve when no entry satisfies the confirmed
// constraints. Query and Target echo the caller's arguments.
type NotFoundError struct {
	Query  []domain.Pair
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("query %s didn't find anything, target category %s",
		FormatAnswers(e.Query), formatTarget(e.Target))
}

// Is lets errors.Is(err, errors.ErrNotFound) match resolution failures
func (e *NotFoundError) Is(target error) bool {
	return target == errors.ErrNotFound
}

// FormatAnswers renders an answer list as [(Category, Value), ...]
func FormatAnswers(answers []domain.Pair) string {
	parts := make([]string, len(answers))
	for i, a := range answers {
		parts[i] = fmt.Sprintf("(%s, %s)", a.Category, a.Value)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatTarget(target string) string {
	if target == NoTarget {
		return "none"
	}
	return fmt.Sprintf("%q", target)
}
