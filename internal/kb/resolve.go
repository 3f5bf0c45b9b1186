package kb

import (
	"context"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
)

// NoTarget asks Resolve to run without a target category
const NoTarget = ""

// ctxCheckInterval is how many entries are scanned between cancellation checks
const ctxCheckInterval = 1024

// Resolve finds the conclusion for a set of confirmed answers.
//
// Constraints are discovered from the entries whose category is target: each of
// their attribute pairs that also appears in answers becomes a confirmed
// constraint. The first entry of the whole DB whose attributes contain every
// confirmed constraint wins. With no confirmed constraints the first entry
// matches.
//
// Resolve does not modify db and is safe to call concurrently.
func Resolve(db *domain.DB, target string, answers []domain.Pair) (string, error) {
	return ResolveContext(context.Background(), db, target, answers)
}

// ResolveContext is Resolve with cancellation checked periodically while
// scanning entries.
func ResolveContext(ctx context.Context, db *domain.DB, target string, answers []domain.Pair) (string, error) {
	notFound := &NotFoundError{Query: cloneAnswers(answers), Target: target}
	if db == nil {
		return "", notFound
	}

	constraints, err := confirmedConstraints(ctx, db, target, answers)
	if err != nil {
		return "", err
	}

	for i, e := range db.All() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return "", errors.Wrap(err, "resolve")
			}
		}
		if matchesAll(e, constraints) {
			return e.Value, nil
		}
	}

	return "", notFound
}

func confirmedConstraints(ctx context.Context, db *domain.DB, target string, answers []domain.Pair) ([]domain.Pair, error) {
	if target == NoTarget {
		return nil, nil
	}

	answered := make(map[domain.Pair]struct{}, len(answers))
	for _, a := range answers {
		answered[a] = struct{}{}
	}

	var constraints []domain.Pair
	seen := make(map[domain.Pair]struct{})
	for i, e := range db.All() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "resolve")
			}
		}
		if e.Category != target {
			continue
		}
		for _, attr := range e.Attributes {
			if _, ok := answered[attr]; !ok {
				continue
			}
			if _, dup := seen[attr]; dup {
				continue
			}
			seen[attr] = struct{}{}
			constraints = append(constraints, attr)
		}
	}

	return constraints, nil
}

func matchesAll(e domain.Entry, constraints []domain.Pair) bool {
	for _, c := range constraints {
		if !e.HasAttribute(c) {
			return false
		}
	}
	return true
}

func cloneAnswers(answers []domain.Pair) []domain.Pair {
	if answers == nil {
		return nil
	}
	out := make([]domain.Pair, len(answers))
	copy(out, answers)
	return out
}
