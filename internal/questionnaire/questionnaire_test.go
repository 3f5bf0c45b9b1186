package questionnaire

import (
	"context"
	"testing"

	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
	"github.com/pbaille/expertkb/internal/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const animals = `
1 if Legs: 4 and Sound: Meow then Animal: Cat
2 if Legs: 4 and Sound: Woof then Animal: Dog
3 if Legs: 2 and Sound: Tweet then Animal: Bird

advice Sound: "What sound does it make?"
advice Legs: "How many legs?"
advice Animal: "Which animal is it?"
tip Sound: "Listen in the morning"
`

func newForm(t *testing.T) *Form {
	t.Helper()
	db, err := kb.Parse(animals)
	require.NoError(t, err)
	return New(db)
}

func categories(qs []Question) []string {
	var out []string
	for _, q := range qs {
		out = append(out, q.Category)
	}
	return out
}

func TestQuestionsFollowDeclarationOrder(t *testing.T) {
	f := newForm(t)

	qs := f.Questions()
	assert.Equal(t, []string{"Sound", "Legs", "Animal"}, categories(qs))
	assert.Equal(t, "What sound does it make?", qs[0].Prompt)
	assert.Equal(t, "Listen in the morning", qs[0].Tip)
	assert.Equal(t, []string{"Meow", "Woof", "Tweet"}, qs[0].Choices)
	assert.Equal(t, []string{"4", "2"}, qs[1].Choices)
}

func TestSelectTargetHidesItsQuestion(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Answer("Animal", "Cat"))

	require.NoError(t, f.SelectTarget("Animal"))
	assert.Equal(t, "Animal", f.Target())
	assert.Equal(t, []string{"Sound", "Legs"}, categories(f.Questions()))
	assert.Empty(t, f.Answers(), "answer to the new target is dropped")

	err := f.Answer("Animal", "Dog")
	assert.True(t, errors.IsInvalidRequest(err))
}

func TestSelectTargetRejectsUnknownCategory(t *testing.T) {
	f := newForm(t)
	err := f.SelectTarget("Mineral")
	assert.True(t, errors.IsInvalidRequest(err))
	assert.Equal(t, kb.NoTarget, f.Target())

	require.NoError(t, f.SelectTarget(kb.NoTarget))
}

func TestAnswerValidation(t *testing.T) {
	f := newForm(t)

	err := f.Answer("Colour", "Red")
	assert.True(t, errors.IsInvalidRequest(err), "no question for category")

	err = f.Answer("Sound", "Moo")
	require.True(t, errors.IsInvalidRequest(err))
	assert.Contains(t, errors.FlattenHints(err), "Meow")

	require.NoError(t, f.Answer("Sound", "Woof"))
	assert.Equal(t, "Woof", f.Questions()[0].Answer)
}

func TestAnswersAndClear(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.Answer("Legs", "4"))
	require.NoError(t, f.Answer("Sound", "Woof"))

	assert.Equal(t, []domain.Pair{
		{Category: "Sound", Value: "Woof"},
		{Category: "Legs", Value: "4"},
	}, f.Answers(), "question order, not answer order")

	f.Clear("Sound")
	assert.Equal(t, []domain.Pair{{Category: "Legs", Value: "4"}}, f.Answers())
}

func TestResolve(t *testing.T) {
	f := newForm(t)
	require.NoError(t, f.SelectTarget("Animal"))
	require.NoError(t, f.Answer("Legs", "4"))
	require.NoError(t, f.Answer("Sound", "Woof"))

	got, err := f.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dog", got)

	require.NoError(t, f.Answer("Legs", "2"))
	_, err = f.Resolve(context.Background())
	assert.True(t, errors.IsNotFound(err))
}

func TestNewWithNilDB(t *testing.T) {
	f := New(nil)
	assert.Empty(t, f.Targets())
	assert.Empty(t, f.Questions())
}
