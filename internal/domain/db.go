package domain

import (
	"iter"
	"maps"
	"slices"
)

// DB is an immutable knowledge base. It is produced once by a Builder and is
// safe for concurrent readers; accessors never expose internal storage for
// writing.
type DB struct {
	entries []Entry

	categories    map[string][]string
	categoryOrder []string
	questions     map[string]string
	questionOrder []string
	tips          map[string]string
	changes       map[string]string
}

// Empty returns a knowledge base with no declarations
func Empty() *DB {
	return NewBuilder().Build()
}

// Len returns the number of entries
func (db *DB) Len() int {
	return len(db.entries)
}

// Entries returns a copy of all entries in declaration order
func (db *DB) Entries() []Entry {
	out := make([]Entry, len(db.entries))
	for i, e := range db.entries {
		out[i] = Entry{
			Value:      e.Value,
			Category:   e.Category,
			Attributes: slices.Clone(e.Attributes),
		}
	}
	return out
}

// All iterates entries in declaration order. The yielded Attributes slices are
// shared with the DB and must not be modified.
func (db *DB) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range db.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Categories returns a copy of the category catalog: every category name
// mapped to its distinct values in first-seen order
func (db *DB) Categories() map[string][]string {
	out := make(map[string][]string, len(db.categories))
	for k, v := range db.categories {
		out[k] = slices.Clone(v)
	}
	return out
}

// CategoryNames returns category names in first-seen order
func (db *DB) CategoryNames() []string {
	return slices.Clone(db.categoryOrder)
}

// Values returns the distinct values seen for category, in first-seen order
func (db *DB) Values(category string) []string {
	return slices.Clone(db.categories[category])
}

// Questions returns a copy of the category -> prompt map
func (db *DB) Questions() map[string]string {
	return maps.Clone(db.questions)
}

// Question returns the prompt declared for category
func (db *DB) Question(category string) (string, bool) {
	q, ok := db.questions[category]
	return q, ok
}

// QuestionCategories returns the categories that have a prompt, in the order
// they were first declared
func (db *DB) QuestionCategories() []string {
	return slices.Clone(db.questionOrder)
}

// Tips returns a copy of the category -> note map
func (db *DB) Tips() map[string]string {
	return maps.Clone(db.tips)
}

// Tip returns the note declared for category
func (db *DB) Tip(category string) (string, bool) {
	t, ok := db.tips[category]
	return t, ok
}

// Changes returns a copy of the category -> note map. Nothing in the resolver
// reads it; it is kept so the source round-trips through the model.
func (db *DB) Changes() map[string]string {
	return maps.Clone(db.changes)
}

// Change returns the change note declared for category
func (db *DB) Change(category string) (string, bool) {
	c, ok := db.changes[category]
	return c, ok
}

// Builder accumulates declarations into a DB. A Builder is single-use: Build
// hands the DB over and resets the builder.
type Builder struct {
	db *DB
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	b := &Builder{}
	b.reset()
	return b
}

func (b *Builder) reset() {
	b.db = &DB{
		categories: make(map[string][]string),
		questions:  make(map[string]string),
		tips:       make(map[string]string),
		changes:    make(map[string]string),
	}
}

// AddEntry appends an entry and registers its attribute pairs and its own
// (category, value) in the catalog
func (b *Builder) AddEntry(category, value string, attributes []Pair) {
	for _, a := range attributes {
		b.addCategory(a.Category, a.Value)
	}
	b.addCategory(category, value)

	b.db.entries = append(b.db.entries, Entry{
		Value:      value,
		Category:   category,
		Attributes: slices.Clone(attributes),
	})
}

// SetQuestion registers the prompt for category. A later call for the same
// category replaces the earlier prompt.
func (b *Builder) SetQuestion(category, prompt string) {
	if _, ok := b.db.questions[category]; !ok {
		b.db.questionOrder = append(b.db.questionOrder, category)
	}
	b.db.questions[category] = prompt
}

// SetTip registers the note for category, replacing any earlier one
func (b *Builder) SetTip(category, text string) {
	b.db.tips[category] = text
}

// SetChange registers the change note for category, replacing any earlier one
func (b *Builder) SetChange(category, text string) {
	b.db.changes[category] = text
}

// Build returns the accumulated DB and resets the builder
func (b *Builder) Build() *DB {
	db := b.db
	b.reset()
	return db
}

func (b *Builder) addCategory(category, value string) {
	values, ok := b.db.categories[category]
	if !ok {
		b.db.categoryOrder = append(b.db.categoryOrder, category)
	}
	if slices.Contains(values, value) {
		return
	}
	b.db.categories[category] = append(values, value)
}
