package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/expertkb/internal/domain"
	"github.com/pbaille/expertkb/internal/errors"
)

//go:embed schema.sql
var schema string

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSource records a loaded knowledge-base text and returns it
func (s *Store) SaveSource(location, content string) (*domain.Source, error) {
	src := &domain.Source{
		ID:       uuid.New().String(),
		Location: location,
		Content:  content,
		LoadedAt: s.now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO sources (id, location, content, loaded_at) VALUES (?, ?, ?, ?)",
		src.ID, src.Location, src.Content, src.LoadedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert source")
	}

	return src, nil
}

// GetSource retrieves a source by ID, including its content
func (s *Store) GetSource(id string) (*domain.Source, error) {
	var src domain.Source
	err := s.db.QueryRow(
		"SELECT id, location, content, loaded_at FROM sources WHERE id = ?",
		id,
	).Scan(&src.ID, &src.Location, &src.Content, &src.LoadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "source %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get source")
	}

	return &src, nil
}

// LatestSource returns the most recently loaded source for location, or for
// any location when location is empty
func (s *Store) LatestSource(location string) (*domain.Source, error) {
	query := "SELECT id, location, content, loaded_at FROM sources"
	var args []interface{}
	if location != "" {
		query += " WHERE location = ?"
		args = append(args, location)
	}
	query += " ORDER BY loaded_at DESC, rowid DESC LIMIT 1"

	var src domain.Source
	err := s.db.QueryRow(query, args...).Scan(&src.ID, &src.Location, &src.Content, &src.LoadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(errors.ErrNotFound, "latest source")
	}
	if err != nil {
		return nil, errors.Wrap(err, "latest source")
	}

	return &src, nil
}

// ListSources returns recent sources without their content
func (s *Store) ListSources(limit int) ([]domain.Source, error) {
	rows, err := s.db.Query(
		"SELECT id, location, loaded_at FROM sources ORDER BY loaded_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list sources")
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Location, &src.LoadedAt); err != nil {
			return nil, errors.Wrap(err, "scan source")
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// RecordQuery stores one resolution attempt and returns it
func (s *Store) RecordQuery(sourceID *string, target string, answers []domain.Pair, conclusion string, found bool) (*domain.QueryRecord, error) {
	if answers == nil {
		answers = []domain.Pair{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return nil, errors.Wrap(err, "encode answers")
	}

	rec := &domain.QueryRecord{
		ID:         uuid.New().String(),
		SourceID:   sourceID,
		Target:     target,
		Answers:    answers,
		Conclusion: conclusion,
		Found:      found,
		CreatedAt:  s.now().UTC(),
	}

	_, err = s.db.Exec(
		`INSERT INTO queries (id, source_id, target, answers, conclusion, found, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceID, rec.Target, string(encoded), rec.Conclusion, rec.Found, rec.CreatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert query")
	}

	return rec, nil
}

// ListQueries returns recent queries with pagination
func (s *Store) ListQueries(limit, offset int) ([]domain.QueryRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source_id, target, answers, conclusion, found, created_at
		 FROM queries ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list queries")
	}
	defer rows.Close()

	var records []domain.QueryRecord
	for rows.Next() {
		var (
			rec     domain.QueryRecord
			answers string
		)
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.Target, &answers, &rec.Conclusion, &rec.Found, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan query")
		}
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			return nil, errors.Wrapf(err, "decode answers of query %s", rec.ID)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
