// Package localstore persists per-user answer state in a local SQLite
// database. It stands in for browser local storage: reads never fail the
// caller, and writes replace the whole value for a key.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// Store is a keyed blob store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *observability.Logger
}

// New opens (and creates if needed) the store at path.
func New(path string, logger *observability.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open local store")
	}

	// A single writer is enough; this store sees one process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, contextutils.WrapError(err, "failed to initialize local store schema")
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, or "" when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read local store key")
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return contextutils.WrapError(err, "failed to write local store key")
	}
	return nil
}

// LoadAnswers returns the stored answer map for key. A missing key or a
// corrupt value yields an empty map; the caller always gets usable state.
func (s *Store) LoadAnswers(ctx context.Context, key string) map[string]string {
	answers := make(map[string]string)

	raw, err := s.Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "Failed to load stored answers, starting empty", map[string]interface{}{
			"store_key": key,
			"error":     err.Error(),
		})
		return answers
	}
	if raw == "" {
		return answers
	}

	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		s.logger.Warn(ctx, "Stored answers are corrupt, starting empty", map[string]interface{}{
			"store_key": key,
			"error":     err.Error(),
		})
		return make(map[string]string)
	}

	return answers
}

// SaveAnswers persists the whole answer map under key.
func (s *Store) SaveAnswers(ctx context.Context, key string, answers map[string]string) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return contextutils.WrapError(err, "failed to encode answers")
	}
	return s.Set(ctx, key, string(raw))
}
