package store

import (
	"context"
	"database/sql"
	"errors"
)

// Session is the row anchoring one logical messaging session. Every other
// table hangs off its id.
type Session struct {
	ID    int64
	Key   string
	Value string
}

// SessionStore resolves and persists session rows by name.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Get returns the session named key, or nil when it does not exist.
func (s *SessionStore) Get(ctx context.Context, key string) (*Session, error) {
	row := s.db.QueryRow(ctx, `SELECT id, key, value FROM sessions WHERE key = ?`, key)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Key, &sess.Value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// Ensure returns the session named key, creating an empty row first if it
// does not exist yet.
func (s *SessionStore) Ensure(ctx context.Context, key string) (*Session, error) {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO sessions(key, value) VALUES(?, '')
		ON CONFLICT(key) DO NOTHING
	`, key); err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

// SetValue upserts the serialized blob of the session named key. The
// conflict-on-key upsert makes concurrent writers last-write-wins without
// ever leaving a torn record.
func (s *SessionStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`, key, value)
	return err
}
