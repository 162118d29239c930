package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vspok/wabottle/internal/event"
)

// PresenceDic groups the presence rows of one conversation.
type PresenceDic struct {
	ID     int64
	ChatID string
}

// Presence is the last-known presence of one participant in one
// conversation.
type Presence struct {
	Participant       string
	LastKnownPresence string
	LastSeen          int64
}

// PresenceStore handles presence dictionaries and rows of one session.
type PresenceStore struct {
	db     *DB
	authID int64
}

// NewPresenceStore creates a PresenceStore scoped to one session.
func NewPresenceStore(db *DB, authID int64) *PresenceStore {
	return &PresenceStore{db: db, authID: authID}
}

// FindDic returns the presence dictionary of a conversation, or nil.
func (s *PresenceStore) FindDic(ctx context.Context, chatID string) (*PresenceDic, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, chat_id FROM presence_dics WHERE chat_id = ? AND auth_id = ?
	`, chatID, s.authID)
	var d PresenceDic
	if err := row.Scan(&d.ID, &d.ChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// EnsureDic returns the presence dictionary of a conversation, creating it
// if needed.
func (s *PresenceStore) EnsureDic(ctx context.Context, chatID string) (*PresenceDic, error) {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO presence_dics(auth_id, chat_id) VALUES(?, ?)
		ON CONFLICT(chat_id, auth_id) DO NOTHING
	`, s.authID, chatID); err != nil {
		return nil, err
	}
	return s.FindDic(ctx, chatID)
}

// Upsert records one participant's presence, updating the existing row or
// appending a new one. A zero LastSeen keeps the stored value.
func (s *PresenceStore) Upsert(ctx context.Context, dicID int64, participant string, p event.PresenceData) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO presences(dictionary_id, participant, last_known_presence, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(dictionary_id, participant) DO UPDATE SET
			last_known_presence=excluded.last_known_presence,
			last_seen=COALESCE(excluded.last_seen, presences.last_seen)
	`, dicID, participant, p.LastKnownPresence, nullInt64(p.LastSeen))
	return err
}

// All returns every presence row of a dictionary.
func (s *PresenceStore) All(ctx context.Context, dicID int64) ([]Presence, error) {
	rows, err := s.db.Query(ctx, `
		SELECT participant, COALESCE(last_known_presence,''), COALESCE(last_seen,0)
		FROM presences WHERE dictionary_id = ? ORDER BY participant
	`, dicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Presence
	for rows.Next() {
		var p Presence
		if err := rows.Scan(&p.Participant, &p.LastKnownPresence, &p.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get returns one participant's presence row, or nil when unseen.
func (s *PresenceStore) Get(ctx context.Context, dicID int64, participant string) (*Presence, error) {
	row := s.db.QueryRow(ctx, `
		SELECT participant, COALESCE(last_known_presence,''), COALESCE(last_seen,0)
		FROM presences WHERE dictionary_id = ? AND participant = ?
	`, dicID, participant)
	var p Presence
	if err := row.Scan(&p.Participant, &p.LastKnownPresence, &p.LastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
