package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vspok/wabottle/internal/event"
)

// Chat is a stored conversation summary.
type Chat struct {
	ID                    string
	ConversationTimestamp int64
	UnreadCount           int
}

// ChatStore handles chat rows of one session.
type ChatStore struct {
	db     *DB
	authID int64
}

// NewChatStore creates a ChatStore scoped to one session.
func NewChatStore(db *DB, authID int64) *ChatStore {
	return &ChatStore{db: db, authID: authID}
}

// InsertNew inserts chats that do not exist yet. Existing rows are left
// untouched; mutation of known chats only happens through updates.
func (s *ChatStore) InsertNew(ctx context.Context, chats []event.Chat) error {
	for _, c := range chats {
		if c.ID == "" {
			continue
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO chats(auth_id, id, conversation_timestamp, unread_count)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id, auth_id) DO NOTHING
		`, s.authID, c.ID, nullInt64(c.ConversationTimestamp), c.UnreadCount); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the chat by id, or nil when unseen.
func (s *ChatStore) Get(ctx context.Context, id string) (*Chat, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, COALESCE(conversation_timestamp,0), unread_count
		FROM chats WHERE id = ? AND auth_id = ?
	`, id, s.authID)
	var c Chat
	if err := row.Scan(&c.ID, &c.ConversationTimestamp, &c.UnreadCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// All returns every chat of the session.
func (s *ChatStore) All(ctx context.Context) ([]Chat, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, COALESCE(conversation_timestamp,0), unread_count
		FROM chats WHERE auth_id = ?
		ORDER BY COALESCE(conversation_timestamp,0) DESC
	`, s.authID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.ConversationTimestamp, &c.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save writes back a chat previously loaded with Get.
func (s *ChatStore) Save(ctx context.Context, c *Chat) error {
	_, err := s.db.Exec(ctx, `
		UPDATE chats SET conversation_timestamp = ?, unread_count = ?
		WHERE id = ? AND auth_id = ?
	`, nullInt64(c.ConversationTimestamp), c.UnreadCount, c.ID, s.authID)
	return err
}

// Delete removes a chat by id. Unknown ids are a no-op.
func (s *ChatStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM chats WHERE id = ? AND auth_id = ?`, id, s.authID)
	return err
}
