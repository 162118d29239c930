package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/vspok/wabottle/internal/event"
)

// Dictionary groups the messages of one conversation. One exists for every
// jid that has at least one stored message.
type Dictionary struct {
	ID  int64
	JID string
}

// Message is a stored message row. ID is the storage-assigned surrogate
// used as the chronological ordering proxy; (MsgID, DictionaryID) is the
// natural deduplication key.
type Message struct {
	ID           int64
	DictionaryID int64
	MsgID        string
	FromMe       bool
	Participant  string
	PushName     string
	Timestamp    int64
	Status       int32
	Content      *waE2E.Message
	Receipts     []event.UserReceipt
	Reactions    []event.Reaction
}

// DictionaryStore handles message dictionaries and their message rows for
// one session.
type DictionaryStore struct {
	db     *DB
	authID int64
}

// NewDictionaryStore creates a DictionaryStore scoped to one session.
func NewDictionaryStore(db *DB, authID int64) *DictionaryStore {
	return &DictionaryStore{db: db, authID: authID}
}

// Find returns the dictionary for jid, or nil when no message has ever
// been stored under it.
func (s *DictionaryStore) Find(ctx context.Context, jid string) (*Dictionary, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, jid FROM message_dics WHERE jid = ? AND auth_id = ?
	`, jid, s.authID)
	var d Dictionary
	if err := row.Scan(&d.ID, &d.JID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// Ensure returns the dictionary for jid, creating it first if needed. The
// dictionary always exists before the first message insert under it.
func (s *DictionaryStore) Ensure(ctx context.Context, jid string) (*Dictionary, error) {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO message_dics(auth_id, jid) VALUES(?, ?)
		ON CONFLICT(jid, auth_id) DO NOTHING
	`, s.authID, jid); err != nil {
		return nil, err
	}
	return s.Find(ctx, jid)
}

// InsertMessage stores a new message row and fills in its surrogate id.
func (s *DictionaryStore) InsertMessage(ctx context.Context, m *Message) error {
	content, receipts, reactions, err := encodeMessageBody(m)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(ctx, `
		INSERT INTO messages(dictionary_id, msg_id, from_me, participant, push_name, timestamp, status, content, receipts, reactions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.DictionaryID, m.MsgID, boolToInt(m.FromMe), nullString(m.Participant), nullString(m.PushName),
		nullInt64(m.Timestamp), m.Status, content, receipts, reactions)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

// UpdateMessage writes back a message previously loaded from this store.
func (s *DictionaryStore) UpdateMessage(ctx context.Context, m *Message) error {
	if m.ID == 0 {
		return fmt.Errorf("update message: missing surrogate id")
	}
	content, receipts, reactions, err := encodeMessageBody(m)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE messages SET from_me = ?, participant = ?, push_name = ?, timestamp = ?, status = ?, content = ?, receipts = ?, reactions = ?
		WHERE id = ?
	`, boolToInt(m.FromMe), nullString(m.Participant), nullString(m.PushName),
		nullInt64(m.Timestamp), m.Status, content, receipts, reactions, m.ID)
	return err
}

// FindMessage returns the message with msgID inside a dictionary, or nil.
func (s *DictionaryStore) FindMessage(ctx context.Context, dicID int64, msgID string) (*Message, error) {
	row := s.db.QueryRow(ctx, messageSelect+` WHERE dictionary_id = ? AND msg_id = ?`, dicID, msgID)
	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// MessagesAsc returns every message of a dictionary, oldest first.
func (s *DictionaryStore) MessagesAsc(ctx context.Context, dicID int64) ([]Message, error) {
	return s.queryMessages(ctx, messageSelect+` WHERE dictionary_id = ? ORDER BY id ASC`, dicID)
}

// Tail returns the most recent limit messages of a dictionary, oldest
// first.
func (s *DictionaryStore) Tail(ctx context.Context, dicID int64, limit int) ([]Message, error) {
	msgs, err := s.queryMessages(ctx, messageSelect+` WHERE dictionary_id = ? ORDER BY id DESC LIMIT ?`, dicID, limit)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// Before returns up to limit messages with surrogate id strictly below
// beforeID, oldest first.
func (s *DictionaryStore) Before(ctx context.Context, dicID, beforeID int64, limit int) ([]Message, error) {
	msgs, err := s.queryMessages(ctx, messageSelect+` WHERE dictionary_id = ? AND id < ? ORDER BY id DESC LIMIT ?`, dicID, beforeID, limit)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// After returns up to limit messages with surrogate id strictly above
// afterID, oldest first.
func (s *DictionaryStore) After(ctx context.Context, dicID, afterID int64, limit int) ([]Message, error) {
	return s.queryMessages(ctx, messageSelect+` WHERE dictionary_id = ? AND id > ? ORDER BY id ASC LIMIT ?`, dicID, afterID, limit)
}

// MostRecent returns the message with the highest surrogate id, or nil
// for an empty dictionary.
func (s *DictionaryStore) MostRecent(ctx context.Context, dicID int64) (*Message, error) {
	row := s.db.QueryRow(ctx, messageSelect+` WHERE dictionary_id = ? ORDER BY id DESC LIMIT 1`, dicID)
	m, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// DeleteAll removes every message of a dictionary.
func (s *DictionaryStore) DeleteAll(ctx context.Context, dicID int64) error {
	_, err := s.db.Exec(ctx, `DELETE FROM messages WHERE dictionary_id = ?`, dicID)
	return err
}

// DeleteByMsgIDs removes the messages of a dictionary whose provider ids
// are in msgIDs.
func (s *DictionaryStore) DeleteByMsgIDs(ctx context.Context, dicID int64, msgIDs []string) error {
	if len(msgIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(msgIDs)), ",")
	args := make([]any, 0, len(msgIDs)+1)
	args = append(args, dicID)
	for _, id := range msgIDs {
		args = append(args, id)
	}
	_, err := s.db.Exec(ctx, `DELETE FROM messages WHERE dictionary_id = ? AND msg_id IN (`+placeholders+`)`, args...)
	return err
}

const messageSelect = `
	SELECT id, dictionary_id, msg_id, from_me, COALESCE(participant,''), COALESCE(push_name,''),
	       COALESCE(timestamp,0), COALESCE(status,0), content, receipts, reactions
	FROM messages`

func (s *DictionaryStore) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMessage(scan func(...any) error) (*Message, error) {
	var m Message
	var fromMe int
	var content, receipts, reactions sql.NullString
	if err := scan(&m.ID, &m.DictionaryID, &m.MsgID, &fromMe, &m.Participant, &m.PushName,
		&m.Timestamp, &m.Status, &content, &receipts, &reactions); err != nil {
		return nil, err
	}
	m.FromMe = fromMe != 0
	if content.Valid && content.String != "" {
		var msg waE2E.Message
		if err := protojson.Unmarshal([]byte(content.String), &msg); err != nil {
			return nil, fmt.Errorf("decode message content: %w", err)
		}
		m.Content = &msg
	}
	if receipts.Valid && receipts.String != "" {
		if err := json.Unmarshal([]byte(receipts.String), &m.Receipts); err != nil {
			return nil, fmt.Errorf("decode message receipts: %w", err)
		}
	}
	if reactions.Valid && reactions.String != "" {
		if err := json.Unmarshal([]byte(reactions.String), &m.Reactions); err != nil {
			return nil, fmt.Errorf("decode message reactions: %w", err)
		}
	}
	return &m, nil
}

func encodeMessageBody(m *Message) (content, receipts, reactions sql.NullString, err error) {
	if m.Content != nil {
		b, merr := protojson.Marshal(m.Content)
		if merr != nil {
			return content, receipts, reactions, fmt.Errorf("encode message content: %w", merr)
		}
		content = sql.NullString{String: string(b), Valid: true}
	}
	if len(m.Receipts) > 0 {
		b, merr := json.Marshal(m.Receipts)
		if merr != nil {
			return content, receipts, reactions, fmt.Errorf("encode message receipts: %w", merr)
		}
		receipts = sql.NullString{String: string(b), Valid: true}
	}
	if len(m.Reactions) > 0 {
		b, merr := json.Marshal(m.Reactions)
		if merr != nil {
			return content, receipts, reactions, fmt.Errorf("encode message reactions: %w", merr)
		}
		reactions = sql.NullString{String: string(b), Valid: true}
	}
	return content, receipts, reactions, nil
}

func reverseMessages(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
