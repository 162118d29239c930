package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/infra/logger"
)

const (
	testChatJID  = "5511999999999@s.whatsapp.net"
	testGroupJID = "123456789@g.us"
	testLIDJID   = "98765432100000@lid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.db"), logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestSession(t *testing.T, db *DB, name string) *Session {
	t.Helper()
	session, err := NewSessionStore(db).Ensure(context.Background(), name)
	require.NoError(t, err)
	return session
}

// newTestHandle returns a bound handle and the bus feeding it.
func newTestHandle(t *testing.T, opts *Options) (*Handle, *event.Bus) {
	t.Helper()
	db := openTestDB(t)
	return newTestHandleOn(t, db, "test", opts)
}

func newTestHandleOn(t *testing.T, db *DB, session string, opts *Options) (*Handle, *event.Bus) {
	t.Helper()
	h := NewHandle(db, newTestSession(t, db, session), opts, logger.Noop())
	bus := event.NewBus()
	h.Bind(context.Background(), bus)
	return h, bus
}

func emitMessage(bus *event.Bus, upsertType event.UpsertType, msgs ...event.Message) {
	bus.Emit(event.KindMessagesUpsert, event.MessagesUpsert{
		Messages: msgs,
		Type:     upsertType,
	})
}

func testMessage(chatJID, id string, ts int64) event.Message {
	return event.Message{
		Key:       event.MessageKey{RemoteJID: chatJID, ID: id},
		Timestamp: ts,
		PushName:  "Tester",
		Status:    2,
	}
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
