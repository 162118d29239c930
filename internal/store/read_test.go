package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/utils/jid"
)

func seedMessages(bus *event.Bus, chatJID string, n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("M%02d", i+1)
		emitMessage(bus, event.UpsertAppend, testMessage(chatJID, ids[i], int64(1000+i)))
	}
	return ids
}

func msgIDs(msgs []Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.MsgID
	}
	return ids
}

func TestLoadMessagesTail(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 10)

	msgs, err := h.LoadMessages(ctx, testChatJID, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"M06", "M07", "M08", "M09", "M10"}, msgIDs(msgs))
}

func TestLoadMessagesAll(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 10)

	msgs, err := h.LoadMessages(ctx, testChatJID, 50, nil)
	require.NoError(t, err)
	assert.Len(t, msgs, 10)
	assert.Equal(t, "M01", msgs[0].MsgID)
	assert.Equal(t, "M10", msgs[9].MsgID)
}

func TestLoadMessagesBeforeCursor(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 10)

	cursor := &Cursor{Before: &event.MessageKey{RemoteJID: testChatJID, ID: "M07"}}
	msgs, err := h.LoadMessages(ctx, testChatJID, 5, cursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"M02", "M03", "M04", "M05", "M06"}, msgIDs(msgs))
}

func TestLoadMessagesBeforeFirstIsEmpty(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 5)

	cursor := &Cursor{Before: &event.MessageKey{RemoteJID: testChatJID, ID: "M01"}}
	msgs, err := h.LoadMessages(ctx, testChatJID, 5, cursor)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoadMessagesUnknownCursorIsEmpty(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 5)

	cursor := &Cursor{Before: &event.MessageKey{RemoteJID: testChatJID, ID: "NOPE"}}
	msgs, err := h.LoadMessages(ctx, testChatJID, 5, cursor)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoadMessagesAfterCursor(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 10)

	cursor := &Cursor{After: &event.MessageKey{RemoteJID: testChatJID, ID: "M05"}}
	msgs, err := h.LoadMessages(ctx, testChatJID, 3, cursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"M06", "M07", "M08"}, msgIDs(msgs))
}

func TestLoadMessagesUnknownChatIsEmpty(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	msgs, err := h.LoadMessages(ctx, testChatJID, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

// A page larger than the resident window falls back to the database for
// the remainder.
func TestLoadMessagesBeyondWindow(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, &Options{WindowSize: 5})
	seedMessages(bus, testChatJID, 10)

	msgs, err := h.LoadMessages(ctx, testChatJID, 8, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"M03", "M04", "M05", "M06", "M07", "M08", "M09", "M10"}, msgIDs(msgs))
}

func TestLoadMessagesCursorOutsideWindow(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, &Options{WindowSize: 3})
	seedMessages(bus, testChatJID, 10)

	// M02 left the window long ago; the anchor resolves from the database.
	cursor := &Cursor{Before: &event.MessageKey{RemoteJID: testChatJID, ID: "M05"}}
	msgs, err := h.LoadMessages(ctx, testChatJID, 3, cursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"M02", "M03", "M04"}, msgIDs(msgs))
}

func TestMostRecentMessage(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 3)

	msg, err := h.MostRecentMessage(ctx, testChatJID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "M03", msg.MsgID)

	msg, err = h.MostRecentMessage(ctx, "unknown@s.whatsapp.net")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

type fakeLookup struct {
	resolved string
	err      error
	calls    []string
}

func (f *fakeLookup) Resolve(ctx context.Context, digits string) (string, error) {
	f.calls = append(f.calls, digits)
	return f.resolved, f.err
}

func TestLoadMessageDirect(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)
	seedMessages(bus, testChatJID, 1)

	lookup := &fakeLookup{}
	msg, err := h.LoadMessage(ctx, testChatJID, "M01", lookup)
	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Empty(t, lookup.calls)
}

func TestLoadMessageResolvesAlternateIdentity(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)

	// Stored under the canonical PN form.
	emitMessage(bus, event.UpsertAppend, testMessage(testChatJID, "M01", 1000))

	lookup := &fakeLookup{resolved: testChatJID}
	msg, err := h.LoadMessage(ctx, testLIDJID, "M01", lookup)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []string{jid.Digits(testLIDJID)}, lookup.calls)
}

func TestLoadMessageLookupFailureDegrades(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	lookup := &fakeLookup{err: errors.New("offline")}
	msg, err := h.LoadMessage(ctx, testChatJID, "M01", lookup)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

type fakePictures struct {
	url   string
	err   error
	calls int
}

func (f *fakePictures) ProfilePicture(ctx context.Context, id string) (string, error) {
	f.calls++
	return f.url, f.err
}

func TestFetchImageURLCachesResult(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)

	bus.Emit(event.KindContactsUpsert, []event.Contact{{ID: testChatJID, Name: "Alice"}})

	fetcher := &fakePictures{url: "https://pic.example/alice.jpg"}
	url, err := h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "https://pic.example/alice.jpg", url)
	assert.Equal(t, 1, fetcher.calls)

	url, err = h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "https://pic.example/alice.jpg", url)
	assert.Equal(t, 1, fetcher.calls)
}

// A completed fetch that found no picture is recorded and not repeated.
func TestFetchImageURLEmptyResultIsCached(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)

	bus.Emit(event.KindContactsUpsert, []event.Contact{{ID: testChatJID, Name: "Alice"}})

	fetcher := &fakePictures{url: ""}
	_, err := h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	_, err = h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestFetchImageURLUnknownContactNotStored(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	fetcher := &fakePictures{url: "https://pic.example/x.jpg"}
	url, err := h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "https://pic.example/x.jpg", url)

	contact, err := h.Contact(ctx, testChatJID)
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestFetchImageURLFetcherFailureDegrades(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)

	bus.Emit(event.KindContactsUpsert, []event.Contact{{ID: testChatJID}})

	fetcher := &fakePictures{err: errors.New("offline")}
	url, err := h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Empty(t, url)

	// The failed fetch is not recorded; a later one retries.
	fetcher.err = nil
	fetcher.url = "https://pic.example/late.jpg"
	url, err = h.FetchImageURL(ctx, testChatJID, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "https://pic.example/late.jpg", url)
}

type fakeGroups struct {
	meta  *event.GroupMetadata
	err   error
	calls int
}

func (f *fakeGroups) GroupMetadata(ctx context.Context, id string) (*event.GroupMetadata, error) {
	f.calls++
	return f.meta, f.err
}

func TestFetchGroupMetadataCaches(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	fetcher := &fakeGroups{meta: &event.GroupMetadata{Subject: "Team"}}
	g, err := h.FetchGroupMetadata(ctx, testGroupJID, fetcher)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "Team", g.Subject)

	g, err = h.FetchGroupMetadata(ctx, testGroupJID, fetcher)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 1, fetcher.calls)
}

func TestFetchGroupMetadataFailureDegrades(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	fetcher := &fakeGroups{err: errors.New("offline")}
	g, err := h.FetchGroupMetadata(ctx, testGroupJID, fetcher)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestFetchMessageReceiptsUnseenMessage(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	receipts, err := h.FetchMessageReceipts(ctx, event.MessageKey{RemoteJID: testChatJID, ID: "M1"})
	require.NoError(t, err)
	assert.Nil(t, receipts)
}

func TestChatsOrderedByActivity(t *testing.T) {
	ctx := context.Background()
	h, bus := newTestHandle(t, nil)

	bus.Emit(event.KindChatsUpsert, []event.Chat{
		{ID: "old@s.whatsapp.net", ConversationTimestamp: 100},
		{ID: "new@s.whatsapp.net", ConversationTimestamp: 300},
		{ID: "mid@s.whatsapp.net", ConversationTimestamp: 200},
	})

	chats, err := h.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 3)
	assert.Equal(t, "new@s.whatsapp.net", chats[0].ID)
	assert.Equal(t, "old@s.whatsapp.net", chats[2].ID)
}
