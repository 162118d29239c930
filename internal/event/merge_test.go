package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeReceiptsAppendsNewUser(t *testing.T) {
	got := MergeReceipts(nil, UserReceipt{UserJID: "a@s.whatsapp.net", ReceiptTimestamp: 10})
	assert.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ReceiptTimestamp)
}

func TestMergeReceiptsUpdatesExisting(t *testing.T) {
	existing := []UserReceipt{{UserJID: "a@s.whatsapp.net", ReceiptTimestamp: 10}}
	got := MergeReceipts(existing, UserReceipt{UserJID: "a@s.whatsapp.net", ReadTimestamp: 20})

	assert.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].ReceiptTimestamp)
	assert.Equal(t, int64(20), got[0].ReadTimestamp)
}

func TestMergeReceiptsZeroTimestampKeepsOld(t *testing.T) {
	existing := []UserReceipt{{UserJID: "a@s.whatsapp.net", ReceiptTimestamp: 10, ReadTimestamp: 20}}
	got := MergeReceipts(existing, UserReceipt{UserJID: "a@s.whatsapp.net", PlayedTimestamp: 30})

	assert.Equal(t, int64(10), got[0].ReceiptTimestamp)
	assert.Equal(t, int64(20), got[0].ReadTimestamp)
	assert.Equal(t, int64(30), got[0].PlayedTimestamp)
}

func TestMergeReactionsReplacesSameSender(t *testing.T) {
	key := MessageKey{ID: "M1", Participant: "a@s.whatsapp.net"}
	existing := []Reaction{{Key: key, Text: "👍"}}
	got := MergeReactions(existing, Reaction{Key: key, Text: "❤️"})

	assert.Len(t, got, 1)
	assert.Equal(t, "❤️", got[0].Text)
}

func TestMergeReactionsEmptyTextRemoves(t *testing.T) {
	key := MessageKey{ID: "M1", Participant: "a@s.whatsapp.net"}
	other := MessageKey{ID: "M1", Participant: "b@s.whatsapp.net"}
	existing := []Reaction{{Key: key, Text: "👍"}, {Key: other, Text: "😀"}}

	got := MergeReactions(existing, Reaction{Key: key, Text: ""})
	assert.Len(t, got, 1)
	assert.Equal(t, "b@s.whatsapp.net", got[0].Key.Participant)
}

func TestMergeReactionsDifferentSendersAccumulate(t *testing.T) {
	a := MessageKey{ID: "M1", Participant: "a@s.whatsapp.net"}
	b := MessageKey{ID: "M1", Participant: "b@s.whatsapp.net"}

	got := MergeReactions(nil, Reaction{Key: a, Text: "👍"})
	got = MergeReactions(got, Reaction{Key: b, Text: "👍"})
	assert.Len(t, got, 2)
}
