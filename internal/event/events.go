// Package event defines the payloads emitted by the messaging connector
// and the bus that carries them to the store.
package event

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// Kind names a connector event stream.
type Kind string

const (
	KindConnectionUpdate        Kind = "connection.update"
	KindHistorySet              Kind = "messaging-history.set"
	KindContactsUpsert          Kind = "contacts.upsert"
	KindContactsUpdate          Kind = "contacts.update"
	KindChatsUpsert             Kind = "chats.upsert"
	KindChatsUpdate             Kind = "chats.update"
	KindChatsDelete             Kind = "chats.delete"
	KindPresenceUpdate          Kind = "presence.update"
	KindMessagesUpsert          Kind = "messages.upsert"
	KindMessagesUpdate          Kind = "messages.update"
	KindMessagesDelete          Kind = "messages.delete"
	KindGroupsUpdate            Kind = "groups.update"
	KindGroupParticipantsUpdate Kind = "group-participants.update"
	KindMessageReceiptUpdate    Kind = "message-receipt.update"
	KindMessagesReaction        Kind = "messages.reaction"
)

// Connection is the last-known connection state of the session.
type Connection string

const (
	ConnectionConnecting Connection = "connecting"
	ConnectionOpen       Connection = "open"
	ConnectionClose      Connection = "close"
)

// ConnectionUpdate patches the connection state cell. An empty Connection
// leaves the current value untouched.
type ConnectionUpdate struct {
	Connection Connection `json:"connection,omitempty"`
}

// MessageKey addresses a single message. RemoteJIDAlt and ParticipantAlt
// carry the linked-identity form of the same party when the connector
// knows it.
type MessageKey struct {
	RemoteJID      string `json:"remoteJid"`
	RemoteJIDAlt   string `json:"remoteJidAlt,omitempty"`
	FromMe         bool   `json:"fromMe"`
	ID             string `json:"id"`
	Participant    string `json:"participant,omitempty"`
	ParticipantAlt string `json:"participantAlt,omitempty"`
}

// UserReceipt is a per-recipient delivery/read record attached to a message.
type UserReceipt struct {
	UserJID          string `json:"userJid"`
	ReceiptTimestamp int64  `json:"receiptTimestamp,omitempty"`
	ReadTimestamp    int64  `json:"readTimestamp,omitempty"`
	PlayedTimestamp  int64  `json:"playedTimestamp,omitempty"`
}

// Reaction is an emoji reaction to a message. An empty Text removes the
// sender's previous reaction.
type Reaction struct {
	Key               MessageKey `json:"key"`
	Text              string     `json:"text"`
	SenderTimestampMS int64      `json:"senderTimestampMs,omitempty"`
}

// Message is the connector's view of a single message.
type Message struct {
	Key       MessageKey     `json:"key"`
	Timestamp int64          `json:"messageTimestamp,omitempty"`
	PushName  string         `json:"pushName,omitempty"`
	Status    int32          `json:"status,omitempty"`
	Content   *waE2E.Message `json:"-"`
	Receipts  []UserReceipt  `json:"userReceipt,omitempty"`
	Reactions []Reaction     `json:"reactions,omitempty"`
}

// Contact carries contact fields known to the connector. Empty fields mean
// "unknown", not "clear"; the store merges field by field.
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Notify       string `json:"notify,omitempty"`
	VerifiedName string `json:"verifiedName,omitempty"`
	ImgURL       string `json:"imgUrl,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Chat is a conversation summary as emitted on chats.upsert.
type Chat struct {
	ID                    string `json:"id"`
	ConversationTimestamp int64  `json:"conversationTimestamp,omitempty"`
	UnreadCount           int    `json:"unreadCount,omitempty"`
}

// ChatUpdate patches an existing chat. Nil fields are untouched. A positive
// UnreadCount is a delta to accumulate; zero or negative overwrites.
type ChatUpdate struct {
	ID                    string `json:"id"`
	ConversationTimestamp *int64 `json:"conversationTimestamp,omitempty"`
	UnreadCount           *int   `json:"unreadCount,omitempty"`
}

// HistorySet is a bulk historical import. When IsLatest is false the import
// is a partial older segment and the store filters it to recent items.
type HistorySet struct {
	Chats    []Chat    `json:"chats"`
	Contacts []Contact `json:"contacts"`
	Messages []Message `json:"messages"`
	IsLatest bool      `json:"isLatest"`
}

// PresenceData is the last-known presence of one participant.
type PresenceData struct {
	LastKnownPresence string `json:"lastKnownPresence"`
	LastSeen          int64  `json:"lastSeen,omitempty"`
}

// PresenceUpdate maps participants of one conversation to their presence.
type PresenceUpdate struct {
	ID        string                  `json:"id"`
	Presences map[string]PresenceData `json:"presences"`
}

// UpsertType classifies a messages.upsert batch.
type UpsertType string

const (
	UpsertAppend UpsertType = "append"
	UpsertNotify UpsertType = "notify"
)

// MessagesUpsert delivers new or re-delivered messages.
type MessagesUpsert struct {
	Messages []Message  `json:"messages"`
	Type     UpsertType `json:"type"`
}

// MessagePatch patches stored message fields. Nil fields are untouched.
type MessagePatch struct {
	Status    *int32         `json:"status,omitempty"`
	Timestamp *int64         `json:"messageTimestamp,omitempty"`
	Content   *waE2E.Message `json:"-"`
}

// MessageUpdate patches one message addressed by its key.
type MessageUpdate struct {
	Key    MessageKey   `json:"key"`
	Update MessagePatch `json:"update"`
}

// MessagesDelete removes either every message of a conversation or a
// specific set of keys.
type MessagesDelete struct {
	All  bool         `json:"all,omitempty"`
	JID  string       `json:"jid,omitempty"`
	Keys []MessageKey `json:"keys,omitempty"`
}

// GroupParticipant is one roster entry of a group.
type GroupParticipant struct {
	ID           string `json:"id"`
	IsAdmin      bool   `json:"isAdmin"`
	IsSuperAdmin bool   `json:"isSuperAdmin"`
}

// GroupMetadata is the full state of a group conversation.
type GroupMetadata struct {
	ID                string             `json:"id"`
	Subject           string             `json:"subject"`
	SubjectOwner      string             `json:"subjectOwner,omitempty"`
	SubjectTime       int64              `json:"subjectTime,omitempty"`
	Owner             string             `json:"owner,omitempty"`
	Creation          int64              `json:"creation,omitempty"`
	Desc              string             `json:"desc,omitempty"`
	DescOwner         string             `json:"descOwner,omitempty"`
	Restrict          bool               `json:"restrict,omitempty"`
	Announce          bool               `json:"announce,omitempty"`
	Size              int                `json:"size,omitempty"`
	Participants      []GroupParticipant `json:"participants"`
	EphemeralDuration int64              `json:"ephemeralDuration,omitempty"`
	InviteCode        string             `json:"inviteCode,omitempty"`
}

// GroupUpdate patches group metadata. Nil fields are untouched.
type GroupUpdate struct {
	ID           string  `json:"id"`
	Subject      *string `json:"subject,omitempty"`
	SubjectOwner *string `json:"subjectOwner,omitempty"`
	SubjectTime  *int64  `json:"subjectTime,omitempty"`
	Owner        *string `json:"owner,omitempty"`
	Desc         *string `json:"desc,omitempty"`
	Restrict     *bool   `json:"restrict,omitempty"`
	Announce     *bool   `json:"announce,omitempty"`
	Size         *int    `json:"size,omitempty"`
	InviteCode   *string `json:"inviteCode,omitempty"`
}

// ParticipantAction is a group roster transition.
type ParticipantAction string

const (
	ParticipantAdd     ParticipantAction = "add"
	ParticipantPromote ParticipantAction = "promote"
	ParticipantDemote  ParticipantAction = "demote"
	ParticipantRemove  ParticipantAction = "remove"
)

// GroupParticipantsUpdate applies one roster transition to a group.
type GroupParticipantsUpdate struct {
	ID           string            `json:"id"`
	Participants []string          `json:"participants"`
	Action       ParticipantAction `json:"action"`
}

// ReceiptUpdate attaches a receipt to a message.
type ReceiptUpdate struct {
	Key     MessageKey  `json:"key"`
	Receipt UserReceipt `json:"receipt"`
}

// ReactionUpdate attaches or removes a reaction on a message.
type ReactionUpdate struct {
	Key      MessageKey `json:"key"`
	Reaction Reaction   `json:"reaction"`
}
