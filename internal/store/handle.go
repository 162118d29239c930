package store

import (
	"context"
	"sync"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/utils/jid"
	"github.com/vspok/wabottle/internal/utils/retry"
)

// Options tunes a Handle.
type Options struct {
	// DisableChatDelete ignores chats.delete events.
	DisableChatDelete bool
	// DisableMessageDelete ignores messages.delete events.
	DisableMessageDelete bool
	// HistoryCutoff bounds how far back a non-final historical import is
	// applied. Zero means the 24h default.
	HistoryCutoff time.Duration
	// WindowSize caps the in-memory recent-message window kept per
	// conversation for pagination. Zero means the default of 50.
	WindowSize int
}

const (
	defaultHistoryCutoff = 24 * time.Hour
	defaultWindowSize    = 50
)

func (o Options) withDefaults() Options {
	if o.HistoryCutoff <= 0 {
		o.HistoryCutoff = defaultHistoryCutoff
	}
	if o.WindowSize <= 0 {
		o.WindowSize = defaultWindowSize
	}
	return o
}

// Handle is the event sink and read surface of one session's replica. It
// owns the connection state cell and the per-conversation message windows;
// all row mutation goes through the session-scoped row stores.
type Handle struct {
	db      *DB
	session *Session
	opts    Options
	log     waLog.Logger

	contacts *ContactStore
	chats    *ChatStore
	dics     *DictionaryStore
	presence *PresenceStore
	groups   *GroupStore

	ctx context.Context

	// Connection state is written only by the connection.update handler;
	// readers may observe a value staler than an in-flight transition.
	connMu sync.RWMutex
	conn   event.Connection

	winMu   sync.Mutex
	windows map[int64][]Message

	now func() time.Time
}

// NewHandle creates a Handle for one resolved session.
func NewHandle(db *DB, session *Session, opts *Options, log waLog.Logger) *Handle {
	var o Options
	if opts != nil {
		o = *opts
	}
	h := &Handle{
		db:      db,
		session: session,
		opts:    o.withDefaults(),
		log:     log.Sub("StoreHandle"),
		ctx:     context.Background(),
		conn:    event.ConnectionClose,
		windows: make(map[int64][]Message),
		now:     time.Now,
	}
	h.contacts = NewContactStore(db, session.ID)
	h.chats = NewChatStore(db, session.ID)
	h.dics = NewDictionaryStore(db, session.ID)
	h.presence = NewPresenceStore(db, session.ID)
	h.groups = NewGroupStore(db, session.ID)
	return h
}

// Session returns the session row this handle is scoped to.
func (h *Handle) Session() *Session {
	return h.session
}

// Connection returns the last-known connection state.
func (h *Handle) Connection() event.Connection {
	h.connMu.RLock()
	defer h.connMu.RUnlock()
	return h.conn
}

// Bind subscribes one handler per event kind on src. Handlers applied to
// one payload process its items sequentially in array order; handlers for
// different kinds are independent of each other.
func (h *Handle) Bind(ctx context.Context, src event.Source) {
	h.ctx = ctx

	src.On(event.KindConnectionUpdate, payloadHandler(h.log, h.handleConnectionUpdate))
	src.On(event.KindHistorySet, payloadHandler(h.log, h.handleHistorySet))
	src.On(event.KindContactsUpsert, payloadHandler(h.log, h.handleContacts))
	src.On(event.KindContactsUpdate, payloadHandler(h.log, h.handleContacts))
	src.On(event.KindChatsUpsert, payloadHandler(h.log, h.handleChatsUpsert))
	src.On(event.KindChatsUpdate, payloadHandler(h.log, h.handleChatsUpdate))
	src.On(event.KindChatsDelete, payloadHandler(h.log, h.handleChatsDelete))
	src.On(event.KindPresenceUpdate, payloadHandler(h.log, h.handlePresenceUpdate))
	src.On(event.KindMessagesUpsert, payloadHandler(h.log, h.handleMessagesUpsert))
	src.On(event.KindMessagesUpdate, payloadHandler(h.log, h.handleMessagesUpdate))
	src.On(event.KindMessagesDelete, payloadHandler(h.log, h.handleMessagesDelete))
	src.On(event.KindGroupsUpdate, payloadHandler(h.log, h.handleGroupsUpdate))
	src.On(event.KindGroupParticipantsUpdate, payloadHandler(h.log, h.handleGroupParticipants))
	src.On(event.KindMessageReceiptUpdate, payloadHandler(h.log, h.handleReceipts))
	src.On(event.KindMessagesReaction, payloadHandler(h.log, h.handleReactions))
}

// payloadHandler adapts a typed handler to the bus. Payloads of the wrong
// type are dropped with a warning instead of poisoning the sink.
func payloadHandler[T any](log waLog.Logger, fn func(T)) func(any) {
	return func(payload any) {
		typed, ok := payload.(T)
		if !ok {
			log.Warnf("Dropping payload of unexpected type %T", payload)
			return
		}
		fn(typed)
	}
}

func (h *Handle) handleConnectionUpdate(u event.ConnectionUpdate) {
	if u.Connection == "" {
		return
	}
	h.connMu.Lock()
	h.conn = u.Connection
	h.connMu.Unlock()
}

// handleHistorySet applies a bulk historical import: contacts first, then
// messages one at a time. Non-final imports are filtered to recent items.
// Every failure here is logged and swallowed.
func (h *Handle) handleHistorySet(hs event.HistorySet) {
	messages := hs.Messages
	if !hs.IsLatest {
		cutoff := h.now().Add(-h.opts.HistoryCutoff)
		recent := make([]event.Message, 0, len(messages))
		for _, m := range messages {
			if time.Unix(m.Timestamp, 0).After(cutoff) {
				recent = append(recent, m)
			}
		}
		messages = recent
	}

	if err := retry.Do(h.ctx, func() error {
		return h.contacts.Upsert(h.ctx, hs.Contacts)
	}); err != nil {
		h.log.Errorf("History import: contacts upsert failed: %v", err)
	}

	if err := retry.Do(h.ctx, func() error {
		return h.chats.InsertNew(h.ctx, hs.Chats)
	}); err != nil {
		h.log.Errorf("History import: chats upsert failed: %v", err)
	}

	for i := range messages {
		if err := h.reconcileMessage(&messages[i]); err != nil {
			h.log.Errorf("History import: message %s failed: %v", messages[i].Key.ID, err)
		}
	}
}

func (h *Handle) handleContacts(contacts []event.Contact) {
	if err := retry.Do(h.ctx, func() error {
		return h.contacts.Upsert(h.ctx, contacts)
	}); err != nil {
		h.log.Errorf("Contacts upsert failed: %v", err)
	}
}

func (h *Handle) handleChatsUpsert(chats []event.Chat) {
	if err := retry.Do(h.ctx, func() error {
		return h.chats.InsertNew(h.ctx, chats)
	}); err != nil {
		h.log.Debugf("Chats upsert failed: %v", err)
	}
}

func (h *Handle) handleChatsUpdate(updates []event.ChatUpdate) {
	for _, u := range updates {
		chat, err := h.chats.Get(h.ctx, u.ID)
		if err != nil {
			h.log.Errorf("Chats update: lookup %s failed: %v", u.ID, err)
			continue
		}
		if chat == nil {
			continue
		}
		applyChatUpdate(chat, u)
		if err := retry.Do(h.ctx, func() error {
			return h.chats.Save(h.ctx, chat)
		}); err != nil {
			h.log.Errorf("Chats update: save %s failed: %v", u.ID, err)
		}
	}
}

// handlePresenceUpdate merges the incoming participant map into the
// conversation's presence dictionary. Presence is best-effort state;
// failures are logged and swallowed.
func (h *Handle) handlePresenceUpdate(u event.PresenceUpdate) {
	dic, err := h.presence.EnsureDic(h.ctx, u.ID)
	if err != nil {
		h.log.Warnf("Presence update: dictionary for %s failed: %v", u.ID, err)
		return
	}
	for participant, data := range u.Presences {
		if err := retry.Do(h.ctx, func() error {
			return h.presence.Upsert(h.ctx, dic.ID, participant, data)
		}); err != nil {
			h.log.Warnf("Presence update: %s in %s failed: %v", participant, u.ID, err)
		}
	}
}

func (h *Handle) handleChatsDelete(ids []string) {
	if h.opts.DisableChatDelete {
		return
	}
	for _, id := range ids {
		if err := retry.Do(h.ctx, func() error {
			return h.chats.Delete(h.ctx, id)
		}); err != nil {
			h.log.Errorf("Chats delete: %s failed: %v", id, err)
		}
	}
}

func (h *Handle) handleMessagesUpsert(u event.MessagesUpsert) {
	if u.Type != event.UpsertAppend && u.Type != event.UpsertNotify {
		return
	}
	for i := range u.Messages {
		msg := &u.Messages[i]
		inserted, err := h.reconcileMessageReport(msg)
		if err != nil {
			h.log.Errorf("Messages upsert: %s failed: %v", msg.Key.ID, err)
			continue
		}
		if !inserted || u.Type != event.UpsertNotify {
			continue
		}
		// First inbound message of an unknown conversation creates its
		// chat row through the regular upsert path.
		remote := jid.ResolveRemote(msg.Key)
		chat, err := h.chats.Get(h.ctx, remote)
		if err != nil {
			h.log.Errorf("Messages upsert: chat lookup %s failed: %v", remote, err)
			continue
		}
		if chat == nil {
			h.handleChatsUpsert([]event.Chat{{
				ID:                    remote,
				ConversationTimestamp: msg.Timestamp,
				UnreadCount:           1,
			}})
		}
	}
}

func (h *Handle) handleMessagesUpdate(updates []event.MessageUpdate) {
	for _, u := range updates {
		remote := jid.ResolveRemote(u.Key)
		dic, err := h.dics.Find(h.ctx, remote)
		if err != nil {
			h.log.Errorf("Messages update: dictionary %s failed: %v", remote, err)
			continue
		}
		if dic == nil {
			continue
		}
		msg, err := h.dics.FindMessage(h.ctx, dic.ID, u.Key.ID)
		if err != nil {
			h.log.Errorf("Messages update: lookup %s failed: %v", u.Key.ID, err)
			continue
		}
		if msg == nil {
			continue
		}
		applyMessagePatch(msg, u.Update)
		if err := h.saveMessage(msg); err != nil {
			h.log.Errorf("Messages update: save %s failed: %v", u.Key.ID, err)
		}
	}
}

func (h *Handle) handleMessagesDelete(d event.MessagesDelete) {
	if h.opts.DisableMessageDelete {
		return
	}
	var target string
	if d.All {
		target = jid.Normalize(d.JID)
	} else {
		if len(d.Keys) == 0 {
			return
		}
		target = jid.ResolveRemote(d.Keys[0])
	}
	dic, err := h.dics.Find(h.ctx, target)
	if err != nil {
		h.log.Errorf("Messages delete: dictionary %s failed: %v", target, err)
		return
	}
	if dic == nil {
		return
	}
	if d.All {
		if err := retry.Do(h.ctx, func() error {
			return h.dics.DeleteAll(h.ctx, dic.ID)
		}); err != nil {
			h.log.Errorf("Messages delete: clear %s failed: %v", target, err)
			return
		}
		h.windowDrop(dic.ID)
		return
	}
	msgIDs := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		msgIDs = append(msgIDs, k.ID)
	}
	if err := retry.Do(h.ctx, func() error {
		return h.dics.DeleteByMsgIDs(h.ctx, dic.ID, msgIDs)
	}); err != nil {
		h.log.Errorf("Messages delete: %s failed: %v", target, err)
		return
	}
	h.windowDrop(dic.ID)
}

func (h *Handle) handleGroupsUpdate(updates []event.GroupUpdate) {
	for _, u := range updates {
		group, err := h.groups.Get(h.ctx, u.ID)
		if err != nil {
			h.log.Errorf("Groups update: lookup %s failed: %v", u.ID, err)
			continue
		}
		if group == nil {
			continue
		}
		applyGroupUpdate(group, u)
		if err := retry.Do(h.ctx, func() error {
			return h.groups.Save(h.ctx, group)
		}); err != nil {
			h.log.Errorf("Groups update: save %s failed: %v", u.ID, err)
		}
	}
}

func (h *Handle) handleGroupParticipants(u event.GroupParticipantsUpdate) {
	group, err := h.groups.Get(h.ctx, u.ID)
	if err != nil {
		h.log.Errorf("Group participants: lookup %s failed: %v", u.ID, err)
		return
	}
	if group == nil {
		return
	}

	switch u.Action {
	case event.ParticipantAdd:
		for _, id := range u.Participants {
			group.Participants = append(group.Participants, event.GroupParticipant{ID: id})
		}
	case event.ParticipantPromote, event.ParticipantDemote:
		named := make(map[string]bool, len(u.Participants))
		for _, id := range u.Participants {
			named[id] = true
		}
		for i := range group.Participants {
			if named[group.Participants[i].ID] {
				group.Participants[i].IsAdmin = u.Action == event.ParticipantPromote
			}
		}
	case event.ParticipantRemove:
		named := make(map[string]bool, len(u.Participants))
		for _, id := range u.Participants {
			named[id] = true
		}
		kept := group.Participants[:0]
		for _, p := range group.Participants {
			if !named[p.ID] {
				kept = append(kept, p)
			}
		}
		group.Participants = kept
	default:
		h.log.Warnf("Group participants: unknown action %q for %s", u.Action, u.ID)
		return
	}

	if err := retry.Do(h.ctx, func() error {
		return h.groups.Save(h.ctx, group)
	}); err != nil {
		h.log.Errorf("Group participants: save %s failed: %v", u.ID, err)
	}
}

func (h *Handle) handleReceipts(updates []event.ReceiptUpdate) {
	for _, u := range updates {
		h.mergeIntoMessage(u.Key, "receipt", func(msg *Message) {
			msg.Receipts = event.MergeReceipts(msg.Receipts, u.Receipt)
		})
	}
}

func (h *Handle) handleReactions(updates []event.ReactionUpdate) {
	for _, u := range updates {
		h.mergeIntoMessage(u.Key, "reaction", func(msg *Message) {
			msg.Reactions = event.MergeReactions(msg.Reactions, u.Reaction)
		})
	}
}

// mergeIntoMessage locates the message addressed by key, applies merge,
// and persists it under the retry policy. Unseen messages are a no-op.
func (h *Handle) mergeIntoMessage(key event.MessageKey, what string, merge func(*Message)) {
	remote := jid.ResolveRemote(key)
	dic, err := h.dics.Find(h.ctx, remote)
	if err != nil {
		h.log.Errorf("Message %s: dictionary %s failed: %v", what, remote, err)
		return
	}
	if dic == nil {
		return
	}
	msg, err := h.dics.FindMessage(h.ctx, dic.ID, key.ID)
	if err != nil {
		h.log.Errorf("Message %s: lookup %s failed: %v", what, key.ID, err)
		return
	}
	if msg == nil {
		return
	}
	merge(msg)
	if err := h.saveMessage(msg); err != nil {
		h.log.Errorf("Message %s: save %s failed: %v", what, key.ID, err)
	}
}

// reconcileMessage inserts the message if its (msgId, dictionary) pair is
// new, otherwise field-merges it into the existing row.
func (h *Handle) reconcileMessage(m *event.Message) error {
	_, err := h.reconcileMessageReport(m)
	return err
}

func (h *Handle) reconcileMessageReport(m *event.Message) (inserted bool, err error) {
	remote := jid.ResolveRemote(m.Key)

	dic, err := h.dics.Find(h.ctx, remote)
	if err != nil {
		return false, err
	}

	var existing *Message
	if dic != nil {
		existing, err = h.dics.FindMessage(h.ctx, dic.ID, m.Key.ID)
		if err != nil {
			return false, err
		}
	}

	if existing == nil {
		if dic == nil {
			dic, err = retry.DoValue(h.ctx, func() (*Dictionary, error) {
				return h.dics.Ensure(h.ctx, remote)
			})
			if err != nil {
				return false, err
			}
		}
		row := messageFromEvent(m, dic.ID)
		if err := retry.Do(h.ctx, func() error {
			return h.dics.InsertMessage(h.ctx, row)
		}); err != nil {
			return false, err
		}
		h.windowInsert(dic.ID, *row)
		return true, nil
	}

	mergeMessage(existing, m)
	return false, h.saveMessage(existing)
}

func (h *Handle) saveMessage(msg *Message) error {
	if err := retry.Do(h.ctx, func() error {
		return h.dics.UpdateMessage(h.ctx, msg)
	}); err != nil {
		return err
	}
	h.windowReplace(msg.DictionaryID, *msg)
	return nil
}

func messageFromEvent(m *event.Message, dicID int64) *Message {
	participant, _ := jid.ResolveParticipant(m.Key)
	return &Message{
		DictionaryID: dicID,
		MsgID:        m.Key.ID,
		FromMe:       m.Key.FromMe,
		Participant:  participant,
		PushName:     m.PushName,
		Timestamp:    m.Timestamp,
		Status:       m.Status,
		Content:      m.Content,
		Receipts:     m.Receipts,
		Reactions:    m.Reactions,
	}
}

// mergeMessage overlays the fields present on the incoming record onto the
// stored row. Absent fields keep their stored value.
func mergeMessage(existing *Message, incoming *event.Message) {
	existing.FromMe = incoming.Key.FromMe
	if p, ok := jid.ResolveParticipant(incoming.Key); ok {
		existing.Participant = p
	}
	if incoming.PushName != "" {
		existing.PushName = incoming.PushName
	}
	if incoming.Timestamp != 0 {
		existing.Timestamp = incoming.Timestamp
	}
	if incoming.Status != 0 {
		existing.Status = incoming.Status
	}
	if incoming.Content != nil {
		existing.Content = incoming.Content
	}
	if incoming.Receipts != nil {
		existing.Receipts = incoming.Receipts
	}
	if incoming.Reactions != nil {
		existing.Reactions = incoming.Reactions
	}
}

// applyChatUpdate merges a chat patch. A positive unread count accumulates
// onto the stored counter; zero or negative overwrites it.
func applyChatUpdate(chat *Chat, u event.ChatUpdate) {
	if u.ConversationTimestamp != nil {
		chat.ConversationTimestamp = *u.ConversationTimestamp
	}
	if u.UnreadCount != nil {
		if *u.UnreadCount > 0 {
			chat.UnreadCount += *u.UnreadCount
		} else {
			chat.UnreadCount = *u.UnreadCount
		}
	}
}

func applyMessagePatch(msg *Message, p event.MessagePatch) {
	if p.Status != nil {
		msg.Status = *p.Status
	}
	if p.Timestamp != nil {
		msg.Timestamp = *p.Timestamp
	}
	if p.Content != nil {
		msg.Content = p.Content
	}
}

func applyGroupUpdate(g *event.GroupMetadata, u event.GroupUpdate) {
	if u.Subject != nil {
		g.Subject = *u.Subject
	}
	if u.SubjectOwner != nil {
		g.SubjectOwner = *u.SubjectOwner
	}
	if u.SubjectTime != nil {
		g.SubjectTime = *u.SubjectTime
	}
	if u.Owner != nil {
		g.Owner = *u.Owner
	}
	if u.Desc != nil {
		g.Desc = *u.Desc
	}
	if u.Restrict != nil {
		g.Restrict = *u.Restrict
	}
	if u.Announce != nil {
		g.Announce = *u.Announce
	}
	if u.Size != nil {
		g.Size = *u.Size
	}
	if u.InviteCode != nil {
		g.InviteCode = *u.InviteCode
	}
}
