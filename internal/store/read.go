package store

import (
	"context"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/utils/jid"
	"github.com/vspok/wabottle/internal/utils/retry"
)

// Cursor anchors a page of messages. Exactly one of Before or After should
// be set; nil means the most recent page.
type Cursor struct {
	Before *event.MessageKey
	After  *event.MessageKey
}

// IdentityLookup resolves a phone number (digits only) to the canonical
// identity currently registered for it.
type IdentityLookup interface {
	Resolve(ctx context.Context, digits string) (string, error)
}

// ProfilePictureFetcher fetches the current profile picture URL of an
// identity from the remote service.
type ProfilePictureFetcher interface {
	ProfilePicture(ctx context.Context, id string) (string, error)
}

// GroupMetadataFetcher fetches full group metadata from the remote service.
type GroupMetadataFetcher interface {
	GroupMetadata(ctx context.Context, id string) (*event.GroupMetadata, error)
}

// Chats returns every chat of the session, most recently active first.
func (h *Handle) Chats(ctx context.Context) ([]Chat, error) {
	return h.chats.All(ctx)
}

// Chat returns one chat or nil when unseen.
func (h *Handle) Chat(ctx context.Context, id string) (*Chat, error) {
	return h.chats.Get(ctx, jid.Normalize(id))
}

// Contacts returns every contact of the session.
func (h *Handle) Contacts(ctx context.Context) ([]Contact, error) {
	return h.contacts.All(ctx)
}

// Contact returns one contact or nil when unseen.
func (h *Handle) Contact(ctx context.Context, id string) (*Contact, error) {
	return h.contacts.Get(ctx, jid.Normalize(id))
}

// Groups returns every group roster of the session.
func (h *Handle) Groups(ctx context.Context) ([]event.GroupMetadata, error) {
	return h.groups.All(ctx)
}

// Group returns one group's metadata or nil when unseen.
func (h *Handle) Group(ctx context.Context, id string) (*event.GroupMetadata, error) {
	return h.groups.Get(ctx, jid.Normalize(id))
}

// Presences returns the last-known presence of every participant observed
// in one conversation.
func (h *Handle) Presences(ctx context.Context, chatID string) ([]Presence, error) {
	dic, err := h.presence.FindDic(ctx, jid.Normalize(chatID))
	if err != nil || dic == nil {
		return nil, err
	}
	return h.presence.All(ctx, dic.ID)
}

// Presence returns one participant's presence in a conversation, nil when
// never observed.
func (h *Handle) Presence(ctx context.Context, chatID, participant string) (*Presence, error) {
	dic, err := h.presence.FindDic(ctx, jid.Normalize(chatID))
	if err != nil || dic == nil {
		return nil, err
	}
	return h.presence.Get(ctx, dic.ID, participant)
}

// LoadMessages returns up to count messages of a conversation in ascending
// stored order. With a nil cursor it returns the most recent page; a Before
// cursor pages backward from (exclusive of) the anchored message, an After
// cursor forward. An anchor that is not in the store yields an empty page.
func (h *Handle) LoadMessages(ctx context.Context, chatID string, count int, cursor *Cursor) ([]Message, error) {
	if count <= 0 {
		return nil, nil
	}
	dic, err := h.dics.Find(ctx, jid.Normalize(chatID))
	if err != nil || dic == nil {
		return nil, err
	}

	win, err := h.seedWindow(ctx, dic.ID)
	if err != nil {
		return nil, err
	}

	if cursor != nil && cursor.Before != nil {
		return h.pageBefore(ctx, dic.ID, win, cursor.Before.ID, count)
	}
	if cursor != nil && cursor.After != nil {
		return h.pageAfter(ctx, dic.ID, win, cursor.After.ID, count)
	}
	return h.pageTail(ctx, dic.ID, win, count)
}

func (h *Handle) pageTail(ctx context.Context, dicID int64, win []Message, count int) ([]Message, error) {
	if len(win) >= count {
		return win[len(win)-count:], nil
	}
	if len(win) == 0 {
		return h.dics.Tail(ctx, dicID, count)
	}
	older, err := h.dics.Before(ctx, dicID, win[0].ID, count-len(win))
	if err != nil {
		return nil, err
	}
	return append(older, win...), nil
}

func (h *Handle) pageBefore(ctx context.Context, dicID int64, win []Message, anchorMsgID string, count int) ([]Message, error) {
	anchorID, ok := anchorIn(win, anchorMsgID)
	if !ok {
		anchor, err := h.dics.FindMessage(ctx, dicID, anchorMsgID)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, nil
		}
		anchorID = anchor.ID
	}
	return h.dics.Before(ctx, dicID, anchorID, count)
}

func (h *Handle) pageAfter(ctx context.Context, dicID int64, win []Message, anchorMsgID string, count int) ([]Message, error) {
	anchorID, ok := anchorIn(win, anchorMsgID)
	if !ok {
		anchor, err := h.dics.FindMessage(ctx, dicID, anchorMsgID)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, nil
		}
		anchorID = anchor.ID
	}
	return h.dics.After(ctx, dicID, anchorID, count)
}

func anchorIn(win []Message, msgID string) (int64, bool) {
	for i := range win {
		if win[i].MsgID == msgID {
			return win[i].ID, true
		}
	}
	return 0, false
}

// LoadMessage returns one message by conversation and message id. When the
// conversation is unknown under the given identity and a lookup is
// available, the identity's phone digits are resolved to the canonical form
// and the search retried under it.
func (h *Handle) LoadMessage(ctx context.Context, chatID, msgID string, lookup IdentityLookup) (*Message, error) {
	norm := jid.Normalize(chatID)
	msg, err := h.findMessageByJID(ctx, norm, msgID)
	if err != nil || msg != nil {
		return msg, err
	}
	if lookup == nil {
		return nil, nil
	}
	alt, err := lookup.Resolve(ctx, jid.Digits(norm))
	if err != nil {
		h.log.Warnf("Message lookup: resolving %s failed: %v", norm, err)
		return nil, nil
	}
	alt = jid.Normalize(alt)
	if alt == "" || alt == norm {
		return nil, nil
	}
	return h.findMessageByJID(ctx, alt, msgID)
}

func (h *Handle) findMessageByJID(ctx context.Context, chatID, msgID string) (*Message, error) {
	dic, err := h.dics.Find(ctx, chatID)
	if err != nil || dic == nil {
		return nil, err
	}
	return h.dics.FindMessage(ctx, dic.ID, msgID)
}

// MostRecentMessage returns the newest stored message of a conversation,
// nil when the conversation has none.
func (h *Handle) MostRecentMessage(ctx context.Context, chatID string) (*Message, error) {
	dic, err := h.dics.Find(ctx, jid.Normalize(chatID))
	if err != nil || dic == nil {
		return nil, err
	}
	return h.dics.MostRecent(ctx, dic.ID)
}

// FetchImageURL returns a contact's profile picture URL, fetching and
// caching it on first access. A stored empty string means a completed
// fetch that found no picture and is not retried.
func (h *Handle) FetchImageURL(ctx context.Context, id string, fetcher ProfilePictureFetcher) (string, error) {
	norm := jid.Normalize(id)
	contact, err := h.contacts.Get(ctx, norm)
	if err != nil {
		return "", err
	}
	if contact != nil && contact.ImgURL != nil {
		return *contact.ImgURL, nil
	}
	if fetcher == nil {
		return "", nil
	}
	url, err := fetcher.ProfilePicture(ctx, norm)
	if err != nil {
		h.log.Warnf("Profile picture fetch for %s failed: %v", norm, err)
		return "", nil
	}
	if contact != nil {
		if err := retry.Do(ctx, func() error {
			return h.contacts.SetImageURL(ctx, norm, url)
		}); err != nil {
			h.log.Errorf("Storing profile picture for %s failed: %v", norm, err)
		}
	}
	return url, nil
}

// FetchGroupMetadata returns a group's metadata, fetching and caching it
// from the remote service on first access.
func (h *Handle) FetchGroupMetadata(ctx context.Context, id string, fetcher GroupMetadataFetcher) (*event.GroupMetadata, error) {
	norm := jid.Normalize(id)
	group, err := h.groups.Get(ctx, norm)
	if err != nil || group != nil {
		return group, err
	}
	if fetcher == nil {
		return nil, nil
	}
	fetched, err := fetcher.GroupMetadata(ctx, norm)
	if err != nil {
		h.log.Warnf("Group metadata fetch for %s failed: %v", norm, err)
		return nil, nil
	}
	if fetched == nil {
		return nil, nil
	}
	fetched.ID = norm
	if err := retry.Do(ctx, func() error {
		return h.groups.Save(ctx, fetched)
	}); err != nil {
		h.log.Errorf("Storing group metadata for %s failed: %v", norm, err)
	}
	return fetched, nil
}

// FetchMessageReceipts returns the receipts recorded on the message the key
// addresses, nil when the message is unseen.
func (h *Handle) FetchMessageReceipts(ctx context.Context, key event.MessageKey) ([]event.UserReceipt, error) {
	msg, err := h.findMessageByJID(ctx, jid.ResolveRemote(key), key.ID)
	if err != nil || msg == nil {
		return nil, err
	}
	return msg.Receipts, nil
}
