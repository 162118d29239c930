package event

// MergeReceipts folds a receipt into a message's receipt list. An existing
// entry for the same user is updated field by field; otherwise the receipt
// is appended. Zero timestamps never erase a previously recorded one.
func MergeReceipts(receipts []UserReceipt, incoming UserReceipt) []UserReceipt {
	for i := range receipts {
		if receipts[i].UserJID != incoming.UserJID {
			continue
		}
		if incoming.ReceiptTimestamp != 0 {
			receipts[i].ReceiptTimestamp = incoming.ReceiptTimestamp
		}
		if incoming.ReadTimestamp != 0 {
			receipts[i].ReadTimestamp = incoming.ReadTimestamp
		}
		if incoming.PlayedTimestamp != 0 {
			receipts[i].PlayedTimestamp = incoming.PlayedTimestamp
		}
		return receipts
	}
	return append(receipts, incoming)
}

// MergeReactions folds a reaction into a message's reaction list. The
// sender's previous reaction (matched by key) is dropped first; a reaction
// with empty text is a pure removal.
func MergeReactions(reactions []Reaction, incoming Reaction) []Reaction {
	out := reactions[:0]
	for _, r := range reactions {
		if reactionKeyMatch(r.Key, incoming.Key) {
			continue
		}
		out = append(out, r)
	}
	if incoming.Text == "" {
		return out
	}
	return append(out, incoming)
}

func reactionKeyMatch(a, b MessageKey) bool {
	return a.ID == b.ID && a.FromMe == b.FromMe && a.Participant == b.Participant
}
