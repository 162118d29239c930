// Package jid normalizes and classifies remote-party identifiers.
//
// A party can be addressed by a phone-number-style JID (PN) or by a
// privacy-preserving linked identifier (LID). Message keys may carry both;
// the resolver prefers the alternate PN form when present so that
// conversations are filed under a single canonical address.
package jid

import (
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/vspok/wabottle/internal/event"
)

// Normalize canonicalizes a JID string: device and agent suffixes are
// dropped, leaving user@server. Idempotent; unparseable input is returned
// trimmed as-is.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	j, err := types.ParseJID(s)
	if err != nil || j.IsEmpty() {
		return s
	}
	return types.NewJID(j.User, j.Server).String()
}

// IsPN reports whether s is a phone-number-style user JID.
func IsPN(s string) bool {
	j, err := types.ParseJID(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return j.Server == types.DefaultUserServer && j.User != ""
}

// IsLID reports whether s is a linked-identifier user JID.
func IsLID(s string) bool {
	j, err := types.ParseJID(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return j.Server == types.HiddenUserServer && j.User != ""
}

// IsGroup reports whether s addresses a group conversation.
func IsGroup(s string) bool {
	j, err := types.ParseJID(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return j.Server == types.GroupServer
}

// ResolveRemote picks the conversation address out of a message key,
// preferring the alternate identifier when it is phone-number-style.
func ResolveRemote(key event.MessageKey) string {
	if key.RemoteJIDAlt != "" && IsPN(key.RemoteJIDAlt) {
		return Normalize(key.RemoteJIDAlt)
	}
	return Normalize(key.RemoteJID)
}

// ResolveParticipant picks the sending participant out of a message key,
// preferring the alternate identifier when present. The second return is
// false when the key names no participant.
func ResolveParticipant(key event.MessageKey) (string, bool) {
	if key.ParticipantAlt != "" {
		return Normalize(key.ParticipantAlt), true
	}
	if key.Participant != "" {
		return Normalize(key.Participant), true
	}
	return "", false
}

// Digits strips everything but digits and dashes from a JID, leaving the
// phone-number part used for live identity lookups.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
}
