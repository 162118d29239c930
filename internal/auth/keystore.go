package auth

import (
	"context"
	"encoding/json"
	"fmt"
)

// KeyKind is a signal key-material category.
type KeyKind string

const (
	KindPreKey              KeyKind = "pre-key"
	KindSession             KeyKind = "session"
	KindSenderKey           KeyKind = "sender-key"
	KindAppStateSyncKey     KeyKind = "app-state-sync-key"
	KindAppStateSyncVersion KeyKind = "app-state-sync-version"
	KindSenderKeyMemory     KeyKind = "sender-key-memory"
	KindLIDMapping          KeyKind = "lid-mapping"
)

// keyMap maps a category to its storage bucket inside the persisted state.
var keyMap = map[KeyKind]string{
	KindPreKey:              "preKeys",
	KindSession:             "sessions",
	KindSenderKey:           "senderKeys",
	KindAppStateSyncKey:     "appStateSyncKeys",
	KindAppStateSyncVersion: "appStateVersions",
	KindSenderKeyMemory:     "senderKeyMemory",
	KindLIDMapping:          "lidMappings",
}

// AppStateSyncKeyData is the structured form of an app-state sync key as
// the connector exchanges it.
type AppStateSyncKeyData struct {
	KeyData     Blob `json:"keyData"`
	Fingerprint struct {
		RawID         uint32  `json:"rawId"`
		CurrentIndex  uint32  `json:"currentIndex"`
		DeviceIndexes []uint32 `json:"deviceIndexes"`
	} `json:"fingerprint"`
	Timestamp int64 `json:"timestamp"`
}

// KeyBucket holds one category's entries as raw JSON, keyed by id.
type KeyBucket map[string]json.RawMessage

// Keys is the full key-material map of a session.
type Keys map[string]KeyBucket

// KeyStore reads and writes key material through a Handle's cached state.
type KeyStore struct {
	h *Handle
}

// Get returns the requested entries of one category. Ids with no stored
// entry are absent from the result. App-state sync keys are decoded into
// their structured form; every other category round-trips as stored.
func (ks *KeyStore) Get(ctx context.Context, kind KeyKind, ids []string) (map[string]any, error) {
	bucket, ok := keyMap[kind]
	if !ok {
		return nil, fmt.Errorf("unknown key category %q", kind)
	}
	state, err := ks.h.state(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(ids))
	ks.h.mu.Lock()
	defer ks.h.mu.Unlock()
	entries := state.Keys[bucket]
	for _, id := range ids {
		raw, ok := entries[id]
		if !ok || len(raw) == 0 {
			continue
		}
		if kind == KindAppStateSyncKey {
			var keyData AppStateSyncKeyData
			if err := json.Unmarshal(raw, &keyData); err != nil {
				return nil, fmt.Errorf("decoding app state key %s: %w", id, err)
			}
			out[id] = &keyData
			continue
		}
		out[id] = raw
	}
	return out, nil
}

// Set merges updates into the stored key material and persists the result.
// A nil value deletes the entry; anything else replaces it.
func (ks *KeyStore) Set(ctx context.Context, updates map[KeyKind]map[string]any) error {
	state, err := ks.h.state(ctx)
	if err != nil {
		return err
	}

	ks.h.mu.Lock()
	defer ks.h.mu.Unlock()
	for kind, entries := range updates {
		bucket, ok := keyMap[kind]
		if !ok {
			return fmt.Errorf("unknown key category %q", kind)
		}
		if state.Keys[bucket] == nil {
			state.Keys[bucket] = make(KeyBucket, len(entries))
		}
		for id, value := range entries {
			if value == nil {
				delete(state.Keys[bucket], id)
				continue
			}
			raw, err := encodeKeyValue(value)
			if err != nil {
				return fmt.Errorf("encoding %s key %s: %w", kind, id, err)
			}
			state.Keys[bucket][id] = raw
		}
	}
	return ks.h.saveLocked(ctx)
}

func encodeKeyValue(value any) (json.RawMessage, error) {
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}
