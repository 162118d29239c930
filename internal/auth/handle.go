package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vspok/wabottle/internal/store"
	"github.com/vspok/wabottle/internal/utils/retry"
)

// Options controls where a session's credentials come from on first load.
type Options struct {
	// CredsFile is a JSON credential export to import on first load.
	CredsFile string
	// Replace supplies credentials directly and wins over both CredsFile
	// and any stored record.
	Replace *Creds
}

// State is the persisted auth record of one session.
type State struct {
	Creds *Creds `json:"creds"`
	Keys  Keys   `json:"keys"`
}

// Handle owns one session's credential state. The state is loaded at most
// once per process; later calls reuse the cached copy.
type Handle struct {
	sessions *store.SessionStore
	session  *store.Session
	opts     Options
	log      waLog.Logger

	mu sync.Mutex
	st *State
}

// NewHandle creates a Handle for one resolved session.
func NewHandle(sessions *store.SessionStore, session *store.Session, opts *Options, log waLog.Logger) *Handle {
	var o Options
	if opts != nil {
		o = *opts
	}
	return &Handle{
		sessions: sessions,
		session:  session,
		opts:     o,
		log:      log.Sub("AuthHandle"),
	}
}

// Keys returns the key-material store backed by this handle.
func (h *Handle) Keys() *KeyStore {
	return &KeyStore{h: h}
}

// Creds returns the session's credentials, loading state on first use.
func (h *Handle) Creds(ctx context.Context) (*Creds, error) {
	st, err := h.state(ctx)
	if err != nil {
		return nil, err
	}
	return st.Creds, nil
}

// UpdateCreds applies fn to the credentials and persists the result.
func (h *Handle) UpdateCreds(ctx context.Context, fn func(*Creds)) error {
	st, err := h.state(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(st.Creds)
	return h.saveLocked(ctx)
}

// SaveCreds persists the current state.
func (h *Handle) SaveCreds(ctx context.Context) error {
	if _, err := h.state(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveLocked(ctx)
}

// state loads the auth record on first call. Options.Replace wins even over
// a persisted record (re-pairing an existing session); the import file is
// consulted only when nothing is stored. Key material from a persisted
// record survives replacement. Import failures fall through to generation.
func (h *Handle) state(ctx context.Context) (*State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.st != nil {
		return h.st, nil
	}

	var stored *State
	if h.session.Value != "" {
		var st State
		if err := json.Unmarshal([]byte(h.session.Value), &st); err != nil {
			return nil, fmt.Errorf("decoding stored auth state: %w", err)
		}
		stored = &st
	}

	creds := h.opts.Replace
	if creds == nil && stored == nil && h.opts.CredsFile != "" {
		creds = h.importCredsFile(h.opts.CredsFile)
	}

	switch {
	case creds != nil && stored != nil:
		stored.Creds = creds
		h.st = stored
	case creds != nil:
		h.st = &State{Creds: creds}
	case stored != nil:
		h.st = stored
	default:
		generated, err := InitCreds()
		if err != nil {
			return nil, err
		}
		h.st = &State{Creds: generated}
	}
	if h.st.Keys == nil {
		h.st.Keys = make(Keys)
	}
	return h.st, nil
}

func (h *Handle) importCredsFile(path string) *Creds {
	raw, err := os.ReadFile(path)
	if err != nil {
		h.log.Warnf("Credential import from %s failed: %v", path, err)
		return nil
	}
	var creds Creds
	if err := json.Unmarshal(raw, &creds); err != nil {
		h.log.Warnf("Credential import from %s failed: %v", path, err)
		return nil
	}
	return &creds
}

// saveLocked serializes the state and upserts it under the session key.
// Callers hold h.mu.
func (h *Handle) saveLocked(ctx context.Context) error {
	raw, err := json.Marshal(h.st)
	if err != nil {
		return fmt.Errorf("encoding auth state: %w", err)
	}
	value := string(raw)
	if err := retry.Do(ctx, func() error {
		return h.sessions.SetValue(ctx, h.session.Key, value)
	}); err != nil {
		return err
	}
	h.session.Value = value
	return nil
}
