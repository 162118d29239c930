// Package bottle wires the database, the credential store, and the
// conversation store of a session into one surface.
package bottle

import (
	"context"
	"fmt"

	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vspok/wabottle/internal/auth"
	"github.com/vspok/wabottle/internal/store"
)

// Bottle owns one database file holding any number of sessions.
type Bottle struct {
	db       *store.DB
	sessions *store.SessionStore
	log      waLog.Logger
}

// Handles bundles the two per-session surfaces.
type Handles struct {
	Auth  *auth.Handle
	Store *store.Handle
}

// Init opens (creating if needed) the database at path.
func Init(path string, log waLog.Logger) (*Bottle, error) {
	db, err := store.Open(path, log)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	return &Bottle{
		db:       db,
		sessions: store.NewSessionStore(db),
		log:      log,
	}, nil
}

// CreateStore resolves the session named name, creating it on first use,
// and returns its auth and store handles.
func (b *Bottle) CreateStore(ctx context.Context, name string, storeOpts *store.Options, authOpts *auth.Options) (*Handles, error) {
	session, err := b.sessions.Ensure(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolving session %q: %w", name, err)
	}
	return &Handles{
		Auth:  auth.NewHandle(b.sessions, session, authOpts, b.log),
		Store: store.NewHandle(b.db, session, storeOpts, b.log),
	}, nil
}

// Close closes the underlying database.
func (b *Bottle) Close() error {
	return b.db.Close()
}
