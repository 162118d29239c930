package bottle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vspok/wabottle/internal/event"
	"github.com/vspok/wabottle/internal/infra/logger"
)

func TestCreateStoreBundlesHandles(t *testing.T) {
	ctx := context.Background()
	b, err := Init(filepath.Join(t.TempDir(), "store.db"), logger.Noop())
	require.NoError(t, err)
	defer b.Close()

	handles, err := b.CreateStore(ctx, "main", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, handles.Auth)
	require.NotNil(t, handles.Store)
	assert.Equal(t, "main", handles.Store.Session().Key)

	// Both handles resolve to the same session row.
	creds, err := handles.Auth.Creds(ctx)
	require.NoError(t, err)
	assert.NotNil(t, creds)
}

func TestCreateStoreReusesSession(t *testing.T) {
	ctx := context.Background()
	b, err := Init(filepath.Join(t.TempDir(), "store.db"), logger.Noop())
	require.NoError(t, err)
	defer b.Close()

	first, err := b.CreateStore(ctx, "main", nil, nil)
	require.NoError(t, err)
	second, err := b.CreateStore(ctx, "main", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Store.Session().ID, second.Store.Session().ID)

	other, err := b.CreateStore(ctx, "other", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Store.Session().ID, other.Store.Session().ID)
}

func TestHandlesOfDifferentSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b, err := Init(filepath.Join(t.TempDir(), "store.db"), logger.Noop())
	require.NoError(t, err)
	defer b.Close()

	a, err := b.CreateStore(ctx, "a", nil, nil)
	require.NoError(t, err)
	c, err := b.CreateStore(ctx, "b", nil, nil)
	require.NoError(t, err)

	busA := event.NewBus()
	a.Store.Bind(ctx, busA)
	busA.Emit(event.KindChatsUpsert, []event.Chat{{ID: "x@s.whatsapp.net"}})

	chat, err := a.Store.Chat(ctx, "x@s.whatsapp.net")
	require.NoError(t, err)
	assert.NotNil(t, chat)

	chat, err = c.Store.Chat(ctx, "x@s.whatsapp.net")
	require.NoError(t, err)
	assert.Nil(t, chat)
}
