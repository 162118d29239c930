package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vspok/wabottle/internal/infra/logger"
	"github.com/vspok/wabottle/internal/store"
)

func newTestHandle(t *testing.T, opts *Options) (*Handle, *store.SessionStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "store.db"), logger.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := store.NewSessionStore(db)
	session, err := sessions.Ensure(context.Background(), "test")
	require.NoError(t, err)
	return NewHandle(sessions, session, opts, logger.Noop()), sessions
}

func reopenHandle(t *testing.T, sessions *store.SessionStore, opts *Options) *Handle {
	t.Helper()
	session, err := sessions.Get(context.Background(), "test")
	require.NoError(t, err)
	require.NotNil(t, session)
	return NewHandle(sessions, session, opts, logger.Noop())
}

func TestFreshCredsGenerated(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	creds, err := h.Creds(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)

	assert.Len(t, []byte(creds.NoiseKey.Private), 32)
	assert.Len(t, []byte(creds.SignedIdentityKey.Public), 32)
	assert.Len(t, []byte(creds.SignedPreKey.Signature), 64)
	assert.Equal(t, uint32(1), creds.SignedPreKey.KeyID)
	assert.LessOrEqual(t, creds.RegistrationID, uint32(16383))
	assert.NotEmpty(t, creds.AdvSecretKey)
	assert.NotEmpty(t, creds.DeviceID)
	assert.False(t, creds.Registered)
}

func TestCredsLoadedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	first, err := h.Creds(ctx)
	require.NoError(t, err)
	second, err := h.Creds(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCredsRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, sessions := newTestHandle(t, nil)

	original, err := h.Creds(ctx)
	require.NoError(t, err)
	require.NoError(t, h.UpdateCreds(ctx, func(c *Creds) {
		c.Registered = true
		c.Platform = "android"
		c.Me = &Identity{ID: "5511999999999@s.whatsapp.net", Name: "Tester"}
	}))

	reloaded, err := reopenHandle(t, sessions, nil).Creds(ctx)
	require.NoError(t, err)

	assert.True(t, reloaded.Registered)
	assert.Equal(t, "android", reloaded.Platform)
	require.NotNil(t, reloaded.Me)
	assert.Equal(t, "Tester", reloaded.Me.Name)
	assert.Equal(t, []byte(original.NoiseKey.Private), []byte(reloaded.NoiseKey.Private))
	assert.Equal(t, []byte(original.SignedPreKey.Signature), []byte(reloaded.SignedPreKey.Signature))
	assert.Equal(t, original.RegistrationID, reloaded.RegistrationID)
}

func TestKeySetAndGet(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)
	ks := h.Keys()

	require.NoError(t, ks.Set(ctx, map[KeyKind]map[string]any{
		KindSession: {
			"a.0": json.RawMessage(`{"session":"one"}`),
			"b.0": json.RawMessage(`{"session":"two"}`),
		},
	}))

	got, err := ks.Get(ctx, KindSession, []string{"a.0", "b.0", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.JSONEq(t, `{"session":"one"}`, string(got["a.0"].(json.RawMessage)))
	_, ok := got["missing"]
	assert.False(t, ok)
}

func TestKeySetMergesAndDeletes(t *testing.T) {
	ctx := context.Background()
	h, sessions := newTestHandle(t, nil)
	ks := h.Keys()

	require.NoError(t, ks.Set(ctx, map[KeyKind]map[string]any{
		KindPreKey: {"1": json.RawMessage(`{"n":1}`)},
	}))
	require.NoError(t, ks.Set(ctx, map[KeyKind]map[string]any{
		KindPreKey: {"2": json.RawMessage(`{"n":2}`), "1": nil},
	}))

	// The merge is visible through a fresh handle, so it was persisted.
	ks2 := reopenHandle(t, sessions, nil).Keys()
	got, err := ks2.Get(ctx, KindPreKey, []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "2")
}

func TestAppStateSyncKeyDecoded(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)
	ks := h.Keys()

	keyData := &AppStateSyncKeyData{
		KeyData:   Blob("secret-material-0123456789abcdef"),
		Timestamp: 1700000000,
	}
	keyData.Fingerprint.RawID = 7
	require.NoError(t, ks.Set(ctx, map[KeyKind]map[string]any{
		KindAppStateSyncKey: {"AAAA": keyData},
	}))

	got, err := ks.Get(ctx, KindAppStateSyncKey, []string{"AAAA"})
	require.NoError(t, err)
	decoded, ok := got["AAAA"].(*AppStateSyncKeyData)
	require.True(t, ok)
	assert.Equal(t, []byte("secret-material-0123456789abcdef"), []byte(decoded.KeyData))
	assert.Equal(t, uint32(7), decoded.Fingerprint.RawID)
	assert.Equal(t, int64(1700000000), decoded.Timestamp)
}

func TestUnknownKeyCategoryRejected(t *testing.T) {
	ctx := context.Background()
	h, _ := newTestHandle(t, nil)

	_, err := h.Keys().Get(ctx, KeyKind("bogus"), []string{"1"})
	assert.Error(t, err)
}

func TestCredsImportFromFile(t *testing.T) {
	ctx := context.Background()

	imported, err := InitCreds()
	require.NoError(t, err)
	imported.Platform = "imported"

	path := filepath.Join(t.TempDir(), "creds.json")
	raw, err := json.Marshal(imported)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	h, _ := newTestHandle(t, &Options{CredsFile: path})
	creds, err := h.Creds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "imported", creds.Platform)
	assert.Equal(t, imported.RegistrationID, creds.RegistrationID)
	assert.Equal(t, []byte(imported.NoiseKey.Private), []byte(creds.NoiseKey.Private))
}

func TestCredsImportFailureFallsBackToGenerated(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	h, _ := newTestHandle(t, &Options{CredsFile: path})
	creds, err := h.Creds(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.NotEmpty(t, creds.AdvSecretKey)
}

func TestReplaceWinsOverImportFile(t *testing.T) {
	ctx := context.Background()

	replacement, err := InitCreds()
	require.NoError(t, err)
	replacement.Platform = "replacement"

	path := filepath.Join(t.TempDir(), "creds.json")
	other, err := InitCreds()
	require.NoError(t, err)
	raw, err := json.Marshal(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	h, _ := newTestHandle(t, &Options{CredsFile: path, Replace: replacement})
	creds, err := h.Creds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "replacement", creds.Platform)
}

func TestStoredStateWinsOverImportFile(t *testing.T) {
	ctx := context.Background()
	h, sessions := newTestHandle(t, nil)

	require.NoError(t, h.UpdateCreds(ctx, func(c *Creds) {
		c.Platform = "stored"
	}))

	other, err := InitCreds()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "creds.json")
	raw, err := json.Marshal(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	creds, err := reopenHandle(t, sessions, &Options{CredsFile: path}).Creds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored", creds.Platform)
}

func TestReplaceWinsOverStoredState(t *testing.T) {
	ctx := context.Background()
	h, sessions := newTestHandle(t, nil)

	require.NoError(t, h.UpdateCreds(ctx, func(c *Creds) {
		c.Platform = "stored"
	}))
	require.NoError(t, h.Keys().Set(ctx, map[KeyKind]map[string]any{
		KindSession: {"a.0": json.RawMessage(`{"session":"one"}`)},
	}))

	replacement, err := InitCreds()
	require.NoError(t, err)
	replacement.Platform = "replacement"

	reopened := reopenHandle(t, sessions, &Options{Replace: replacement})
	creds, err := reopened.Creds(ctx)
	require.NoError(t, err)
	assert.Equal(t, "replacement", creds.Platform)
	assert.Equal(t, replacement.RegistrationID, creds.RegistrationID)

	// Re-pairing keeps the stored key material.
	got, err := reopened.Keys().Get(ctx, KindSession, []string{"a.0"})
	require.NoError(t, err)
	assert.Contains(t, got, "a.0")
}

func TestBlobEncoding(t *testing.T) {
	raw, err := json.Marshal(Blob([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Buffer","data":"AQID"}`, string(raw))

	var b Blob
	require.NoError(t, json.Unmarshal(raw, &b))
	assert.Equal(t, Blob([]byte{1, 2, 3}), b)

	// Plain base64 strings decode too.
	require.NoError(t, json.Unmarshal([]byte(`"AQID"`), &b))
	assert.Equal(t, Blob([]byte{1, 2, 3}), b)
}
