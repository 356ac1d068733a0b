package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "taskctl:session", ttl), mr
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := newRedisStore(t, 0)
	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json")),
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

// ---------------------------------------------------------------------------
// Behaviour shared by every backend
// ---------------------------------------------------------------------------

func TestStores_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			empty, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, empty.IsEmpty())

			want := Entry{Token: "tok-1", User: []byte(`{"id":"u1","email":"ada@example.com"}`)}
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want.Token, got.Token)
			assert.JSONEq(t, string(want.User), string(got.User))

			require.NoError(t, store.Save(ctx, Entry{Token: "tok-2", User: []byte(`{"id":"u2"}`)}))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-2", got.Token)
		})
	}
}

func TestStores_ClearIsIdempotent(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Clear(ctx))

			require.NoError(t, store.Save(ctx, Entry{Token: "tok", User: []byte(`{}`)}))
			require.NoError(t, store.Clear(ctx))
			require.NoError(t, store.Clear(ctx))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.True(t, got.IsEmpty())
		})
	}
}

// ---------------------------------------------------------------------------
// FileStore
// ---------------------------------------------------------------------------

func TestFileStore_PermissionsAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "session.json"))
	require.NoError(t, store.Save(context.Background(), Entry{Token: "tok", User: []byte(`{"id":"u1"}`)}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.json", entries[0].Name())
}

func TestFileStore_DocumentLayout(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(context.Background(), Entry{Token: "tok", User: []byte(`{"id":"u1"}`)}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"tok","user":"{\"id\":\"u1\"}"}`, string(raw))
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o600))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Token)
	assert.Equal(t, []byte("{truncated"), got.User)
	assert.False(t, got.IsEmpty())
}

func TestFileStore_CorruptUserKeepsToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok","user":"not-json"}`), 0o600))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, []byte("not-json"), got.User)
}

// ---------------------------------------------------------------------------
// RedisStore
// ---------------------------------------------------------------------------

func TestRedisStore_KeysAndTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, Entry{Token: "tok", User: []byte(`{"id":"u1"}`)}))

	token, err := mr.Get("taskctl:session:token")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, time.Hour, mr.TTL("taskctl:session:user"))

	mr.FastForward(2 * time.Hour)
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisStore_UnavailableServer(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	mr.Close()

	_, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), Entry{Token: "tok"}))
}

// ---------------------------------------------------------------------------
// MemoryStore
// ---------------------------------------------------------------------------

func TestMemoryStore_CopiesBytes(t *testing.T) {
	store := NewMemoryStore()
	user := []byte(`{"id":"u1"}`)
	require.NoError(t, store.Save(context.Background(), Entry{Token: "tok", User: user}))
	user[2] = 'X'

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, string(got.User))
}
