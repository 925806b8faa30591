package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedricziel/readwhere/internal/plugin"
)

// Both implementations must satisfy the plugin Storage contract.
var (
	_ plugin.Storage        = (*SQLiteStorage)(nil)
	_ plugin.Storage        = (*MemoryStorage)(nil)
	_ plugin.StorageFactory = plugin.StorageFactoryFunc(nil)
)

func testKey() [32]byte {
	var k [32]byte
	copy(k[:], "0123456789abcdef0123456789abcdef")
	return k
}

func openTestFactory(t *testing.T) *SQLiteFactory {
	t.Helper()
	db, err := OpenDatabase("file:" + t.TempDir() + "/storage.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteFactory(db, testKey())
}

func TestSQLiteSettingsRoundTrip(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()
	st, err := f.Create(ctx, "com.test.a")
	require.NoError(t, err)

	_, ok, err := st.GetSetting(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetSetting(ctx, "theme", "dark"))
	v, ok, err := st.GetSetting(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	// Upsert replaces.
	require.NoError(t, st.SetSetting(ctx, "theme", "light"))
	v, _, _ = st.GetSetting(ctx, "theme")
	assert.Equal(t, "light", v)

	require.NoError(t, st.DeleteSetting(ctx, "theme"))
	_, ok, _ = st.GetSetting(ctx, "theme")
	assert.False(t, ok)
}

func TestSQLitePluginIsolation(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()
	a, err := f.Create(ctx, "com.test.a")
	require.NoError(t, err)
	b, err := f.Create(ctx, "com.test.b")
	require.NoError(t, err)

	require.NoError(t, a.SetSetting(ctx, "secret", "a-only"))
	require.NoError(t, a.SetCredential(ctx, "", "token", "tok-a"))
	require.NoError(t, a.CacheSet(ctx, "blob", []byte("a-bytes"), 0))

	// Plugin b sees none of plugin a's keys.
	_, ok, err := b.GetSetting(ctx, "secret")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = b.GetCredential(ctx, "", "token")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = b.CacheGet(ctx, "blob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCredentialsSealedAtRest(t *testing.T) {
	db, err := OpenDatabase("file:" + t.TempDir() + "/creds.db")
	require.NoError(t, err)
	defer db.Close()

	f := NewSQLiteFactory(db, testKey())
	ctx := context.Background()
	st, err := f.Create(ctx, "com.test.a")
	require.NoError(t, err)

	require.NoError(t, st.SetCredential(ctx, "catalog-1", "password", "hunter2"))

	// Raw row must not contain the plaintext.
	var raw []byte
	err = db.QueryRowContext(ctx,
		`SELECT value FROM plugin_credentials WHERE plugin_id = ? AND catalog_id = ? AND key = ?`,
		"com.test.a", "catalog-1", "password").Scan(&raw)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")

	v, ok, err := st.GetCredential(ctx, "catalog-1", "password")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hunter2", v)

	// Catalog scoping: same key under another catalog is separate.
	_, ok, err = st.GetCredential(ctx, "catalog-2", "password")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.DeleteCredentials(ctx, "catalog-1"))
	_, ok, _ = st.GetCredential(ctx, "catalog-1", "password")
	assert.False(t, ok)
}

func TestSQLiteCacheTTL(t *testing.T) {
	f := openTestFactory(t)
	ctx := context.Background()
	st, err := f.Create(ctx, "com.test.a")
	require.NoError(t, err)

	require.NoError(t, st.CacheSet(ctx, "keep", []byte("forever"), 0))
	require.NoError(t, st.CacheSet(ctx, "fleeting", []byte("soon gone"), time.Nanosecond))
	time.Sleep(1100 * time.Millisecond) // expiry granularity is seconds

	_, ok, err := st.CacheGet(ctx, "fleeting")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be served")

	v, ok, err := st.CacheGet(ctx, "keep")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("forever"), v)

	require.NoError(t, st.CacheSet(ctx, "fleeting2", []byte("x"), time.Nanosecond))
	time.Sleep(1100 * time.Millisecond)
	n, err := st.PruneExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestMemoryStorage(t *testing.T) {
	f := NewMemoryFactory()
	ctx := context.Background()
	st, err := f.Create(ctx, "com.test.mem")
	require.NoError(t, err)

	require.NoError(t, st.SetSetting(ctx, "k", "v"))
	v, ok, err := st.GetSetting(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, st.SetCredential(ctx, "cat", "user", "u"))
	require.NoError(t, st.DeleteCredentials(ctx, "cat"))
	_, ok, _ = st.GetCredential(ctx, "cat", "user")
	assert.False(t, ok)

	require.NoError(t, st.CacheSet(ctx, "c", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok, _ = st.CacheGet(ctx, "c")
	assert.False(t, ok)

	// Same plugin id shares state.
	again, err := f.Create(ctx, "com.test.mem")
	require.NoError(t, err)
	v, ok, _ = again.GetSetting(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
