package plugin

import (
	"context"
	"time"
)

// Storage is a plugin's private persistence handle, partitioned into
// three namespaces: settings (typed key/value), credentials (encrypted
// key/value, optionally scoped by catalog id) and cache (blobs with
// optional expiry). Implementations namespace every operation by the
// plugin id they were created for; no plugin can read or enumerate
// another plugin's keys.
type Storage interface {
	// Settings namespace.
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// Credentials namespace. catalogID may be empty for plugin-global
	// credentials. Values are encrypted at rest.
	GetCredential(ctx context.Context, catalogID, key string) (string, bool, error)
	SetCredential(ctx context.Context, catalogID, key, value string) error
	DeleteCredentials(ctx context.Context, catalogID string) error

	// Cache namespace. A zero ttl stores without expiry.
	CacheGet(ctx context.Context, key string) ([]byte, bool, error)
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CacheDelete(ctx context.Context, key string) error
	PruneExpired(ctx context.Context) (int64, error)

	Close() error
}

// StorageFactory builds a Storage scoped to one plugin id. Supplied by
// the host; the core never constructs storage itself.
type StorageFactory interface {
	Create(ctx context.Context, pluginID string) (Storage, error)
}

// StorageFactoryFunc adapts a function to StorageFactory.
type StorageFactoryFunc func(ctx context.Context, pluginID string) (Storage, error)

func (f StorageFactoryFunc) Create(ctx context.Context, pluginID string) (Storage, error) {
	return f(ctx, pluginID)
}
