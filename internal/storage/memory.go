package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cedricziel/readwhere/internal/plugin"
)

// MemoryFactory creates in-memory Storage handles. Used by tests and
// by hosts that do not want persistence.
type MemoryFactory struct {
	mu     sync.Mutex
	stores map[string]*MemoryStorage
}

// NewMemoryFactory creates an empty factory. Handles for the same
// plugin id share state, mirroring the shared-database behavior of the
// SQLite factory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{stores: make(map[string]*MemoryStorage)}
}

func (f *MemoryFactory) Create(_ context.Context, pluginID string) (*MemoryStorage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.stores[pluginID]; ok {
		return st, nil
	}
	st := &MemoryStorage{
		settings:    make(map[string]string),
		credentials: make(map[string]string),
		cache:       make(map[string]cacheEntry),
	}
	f.stores[pluginID] = st
	return st, nil
}

// PluginFactory adapts the factory to the plugin registry's
// StorageFactory contract.
func (f *MemoryFactory) PluginFactory() plugin.StorageFactory {
	return plugin.StorageFactoryFunc(func(ctx context.Context, pluginID string) (plugin.Storage, error) {
		return f.Create(ctx, pluginID)
	})
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStorage is a mutex-guarded in-memory Storage.
type MemoryStorage struct {
	mu          sync.Mutex
	settings    map[string]string
	credentials map[string]string
	cache       map[string]cacheEntry
}

func credKey(catalogID, key string) string { return catalogID + "\x00" + key }

func (s *MemoryStorage) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *MemoryStorage) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *MemoryStorage) DeleteSetting(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, key)
	return nil
}

func (s *MemoryStorage) GetCredential(_ context.Context, catalogID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.credentials[credKey(catalogID, key)]
	return v, ok, nil
}

func (s *MemoryStorage) SetCredential(_ context.Context, catalogID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credKey(catalogID, key)] = value
	return nil
}

func (s *MemoryStorage) DeleteCredentials(_ context.Context, catalogID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := catalogID + "\x00"
	for k := range s.credentials {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.credentials, k)
		}
	}
	return nil
}

func (s *MemoryStorage) CacheGet(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(time.Now()) {
		delete(s.cache, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStorage) CacheSet(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.cache[key] = e
	return nil
}

func (s *MemoryStorage) CacheDelete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	return nil
}

func (s *MemoryStorage) PruneExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for k, e := range s.cache {
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			delete(s.cache, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) Close() error { return nil }
