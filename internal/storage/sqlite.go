// Package storage provides PluginStorage implementations: a
// SQLite-backed store for real deployments and an in-memory store for
// tests. Isolation between plugins is enforced by scoping every query
// to the plugin id the handle was created for.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/cedricziel/readwhere/internal/plugin"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DBQuerier is the query surface shared by *sql.DB and *sql.Tx.
type DBQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenDatabase opens (and creates if needed) the plugin-storage SQLite
// database and runs pending migrations.
func OpenDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run storage migrations: %w", err)
	}
	return db, nil
}

// SQLiteFactory creates per-plugin Storage handles over one shared
// database. Credentials are sealed with a host-provided secret key.
type SQLiteFactory struct {
	db      *sql.DB
	sealKey [32]byte
	log     *slog.Logger
}

// NewSQLiteFactory wraps an already opened database. sealKey encrypts
// credential values at rest.
func NewSQLiteFactory(db *sql.DB, sealKey [32]byte) *SQLiteFactory {
	return &SQLiteFactory{
		db:      db,
		sealKey: sealKey,
		log:     slog.Default().With("component", "plugin-storage"),
	}
}

// Create returns a Storage scoped to pluginID. Closing the returned
// handle does not close the shared database.
func (f *SQLiteFactory) Create(ctx context.Context, pluginID string) (*SQLiteStorage, error) {
	if pluginID == "" {
		return nil, fmt.Errorf("plugin id must not be empty")
	}
	return &SQLiteStorage{
		db:       f.db,
		pluginID: pluginID,
		sealKey:  f.sealKey,
		log:      f.log.With("plugin_id", pluginID),
	}, nil
}

// PluginFactory adapts the factory to the plugin registry's
// StorageFactory contract.
func (f *SQLiteFactory) PluginFactory() plugin.StorageFactory {
	return plugin.StorageFactoryFunc(func(ctx context.Context, pluginID string) (plugin.Storage, error) {
		return f.Create(ctx, pluginID)
	})
}

// SQLiteStorage is one plugin's namespaced view of the shared database.
type SQLiteStorage struct {
	db       DBQuerier
	pluginID string
	sealKey  [32]byte
	log      *slog.Logger
}

func (s *SQLiteStorage) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM plugin_settings WHERE plugin_id = ? AND key = ?`,
		s.pluginID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_settings (plugin_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (plugin_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.pluginID, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_settings WHERE plugin_id = ? AND key = ?`, s.pluginID, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) GetCredential(ctx context.Context, catalogID, key string) (string, bool, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM plugin_credentials WHERE plugin_id = ? AND catalog_id = ? AND key = ?`,
		s.pluginID, catalogID, key).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get credential %q: %w", key, err)
	}
	plain, err := s.unseal(sealed)
	if err != nil {
		return "", false, fmt.Errorf("unseal credential %q: %w", key, err)
	}
	return string(plain), true, nil
}

func (s *SQLiteStorage) SetCredential(ctx context.Context, catalogID, key, value string) error {
	sealed, err := s.seal([]byte(value))
	if err != nil {
		return fmt.Errorf("seal credential %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plugin_credentials (plugin_id, catalog_id, key, value, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (plugin_id, catalog_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.pluginID, catalogID, key, sealed, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set credential %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteCredentials(ctx context.Context, catalogID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_credentials WHERE plugin_id = ? AND catalog_id = ?`,
		s.pluginID, catalogID)
	if err != nil {
		return fmt.Errorf("delete credentials for catalog %q: %w", catalogID, err)
	}
	return nil
}

func (s *SQLiteStorage) CacheGet(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM plugin_cache WHERE plugin_id = ? AND key = ?`,
		s.pluginID, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %q: %w", key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= time.Now().Unix() {
		// Expired rows are purged lazily on read.
		_ = s.CacheDelete(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLiteStorage) CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_cache (plugin_id, key, value, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (plugin_id, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		s.pluginID, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("set cache entry %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) CacheDelete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_cache WHERE plugin_id = ? AND key = ?`, s.pluginID, key)
	if err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM plugin_cache WHERE plugin_id = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		s.pluginID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune expired cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	if n > 0 {
		s.log.Debug("pruned expired cache entries", "count", n)
	}
	return n, nil
}

// Close releases the handle. The shared database stays open; it belongs
// to the factory's owner.
func (s *SQLiteStorage) Close() error { return nil }

// seal encrypts plaintext with a random nonce prepended to the box.
func (s *SQLiteStorage) seal(plain []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.sealKey), nil
}

func (s *SQLiteStorage) unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("sealed value too short")
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.sealKey)
	if !ok {
		return nil, fmt.Errorf("credential seal does not open; wrong key?")
	}
	return plain, nil
}
