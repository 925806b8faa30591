package cmd

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"

	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/config"
	"github.com/cedricziel/readwhere/internal/plugin"
	"github.com/cedricziel/readwhere/internal/plugins/cbr"
	"github.com/cedricziel/readwhere/internal/plugins/cbz"
	"github.com/cedricziel/readwhere/internal/storage"
)

// initializeDatabase opens the plugin storage database and runs
// migrations.
func initializeDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := storage.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	return db, nil
}

func parseSealKey(cfg *config.Config) ([32]byte, error) {
	var key [32]byte
	if cfg.SealKeyHex == "" {
		slog.Warn("no seal_key configured, stored credentials use a zero key")
		return key, nil
	}
	raw, err := hex.DecodeString(cfg.SealKeyHex)
	if err != nil || len(raw) != 32 {
		return key, fmt.Errorf("seal_key must be 64 hex characters")
	}
	copy(key[:], raw)
	return key, nil
}

// contextFactory builds the per-plugin runtime context handed out by the
// registry: scoped logger, retrying HTTP client, private data dir.
func contextFactory(cfg *config.Config) plugin.ContextFactory {
	return plugin.ContextFactoryFunc(func(_ context.Context, pluginID string, st plugin.Storage) (*plugin.Context, error) {
		dataDir := filepath.Join(cfg.DataDir, pluginID)
		if err := config.CheckDirectoryWritable(dataDir); err != nil {
			return nil, fmt.Errorf("plugin data directory: %w", err)
		}
		log := slog.Default().With("plugin_id", pluginID)
		return &plugin.Context{
			PluginID:   pluginID,
			Storage:    st,
			HTTPClient: plugin.NewHTTPClient(log, plugin.HTTPClientOptions{UserAgent: "readwhere/" + Version}),
			Log:        log,
			App: plugin.AppConfig{
				Version:  Version,
				Platform: runtime.GOOS,
				Locale:   "en",
			},
			Fs:          afero.NewOsFs(),
			DataDir:     dataDir,
			DownloadDir: cfg.DownloadDir,
		}, nil
	})
}

// buildRegistry wires the built-in format plugins into a fresh registry
// backed by the SQLite storage factory. pageOpts controls dimension
// probing during page building.
func buildRegistry(ctx context.Context, cfg *config.Config, db *sql.DB, pageOpts comic.PageOptions) (*plugin.Registry, error) {
	sealKey, err := parseSealKey(cfg)
	if err != nil {
		return nil, err
	}
	sf := storage.NewSQLiteFactory(db, sealKey).PluginFactory()
	cf := contextFactory(cfg)

	cbzPlugin := cbz.New(nil)
	cbzPlugin.PageOptions = pageOpts
	cbrPlugin := cbr.New(nil)
	cbrPlugin.PageOptions = pageOpts

	reg := plugin.New()
	for _, p := range []plugin.Plugin{cbzPlugin, cbrPlugin} {
		if err := reg.Register(ctx, p, sf, cf); err != nil {
			return nil, fmt.Errorf("failed to register plugin %s: %w", p.Identity().ID, err)
		}
	}
	return reg, nil
}
