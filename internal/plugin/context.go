package plugin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spf13/afero"
)

// AppConfig is the static host application information exposed to
// plugins.
type AppConfig struct {
	Version  string
	Platform string
	Locale   string
	DarkMode bool
}

// Context is the isolated runtime environment handed to a plugin at
// initialization. It is owned exclusively by that plugin instance for
// its lifetime: created by the host's factories during registration and
// closed when the plugin is unregistered.
type Context struct {
	PluginID string

	// Storage is the plugin's namespaced persistence handle.
	Storage Storage

	// HTTPClient is pre-configured by the host (timeouts, retry).
	HTTPClient *http.Client

	// Log is scoped to the plugin id.
	Log *slog.Logger

	// App is static host application configuration.
	App AppConfig

	// Fs is the filesystem the directories below live on.
	Fs afero.Fs

	// DataDir is the plugin-private data directory.
	DataDir string

	// DownloadDir is the shared download directory.
	DownloadDir string
}

// Close releases the context's resources. Called by the registry after
// the owning plugin is disposed.
func (c *Context) Close() error {
	if c.Storage != nil {
		return c.Storage.Close()
	}
	return nil
}

// ContextFactory builds a Context for one plugin id using an already
// constructed storage handle. Supplied by the host.
type ContextFactory interface {
	Create(ctx context.Context, pluginID string, storage Storage) (*Context, error)
}

// ContextFactoryFunc adapts a function to ContextFactory.
type ContextFactoryFunc func(ctx context.Context, pluginID string, storage Storage) (*Context, error)

func (f ContextFactoryFunc) Create(ctx context.Context, pluginID string, storage Storage) (*Context, error) {
	return f(ctx, pluginID, storage)
}
