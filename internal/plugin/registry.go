package plugin

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cedricziel/readwhere/internal/errors"
)

// Registry is the central plugin directory. Plugins become visible to
// lookups only after their storage and context are built and
// Initialize has succeeded; readers never observe a partially
// initialized plugin. Lookups are synchronous reads over the current
// snapshot.
//
// There is no global registry; hosts create one with New and pass it
// explicitly.
type Registry struct {
	log *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // registration order, for deterministic iteration
	pending map[string]struct{}
}

type entry struct {
	plugin Plugin
	pctx   *Context
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		log:     slog.Default().With("component", "plugin-registry"),
		entries: make(map[string]*entry),
		pending: make(map[string]struct{}),
	}
}

// Register builds the plugin's isolated environment and initializes it:
// storage via storageFactory, then a context via contextFactory, then
// plugin.Initialize. Visibility is the last step. A duplicate id,
// including one whose registration is still in flight, fails with a
// duplicate-registration error. An Initialize failure aborts this
// registration only; the registry and other plugins are unaffected.
func (r *Registry) Register(ctx context.Context, p Plugin, storageFactory StorageFactory, contextFactory ContextFactory) error {
	id := p.Identity().ID
	if id == "" {
		return errors.New(errors.KindValidation, "plugin id must not be empty")
	}
	if err := validateCapabilities(p); err != nil {
		return err
	}

	// Reserve the id so concurrent registrations of the same plugin
	// cannot race past the duplicate check.
	r.mu.Lock()
	if _, ok := r.entries[id]; ok {
		r.mu.Unlock()
		return errors.Newf(errors.KindDuplicateRegistration, "plugin %q is already registered", id)
	}
	if _, ok := r.pending[id]; ok {
		r.mu.Unlock()
		return errors.Newf(errors.KindDuplicateRegistration, "plugin %q registration is already in progress", id)
	}
	r.pending[id] = struct{}{}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}

	storage, err := storageFactory.Create(ctx, id)
	if err != nil {
		release()
		return errors.Wrap(errors.KindValidation, "create plugin storage", err)
	}

	pctx, err := contextFactory.Create(ctx, id, storage)
	if err != nil {
		storage.Close()
		release()
		return errors.Wrap(errors.KindValidation, "create plugin context", err)
	}

	if err := p.Initialize(ctx, pctx); err != nil {
		pctx.Close()
		release()
		r.log.Warn("plugin initialization failed, not registering", "plugin_id", id, "error", err)
		return errors.Wrap(errors.KindValidation, "initialize plugin "+id, err)
	}

	r.mu.Lock()
	delete(r.pending, id)
	r.entries[id] = &entry{plugin: p, pctx: pctx}
	r.order = append(r.order, id)
	r.mu.Unlock()

	r.log.Info("plugin registered", "plugin_id", id, "version", p.Identity().Version, "capabilities", p.Capabilities())
	return nil
}

// validateCapabilities checks declared tags against the interfaces the
// plugin actually implements, so capability dispatch can trust the tag
// set.
func validateCapabilities(p Plugin) error {
	for _, c := range p.Capabilities() {
		var ok bool
		switch c {
		case CapabilityReader:
			_, ok = p.(ReaderCapability)
		case CapabilityCatalog:
			_, ok = p.(CatalogBrowsingCapability)
		case CapabilityAccount:
			_, ok = p.(AccountCapability)
		case CapabilityProgressSync:
			_, ok = p.(ProgressSyncCapability)
		default:
			return errors.Newf(errors.KindValidation, "plugin %q declares unknown capability %q", p.Identity().ID, c)
		}
		if !ok {
			return errors.Newf(errors.KindValidation, "plugin %q declares capability %q but does not implement it", p.Identity().ID, c)
		}
	}
	return nil
}

// Unregister removes the plugin from all lookups, then disposes it and
// closes its context. Returns whether a plugin with that id was
// present.
func (r *Registry) Unregister(ctx context.Context, id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		for i, oid := range r.order {
			if oid == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	if err := e.plugin.Dispose(ctx); err != nil {
		r.log.Warn("plugin dispose failed", "plugin_id", id, "error", err)
	}
	if err := e.pctx.Close(); err != nil {
		r.log.Warn("plugin context close failed", "plugin_id", id, "error", err)
	}
	r.log.Info("plugin unregistered", "plugin_id", id)
	return true
}

// Get returns the plugin with the given id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.plugin, true
}

// IsRegistered reports whether a plugin with the given id is visible.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear disposes every plugin and empties the registry. Intended for
// test teardown and host shutdown.
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	snapshot := make([]*entry, 0, len(r.entries))
	for _, id := range r.order {
		snapshot = append(snapshot, r.entries[id])
	}
	r.entries = make(map[string]*entry)
	r.order = nil
	r.mu.Unlock()

	for _, e := range snapshot {
		if err := e.plugin.Dispose(ctx); err != nil {
			r.log.Warn("plugin dispose failed during clear", "plugin_id", e.plugin.Identity().ID, "error", err)
		}
		if err := e.pctx.Close(); err != nil {
			r.log.Warn("plugin context close failed during clear", "plugin_id", e.plugin.Identity().ID, "error", err)
		}
	}
}

// snapshot returns the registered plugins in registration order.
func (r *Registry) snapshot() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].plugin)
	}
	return out
}

// WithCapability returns all registered plugins satisfying capability C
// in registration order. Dispatch is structural: a new capability
// interface needs no registry change.
func WithCapability[C any](r *Registry) []C {
	var out []C
	for _, p := range r.snapshot() {
		if c, ok := p.(C); ok {
			out = append(out, c)
		}
	}
	return out
}

// mimeTyped is satisfied by capabilities that declare MIME types.
type mimeTyped interface {
	SupportedMimeTypes() []string
}

// ForMimeType returns the first plugin with capability C whose declared
// MIME-type list contains mime (case-insensitive exact match).
func ForMimeType[C any](r *Registry, mime string) (C, bool) {
	var zero C
	want := normalizeMime(mime)
	for _, c := range WithCapability[C](r) {
		mt, ok := any(c).(mimeTyped)
		if !ok {
			continue
		}
		for _, m := range mt.SupportedMimeTypes() {
			if normalizeMime(m) == want {
				return c, true
			}
		}
	}
	return zero, false
}

// fileProber is satisfied by capabilities that can probe a file on
// disk. ReaderCapability satisfies it.
type fileProber interface {
	SupportedExtensions() []string
	CanHandleFile(ctx context.Context, path string) (bool, error)
}

// ForFile returns the first plugin with capability C that claims the
// file: candidates are prefiltered by extension (cheap), then each
// candidate's CanHandleFile probe (expensive, may open the file) runs
// sequentially in registration order until one claims it. No two
// probes for the same file run concurrently.
func ForFile[C any](ctx context.Context, r *Registry, path string) (C, bool, error) {
	var zero C
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range WithCapability[C](r) {
		fp, ok := any(c).(fileProber)
		if !ok {
			continue
		}
		if !extensionMatch(fp.SupportedExtensions(), ext) {
			continue
		}
		handles, err := fp.CanHandleFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return zero, false, ctx.Err()
			}
			// A failing probe disqualifies this candidate only.
			r.log.Debug("file probe failed", "path", path, "error", err)
			continue
		}
		if handles {
			return c, true, nil
		}
	}
	return zero, false, nil
}

func extensionMatch(supported []string, ext string) bool {
	for _, s := range supported {
		if normalizeExt(s) == ext {
			return true
		}
	}
	return false
}
