// Package plugin defines the capability-based plugin framework: plugin
// identity, the capability contracts, the sandboxed per-plugin runtime
// context, and the registry that dispatches by capability.
package plugin

import (
	"context"
	"strings"
)

// Identity describes a plugin. IDs are globally unique, reverse-domain
// style ("com.readwhere.reader.cbz"), and immutable once registered.
type Identity struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Capability is a registration-time tag naming a contract a plugin
// declares to implement. The registry validates declared tags against
// the interfaces the plugin actually satisfies.
type Capability string

const (
	CapabilityReader       Capability = "reader"
	CapabilityCatalog      Capability = "catalog"
	CapabilityAccount      Capability = "account"
	CapabilityProgressSync Capability = "progress-sync"
)

// Plugin is the unit of registration. A single plugin object may
// satisfy several capability contracts simultaneously; the declared
// capability set records which.
type Plugin interface {
	Identity() Identity
	Capabilities() []Capability

	// Initialize receives the plugin's isolated runtime context. It is
	// called exactly once, before the plugin becomes visible to any
	// lookup. A failure aborts registration.
	Initialize(ctx context.Context, pctx *Context) error

	// Dispose releases plugin resources. Called after the plugin has
	// been removed from all lookups.
	Dispose(ctx context.Context) error
}

// normalizeMime lowercases a MIME type for case-insensitive matching.
func normalizeMime(m string) string { return strings.ToLower(strings.TrimSpace(m)) }

// normalizeExt lowercases an extension and ensures the leading dot.
func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}
