// Package archive provides uniform read-only access to comic archives.
// ZIP-backed (CBZ) and RAR-backed (CBR) adapters expose the same
// Container contract: list entries, read entry bytes, close.
package archive

import (
	"path"
	"strings"

	"github.com/cedricziel/readwhere/internal/imaging"
	"github.com/cedricziel/readwhere/internal/sortutil"
)

// Entry describes one file inside an archive. Paths are
// archive-relative and forward-slash separated; lookups are
// case-insensitive but the stored case is preserved.
type Entry struct {
	Path string
	Size int64
}

// Container is the uniform read-only view over an archive. Containers
// are not safe for concurrent use; each reading session opens its own.
type Container interface {
	// Entries returns all file entries in archive order.
	Entries() []Entry

	// ImagePaths returns the recognized page-image paths in natural
	// sort order. This ordering is the page order.
	ImagePaths() []string

	// ReadEntry returns the bytes of the entry at the given
	// archive-relative path. The match is case-insensitive. Fails with
	// an entry-not-found error when the path is absent.
	ReadEntry(path string) ([]byte, error)

	// HasFile reports whether a file with the given basename exists
	// anywhere in the archive, compared case-insensitively. Used to
	// locate metadata documents like ComicInfo.xml.
	HasFile(name string) bool

	// ReadFile reads the first file whose basename matches name
	// case-insensitively, regardless of directory.
	ReadFile(name string) ([]byte, error)

	Close() error
}

// isImageEntry reports whether an archive path should be treated as a
// page image: recognized extension, not hidden, not a resource-fork
// artifact.
func isImageEntry(p string) bool {
	if !imaging.IsImageExtension(path.Ext(p)) {
		return false
	}
	norm := strings.ReplaceAll(p, "\\", "/")
	for _, part := range strings.Split(norm, "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "__MACOSX") {
			return false
		}
	}
	return true
}

// imagePathsOf filters entries to page images and orders them
// naturally.
func imagePathsOf(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if isImageEntry(e.Path) {
			paths = append(paths, e.Path)
		}
	}
	sortutil.SortNatural(paths)
	return paths
}

// findEntry returns the index of the entry matching p
// case-insensitively, or -1.
func findEntry(entries []Entry, p string) int {
	norm := strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	for i, e := range entries {
		if strings.ToLower(strings.ReplaceAll(e.Path, "\\", "/")) == norm {
			return i
		}
	}
	return -1
}

// findByBasename returns the index of the first entry whose basename
// matches name case-insensitively, or -1.
func findByBasename(entries []Entry, name string) int {
	norm := strings.ToLower(name)
	for i, e := range entries {
		if strings.ToLower(path.Base(strings.ReplaceAll(e.Path, "\\", "/"))) == norm {
			return i
		}
	}
	return -1
}
