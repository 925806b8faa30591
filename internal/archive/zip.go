package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/cedricziel/readwhere/internal/errors"
)

// zipContainer adapts archive/zip to the Container contract.
type zipContainer struct {
	log     *slog.Logger
	reader  *zip.Reader
	closer  io.Closer
	entries []Entry
	closed  bool
}

// OpenZip opens a ZIP-backed archive (CBZ) from the given filesystem.
func OpenZip(fsys afero.Fs, path string) (Container, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindRead, "open zip archive", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.KindRead, "stat zip archive", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.KindFormat, "not a zip archive", err)
	}
	return newZipContainer(zr, f), nil
}

// OpenZipBytes opens a ZIP-backed archive held in memory.
func OpenZipBytes(data []byte) (Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.KindFormat, "not a zip archive", err)
	}
	return newZipContainer(zr, nil), nil
}

func newZipContainer(zr *zip.Reader, closer io.Closer) *zipContainer {
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{Path: f.Name, Size: int64(f.UncompressedSize64)})
	}
	return &zipContainer{
		log:     slog.Default().With("component", "zip-container"),
		reader:  zr,
		closer:  closer,
		entries: entries,
	}
}

func (c *zipContainer) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *zipContainer) ImagePaths() []string {
	return imagePathsOf(c.entries)
}

func (c *zipContainer) ReadEntry(path string) ([]byte, error) {
	if c.closed {
		return nil, errors.New(errors.KindAlreadyDisposed, "container is closed")
	}
	idx := findEntry(c.entries, path)
	if idx < 0 {
		return nil, errors.Newf(errors.KindEntryNotFound, "entry %q not found in archive", path)
	}
	return c.readAt(c.entries[idx].Path)
}

func (c *zipContainer) HasFile(name string) bool {
	return findByBasename(c.entries, name) >= 0
}

func (c *zipContainer) ReadFile(name string) ([]byte, error) {
	if c.closed {
		return nil, errors.New(errors.KindAlreadyDisposed, "container is closed")
	}
	idx := findByBasename(c.entries, name)
	if idx < 0 {
		return nil, errors.Newf(errors.KindEntryNotFound, "file %q not found in archive", name)
	}
	return c.readAt(c.entries[idx].Path)
}

func (c *zipContainer) readAt(exactPath string) ([]byte, error) {
	for _, f := range c.reader.File {
		if f.Name != exactPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrap(errors.KindRead, "open zip entry", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.Wrap(errors.KindRead, "read zip entry", err)
		}
		return data, nil
	}
	return nil, errors.Newf(errors.KindEntryNotFound, "entry %q not found in archive", exactPath)
}

func (c *zipContainer) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
