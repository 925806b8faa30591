package archive

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/javi11/rardecode/v2"

	"github.com/cedricziel/readwhere/internal/errors"
)

// rarContainer adapts rardecode to the Container contract. The decoder
// is streaming, so every entry read walks the archive from the start;
// callers cache page bytes at the reader layer.
type rarContainer struct {
	log     *slog.Logger
	path    string
	entries []Entry
	methods map[string]string // lowercased path -> compression method
	closed  bool
}

// OpenRar opens a RAR-backed archive (CBR) at the given OS path.
// Multi-volume archives resolve their sibling volumes through the
// decoder. Encrypted archives and archives using a decoder version the
// module does not ship fail here; problems limited to a single entry
// surface when that entry is read.
func OpenRar(path string) (Container, error) {
	log := slog.Default().With("component", "rar-container")

	infos, err := rardecode.ListArchiveInfo(path)
	if err != nil {
		return nil, classifyRarError(path, err)
	}

	entries := make([]Entry, 0, len(infos))
	methods := make(map[string]string, len(infos))
	for _, af := range infos {
		name := strings.ReplaceAll(af.Name, "\\", "/")
		if strings.HasSuffix(name, "/") {
			continue
		}
		entries = append(entries, Entry{Path: name, Size: af.TotalUnpackedSize})
		methods[strings.ToLower(name)] = af.CompressionMethod
	}

	return &rarContainer{
		log:     log,
		path:    path,
		entries: entries,
		methods: methods,
	}, nil
}

// classifyRarError maps decoder failures onto the error taxonomy.
// Sentinel values are preferred; the message fallback covers errors the
// decoder wraps or synthesizes without one.
func classifyRarError(path string, err error) error {
	switch {
	case errors.Is(err, rardecode.ErrArchiveEncrypted),
		errors.Is(err, rardecode.ErrArchivedFileEncrypted),
		errors.Is(err, rardecode.ErrBadPassword):
		return errors.Wrap(errors.KindEncrypted, "rar archive is encrypted", err)
	case errors.Is(err, rardecode.ErrUnknownDecoder),
		errors.Is(err, rardecode.ErrUnsupportedDecoder):
		return errors.Wrap(errors.KindUnsupportedCompression, "rar archive uses unsupported compression", err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypt"):
		return errors.Wrap(errors.KindEncrypted, "rar archive is encrypted", err)
	case strings.Contains(msg, "no such file") || strings.Contains(msg, "permission"):
		return errors.Wrap(errors.KindRead, "open rar archive", err)
	default:
		return errors.Wrap(errors.KindFormat, "not a rar archive", err)
	}
}

// entryError classifies a failure while extracting one entry.
// Decompression happens during the read, so per-entry compression and
// password failures surface here rather than at open.
func (c *rarContainer) entryError(path string, err error) error {
	c.log.Debug("rar entry read failed", "archive", c.path, "entry", path, "error", err)
	switch {
	case errors.Is(err, rardecode.ErrUnknownDecoder),
		errors.Is(err, rardecode.ErrUnsupportedDecoder):
		return errors.Wrap(errors.KindUnsupportedCompression,
			fmt.Sprintf("entry %q uses unsupported compression %s", path, c.methods[strings.ToLower(path)]), err)
	case errors.Is(err, rardecode.ErrArchiveEncrypted),
		errors.Is(err, rardecode.ErrArchivedFileEncrypted),
		errors.Is(err, rardecode.ErrBadPassword):
		return errors.Wrap(errors.KindEncrypted,
			fmt.Sprintf("entry %q is encrypted", path), err)
	default:
		return errors.Wrap(errors.KindRead,
			fmt.Sprintf("read rar entry %q", path), err)
	}
}

func (c *rarContainer) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *rarContainer) ImagePaths() []string {
	return imagePathsOf(c.entries)
}

func (c *rarContainer) ReadEntry(path string) ([]byte, error) {
	if c.closed {
		return nil, errors.New(errors.KindAlreadyDisposed, "container is closed")
	}
	idx := findEntry(c.entries, path)
	if idx < 0 {
		return nil, errors.Newf(errors.KindEntryNotFound, "entry %q not found in archive", path)
	}
	return c.extract(c.entries[idx].Path)
}

func (c *rarContainer) HasFile(name string) bool {
	return findByBasename(c.entries, name) >= 0
}

func (c *rarContainer) ReadFile(name string) ([]byte, error) {
	if c.closed {
		return nil, errors.New(errors.KindAlreadyDisposed, "container is closed")
	}
	idx := findByBasename(c.entries, name)
	if idx < 0 {
		return nil, errors.Newf(errors.KindEntryNotFound, "file %q not found in archive", name)
	}
	return c.extract(c.entries[idx].Path)
}

// extract walks the archive to the requested entry and decompresses it
// fully. rardecode is a streaming decoder, so each read reopens the
// archive.
func (c *rarContainer) extract(exactPath string) ([]byte, error) {
	rc, err := rardecode.OpenReader(c.path)
	if err != nil {
		return nil, classifyRarError(c.path, err)
	}
	defer rc.Close()

	want := strings.ToLower(exactPath)
	for {
		hdr, err := rc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, c.entryError(exactPath, err)
		}
		if hdr.IsDir {
			continue
		}
		name := strings.ToLower(strings.ReplaceAll(hdr.Name, "\\", "/"))
		if name != want {
			continue
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, c.entryError(exactPath, err)
		}
		return data, nil
	}
	return nil, errors.Newf(errors.KindEntryNotFound, "entry %q not found in archive", exactPath)
}

func (c *rarContainer) Close() error {
	c.closed = true
	return nil
}
