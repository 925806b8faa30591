// Package cbr implements the RAR-backed comic archive reader plugin.
package cbr

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/afero"

	"github.com/cedricziel/readwhere/internal/archive"
	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/errors"
	"github.com/cedricziel/readwhere/internal/plugin"
	"github.com/cedricziel/readwhere/internal/reader"
)

// PluginID is the stable identity of the CBR reader plugin.
const PluginID = "com.readwhere.reader.cbr"

// RAR 4.x and 5.x signatures share this prefix.
var rarMagic = []byte{'R', 'a', 'r', '!', 0x1A, 0x07}

// Plugin reads CBR (RAR-backed) comic archives. The RAR decoder opens
// archives by OS path (multi-volume sets resolve sibling files), so
// unlike the CBZ plugin there is no filesystem indirection. Probing
// still uses afero so tests can stage files in memory.
type Plugin struct {
	pctx *plugin.Context
	fs   afero.Fs
	// PageOptions controls dimension probing during metadata parsing.
	PageOptions comic.PageOptions
}

// New creates the plugin.
func New(fs afero.Fs) *Plugin {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Plugin{fs: fs}
}

func (p *Plugin) Identity() plugin.Identity {
	return plugin.Identity{
		ID:          PluginID,
		Name:        "CBR Reader",
		Description: "Reads RAR-backed comic archives with ComicInfo and CoMet metadata",
		Version:     "1.0.0",
	}
}

func (p *Plugin) Capabilities() []plugin.Capability {
	return []plugin.Capability{plugin.CapabilityReader}
}

func (p *Plugin) Initialize(_ context.Context, pctx *plugin.Context) error {
	p.pctx = pctx
	if pctx.Fs != nil {
		p.fs = pctx.Fs
	}
	return nil
}

func (p *Plugin) Dispose(context.Context) error {
	p.pctx = nil
	return nil
}

func (p *Plugin) SupportedExtensions() []string { return []string{".cbr", ".rar"} }

func (p *Plugin) SupportedMimeTypes() []string {
	return []string{"application/vnd.comicbook-rar", "application/x-rar-compressed"}
}

func (p *Plugin) CanHandleFile(_ context.Context, path string) (bool, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return false, errors.Wrap(errors.KindRead, "open file for probe", err)
	}
	defer f.Close()

	header := make([]byte, len(rarMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false, nil
	}
	return bytes.Equal(header, rarMagic), nil
}

func (p *Plugin) ParseMetadata(ctx context.Context, path string) (*comic.Book, error) {
	c, err := archive.OpenRar(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return p.build(c, path), nil
}

func (p *Plugin) OpenBook(ctx context.Context, path string) (*reader.Reader, error) {
	c, err := archive.OpenRar(path)
	if err != nil {
		return nil, err
	}
	return reader.New(c, p.build(c, path)), nil
}

func (p *Plugin) ExtractCover(ctx context.Context, path string) ([]byte, error) {
	c, err := archive.OpenRar(path)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	book := p.build(c, path)
	cover, ok := book.CoverPage()
	if !ok {
		return nil, nil
	}
	return c.ReadEntry(cover.Path)
}

func (p *Plugin) build(c archive.Container, path string) *comic.Book {
	return comic.BuildBook(c, comic.BuildOptions{
		PageOptions:   p.PageOptions,
		FallbackTitle: comic.TitleFromPath(path),
	})
}
