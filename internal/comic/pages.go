package comic

import (
	"log/slog"
	"path"
	"strings"

	"github.com/cedricziel/readwhere/internal/archive"
	"github.com/cedricziel/readwhere/internal/imaging"
)

// PageType classifies a page's role. The value set follows ComicRack's
// ComicPageType.
type PageType string

const (
	PageFrontCover    PageType = "FrontCover"
	PageInnerCover    PageType = "InnerCover"
	PageRoundup       PageType = "Roundup"
	PageStory         PageType = "Story"
	PageAdvertisement PageType = "Advertisement"
	PageEditorial     PageType = "Editorial"
	PageLetters       PageType = "Letters"
	PagePreview       PageType = "Preview"
	PageBackCover     PageType = "BackCover"
	PageOther         PageType = "Other"
	PageDeleted       PageType = "Deleted"
)

// parsePageType maps a metadata string onto a known PageType, falling
// back to Story for unknown values.
func parsePageType(s string) PageType {
	switch t := PageType(strings.TrimSpace(s)); t {
	case PageFrontCover, PageInnerCover, PageRoundup, PageStory,
		PageAdvertisement, PageEditorial, PageLetters, PagePreview,
		PageBackCover, PageOther, PageDeleted:
		return t
	default:
		return PageStory
	}
}

// Page is one page of a book. Pages are immutable value records; Index
// is 0-based, contiguous and equals the reading-order position.
type Page struct {
	Index         int
	Path          string // archive-relative path
	Filename      string // basename
	MediaType     string
	Type          PageType
	Width         int // 0 when not probed
	Height        int
	FileSizeBytes int64
	IsDoublePage  bool
	BookmarkLabel string
}

// PageOptions controls dimension probing during page building.
type PageOptions struct {
	// ProbeDimensions enables the cheap header-based width/height read.
	ProbeDimensions bool
	// FullDecodeFallback enables the expensive full-decode path when
	// the header probe is inconclusive. Ignored unless ProbeDimensions
	// is set.
	FullDecodeFallback bool
}

// BuildPages turns a container's naturally sorted image entries into
// Page records. The media type comes from each image's magic bytes, not
// its extension. The first page defaults to FrontCover; metadata may
// override it later via ApplyPageMetadata. A page whose bytes cannot be
// read degrades to extension-derived media type rather than failing the
// build.
func BuildPages(c archive.Container, opts PageOptions) []Page {
	log := slog.Default().With("component", "page-builder")

	sizes := make(map[string]int64)
	for _, e := range c.Entries() {
		sizes[strings.ToLower(e.Path)] = e.Size
	}

	paths := c.ImagePaths()
	pages := make([]Page, 0, len(paths))
	for i, p := range paths {
		page := Page{
			Index:         i,
			Path:          p,
			Filename:      path.Base(p),
			Type:          PageStory,
			FileSizeBytes: sizes[strings.ToLower(p)],
		}
		if i == 0 {
			page.Type = PageFrontCover
		}

		data, err := c.ReadEntry(p)
		if err != nil {
			log.Warn("failed to read page entry, using extension for media type", "path", p, "error", err)
			page.MediaType = mediaTypeFromExtension(p)
			pages = append(pages, page)
			continue
		}

		format := imaging.DetectFormat(data)
		if format == imaging.FormatUnknown {
			page.MediaType = mediaTypeFromExtension(p)
		} else {
			page.MediaType = format.MediaType()
		}

		if opts.ProbeDimensions {
			w, h, err := imaging.Dimensions(data)
			if err != nil && opts.FullDecodeFallback {
				w, h, err = imaging.DecodeDimensions(data)
			}
			if err == nil {
				page.Width, page.Height = w, h
				// Spreads scanned as one image are wider than tall.
				page.IsDoublePage = w > h
			}
		}

		pages = append(pages, page)
	}
	return pages
}

func mediaTypeFromExtension(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// ApplyPageMetadata merges per-page records from ComicInfo.xml onto
// built pages by index. Pages without a matching record are left
// unchanged; records pointing outside the page range are dropped.
func ApplyPageMetadata(pages []Page, infos []ComicInfoPage) []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	for _, info := range infos {
		if info.Image < 0 || info.Image >= len(out) {
			continue
		}
		p := &out[info.Image]
		if info.Type != "" {
			p.Type = parsePageType(info.Type)
		}
		if info.ImageWidth > 0 {
			p.Width = info.ImageWidth
		}
		if info.ImageHeight > 0 {
			p.Height = info.ImageHeight
		}
		if info.DoublePage {
			p.IsDoublePage = true
		}
		if info.Bookmark != "" {
			p.BookmarkLabel = info.Bookmark
		}
	}
	return out
}
