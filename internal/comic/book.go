package comic

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jinzhu/copier"

	"github.com/cedricziel/readwhere/internal/archive"
)

// MetadataSource records which document produced the book's canonical
// fields.
type MetadataSource string

const (
	SourceNone      MetadataSource = "none"
	SourceComicInfo MetadataSource = "comicinfo"
	SourceCoMet     MetadataSource = "comet"
)

// ReadingDirection is the page progression of a book.
type ReadingDirection string

const (
	ReadLeftToRight ReadingDirection = "ltr"
	ReadRightToLeft ReadingDirection = "rtl"
)

// Book is the immutable description of an opened comic. It is built
// once when the archive is opened; derived views use Clone.
type Book struct {
	DisplayTitle     string
	Series           string
	IssueNumber      string
	Volume           int
	Summary          string
	Publisher        string
	Author           string
	ReleaseDate      *time.Time
	ReadingDirection ReadingDirection
	IsManga          bool
	IsBlackAndWhite  bool
	MetadataSource   MetadataSource
	Pages            []Page

	// Both parsed documents are retained for downstream consumers even
	// when only one is canonical.
	comicInfo *ComicInfo
	comet     *CoMet
}

// BuildOptions controls book construction.
type BuildOptions struct {
	PageOptions PageOptions
	// FallbackTitle is used when no metadata supplies a title,
	// typically the archive filename without extension.
	FallbackTitle string
}

// BuildBook parses whatever metadata the container carries and builds
// the page list. Metadata parse failures are non-fatal: each schema is
// attempted independently and a book with SourceNone is still valid.
// Only a failure to produce the page list itself would be fatal, and
// page building degrades per page instead.
func BuildBook(c archive.Container, opts BuildOptions) *Book {
	log := slog.Default().With("component", "book-builder")

	var ci *ComicInfo
	if c.HasFile(ComicInfoFilename) {
		data, err := c.ReadFile(ComicInfoFilename)
		if err == nil {
			ci, err = ParseComicInfo(data)
		}
		if err != nil {
			log.Warn("ignoring unparsable ComicInfo.xml", "error", err)
			ci = nil
		}
	}

	var cm *CoMet
	if c.HasFile(CoMetFilename) {
		data, err := c.ReadFile(CoMetFilename)
		if err == nil {
			cm, err = ParseCoMet(data)
		}
		if err != nil {
			log.Warn("ignoring unparsable CoMet.xml", "error", err)
			cm = nil
		}
	}

	pages := BuildPages(c, opts.PageOptions)
	if ci != nil {
		pages = ApplyPageMetadata(pages, ci.Pages)
	}

	book := &Book{
		ReadingDirection: ReadLeftToRight,
		MetadataSource:   SourceNone,
		Pages:            pages,
		comicInfo:        ci,
		comet:            cm,
	}

	switch {
	case ci != nil:
		book.MetadataSource = SourceComicInfo
		book.applyComicInfo(ci)
	case cm != nil:
		book.MetadataSource = SourceCoMet
		book.applyCoMet(cm)
	}

	if book.DisplayTitle == "" {
		book.DisplayTitle = opts.FallbackTitle
	}
	if book.DisplayTitle == "" {
		book.DisplayTitle = "Unknown"
	}
	return book
}

// TitleFromPath derives a fallback display title from an archive path.
func TitleFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func (b *Book) applyComicInfo(ci *ComicInfo) {
	b.DisplayTitle = ci.Title
	b.Series = ci.Series
	b.IssueNumber = ci.Number
	b.Volume = ci.Volume
	b.Summary = ci.Summary
	b.Publisher = ci.Publisher
	b.Author = ci.Writer
	b.IsManga = ci.IsManga()
	b.IsBlackAndWhite = ci.IsBlackAndWhite()
	if ci.IsRightToLeft() {
		b.ReadingDirection = ReadRightToLeft
	}
	if ci.Year > 0 {
		month, day := ci.Month, ci.Day
		if month <= 0 {
			month = 1
		}
		if day <= 0 {
			day = 1
		}
		t := time.Date(ci.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		b.ReleaseDate = &t
	}
}

func (b *Book) applyCoMet(cm *CoMet) {
	b.DisplayTitle = cm.Title
	b.Series = cm.Series
	b.IssueNumber = cm.Issue
	b.Volume = cm.Volume
	b.Summary = cm.Description
	b.Publisher = cm.Publisher
	b.Author = firstNonEmpty(cm.Writer, cm.Creator)
	if cm.IsRightToLeft() {
		b.ReadingDirection = ReadRightToLeft
	}
	if cm.Date != "" {
		for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
			if t, err := time.Parse(layout, cm.Date); err == nil {
				b.ReleaseDate = &t
				break
			}
		}
	}
}

// Genres consults the canonical source first, then the secondary, then
// returns nil.
func (b *Book) Genres() []string {
	if b.comicInfo != nil && b.comicInfo.Genre != "" {
		return splitList(b.comicInfo.Genre)
	}
	if b.comet != nil && len(b.comet.Genres) > 0 {
		return b.comet.Genres
	}
	return nil
}

// Tags returns the ComicInfo tag list; CoMet has no tag field.
func (b *Book) Tags() []string {
	if b.comicInfo != nil {
		return splitList(b.comicInfo.Tags)
	}
	return nil
}

// Characters consults canonical first, then secondary.
func (b *Book) Characters() []string {
	if b.comicInfo != nil && b.comicInfo.Characters != "" {
		return splitList(b.comicInfo.Characters)
	}
	if b.comet != nil && len(b.comet.Characters) > 0 {
		return b.comet.Characters
	}
	return nil
}

// Language returns the declared language code, or "Unknown".
func (b *Book) Language() string {
	if b.comicInfo != nil && b.comicInfo.LanguageISO != "" {
		return b.comicInfo.LanguageISO
	}
	if b.comet != nil && b.comet.Language != "" {
		return b.comet.Language
	}
	return "Unknown"
}

// ComicInfo returns the retained ComicInfo document, or nil.
func (b *Book) ComicInfo() *ComicInfo { return b.comicInfo }

// CoMet returns the retained CoMet document, or nil.
func (b *Book) CoMet() *CoMet { return b.comet }

// PageCount returns the number of pages.
func (b *Book) PageCount() int { return len(b.Pages) }

// CoverPage resolves the cover: the first page tagged FrontCover, else
// the first page by index. Returns false for an empty book.
func (b *Book) CoverPage() (Page, bool) {
	for _, p := range b.Pages {
		if p.Type == PageFrontCover {
			return p, true
		}
	}
	if len(b.Pages) > 0 {
		return b.Pages[0], true
	}
	return Page{}, false
}

// Clone returns a deep copy for derived views, leaving the original
// untouched.
func (b *Book) Clone() (*Book, error) {
	var out Book
	if err := copier.CopyWithOption(&out, b, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone book: %w", err)
	}
	out.comicInfo = b.comicInfo
	out.comet = b.comet
	return &out, nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
