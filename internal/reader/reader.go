// Package reader provides the open-book session facade: one container,
// one parsed book, an in-memory page cache and a disposal state
// machine.
package reader

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cedricziel/readwhere/internal/archive"
	"github.com/cedricziel/readwhere/internal/comic"
	"github.com/cedricziel/readwhere/internal/errors"
	"github.com/cedricziel/readwhere/internal/imaging"
)

// Reader is one open reading session over a comic archive. It owns the
// container and the book built from it, caches page bytes by index, and
// becomes unusable after Dispose.
//
// A Reader belongs to a single logical reading session; the page cache
// is unsynchronized on purpose. Wrap it yourself if you must share one.
type Reader struct {
	id        string
	log       *slog.Logger
	container archive.Container
	book      *comic.Book
	cache     map[int][]byte
	current   int
	disposed  bool
}

// New creates a reader over an already opened container and built book.
func New(container archive.Container, book *comic.Book) *Reader {
	id := uuid.NewString()
	return &Reader{
		id:        id,
		log:       slog.Default().With("component", "reader", "session_id", id),
		container: container,
		book:      book,
		cache:     make(map[int][]byte),
	}
}

// ID returns the unique session id.
func (r *Reader) ID() string { return r.id }

// Book returns the immutable book description.
func (r *Reader) Book() *comic.Book { return r.book }

// errDisposed is the stable failure every read returns after Dispose.
func (r *Reader) errDisposed() error {
	return errors.Newf(errors.KindAlreadyDisposed, "reader session %s is disposed", r.id)
}

// PageBytes returns the raw bytes of the page at index, serving from
// the cache when present.
func (r *Reader) PageBytes(ctx context.Context, index int) ([]byte, error) {
	if r.disposed {
		return nil, r.errDisposed()
	}
	if index < 0 || index >= len(r.book.Pages) {
		return nil, errors.Newf(errors.KindEntryNotFound, "page index %d out of range (0..%d)", index, len(r.book.Pages)-1)
	}
	if data, ok := r.cache[index]; ok {
		return data, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.container.ReadEntry(r.book.Pages[index].Path)
	if err != nil {
		return nil, err
	}
	r.cache[index] = data
	return data, nil
}

// CoverBytes returns the bytes of the cover page: the first page tagged
// FrontCover, else the first page by index.
func (r *Reader) CoverBytes(ctx context.Context) ([]byte, error) {
	if r.disposed {
		return nil, r.errDisposed()
	}
	cover, ok := r.book.CoverPage()
	if !ok {
		return nil, errors.New(errors.KindEntryNotFound, "book has no pages")
	}
	return r.PageBytes(ctx, cover.Index)
}

// Thumbnail generates a thumbnail of the page at index with the given
// options.
func (r *Reader) Thumbnail(ctx context.Context, index int, opts imaging.Options) ([]byte, error) {
	data, err := r.PageBytes(ctx, index)
	if err != nil {
		return nil, err
	}
	return imaging.Generate(data, opts)
}

// StreamPages invokes fn for every page in reading order, stopping on
// the first error or on context cancellation.
func (r *Reader) StreamPages(ctx context.Context, fn func(page comic.Page, data []byte) error) error {
	if r.disposed {
		return r.errDisposed()
	}
	for _, page := range r.book.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := r.PageBytes(ctx, page.Index)
		if err != nil {
			return err
		}
		if err := fn(page, data); err != nil {
			return err
		}
	}
	return nil
}

// CurrentPage returns the session's current page index.
func (r *Reader) CurrentPage() int { return r.current }

// GoToPage moves the session position.
func (r *Reader) GoToPage(index int) error {
	if r.disposed {
		return r.errDisposed()
	}
	if index < 0 || index >= len(r.book.Pages) {
		return errors.Newf(errors.KindEntryNotFound, "page index %d out of range", index)
	}
	r.current = index
	return nil
}

// NextPage advances the position, reporting whether it moved.
func (r *Reader) NextPage() bool {
	if r.disposed || r.current+1 >= len(r.book.Pages) {
		return false
	}
	r.current++
	return true
}

// PreviousPage moves the position back, reporting whether it moved.
func (r *Reader) PreviousPage() bool {
	if r.disposed || r.current == 0 {
		return false
	}
	r.current--
	return true
}

// Progress returns the fraction of the book read, in [0,1].
func (r *Reader) Progress() float64 {
	if len(r.book.Pages) == 0 {
		return 0
	}
	return float64(r.current+1) / float64(len(r.book.Pages))
}

// Search is not applicable to image-only comic archives.
func (r *Reader) Search(ctx context.Context, query string) error {
	return errors.New(errors.KindUnsupportedOperation, "text search is not supported for comic archives")
}

// ClearCache frees cached page bytes without disposing the reader.
func (r *Reader) ClearCache() {
	r.cache = make(map[int][]byte)
}

// Dispose closes the container and makes every subsequent read fail
// with a stable already-disposed error. It is idempotent and safe to
// call at any time.
func (r *Reader) Dispose() error {
	if r.disposed {
		return nil
	}
	r.disposed = true
	r.cache = nil
	r.log.Debug("reader session disposed")
	return r.container.Close()
}

// Disposed reports whether Dispose has run.
func (r *Reader) Disposed() bool { return r.disposed }
