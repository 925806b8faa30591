package imaging

import (
	"context"
	"log/slog"

	"github.com/sourcegraph/conc/pool"
)

// PageSource supplies page bytes by index. *reader.Reader satisfies it.
type PageSource interface {
	PageBytes(ctx context.Context, index int) ([]byte, error)
}

// Thumb is one batch result.
type Thumb struct {
	Index int
	Data  []byte
}

// Service generates thumbnails for many pages concurrently. Intended
// for library scans where every page of a book gets a grid thumbnail.
type Service struct {
	log     *slog.Logger
	workers int
}

// NewService creates a batch thumbnail service with the given worker
// bound. A bound <= 0 defaults to 4.
func NewService(workers int) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		log:     slog.Default().With("component", "thumbnail-service"),
		workers: workers,
	}
}

// GeneratePages produces thumbnails for the given page indices. Pages
// that fail to decode are logged and skipped; the batch only fails on
// context cancellation. Results are returned in completion order.
//
// Page reads stay on the calling goroutine: sources such as an open
// reader session cache page bytes without locking. Only the CPU-bound
// resize fans out across the pool.
func (s *Service) GeneratePages(ctx context.Context, src PageSource, indices []int, opts Options) ([]Thumb, error) {
	type page struct {
		index int
		data  []byte
	}
	pages := make([]page, 0, len(indices))
	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := src.PageBytes(ctx, idx)
		if err != nil {
			s.log.WarnContext(ctx, "failed to read page for thumbnail", "page", idx, "error", err)
			continue
		}
		pages = append(pages, page{index: idx, data: data})
	}

	p := pool.NewWithResults[*Thumb]().WithContext(ctx).WithMaxGoroutines(s.workers)

	for _, pg := range pages {
		p.Go(func(ctx context.Context) (*Thumb, error) {
			thumb, err := Generate(pg.data, opts)
			if err != nil {
				s.log.WarnContext(ctx, "failed to generate page thumbnail", "page", pg.index, "error", err)
				return nil, nil
			}
			return &Thumb{Index: pg.index, Data: thumb}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	out := make([]Thumb, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}
