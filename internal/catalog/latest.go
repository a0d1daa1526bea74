package catalog

import (
	"context"
	"sync"

	"github.com/dtroode/moviecat/internal/model"
)

var _ model.Catalog = (*Latest)(nil)

// Latest lets only the newest search and the newest title lookup finish.
// Starting a call cancels the previous call of the same kind, which then
// returns model.ErrCanceled.
type Latest struct {
	catalog model.Catalog
	search  slot
	title   slot
}

// NewLatest wraps c.
func NewLatest(c model.Catalog) *Latest {
	return &Latest{catalog: c}
}

func (l *Latest) Search(ctx context.Context, query string, opts model.SearchOptions) (model.SearchResult, error) {
	return run(ctx, &l.search, func(ctx context.Context) (model.SearchResult, error) {
		return l.catalog.Search(ctx, query, opts)
	})
}

func (l *Latest) Title(ctx context.Context, imdbID string, opts model.TitleOptions) (model.TitleDetails, error) {
	return run(ctx, &l.title, func(ctx context.Context) (model.TitleDetails, error) {
		return l.catalog.Title(ctx, imdbID, opts)
	})
}

// Cancel aborts every call in flight.
func (l *Latest) Cancel() {
	l.search.supersede()
	l.title.supersede()
}

type slot struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// supersede cancels the current call and returns the sequence number of the
// next one.
func (s *slot) supersede() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	return s.seq
}

func (s *slot) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == seq
}

func run[T any](ctx context.Context, s *slot, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seq := s.supersede()
	s.mu.Lock()
	if s.seq == seq {
		s.cancel = cancel
	}
	s.mu.Unlock()

	result, err := call(ctx)
	if !s.current(seq) {
		var zero T
		return zero, model.ErrCanceled
	}

	s.mu.Lock()
	if s.seq == seq {
		s.cancel = nil
	}
	s.mu.Unlock()

	return result, err
}
