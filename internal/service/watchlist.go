package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/notify"
	"github.com/dtroode/moviecat/internal/store"
)

const (
	// WatchlistKey holds the saved titles collection.
	WatchlistKey = "netflixclone2:watchlist:v1"
	// WatchlistEvent is dispatched in-process after every local mutation.
	WatchlistEvent = "netflixclone2:watchlist:changed"
)

var _ model.WatchlistStore = (*Watchlist)(nil)

// Watchlist keeps the saved titles, newest first, unique by IMDb id.
type Watchlist struct {
	store  *store.Store
	hub    *notify.Hub
	logger *logger.Logger
	now    func() time.Time

	// mu makes each read-modify-write atomic within this process.
	mu sync.Mutex
}

// NewWatchlist creates the watchlist store.
func NewWatchlist(st *store.Store, hub *notify.Hub, logger *logger.Logger) *Watchlist {
	return &Watchlist{
		store:  st,
		hub:    hub,
		logger: logger,
		now:    time.Now,
	}
}

// GetAll returns the saved titles, or an empty list when none are stored.
func (w *Watchlist) GetAll(ctx context.Context) []model.WatchlistItem {
	items, ok := store.Load[[]model.WatchlistItem](ctx, w.store, WatchlistKey)
	if !ok || items == nil {
		return []model.WatchlistItem{}
	}
	return items
}

// Contains reports whether imdbID is saved.
func (w *Watchlist) Contains(ctx context.Context, imdbID string) bool {
	for _, item := range w.GetAll(ctx) {
		if item.IMDbID == imdbID {
			return true
		}
	}
	return false
}

// Add saves item at the front of the list. Adding a saved title is a no-op
// that keeps its original timestamp.
func (w *Watchlist) Add(ctx context.Context, item model.NewWatchlistItem) ([]model.WatchlistItem, error) {
	next, changed, err := w.add(ctx, item)
	if err != nil {
		return nil, err
	}
	if changed {
		w.hub.Dispatch(WatchlistEvent)
	}
	return next, nil
}

// Remove drops imdbID from the list. Removing an unsaved title is not an error.
func (w *Watchlist) Remove(ctx context.Context, imdbID string) ([]model.WatchlistItem, error) {
	next, err := w.remove(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	w.hub.Dispatch(WatchlistEvent)
	return next, nil
}

// Subscribe calls callback after every change, local or from another
// instance of the same storage. The callback carries no payload; re-read
// the list with GetAll.
func (w *Watchlist) Subscribe(callback func()) (unsubscribe func()) {
	return w.hub.Subscribe(WatchlistEvent, WatchlistKey, callback)
}

func (w *Watchlist) add(ctx context.Context, item model.NewWatchlistItem) ([]model.WatchlistItem, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing := w.GetAll(ctx)
	for _, x := range existing {
		if x.IMDbID == item.IMDbID {
			w.logger.Debug("Watchlist service: title already saved",
				"imdb_id", item.IMDbID)
			return existing, false, nil
		}
	}

	next := make([]model.WatchlistItem, 0, len(existing)+1)
	next = append(next, item.Stamp(w.now().UnixMilli()))
	next = append(next, existing...)

	if err := w.save(ctx, next); err != nil {
		return nil, false, err
	}

	w.logger.Info("Watchlist service: title added",
		"imdb_id", item.IMDbID,
		"count", len(next))

	return next, true, nil
}

func (w *Watchlist) remove(ctx context.Context, imdbID string) ([]model.WatchlistItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	existing := w.GetAll(ctx)
	next := make([]model.WatchlistItem, 0, len(existing))
	for _, x := range existing {
		if x.IMDbID != imdbID {
			next = append(next, x)
		}
	}

	if err := w.save(ctx, next); err != nil {
		return nil, err
	}

	w.logger.Info("Watchlist service: title removed",
		"imdb_id", imdbID,
		"count", len(next))

	return next, nil
}

func (w *Watchlist) save(ctx context.Context, items []model.WatchlistItem) error {
	if err := store.Save(ctx, w.store, WatchlistKey, items); err != nil {
		w.logger.Error("Watchlist service: failed to save list",
			"error", err.Error())
		return fmt.Errorf("failed to save watchlist: %w", err)
	}
	return nil
}
