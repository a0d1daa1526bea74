package service

import (
	"context"
	"sync"

	"github.com/dtroode/moviecat/internal/model"
)

// WatchlistView is a live copy of the watchlist, refreshed on every change
// notification, with an index by IMDb id.
type WatchlistView struct {
	watchlist model.WatchlistStore
	ctx       context.Context

	mu    sync.RWMutex
	items []model.WatchlistItem
	byID  map[string]model.WatchlistItem

	updates     chan struct{}
	unsubscribe func()
}

// NewWatchlistView loads the list and keeps it current until Close.
// ctx bounds the storage reads done on refresh.
func NewWatchlistView(ctx context.Context, w model.WatchlistStore) *WatchlistView {
	v := &WatchlistView{
		watchlist: w,
		ctx:       ctx,
		updates:   make(chan struct{}, 1),
	}
	v.set(w.GetAll(ctx))
	v.unsubscribe = w.Subscribe(v.refresh)
	return v
}

// Items returns a copy of the current list.
func (v *WatchlistView) Items() []model.WatchlistItem {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.WatchlistItem, len(v.items))
	copy(out, v.items)
	return out
}

// ByID looks up a saved title.
func (v *WatchlistView) ByID(imdbID string) (model.WatchlistItem, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	item, ok := v.byID[imdbID]
	return item, ok
}

// Updates signals after each refresh. Signals coalesce when not drained.
func (v *WatchlistView) Updates() <-chan struct{} {
	return v.updates
}

// Close stops following changes.
func (v *WatchlistView) Close() {
	v.unsubscribe()
}

func (v *WatchlistView) refresh() {
	v.set(v.watchlist.GetAll(v.ctx))

	select {
	case v.updates <- struct{}{}:
	default:
	}
}

func (v *WatchlistView) set(items []model.WatchlistItem) {
	byID := make(map[string]model.WatchlistItem, len(items))
	for _, item := range items {
		byID[item.IMDbID] = item
	}

	v.mu.Lock()
	v.items = items
	v.byID = byID
	v.mu.Unlock()
}
