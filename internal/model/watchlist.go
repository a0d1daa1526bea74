package model

import "context"

// WatchlistStore defines operations over the saved titles collection.
type WatchlistStore interface {
	GetAll(ctx context.Context) []WatchlistItem
	Contains(ctx context.Context, imdbID string) bool
	Add(ctx context.Context, item NewWatchlistItem) ([]WatchlistItem, error)
	Remove(ctx context.Context, imdbID string) ([]WatchlistItem, error)
	Subscribe(callback func()) (unsubscribe func())
}

// WatchlistItem is a saved title. AddedAt is milliseconds since epoch.
type WatchlistItem struct {
	IMDbID  string `json:"imdbID"`
	Title   string `json:"title"`
	Year    string `json:"year,omitempty"`
	Type    string `json:"type,omitempty"`
	Poster  string `json:"poster,omitempty"`
	AddedAt int64  `json:"addedAt"`
}

// NewWatchlistItem is a title about to be saved, before it is stamped.
type NewWatchlistItem struct {
	IMDbID string
	Title  string
	Year   string
	Type   string
	Poster string
}

// Stamp turns the new item into a WatchlistItem added at addedAt.
func (n NewWatchlistItem) Stamp(addedAt int64) WatchlistItem {
	return WatchlistItem{
		IMDbID:  n.IMDbID,
		Title:   n.Title,
		Year:    n.Year,
		Type:    n.Type,
		Poster:  n.Poster,
		AddedAt: addedAt,
	}
}
