package model

import (
	"context"
	"strings"
)

// Catalog is the remote read-only title database.
type Catalog interface {
	Search(ctx context.Context, query string, opts SearchOptions) (SearchResult, error)
	Title(ctx context.Context, imdbID string, opts TitleOptions) (TitleDetails, error)
}

// TitleType enumerates catalog title kinds.
type TitleType string

const (
	TitleTypeMovie   TitleType = "movie"
	TitleTypeSeries  TitleType = "series"
	TitleTypeEpisode TitleType = "episode"
)

// ParseTitleType validates a type filter. Empty input means no filter.
func ParseTitleType(s string) (TitleType, bool) {
	switch t := TitleType(strings.ToLower(strings.TrimSpace(s))); t {
	case "", TitleTypeMovie, TitleTypeSeries, TitleTypeEpisode:
		return t, true
	default:
		return "", false
	}
}

// Plot selects the plot length of title details.
type Plot string

const (
	PlotShort Plot = "short"
	PlotFull  Plot = "full"
)

// SearchOptions narrows a search. Zero Page means the first page.
type SearchOptions struct {
	Page int
	Type TitleType
}

// TitleOptions tunes a details lookup. Empty Plot means PlotFull.
type TitleOptions struct {
	Plot Plot
}

// TitleSummary is a lightweight search hit.
type TitleSummary struct {
	Title  string
	Year   string
	IMDbID string
	Type   TitleType
	Poster string
}

// WatchlistItem converts the summary into an item ready to be saved.
func (s TitleSummary) WatchlistItem() NewWatchlistItem {
	return NewWatchlistItem{
		IMDbID: s.IMDbID,
		Title:  s.Title,
		Year:   FieldValue(s.Year),
		Type:   FieldValue(string(s.Type)),
		Poster: FieldValue(s.Poster),
	}
}

// SearchResult is one page of search hits with the overall match count.
type SearchResult struct {
	Items []TitleSummary
	Total int
}

// Rating is a single third-party rating of a title.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// TitleDetails holds the flexible field set returned for a title.
type TitleDetails struct {
	Fields  map[string]string
	Ratings []Rating
}

// Get returns a field value with "N/A" normalized to empty.
func (d TitleDetails) Get(name string) string {
	return FieldValue(d.Fields[name])
}

// Summary reduces the details to a search hit.
func (d TitleDetails) Summary() TitleSummary {
	return TitleSummary{
		Title:  d.Fields["Title"],
		Year:   d.Fields["Year"],
		IMDbID: d.Fields["imdbID"],
		Type:   TitleType(d.Fields["Type"]),
		Poster: d.Fields["Poster"],
	}
}

// FieldValue maps the catalog's "N/A" placeholder to an empty string.
func FieldValue(v string) string {
	if v == "N/A" {
		return ""
	}
	return v
}
