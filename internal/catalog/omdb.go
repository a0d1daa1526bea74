// Package catalog talks to the OMDb title database.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// DefaultBaseURL is the public OMDb endpoint.
const DefaultBaseURL = "https://www.omdbapi.com/"

// ErrMissingAPIKey is returned by every lookup when no API key is configured.
var ErrMissingAPIKey = errors.New("missing OMDb API key (set OMDB_API_KEY in .env.local)")

// APIError is a failure reported by OMDb, either as a non-2xx status or as a
// body with Response "False".
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("OMDb request failed: %d %s", e.Status, e.Message)
	}
	return e.Message
}

var _ model.Catalog = (*Client)(nil)

// Client is an OMDb API client. Requests share a rate limiter.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

// NewClient creates a catalog client. Nil httpClient and limiter fall back
// to a 10s timeout client and no limit; empty baseURL means DefaultBaseURL.
func NewClient(apiKey, baseURL string, httpClient *http.Client, limiter *rate.Limiter, logger *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

type searchResponse struct {
	Response     string       `json:"Response"`
	Error        string       `json:"Error"`
	Search       []searchItem `json:"Search"`
	TotalResults string       `json:"totalResults"`
}

type searchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// Search finds titles matching query. A blank query fails with "Empty query"
// without contacting OMDb.
func (c *Client) Search(ctx context.Context, query string, opts model.SearchOptions) (model.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.SearchResult{}, &APIError{Message: "Empty query"}
	}

	page := opts.Page
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("s", q)
	params.Set("page", strconv.Itoa(page))
	if opts.Type != "" {
		params.Set("type", string(opts.Type))
	}

	var res searchResponse
	if err := c.fetch(ctx, params, &res); err != nil {
		return model.SearchResult{}, err
	}
	if res.Response != "True" {
		return model.SearchResult{}, &APIError{Message: res.Error}
	}

	items := make([]model.TitleSummary, 0, len(res.Search))
	for _, it := range res.Search {
		items = append(items, model.TitleSummary{
			Title:  it.Title,
			Year:   it.Year,
			IMDbID: it.IMDbID,
			Type:   model.TitleType(it.Type),
			Poster: it.Poster,
		})
	}

	total, err := strconv.Atoi(res.TotalResults)
	if err != nil {
		total = len(items)
	}

	return model.SearchResult{Items: items, Total: total}, nil
}

// Title fetches the details of one title. The plot defaults to full.
func (c *Client) Title(ctx context.Context, imdbID string, opts model.TitleOptions) (model.TitleDetails, error) {
	plot := opts.Plot
	if plot == "" {
		plot = model.PlotFull
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", string(plot))

	var raw map[string]json.RawMessage
	if err := c.fetch(ctx, params, &raw); err != nil {
		return model.TitleDetails{}, err
	}

	return decodeTitle(raw)
}

func decodeTitle(raw map[string]json.RawMessage) (model.TitleDetails, error) {
	var response, message string
	_ = json.Unmarshal(raw["Response"], &response)
	if response != "True" {
		_ = json.Unmarshal(raw["Error"], &message)
		return model.TitleDetails{}, &APIError{Message: message}
	}

	details := model.TitleDetails{Fields: make(map[string]string, len(raw))}
	for name, value := range raw {
		switch name {
		case "Response":
		case "Ratings":
			if err := json.Unmarshal(value, &details.Ratings); err != nil {
				return model.TitleDetails{}, fmt.Errorf("failed to decode ratings: %w", err)
			}
		default:
			var s string
			if err := json.Unmarshal(value, &s); err == nil {
				details.Fields[name] = s
			}
		}
	}

	return details, nil
}

// fetch performs one GET with params and decodes the JSON body into out.
func (c *Client) fetch(ctx context.Context, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return canceled(ctx, fmt.Errorf("failed to wait for rate limiter: %w", err))
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base url: %w", err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = canceled(ctx, err)
		if !errors.Is(err, model.ErrCanceled) {
			c.logger.Warn("Catalog client: request failed",
				"error", err.Error())
		}
		return fmt.Errorf("failed to query catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Catalog client: unexpected status",
			"status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return canceled(ctx, fmt.Errorf("failed to decode catalog response: %w", err))
	}

	return nil
}

// canceled replaces err with model.ErrCanceled when ctx was canceled.
func canceled(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return model.ErrCanceled
	}
	return err
}
