package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/moviecat/internal/catalog"
	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
	"github.com/dtroode/moviecat/internal/notify"
	"github.com/dtroode/moviecat/internal/service"
	"github.com/dtroode/moviecat/internal/storage/memory"
	"github.com/dtroode/moviecat/internal/store"
	"github.com/dtroode/moviecat/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeCatalog struct {
	titles    map[string]model.TitleDetails
	search    model.SearchResult
	searchErr error
	lastQuery string
	lastOpts  model.SearchOptions
}

func (f *fakeCatalog) Search(_ context.Context, query string, opts model.SearchOptions) (model.SearchResult, error) {
	f.lastQuery = query
	f.lastOpts = opts
	return f.search, f.searchErr
}

func (f *fakeCatalog) Title(_ context.Context, imdbID string, _ model.TitleOptions) (model.TitleDetails, error) {
	d, ok := f.titles[imdbID]
	if !ok {
		return model.TitleDetails{}, &catalog.APIError{Message: "Incorrect IMDb ID."}
	}
	return d, nil
}

func title(id, name, year string) model.TitleDetails {
	return model.TitleDetails{Fields: map[string]string{
		"imdbID": id,
		"Title":  name,
		"Year":   year,
		"Type":   "movie",
		"Poster": "N/A",
		"Plot":   name + " plot",
	}}
}

type harness struct {
	deps    Deps
	origin  *memory.Origin
	catalog *fakeCatalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	origin := memory.NewOrigin()
	return newHarnessOn(t, origin)
}

func newHarnessOn(t *testing.T, origin *memory.Origin) *harness {
	t.Helper()
	log := testutil.MakeNoopLogger()
	st := store.New(origin.Open(), log)
	hub := notify.NewHub(log)

	fc := &fakeCatalog{titles: map[string]model.TitleDetails{
		"tt0133093": title("tt0133093", "The Matrix", "1999"),
		"tt0468569": title("tt0468569", "The Dark Knight", "2008"),
	}}

	return &harness{
		origin:  origin,
		catalog: fc,
		deps: Deps{
			Auth:      service.NewAuth(context.Background(), st, log, 0),
			Watchlist: service.NewWatchlist(st, hub, log),
			Catalog:   fc,
			Logger:    log,
			Build:     BuildInfo{Version: "v1.2.3", Date: "today", Commit: "abc"},
		},
	}
}

func (h *harness) run(t *testing.T, input string, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	d := h.deps
	d.In = strings.NewReader(input)
	d.Out = &out
	d.Err = &errOut
	code := Run(context.Background(), d, args)
	return out.String(), errOut.String(), code
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:    "prompted",
			input:   "user@netflix.com\npassword\n",
			args:    []string{"login"},
			wantOut: "Signed in as Netflix User <user@netflix.com>",
		},
		{
			name:    "flags",
			args:    []string{"login", "-e", "user@netflix.com", "-p", "password"},
			wantOut: "Signed in as Netflix User",
		},
		{
			name:     "wrong password",
			args:     []string{"login", "-e", "user@netflix.com", "-p", "nope"},
			wantCode: 1,
			wantErr:  "Invalid email or password. Try: user@netflix.com / password",
		},
		{
			name:     "empty field",
			input:    "user@netflix.com\n\n",
			args:     []string{"login"},
			wantCode: 1,
			wantErr:  "Please fill in all fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out, errOut, code := h.run(t, tt.input, tt.args...)

			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, out, tt.wantOut)
			assert.Contains(t, errOut, tt.wantErr)
			assert.NotContains(t, out, "password\n")
		})
	}
}

func TestLogin_AlreadySignedIn(t *testing.T) {
	h := newHarness(t)
	_, _, code := h.run(t, "", "login", "-e", "user@netflix.com", "-p", "password")
	require.Equal(t, 0, code)

	out, _, code := h.run(t, "", "login")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Already signed in as Netflix User")
}

func TestSignupWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	out, _, code := h.run(t, "Ann\nann@example.com\nsecret\n", "signup")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Welcome, Ann!")

	out, _, code = h.run(t, "", "whoami")
	require.Equal(t, 0, code)
	assert.Equal(t, "Ann <ann@example.com>\n", out)

	_, errOut, code := h.run(t, "", "signup", "-n", "Bob", "-e", "ann@example.com", "-p", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "An account with this email already exists")

	out, _, code = h.run(t, "", "accounts")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "user@netflix.com\tNetflix User")
	assert.Contains(t, out, "ann@example.com\tAnn")
	assert.NotContains(t, out, "secret")

	out, _, code = h.run(t, "", "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed out")

	_, errOut, code = h.run(t, "", "whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed in")
}

func TestList_RequiresSession(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{{"list"}, {"list", "add", "tt0133093"}, {"list", "remove", "tt0133093"}} {
		_, errOut, code := h.run(t, "", args...)
		assert.Equal(t, 1, code, args)
		assert.Contains(t, errOut, "moviecat login", args)
	}
}

func TestList_AddRemove(t *testing.T) {
	h := newHarness(t)
	_, _, code := h.run(t, "", "login", "-e", "user@netflix.com", "-p", "password")
	require.Equal(t, 0, code)

	out, _, code := h.run(t, "", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Your list is empty")

	out, _, code = h.run(t, "", "list", "add", "tt0133093")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Added The Matrix to My List")

	out, _, code = h.run(t, "", "list", "add", "tt0133093")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Already in My List")

	_, _, code = h.run(t, "", "list", "add", "tt0468569")
	require.Equal(t, 0, code)

	out, _, code = h.run(t, "", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 saved title(s)")
	assert.Less(t, strings.Index(out, "tt0468569"), strings.Index(out, "tt0133093"))

	items := h.deps.Watchlist.GetAll(context.Background())
	require.Len(t, items, 2)
	assert.Equal(t, "", items[1].Poster)
	assert.Equal(t, "1999", items[1].Year)

	out, _, code = h.run(t, "", "list", "remove", "tt0133093")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "1 saved title(s)")

	_, errOut, code := h.run(t, "", "list", "add", "tt9999999")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Incorrect IMDb ID.")
}

func TestList_Watch(t *testing.T) {
	origin := memory.NewOrigin()
	h := newHarnessOn(t, origin)
	_, _, code := h.run(t, "", "login", "-e", "user@netflix.com", "-p", "password")
	require.Equal(t, 0, code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	d := h.deps
	d.In = strings.NewReader("")
	d.Out = out
	d.Err = out

	done := make(chan int, 1)
	go func() { done <- Run(ctx, d, []string{"list", "watch"}) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Your list is empty")
	}, time.Second, 5*time.Millisecond)

	_, err := h.deps.Watchlist.Add(context.Background(), model.NewWatchlistItem{IMDbID: "tt1", Title: "Added Elsewhere"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Added Elsewhere")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "List changed")

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	h.catalog.search = model.SearchResult{
		Items: []model.TitleSummary{
			{Title: "The Matrix", Year: "1999", IMDbID: "tt0133093", Type: model.TitleTypeMovie},
			{Title: "The Matrix Reloaded", Year: "2003", IMDbID: "tt0234215", Type: model.TitleTypeMovie},
		},
		Total: 23,
	}

	_, _, code := h.run(t, "", "login", "-e", "user@netflix.com", "-p", "password")
	require.Equal(t, 0, code)
	_, _, code = h.run(t, "", "list", "add", "tt0133093")
	require.Equal(t, 0, code)

	out, _, code := h.run(t, "", "search", "the", "matrix", "--page", "2", "--type", "movie")
	require.Equal(t, 0, code)

	assert.Equal(t, "the matrix", h.catalog.lastQuery)
	assert.Equal(t, model.SearchOptions{Page: 2, Type: model.TitleTypeMovie}, h.catalog.lastOpts)
	assert.Contains(t, out, "tt0133093  The Matrix (1999)  movie  [in list]")
	assert.Contains(t, out, "tt0234215  The Matrix Reloaded (2003)  movie\n")
	assert.Contains(t, out, "Page 2 of 3 (23 results)")
}

func TestSearch_Errors(t *testing.T) {
	h := newHarness(t)

	_, errOut, code := h.run(t, "", "search", "x", "--type", "game")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown type")

	h.catalog.searchErr = &catalog.APIError{Message: "Movie not found!"}
	_, errOut, code = h.run(t, "", "search", "zzz")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Movie not found!")

	h.catalog.searchErr = catalog.ErrMissingAPIKey
	_, errOut, code = h.run(t, "", "search", "zzz")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "OMDB_API_KEY")
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	d := h.catalog.titles["tt0468569"]
	d.Fields["Director"] = "Christopher Nolan"
	d.Fields["imdbRating"] = "9.0"
	d.Fields["BoxOffice"] = "N/A"
	d.Ratings = []model.Rating{{Source: "Rotten Tomatoes", Value: "94%"}}
	h.catalog.titles["tt0468569"] = d

	out, _, code := h.run(t, "", "show", "tt0468569")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "The Dark Knight\n2008")
	assert.Contains(t, out, "The Dark Knight plot")
	assert.Contains(t, out, "Director: Christopher Nolan")
	assert.Contains(t, out, "IMDb rating: 9.0 / 10")
	assert.NotContains(t, out, "Box office")
	assert.Contains(t, out, "Rotten Tomatoes: 94%")
	assert.NotContains(t, out, "In My List")

	_, errOut, code := h.run(t, "", "show", "tt0468569", "--plot", "medium")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown plot")
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	out, _, code := h.run(t, "", "version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Build version: v1.2.3")
	assert.Contains(t, out, "Build commit: abc")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Please fill in all fields", message(model.ErrMissingFields))
	assert.Equal(t, "Error: boom", message(errors.New("boom")))
	assert.Equal(t, "OMDb request failed: 500 Internal Server Error",
		message(&catalog.APIError{Status: 500, Message: "Internal Server Error"}))
}

// slowCatalog answers every title lookup after a short pause unless the
// caller gives up first.
type slowCatalog struct {
	fakeCatalog
	delay time.Duration
}

func (s *slowCatalog) Title(ctx context.Context, imdbID string, _ model.TitleOptions) (model.TitleDetails, error) {
	select {
	case <-ctx.Done():
		return model.TitleDetails{}, model.ErrCanceled
	case <-time.After(s.delay):
	}
	return title(imdbID, "Title "+imdbID, "2000"), nil
}

func TestFeatured(t *testing.T) {
	h := newHarness(t)
	slow := &slowCatalog{delay: 20 * time.Millisecond}
	h.deps.Catalog = catalog.NewLatest(slow)
	h.deps.Featured = slow

	out, errOut, code := h.run(t, "", "featured")
	require.Equal(t, 0, code, errOut)

	for _, id := range catalog.FeaturedIDs {
		assert.Contains(t, out, id+"  Title "+id+" (2000)")
	}
	assert.Less(t, strings.Index(out, catalog.FeaturedIDs[0]), strings.Index(out, catalog.FeaturedIDs[5]))
}

func TestFeatured_FallsBackToCatalog(t *testing.T) {
	h := newHarness(t)

	out, _, code := h.run(t, "", "featured")
	require.Equal(t, 0, code)

	assert.Contains(t, out, "tt0468569  The Dark Knight (2008)")
	assert.Contains(t, out, "tt0133093  The Matrix (1999)")
	assert.NotContains(t, out, "tt0944947")
}

type readOnlyStorage struct {
	*memory.Storage
}

func (readOnlyStorage) Set(context.Context, string, string) error {
	return errors.New("read-only file system")
}

func TestLogin_LogsStorageFailures(t *testing.T) {
	tests := []struct {
		name    string
		storage model.Storage
		args    []string
		wantErr string
		wantLog bool
	}{
		{
			name:    "wrong password",
			storage: memory.New(),
			args:    []string{"login", "-e", "user@netflix.com", "-p", "nope"},
			wantErr: "Invalid email or password",
		},
		{
			name:    "duplicate email",
			storage: memory.New(),
			args:    []string{"signup", "-n", "Dup", "-e", "user@netflix.com", "-p", "pw"},
			wantErr: "An account with this email already exists",
		},
		{
			name:    "storage failure",
			storage: readOnlyStorage{memory.New()},
			args:    []string{"login", "-e", "user@netflix.com", "-p", "password"},
			wantErr: "read-only file system",
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs syncBuffer
			log := logger.NewWithWriter(&logs, 0)
			st := store.New(tt.storage, log)

			var out, errOut bytes.Buffer
			code := Run(context.Background(), Deps{
				Auth:      service.NewAuth(context.Background(), st, log, 0),
				Watchlist: service.NewWatchlist(st, notify.NewHub(log), log),
				Catalog:   &fakeCatalog{},
				Logger:    log,
				In:        strings.NewReader(""),
				Out:       &out,
				Err:       &errOut,
			}, tt.args)

			assert.Equal(t, 1, code)
			assert.Contains(t, errOut.String(), tt.wantErr)
			if tt.wantLog {
				assert.Contains(t, logs.String(), "CLI: login failed")
			} else {
				assert.NotContains(t, logs.String(), "CLI:")
			}
		})
	}
}
