package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/moviecat/internal/api/cli"
	"github.com/dtroode/moviecat/internal/catalog"
	"github.com/dtroode/moviecat/internal/config"
	"github.com/dtroode/moviecat/internal/notify"
	"github.com/dtroode/moviecat/internal/service"
	"github.com/dtroode/moviecat/internal/storage/memory"
	"github.com/dtroode/moviecat/internal/store"
	"github.com/dtroode/moviecat/internal/testutil"
)

func newOMDbServer(t *testing.T, delay time.Duration) (config.OMDb, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
		id := r.URL.Query().Get("i")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"Title": "Title %s", "Year": "2000", "imdbID": %q, "Type": "movie", "Response": "True"}`, id, id)
	}))
	t.Cleanup(srv.Close)

	return config.OMDb{
		APIKey:        "test-key",
		BaseURL:       srv.URL + "/",
		Timeout:       5 * time.Second,
		RatePerSecond: 100,
		Burst:         10,
	}, &calls
}

func runCLI(t *testing.T, deps cli.Deps, args ...string) (string, string, int) {
	t.Helper()
	log := testutil.MakeNoopLogger()
	st := store.New(memory.New(), log)
	deps.Auth = service.NewAuth(context.Background(), st, log, 0)
	deps.Watchlist = service.NewWatchlist(st, notify.NewHub(log), log)

	var out, errOut bytes.Buffer
	deps.In = strings.NewReader("")
	deps.Out = &out
	deps.Err = &errOut
	code := cli.Run(context.Background(), deps, args)
	return out.String(), errOut.String(), code
}

func TestNewDeps_FeaturedLoadsEveryTitle(t *testing.T) {
	cfg, calls := newOMDbServer(t, 20*time.Millisecond)

	out, errOut, code := runCLI(t, newDeps(cfg, testutil.MakeNoopLogger()), "featured")
	require.Equal(t, 0, code, errOut)

	for _, id := range catalog.FeaturedIDs {
		assert.Contains(t, out, id+"  Title "+id+" (2000)")
	}
	assert.Equal(t, int32(len(catalog.FeaturedIDs)), calls.Load())
}

func TestNewDeps_Show(t *testing.T) {
	cfg, _ := newOMDbServer(t, 0)

	out, errOut, code := runCLI(t, newDeps(cfg, testutil.MakeNoopLogger()), "show", "tt0133093")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Title tt0133093")
}

func TestNewDeps_BuildInfo(t *testing.T) {
	deps := newDeps(config.OMDb{}, testutil.MakeNoopLogger())

	assert.Equal(t, buildVersion, deps.Build.Version)
	assert.IsType(t, &catalog.Latest{}, deps.Catalog)
	assert.IsType(t, &catalog.Client{}, deps.Featured)
}
