package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/dtroode/moviecat/internal/api/cli"
	"github.com/dtroode/moviecat/internal/catalog"
	"github.com/dtroode/moviecat/internal/config"
	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/notify"
	"github.com/dtroode/moviecat/internal/service"
	"github.com/dtroode/moviecat/internal/storage"
	"github.com/dtroode/moviecat/internal/store"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Printf("failed to parse config: %v", err)
		return 1
	}
	logger := logger.New(cfg.LogLevel)

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "backend", cfg.Backend, "error", err)
		return 1
	}
	defer backend.Close()

	st := store.New(backend, logger)
	hub := notify.NewHub(logger.With("origin", backend.Origin()))

	watchCtx, cancelWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hub.Run(watchCtx, backend); err != nil {
			logger.Warn("storage change notifications unavailable", "error", err)
		}
	}()

	authService := service.NewAuth(ctx, st, logger, cfg.AuthDelay)
	watchlistService := service.NewWatchlist(st, hub, logger)

	deps := newDeps(cfg.OMDb, logger)
	deps.Auth = authService
	deps.Watchlist = watchlistService

	code := cli.Run(ctx, deps, os.Args[1:])

	cancelWatch()
	wg.Wait()

	return code
}

// newDeps wires the catalog client. Search and show go through Latest so a
// newer request cancels the one before it; featured lookups run side by side
// on the plain client.
func newDeps(cfg config.OMDb, logger *logger.Logger) cli.Deps {
	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	omdb := catalog.NewClient(cfg.APIKey, cfg.BaseURL, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: catalog.NewLoggingTransport(http.DefaultTransport, logger),
	}, limiter, logger)

	return cli.Deps{
		Catalog:  catalog.NewLatest(omdb),
		Featured: omdb,
		Logger:   logger,
		Build: cli.BuildInfo{
			Version: buildVersion,
			Date:    buildDate,
			Commit:  buildCommit,
		},
	}
}
