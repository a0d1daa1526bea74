package catalog

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// FeaturedIDs are the titles shown before any search.
var FeaturedIDs = []string{
	"tt0468569", // The Dark Knight
	"tt4154796", // Avengers: Endgame
	"tt0903747", // Breaking Bad
	"tt0944947", // Game of Thrones
	"tt0133093", // The Matrix
	"tt0111161", // The Shawshank Redemption
}

// Featured looks up FeaturedIDs concurrently with short plots. Titles that
// fail to load are left out; the rest keep the FeaturedIDs order.
func Featured(ctx context.Context, c model.Catalog, logger *logger.Logger) ([]model.TitleDetails, error) {
	results := make([]*model.TitleDetails, len(FeaturedIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range FeaturedIDs {
		g.Go(func() error {
			details, err := c.Title(gctx, id, model.TitleOptions{Plot: model.PlotShort})
			if err != nil {
				if errors.Is(err, model.ErrCanceled) || errors.Is(err, ErrMissingAPIKey) {
					return err
				}
				logger.Warn("Catalog: featured title unavailable",
					"imdb_id", id,
					"error", err.Error())
				return nil
			}
			results[i] = &details
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	featured := make([]model.TitleDetails, 0, len(results))
	for _, d := range results {
		if d != nil {
			featured = append(featured, *d)
		}
	}

	return featured, nil
}
