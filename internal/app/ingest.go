package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"tour_match/internal/domain"
)

// IngestionService copies directories and cheapest offers from the upstream
// API into the tour store. The search pipeline never calls it.
type IngestionService struct {
	source domain.OfferSource
	repo   domain.InventoryRepository
}

func NewIngestionService(src domain.OfferSource, repo domain.InventoryRepository) *IngestionService {
	return &IngestionService{source: src, repo: repo}
}

// SyncDirectories refreshes every dimension table. Directories are parents of
// tours, so this runs before any IngestRoute.
func (s *IngestionService) SyncDirectories(ctx context.Context) error {
	for _, dim := range domain.Dimensions {
		raw, err := s.source.Directory(ctx, dim)
		if err != nil {
			if status, ok := missStatus(err); ok {
				_ = s.repo.LogMiss(ctx, "directory:"+string(dim), status, err.Error())
				continue
			}
			return fmt.Errorf("directory %s: %w", dim, err)
		}
		rows := mapDirectory(raw)
		if err := s.repo.UpsertDimension(ctx, dim, rows); err != nil {
			return fmt.Errorf("upsert %s: %w", dim, err)
		}
		log.Info().Str("dimension", string(dim)).Int("rows", len(rows)).Msg("directory synced")
	}
	return nil
}

// IngestRoute fetches the cheapest tours for one route and upserts them.
// Known upstream misses (404/401/403) are recorded and are not errors.
func (s *IngestionService) IngestRoute(ctx context.Context, q domain.TourSearch) (int, error) {
	route := fmt.Sprintf("%d:%d", q.CountryID, q.CityID)

	raw, err := s.source.CheapestTours(ctx, q)
	if err != nil {
		if status, ok := missStatus(err); ok {
			_ = s.repo.LogMiss(ctx, route, status, err.Error())
			return 0, nil
		}
		return 0, err
	}
	if len(raw) == 0 {
		_ = s.repo.LogMiss(ctx, route, http.StatusOK, "no offers")
		return 0, nil
	}

	tours := make([]domain.TourOffer, 0, len(raw))
	for _, t := range raw {
		if tour, ok := mapTour(t, q.CountryID, q.CityID); ok {
			tours = append(tours, tour)
		}
	}
	if err := s.repo.UpsertTours(ctx, tours); err != nil {
		return 0, fmt.Errorf("upsert tours for %s: %w", route, err)
	}
	return len(tours), nil
}

func missStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	}
	return 0, false
}
