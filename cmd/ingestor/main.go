package main

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tour_match/internal/adapters/observability"
	"tour_match/internal/adapters/travelata"
	"tour_match/internal/app"
	"tour_match/internal/domain"
	"tour_match/internal/shared"
	mysqlrepo "tour_match/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	log.Info().
		Str("base", cfg.TravelataBase).
		Int("workers", cfg.IngestWorkers).
		Int("routes", len(cfg.IngestRoutes)).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := travelata.New(cfg.TravelataBase, cfg.TravelataToken, cfg.IngestRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize offers client")
	}
	ing := app.NewIngestionService(client, repo)

	// 2) directories first: tours reference them
	if err := ing.SyncDirectories(ctx); err != nil {
		log.Fatal().Err(err).Msg("directory sync failed")
	}

	// 3) routes, bounded fan-out
	today := time.Now().UTC()
	sem := semaphore.NewWeighted(int64(max(cfg.IngestWorkers, 1)))
	var wg sync.WaitGroup

	for _, route := range cfg.IngestRoutes {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(r shared.Route) {
			defer wg.Done()
			defer sem.Release(1)

			n, err := ing.IngestRoute(ctx, domain.TourSearch{
				CountryID:   r.CountryID,
				CityID:      r.CityID,
				NightsFrom:  cfg.IngestNights[0],
				NightsTo:    cfg.IngestNights[1],
				Adults:      2,
				CheckInFrom: today.AddDate(0, 0, 1).Format(time.DateOnly),
				CheckInTo:   today.AddDate(0, 0, cfg.IngestDays).Format(time.DateOnly),
			})
			if err != nil {
				log.Warn().Str("route", r.String()).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Str("route", r.String()).Int("tours", n).Msg("ingest ok")
		}(route)
	}

	wg.Wait()
	log.Info().Msg("ingestion completed")
}
