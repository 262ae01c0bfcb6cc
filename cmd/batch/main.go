package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tour_match/internal/adapters/observability"
	"tour_match/internal/app"
	"tour_match/internal/shared"
	mysqlrepo "tour_match/internal/storage/mysql"
)

// batch answers one request per stdin line and prints the replies in input
// order, separated by blank lines.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// logs go to stderr so stdout carries only replies
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel).Output(os.Stderr)

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	pipeline, err := app.BuildPipeline(ctx, cfg, mysqlrepo.New(db))
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline setup failed")
	}

	var lines []string
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	for sc.Scan() {
		if t := strings.TrimSpace(sc.Text()); t != "" {
			lines = append(lines, t)
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatal().Err(err).Msg("read stdin failed")
	}

	replies := make([]string, len(lines))
	sem := semaphore.NewWeighted(int64(max(cfg.BatchWorkers, 1)))
	var wg sync.WaitGroup
	start := time.Now()

	for i, line := range lines {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			reply, err := pipeline.Process(ctx, line)
			if err != nil {
				log.Warn().Int("line", i+1).Err(err).Msg("request failed")
				reply = "error: " + err.Error()
			}
			replies[i] = reply
		}()
	}
	wg.Wait()

	w := bufio.NewWriter(os.Stdout)
	for i, r := range replies {
		fmt.Fprintf(w, "> %s\n%s\n\n", lines[i], r)
	}
	if err := w.Flush(); err != nil {
		log.Fatal().Err(err).Msg("write stdout failed")
	}
	log.Info().Int("requests", len(lines)).Dur("took", time.Since(start)).Msg("batch completed")
}
