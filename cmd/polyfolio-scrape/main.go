// Command polyfolio-scrape runs the daily leaderboard collection sweep,
// either once or on a cron schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/polyfolio/internal/app"
	"github.com/bobmcallan/polyfolio/internal/services/snapshot"
)

func main() {
	configPath := flag.String("config", os.Getenv("POLYFOLIO_CONFIG"), "config file path")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	if *once {
		if err := runSweep(context.Background(), a); err != nil {
			a.Logger.Error().Err(err).Msg("Sweep failed")
			os.Exit(1)
		}
		return
	}

	schedule := a.Config.Snapshot.Schedule
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if err := runSweep(context.Background(), a); err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled sweep failed")
		}
	})
	if err != nil {
		a.Logger.Fatal().Err(err).Str("schedule", schedule).Msg("Invalid cron schedule")
	}

	c.Start()
	a.Logger.Info().Str("schedule", schedule).Msg("Scrape daemon ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("Shutdown signal received")
	<-c.Stop().Done()
	a.Logger.Info().Msg("Scrape daemon stopped")
}

// runSweep executes one full collection sweep under the top-level job retry
// budget. A sweep that errors before persisting is re-attempted whole after
// the configured delay; a degraded sweep already kept its rows, so it is
// reported without a re-run.
func runSweep(ctx context.Context, a *app.App) error {
	cfg := a.Config.Snapshot
	attempts := cfg.JobRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		result, err := a.SnapshotService.Collect(ctx, cfg.Timeframes, cfg.Limit)
		if err == nil {
			a.Logger.Info().
				Int("entries", len(result.Entries)).
				Int("failed_pairs", len(result.Failed)).
				Dur("elapsed", time.Since(start)).
				Msg("Sweep complete")
			checkDayVolume(a, cfg.MinRecords)
			return nil
		}

		var qerr *snapshot.QualityError
		if errors.As(err, &qerr) {
			a.Logger.Warn().
				Int("failed_pairs", qerr.FailedPairs).
				Int("total_pairs", qerr.TotalScrapes).
				Msg("Sweep degraded, collected rows kept")
			checkDayVolume(a, cfg.MinRecords)
			return err
		}

		lastErr = err
		a.Logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("attempts", attempts).
			Msg("Sweep attempt failed")

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.GetJobDelay()):
			}
		}
	}
	return fmt.Errorf("sweep failed after %d attempts: %w", attempts, lastErr)
}

// checkDayVolume warns when today's accumulated record count looks too low
// to be a healthy capture.
func checkDayVolume(a *app.App, minRecords int) {
	if minRecords <= 0 {
		return
	}
	records, snapshots, err := a.SnapshotStore.DayStats(time.Now().UTC())
	if err != nil {
		return
	}
	if records < minRecords {
		a.Logger.Warn().
			Int("records", records).
			Int("min_records", minRecords).
			Int("snapshots", snapshots).
			Msg("Daily record count below expected minimum")
	}
}
