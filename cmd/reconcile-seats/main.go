package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"eventbooking/internal/config"
	"eventbooking/internal/database"
	"eventbooking/internal/logger"
	"eventbooking/internal/repository"
)

func main() {
	var fix bool
	flag.BoolVar(&fix, "fix", false, "Rewrite available_seats for drifted events")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting seat reconciliation", "fix", fix)

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	repos := repository.NewRepositories(db)

	drifted, err := reconcile(ctx, repos, fix)
	if err != nil {
		logger.Fatal("Seat reconciliation failed", "error", err)
	}

	slog.Info("Seat reconciliation completed", "drifted_events", drifted)
}

// reconcile compares available_seats with total minus confirmed seats per
// event and returns how many events disagree. With fix set, each drifted
// event is corrected inside a transaction that re-reads it under lock.
func reconcile(ctx context.Context, repos *repository.Repositories, fix bool) (int, error) {
	start := time.Now()

	drift, err := repos.Audit.SeatDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to audit seats: %w", err)
	}

	for _, d := range drift {
		slog.Warn("Seat counter drift",
			"event_id", d.EventID,
			"total_seats", d.TotalSeats,
			"available_seats", d.AvailableSeats,
			"confirmed_seats", d.ConfirmedSeats,
			"expected_available", d.ExpectedAvailable())

		if !fix {
			continue
		}

		expected := d.ExpectedAvailable()
		if expected < 0 {
			slog.Error("Event is oversold, manual review needed", "event_id", d.EventID, "oversold_by", -expected)
			continue
		}

		err := repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			if _, err := repos.Events.GetForUpdate(ctx, d.EventID); err != nil {
				return err
			}
			return repos.Audit.SetAvailableSeats(ctx, d.EventID, expected)
		})
		if err != nil {
			return 0, fmt.Errorf("failed to fix event %s: %w", d.EventID, err)
		}
		slog.Info("Seat counter repaired", "event_id", d.EventID, "available_seats", expected)
	}

	slog.Info("Seat audit finished", "duration", time.Since(start).String(), "drifted", len(drift))
	return len(drift), nil
}
