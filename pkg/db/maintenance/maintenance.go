package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zsembells/pkg/config"
	"zsembells/pkg/db"
	"zsembells/pkg/store"
)

const lastRunStateKey = "maintenance_last_run"

// minInterval keeps frequent restarts from pruning on every start.
const minInterval = 12 * time.Hour

// Run prunes the ring history and old schedule snapshots.
// It blocks until completion. Failures are logged, never fatal.
func Run(ctx context.Context, s store.StateStore, d *db.DB, cfg *config.DBConfig) error {
	if last, ok := s.GetState(ctx, lastRunStateKey); ok {
		if t, err := time.Parse(time.RFC3339, last); err == nil && time.Since(t) < minInterval {
			slog.Debug("Skipping database maintenance", "last_run", last)
			return nil
		}
	}

	slog.Info("Starting database maintenance...")

	if n, err := pruneRings(ctx, d, time.Duration(cfg.RingRetention)); err != nil {
		slog.Error("Ring history pruning failed", "error", err)
	} else {
		slog.Info("Ring history pruning completed", "removed", n)
	}

	if n, err := pruneSchedules(ctx, d, cfg.KeepSchedules); err != nil {
		slog.Error("Schedule pruning failed", "error", err)
	} else {
		slog.Info("Schedule pruning completed", "removed", n)
	}

	return s.SetState(ctx, lastRunStateKey, time.Now().UTC().Format(time.RFC3339))
}

// pruneRings removes ring events older than the retention. Zero retention keeps everything.
func pruneRings(ctx context.Context, d *db.DB, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	// Same layout as the store writes, so string comparison orders correctly
	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05.000")
	res, err := d.ExecContext(ctx, "DELETE FROM ring_events WHERE rang_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune ring events: %w", err)
	}
	return res.RowsAffected()
}

// pruneSchedules keeps only the newest snapshots. keep <= 0 keeps everything.
func pruneSchedules(ctx context.Context, d *db.DB, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := d.ExecContext(ctx,
		"DELETE FROM schedules WHERE id NOT IN (SELECT id FROM schedules ORDER BY id DESC LIMIT ?)", keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune schedules: %w", err)
	}
	return res.RowsAffected()
}
