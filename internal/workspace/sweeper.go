package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/observability"
)

// Sweep periodically removes workspaces whose last-modified time is older
// than the retention window. It catches directories that escaped per-request
// cleanup, e.g. after a crash mid-request. The loop runs for the lifetime of
// the process: per-folder deletion errors are logged and suppressed, and an
// enumeration error only shortens the wait to the error backoff.
func (m *Manager) Sweep(ctx context.Context, cfg config.Retention, metrics *observability.Metrics) {
	log := m.log.With(
		slog.String("action", "sweep"),
		slog.Duration("interval", cfg.SweepInterval),
		slog.Duration("window", cfg.Window))

	timer := time.NewTimer(cfg.SweepInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("retention sweeper stopped")

			return
		case <-timer.C:
		}

		wait := cfg.SweepInterval

		if err := m.sweepOnce(ctx, cfg.Window, metrics); err != nil {
			log.Error("sweep failed", slog.Any("error", err))
			metrics.RecordSweepError()

			wait = cfg.ErrorBackoff
		}

		timer.Reset(wait)
	}
}

func (m *Manager) sweepOnce(ctx context.Context, window time.Duration, metrics *observability.Metrics) error {
	log := m.log
	cutoff := time.Now().Add(-window)

	entries, err := os.ReadDir(m.root)
	if err != nil {
		return err
	}

	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Error("stat workspace", slog.String("name", entry.Name()), slog.Any("error", err))

			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		// Concurrent removal by an in-flight request is tolerated:
		// RemoveAll on a missing directory is a no-op.
		if err := os.RemoveAll(filepath.Join(m.root, entry.Name())); err != nil {
			log.Error("remove stale workspace", slog.String("name", entry.Name()), slog.Any("error", err))

			continue
		}

		removed++

		log.InfoContext(ctx, "stale workspace removed", slog.String("workspace_id", entry.Name()))
	}

	metrics.RecordSweep(removed)

	return nil
}
