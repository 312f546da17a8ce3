package workspace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"tubefetch/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	m, err := New(log, filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return m
}

func backdate(t *testing.T, path string, age time.Duration) {
	t.Helper()

	past := time.Now().Add(-age)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSweepOnceRemovesStaleWorkspaces(t *testing.T) {
	m := newTestManager(t)
	window := 24 * time.Hour

	stale, err := m.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(stale.Path, "leftover.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}

	backdate(t, stale.Path, window+time.Hour)

	fresh, err := m.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// A stray regular file in the root is not a workspace; the sweeper
	// must leave it alone.
	strayFile := filepath.Join(m.Root(), "notes.txt")
	if err := os.WriteFile(strayFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	backdate(t, strayFile, window+time.Hour)

	if err := m.sweepOnce(context.Background(), window, nil); err != nil {
		t.Fatalf("sweepOnce failed: %v", err)
	}

	if _, err := os.Stat(stale.Path); !os.IsNotExist(err) {
		t.Errorf("stale workspace survived the sweep: %v", err)
	}

	if _, err := os.Stat(fresh.Path); err != nil {
		t.Errorf("fresh workspace removed by the sweep: %v", err)
	}

	if _, err := os.Stat(strayFile); err != nil {
		t.Errorf("stray file removed by the sweep: %v", err)
	}
}

func TestSweepOnceReportsEnumerationError(t *testing.T) {
	m := newTestManager(t)

	if err := os.RemoveAll(m.Root()); err != nil {
		t.Fatalf("remove root: %v", err)
	}

	if err := m.sweepOnce(context.Background(), time.Hour, nil); err == nil {
		t.Error("expected error when the workspace root is unreadable")
	}
}

func TestSweepRetriesAfterErrorBackoff(t *testing.T) {
	m := newTestManager(t)

	cfg := config.Retention{
		Window:        24 * time.Hour,
		SweepInterval: time.Hour,
		ErrorBackoff:  5 * time.Minute,
	}

	synctest.Test(t, func(t *testing.T) {
		// Break enumeration so the first sweep fails.
		if err := os.RemoveAll(m.Root()); err != nil {
			t.Fatalf("remove root: %v", err)
		}

		go m.Sweep(t.Context(), cfg, nil)

		time.Sleep(cfg.SweepInterval + time.Second)

		// The loop survived the failure. Restore the root and plant a stale
		// workspace; it must be gone once only the backoff has elapsed,
		// long before a full sweep interval.
		if err := os.MkdirAll(m.Root(), 0o750); err != nil {
			t.Fatalf("recreate root: %v", err)
		}

		stale, err := m.Allocate()
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}

		backdate(t, stale.Path, cfg.Window+time.Hour)

		time.Sleep(cfg.ErrorBackoff + time.Second)

		if _, err := os.Stat(stale.Path); !os.IsNotExist(err) {
			t.Errorf("stale workspace survived: no retry within the error backoff (stat: %v)", err)
		}
	})
}

func TestSweepStopsOnContextCancel(t *testing.T) {
	m := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		m.Sweep(ctx, config.Retention{
			Window:        time.Hour,
			SweepInterval: time.Hour,
			ErrorBackoff:  time.Minute,
		}, nil)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
