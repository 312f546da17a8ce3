package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/engine"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/quality"
	"tubefetch/internal/service"
	"tubefetch/internal/workspace"
)

func newFixture(t *testing.T, eng engine.Engine) (*service.Service, *workspace.Manager) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Download: config.Download{
			MaxConcurrent: 2,
			Timeout:       time.Minute,
		},
	}

	workspaces, err := workspace.New(log, filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("workspace.New failed: %v", err)
	}

	return service.New(cfg, log, eng, workspaces, nil), workspaces
}

func rootEntries(t *testing.T, m *workspace.Manager) []os.DirEntry {
	t.Helper()

	entries, err := os.ReadDir(m.Root())
	if err != nil {
		t.Fatalf("read workspace root: %v", err)
	}

	return entries
}

func TestDownloadReleasesWorkspaceAfterSuccess(t *testing.T) {
	mock := &engine.Mock{Files: map[string]string{"title.mp4": "video"}}
	svc, workspaces := newFixture(t, mock)

	artifact, release, err := svc.Download(context.Background(), "https://youtu.be/abc", "720p", "mp4")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if artifact.Filename != "title.mp4" {
		t.Errorf("filename = %q, want title.mp4", artifact.Filename)
	}

	// The artifact is still streamable until the caller releases.
	if _, err := os.Stat(artifact.Path); err != nil {
		t.Fatalf("artifact gone before release: %v", err)
	}

	release()

	if got := len(rootEntries(t, workspaces)); got != 0 {
		t.Errorf("%d workspaces left after release, want 0", got)
	}
}

func TestDownloadReleasesWorkspaceOnEngineError(t *testing.T) {
	mock := &engine.Mock{FetchErr: errors.New("network down")}
	svc, workspaces := newFixture(t, mock)

	_, _, err := svc.Download(context.Background(), "https://youtu.be/abc", "best", "mp4")
	if err == nil {
		t.Fatal("expected engine error")
	}

	if got := len(rootEntries(t, workspaces)); got != 0 {
		t.Errorf("%d workspaces left after failed download, want 0", got)
	}
}

func TestDownloadUnsupportedQuality(t *testing.T) {
	mock := &engine.Mock{ProbeEntries: []entity.CapabilityEntry{
		{FormatID: "137", Vcodec: "avc1", Acodec: "none"},
	}}
	svc, workspaces := newFixture(t, mock)

	_, _, err := svc.Download(context.Background(), "https://youtu.be/abc", "shiny", "mp4")

	var unsupported *quality.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want UnsupportedError", err)
	}

	if got := len(rootEntries(t, workspaces)); got != 0 {
		t.Errorf("%d workspaces left after rejected quality, want 0", got)
	}
}

func TestDownloadFormatIDSkipsNoProbeForCanonical(t *testing.T) {
	// A canonical token must resolve without a capability probe: a probe
	// failure here would fail the download.
	mock := &engine.Mock{
		ProbeErr: errors.New("probe must not be called"),
		Files:    map[string]string{"title.mp4": "video"},
	}
	svc, _ := newFixture(t, mock)

	_, release, err := svc.Download(context.Background(), "https://youtu.be/abc", "480p", "mp4")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	release()
}

func TestDownloadFormatIDPassthrough(t *testing.T) {
	mock := &engine.Mock{
		ProbeEntries: []entity.CapabilityEntry{
			{FormatID: "251", Vcodec: "none", Acodec: "opus"},
		},
		Files: map[string]string{"title.webm": "audio"},
	}
	svc, _ := newFixture(t, mock)

	_, release, err := svc.Download(context.Background(), "https://youtu.be/abc", "251", "mp4")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	defer release()

	calls := mock.FetchCalls()
	if len(calls) != 1 || calls[0].Selection != "251" {
		t.Errorf("fetch calls = %+v, want raw format id passed through", calls)
	}
}

func TestFormatsFiltersSilentEntries(t *testing.T) {
	mock := &engine.Mock{ProbeEntries: []entity.CapabilityEntry{
		{FormatID: "sb0", Vcodec: "none", Acodec: "none"},
		{FormatID: "18", Vcodec: "avc1", Acodec: "mp4a"},
	}}
	svc, _ := newFixture(t, mock)

	entries, err := svc.Formats(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("Formats failed: %v", err)
	}

	if len(entries) != 1 || entries[0].FormatID != "18" {
		t.Errorf("entries = %+v, want only format 18", entries)
	}
}

// panickingEngine simulates a crash deep in the engine layer, past the
// point where the workspace already exists.
type panickingEngine struct{}

func (panickingEngine) Probe(context.Context, string) ([]entity.CapabilityEntry, error) {
	return nil, nil
}

func (panickingEngine) Fetch(context.Context, string, engine.FetchOptions) error {
	panic("postprocessor crashed")
}

func TestDownloadReleasesWorkspaceOnPanic(t *testing.T) {
	svc, workspaces := newFixture(t, panickingEngine{})

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the engine panic to propagate")
			}
		}()

		_, _, _ = svc.Download(context.Background(), "https://youtu.be/abc", "best", "mp4")
	}()

	if got := len(rootEntries(t, workspaces)); got != 0 {
		t.Errorf("%d workspaces left after panic, want 0", got)
	}
}

// blockingEngine parks inside Fetch until released, so a test can hold a
// concurrency slot open.
type blockingEngine struct {
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEngine) Probe(context.Context, string) ([]entity.CapabilityEntry, error) {
	return nil, nil
}

func (e *blockingEngine) Fetch(ctx context.Context, _ string, _ engine.FetchOptions) error {
	close(e.entered)

	select {
	case <-e.release:
	case <-ctx.Done():
	}

	return errors.New("stopped")
}

func TestDownloadRejectsWhenAtCapacity(t *testing.T) {
	eng := &blockingEngine{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Download: config.Download{
			MaxConcurrent: 1,
			Timeout:       time.Minute,
		},
	}

	workspaces, err := workspace.New(log, filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("workspace.New failed: %v", err)
	}

	svc := service.New(cfg, log, eng, workspaces, nil)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _, _ = svc.Download(context.Background(), "https://youtu.be/abc", "best", "mp4")
	}()

	<-eng.entered

	// The single slot is held; the second request must be rejected at once
	// instead of queueing behind a download that can run for minutes.
	_, _, err = svc.Download(context.Background(), "https://youtu.be/xyz", "best", "mp4")
	if !errors.Is(err, errs.ErrTooManyDownloads) {
		t.Fatalf("err = %v, want ErrTooManyDownloads", err)
	}

	close(eng.release)
	<-done

	if got := len(rootEntries(t, workspaces)); got != 0 {
		t.Errorf("%d workspaces left after capacity test, want 0", got)
	}
}

func TestDownloadHonorsCancelledContext(t *testing.T) {
	mock := &engine.Mock{Files: map[string]string{"title.mp4": "video"}}
	svc, _ := newFixture(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := svc.Download(ctx, "https://youtu.be/abc", "best", "mp4"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
