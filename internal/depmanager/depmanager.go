// Package depmanager resolves the external binaries the extraction engine
// needs: yt-dlp and ffmpeg. Binaries are either looked up on the system PATH
// or downloaded into a managed bins directory.
package depmanager

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/errs"
	"tubefetch/pkg/logger"

	"github.com/ulikunitz/xz"
)

// Binary identifies an external binary dependency.
type Binary string

// Binary dependency names.
const (
	BinaryYTdlp  Binary = "yt-dlp"
	BinaryFFmpeg Binary = "ffmpeg"
)

const (
	// downloadTimeout is the HTTP client timeout for downloading binaries.
	downloadTimeout = 10 * time.Minute
	// filePermExecutable is the file permission for executable binaries.
	filePermExecutable = 0o755
)

// Manager resolves and caches binary paths.
type Manager struct {
	log    *slog.Logger
	cfg    *config.Config
	client *http.Client

	mu    sync.RWMutex
	paths map[Binary]string
}

// New creates a new dependency manager.
func New(log *slog.Logger, cfg *config.Config) *Manager {
	return &Manager{
		log: logger.Pkg(log, "depmanager"),
		cfg: cfg,
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		paths: make(map[Binary]string),
	}
}

// Path returns the resolved path for a binary, or empty when unresolved.
func (m *Manager) Path(binary Binary) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.paths[binary]
}

// Ensure resolves both binaries, downloading them when the configuration
// does not point at system installs.
func (m *Manager) Ensure(ctx context.Context) error {
	if m.cfg.Deps.UseSystemBinaries {
		return m.resolveSystem()
	}

	if err := os.MkdirAll(m.cfg.Deps.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins dir: %w", err)
	}

	if err := m.ensureYTdlp(ctx); err != nil {
		return err
	}

	return m.ensureFFmpeg(ctx)
}

func (m *Manager) resolveSystem() error {
	for _, binary := range []Binary{BinaryYTdlp, BinaryFFmpeg} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errs.ErrBinaryNotFound, binary, err)
		}

		m.setPath(binary, path)
		m.log.Info("using system binary", slog.String("binary", string(binary)), slog.String("path", path))
	}

	return nil
}

func (m *Manager) setPath(binary Binary, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paths[binary] = path
}

func (m *Manager) ensureYTdlp(ctx context.Context) error {
	dest := filepath.Join(m.cfg.Deps.BinsDir, string(BinaryYTdlp))
	if _, err := os.Stat(dest); err == nil {
		m.setPath(BinaryYTdlp, dest)

		return nil
	}

	url, err := m.ytdlpURL()
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "downloading yt-dlp", slog.String("url", url))

	body, err := m.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("download yt-dlp: %w", err)
	}
	defer body.Close()

	if err := writeExecutable(dest, body); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}

	m.setPath(BinaryYTdlp, dest)

	return nil
}

// ensureFFmpeg downloads the BtbN static build, a tar.xz archive, and
// extracts just the ffmpeg binary from it.
func (m *Manager) ensureFFmpeg(ctx context.Context) error {
	dest := filepath.Join(m.cfg.Deps.BinsDir, string(BinaryFFmpeg))
	if _, err := os.Stat(dest); err == nil {
		m.setPath(BinaryFFmpeg, dest)

		return nil
	}

	url, err := m.ffmpegURL()
	if err != nil {
		return err
	}

	m.log.InfoContext(ctx, "downloading ffmpeg", slog.String("url", url))

	body, err := m.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("download ffmpeg: %w", err)
	}
	defer body.Close()

	if err := extractTarXZ(body, "bin/"+string(BinaryFFmpeg), dest); err != nil {
		return fmt.Errorf("install ffmpeg: %w", err)
	}

	m.setPath(BinaryFFmpeg, dest)

	return nil
}

func (m *Manager) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	return resp.Body, nil
}

func (m *Manager) ytdlpURL() (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}

	switch runtime.GOARCH {
	case "amd64":
		return m.cfg.Deps.YTdlpLinuxAMD64, nil
	case "arm64":
		return m.cfg.Deps.YTdlpLinuxARM64, nil
	default:
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}
}

func (m *Manager) ffmpegURL() (string, error) {
	if runtime.GOOS != "linux" {
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}

	switch runtime.GOARCH {
	case "amd64":
		return m.cfg.Deps.FFmpegLinuxAMD64, nil
	case "arm64":
		return m.cfg.Deps.FFmpegLinuxARM64, nil
	default:
		return "", fmt.Errorf("%w: %s/%s", errs.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}
}

func writeExecutable(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermExecutable)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// extractTarXZ streams a tar.xz archive and writes the first member whose
// path ends with wantSuffix to dest.
func extractTarXZ(r io.Reader, wantSuffix, dest string) error {
	xzr, err := xz.NewReader(r)
	if err != nil {
		return fmt.Errorf("xz reader: %w", err)
	}

	tr := tar.NewReader(xzr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar next: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg || !strings.HasSuffix(hdr.Name, wantSuffix) {
			continue
		}

		return writeExecutable(dest, tr)
	}

	return fmt.Errorf("%w: %s not in archive", errs.ErrBinaryNotFound, wantSuffix)
}
