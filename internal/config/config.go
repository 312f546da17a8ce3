// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	App       App
	HTTP      HTTP
	Dir       Dir
	Retention Retention
	Download  Download
	Deps      Deps
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"TUBEFETCH_APP_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"TUBEFETCH_APP_DEBUG"     envDefault:"false"`

	// SecretKey is reserved for signed-cookie style auth in front proxies.
	// The service itself never reads it beyond startup validation.
	SecretKey string `env:"TUBEFETCH_APP_SECRET_KEY" envDefault:""`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host            string        `env:"TUBEFETCH_HTTP_HOST"             envDefault:"0.0.0.0"`
	Port            string        `env:"TUBEFETCH_HTTP_PORT"             envDefault:"5000"`
	ShutdownTimeout time.Duration `env:"TUBEFETCH_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr returns the listen address in host:port form.
func (h HTTP) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Dir holds directory paths.
type Dir struct {
	// Downloads is the workspace root; every request gets its own
	// subdirectory underneath it.
	Downloads string `env:"TUBEFETCH_DIR_DOWNLOADS" envDefault:"./data/downloads"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (d *Dir) SetAbsPaths() error {
	var err error
	if d.Downloads, err = filepath.Abs(d.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	return nil
}

// Retention holds workspace retention and sweep configuration.
type Retention struct {
	// Window is how long an abandoned workspace survives before the
	// sweeper removes it.
	Window time.Duration `env:"TUBEFETCH_RETENTION_WINDOW" envDefault:"24h"`
	// SweepInterval is how often the sweeper scans the workspace root.
	SweepInterval time.Duration `env:"TUBEFETCH_RETENTION_SWEEP_INTERVAL" envDefault:"1h"`
	// ErrorBackoff is the shortened wait after an internal sweeper error.
	ErrorBackoff time.Duration `env:"TUBEFETCH_RETENTION_ERROR_BACKOFF" envDefault:"5m"`
}

// Download holds download execution configuration.
type Download struct {
	// MaxConcurrent bounds simultaneous engine invocations.
	MaxConcurrent int `env:"TUBEFETCH_DOWNLOAD_MAX_CONCURRENT" envDefault:"4"`
	// Timeout is the hard deadline for a single engine invocation.
	Timeout time.Duration `env:"TUBEFETCH_DOWNLOAD_TIMEOUT" envDefault:"30m"`

	// Proxy is an optional proxy URL passed through to the engine.
	Proxy string `env:"TUBEFETCH_DOWNLOAD_PROXY" envDefault:""`

	// CookieFile must point to a Netscape-format cookies.txt file.
	// See: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"TUBEFETCH_DOWNLOAD_COOKIE_FILE" envDefault:""`
}

// SetAbsPaths converts the cookie file path to an absolute path.
func (d *Download) SetAbsPaths() error {
	if d.CookieFile == "" {
		return nil
	}

	var err error
	if d.CookieFile, err = filepath.Abs(d.CookieFile); err != nil {
		return fmt.Errorf("cookie file: %w", err)
	}

	return nil
}

// Deps holds external binary dependency configuration.
type Deps struct {
	// UseSystemBinaries looks up yt-dlp and ffmpeg on PATH instead of
	// downloading them into BinsDir.
	UseSystemBinaries bool   `env:"TUBEFETCH_DEPS_USE_SYSTEM_BINARIES" envDefault:"true"`
	BinsDir           string `env:"TUBEFETCH_DEPS_BINS_DIR"            envDefault:"./bins"`

	YTdlpLinuxAMD64  string `env:"TUBEFETCH_DEPS_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`                                              //nolint:lll
	YTdlpLinuxARM64  string `env:"TUBEFETCH_DEPS_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"`                                      //nolint:lll
	FFmpegLinuxAMD64 string `env:"TUBEFETCH_DEPS_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`             //nolint:lll
	FFmpegLinuxARM64 string `env:"TUBEFETCH_DEPS_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"`          //nolint:lll
}

// SetAbsPaths converts the bins directory to an absolute path.
func (d *Deps) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.Download.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set download absolute paths: %w", err)
	}

	err = cfg.Deps.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set deps absolute paths: %w", err)
	}

	return cfg, nil
}
