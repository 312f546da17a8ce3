package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"tubefetch/internal/config"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/pkg/logger"

	"github.com/lrstanley/go-ytdlp"
)

// YTdlp drives the yt-dlp binary through go-ytdlp.
type YTdlp struct {
	log *slog.Logger
	cfg *config.Config

	ytdlpPath  string
	ffmpegPath string
}

var _ Engine = (*YTdlp)(nil)

// NewYTdlp creates a yt-dlp engine. Binary paths may be empty, in which case
// yt-dlp is resolved from PATH.
func NewYTdlp(log *slog.Logger, cfg *config.Config, ytdlpPath, ffmpegPath string) *YTdlp {
	return &YTdlp{
		log:        logger.Pkg(log, "engine").With(slog.String("engine", "ytdlp")),
		cfg:        cfg,
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
	}
}

// probeJSON is the subset of the yt-dlp --dump-single-json output we read.
type probeJSON struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Formats []probeFormat `json:"formats"`
}

type probeFormat struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	FormatNote string `json:"format_note"`
	Height     int    `json:"height"`
	Filesize   *int64 `json:"filesize"`
	Format     string `json:"format"`
	Vcodec     string `json:"vcodec"`
	Acodec     string `json:"acodec"`
}

func (d *YTdlp) command() *ytdlp.Command {
	cmd := ytdlp.New().NoPlaylist().Quiet()

	if d.ytdlpPath != "" {
		cmd = cmd.SetExecutable(d.ytdlpPath)
	}

	if d.ffmpegPath != "" {
		cmd = cmd.FFmpegLocation(d.ffmpegPath)
	}

	if d.cfg.Download.Proxy != "" {
		cmd = cmd.Proxy(d.cfg.Download.Proxy)
	}

	if d.cfg.Download.CookieFile != "" {
		cmd = cmd.Cookies(d.cfg.Download.CookieFile)
	}

	return cmd
}

// Probe runs yt-dlp in metadata-only mode and projects the reported formats
// into capability entries.
func (d *YTdlp) Probe(ctx context.Context, url string) ([]entity.CapabilityEntry, error) {
	res, err := d.command().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtraction, err)
	}

	var info probeJSON
	if err := json.Unmarshal([]byte(res.Stdout), &info); err != nil {
		return nil, fmt.Errorf("%w: parse metadata: %w", errs.ErrExtraction, err)
	}

	entries := make([]entity.CapabilityEntry, 0, len(info.Formats))

	for _, f := range info.Formats {
		var resolution any
		if f.FormatNote != "" {
			resolution = f.FormatNote
		} else if f.Height > 0 {
			resolution = f.Height
		}

		entries = append(entries, entity.CapabilityEntry{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: resolution,
			Filesize:   f.Filesize,
			Format:     f.Format,
			Vcodec:     f.Vcodec,
			Acodec:     f.Acodec,
		})
	}

	d.log.DebugContext(ctx, "probe finished",
		slog.String("id", info.ID),
		slog.String("title", info.Title),
		slog.Int("formats", len(entries)))

	return FilterCapabilities(entries), nil
}

// Fetch downloads the selected encoding. yt-dlp writes the file(s) under the
// output template; the final path is discovered afterwards by the caller.
func (d *YTdlp) Fetch(ctx context.Context, url string, opts FetchOptions) error {
	cmd := d.command().
		Format(opts.Selection).
		Output(opts.OutputTemplate)

	if opts.MergeContainer != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeContainer)
	}

	if opts.ExtractAudio {
		cmd = cmd.ExtractAudio().
			AudioFormat(opts.AudioFormat).
			AudioQuality(opts.AudioQuality)
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		d.log.ErrorContext(ctx, "ytdlp run",
			slog.Any("error", err),
			slog.String("selection", opts.Selection))

		return fmt.Errorf("%w: %w", errs.ErrExtraction, err)
	}

	d.log.DebugContext(ctx, "ytdlp run finished", slog.String("stdout", res.Stdout))

	return nil
}
