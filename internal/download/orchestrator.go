// Package download orchestrates engine invocations and artifact discovery.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tubefetch/internal/consts"
	"tubefetch/internal/engine"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/quality"
	"tubefetch/internal/workspace"
	"tubefetch/pkg/logger"
)

// fallbackExts is the ordered list of common media extensions tried when no
// file matches the requested container.
var fallbackExts = []string{"mp4", "webm", "mkv", "avi", "mov"}

// Orchestrator invokes the extraction engine and locates its output. The
// engine does not report the final path, so the workspace is searched after
// the run.
type Orchestrator struct {
	log    *slog.Logger
	engine engine.Engine
}

// New creates an orchestrator on top of the given engine.
func New(log *slog.Logger, eng engine.Engine) *Orchestrator {
	return &Orchestrator{
		log:    logger.Pkg(log, "download"),
		engine: eng,
	}
}

// Run downloads the resolved selection into ws and returns the discovered
// artifact. The caller owns workspace release on every path.
func (o *Orchestrator) Run(ctx context.Context,
	url, selection, container string,
	ws *workspace.Handle,
) (*entity.Artifact, error) {
	opts := engine.FetchOptions{
		Selection:      selection,
		OutputTemplate: filepath.Join(ws.Path, consts.OutputTemplate),
	}

	switch container {
	case consts.FormatMP3:
		opts.ExtractAudio = true
		opts.AudioFormat = consts.AudioCodecMP3
		opts.AudioQuality = consts.AudioQuality192K
	case consts.FormatMP4:
		if quality.Combines(selection) {
			opts.MergeContainer = consts.FormatMP4
		}
	}

	if err := o.engine.Fetch(ctx, url, opts); err != nil {
		return nil, err
	}

	path, err := discover(ws.Path, container)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	artifact := &entity.Artifact{
		Path:        path,
		Filename:    filepath.Base(path),
		ContentType: ContentType(path),
		Size:        info.Size(),
	}

	o.log.InfoContext(ctx, "artifact discovered",
		slog.String("workspace_id", ws.ID),
		slog.Any("artifact", artifact))

	return artifact, nil
}

// discover searches the workspace for the downloaded file: first by the
// requested container extension, then the common media extensions, then any
// regular file. When several candidates remain the most recently modified
// one wins; the engine's last-written file is the best heuristic available.
func discover(dir, container string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read workspace: %w", err)
	}

	var files []os.DirEntry
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry)
		}
	}

	candidates := byExt(files, container)

	if len(candidates) == 0 {
		exts := fallbackExts
		if container == consts.FormatMP3 {
			exts = append([]string{consts.FormatMP3}, exts...)
		}

		for _, ext := range exts {
			if candidates = byExt(files, ext); len(candidates) != 0 {
				break
			}
		}
	}

	if len(candidates) == 0 {
		candidates = files
	}

	if len(candidates) == 0 {
		return "", errs.ErrArtifactNotFound
	}

	newest, err := newestEntry(candidates)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, newest), nil
}

func byExt(files []os.DirEntry, ext string) []os.DirEntry {
	suffix := "." + strings.ToLower(ext)

	var matched []os.DirEntry
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Name()), suffix) {
			matched = append(matched, f)
		}
	}

	return matched
}

func newestEntry(files []os.DirEntry) (string, error) {
	var (
		name   string
		latest int64 = -1
	)

	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			return "", fmt.Errorf("stat candidate: %w", err)
		}

		if ts := info.ModTime().UnixNano(); ts > latest {
			latest = ts
			name = f.Name()
		}
	}

	return name, nil
}

// ContentType derives the response content type from the artifact extension.
func ContentType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case consts.FormatMP4:
		return "video/mp4"
	case consts.FormatMP3:
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
