// Package service composes the download session lifecycle: workspace
// allocation, quality resolution, engine invocation, artifact discovery and
// guaranteed cleanup on failure.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"tubefetch/internal/config"
	"tubefetch/internal/download"
	"tubefetch/internal/engine"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/observability"
	"tubefetch/internal/quality"
	"tubefetch/internal/workspace"
	"tubefetch/pkg/logger"
	"tubefetch/pkg/urls"
)

// Service handles format listing and download requests.
type Service struct {
	log        *slog.Logger
	cfg        *config.Config
	engine     engine.Engine
	orch       *download.Orchestrator
	workspaces *workspace.Manager
	metrics    *observability.Metrics

	// sem bounds concurrent engine invocations; the engine call is
	// blocking and can run for minutes.
	sem chan struct{}
}

// New creates the service.
func New(cfg *config.Config,
	log *slog.Logger,
	eng engine.Engine,
	workspaces *workspace.Manager,
	metrics *observability.Metrics,
) *Service {
	maxConcurrent := cfg.Download.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Service{
		log:        logger.Pkg(log, "service"),
		cfg:        cfg,
		engine:     eng,
		orch:       download.New(log, eng),
		workspaces: workspaces,
		metrics:    metrics,
		sem:        make(chan struct{}, maxConcurrent),
	}
}

// Formats lists the available encodings for a URL. Read-only: no workspace
// is involved and nothing is cached between requests.
func (s *Service) Formats(ctx context.Context, rawURL string) ([]entity.CapabilityEntry, error) {
	entries, err := s.engine.Probe(ctx, urls.Normalize(rawURL))
	if err != nil {
		s.metrics.RecordProbe("error")

		return nil, err
	}

	s.metrics.RecordProbe("success")

	return entries, nil
}

// Download resolves the quality token, runs the engine inside a fresh
// workspace and returns the discovered artifact together with a release
// function the caller must invoke once the response is sent. On any other
// exit, error or panic, the workspace is released before Download unwinds.
func (s *Service) Download(ctx context.Context,
	rawURL, qualityToken, format string,
) (*entity.Artifact, func(), error) {
	url := urls.Normalize(rawURL)

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("download canceled: %w", err)
	}

	// Admission is non-blocking: a request arriving with every slot busy is
	// rejected immediately instead of queueing behind downloads that can run
	// for minutes.
	select {
	case s.sem <- struct{}{}:
	default:
		return nil, nil, fmt.Errorf("%w: limit %d", errs.ErrTooManyDownloads, cap(s.sem))
	}
	defer func() { <-s.sem }()

	ws, err := s.workspaces.Allocate()
	if err != nil {
		return nil, nil, err
	}

	// One deferred release covers every exit: error returns and panics
	// unwinding out of the engine tear the workspace down with the request.
	// Only a successful return hands ownership to the caller.
	handedOff := false
	defer func() {
		if !handedOff {
			ws.Release()
		}
	}()

	s.metrics.RecordWorkspaceAllocated()

	log := s.log.With(slog.String("workspace_id", ws.ID))

	selection, err := s.resolveSelection(ctx, url, qualityToken)
	if err != nil {
		return nil, nil, err
	}

	log.InfoContext(ctx, "starting download",
		slog.String("url", url),
		slog.String("selection", selection),
		slog.String("format", format))

	dctx, cancel := context.WithTimeout(ctx, s.cfg.Download.Timeout)
	defer cancel()

	stop := s.metrics.DownloadTimer()
	defer stop()

	artifact, err := s.orch.Run(dctx, url, selection, format, ws)
	if err != nil {
		s.metrics.RecordDownload(format, "error")

		return nil, nil, err
	}

	s.metrics.RecordDownload(format, "success")

	handedOff = true

	return artifact, ws.Release, nil
}

// resolveSelection maps the quality token to a format selection expression.
// The capability list is fetched lazily: only when the token is neither a
// canonical name nor a height pattern does the engine get probed for raw
// format ids.
func (s *Service) resolveSelection(ctx context.Context, url, token string) (string, error) {
	if expr, ok := quality.ResolveStatic(token); ok {
		return expr, nil
	}

	entries, err := s.engine.Probe(ctx, url)
	if err != nil {
		return "", err
	}

	return quality.Resolve(token, engine.FormatIDs(entries))
}
