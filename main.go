// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"tubefetch/internal/config"
	"tubefetch/internal/depmanager"
	"tubefetch/internal/engine"
	httprouter "tubefetch/internal/infrastructure/delivery/http"
	"tubefetch/internal/observability"
	"tubefetch/internal/service"
	"tubefetch/internal/workspace"
	httpserver "tubefetch/pkg/http/server"
	"tubefetch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
		Debug:     cfg.App.Debug,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	depMgr := depmanager.New(log, cfg)

	log.InfoContext(ctx, "resolving yt-dlp and ffmpeg binaries. a first run may download them...")

	if err := depMgr.Ensure(ctx); err != nil {
		log.ErrorContext(ctx, "resolve binaries", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	workspaces, err := workspace.New(log, cfg.Dir.Downloads)
	if err != nil {
		log.ErrorContext(ctx, "workspace manager", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	go workspaces.Sweep(ctx, cfg.Retention, metrics)

	eng := engine.NewYTdlp(log, cfg,
		depMgr.Path(depmanager.BinaryYTdlp),
		depMgr.Path(depmanager.BinaryFFmpeg))

	svc := service.New(cfg, log, eng, workspaces, metrics)

	router := httprouter.New(log, svc, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Addr(),
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "tubefetch started",
		slog.String("addr", cfg.HTTP.Addr()),
		slog.String("downloads", cfg.Dir.Downloads))

	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.Error("http server", slog.Any("error", err))
	}

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "tubefetch shut down gracefully")
}
