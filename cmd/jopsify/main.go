package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/jopsify/jopsify/internal/config"
	"github.com/jopsify/jopsify/internal/export"
	"github.com/jopsify/jopsify/internal/joplin"
	"github.com/jopsify/jopsify/internal/metrics"
	"github.com/jopsify/jopsify/internal/pipeline"
	"github.com/jopsify/jopsify/internal/version"
	"github.com/jopsify/jopsify/internal/watch"
	"github.com/jopsify/jopsify/internal/writer"
)

// Exit codes: 0 site exported, 3 nothing to do, 1 failure.
const exitNoOp = 3

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"jopsify.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Export struct {
		Force bool `short:"f" help:"Export even when the source is unchanged"`
	} `cmd:"" help:"Export the Joplin database to a docsify site"`

	Watch struct{} `cmd:"" help:"Keep the site in sync with the Joplin database"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print the version"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "export":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		code, err := runExport(context.Background(), cfg, CLI.Export.Force, metrics.NoopRecorder{})
		if err != nil {
			slog.Error("Export failed", "error", err)
			os.Exit(1)
		}
		os.Exit(code)
	case "watch":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runWatch(cfg); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration written", "path", CLI.Config)
	case "version":
		os.Stdout.WriteString(version.Version + "\n")
	}
}

// runExport performs one full export cycle and returns the process
// exit code: 0 when a site was written, exitNoOp when the source was
// unchanged.
func runExport(ctx context.Context, cfg *config.Config, force bool, rec metrics.Recorder) (int, error) {
	reader, err := joplin.Open(cfg.Joplin.DatabasePath())
	if err != nil {
		return 1, err
	}
	defer reader.Close()

	snap, err := reader.Snapshot(ctx, []string{cfg.Publish.PublicTag, cfg.Publish.HiddenTag})
	if err != nil {
		return 1, err
	}

	store := export.NewFingerprintStore(
		filepath.Join(cfg.Site.Output, ".jopsify", "fingerprint.json"))
	var prev *export.Fingerprint
	if !force {
		prev, err = store.Load()
		if err != nil {
			return 1, err
		}
	}

	start := time.Now()
	res, err := pipeline.Run(ctx, cfg, snap, prev, rec)
	if err != nil {
		rec.IncExportOutcome(metrics.OutcomeFailed)
		return 1, err
	}
	if res.NoOp {
		rec.IncExportOutcome(metrics.OutcomeNoOp)
		slog.Info("Source unchanged, nothing to export")
		return exitNoOp, nil
	}

	for _, w := range res.Warnings {
		slog.Warn(w.Message, "category", w.Category)
	}

	if err := writer.New(cfg.Site.Output).Write(ctx, res.Manifest, cfg.Site.IconDir); err != nil {
		rec.IncExportOutcome(metrics.OutcomeFailed)
		return 1, err
	}
	if err := store.Save(res.Fingerprint); err != nil {
		rec.IncExportOutcome(metrics.OutcomeFailed)
		return 1, err
	}
	rec.ObserveExportDuration(time.Since(start))
	if len(res.Warnings) > 0 {
		rec.IncExportOutcome(metrics.OutcomeWarning)
	} else {
		rec.IncExportOutcome(metrics.OutcomeSuccess)
	}

	slog.Info("Site exported",
		"output", cfg.Site.Output,
		"notebooks", res.Stats.Notebooks,
		"notes", res.Stats.Notes,
		"resources", res.Stats.Resources,
		"broken_links", res.Stats.BrokenLinks,
		"warnings", len(res.Warnings),
		"duration", time.Since(start).Round(time.Millisecond))
	return 0, nil
}

func runWatch(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Watch.MetricsListen != "" {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(reg))
		srv := &http.Server{
			Addr:              cfg.Watch.MetricsListen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Metrics endpoint listening", "addr", cfg.Watch.MetricsListen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics endpoint failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	svc, err := watch.NewService(cfg.Joplin.Dir, cfg.Watch, func(ctx context.Context, reason string) error {
		slog.Info("Starting export", "reason", reason)
		_, err := runExport(ctx, cfg, false, rec)
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("Watch mode started, waiting for changes...")
	return svc.Run(ctx)
}
