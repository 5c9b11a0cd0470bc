package watch

import (
	"context"
	"sync/atomic"

	"github.com/go-co-op/gocron/v2"

	"github.com/jopsify/jopsify/internal/config"
	jerrors "github.com/jopsify/jopsify/internal/errors"
	"github.com/jopsify/jopsify/internal/observability"
)

// Runner executes one export. Called sequentially, never concurrently.
type Runner func(ctx context.Context, reason string) error

// Service ties the database watcher, the debouncer and the periodic
// safety-net job together and drives the Runner.
type Service struct {
	profileDir string
	cfg        config.WatchConfig
	run        Runner

	running atomic.Bool
}

// NewService creates the watch service. The runner is invoked once at
// startup and again for every coalesced change trigger.
func NewService(profileDir string, cfg config.WatchConfig, run Runner) (*Service, error) {
	if run == nil {
		return nil, jerrors.New(jerrors.CategoryValidation, jerrors.SeverityFatal, "runner is required")
	}
	return &Service{profileDir: profileDir, cfg: cfg, run: run}, nil
}

// Run blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	deb, err := NewDebouncer(DebouncerConfig{
		QuietWindow:        s.cfg.QuietWindow,
		MaxDelay:           s.cfg.MaxDelay,
		CheckExportRunning: s.running.Load,
	}, func(ctx context.Context, t Trigger) {
		observability.Info(ctx, "change trigger",
			"cause", t.Cause, "requests", t.RequestCount, "last_reason", t.LastReason)
		s.execute(ctx, "change:"+t.LastReason)
	})
	if err != nil {
		return err
	}

	watcher, err := NewDatabaseWatcher(s.profileDir, deb)
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	var scheduler gocron.Scheduler
	if s.cfg.Interval > 0 {
		scheduler, err = gocron.NewScheduler()
		if err != nil {
			return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "create scheduler")
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(s.cfg.Interval),
			gocron.NewTask(func() { deb.Notify("interval") }),
			gocron.WithName("periodic-export"),
		)
		if err != nil {
			return jerrors.Wrap(err, jerrors.CategoryInternal, jerrors.SeverityFatal, "schedule periodic export")
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		observability.Info(ctx, "periodic export enabled", "interval", s.cfg.Interval)
	}

	go deb.Run(ctx)

	// Initial export so a freshly started watcher serves current content.
	s.execute(ctx, "startup")

	<-ctx.Done()
	return nil
}

func (s *Service) execute(ctx context.Context, reason string) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	if err := s.run(ctx, reason); err != nil {
		observability.Error(ctx, "export failed", "reason", reason, "error", err)
	}
}
