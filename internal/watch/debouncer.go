package watch

import (
	"context"
	"sync"
	"time"

	jerrors "github.com/jopsify/jopsify/internal/errors"
)

// Trigger describes one coalesced export request.
type Trigger struct {
	TriggeredAt  time.Time
	RequestCount int
	LastReason   string
	FirstRequest time.Time
	LastRequest  time.Time
	Cause        string // "quiet", "max_delay" or "after_running"
}

// DebouncerConfig configures change coalescing.
type DebouncerConfig struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration

	// CheckExportRunning reports whether an export is currently running.
	// When true the debouncer holds the trigger and schedules exactly
	// one follow-up export after the running one finishes.
	CheckExportRunning func() bool

	// PollInterval controls how often the debouncer polls for export
	// completion once it has detected a running export.
	PollInterval time.Duration
}

// Debouncer coalesces bursts of database change notifications into a
// single export trigger: a quiet window delays the trigger while
// changes keep arriving, and a max delay caps how long a steady stream
// of changes can postpone it.
//
// It is safe to run as a single goroutine; Notify may be called from
// any goroutine.
type Debouncer struct {
	cfg  DebouncerConfig
	emit func(ctx context.Context, t Trigger)

	notifyCh chan string

	mu              sync.Mutex
	pending         bool
	pendingAfterRun bool
	pollingAfterRun bool
	firstRequestAt  time.Time
	lastRequestAt   time.Time
	lastReason      string
	requestCount    int
}

// NewDebouncer validates the config and returns a debouncer that calls
// emit for every coalesced trigger.
func NewDebouncer(cfg DebouncerConfig, emit func(ctx context.Context, t Trigger)) (*Debouncer, error) {
	if emit == nil {
		return nil, jerrors.New(jerrors.CategoryValidation, jerrors.SeverityFatal, "emit callback is required")
	}
	if cfg.QuietWindow <= 0 {
		return nil, jerrors.New(jerrors.CategoryValidation, jerrors.SeverityFatal, "quiet window must be > 0")
	}
	if cfg.MaxDelay <= 0 {
		return nil, jerrors.New(jerrors.CategoryValidation, jerrors.SeverityFatal, "max delay must be > 0")
	}
	if cfg.CheckExportRunning == nil {
		cfg.CheckExportRunning = func() bool { return false }
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Debouncer{cfg: cfg, emit: emit, notifyCh: make(chan string, 64)}, nil
}

// Notify records one change. Never blocks; when the buffer is full the
// change is dropped, which is safe because a trigger is already due.
func (d *Debouncer) Notify(reason string) {
	select {
	case d.notifyCh <- reason:
	default:
	}
}

// Run processes notifications until the context is canceled.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()
	pollTimer := newStoppedTimer()

	var quietC, maxC, pollC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case reason := <-d.notifyCh:
			d.onNotify(reason)
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if d.firstOfBurst() {
				resetTimer(maxTimer, d.cfg.MaxDelay)
				maxC = maxTimer.C
			}

		case <-quietC:
			if d.tryEmit(ctx, "quiet") {
				quietC, maxC = nil, nil
			}

		case <-maxC:
			if d.tryEmit(ctx, "max_delay") {
				quietC, maxC = nil, nil
			}

		case <-pollC:
			if d.tryEmitAfterRunning(ctx) {
				pollC, quietC, maxC = nil, nil, nil
				continue
			}
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}

		if d.shouldPollAfterRun() && pollC == nil {
			resetTimer(pollTimer, d.cfg.PollInterval)
			pollC = pollTimer.C
		}
	}
}

func (d *Debouncer) onNotify(reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	if !d.pending {
		d.pending = true
		d.firstRequestAt = now
		d.requestCount = 0
	}
	d.lastRequestAt = now
	d.lastReason = reason
	d.requestCount++
}

func (d *Debouncer) firstOfBurst() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending && d.requestCount == 1
}

func (d *Debouncer) shouldPollAfterRun() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingAfterRun && !d.pollingAfterRun
}

func (d *Debouncer) tryEmit(ctx context.Context, cause string) bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return true
	}
	if d.cfg.CheckExportRunning() {
		d.pendingAfterRun = true
		d.mu.Unlock()
		return false
	}
	t := Trigger{
		TriggeredAt:  time.Now(),
		RequestCount: d.requestCount,
		LastReason:   d.lastReason,
		FirstRequest: d.firstRequestAt,
		LastRequest:  d.lastRequestAt,
		Cause:        cause,
	}
	d.pending = false
	d.pendingAfterRun = false
	d.pollingAfterRun = false
	d.mu.Unlock()

	d.emit(ctx, t)
	return true
}

func (d *Debouncer) tryEmitAfterRunning(ctx context.Context) bool {
	d.mu.Lock()
	if !d.pendingAfterRun {
		d.mu.Unlock()
		return true
	}
	d.pollingAfterRun = true
	d.mu.Unlock()

	if d.cfg.CheckExportRunning() {
		return false
	}
	return d.tryEmit(ctx, "after_running")
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
