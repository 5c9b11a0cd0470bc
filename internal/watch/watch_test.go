package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jopsify/jopsify/internal/config"
)

func serviceTestConfig() config.WatchConfig {
	return config.WatchConfig{
		QuietWindow: 50 * time.Millisecond,
		MaxDelay:    time.Second,
	}
}

func collectTriggers() (chan Trigger, func(ctx context.Context, t Trigger)) {
	ch := make(chan Trigger, 16)
	return ch, func(_ context.Context, t Trigger) { ch <- t }
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	ch, emit := collectTriggers()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 50 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}, emit)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify("database.sqlite-wal")
	d.Notify("database.sqlite-wal")
	d.Notify("database.sqlite")

	select {
	case trig := <-ch:
		assert.Equal(t, 3, trig.RequestCount)
		assert.Equal(t, "quiet", trig.Cause)
		assert.Equal(t, "database.sqlite", trig.LastReason)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a coalesced trigger")
	}

	select {
	case trig := <-ch:
		t.Fatalf("unexpected second trigger: %+v", trig)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerMaxDelayCapsPostponement(t *testing.T) {
	ch, emit := collectTriggers()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 100 * time.Millisecond,
		MaxDelay:    300 * time.Millisecond,
	}, emit)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	// A steady stream of changes keeps resetting the quiet window.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.Notify("database.sqlite-wal")
			}
		}
	}()
	defer close(stop)

	select {
	case trig := <-ch:
		assert.Equal(t, "max_delay", trig.Cause)
		assert.GreaterOrEqual(t, trig.RequestCount, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a max-delay trigger despite continuous changes")
	}
}

func TestDebouncerQueuesOneFollowUpWhileRunning(t *testing.T) {
	var running atomic.Bool
	running.Store(true)

	ch, emit := collectTriggers()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow:        30 * time.Millisecond,
		MaxDelay:           5 * time.Second,
		CheckExportRunning: running.Load,
		PollInterval:       20 * time.Millisecond,
	}, emit)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Notify("database.sqlite")

	select {
	case trig := <-ch:
		t.Fatalf("trigger emitted while export running: %+v", trig)
	case <-time.After(150 * time.Millisecond):
	}

	running.Store(false)
	select {
	case trig := <-ch:
		assert.Equal(t, "after_running", trig.Cause)
	case <-time.After(2 * time.Second):
		t.Fatal("expected follow-up trigger after export finished")
	}
}

func TestIsDatabaseFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"/profile/database.sqlite", true},
		{"/profile/database.sqlite-wal", true},
		{"/profile/database.sqlite-shm", true},
		{"/profile/settings.json", false},
		{"/profile/resources/aaaa.png", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isDatabaseFile(tc.name), tc.name)
	}
}

func TestDatabaseWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	ch, emit := collectTriggers()
	d, err := NewDebouncer(DebouncerConfig{
		QuietWindow: 50 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}, emit)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	w, err := NewDatabaseWatcher(dir, d)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "database.sqlite"), []byte("x"), 0o600))

	select {
	case trig := <-ch:
		assert.Equal(t, "database.sqlite", trig.LastReason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected trigger from database write")
	}
}

func TestServiceRunsStartupExport(t *testing.T) {
	dir := t.TempDir()
	ran := make(chan string, 4)
	svc, err := NewService(dir, serviceTestConfig(), func(_ context.Context, reason string) error {
		ran <- reason
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	select {
	case reason := <-ran:
		assert.Equal(t, "startup", reason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected startup export")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop on cancel")
	}
}
