package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/finder"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
)

// gatedRunner blocks each run until release receives or the run is canceled.
type gatedRunner struct {
	release  chan struct{}
	runs     atomic.Int32
	canceled atomic.Int32
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{release: make(chan struct{})}
}

func (r *gatedRunner) Run(ctx context.Context) (*finder.Stats, error) {
	r.runs.Add(1)
	select {
	case <-r.release:
		return &finder.Stats{}, nil
	case <-ctx.Done():
		r.canceled.Add(1)
		return &finder.Stats{}, ctx.Err()
	}
}

// wait blocks until the run in progress, if any, has ended.
func (m *Monitor) wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func setup(t *testing.T) (*Monitor, *worklist.SQLStore, *gatedRunner) {
	t.Helper()
	store, err := worklist.Open(context.Background(), worklist.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() }) //nolint:errcheck // test cleanup
	r := newGatedRunner()
	return New(store, r), store, r
}

func status(t *testing.T, s *worklist.SQLStore) string {
	t.Helper()
	_, st, err := s.Trigger(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func tick(t *testing.T, m *Monitor) {
	t.Helper()
	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
}

func TestStartThenStop(t *testing.T) {
	ctx := context.Background()
	m, store, r := setup(t)

	if err := store.SetTrigger(ctx, worklist.TriggerStart); err != nil {
		t.Fatal(err)
	}
	tick(t, m)
	if got := status(t, store); got != worklist.StateRunning {
		t.Errorf("status = %q, want Running", got)
	}

	// Unchanged trigger does not start a second run.
	tick(t, m)

	if err := store.SetTrigger(ctx, worklist.TriggerStop); err != nil {
		t.Fatal(err)
	}
	tick(t, m)
	if got := status(t, store); got != worklist.StateStopped {
		t.Errorf("status = %q, want Stopped", got)
	}
	if r.runs.Load() != 1 || r.canceled.Load() != 1 {
		t.Errorf("runs = %d, canceled = %d; want 1, 1", r.runs.Load(), r.canceled.Load())
	}

	tick(t, m)
	if got := status(t, store); got != worklist.StateStopped {
		t.Errorf("status after stop = %q, want Stopped to stay", got)
	}
}

func TestRunEndsWithTriggerStillStart(t *testing.T) {
	ctx := context.Background()
	m, store, r := setup(t)

	if err := store.SetTrigger(ctx, worklist.TriggerStart); err != nil {
		t.Fatal(err)
	}
	tick(t, m)
	r.release <- struct{}{}
	m.wait()

	tick(t, m)
	if got := status(t, store); got != worklist.StateRunning {
		t.Errorf("status = %q, want Running", got)
	}
	deadline := time.Now().Add(time.Second)
	for r.runs.Load() != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if r.runs.Load() != 2 {
		t.Errorf("runs = %d, want a restarted run", r.runs.Load())
	}

	// Trigger moves off Start while running: the run completes.
	if err := store.SetTrigger(ctx, "Pause"); err != nil {
		t.Fatal(err)
	}
	tick(t, m)
	r.release <- struct{}{}
	m.wait()
	tick(t, m)
	if got := status(t, store); got != worklist.StateCompleted {
		t.Errorf("status = %q, want Completed", got)
	}
}

func TestErrorStatusRepaired(t *testing.T) {
	tests := []struct {
		trigger string
		want    string
	}{
		{worklist.TriggerStop, worklist.StateStopped},
		{"", worklist.StateReady},
		{worklist.TriggerStart, worklist.StateRunning},
	}
	for _, tt := range tests {
		t.Run(tt.trigger, func(t *testing.T) {
			ctx := context.Background()
			m, store, r := setup(t)
			if err := store.SetTrigger(ctx, tt.trigger); err != nil {
				t.Fatal(err)
			}
			if err := store.SetTriggerStatus(ctx, "Error: quota exceeded"); err != nil {
				t.Fatal(err)
			}
			tick(t, m)
			if got := status(t, store); got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
			if tt.trigger == worklist.TriggerStart {
				m.mu.Lock()
				m.stopRun()
				m.mu.Unlock()
				if r.canceled.Load() != 1 {
					t.Error("run was not canceled")
				}
			}
		})
	}
}

func TestServe(t *testing.T) {
	m, store, r := setup(t)
	m.interval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	if err := store.SetTrigger(ctx, worklist.TriggerStart); err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() { errc <- m.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for r.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if r.runs.Load() == 0 {
		t.Fatal("Serve() never started a run")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
	if r.canceled.Load() != 1 {
		t.Errorf("canceled = %d, want the run canceled on shutdown", r.canceled.Load())
	}
}
