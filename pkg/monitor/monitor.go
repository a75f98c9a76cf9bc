// Package monitor starts and stops finder runs from the trigger state kept in
// the worklist store, polling it on a cron schedule.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/igfinder/pkg/finder"
	"github.com/codeGROOVE-dev/igfinder/pkg/worklist"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is the trigger polling period.
const DefaultInterval = 15 * time.Second

// Runner runs one batch.
type Runner interface {
	Run(ctx context.Context) (*finder.Stats, error)
}

// Trigger is the part of the worklist store the monitor reads and writes.
type Trigger interface {
	Trigger(ctx context.Context) (value, status string, err error)
	SetTriggerStatus(ctx context.Context, status string) error
}

// Monitor reacts to trigger changes.
type Monitor struct {
	store    Trigger
	runner   Runner
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	last     string
	interval time.Duration
	mu       sync.Mutex
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithInterval sets the polling period (default 15s).
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New creates a Monitor.
func New(store Trigger, runner Runner, opts ...Option) *Monitor {
	m := &Monitor{store: store, runner: runner, logger: slog.Default(), interval: DefaultInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Serve marks the monitor Ready and polls the trigger until ctx is done. A run
// in progress is canceled on return.
func (m *Monitor) Serve(ctx context.Context) error {
	if err := m.store.SetTriggerStatus(ctx, worklist.StateReady); err != nil {
		return fmt.Errorf("set ready: %w", err)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	sched := "@every " + m.interval.String()
	if _, err := c.AddFunc(sched, func() {
		if err := m.Tick(ctx); err != nil {
			m.logger.WarnContext(ctx, "trigger poll failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", sched, err)
	}

	m.logger.InfoContext(ctx, "monitoring trigger", "interval", m.interval)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	m.mu.Lock()
	m.stopRun()
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "monitor stopped")
	return nil
}

// Tick polls the trigger once and applies its state.
func (m *Monitor) Tick(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, status, err := m.store.Trigger(ctx)
	if err != nil {
		return err
	}

	if strings.Contains(status, worklist.StateError) {
		repaired := worklist.StateReady
		if value == worklist.TriggerStart {
			repaired = worklist.StateRunning
		}
		m.logger.InfoContext(ctx, "repairing error status", "status", status, "to", repaired)
		if err := m.store.SetTriggerStatus(ctx, repaired); err != nil {
			return err
		}
	}

	if value != m.last {
		m.logger.InfoContext(ctx, "trigger changed", "from", m.last, "to", value)
		m.last = value
		switch value {
		case worklist.TriggerStart:
			if err := m.store.SetTriggerStatus(ctx, worklist.StateRunning); err != nil {
				return err
			}
			m.startRun(ctx)
		case worklist.TriggerStop:
			if err := m.store.SetTriggerStatus(ctx, worklist.StateStopped); err != nil {
				return err
			}
			m.stopRun()
		}
	}

	if m.finished() {
		m.cancel()
		m.cancel, m.done = nil, nil
		if m.last == worklist.TriggerStart {
			m.logger.InfoContext(ctx, "run ended with trigger still on Start, restarting")
			if err := m.store.SetTriggerStatus(ctx, worklist.StateRunning); err != nil {
				return err
			}
			m.startRun(ctx)
		} else if err := m.store.SetTriggerStatus(ctx, worklist.StateCompleted); err != nil {
			return err
		}
	}
	return nil
}

// startRun launches a run unless one is in progress. Callers hold mu.
func (m *Monitor) startRun(ctx context.Context) {
	if m.done != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done

	go func() {
		defer close(done)
		stats, err := m.runner.Run(runCtx)
		if err != nil {
			m.logger.WarnContext(runCtx, "run ended with error", "error", err)
			return
		}
		m.logger.InfoContext(runCtx, "run ended", "people", stats.People, "matches", stats.Matches)
	}()
}

// stopRun cancels the run in progress and waits for it. Callers hold mu.
func (m *Monitor) stopRun() {
	if m.done == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel, m.done = nil, nil
}

// finished reports whether a run was started and has ended. Callers hold mu.
func (m *Monitor) finished() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}
