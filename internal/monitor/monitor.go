// Package monitor polls a workflow until it finishes, fails, or the
// monitoring window closes, printing human-readable progress along the way.
package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/petloan/dspactl/internal/core"
	"github.com/petloan/dspactl/internal/logging"
)

// SnapshotSource produces point-in-time workflow reads.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*core.WorkflowSnapshot, error)
}

// ActivityProbe supplies an extra liveness signal alongside the workflow
// status, such as the number of PyTorchJobs currently running.
type ActivityProbe interface {
	TrainingJobs(ctx context.Context) (int, error)
}

// Config tunes the polling loop.
type Config struct {
	// Interval between checks.
	Interval time.Duration
	// MaxDuration bounds the whole monitoring session.
	MaxDuration time.Duration
	// HeartbeatEvery forces a status print every N checks even when
	// nothing changed. 6 checks at a 10 minute interval is one hour.
	HeartbeatEvery int
}

// Outcome is the final result of a monitoring session.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeTimeout
)

// Monitor drives the polling loop.
type Monitor struct {
	source SnapshotSource
	probe  ActivityProbe
	cfg    Config
	render *Renderer
	log    *logging.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithActivityProbe adds a training-job liveness probe.
func WithActivityProbe(p ActivityProbe) Option {
	return func(m *Monitor) { m.probe = p }
}

// WithOutput redirects the rendered status output.
func WithOutput(w io.Writer) Option {
	return func(m *Monitor) { m.render = NewRenderer(w) }
}

// WithRenderer replaces the status renderer, for plain or custom output.
func WithRenderer(r *Renderer) Option {
	return func(m *Monitor) { m.render = r }
}

// WithClock injects time for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) {
		m.now = now
		m.sleep = sleep
	}
}

// New creates a Monitor over a snapshot source.
func New(source SnapshotSource, cfg Config, log *logging.Logger, opts ...Option) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 24 * time.Hour
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = 6
	}

	m := &Monitor{
		source: source,
		cfg:    cfg,
		render: NewRenderer(os.Stdout),
		log:    log,
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run polls until the workflow reaches a terminal phase, a node fails, or
// the window expires. A read error on one tick never aborts the loop; the
// next tick simply retries. The returned error maps onto the process exit
// code: nil for success, an execution error for failure, a timeout error
// when the window closes first.
func (m *Monitor) Run(ctx context.Context, name string) (Outcome, error) {
	m.render.Header(name, m.cfg.Interval, m.cfg.MaxDuration)

	deadline := m.now().Add(m.cfg.MaxDuration)
	lastPercent := -1

	for iteration := 1; ; iteration++ {
		if !m.now().Before(deadline) {
			m.render.Timeout(m.cfg.MaxDuration)
			return OutcomeTimeout, core.ErrTimeout(
				fmt.Sprintf("workflow %s still not finished after %s", name, core.FormatDuration(m.cfg.MaxDuration)))
		}

		snapshot, err := m.source.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeTimeout, core.ErrTimeout("monitoring cancelled")
			}
			m.log.Warn("status check failed, retrying next interval", "workflow", name, "error", err)
			if sleepErr := m.sleep(ctx, m.cfg.Interval); sleepErr != nil {
				return OutcomeTimeout, core.ErrTimeout("monitoring cancelled")
			}
			continue
		}

		summary := core.Summarize(snapshot)

		shouldPrint := summary.Percent != lastPercent ||
			iteration%m.cfg.HeartbeatEvery == 1 ||
			summary.Failed > 0 ||
			snapshot.Phase.Terminal()

		if shouldPrint {
			jobs := -1
			if m.probe != nil {
				if n, probeErr := m.probe.TrainingJobs(ctx); probeErr == nil {
					jobs = n
				}
			}
			m.render.Update(iteration, m.now(), snapshot, summary, jobs)
			lastPercent = summary.Percent
		}

		if summary.Failed > 0 {
			m.render.Failed(snapshot, summary)
			return OutcomeFailed, core.ErrExecution(core.CodeRunFailed,
				fmt.Sprintf("workflow %s has %d failed steps", name, summary.Failed))
		}

		switch {
		case snapshot.Phase == core.WorkflowSucceeded:
			m.render.Succeeded(snapshot, summary)
			return OutcomeSucceeded, nil
		case snapshot.Phase.Failure():
			m.render.Failed(snapshot, summary)
			return OutcomeFailed, core.ErrExecution(core.CodeRunFailed,
				fmt.Sprintf("workflow %s finished with phase %s", name, snapshot.Phase))
		}

		if shouldPrint {
			m.render.NextCheck(m.now().Add(m.cfg.Interval))
		}
		if err := m.sleep(ctx, m.cfg.Interval); err != nil {
			return OutcomeTimeout, core.ErrTimeout("monitoring cancelled")
		}
	}
}
