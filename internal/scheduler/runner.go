package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner invokes ProcessDue on a cron schedule. Overlapping scans are skipped.
type Runner struct {
	cron    *cron.Cron
	sys     System
	spec    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner for spec, which accepts standard five-field
// expressions and descriptors such as "@every 5m". timeout bounds each scan
// when positive.
func NewRunner(sys System, spec string, timeout time.Duration, logger *slog.Logger) (*Runner, error) {
	logger = logger.With("system", "scheduler-runner")

	r := &Runner{
		sys:     sys,
		spec:    spec,
		timeout: timeout,
		logger:  logger,
	}

	cl := cronLogger{logger}
	r.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := r.cron.AddFunc(spec, r.tick); err != nil {
		return nil, fmt.Errorf("invalid scheduler cron %q: %w", spec, err)
	}

	return r, nil
}

// Start begins the cron loop in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("scheduler runner started", "cron", r.spec)
}

// Stop halts the schedule and waits for a running scan until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("scheduler runner stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler runner stop: %w", ctx.Err())
	}
}

// Next returns the next activation time, or the zero time before Start.
func (r *Runner) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (r *Runner) tick() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	summary := r.sys.ProcessDue(ctx)
	if len(summary.Failures) > 0 {
		r.logger.Warn("scheduled scan had failures", "failures", len(summary.Failures))
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
