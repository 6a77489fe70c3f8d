package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/seojun-park/kisbot/internal/domain"
)

// MinInterval is the smallest accepted run interval. Anything faster would
// hammer the brokerage API for no benefit.
const MinInterval = 10 * time.Second

const (
	ModeInterval = "interval"
	ModeDaily    = "daily"
)

// Runner executes one trading run. Implemented by engine.Engine.
type Runner interface {
	RunOnce(ctx context.Context) (domain.RunReport, error)
}

// Scheduler triggers recurring trading runs, either every fixed interval or
// once a day at a fixed local time. At most one schedule is installed at a
// time; starting while running replaces the previous schedule.
type Scheduler struct {
	runner   Runner
	loc      *time.Location
	notifier domain.Notifier // may be nil
	logger   *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	mode     string
	interval time.Duration
	at       string
}

// New creates a Scheduler that evaluates daily schedules in loc. notifier
// receives scheduler_started and scheduler_stopped events; nil disables them.
func New(runner Runner, loc *time.Location, notifier domain.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		loc:      loc,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// StartInterval installs a schedule that runs every interval. Intervals
// below MinInterval are rejected.
func (s *Scheduler) StartInterval(interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("%w: interval %s below minimum %s", domain.ErrValidation, interval, MinInterval)
	}
	return s.install(ModeInterval, fmt.Sprintf("@every %s", interval), interval, "")
}

// StartDaily installs a schedule that runs once a day at the given local
// time, formatted "HH:MM".
func (s *Scheduler) StartDaily(at string) error {
	parsed, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("%w: daily time %q must be HH:MM", domain.ErrValidation, at)
	}
	spec := fmt.Sprintf("%d %d * * *", parsed.Minute(), parsed.Hour())
	return s.install(ModeDaily, spec, 0, at)
}

// install replaces any existing schedule with the given cron spec.
func (s *Scheduler) install(mode, spec string, interval time.Duration, at string) error {
	s.mu.Lock()

	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}

	c := cron.New(cron.WithLocation(s.loc))
	id, err := c.AddFunc(spec, s.run)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("install schedule %q: %w", spec, err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.mode = mode
	s.interval = interval
	s.at = at
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		slog.String("mode", mode),
		slog.String("spec", spec),
	)

	fields := map[string]string{"mode": mode}
	if mode == ModeInterval {
		fields["interval"] = interval.String()
	} else {
		fields["at"] = at
	}
	s.notify("scheduler_started", fields)
	return nil
}

// Stop removes the schedule. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cron == nil {
		s.mu.Unlock()
		return
	}
	stopped := s.mode
	s.cron.Stop()
	s.cron = nil
	s.mode = ""
	s.interval = 0
	s.at = ""
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
	s.notify("scheduler_stopped", map[string]string{"mode": stopped})
}

// notify emits a scheduler lifecycle event. Notification failures are logged,
// never propagated.
func (s *Scheduler) notify(event string, fields map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.Background(), event, fields); err != nil {
		s.logger.Warn("scheduler notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Status returns a snapshot of the installed schedule.
func (s *Scheduler) Status() domain.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.SchedulerStatus{Running: s.cron != nil, Mode: s.mode, At: s.at}
	if s.interval > 0 {
		st.Interval = s.interval.String()
	}
	if s.cron != nil {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	return st
}

// run is the cron callback. A run already in flight or a closed market is a
// skip, not a failure.
func (s *Scheduler) run() {
	report, err := s.runner.RunOnce(context.Background())
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.logger.Warn("scheduled run skipped, previous run still in progress")
	case errors.Is(err, domain.ErrMarketClosed):
		s.logger.Debug("scheduled run skipped, market closed")
	case err != nil:
		s.logger.Error("scheduled run failed", slog.String("error", err.Error()))
	default:
		s.logger.Info("scheduled run complete",
			slog.Int("signals", len(report.Signals)),
			slog.Int("errors", len(report.Errors)),
		)
	}
}
