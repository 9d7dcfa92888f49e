package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/estatehub/backend/internal/domain/reconciliation"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PassRunner runs reconciliation passes. The scheduler and manual triggers
// share it.
type PassRunner interface {
	RunDailyReconciliation(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error)
	RunMonthlyRevenueReconciliation(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error)
	RunFullHistoricalBacklog(ctx context.Context, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error)
	IsRunning(kind reconciliation.Kind) bool
}

// ReconciliationSchedulerConfig holds cadence settings
type ReconciliationSchedulerConfig struct {
	Enabled bool
	// Standard 5-field cron expressions
	DailySchedule   string
	MonthlySchedule string
	Location        *time.Location
}

// DefaultReconciliationSchedulerConfig returns default configuration
func DefaultReconciliationSchedulerConfig() ReconciliationSchedulerConfig {
	return ReconciliationSchedulerConfig{
		Enabled:         true,
		DailySchedule:   "0 2 * * *",
		MonthlySchedule: "0 3 1 * *",
		Location:        time.UTC,
	}
}

// JobStatus describes one scheduled pass
type JobStatus struct {
	Kind     reconciliation.Kind `json:"kind"`
	Schedule string              `json:"schedule"`
	NextRun  *time.Time          `json:"next_run,omitempty"`
	PrevRun  *time.Time          `json:"prev_run,omitempty"`
	Running  bool                `json:"running"`
}

// Status is a snapshot of the scheduler
type Status struct {
	Enabled bool        `json:"enabled"`
	Started bool        `json:"started"`
	Jobs    []JobStatus `json:"jobs"`
}

// ReconciliationScheduler fires the daily and monthly passes on their cron
// cadences. The historical backlog only runs on demand.
type ReconciliationScheduler struct {
	config ReconciliationSchedulerConfig
	runner PassRunner
	logger *zap.Logger

	cron      *cron.Cron
	entries   map[reconciliation.Kind]cron.EntryID
	schedules map[reconciliation.Kind]string
	cancel    context.CancelFunc
	ctx       context.Context
	mu        sync.Mutex
	isRunning bool
}

// NewReconciliationScheduler validates the cron expressions and creates a scheduler
func NewReconciliationScheduler(config ReconciliationSchedulerConfig, runner PassRunner, logger *zap.Logger) (*ReconciliationScheduler, error) {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	schedules := map[reconciliation.Kind]string{
		reconciliation.KindDaily:          config.DailySchedule,
		reconciliation.KindMonthlyRevenue: config.MonthlySchedule,
	}
	for kind, spec := range schedules {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("%w: %s schedule %q: %v", ErrInvalidConfig, kind, spec, err)
		}
	}

	return &ReconciliationScheduler{
		config:    config,
		runner:    runner,
		logger:    logger,
		schedules: schedules,
		entries:   make(map[reconciliation.Kind]cron.EntryID, len(schedules)),
	}, nil
}

// Start registers the cron jobs and starts the cron loop
func (s *ReconciliationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Reconciliation scheduler is disabled")
		return nil
	}

	cronLogger := &zapCronLogger{logger: s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, kind := range []reconciliation.Kind{reconciliation.KindDaily, reconciliation.KindMonthlyRevenue} {
		id, err := c.AddFunc(s.schedules[kind], func() {
			s.execute(kind)
		})
		if err != nil {
			s.cancel()
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, kind, err)
		}
		s.entries[kind] = id
	}

	c.Start()
	s.cron = c
	s.isRunning = true

	s.logger.Info("Reconciliation scheduler started",
		zap.String("daily_schedule", s.config.DailySchedule),
		zap.String("monthly_schedule", s.config.MonthlySchedule),
		zap.String("location", s.config.Location.String()),
	)
	return nil
}

// Stop stops firing new jobs and waits for running ones until ctx ends
func (s *ReconciliationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	c := s.cron
	s.mu.Unlock()

	done := c.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.logger.Info("Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		// cancel in-flight passes; finished items stay written
		s.cancel()
		s.logger.Warn("Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ReconciliationScheduler) execute(kind reconciliation.Kind) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	summary, err := s.run(ctx, kind, reconciliation.TriggerCron)
	switch {
	case errors.Is(err, reconciliation.ErrPassInProgress):
		s.logger.Info("Scheduled pass skipped, previous run still active", zap.String("kind", string(kind)))
	case err != nil:
		s.logger.Error("Scheduled pass failed", zap.String("kind", string(kind)), zap.Error(err))
	default:
		s.logger.Info("Scheduled pass finished",
			zap.String("kind", string(kind)),
			zap.String("state", string(summary.State)),
			zap.Int("errors", len(summary.Errors)))
	}
}

func (s *ReconciliationScheduler) run(ctx context.Context, kind reconciliation.Kind, trigger reconciliation.Trigger) (*reconciliation.PassSummary, error) {
	switch kind {
	case reconciliation.KindDaily:
		return s.runner.RunDailyReconciliation(ctx, trigger)
	case reconciliation.KindMonthlyRevenue:
		return s.runner.RunMonthlyRevenueReconciliation(ctx, trigger)
	case reconciliation.KindBacklog:
		return s.runner.RunFullHistoricalBacklog(ctx, trigger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPass, kind)
}

// TriggerManual runs kind now, synchronously, through the same code path as
// the cron jobs. It does not require the cron loop to be started.
func (s *ReconciliationScheduler) TriggerManual(ctx context.Context, kind reconciliation.Kind) (*reconciliation.PassSummary, error) {
	s.logger.Info("Manual pass triggered", zap.String("kind", string(kind)))
	return s.run(ctx, kind, reconciliation.TriggerManual)
}

// GetStatus returns the scheduled jobs with their next and previous fire times
func (s *ReconciliationScheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Enabled: s.config.Enabled, Started: s.isRunning, Jobs: []JobStatus{}}
	for _, kind := range []reconciliation.Kind{reconciliation.KindDaily, reconciliation.KindMonthlyRevenue, reconciliation.KindBacklog} {
		js := JobStatus{Kind: kind, Schedule: s.schedules[kind], Running: s.runner.IsRunning(kind)}
		if id, ok := s.entries[kind]; ok && s.cron != nil {
			e := s.cron.Entry(id)
			if !e.Next.IsZero() {
				next := e.Next
				js.NextRun = &next
			}
			if !e.Prev.IsZero() {
				prev := e.Prev
				js.PrevRun = &prev
			}
		}
		if kind == reconciliation.KindBacklog {
			js.Schedule = "manual"
		}
		st.Jobs = append(st.Jobs, js)
	}
	return st
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
