package scheduler

import (
	"context"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic memory report.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	logger     logrus.FieldLogger
}

// New creates a scheduler that evaluates cron specs in UTC.
func New(logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.WithField("component", "scheduler"),
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

// Start registers the report under spec and starts the cron loop.
// Without a report function or with an empty spec nothing is scheduled.
func (s *Scheduler) Start(spec string) error {
	if s.reportFunc == nil || spec == "" {
		s.logger.Warn("report function or schedule not set, scheduler will not generate reports")
		return nil
	}

	_, err := s.cron.AddFunc(spec, s.Trigger)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("scheduler started")
	return nil
}

// Trigger runs the report once, synchronously.
func (s *Scheduler) Trigger() {
	if s.reportFunc == nil {
		return
	}
	s.logger.Info("generating memory report")
	if err := s.reportFunc(s.ctx); err != nil {
		s.logger.WithError(err).Error("memory report failed")
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
