package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/reporting"
)

// Scheduler sends the periodic summary report on a cron schedule.
type Scheduler struct {
	mailer *reporting.Mailer
	spec   string
	logger *logger.Logger
	cron   *cron.Cron
}

// NewScheduler creates the report scheduler. The spec is a standard
// five-field cron expression, validated at config load.
func NewScheduler(mailer *reporting.Mailer, spec string, log *logger.Logger) *Scheduler {
	return &Scheduler{
		mailer: mailer,
		spec:   spec,
		logger: log,
	}
}

// Start schedules the report job and blocks until the context is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithLogger(cron.PrintfLogger(s.logger)))

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.mailer.Send(ctx); err != nil {
			s.logger.ErrorWithErr(err, "Failed to send report mail")
		}
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"schedule": s.spec,
	}).Info("Starting report scheduler")
	s.cron.Start()

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("Report scheduler stopped")
	return nil
}
