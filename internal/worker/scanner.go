package worker

import (
	"context"
	"time"

	"github.com/stackwatch/stackwatch/internal/pipeline"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
)

// Scanner runs the slurp and audit cycle on a fixed interval.
type Scanner struct {
	pipeline *pipeline.Pipeline
	interval time.Duration
	logger   *logger.Logger
}

// NewScanner creates the periodic scan worker.
func NewScanner(p *pipeline.Pipeline, interval time.Duration, log *logger.Logger) *Scanner {
	return &Scanner{
		pipeline: p,
		interval: interval,
		logger:   log,
	}
}

// Start begins the periodic scan loop. It blocks until the context is
// cancelled.
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info("Starting scan worker")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run initial cycle
	s.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-ctx.Done():
			s.logger.Info("Scan worker stopped")
			return
		}
	}
}

// runCycle syncs accounts from settings and runs every enabled
// technology through the pipeline.
func (s *Scanner) runCycle(ctx context.Context) {
	s.logger.Info("Starting scan cycle")

	if err := s.pipeline.SyncAccounts(ctx); err != nil {
		s.logger.ErrorWithErr(err, "Failed to sync accounts from settings")
		return
	}

	summaries := s.pipeline.Run(ctx)
	for _, summary := range summaries {
		fields := map[string]interface{}{
			"technology":  summary.Technology,
			"items":       summary.Items,
			"created":     summary.Created,
			"changed":     summary.Changed,
			"ephemeral":   summary.Ephemeral,
			"deactivated": summary.Deactivated,
		}
		if summary.Audit != nil {
			fields["issues"] = summary.Audit.Issues
			fields["new_issues"] = summary.Audit.Created
			fields["fixed_issues"] = summary.Audit.Fixed
		}
		s.logger.WithFields(fields).Info("Technology scan complete")
	}

	s.logger.Info("Completed scan cycle")
}

// SetInterval updates the scanning interval for the next Start call.
func (s *Scanner) SetInterval(interval time.Duration) {
	s.interval = interval
	s.logger.WithFields(map[string]interface{}{
		"interval": interval.String(),
	}).Info("Updated scan worker interval")
}
