package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/service"
)

// Sweeper drives the escalation engine on a fixed interval. It is the
// systems replacement for client-side refresh timers: one scheduled pass,
// idempotent by construction, safe to run alongside other replicas.
type Sweeper struct {
	escalations *service.EscalationService
	interval    time.Duration
	logger      *zap.Logger
}

// NewSweeper constructs the worker.
func NewSweeper(escalations *service.EscalationService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{escalations: escalations, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("escalation sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("escalation sweeper stopped")
			return
		case now := <-ticker.C:
			events, err := s.escalations.Sweep(ctx, now)
			if err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
				continue
			}
			if len(events) > 0 {
				s.logger.Info("sweep completed", zap.Int("events", len(events)))
			}
		}
	}
}
