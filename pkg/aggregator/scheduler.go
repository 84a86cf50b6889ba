package aggregator

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval is the time between scheduled cycles
const DefaultInterval = 5 * time.Minute

// Scheduler runs a cycle immediately and then on every tick until ctx is done
type Scheduler struct {
	Service  *Service
	Interval time.Duration
	Logger   *slog.Logger

	// OnCycle, if set, is called after every cycle
	OnCycle func(CycleSummary, error)
}

// Run blocks until ctx is cancelled. Cycle errors are logged, never returned.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("aggregation scheduler starting", "interval", interval.String())
	s.runOnce(ctx, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("aggregation scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx, logger)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, logger *slog.Logger) {
	summary, err := s.Service.RunAggregationCycle(ctx)
	if err != nil && ctx.Err() == nil {
		logger.Error("aggregation cycle failed", "error", err)
	}
	if s.OnCycle != nil {
		s.OnCycle(summary, err)
	}
}
