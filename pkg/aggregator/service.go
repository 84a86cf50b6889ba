// Package aggregator runs the periodic aggregation cycle: for every tracked
// prefix it queries the bucket's journal and inventory tables, evaluates a
// status, persists it with a history record, and raises alerts on transitions.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/alerting"
	"github.com/younsl/bucketpulse/pkg/evaluator"
	"github.com/younsl/bucketpulse/pkg/extract"
	"github.com/younsl/bucketpulse/pkg/observability"
	"github.com/younsl/bucketpulse/pkg/query"
	"github.com/younsl/bucketpulse/pkg/runner"
	"github.com/younsl/bucketpulse/pkg/store"
)

// DefaultJournalWindowMinutes is the trailing journal window queried per cycle
const DefaultJournalWindowMinutes = 60

// QueryRunner executes SQL against the query engine
type QueryRunner interface {
	RunSingleRowQuery(ctx context.Context, query string) (*runner.Row, error)
	RunMultiRowQuery(ctx context.Context, query string) ([]runner.Record, error)
}

// CycleReporter receives the summary of every completed cycle
type CycleReporter interface {
	ReportCycle(ctx context.Context, summary CycleSummary) error
}

// Deps are the collaborators of a Service. Notifier, Reporter, Metrics, Logger
// and Now are optional.
type Deps struct {
	Configs     store.ConfigSource
	Buckets     store.BucketSource
	Statuses    store.StatusStore
	Evaluations store.EvaluationStore
	Alerts      store.AlertStore
	Runner      QueryRunner
	Resolver    query.Resolver

	Notifier alerting.Notifier
	Reporter CycleReporter
	Metrics  *observability.Metrics
	Logger   *slog.Logger
	Now      func() time.Time

	JournalWindowMinutes int
}

// Option configures a Service
type Option func(*Service)

// WithConcurrency processes up to n prefixes at once. n <= 1 is sequential.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		s.concurrency = n
	}
}

// Service runs aggregation cycles
type Service struct {
	deps        Deps
	logger      *slog.Logger
	now         func() time.Time
	concurrency int
}

// New creates a Service
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:        deps,
		logger:      deps.Logger,
		now:         deps.Now,
		concurrency: 1,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.deps.JournalWindowMinutes <= 0 {
		s.deps.JournalWindowMinutes = DefaultJournalWindowMinutes
	}
	if s.deps.Resolver == nil {
		s.deps.Resolver = query.ConventionResolver{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunAggregationCycle evaluates every tracked prefix once. Failures of single
// prefixes are logged and counted; only a failure to list the configs, or
// cancellation of ctx, is returned.
func (s *Service) RunAggregationCycle(ctx context.Context) (CycleSummary, error) {
	// Stored timestamps carry milliseconds, so the cycle clock does too
	startedAt := s.now().UTC().Truncate(time.Millisecond)
	summary := newCycleSummary(startedAt)

	configs, err := s.deps.Configs.ListAll(ctx)
	if err != nil {
		finishedAt := s.finish(&summary)
		s.deps.Metrics.ObserveCycle("error", summary.Duration, finishedAt)
		return summary, fmt.Errorf("list prefix configs: %w", err)
	}
	s.logger.InfoContext(ctx, "aggregation cycle started", "prefixes", len(configs))

	var mu sync.Mutex
	record := func(cfg models.PrefixConfig, res prefixResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			summary.Failed++
			s.deps.Metrics.ObservePrefixFailure()
			s.logger.ErrorContext(ctx, "prefix aggregation failed",
				"bucket", cfg.BucketName, "prefix", cfg.Prefix, "kind", faultKind(err), "error", err)
			return
		}
		summary.add(res)
	}

	if s.concurrency <= 1 {
		for _, cfg := range configs {
			if ctx.Err() != nil {
				break
			}
			res, err := s.processPrefix(ctx, cfg, startedAt)
			record(cfg, res, err)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for _, cfg := range configs {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res, err := s.processPrefix(ctx, cfg, startedAt)
				record(cfg, res, err)
				return nil
			})
		}
		_ = g.Wait()
	}

	finishedAt := s.finish(&summary)
	if err := ctx.Err(); err != nil {
		s.deps.Metrics.ObserveCycle("cancelled", summary.Duration, finishedAt)
		return summary, err
	}

	s.deps.Metrics.ObserveCycle("success", summary.Duration, finishedAt)
	s.logger.InfoContext(ctx, "aggregation cycle finished",
		"evaluated", summary.Evaluated,
		"failed", summary.Failed,
		"alerts", summary.AlertsCreated,
		"duration", summary.Duration.String())

	if s.deps.Reporter != nil {
		if err := s.deps.Reporter.ReportCycle(ctx, summary); err != nil {
			s.logger.WarnContext(ctx, "cycle report failed", "error", err)
		}
	}
	return summary, nil
}

// prefixResult is what one successful iteration contributes to the summary
type prefixResult struct {
	status models.StatusCode
	alert  *models.Alert
}

// processPrefix runs one isolated iteration. Every read and query completes
// before the first write. A failure after the status overwrite rolls back the
// status and evaluation, so the next cycle still sees the old status and the
// alert is raised then.
func (s *Service) processPrefix(ctx context.Context, cfg models.PrefixConfig, now time.Time) (res prefixResult, err error) {
	bucket, err := s.deps.Buckets.GetBucket(ctx, cfg.BucketName)
	if err != nil {
		return prefixResult{}, fmt.Errorf("get bucket %s: %w", cfg.BucketName, err)
	}

	previous, err := s.deps.Statuses.Get(ctx, cfg.BucketName, cfg.Prefix)
	if err != nil {
		return prefixResult{}, fmt.Errorf("get previous status: %w", err)
	}

	status, err := s.ComputeStatus(ctx, cfg, bucket, now)
	if err != nil {
		return prefixResult{}, err
	}

	if err := s.deps.Statuses.Save(ctx, status); err != nil {
		return prefixResult{}, fmt.Errorf("save status: %w", err)
	}
	evaluationSaved := false
	defer func() {
		if err != nil {
			err = errors.Join(err, s.rollback(ctx, status, previous, evaluationSaved))
		}
	}()

	if err := s.deps.Evaluations.Save(ctx, status.Evaluation()); err != nil {
		return prefixResult{}, fmt.Errorf("save evaluation: %w", err)
	}
	evaluationSaved = true

	decided := alerting.Decide(cfg, status, previous)
	if decided == nil {
		s.deps.Metrics.ObserveEvaluation(status.Status)
		return prefixResult{status: status.Status}, nil
	}

	created, err := s.deps.Alerts.Create(ctx, *decided)
	if err != nil {
		return prefixResult{}, fmt.Errorf("create alert: %w", err)
	}
	s.deps.Metrics.ObserveEvaluation(status.Status)
	res = prefixResult{status: status.Status, alert: &created}
	s.deps.Metrics.ObserveAlert(created.Severity, created.Type)
	s.logger.InfoContext(ctx, "alert created",
		"bucket", cfg.BucketName,
		"prefix", cfg.Prefix,
		"alert_id", created.AlertID,
		"severity", created.Severity,
		"type", created.Type)

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, created); err != nil {
			s.logger.WarnContext(ctx, "alert notification failed",
				"alert_id", created.AlertID, "error", err)
		}
	}
	return res, nil
}

// rollback undoes the writes of a failed iteration: the evaluation record is
// removed and the previous status restored, or deleted when there was none.
// It runs even when ctx is already cancelled.
func (s *Service) rollback(ctx context.Context, status models.PrefixStatus, previous *models.PrefixStatus, evaluationSaved bool) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if evaluationSaved {
		if err := s.deps.Evaluations.Delete(ctx, status.BucketName, status.Prefix, status.LastEvaluatedAt); err != nil {
			errs = append(errs, fmt.Errorf("rollback evaluation: %w", err))
		}
	}
	if previous != nil {
		if err := s.deps.Statuses.Save(ctx, *previous); err != nil {
			errs = append(errs, fmt.Errorf("rollback status: %w", err))
		}
	} else if err := s.deps.Statuses.Delete(ctx, status.BucketName, status.Prefix); err != nil {
		errs = append(errs, fmt.Errorf("rollback status: %w", err))
	}

	if len(errs) > 0 {
		s.logger.ErrorContext(ctx, "iteration rollback incomplete",
			"bucket", status.BucketName, "prefix", status.Prefix, "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

// ComputeStatus resolves tables, runs the three queries and evaluates the
// result. It performs no writes.
func (s *Service) ComputeStatus(ctx context.Context, cfg models.PrefixConfig, bucket *models.BucketInfo, now time.Time) (models.PrefixStatus, error) {
	tables, err := query.ResolveTables(bucket, cfg.BucketName, s.deps.Resolver)
	if err != nil {
		return models.PrefixStatus{}, err
	}

	journalRow, err := s.deps.Runner.RunSingleRowQuery(ctx, query.JournalWindowQuery(tables.Journal, query.JournalWindowParams{
		BucketName:    cfg.BucketName,
		Prefix:        cfg.Prefix,
		WindowMinutes: s.deps.JournalWindowMinutes,
	}))
	if err != nil {
		return models.PrefixStatus{}, fmt.Errorf("journal window query: %w", err)
	}

	invParams := query.InventoryParams{BucketName: cfg.BucketName, Prefix: cfg.Prefix}
	snapshot, err := s.deps.Runner.RunSingleRowQuery(ctx, query.InventorySnapshotQuery(tables.Inventory, invParams))
	if err != nil {
		return models.PrefixStatus{}, fmt.Errorf("inventory snapshot query: %w", err)
	}
	classes, err := s.deps.Runner.RunMultiRowQuery(ctx, query.InventoryStorageClassQuery(tables.Inventory, invParams))
	if err != nil {
		return models.PrefixStatus{}, fmt.Errorf("inventory storage class query: %w", err)
	}

	journal := extract.Journal(journalRow)
	inventory := extract.Inventory(snapshot, classes)
	result := evaluator.Evaluate(cfg, journal, inventory, now)
	return models.NewPrefixStatus(cfg, journal, inventory, result.Code, result.Reason, now), nil
}

// finish stamps the summary duration and returns the finish time
func (s *Service) finish(summary *CycleSummary) time.Time {
	finishedAt := s.now().UTC()
	summary.Duration = max(finishedAt.Sub(summary.StartedAt), 0)
	return finishedAt
}

// faultKind names the class of a per-prefix failure for logs
func faultKind(err error) string {
	switch {
	case errors.Is(err, query.ErrTableResolution):
		return "table_resolution"
	case errors.Is(err, runner.ErrQueryTimeout):
		return "query_timeout"
	case errors.Is(err, runner.ErrQueryExecutionFailed):
		return "query_failed"
	case errors.Is(err, store.ErrRead):
		return "store_read"
	case errors.Is(err, store.ErrWrite):
		return "store_write"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
