package main

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/time/rate"

	"github.com/younsl/bucketpulse/internal/config"
	"github.com/younsl/bucketpulse/pkg/aggregator"
	"github.com/younsl/bucketpulse/pkg/alerting"
	"github.com/younsl/bucketpulse/pkg/aws"
	"github.com/younsl/bucketpulse/pkg/health"
	"github.com/younsl/bucketpulse/pkg/observability"
	"github.com/younsl/bucketpulse/pkg/query"
	"github.com/younsl/bucketpulse/pkg/runner"
	"github.com/younsl/bucketpulse/pkg/store"
)

// stores is the set of collaborators behind the selected backend
type stores struct {
	configs     store.ConfigSource
	buckets     store.BucketSource
	statuses    store.StatusStore
	evaluations store.EvaluationStore
	alerts      store.AlertStore

	dynamo *aws.DynamoStores // nil for the memory backend
}

// env is everything a command needs to talk to AWS and the stores
type env struct {
	awsCfg awssdk.Config
	stores stores
}

func (a *app) newEnv(ctx context.Context) (*env, error) {
	awsCfg, err := aws.LoadConfig(ctx, a.cfg.Region)
	if err != nil {
		return nil, err
	}
	return &env{awsCfg: awsCfg, stores: newStores(a.cfg, awsCfg, a.now)}, nil
}

func newStores(cfg config.Config, awsCfg awssdk.Config, now func() time.Time) stores {
	if cfg.Store.Backend == config.BackendMemory {
		return stores{
			configs:     store.NewMemoryConfigs(cfg.TrackedPrefixes...),
			buckets:     store.NewMemoryBuckets(cfg.Buckets...),
			statuses:    store.NewMemoryStatuses(),
			evaluations: store.NewMemoryEvaluations(),
			alerts:      store.NewMemoryAlerts(now),
		}
	}

	d := aws.NewDynamoStores(awsCfg, tableNames(cfg.Tables))
	return stores{
		configs:     d.Configs,
		buckets:     d.Buckets,
		statuses:    d.Statuses,
		evaluations: d.Evaluations,
		alerts:      d.Alerts,
		dynamo:      d,
	}
}

func tableNames(t config.TablesConfig) aws.TableNames {
	return aws.TableNames{
		Buckets:             t.Buckets,
		PrefixConfig:        t.PrefixConfig,
		PrefixStatus:        t.PrefixStatus,
		PrefixEvaluations:   t.PrefixEvaluations,
		Alerts:              t.Alerts,
		AlertsByBucketIndex: t.AlertsByBucketIndex,
	}
}

func (a *app) newAthenaEngine(e *env) *aws.AthenaEngine {
	return aws.NewAthenaEngine(e.awsCfg, aws.AthenaOptions{
		Workgroup:      a.cfg.Athena.Workgroup,
		OutputLocation: a.cfg.Athena.ResultLocation,
		Database:       a.cfg.Athena.Database,
	})
}

// newService wires the aggregation service. metrics may be nil.
func (a *app) newService(e *env, metrics *observability.Metrics) *aggregator.Service {
	ac := a.cfg.Athena
	qr := runner.New(a.newAthenaEngine(e), runner.Options{
		PollInterval: ac.PollInterval,
		MaxWait:      ac.QueryTimeout,
		MaxRows:      ac.MaxRows,
		Limiter:      rate.NewLimiter(rate.Limit(ac.SubmitRatePerS), ac.SubmitBurst),
		Observer:     metrics,
	})

	notifiers := alerting.MultiNotifier{alerting.LogNotifier{Logger: a.logger}}
	if arn := a.cfg.Alerts.TopicARN; arn != "" {
		notifiers = append(notifiers, aws.NewSNSNotifier(e.awsCfg, arn))
	}

	var reporter aggregator.CycleReporter
	if a.cfg.Metrics.CloudWatchEnabled {
		reporter = aws.NewCloudWatchReporter(e.awsCfg, a.cfg.Metrics.CloudWatchNamespace)
	}

	return aggregator.New(aggregator.Deps{
		Configs:              e.stores.configs,
		Buckets:              e.stores.buckets,
		Statuses:             e.stores.statuses,
		Evaluations:          e.stores.evaluations,
		Alerts:               e.stores.alerts,
		Runner:               qr,
		Resolver:             query.ConventionResolver{Database: ac.Database},
		Notifier:             notifiers,
		Reporter:             reporter,
		Metrics:              metrics,
		Logger:               a.logger,
		Now:                  a.now,
		JournalWindowMinutes: a.cfg.Cycle.JournalWindowMinutes,
	}, aggregator.WithConcurrency(a.cfg.Cycle.Concurrency))
}

func (e *env) healthService() *health.Service {
	return &health.Service{
		Buckets:     e.stores.buckets,
		Configs:     e.stores.configs,
		Statuses:    e.stores.statuses,
		Evaluations: e.stores.evaluations,
	}
}

// requireFlag reports a missing required string flag
func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
