package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/aggregator"
	"github.com/younsl/bucketpulse/pkg/formatter"
)

func (a *app) runCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one aggregation cycle over every tracked prefix",
		Example: `  bucketpulse run --config bucketpulse.yaml
  bucketpulse run --dry-run -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}
			svc := a.newService(e, nil)

			if dryRun {
				return a.dryRun(cmd, e, svc)
			}

			sp := a.startSpinner("Running aggregation cycle ...")
			summary, err := svc.RunAggregationCycle(ctx)
			stopSpinner(sp, fmt.Sprintf("✓ [%d prefixes evaluated, %d failed] Completed in %.2f seconds\n",
				summary.Evaluated, summary.Failed, summary.Duration.Seconds()))
			if err != nil {
				return err
			}

			if err := a.render(summary, func(w io.Writer) { formatter.PrintCycleSummary(w, summary) }); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d prefixes failed, see log for details", summary.Failed, summary.Total())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute statuses without persisting statuses, history or alerts")
	return cmd
}

// dryRun computes the status of every tracked prefix and prints it. Nothing is written.
func (a *app) dryRun(cmd *cobra.Command, e *env, svc *aggregator.Service) error {
	ctx := cmd.Context()
	configs, err := e.stores.configs.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list prefix configs: %w", err)
	}

	sp := a.startSpinner(fmt.Sprintf("Evaluating %d prefixes (dry run) ...", len(configs)))
	now := a.now().UTC()
	var (
		statuses []models.PrefixStatus
		failed   int
	)
	for _, cfg := range configs {
		if ctx.Err() != nil {
			break
		}
		bucket, err := e.stores.buckets.GetBucket(ctx, cfg.BucketName)
		if err == nil {
			var status models.PrefixStatus
			status, err = svc.ComputeStatus(ctx, cfg, bucket, now)
			if err == nil {
				statuses = append(statuses, status)
				continue
			}
		}
		failed++
		a.logger.ErrorContext(ctx, "prefix evaluation failed", "bucket", cfg.BucketName, "prefix", cfg.Prefix, "error", err)
	}
	stopSpinner(sp, fmt.Sprintf("✓ [%d prefixes evaluated, %d failed] Dry run completed\n", len(statuses), failed))
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.render(statuses, func(w io.Writer) { formatter.PrintStatusTable(w, statuses, now) }); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d prefixes failed, see log for details", failed, len(configs))
	}
	return nil
}
