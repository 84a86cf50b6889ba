package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/formatter"
	"github.com/younsl/bucketpulse/pkg/store"
	"github.com/younsl/bucketpulse/pkg/utils"
)

func (a *app) statusCommand() *cobra.Command {
	var bucket string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest status of tracked prefixes",
		Long: `Show the latest status of every tracked prefix of one bucket, or of all
registered buckets when --bucket is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}
			now := a.now()

			if bucket != "" {
				view, err := e.healthService().GetBucketPrefixes(ctx, bucket)
				if err != nil {
					return err
				}
				return a.render(view, func(w io.Writer) { formatter.PrintBucketPrefixes(w, view, now) })
			}

			buckets, err := e.stores.buckets.ListBuckets(ctx)
			if err != nil {
				return fmt.Errorf("list buckets: %w", err)
			}
			var statuses []models.PrefixStatus
			for _, b := range buckets {
				s, err := e.stores.statuses.ListByBucket(ctx, b.BucketName)
				if err != nil {
					return fmt.Errorf("list statuses of %s: %w", b.BucketName, err)
				}
				statuses = append(statuses, s...)
			}
			return a.render(statuses, func(w io.Writer) { formatter.PrintStatusTable(w, statuses, now) })
		},
	}
	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Bucket name")
	return cmd
}

func (a *app) historyCommand() *cobra.Command {
	var (
		bucket, prefix, since, pageToken string
		limit                            int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a prefix's configuration, latest status and evaluation history",
		Example: `  bucketpulse history --bucket data-bucket --prefix logs/appA/ --since 24h
  bucketpulse history -b data-bucket -p logs/appA/ --limit 50 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Join(requireFlag("bucket", bucket), requireFlag("prefix", prefix)); err != nil {
				return err
			}
			now := a.now()
			sinceTime, err := utils.ParseSince(since, now)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}

			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}
			view, err := e.healthService().GetPrefixHealth(ctx, bucket, prefix, store.EvaluationQuery{
				Limit:     limit,
				Since:     sinceTime,
				PageToken: pageToken,
			})
			if err != nil {
				return err
			}
			return a.render(view, func(w io.Writer) { formatter.PrintPrefixHealth(w, view, now) })
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&bucket, "bucket", "b", "", "Bucket name (required)")
	flags.StringVarP(&prefix, "prefix", "p", "", "Tracked prefix (required)")
	flags.IntVar(&limit, "limit", 20, "Maximum number of evaluations")
	flags.StringVar(&since, "since", "", "Only evaluations at or after this time (RFC3339 or duration like 24h)")
	flags.StringVar(&pageToken, "page-token", "", "Continue from a previous page")
	return cmd
}

func (a *app) alertsCommand() *cobra.Command {
	var (
		filter              models.AlertFilter
		severity, alertType string
		since, until        string
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts, newest first",
		Example: `  bucketpulse alerts --bucket data-bucket --severity CRITICAL --since 24h
  bucketpulse alerts --type DELETE_SPIKE --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := a.now()
			var err error
			if filter.Since, err = utils.ParseSince(since, now); err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			if filter.Until, err = utils.ParseSince(until, now); err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			filter.Severity = models.Severity(strings.ToUpper(severity))
			filter.Type = models.AlertType(strings.ToUpper(alertType))

			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}
			page, err := e.stores.alerts.ListAlerts(ctx, filter)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				formatter.PrintAlertsTable(w, page.Items, now)
				if page.NextPageToken != "" {
					fmt.Fprintf(w, "\nMore alerts available, continue with --page-token %s\n", page.NextPageToken)
				}
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&filter.BucketName, "bucket", "b", "", "Bucket name")
	flags.StringVarP(&filter.Prefix, "prefix", "p", "", "Tracked prefix")
	flags.StringVar(&severity, "severity", "", "INFO, WARN or CRITICAL")
	flags.StringVar(&alertType, "type", "", "FRESHNESS, STALENESS, DELETE_SPIKE, GROWTH_SPIKE or OTHER")
	flags.StringVar(&since, "since", "", "Only alerts created at or after this time (RFC3339 or duration like 24h)")
	flags.StringVar(&until, "until", "", "Only alerts created at or before this time")
	flags.IntVar(&filter.Limit, "limit", 50, "Maximum number of alerts")
	flags.StringVar(&filter.PageToken, "page-token", "", "Continue from a previous page")
	return cmd
}

func (a *app) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ALERT_ID",
		Short: "Mark an alert as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}
			if err := e.stores.alerts.MarkResolved(ctx, args[0]); err != nil {
				return err
			}
			result := map[string]any{"alertId": args[0], "resolved": true}
			return a.render(result, func(w io.Writer) { fmt.Fprintf(w, "Alert %s resolved\n", args[0]) })
		},
	}
}
