package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/younsl/bucketpulse/pkg/aws"
	"github.com/younsl/bucketpulse/pkg/formatter"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// storageLookback covers a few daily S3 storage metric datapoints
const storageLookback = 3 * 24 * time.Hour

type checkResult struct {
	Component string `json:"component"`
	Target    string `json:"target"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
}

func (a *app) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check access to Athena, the DynamoDB tables and the registered buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.newEnv(ctx)
			if err != nil {
				return err
			}

			sp := a.startSpinner("Checking environment ...")
			checks := a.runChecks(ctx, e)
			stopSpinner(sp, "")

			results := make([]checkResult, 0, len(checks))
			for _, c := range checks {
				r := checkResult{Component: c.Component, Target: c.Target, OK: c.Err == nil, Detail: c.Detail}
				if c.Err != nil {
					r.Detail = c.Err.Error()
				}
				results = append(results, r)
			}

			if err := a.render(results, func(w io.Writer) { formatter.PrintChecks(w, checks) }); err != nil {
				return err
			}
			for _, r := range results {
				if !r.OK {
					return errors.New("one or more checks failed")
				}
			}
			return nil
		},
	}
}

func (a *app) runChecks(ctx context.Context, e *env) []formatter.Check {
	checks := []formatter.Check{{
		Component: "config",
		Target:    dashIfEmpty(a.configPath),
		Detail:    fmt.Sprintf("region %s, backend %s", a.cfg.Region, a.cfg.Store.Backend),
	}}

	checks = append(checks, formatter.Check{
		Component: "athena",
		Target:    a.cfg.Athena.Workgroup,
		Detail:    "workgroup enabled",
		Err:       a.newAthenaEngine(e).CheckWorkgroup(ctx),
	})

	if d := e.stores.dynamo; d != nil {
		results := d.CheckTables(ctx)
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			checks = append(checks, formatter.Check{Component: "dynamodb", Target: name, Detail: "active", Err: results[name]})
		}
	}

	buckets, err := e.stores.buckets.ListBuckets(ctx)
	if err != nil {
		return append(checks, formatter.Check{Component: "buckets", Target: "registry", Err: err})
	}

	checker := aws.NewS3Checker(e.awsCfg)
	cw := aws.NewCloudWatchReporter(e.awsCfg, a.cfg.Metrics.CloudWatchNamespace)
	for _, b := range buckets {
		found := checker.CheckBucket(ctx, b.BucketName, b.Region)
		check := formatter.Check{Component: "s3", Target: b.BucketName, Err: found.Err}
		switch {
		case found.RegionMismatch():
			check.Err = fmt.Errorf("bucket is in %s but registered in %s",
				utils.RegionName(found.ActualRegion), utils.RegionName(found.ExpectedRegion))
		case found.Err == nil:
			check.Detail = a.storageDetail(ctx, cw, b.BucketName, found.ActualRegion)
		}
		checks = append(checks, check)
	}
	return checks
}

// storageDetail summarizes the bucket's daily storage metrics. Failures only
// degrade the detail text.
func (a *app) storageDetail(ctx context.Context, cw *aws.CloudWatchReporter, bucketName, region string) string {
	region = utils.RegionName(region)
	st, err := cw.BucketStorage(ctx, bucketName, a.now(), storageLookback)
	if err != nil {
		a.logger.Debug("bucket storage metrics unavailable", "bucket", bucketName, "error", err)
		return "accessible in " + region
	}
	if st.Timestamp == nil {
		return fmt.Sprintf("accessible in %s, no storage metrics yet", region)
	}
	return fmt.Sprintf("accessible in %s, %s objects, %s", region, humanize.Comma(st.Objects), humanize.IBytes(uint64(max(st.Bytes, 0))))
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "(defaults)"
	}
	return s
}
