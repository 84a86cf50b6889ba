package formatter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/health"
)

// PrintPrefixHealth prints the detail view of one prefix followed by its history
func PrintPrefixHealth(w io.Writer, view *health.PrefixHealth, now time.Time) {
	c := view.Config
	tw := newTable(w)
	fmt.Fprintf(tw, "Bucket:\t%s (%s)\n", view.Bucket.BucketName, view.Bucket.Region)
	fmt.Fprintf(tw, "Prefix:\t%s\n", c.Prefix)
	fmt.Fprintf(tw, "Freshness:\texpected %dm, warning %dm, critical %dm\n",
		c.FreshnessExpectedIntervalMinutes, c.FreshnessWarningThresholdMinutes, c.FreshnessCriticalThresholdMinutes)
	fmt.Fprintf(tw, "Staleness:\tmax %.1f%% older than %d days\n", c.StalenessMaxPctOld, c.StalenessAgeDays)
	if c.PartitionPattern != "" {
		fmt.Fprintf(tw, "Partitions:\t%s\n", c.PartitionPattern)
	}

	if s := view.Status; s != nil {
		fmt.Fprintf(tw, "Status:\t%s\n", s.Status)
		fmt.Fprintf(tw, "Reason:\t%s\n", dash(s.StatusReason))
		fmt.Fprintf(tw, "Last event:\t%s\n", formatEventTime(s.LastEventTime, now))
		fmt.Fprintf(tw, "Window:\t+%s objects (%s), -%s objects (%s)\n",
			formatCount(s.ObjectsCreatedLastWindow), formatBytes(s.BytesCreatedLastWindow),
			formatCount(s.ObjectsDeletedLastWindow), formatBytes(s.BytesDeletedLastWindow))
		fmt.Fprintf(tw, "Inventory:\t%s objects, %s\n", formatCount(s.TotalObjects), formatBytes(s.TotalBytes))
		if h := s.AgeHistogram; h != nil {
			fmt.Fprintf(tw, "Age:\t0-7d %s, 7-30d %s, 30-90d %s, 90d+ %s (%s old)\n",
				formatCount(h.Age0To7), formatCount(h.Age7To30), formatCount(h.Age30To90), formatCount(h.Age90Plus), oldShare(*h))
		}
		if len(s.StorageClassBreakdown) > 0 {
			fmt.Fprintf(tw, "Storage classes:\t%s\n", formatBreakdown(s.StorageClassBreakdown))
		}
		fmt.Fprintf(tw, "Evaluated:\t%s (%s)\n", formatTime(s.LastEvaluatedAt), formatAgo(s.LastEvaluatedAt, now))
	} else {
		fmt.Fprintf(tw, "Status:\tnot evaluated yet\n")
	}
	tw.Flush()

	fmt.Fprintln(w, "\n## HISTORY:")
	PrintEvaluationsTable(w, view.Evaluations)
	if view.NextPageToken != "" {
		fmt.Fprintf(w, "\nMore history available, continue with --page-token %s\n", view.NextPageToken)
	}
}

// PrintEvaluationsTable prints evaluation history records in the order given
func PrintEvaluationsTable(w io.Writer, evaluations []models.PrefixEvaluation) {
	if len(evaluations) == 0 {
		fmt.Fprintln(w, "No evaluations found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "EVALUATED AT\tSTATUS\tCREATED\tDELETED\tOBJECTS\tSIZE\tREASON")
	for _, e := range evaluations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(e.EvaluatedAt),
			e.Status,
			formatCount(e.ObjectsCreatedLastWindow),
			formatCount(e.ObjectsDeletedLastWindow),
			formatCount(e.TotalObjects),
			formatBytes(e.TotalBytes),
			TruncateString(dash(e.StatusReason), maxReasonWidth),
		)
	}
	tw.Flush()
}

// formatBreakdown renders storage classes largest first, e.g. "STANDARD 90, GLACIER 10"
func formatBreakdown(breakdown map[string]int64) string {
	classes := make([]string, 0, len(breakdown))
	for class := range breakdown {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if breakdown[classes[i]] != breakdown[classes[j]] {
			return breakdown[classes[i]] > breakdown[classes[j]]
		}
		return classes[i] < classes[j]
	})

	out := ""
	for i, class := range classes {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s %s", class, formatCount(breakdown[class]))
	}
	return out
}

// oldShare is the 90d+ share of the histogram
func oldShare(h models.AgeHistogram) string {
	total := h.Total()
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(h.Age90Plus)/float64(total)*100)
}
