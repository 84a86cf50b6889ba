package formatter

import (
	"fmt"
	"io"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/aggregator"
)

// PrintCycleSummary prints the outcome of one aggregation cycle and the alerts it raised
func PrintCycleSummary(w io.Writer, summary aggregator.CycleSummary) {
	printTimestamp(w, "Aggregation cycle completed", summary.StartedAt, summary.Duration)

	tw := newTable(w)
	fmt.Fprintln(tw, "\n## CYCLE SUMMARY:")
	fmt.Fprintf(tw, "Prefixes evaluated:\t%d\n", summary.Evaluated)
	fmt.Fprintf(tw, "Prefixes failed:\t%d\n", summary.Failed)
	for _, code := range models.AllStatusCodes {
		fmt.Fprintf(tw, "  %s:\t%d\n", code, summary.ByStatus[code])
	}
	fmt.Fprintf(tw, "Alerts created:\t%d\n", summary.AlertsCreated)
	tw.Flush()

	if len(summary.Alerts) == 0 {
		return
	}
	fmt.Fprintln(w, "\n## ALERTS:")
	tw = newTable(w)
	fmt.Fprintln(tw, "SEVERITY\tTYPE\tBUCKET\tPREFIX\tMESSAGE")
	for _, a := range summary.Alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Severity, a.Type, a.BucketName, a.Prefix, TruncateString(a.Message, maxReasonWidth))
	}
	tw.Flush()
}
