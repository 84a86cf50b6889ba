package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/younsl/bucketpulse/internal/models"
)

// PrintAlertsTable prints alerts in the order given, which is newest first for store listings
func PrintAlertsTable(w io.Writer, alerts []models.Alert, now time.Time) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ALERT ID\tCREATED\tSEVERITY\tTYPE\tBUCKET\tPREFIX\tRESOLVED\tMESSAGE")
	open := 0
	for _, a := range alerts {
		if !a.Resolved {
			open++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.AlertID,
			formatAgo(a.CreatedAt, now),
			a.Severity,
			a.Type,
			a.BucketName,
			a.Prefix,
			yesNo(a.Resolved),
			TruncateString(a.Message, maxReasonWidth),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nSummary: %d alerts (%d unresolved)\n", len(alerts), open)
}
