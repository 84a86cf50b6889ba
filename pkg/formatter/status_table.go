package formatter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/health"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// maxReasonWidth keeps the REASON column readable in a terminal
const maxReasonWidth = 80

// statusRank orders worst statuses first
var statusRank = map[models.StatusCode]int{
	models.StatusAnomalous: 0,
	models.StatusStalled:   1,
	models.StatusDegrading: 2,
	models.StatusUnknown:   3,
	models.StatusOK:        4,
}

// PrintStatusTable prints the latest status of each prefix, worst first
func PrintStatusTable(w io.Writer, statuses []models.PrefixStatus, now time.Time) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No prefix status recorded yet.")
		return
	}

	sorted := make([]models.PrefixStatus, len(statuses))
	copy(sorted, statuses)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ri, rj := statusRank[sorted[i].Status], statusRank[sorted[j].Status]; ri != rj {
			return ri < rj
		}
		if sorted[i].BucketName != sorted[j].BucketName {
			return sorted[i].BucketName < sorted[j].BucketName
		}
		return sorted[i].Prefix < sorted[j].Prefix
	})

	tw := newTable(w)
	fmt.Fprintln(tw, "BUCKET\tPREFIX\tSTATUS\tLAST EVENT\tCREATED (WINDOW)\tDELETED (WINDOW)\tOBJECTS\tSIZE\tEVALUATED\tREASON")
	for _, s := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.BucketName,
			s.Prefix,
			s.Status,
			formatEventTime(s.LastEventTime, now),
			formatCount(s.ObjectsCreatedLastWindow),
			formatCount(s.ObjectsDeletedLastWindow),
			formatCount(s.TotalObjects),
			formatBytes(s.TotalBytes),
			formatAgo(s.LastEvaluatedAt, now),
			TruncateString(dash(s.StatusReason), maxReasonWidth),
		)
	}
	tw.Flush()

	PrintStatusSummary(w, statuses)
}

// PrintStatusSummary prints how many prefixes are in each status
func PrintStatusSummary(w io.Writer, statuses []models.PrefixStatus) {
	counts := make(map[models.StatusCode]int, len(models.AllStatusCodes))
	for _, s := range statuses {
		counts[s.Status]++
	}

	fmt.Fprintf(w, "\nSummary: %d prefixes", len(statuses))
	for _, code := range models.AllStatusCodes {
		if counts[code] > 0 {
			fmt.Fprintf(w, ", %d %s", counts[code], code)
		}
	}
	fmt.Fprintln(w)
}

// PrintBucketPrefixes prints every tracked prefix of a bucket with its thresholds
func PrintBucketPrefixes(w io.Writer, view *health.BucketPrefixes, now time.Time) {
	b := view.Bucket
	fmt.Fprintf(w, "Bucket %s (%s), journal tables: %s, metadata tables: %s\n\n",
		b.BucketName, b.Region, yesNo(b.JournalTablesEnabled), yesNo(b.MetadataTablesEnabled))

	if len(view.Prefixes) == 0 {
		fmt.Fprintln(w, "No tracked prefixes.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "PREFIX\tSTATUS\tEXPECTED\tWARNING\tCRITICAL\tSTALE AFTER\tMAX OLD\tEVALUATED")
	var statuses []models.PrefixStatus
	for _, p := range view.Prefixes {
		status, evaluated := models.StatusUnknown, "-"
		if p.Status != nil {
			status = p.Status.Status
			evaluated = formatAgo(p.Status.LastEvaluatedAt, now)
			statuses = append(statuses, *p.Status)
		}
		c := p.Config
		fmt.Fprintf(tw, "%s\t%s\t%dm\t%dm\t%dm\t%dd\t%.1f%%\t%s\n",
			c.Prefix,
			status,
			c.FreshnessExpectedIntervalMinutes,
			c.FreshnessWarningThresholdMinutes,
			c.FreshnessCriticalThresholdMinutes,
			c.StalenessAgeDays,
			c.StalenessMaxPctOld,
			evaluated,
		)
	}
	tw.Flush()

	if len(statuses) > 0 {
		PrintStatusSummary(w, statuses)
	}
}

// formatEventTime renders the engine's raw event time relative to now when it parses
func formatEventTime(raw string, now time.Time) string {
	if raw == "" {
		return "never"
	}
	if t, err := utils.ParseEventTime(raw); err == nil {
		return formatAgo(t, now)
	}
	return raw
}
