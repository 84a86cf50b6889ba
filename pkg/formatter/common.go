// Package formatter renders bucket-pulse views as kubernetes style tables
package formatter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

// timeLayout is used for every absolute timestamp in tables
const timeLayout = "2006-01-02 15:04:05"

// newTable returns a tabwriter with the column settings shared by all tables
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// printTimestamp prints when an operation ran and how long it took
func printTimestamp(w io.Writer, label string, startedAt time.Time, took time.Duration) {
	fmt.Fprintf(w, "%s at %s (took %.2fs)\n", label, startedAt.UTC().Format(timeLayout), took.Seconds())
}

// formatTime renders an absolute time, or "-" when unset
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}

// formatAgo renders t relative to now, e.g. "45 minutes ago"
func formatAgo(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// formatBytes renders a byte count in IEC units
func formatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// formatCount renders an integer with thousands separators
func formatCount(n int64) string {
	return humanize.Comma(n)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
