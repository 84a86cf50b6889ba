package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/aggregator"
	"github.com/younsl/bucketpulse/pkg/health"
)

var now = time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

func TestPrintStatusTableOrdersWorstFirst(t *testing.T) {
	var buf bytes.Buffer
	PrintStatusTable(&buf, []models.PrefixStatus{
		{BucketName: "b", Prefix: "ok/", Status: models.StatusOK, LastEvaluatedAt: now.Add(-5 * time.Minute)},
		{BucketName: "b", Prefix: "stalled/", Status: models.StatusStalled, StatusReason: "No events for 151 minutes", LastEventTime: "2025-01-02 09:29:00.000"},
		{BucketName: "b", Prefix: "spike/", Status: models.StatusAnomalous, TotalBytes: 2048},
	}, now)

	out := buf.String()
	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "BUCKET"))
	assert.Contains(t, lines[1], "spike/")
	assert.Contains(t, lines[2], "stalled/")
	assert.Contains(t, lines[2], "2 hours ago")
	assert.Contains(t, lines[3], "ok/")
	assert.Contains(t, out, "2.0 KiB")
	assert.Contains(t, out, "Summary: 3 prefixes, 1 OK, 1 STALLED, 1 ANOMALOUS")
}

func TestPrintStatusTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintStatusTable(&buf, nil, now)
	assert.Equal(t, "No prefix status recorded yet.\n", buf.String())
}

func TestPrintPrefixHealth(t *testing.T) {
	var buf bytes.Buffer
	PrintPrefixHealth(&buf, &health.PrefixHealth{
		Bucket: models.BucketInfo{BucketName: "b", Region: "us-east-1"},
		Config: models.PrefixConfig{BucketName: "b", Prefix: "logs/", FreshnessWarningThresholdMinutes: 30, StalenessMaxPctOld: 50},
		Status: &models.PrefixStatus{
			Status:                models.StatusOK,
			TotalObjects:          1234567,
			StorageClassBreakdown: map[string]int64{"GLACIER": 10, "STANDARD": 90},
			AgeHistogram:          &models.AgeHistogram{Age0To7: 3, Age90Plus: 1},
		},
		Evaluations:   []models.PrefixEvaluation{{PrefixStatus: models.PrefixStatus{Status: models.StatusOK}, EvaluatedAt: now}},
		NextPageToken: "tok",
	}, now)

	out := buf.String()
	assert.Contains(t, out, "1,234,567 objects")
	assert.Contains(t, out, "STANDARD 90, GLACIER 10")
	assert.Contains(t, out, "90d+ 1 (25.0% old)")
	assert.Contains(t, out, "## HISTORY:")
	assert.Contains(t, out, "2025-01-02 12:00:00")
	assert.Contains(t, out, "--page-token tok")
}

func TestPrintAlertsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintAlertsTable(&buf, []models.Alert{
		{AlertID: "a1", Severity: models.SeverityCritical, Type: models.AlertTypeDeleteSpike, CreatedAt: now.Add(-time.Hour)},
		{AlertID: "a2", Severity: models.SeverityWarn, Type: models.AlertTypeFreshness, Resolved: true},
	}, now)
	out := buf.String()
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "Summary: 2 alerts (1 unresolved)")
}

func TestPrintCycleSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintCycleSummary(&buf, aggregator.CycleSummary{
		StartedAt:     now,
		Duration:      2 * time.Second,
		Evaluated:     2,
		Failed:        1,
		AlertsCreated: 1,
		ByStatus:      map[models.StatusCode]int{models.StatusOK: 1, models.StatusDegrading: 1},
		Alerts:        []models.Alert{{Severity: models.SeverityWarn, Type: models.AlertTypeFreshness, BucketName: "b", Prefix: "p/"}},
	})
	out := buf.String()
	assert.Contains(t, out, "Aggregation cycle completed at 2025-01-02 12:00:00 (took 2.00s)")
	assert.Contains(t, out, "## ALERTS:")
	assert.Contains(t, out, "FRESHNESS")
}

func TestPrintChecksCountsFailures(t *testing.T) {
	var buf bytes.Buffer
	failed := PrintChecks(&buf, []Check{
		{Component: "athena", Target: "primary", Detail: "enabled"},
		{Component: "dynamodb", Target: "bp_alerts", Err: errors.New("table not found")},
	})
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "FAIL")
	assert.Contains(t, buf.String(), "1 of 2 checks passed")
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
	assert.Equal(t, "한...", TruncateString("한국어로그", 6))
	assert.Equal(t, 4, StringWidth("한국"))
	assert.Equal(t, "ab   ", PadString("ab", 5))
}
