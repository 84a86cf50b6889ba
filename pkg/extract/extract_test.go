package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/runner"
)

func str(s string) *string { return &s }

func TestParseCount(t *testing.T) {
	tests := map[string]int64{
		"":                     0,
		"  ":                   0,
		"42":                   42,
		" 7 ":                  7,
		"12.9":                 12,
		"12.0":                 12,
		"1.5E9":                1,
		"1e3":                  1,
		"12abc":                12,
		"abc":                  0,
		"-5":                   0,
		"NaN":                  0,
		"99999999999999999999": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseCount(in), "input %q", in)
	}
}

func TestJournal(t *testing.T) {
	row := &runner.Row{
		Columns: []string{"LAST_EVENT_TIME", "objects_created", "bytes_created", "objects_deleted"},
		Values:  []*string{str("2025-04-15 10:30:00.000"), str("5"), str("oops"), nil},
	}
	got := Journal(row)
	assert.Equal(t, models.JournalMetrics{
		LastEventTime:  "2025-04-15 10:30:00.000",
		ObjectsCreated: 5,
		BytesCreated:   0,
		ObjectsDeleted: 0,
		BytesDeleted:   0,
	}, got)
}

func TestJournalWithoutRow(t *testing.T) {
	got := Journal(nil)
	assert.Equal(t, models.JournalMetrics{}, got)
	assert.Empty(t, got.LastEventTime, "no row means no event observed")
}

func TestInventory(t *testing.T) {
	snapshot := &runner.Row{
		Columns: []string{"total_objects", "total_bytes", "age_0_7", "age_7_30", "age_30_90", "age_90_plus"},
		Values:  []*string{str("1000"), str("5000000"), str("100"), str("50"), str("100"), str("750")},
	}
	classes := []runner.Record{
		{"storage_class": "STANDARD", "object_count": "900"},
		{"storage_class": "GLACIER", "object_count": "x"},
	}

	got := Inventory(snapshot, classes)
	assert.EqualValues(t, 1000, got.TotalObjects)
	assert.EqualValues(t, 5_000_000, got.TotalBytes)
	assert.Equal(t, &models.AgeHistogram{Age0To7: 100, Age7To30: 50, Age30To90: 100, Age90Plus: 750}, got.AgeHistogram)
	assert.EqualValues(t, got.TotalObjects, got.AgeHistogram.Total())
	assert.Equal(t, map[string]int64{"STANDARD": 900, "GLACIER": 0}, got.StorageClassBreakdown)
}

func TestInventoryWithoutData(t *testing.T) {
	got := Inventory(nil, nil)
	assert.Zero(t, got.TotalObjects)
	assert.Zero(t, got.TotalBytes)
	assert.Equal(t, &models.AgeHistogram{}, got.AgeHistogram)
	assert.Empty(t, got.StorageClassBreakdown)
}
