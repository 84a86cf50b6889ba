// Package extract maps raw query results onto typed journal and inventory
// metrics. Missing rows, missing columns and unparsable values read as zero.
package extract

import (
	"strconv"
	"strings"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/runner"
)

// Journal builds journal metrics from the journal window row (nil when the query returned no rows)
func Journal(row *runner.Row) models.JournalMetrics {
	lastEvent, _ := row.Get("last_event_time")
	return models.JournalMetrics{
		LastEventTime:  strings.TrimSpace(lastEvent),
		ObjectsCreated: intColumn(row, "objects_created"),
		BytesCreated:   intColumn(row, "bytes_created"),
		ObjectsDeleted: intColumn(row, "objects_deleted"),
		BytesDeleted:   intColumn(row, "bytes_deleted"),
	}
}

// Inventory builds inventory metrics from the snapshot row and the storage class rows
func Inventory(snapshot *runner.Row, classes []runner.Record) models.InventoryMetrics {
	return models.InventoryMetrics{
		TotalObjects: intColumn(snapshot, "total_objects"),
		TotalBytes:   intColumn(snapshot, "total_bytes"),
		AgeHistogram: &models.AgeHistogram{
			Age0To7:   intColumn(snapshot, "age_0_7"),
			Age7To30:  intColumn(snapshot, "age_7_30"),
			Age30To90: intColumn(snapshot, "age_30_90"),
			Age90Plus: intColumn(snapshot, "age_90_plus"),
		},
		StorageClassBreakdown: StorageClasses(classes),
	}
}

// StorageClasses folds storage class rows into a label -> object count map
func StorageClasses(records []runner.Record) map[string]int64 {
	breakdown := make(map[string]int64, len(records))
	for _, rec := range records {
		breakdown[rec.Get("storage_class")] = ParseCount(rec.Get("object_count"))
	}
	return breakdown
}

func intColumn(row *runner.Row, name string) int64 {
	raw, ok := row.Get(name)
	if !ok {
		return 0
	}
	return ParseCount(raw)
}

// ParseCount reads the leading decimal digits of raw, so "12.9" and "1e3"
// read as 12 and 1. Anything without leading digits (including negatives) and
// values overflowing int64 are 0.
func ParseCount(raw string) int64 {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(raw[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
