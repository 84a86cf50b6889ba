// Package query builds the read-only Athena SQL used to derive prefix health
// from the journal and inventory tables of a bucket.
package query

import (
	"fmt"
	"strings"
)

// JournalWindowParams selects journal events for one prefix in a trailing window
type JournalWindowParams struct {
	BucketName    string
	Prefix        string
	WindowMinutes int
}

// InventoryParams selects inventory rows for one prefix
type InventoryParams struct {
	BucketName string
	Prefix     string
}

// EscapeLiteral escapes a value for use inside a single-quoted SQL literal
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// prefixFilter renders the shared bucket/prefix predicate
func prefixFilter(bucketName, prefix string) string {
	return fmt.Sprintf("bucket_name = '%s'\n      AND key LIKE '%s%%'",
		EscapeLiteral(bucketName), EscapeLiteral(prefix))
}

// JournalWindowQuery aggregates create/delete events over the trailing window
func JournalWindowQuery(ref TableRef, p JournalWindowParams) string {
	return fmt.Sprintf(`
    SELECT
      MAX(event_time) AS last_event_time,
      SUM(CASE WHEN event_type LIKE 'ObjectCreated%%' THEN 1 ELSE 0 END) AS objects_created,
      SUM(CASE WHEN event_type LIKE 'ObjectCreated%%' THEN size_bytes ELSE 0 END) AS bytes_created,
      SUM(CASE WHEN event_type LIKE 'ObjectRemoved%%' THEN 1 ELSE 0 END) AS objects_deleted,
      SUM(CASE WHEN event_type LIKE 'ObjectRemoved%%' THEN size_bytes ELSE 0 END) AS bytes_deleted
    FROM %s
    WHERE %s
      AND event_time >= current_timestamp - interval '%d' minute
  `, ref.Expr(), prefixFilter(p.BucketName, p.Prefix), p.WindowMinutes)
}

// InventorySnapshotQuery counts objects and bytes, bucketed by last_modified age
func InventorySnapshotQuery(ref TableRef, p InventoryParams) string {
	return fmt.Sprintf(`
    SELECT
      COUNT(*) AS total_objects,
      SUM(size_bytes) AS total_bytes,
      SUM(CASE WHEN last_modified >= current_date - interval '7' day THEN 1 ELSE 0 END) AS age_0_7,
      SUM(CASE WHEN last_modified < current_date - interval '7' day AND last_modified >= current_date - interval '30' day THEN 1 ELSE 0 END) AS age_7_30,
      SUM(CASE WHEN last_modified < current_date - interval '30' day AND last_modified >= current_date - interval '90' day THEN 1 ELSE 0 END) AS age_30_90,
      SUM(CASE WHEN last_modified < current_date - interval '90' day THEN 1 ELSE 0 END) AS age_90_plus
    FROM %s
    WHERE %s
  `, ref.Expr(), prefixFilter(p.BucketName, p.Prefix))
}

// InventoryStorageClassQuery counts objects per storage class
func InventoryStorageClassQuery(ref TableRef, p InventoryParams) string {
	return fmt.Sprintf(`
    SELECT storage_class, COUNT(*) AS object_count
    FROM %s
    WHERE %s
    GROUP BY storage_class
  `, ref.Expr(), prefixFilter(p.BucketName, p.Prefix))
}
