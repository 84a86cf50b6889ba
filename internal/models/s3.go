package models

import "time"

// BucketInfo represents a monitored S3 bucket as registered in the bucket registry
type BucketInfo struct {
	BucketName  string    `json:"bucketName" yaml:"bucket"`
	DisplayName string    `json:"displayName,omitempty" yaml:"display_name"`
	Region      string    `json:"region" yaml:"region"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`

	// S3 Metadata table integration
	MetadataTablesEnabled bool   `json:"metadataTablesEnabled" yaml:"metadata_tables_enabled"`
	JournalTablesEnabled  bool   `json:"journalTablesEnabled" yaml:"journal_tables_enabled"`
	MetadataTablesARN     string `json:"metadataTablesArn,omitempty" yaml:"metadata_tables_arn"`

	// Table overrides, either "table" or "database.table"
	InventoryTableName string `json:"inventoryTableName,omitempty" yaml:"inventory_table_name"`
	JournalTableName   string `json:"journalTableName,omitempty" yaml:"journal_table_name"`

	// Aggregated fields maintained outside the evaluation cycle
	Status               StatusCode `json:"status" yaml:"-"`
	TotalObjects         int64      `json:"totalObjects,omitempty" yaml:"-"`
	TotalBytes           int64      `json:"totalBytes,omitempty" yaml:"-"`
	TrackedPrefixesCount int        `json:"trackedPrefixesCount,omitempty" yaml:"-"`
}
