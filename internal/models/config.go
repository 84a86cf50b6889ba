package models

import "time"

// PrefixConfig holds the thresholds for a tracked (bucket, prefix) pair.
// Threshold ordering (expected <= warning <= critical) is enforced by whoever
// writes the config, not here.
type PrefixConfig struct {
	BucketName string `json:"bucketName" yaml:"bucket"`
	Prefix     string `json:"prefix" yaml:"prefix"`

	// Freshness expectations in minutes
	FreshnessExpectedIntervalMinutes  int `json:"freshnessExpectedIntervalMinutes" yaml:"freshness_expected_interval_minutes"`
	FreshnessWarningThresholdMinutes  int `json:"freshnessWarningThresholdMinutes" yaml:"freshness_warning_threshold_minutes"`
	FreshnessCriticalThresholdMinutes int `json:"freshnessCriticalThresholdMinutes" yaml:"freshness_critical_threshold_minutes"`

	// Staleness thresholds
	StalenessAgeDays   int     `json:"stalenessAgeDays" yaml:"staleness_age_days"`
	StalenessMaxPctOld float64 `json:"stalenessMaxPctOld" yaml:"staleness_max_pct_old"` // 0-100

	// Optional partition layout, e.g. "logs/appA/date={YYYY-MM-DD}/hour={HH}/"
	PartitionPattern string `json:"partitionPattern,omitempty" yaml:"partition_pattern"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// Key returns the "bucket/prefix" label used in logs and tables
func (c PrefixConfig) Key() string {
	return c.BucketName + "/" + c.Prefix
}
