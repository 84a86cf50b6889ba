package models

import "time"

// Severity of an alert
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// AlertType classifies what triggered an alert
type AlertType string

const (
	AlertTypeFreshness   AlertType = "FRESHNESS"
	AlertTypeStaleness   AlertType = "STALENESS"
	AlertTypeDeleteSpike AlertType = "DELETE_SPIKE"
	AlertTypeGrowthSpike AlertType = "GROWTH_SPIKE"
	AlertTypeOther       AlertType = "OTHER"
)

// Alert is an append-only alert record. AlertID and CreatedAt are assigned by the store.
type Alert struct {
	AlertID    string         `json:"alertId"`
	BucketName string         `json:"bucketName"`
	Prefix     string         `json:"prefix"`
	Type       AlertType      `json:"type"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"` // snapshot of triggering metrics
	CreatedAt  time.Time      `json:"createdAt"`
	Resolved   bool           `json:"resolved"`
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	BucketName string
	Prefix     string
	Severity   Severity
	Type       AlertType
	Since      time.Time
	Until      time.Time
	Limit      int
	PageToken  string
}

// Matches reports whether an alert passes every set field of the filter
func (f AlertFilter) Matches(a Alert) bool {
	if f.BucketName != "" && a.BucketName != f.BucketName {
		return false
	}
	if f.Prefix != "" && a.Prefix != f.Prefix {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && a.CreatedAt.After(f.Until) {
		return false
	}
	return true
}
