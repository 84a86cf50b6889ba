// Package store defines the persistence collaborators of the aggregation cycle
// and in-memory implementations of them.
package store

import (
	"context"
	"time"

	"github.com/younsl/bucketpulse/internal/models"
)

// ConfigSource reads tracked prefix configurations
type ConfigSource interface {
	ListAll(ctx context.Context) ([]models.PrefixConfig, error)
	ListByBucket(ctx context.Context, bucketName string) ([]models.PrefixConfig, error)
	// Get returns nil without error when the prefix is not tracked
	Get(ctx context.Context, bucketName, prefix string) (*models.PrefixConfig, error)
}

// BucketSource reads bucket metadata
type BucketSource interface {
	// GetBucket returns nil without error when the bucket is unknown
	GetBucket(ctx context.Context, bucketName string) (*models.BucketInfo, error)
	ListBuckets(ctx context.Context) ([]models.BucketInfo, error)
}

// StatusStore keeps the latest status per (bucket, prefix). Save overwrites.
type StatusStore interface {
	Get(ctx context.Context, bucketName, prefix string) (*models.PrefixStatus, error)
	Save(ctx context.Context, status models.PrefixStatus) error
	// Delete removes the status; deleting a missing status is not an error
	Delete(ctx context.Context, bucketName, prefix string) error
	ListByBucket(ctx context.Context, bucketName string) ([]models.PrefixStatus, error)
}

// EvaluationQuery pages through evaluation history, newest first
type EvaluationQuery struct {
	Limit     int
	Since     time.Time // inclusive lower bound on EvaluatedAt
	PageToken string
}

// EvaluationPage is one page of evaluation history
type EvaluationPage struct {
	Items         []models.PrefixEvaluation `json:"items"`
	NextPageToken string                    `json:"nextPageToken,omitempty"`
}

// EvaluationStore is the append-only evaluation log
type EvaluationStore interface {
	Save(ctx context.Context, evaluation models.PrefixEvaluation) error
	// Delete removes the record evaluated at evaluatedAt, if any
	Delete(ctx context.Context, bucketName, prefix string, evaluatedAt time.Time) error
	ListByPrefix(ctx context.Context, bucketName, prefix string, q EvaluationQuery) (EvaluationPage, error)
}

// AlertPage is one page of alerts
type AlertPage struct {
	Items         []models.Alert `json:"items"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

// AlertStore is the append-only alert log
type AlertStore interface {
	// Create assigns AlertID and CreatedAt and returns the stored alert
	Create(ctx context.Context, alert models.Alert) (models.Alert, error)
	ListAlerts(ctx context.Context, filter models.AlertFilter) (AlertPage, error)
	// MarkResolved returns ErrNotFound for an unknown alert id
	MarkResolved(ctx context.Context, alertID string) error
}
