// Package health assembles read-only views over the stores for a bucket or a
// single tracked prefix.
package health

import (
	"context"
	"fmt"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/store"
)

// DefaultEvaluationsLimit caps the evaluation history returned with a prefix view
const DefaultEvaluationsLimit = 20

// PrefixHealth is the full view of one tracked prefix
type PrefixHealth struct {
	Bucket        models.BucketInfo         `json:"bucket"`
	Config        models.PrefixConfig       `json:"config"`
	Status        *models.PrefixStatus      `json:"status,omitempty"`
	Evaluations   []models.PrefixEvaluation `json:"evaluations"`
	NextPageToken string                    `json:"nextPageToken,omitempty"`
}

// PrefixEntry pairs a tracked prefix with its latest status, if any
type PrefixEntry struct {
	Config models.PrefixConfig  `json:"config"`
	Status *models.PrefixStatus `json:"status,omitempty"`
}

// BucketPrefixes lists every tracked prefix of a bucket
type BucketPrefixes struct {
	Bucket   models.BucketInfo `json:"bucket"`
	Prefixes []PrefixEntry     `json:"prefixes"`
}

// Service reads prefix health from the stores
type Service struct {
	Buckets     store.BucketSource
	Configs     store.ConfigSource
	Statuses    store.StatusStore
	Evaluations store.EvaluationStore
}

// GetPrefixHealth returns bucket, config, latest status and one page of history.
// It returns store.ErrNotFound when the bucket or the prefix config is unknown.
func (s *Service) GetPrefixHealth(ctx context.Context, bucketName, prefix string, q store.EvaluationQuery) (*PrefixHealth, error) {
	bucket, err := s.Buckets.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s: %w", bucketName, store.ErrNotFound)
	}

	cfg, err := s.Configs.Get(ctx, bucketName, prefix)
	if err != nil {
		return nil, fmt.Errorf("get prefix config: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("prefix %s/%s: %w", bucketName, prefix, store.ErrNotFound)
	}

	status, err := s.Statuses.Get(ctx, bucketName, prefix)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	if q.Limit <= 0 {
		q.Limit = DefaultEvaluationsLimit
	}
	page, err := s.Evaluations.ListByPrefix(ctx, bucketName, prefix, q)
	if err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}

	return &PrefixHealth{
		Bucket:        *bucket,
		Config:        *cfg,
		Status:        status,
		Evaluations:   page.Items,
		NextPageToken: page.NextPageToken,
	}, nil
}

// GetBucketPrefixes returns every tracked prefix of a bucket joined with its
// latest status. Prefixes never evaluated have a nil Status.
func (s *Service) GetBucketPrefixes(ctx context.Context, bucketName string) (*BucketPrefixes, error) {
	bucket, err := s.Buckets.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s: %w", bucketName, store.ErrNotFound)
	}

	configs, err := s.Configs.ListByBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("list prefix configs: %w", err)
	}
	statuses, err := s.Statuses.ListByBucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}

	byPrefix := make(map[string]models.PrefixStatus, len(statuses))
	for _, st := range statuses {
		byPrefix[st.Prefix] = st
	}

	out := &BucketPrefixes{Bucket: *bucket, Prefixes: make([]PrefixEntry, 0, len(configs))}
	for _, cfg := range configs {
		entry := PrefixEntry{Config: cfg}
		if st, ok := byPrefix[cfg.Prefix]; ok {
			entry.Status = &st
		}
		out.Prefixes = append(out.Prefixes, entry)
	}
	return out, nil
}
