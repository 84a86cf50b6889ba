package store

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/younsl/bucketpulse/internal/models"
)

// statusKey identifies a (bucket, prefix) pair
type statusKey struct {
	bucket string
	prefix string
}

// MemoryConfigs is a ConfigSource over a fixed list
type MemoryConfigs struct {
	mu      sync.RWMutex
	configs []models.PrefixConfig
}

// NewMemoryConfigs returns a config source seeded with configs
func NewMemoryConfigs(configs ...models.PrefixConfig) *MemoryConfigs {
	return &MemoryConfigs{configs: append([]models.PrefixConfig(nil), configs...)}
}

func (m *MemoryConfigs) ListAll(_ context.Context) ([]models.PrefixConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.PrefixConfig(nil), m.configs...), nil
}

func (m *MemoryConfigs) ListByBucket(_ context.Context, bucketName string) ([]models.PrefixConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PrefixConfig
	for _, c := range m.configs {
		if c.BucketName == bucketName {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryConfigs) Get(_ context.Context, bucketName, prefix string) (*models.PrefixConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.configs {
		if c.BucketName == bucketName && c.Prefix == prefix {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// MemoryBuckets is a BucketSource over a fixed list
type MemoryBuckets struct {
	mu      sync.RWMutex
	buckets map[string]models.BucketInfo
}

// NewMemoryBuckets returns a bucket source seeded with buckets
func NewMemoryBuckets(buckets ...models.BucketInfo) *MemoryBuckets {
	m := &MemoryBuckets{buckets: make(map[string]models.BucketInfo, len(buckets))}
	for _, b := range buckets {
		m.buckets[b.BucketName] = b
	}
	return m
}

func (m *MemoryBuckets) GetBucket(_ context.Context, bucketName string) (*models.BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[bucketName]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MemoryBuckets) ListBuckets(_ context.Context) ([]models.BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.BucketInfo, 0, len(m.buckets))
	for _, b := range m.buckets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketName < out[j].BucketName })
	return out, nil
}

// MemoryStatuses is a last-write-wins StatusStore
type MemoryStatuses struct {
	mu       sync.RWMutex
	statuses map[statusKey]models.PrefixStatus
}

func NewMemoryStatuses() *MemoryStatuses {
	return &MemoryStatuses{statuses: make(map[statusKey]models.PrefixStatus)}
}

func (m *MemoryStatuses) Get(_ context.Context, bucketName, prefix string) (*models.PrefixStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[statusKey{bucketName, prefix}]
	if !ok {
		return nil, nil
	}
	out := s.Clone()
	return &out, nil
}

func (m *MemoryStatuses) Save(_ context.Context, status models.PrefixStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[statusKey{status.BucketName, status.Prefix}] = status.Clone()
	return nil
}

func (m *MemoryStatuses) Delete(_ context.Context, bucketName, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, statusKey{bucketName, prefix})
	return nil
}

func (m *MemoryStatuses) ListByBucket(_ context.Context, bucketName string) ([]models.PrefixStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.PrefixStatus
	for k, s := range m.statuses {
		if k.bucket == bucketName {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prefix < out[j].Prefix })
	return out, nil
}

// MemoryEvaluations is an append-only EvaluationStore
type MemoryEvaluations struct {
	mu    sync.RWMutex
	items map[statusKey][]models.PrefixEvaluation
}

func NewMemoryEvaluations() *MemoryEvaluations {
	return &MemoryEvaluations{items: make(map[statusKey][]models.PrefixEvaluation)}
}

func (m *MemoryEvaluations) Save(_ context.Context, evaluation models.PrefixEvaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := statusKey{evaluation.BucketName, evaluation.Prefix}
	evaluation.PrefixStatus = evaluation.PrefixStatus.Clone()
	m.items[k] = append(m.items[k], evaluation)
	return nil
}

func (m *MemoryEvaluations) Delete(_ context.Context, bucketName, prefix string, evaluatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := statusKey{bucketName, prefix}
	m.items[k] = slices.DeleteFunc(m.items[k], func(e models.PrefixEvaluation) bool {
		return e.EvaluatedAt.Equal(evaluatedAt)
	})
	return nil
}

// ListByPrefix returns evaluations newest first. The page token resumes after
// the last returned evaluation time.
func (m *MemoryEvaluations) ListByPrefix(_ context.Context, bucketName, prefix string, q EvaluationQuery) (EvaluationPage, error) {
	key, err := DecodePageToken(q.PageToken)
	if err != nil {
		return EvaluationPage{}, err
	}
	var after time.Time
	if v, ok := key["evaluated_at"]; ok {
		if after, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return EvaluationPage{}, ErrInvalidPageToken
		}
	}

	m.mu.RLock()
	all := append([]models.PrefixEvaluation(nil), m.items[statusKey{bucketName, prefix}]...)
	m.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return all[i].EvaluatedAt.After(all[j].EvaluatedAt) })

	var page EvaluationPage
	for _, e := range all {
		if !q.Since.IsZero() && e.EvaluatedAt.Before(q.Since) {
			continue
		}
		if !after.IsZero() && !e.EvaluatedAt.Before(after) {
			continue
		}
		if q.Limit > 0 && len(page.Items) == q.Limit {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = EncodePageToken(map[string]string{
				"evaluated_at": last.EvaluatedAt.Format(time.RFC3339Nano),
			})
			break
		}
		e.PrefixStatus = e.PrefixStatus.Clone()
		page.Items = append(page.Items, e)
	}
	return page, nil
}

// MemoryAlerts is an append-only AlertStore
type MemoryAlerts struct {
	mu     sync.RWMutex
	alerts []models.Alert
	now    func() time.Time
}

// NewMemoryAlerts returns an empty alert store. now may be nil.
func NewMemoryAlerts(now func() time.Time) *MemoryAlerts {
	if now == nil {
		now = time.Now
	}
	return &MemoryAlerts{now: now}
}

func (m *MemoryAlerts) Create(_ context.Context, alert models.Alert) (models.Alert, error) {
	alert.AlertID = uuid.NewString()
	alert.CreatedAt = m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return alert, nil
}

// ListAlerts returns matching alerts newest first
func (m *MemoryAlerts) ListAlerts(_ context.Context, filter models.AlertFilter) (AlertPage, error) {
	key, err := DecodePageToken(filter.PageToken)
	if err != nil {
		return AlertPage{}, err
	}
	offset := 0
	if v, ok := key["offset"]; ok {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return AlertPage{}, ErrInvalidPageToken
		}
	}

	m.mu.RLock()
	var matched []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if filter.Matches(m.alerts[i]) {
			matched = append(matched, m.alerts[i])
		}
	}
	m.mu.RUnlock()

	if offset >= len(matched) {
		return AlertPage{}, nil
	}
	matched = matched[offset:]
	var page AlertPage
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
		page.NextPageToken = EncodePageToken(map[string]string{"offset": strconv.Itoa(offset + filter.Limit)})
	}
	page.Items = matched
	return page, nil
}

func (m *MemoryAlerts) MarkResolved(_ context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].AlertID == alertID {
			m.alerts[i].Resolved = true
			return nil
		}
	}
	return ErrNotFound
}
