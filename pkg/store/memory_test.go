package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/bucketpulse/internal/models"
)

var t0 = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func sampleStatus() models.PrefixStatus {
	return models.PrefixStatus{
		BucketName:               "logs",
		Prefix:                   "app/",
		Status:                   models.StatusDegrading,
		StatusReason:             "Old data 75.0% exceeds threshold 50%.",
		LastEvaluatedAt:          t0,
		LastEventTime:            "2025-04-15 11:55:00.000",
		ObjectsCreatedLastWindow: 12,
		BytesCreatedLastWindow:   4096,
		ObjectsDeletedLastWindow: 1,
		BytesDeletedLastWindow:   10,
		TotalObjects:             1000,
		TotalBytes:               1 << 30,
		AgeHistogram:             &models.AgeHistogram{Age0To7: 100, Age7To30: 100, Age30To90: 50, Age90Plus: 750},
		StorageClassBreakdown:    map[string]int64{"STANDARD": 900, "GLACIER": 100},
	}
}

func TestMemoryStatusesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatuses()

	got, err := s.Get(ctx, "logs", "app/")
	require.NoError(t, err)
	assert.Nil(t, got)

	want := sampleStatus()
	require.NoError(t, s.Save(ctx, want))

	got, err = s.Get(ctx, "logs", "app/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	// callers cannot mutate stored state through returned values
	got.StorageClassBreakdown["STANDARD"] = 0
	got.AgeHistogram.Age90Plus = 0
	again, err := s.Get(ctx, "logs", "app/")
	require.NoError(t, err)
	assert.Equal(t, want, *again)
}

func TestMemoryStatusesOverwriteAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStatuses()

	first := sampleStatus()
	second := sampleStatus()
	second.Status = models.StatusOK
	other := sampleStatus()
	other.Prefix = "api/"
	foreign := sampleStatus()
	foreign.BucketName = "other"

	for _, st := range []models.PrefixStatus{first, second, other, foreign} {
		require.NoError(t, s.Save(ctx, st))
	}

	list, err := s.ListByBucket(ctx, "logs")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "api/", list[0].Prefix)
	assert.Equal(t, "app/", list[1].Prefix)
	assert.Equal(t, models.StatusOK, list[1].Status)
}

func TestMemoryEvaluationsPaging(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryEvaluations()

	for i := 0; i < 5; i++ {
		st := sampleStatus()
		st.LastEvaluatedAt = t0.Add(time.Duration(i) * 5 * time.Minute)
		require.NoError(t, s.Save(ctx, st.Evaluation()))
	}

	page, err := s.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, t0.Add(20*time.Minute), page.Items[0].EvaluatedAt)
	assert.Equal(t, t0.Add(15*time.Minute), page.Items[1].EvaluatedAt)
	require.NotEmpty(t, page.NextPageToken)

	page, err = s.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{Limit: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, t0.Add(10*time.Minute), page.Items[0].EvaluatedAt)

	page, err = s.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{Limit: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.NextPageToken)
}

func TestMemoryEvaluationsSince(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryEvaluations()
	for i := 0; i < 4; i++ {
		st := sampleStatus()
		st.LastEvaluatedAt = t0.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Save(ctx, st.Evaluation()))
	}

	page, err := s.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{Since: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Empty(t, page.NextPageToken)

	_, err = s.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{PageToken: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestMemoryDeletes(t *testing.T) {
	ctx := context.Background()

	statuses := NewMemoryStatuses()
	require.NoError(t, statuses.Save(ctx, sampleStatus()))
	require.NoError(t, statuses.Delete(ctx, "logs", "app/"))
	got, err := statuses.Get(ctx, "logs", "app/")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, statuses.Delete(ctx, "logs", "app/"), "deleting a missing status")

	evaluations := NewMemoryEvaluations()
	for i := 0; i < 3; i++ {
		st := sampleStatus()
		st.LastEvaluatedAt = t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, evaluations.Save(ctx, st.Evaluation()))
	}
	require.NoError(t, evaluations.Delete(ctx, "logs", "app/", t0.Add(time.Minute)))

	page, err := evaluations.ListByPrefix(ctx, "logs", "app/", EvaluationQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, t0.Add(2*time.Minute), page.Items[0].EvaluatedAt)
	assert.Equal(t, t0, page.Items[1].EvaluatedAt)
}

func TestMemoryAlerts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAlerts(func() time.Time { return t0 })

	created := make([]models.Alert, 0, 3)
	for _, sev := range []models.Severity{models.SeverityWarn, models.SeverityCritical, models.SeverityWarn} {
		a, err := s.Create(ctx, models.Alert{BucketName: "logs", Prefix: "app/", Severity: sev, Type: models.AlertTypeFreshness})
		require.NoError(t, err)
		assert.NotEmpty(t, a.AlertID)
		assert.Equal(t, t0, a.CreatedAt)
		created = append(created, a)
	}

	page, err := s.ListAlerts(ctx, models.AlertFilter{Severity: models.SeverityWarn})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, created[2].AlertID, page.Items[0].AlertID, "newest first")

	page, err = s.ListAlerts(ctx, models.AlertFilter{BucketName: "logs", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextPageToken)
	page, err = s.ListAlerts(ctx, models.AlertFilter{BucketName: "logs", Limit: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Empty(t, page.NextPageToken)

	require.NoError(t, s.MarkResolved(ctx, created[0].AlertID))
	page, err = s.ListAlerts(ctx, models.AlertFilter{})
	require.NoError(t, err)
	assert.True(t, page.Items[2].Resolved)

	assert.ErrorIs(t, s.MarkResolved(ctx, "missing"), ErrNotFound)
}

func TestMemoryConfigsAndBuckets(t *testing.T) {
	ctx := context.Background()
	configs := NewMemoryConfigs(
		models.PrefixConfig{BucketName: "logs", Prefix: "app/"},
		models.PrefixConfig{BucketName: "logs", Prefix: "api/"},
		models.PrefixConfig{BucketName: "media", Prefix: "img/"},
	)
	all, err := configs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byBucket, err := configs.ListByBucket(ctx, "logs")
	require.NoError(t, err)
	assert.Len(t, byBucket, 2)

	cfg, err := configs.Get(ctx, "media", "img/")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	cfg, err = configs.Get(ctx, "media", "nope/")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	buckets := NewMemoryBuckets(models.BucketInfo{BucketName: "logs"}, models.BucketInfo{BucketName: "audit"})
	b, err := buckets.GetBucket(ctx, "logs")
	require.NoError(t, err)
	require.NotNil(t, b)
	b, err = buckets.GetBucket(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)

	list, err := buckets.ListBuckets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "audit", list[0].BucketName)
}

func TestTypedErrors(t *testing.T) {
	cause := errors.New("throttled")
	err := ReadError("bp_prefix_status", cause)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrWrite)
	assert.Contains(t, err.Error(), "bp_prefix_status")

	err = WriteError("bp_alerts", cause)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, cause)
}

func TestPageTokenRoundTrip(t *testing.T) {
	key := map[string]string{"bucket_prefix": "logs#app/", "evaluated_at": "2025-04-15T12:00:00.000Z"}
	token := EncodePageToken(key)
	got, err := DecodePageToken(token)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	assert.Empty(t, EncodePageToken(nil))
	got, err = DecodePageToken("")
	require.NoError(t, err)
	assert.Nil(t, got)
}
