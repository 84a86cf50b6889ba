package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/store"
)

var t0 = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()

	statuses := store.NewMemoryStatuses()
	evaluations := store.NewMemoryEvaluations()
	for i := 0; i < 25; i++ {
		st := models.PrefixStatus{
			BucketName:      "logs",
			Prefix:          "app/",
			Status:          models.StatusOK,
			StatusReason:    "Healthy",
			LastEvaluatedAt: t0.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, statuses.Save(ctx, st))
		require.NoError(t, evaluations.Save(ctx, st.Evaluation()))
	}

	return &Service{
		Buckets: store.NewMemoryBuckets(models.BucketInfo{BucketName: "logs", Region: "us-east-1"}),
		Configs: store.NewMemoryConfigs(
			models.PrefixConfig{BucketName: "logs", Prefix: "app/"},
			models.PrefixConfig{BucketName: "logs", Prefix: "new/"},
		),
		Statuses:    statuses,
		Evaluations: evaluations,
	}
}

func TestGetPrefixHealth(t *testing.T) {
	svc := newService(t)

	h, err := svc.GetPrefixHealth(context.Background(), "logs", "app/", store.EvaluationQuery{})
	require.NoError(t, err)
	assert.Equal(t, "logs", h.Bucket.BucketName)
	assert.Equal(t, "app/", h.Config.Prefix)
	require.NotNil(t, h.Status)
	assert.Equal(t, t0.Add(24*time.Minute), h.Status.LastEvaluatedAt)
	assert.Len(t, h.Evaluations, DefaultEvaluationsLimit)
	assert.NotEmpty(t, h.NextPageToken)

	next, err := svc.GetPrefixHealth(context.Background(), "logs", "app/", store.EvaluationQuery{PageToken: h.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, next.Evaluations, 5)
	assert.Empty(t, next.NextPageToken)
}

func TestGetPrefixHealthWithoutStatus(t *testing.T) {
	h, err := newService(t).GetPrefixHealth(context.Background(), "logs", "new/", store.EvaluationQuery{Limit: 5})
	require.NoError(t, err)
	assert.Nil(t, h.Status)
	assert.Empty(t, h.Evaluations)
}

func TestGetPrefixHealthNotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.GetPrefixHealth(context.Background(), "missing", "app/", store.EvaluationQuery{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.GetPrefixHealth(context.Background(), "logs", "untracked/", store.EvaluationQuery{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetBucketPrefixes(t *testing.T) {
	svc := newService(t)

	out, err := svc.GetBucketPrefixes(context.Background(), "logs")
	require.NoError(t, err)
	require.Len(t, out.Prefixes, 2)

	byPrefix := map[string]PrefixEntry{}
	for _, p := range out.Prefixes {
		byPrefix[p.Config.Prefix] = p
	}
	require.NotNil(t, byPrefix["app/"].Status)
	assert.Equal(t, models.StatusOK, byPrefix["app/"].Status.Status)
	assert.Nil(t, byPrefix["new/"].Status)

	_, err = svc.GetBucketPrefixes(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
