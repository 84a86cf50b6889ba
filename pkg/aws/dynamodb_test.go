package aws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/store"
)

var testTables = TableNames{
	Buckets:             "bp_buckets",
	PrefixConfig:        "bp_prefix_config",
	PrefixStatus:        "bp_prefix_status",
	PrefixEvaluations:   "bp_prefix_evaluations",
	Alerts:              "bp_alerts",
	AlertsByBucketIndex: "byBucket",
}

// fakeDynamo keeps put items per table and answers GetItem by matching every
// key attribute. Query and Scan return canned output and record their input.
type fakeDynamo struct {
	mu        sync.Mutex
	items     map[string][]map[string]types.AttributeValue
	queryOut  *dynamodb.QueryOutput
	scanOut   *dynamodb.ScanOutput
	queries   []*dynamodb.QueryInput
	scans     []*dynamodb.ScanInput
	puts      []*dynamodb.PutItemInput
	updates   []*dynamodb.UpdateItemInput
	deletes   []*dynamodb.DeleteItemInput
	err       error
	updateErr error
	describe  map[string]types.TableStatus
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string][]map[string]types.AttributeValue{}}
}

func attrString(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items[aws.ToString(in.TableName)] {
		match := true
		for k, v := range in.Key {
			if attrString(item[k]) != attrString(v) {
				match = false
			}
		}
		if match {
			return &dynamodb.GetItemOutput{Item: item}, nil
		}
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	table := aws.ToString(in.TableName)
	f.items[table] = append(f.items[table], in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, in)
	table := aws.ToString(in.TableName)
	kept := f.items[table][:0]
	for _, item := range f.items[table] {
		match := true
		for k, v := range in.Key {
			if attrString(item[k]) != attrString(v) {
				match = false
			}
		}
		if !match {
			kept = append(kept, item)
		}
	}
	f.items[table] = kept
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	if f.queryOut == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOut, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	if f.scanOut == nil {
		return &dynamodb.ScanOutput{}, nil
	}
	return f.scanOut, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	status, ok := f.describe[aws.ToString(in.TableName)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: status}}, nil
}

func sampleStatus() models.PrefixStatus {
	return models.PrefixStatus{
		BucketName:               "data-bucket",
		Prefix:                   "logs/appA/",
		Status:                   models.StatusDegrading,
		StatusReason:             "Last event 45 minutes ago (warning threshold: 30m)",
		LastEvaluatedAt:          time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC),
		LastEventTime:            "2025-01-02 02:19:05.000",
		ObjectsCreatedLastWindow: 10,
		BytesCreatedLastWindow:   2048,
		ObjectsDeletedLastWindow: 1,
		BytesDeletedLastWindow:   512,
		TotalObjects:             100,
		TotalBytes:               1 << 20,
		AgeHistogram:             &models.AgeHistogram{Age0To7: 40, Age7To30: 30, Age30To90: 20, Age90Plus: 10},
		StorageClassBreakdown:    map[string]int64{"STANDARD": 90, "GLACIER": 10},
	}
}

func TestStatusItemRoundTrip(t *testing.T) {
	want := sampleStatus()

	item, err := attributevalue.MarshalMap(newStatusItem(want))
	require.NoError(t, err)
	assert.Contains(t, item, "age_histogram")
	assert.Contains(t, item, "storage_class_breakdown")
	assert.Equal(t, "2025-01-02T03:04:05.678Z", attrString(item["last_evaluated_at"]))

	var decoded statusItem
	require.NoError(t, attributevalue.UnmarshalMap(item, &decoded))
	assert.Equal(t, want, decoded.toModel())
}

func TestEvaluationItemKeys(t *testing.T) {
	eval := sampleStatus().Evaluation()

	item, err := marshalEvaluation(eval)
	require.NoError(t, err)
	assert.Equal(t, "data-bucket#logs/appA/", attrString(item["bucket_prefix"]))
	assert.Equal(t, "2025-01-02T03:04:05.678Z", attrString(item["evaluated_at"]))
	assert.Equal(t, "DEGRADING", attrString(item["status"]))

	got, err := unmarshalEvaluation(item)
	require.NoError(t, err)
	assert.Equal(t, eval, got)
}

func TestBucketItemDefaults(t *testing.T) {
	got := bucketItem{BucketName: "b"}.toModel()
	assert.Equal(t, "us-east-1", got.Region)
	assert.Equal(t, models.StatusUnknown, got.Status)
}

func TestDynamoStatusesSaveAndGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)

	missing, err := stores.Statuses.Get(ctx, "data-bucket", "logs/appA/")
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := sampleStatus()
	require.NoError(t, stores.Statuses.Save(ctx, want))
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "bp_prefix_status", aws.ToString(fake.puts[0].TableName))

	got, err := stores.Statuses.Get(ctx, "data-bucket", "logs/appA/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestDynamoStatusRoundTripWithSubMillisecondClock(t *testing.T) {
	ctx := context.Background()
	stores := NewDynamoStoresWithClient(newFakeDynamo(), testTables)

	clock := time.Date(2025, 1, 2, 3, 4, 5, 678_901_234, time.UTC)
	cfg := models.PrefixConfig{BucketName: "data-bucket", Prefix: "logs/appA/"}
	want := models.NewPrefixStatus(cfg, models.JournalMetrics{LastEventTime: "2025-01-02 03:00:00.000"},
		models.InventoryMetrics{
			TotalObjects:          3,
			AgeHistogram:          &models.AgeHistogram{Age0To7: 3},
			StorageClassBreakdown: map[string]int64{"STANDARD": 3},
		}, models.StatusOK, "Healthy", clock)

	require.NoError(t, stores.Statuses.Save(ctx, want))
	require.NoError(t, stores.Evaluations.Save(ctx, want.Evaluation()))

	got, err := stores.Statuses.Get(ctx, "data-bucket", "logs/appA/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 678_000_000, time.UTC), got.LastEvaluatedAt)

	item, err := marshalEvaluation(want.Evaluation())
	require.NoError(t, err)
	eval, err := unmarshalEvaluation(item)
	require.NoError(t, err)
	assert.Equal(t, want.Evaluation(), eval)
}

func TestDynamoDeletes(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)
	st := sampleStatus()

	require.NoError(t, stores.Statuses.Save(ctx, st))
	require.NoError(t, stores.Evaluations.Save(ctx, st.Evaluation()))

	require.NoError(t, stores.Statuses.Delete(ctx, "data-bucket", "logs/appA/"))
	require.NoError(t, stores.Evaluations.Delete(ctx, "data-bucket", "logs/appA/", st.LastEvaluatedAt))

	require.Len(t, fake.deletes, 2)
	assert.Equal(t, "bp_prefix_status", aws.ToString(fake.deletes[0].TableName))
	assert.Equal(t, "logs/appA/", attrString(fake.deletes[0].Key["prefix"]))
	assert.Equal(t, "bp_prefix_evaluations", aws.ToString(fake.deletes[1].TableName))
	assert.Equal(t, "data-bucket#logs/appA/", attrString(fake.deletes[1].Key["bucket_prefix"]))
	assert.Equal(t, "2025-01-02T03:04:05.678Z", attrString(fake.deletes[1].Key["evaluated_at"]))
	assert.Empty(t, fake.items["bp_prefix_status"])
	assert.Empty(t, fake.items["bp_prefix_evaluations"])

	fake.err = errors.New("throttled")
	assert.ErrorIs(t, stores.Statuses.Delete(ctx, "data-bucket", "logs/appA/"), store.ErrWrite)
}

func TestDynamoBucketsAndConfigs(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)

	bucket, err := attributevalue.MarshalMap(bucketItem{BucketName: "data-bucket", Region: "ap-northeast-2", JournalTablesEnabled: true})
	require.NoError(t, err)
	cfg, err := attributevalue.MarshalMap(configItem{BucketName: "data-bucket", Prefix: "logs/", FreshnessWarningThresholdMinutes: 30})
	require.NoError(t, err)
	fake.items["bp_buckets"] = append(fake.items["bp_buckets"], bucket)
	fake.items["bp_prefix_config"] = append(fake.items["bp_prefix_config"], cfg)
	fake.scanOut = &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{cfg}}

	b, err := stores.Buckets.GetBucket(ctx, "data-bucket")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "ap-northeast-2", b.Region)
	assert.True(t, b.JournalTablesEnabled)

	c, err := stores.Configs.Get(ctx, "data-bucket", "logs/")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 30, c.FreshnessWarningThresholdMinutes)

	all, err := stores.Configs.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "logs/", all[0].Prefix)
}

func TestDynamoReadErrorIsTyped(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throttled")
	stores := NewDynamoStoresWithClient(fake, testTables)

	_, err := stores.Configs.ListAll(context.Background())
	assert.ErrorIs(t, err, store.ErrRead)
	assert.Contains(t, err.Error(), "bp_prefix_config")

	err = stores.Statuses.Save(context.Background(), sampleStatus())
	assert.ErrorIs(t, err, store.ErrWrite)
}

func TestDynamoEvaluationsListByPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)

	item, err := marshalEvaluation(sampleStatus().Evaluation())
	require.NoError(t, err)
	lastKey, err := stringKey("bucket_prefix", "data-bucket#logs/appA/", "evaluated_at", "2025-01-02T03:04:05.678Z")
	require.NoError(t, err)
	fake.queryOut = &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}, LastEvaluatedKey: lastKey}

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	page, err := stores.Evaluations.ListByPrefix(ctx, "data-bucket", "logs/appA/", store.EvaluationQuery{Limit: 1, Since: since})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StatusDegrading, page.Items[0].Status)
	require.NotEmpty(t, page.NextPageToken)

	in := fake.queries[0]
	assert.Equal(t, "#pk = :pk AND #sk >= :since", aws.ToString(in.KeyConditionExpression))
	assert.Equal(t, "2025-01-01T00:00:00.000Z", attrString(in.ExpressionAttributeValues[":since"]))
	assert.False(t, aws.ToBool(in.ScanIndexForward))
	assert.Equal(t, int32(1), aws.ToInt32(in.Limit))
	assert.Nil(t, in.ExclusiveStartKey)

	// The token resumes from the last evaluated key
	_, err = stores.Evaluations.ListByPrefix(ctx, "data-bucket", "logs/appA/", store.EvaluationQuery{PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Equal(t, lastKey, fake.queries[1].ExclusiveStartKey)
	assert.Equal(t, "#pk = :pk", aws.ToString(fake.queries[1].KeyConditionExpression))
}

func TestDynamoEvaluationsRejectsBadToken(t *testing.T) {
	stores := NewDynamoStoresWithClient(newFakeDynamo(), testTables)
	_, err := stores.Evaluations.ListByPrefix(context.Background(), "b", "p", store.EvaluationQuery{PageToken: "%%%"})
	assert.ErrorIs(t, err, store.ErrInvalidPageToken)
}

func TestDynamoAlertsCreateAssignsIdentity(t *testing.T) {
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	stores.Alerts.now = func() time.Time { return now }

	created, err := stores.Alerts.Create(context.Background(), models.Alert{
		BucketName: "data-bucket",
		Prefix:     "logs/",
		Type:       models.AlertTypeFreshness,
		Severity:   models.SeverityCritical,
		Message:    "stalled",
		Details:    map[string]any{"status": "STALLED"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.AlertID)
	assert.Equal(t, now, created.CreatedAt)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "attribute_not_exists(alert_id)", aws.ToString(fake.puts[0].ConditionExpression))
	assert.Equal(t, "2025-01-02T03:04:05.000Z", attrString(fake.puts[0].Item["created_at"]))
}

func TestDynamoAlertsListUsesBucketIndex(t *testing.T) {
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)
	item, err := attributevalue.MarshalMap(alertItem{AlertID: "a1", BucketName: "data-bucket", Severity: "WARN", Type: "FRESHNESS", CreatedAt: "2025-01-02T03:04:05.000Z"})
	require.NoError(t, err)
	fake.queryOut = &dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}

	page, err := stores.Alerts.ListAlerts(context.Background(), models.AlertFilter{
		BucketName: "data-bucket",
		Severity:   models.SeverityWarn,
		Since:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a1", page.Items[0].AlertID)
	assert.Empty(t, page.NextPageToken)

	require.Len(t, fake.queries, 1)
	in := fake.queries[0]
	assert.Equal(t, "byBucket", aws.ToString(in.IndexName))
	assert.Equal(t, "#b = :b AND #created >= :created", aws.ToString(in.KeyConditionExpression))
	assert.Equal(t, "#s = :s", aws.ToString(in.FilterExpression))
	assert.Equal(t, "severity", in.ExpressionAttributeNames["#s"])
	assert.False(t, aws.ToBool(in.ScanIndexForward))
	assert.Empty(t, fake.scans)
}

func TestDynamoAlertsListScansWithoutBucket(t *testing.T) {
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)

	_, err := stores.Alerts.ListAlerts(context.Background(), models.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, fake.scans, 1)
	assert.Nil(t, fake.scans[0].FilterExpression)
	assert.Nil(t, fake.scans[0].ExpressionAttributeNames)

	_, err = stores.Alerts.ListAlerts(context.Background(), models.AlertFilter{
		Type:  models.AlertTypeDeleteSpike,
		Since: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "#created BETWEEN :since AND :until AND #t = :t", aws.ToString(fake.scans[1].FilterExpression))
}

func TestDynamoAlertsMarkResolved(t *testing.T) {
	fake := newFakeDynamo()
	stores := NewDynamoStoresWithClient(fake, testTables)

	require.NoError(t, stores.Alerts.MarkResolved(context.Background(), "a1"))
	require.Len(t, fake.updates, 1)
	assert.Equal(t, "attribute_exists(alert_id)", aws.ToString(fake.updates[0].ConditionExpression))
	assert.Equal(t, "a1", attrString(fake.updates[0].Key["alert_id"]))

	fake.updateErr = &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
	err := stores.Alerts.MarkResolved(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	fake.updateErr = errors.New("boom")
	err = stores.Alerts.MarkResolved(context.Background(), "a1")
	assert.ErrorIs(t, err, store.ErrWrite)
}

func TestCheckTables(t *testing.T) {
	fake := newFakeDynamo()
	fake.describe = map[string]types.TableStatus{
		"bp_buckets":            types.TableStatusActive,
		"bp_prefix_config":      types.TableStatusActive,
		"bp_prefix_status":      types.TableStatusCreating,
		"bp_prefix_evaluations": types.TableStatusActive,
	}

	results := CheckTables(context.Background(), fake, testTables)
	require.Len(t, results, 5)
	assert.NoError(t, results["bp_buckets"])
	assert.Error(t, results["bp_prefix_status"])
	assert.Error(t, results["bp_alerts"])
}
