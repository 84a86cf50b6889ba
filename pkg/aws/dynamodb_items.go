package aws

import (
	"maps"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// Item layouts match the bp_* tables: snake_case attributes, ISO-8601 timestamps.

type bucketItem struct {
	BucketName            string `dynamodbav:"bucket_name"`
	DisplayName           string `dynamodbav:"display_name,omitempty"`
	Region                string `dynamodbav:"region,omitempty"`
	MetadataTablesEnabled bool   `dynamodbav:"metadata_tables_enabled"`
	JournalTablesEnabled  bool   `dynamodbav:"journal_tables_enabled"`
	InventoryTableName    string `dynamodbav:"inventory_table_name,omitempty"`
	JournalTableName      string `dynamodbav:"journal_table_name,omitempty"`
	MetadataTablesARN     string `dynamodbav:"metadata_tables_arn,omitempty"`
	CreatedAt             string `dynamodbav:"created_at,omitempty"`
	Status                string `dynamodbav:"status,omitempty"`
	TotalObjects          int64  `dynamodbav:"total_objects,omitempty"`
	TotalBytes            int64  `dynamodbav:"total_bytes,omitempty"`
	TrackedPrefixesCount  int    `dynamodbav:"tracked_prefixes_count,omitempty"`
}

func (it bucketItem) toModel() models.BucketInfo {
	createdAt, _ := utils.ParseISO(it.CreatedAt)
	b := models.BucketInfo{
		BucketName:            it.BucketName,
		DisplayName:           it.DisplayName,
		Region:                it.Region,
		CreatedAt:             createdAt,
		MetadataTablesEnabled: it.MetadataTablesEnabled,
		JournalTablesEnabled:  it.JournalTablesEnabled,
		MetadataTablesARN:     it.MetadataTablesARN,
		InventoryTableName:    it.InventoryTableName,
		JournalTableName:      it.JournalTableName,
		Status:                models.StatusCode(it.Status),
		TotalObjects:          it.TotalObjects,
		TotalBytes:            it.TotalBytes,
		TrackedPrefixesCount:  it.TrackedPrefixesCount,
	}
	if b.Region == "" {
		b.Region = "us-east-1"
	}
	if b.Status == "" {
		b.Status = models.StatusUnknown
	}
	return b
}

type configItem struct {
	BucketName                        string  `dynamodbav:"bucket_name"`
	Prefix                            string  `dynamodbav:"prefix"`
	FreshnessExpectedIntervalMinutes  int     `dynamodbav:"freshness_expected_interval_minutes"`
	FreshnessWarningThresholdMinutes  int     `dynamodbav:"freshness_warning_threshold_minutes"`
	FreshnessCriticalThresholdMinutes int     `dynamodbav:"freshness_critical_threshold_minutes"`
	StalenessAgeDays                  int     `dynamodbav:"staleness_age_days"`
	StalenessMaxPctOld                float64 `dynamodbav:"staleness_max_pct_old"`
	PartitionPattern                  string  `dynamodbav:"partition_pattern,omitempty"`
	CreatedAt                         string  `dynamodbav:"created_at,omitempty"`
	UpdatedAt                         string  `dynamodbav:"updated_at,omitempty"`
}

func (it configItem) toModel() models.PrefixConfig {
	createdAt, _ := utils.ParseISO(it.CreatedAt)
	updatedAt, _ := utils.ParseISO(it.UpdatedAt)
	return models.PrefixConfig{
		BucketName:                        it.BucketName,
		Prefix:                            it.Prefix,
		FreshnessExpectedIntervalMinutes:  it.FreshnessExpectedIntervalMinutes,
		FreshnessWarningThresholdMinutes:  it.FreshnessWarningThresholdMinutes,
		FreshnessCriticalThresholdMinutes: it.FreshnessCriticalThresholdMinutes,
		StalenessAgeDays:                  it.StalenessAgeDays,
		StalenessMaxPctOld:                it.StalenessMaxPctOld,
		PartitionPattern:                  it.PartitionPattern,
		CreatedAt:                         createdAt,
		UpdatedAt:                         updatedAt,
	}
}

type ageHistogramItem struct {
	Age0To7   int64 `dynamodbav:"0_7"`
	Age7To30  int64 `dynamodbav:"7_30"`
	Age30To90 int64 `dynamodbav:"30_90"`
	Age90Plus int64 `dynamodbav:"90_plus"`
}

type statusItem struct {
	BucketName               string            `dynamodbav:"bucket_name"`
	Prefix                   string            `dynamodbav:"prefix"`
	Status                   string            `dynamodbav:"status"`
	StatusReason             string            `dynamodbav:"status_reason,omitempty"`
	LastEvaluatedAt          string            `dynamodbav:"last_evaluated_at"`
	LastEventTime            string            `dynamodbav:"last_event_time,omitempty"`
	ObjectsCreatedLastWindow int64             `dynamodbav:"objects_created_last_window"`
	BytesCreatedLastWindow   int64             `dynamodbav:"bytes_created_last_window"`
	ObjectsDeletedLastWindow int64             `dynamodbav:"objects_deleted_last_window"`
	BytesDeletedLastWindow   int64             `dynamodbav:"bytes_deleted_last_window"`
	TotalObjects             int64             `dynamodbav:"total_objects"`
	TotalBytes               int64             `dynamodbav:"total_bytes"`
	AgeHistogram             *ageHistogramItem `dynamodbav:"age_histogram"`
	StorageClassBreakdown    map[string]int64  `dynamodbav:"storage_class_breakdown"`
}

func newStatusItem(s models.PrefixStatus) statusItem {
	it := statusItem{
		BucketName:               s.BucketName,
		Prefix:                   s.Prefix,
		Status:                   string(s.Status),
		StatusReason:             s.StatusReason,
		LastEvaluatedAt:          utils.FormatISO(s.LastEvaluatedAt),
		LastEventTime:            s.LastEventTime,
		ObjectsCreatedLastWindow: s.ObjectsCreatedLastWindow,
		BytesCreatedLastWindow:   s.BytesCreatedLastWindow,
		ObjectsDeletedLastWindow: s.ObjectsDeletedLastWindow,
		BytesDeletedLastWindow:   s.BytesDeletedLastWindow,
		TotalObjects:             s.TotalObjects,
		TotalBytes:               s.TotalBytes,
		StorageClassBreakdown:    s.StorageClassBreakdown,
	}
	if h := s.AgeHistogram; h != nil {
		it.AgeHistogram = &ageHistogramItem{Age0To7: h.Age0To7, Age7To30: h.Age7To30, Age30To90: h.Age30To90, Age90Plus: h.Age90Plus}
	}
	return it
}

func (it statusItem) toModel() models.PrefixStatus {
	lastEvaluatedAt, _ := utils.ParseISO(it.LastEvaluatedAt)
	s := models.PrefixStatus{
		BucketName:               it.BucketName,
		Prefix:                   it.Prefix,
		Status:                   models.StatusCode(it.Status),
		StatusReason:             it.StatusReason,
		LastEvaluatedAt:          lastEvaluatedAt,
		LastEventTime:            it.LastEventTime,
		ObjectsCreatedLastWindow: it.ObjectsCreatedLastWindow,
		BytesCreatedLastWindow:   it.BytesCreatedLastWindow,
		ObjectsDeletedLastWindow: it.ObjectsDeletedLastWindow,
		BytesDeletedLastWindow:   it.BytesDeletedLastWindow,
		TotalObjects:             it.TotalObjects,
		TotalBytes:               it.TotalBytes,
		StorageClassBreakdown:    it.StorageClassBreakdown,
	}
	if h := it.AgeHistogram; h != nil {
		s.AgeHistogram = &models.AgeHistogram{Age0To7: h.Age0To7, Age7To30: h.Age7To30, Age30To90: h.Age30To90, Age90Plus: h.Age90Plus}
	}
	return s
}

// evaluationKeys are the key attributes added to a status item in bp_prefix_evaluations
type evaluationKeys struct {
	BucketPrefix string `dynamodbav:"bucket_prefix"`
	EvaluatedAt  string `dynamodbav:"evaluated_at"`
}

func evaluationKey(bucketName, prefix string) string {
	return bucketName + "#" + prefix
}

func marshalEvaluation(e models.PrefixEvaluation) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(newStatusItem(e.PrefixStatus))
	if err != nil {
		return nil, err
	}
	keys, err := attributevalue.MarshalMap(evaluationKeys{
		BucketPrefix: evaluationKey(e.BucketName, e.Prefix),
		EvaluatedAt:  utils.FormatISO(e.EvaluatedAt),
	})
	if err != nil {
		return nil, err
	}
	maps.Copy(item, keys)
	return item, nil
}

func unmarshalEvaluation(item map[string]types.AttributeValue) (models.PrefixEvaluation, error) {
	var status statusItem
	if err := attributevalue.UnmarshalMap(item, &status); err != nil {
		return models.PrefixEvaluation{}, err
	}
	var keys evaluationKeys
	if err := attributevalue.UnmarshalMap(item, &keys); err != nil {
		return models.PrefixEvaluation{}, err
	}
	evaluatedAt, err := utils.ParseISO(keys.EvaluatedAt)
	if err != nil {
		return models.PrefixEvaluation{}, err
	}
	return models.PrefixEvaluation{PrefixStatus: status.toModel(), EvaluatedAt: evaluatedAt}, nil
}

type alertItem struct {
	AlertID    string         `dynamodbav:"alert_id"`
	BucketName string         `dynamodbav:"bucket_name"`
	Prefix     string         `dynamodbav:"prefix"`
	Type       string         `dynamodbav:"type"`
	Severity   string         `dynamodbav:"severity"`
	Message    string         `dynamodbav:"message"`
	Details    map[string]any `dynamodbav:"details,omitempty"`
	CreatedAt  string         `dynamodbav:"created_at"`
	Resolved   bool           `dynamodbav:"resolved"`
}

func newAlertItem(a models.Alert) alertItem {
	return alertItem{
		AlertID:    a.AlertID,
		BucketName: a.BucketName,
		Prefix:     a.Prefix,
		Type:       string(a.Type),
		Severity:   string(a.Severity),
		Message:    a.Message,
		Details:    a.Details,
		CreatedAt:  utils.FormatISO(a.CreatedAt),
		Resolved:   a.Resolved,
	}
}

func (it alertItem) toModel() models.Alert {
	createdAt, _ := utils.ParseISO(it.CreatedAt)
	return models.Alert{
		AlertID:    it.AlertID,
		BucketName: it.BucketName,
		Prefix:     it.Prefix,
		Type:       models.AlertType(it.Type),
		Severity:   models.Severity(it.Severity),
		Message:    it.Message,
		Details:    it.Details,
		CreatedAt:  createdAt,
		Resolved:   it.Resolved,
	}
}
