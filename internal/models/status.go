package models

import "time"

// StatusCode is the health verdict for a prefix
type StatusCode string

const (
	StatusOK        StatusCode = "OK"
	StatusDegrading StatusCode = "DEGRADING"
	StatusStalled   StatusCode = "STALLED"
	StatusAnomalous StatusCode = "ANOMALOUS"
	StatusUnknown   StatusCode = "UNKNOWN"
)

// AllStatusCodes lists every status code in display order
var AllStatusCodes = []StatusCode{StatusOK, StatusDegrading, StatusStalled, StatusAnomalous, StatusUnknown}

// JournalMetrics is derived from the journal window query
type JournalMetrics struct {
	LastEventTime  string // raw value from the engine, empty when no event was observed
	ObjectsCreated int64
	BytesCreated   int64
	ObjectsDeleted int64
	BytesDeleted   int64
}

// AgeHistogram counts inventory objects by age bucket in days
type AgeHistogram struct {
	Age0To7   int64 `json:"0_7"`
	Age7To30  int64 `json:"7_30"`
	Age30To90 int64 `json:"30_90"`
	Age90Plus int64 `json:"90_plus"`
}

// Total returns the number of objects across all buckets
func (h AgeHistogram) Total() int64 {
	return h.Age0To7 + h.Age7To30 + h.Age30To90 + h.Age90Plus
}

// InventoryMetrics is derived from the inventory snapshot and storage class queries
type InventoryMetrics struct {
	TotalObjects          int64
	TotalBytes            int64
	AgeHistogram          *AgeHistogram
	StorageClassBreakdown map[string]int64
}

// PrefixStatus is the latest evaluation for a (bucket, prefix)
type PrefixStatus struct {
	BucketName string `json:"bucketName"`
	Prefix     string `json:"prefix"`

	Status          StatusCode `json:"status"`
	StatusReason    string     `json:"statusReason,omitempty"`
	LastEvaluatedAt time.Time  `json:"lastEvaluatedAt"`

	// Journal window
	LastEventTime            string `json:"lastEventTime,omitempty"`
	ObjectsCreatedLastWindow int64  `json:"objectsCreatedLastWindow"`
	BytesCreatedLastWindow   int64  `json:"bytesCreatedLastWindow"`
	ObjectsDeletedLastWindow int64  `json:"objectsDeletedLastWindow"`
	BytesDeletedLastWindow   int64  `json:"bytesDeletedLastWindow"`

	// Inventory snapshot
	TotalObjects          int64            `json:"totalObjects"`
	TotalBytes            int64            `json:"totalBytes"`
	AgeHistogram          *AgeHistogram    `json:"ageHistogram,omitempty"`
	StorageClassBreakdown map[string]int64 `json:"storageClassBreakdown,omitempty"`
}

// PrefixEvaluation is an immutable history record of one evaluation
type PrefixEvaluation struct {
	PrefixStatus
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// NewPrefixStatus flattens the evaluation inputs and result into a status record
func NewPrefixStatus(cfg PrefixConfig, journal JournalMetrics, inventory InventoryMetrics, code StatusCode, reason string, evaluatedAt time.Time) PrefixStatus {
	return PrefixStatus{
		BucketName:               cfg.BucketName,
		Prefix:                   cfg.Prefix,
		Status:                   code,
		StatusReason:             reason,
		LastEvaluatedAt:          evaluatedAt.UTC().Truncate(time.Millisecond),
		LastEventTime:            journal.LastEventTime,
		ObjectsCreatedLastWindow: journal.ObjectsCreated,
		BytesCreatedLastWindow:   journal.BytesCreated,
		ObjectsDeletedLastWindow: journal.ObjectsDeleted,
		BytesDeletedLastWindow:   journal.BytesDeleted,
		TotalObjects:             inventory.TotalObjects,
		TotalBytes:               inventory.TotalBytes,
		AgeHistogram:             inventory.AgeHistogram,
		StorageClassBreakdown:    inventory.StorageClassBreakdown,
	}
}

// Evaluation returns the history record for this status
func (s PrefixStatus) Evaluation() PrefixEvaluation {
	return PrefixEvaluation{PrefixStatus: s, EvaluatedAt: s.LastEvaluatedAt}
}

// Clone returns a copy that shares no histogram or breakdown storage with s
func (s PrefixStatus) Clone() PrefixStatus {
	out := s
	if s.AgeHistogram != nil {
		h := *s.AgeHistogram
		out.AgeHistogram = &h
	}
	if s.StorageClassBreakdown != nil {
		out.StorageClassBreakdown = make(map[string]int64, len(s.StorageClassBreakdown))
		for k, v := range s.StorageClassBreakdown {
			out.StorageClassBreakdown[k] = v
		}
	}
	return out
}
