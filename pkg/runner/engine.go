// Package runner executes queries against an asynchronous query engine,
// blocking until the execution reaches a terminal state.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle state of a query execution
type State string

const (
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Terminal reports whether no further transitions are expected
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// ExecutionStatus is the polled state of an execution
type ExecutionStatus struct {
	State  State
	Reason string
}

// Page is one page of results. The first page of an execution starts with the
// header row; later pages hold data rows only. A nil cell is SQL NULL.
type Page struct {
	Rows      [][]*string
	NextToken string
}

// Engine is an asynchronous query engine such as Athena
type Engine interface {
	Submit(ctx context.Context, query string) (string, error)
	PollState(ctx context.Context, executionID string) (ExecutionStatus, error)
	FetchRows(ctx context.Context, executionID string, maxRows int32, pageToken string) (Page, error)
}

// Stopper is implemented by engines that can cancel a running execution
type Stopper interface {
	Stop(ctx context.Context, executionID string) error
}

// ErrQueryTimeout is returned when an execution does not finish within the wait budget
var ErrQueryTimeout = errors.New("query timed out")

// ErrQueryExecutionFailed matches every QueryExecutionError
var ErrQueryExecutionFailed = errors.New("query execution failed")

// QueryExecutionError reports an execution that ended FAILED or CANCELLED
type QueryExecutionError struct {
	ExecutionID string
	State       State
	Reason      string
}

func (e *QueryExecutionError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Sprintf("query %s %s: %s", e.ExecutionID, e.State, reason)
}

// Is lets errors.Is match ErrQueryExecutionFailed
func (e *QueryExecutionError) Is(target error) bool {
	return target == ErrQueryExecutionFailed
}

// Row is a single result row with its header
type Row struct {
	Columns []string
	Values  []*string
}

// Get looks up a column case-insensitively. ok is false when the column is
// missing or its value is NULL.
func (r *Row) Get(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for i, col := range r.Columns {
		if !strings.EqualFold(col, name) {
			continue
		}
		if i >= len(r.Values) || r.Values[i] == nil {
			return "", false
		}
		return *r.Values[i], true
	}
	return "", false
}

// Record is a result row keyed by lower-cased column name. NULL cells are empty strings.
type Record map[string]string

// Get looks up a column case-insensitively
func (r Record) Get(name string) string {
	return r[strings.ToLower(name)]
}
