package aggregator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/bucketpulse/internal/models"
	"github.com/younsl/bucketpulse/pkg/runner"
)

// hangingEngine never finishes executions for one bucket and answers every
// other query with a fixed healthy result
type hangingEngine struct {
	mu      sync.Mutex
	next    int
	queries map[string]string
	stopped []string
	hang    string
}

func (e *hangingEngine) Submit(_ context.Context, q string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	id := fmt.Sprintf("q-%d", e.next)
	e.queries[id] = q
	return id, nil
}

func (e *hangingEngine) PollState(_ context.Context, id string) (runner.ExecutionStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if strings.Contains(e.queries[id], fmt.Sprintf("bucket_name = '%s'", e.hang)) {
		return runner.ExecutionStatus{State: runner.StateRunning}, nil
	}
	return runner.ExecutionStatus{State: runner.StateSucceeded}, nil
}

func (e *hangingEngine) FetchRows(_ context.Context, id string, _ int32, _ string) (runner.Page, error) {
	e.mu.Lock()
	q := e.queries[id]
	e.mu.Unlock()

	switch {
	case strings.Contains(q, "last_event_time"):
		return runner.Page{Rows: [][]*string{
			{str("last_event_time"), str("bytes_deleted")},
			{str(athenaTime(t0.Add(-time.Minute))), str("0")},
		}}, nil
	case strings.Contains(q, "GROUP BY storage_class"):
		return runner.Page{Rows: [][]*string{
			{str("storage_class"), str("object_count")},
			{str("STANDARD"), str("5")},
		}}, nil
	default:
		return runner.Page{Rows: [][]*string{
			{str("total_objects"), str("total_bytes"), str("age_90_plus")},
			{str("5"), str("500"), str("0")},
		}}, nil
	}
}

func (e *hangingEngine) Stop(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = append(e.stopped, id)
	return nil
}

func TestCycleWithRunnerTimesOutOnePrefix(t *testing.T) {
	configs := []models.PrefixConfig{
		prefixConfig("alpha", "x/"),
		prefixConfig("slow", "x/"),
		prefixConfig("gamma", "x/"),
	}
	f := newFixture(configs...)
	engine := &hangingEngine{queries: make(map[string]string), hang: "slow"}

	deps := f.deps()
	deps.Runner = runner.New(engine, runner.Options{PollInterval: time.Millisecond, MaxWait: 30 * time.Millisecond})

	summary, err := New(deps).RunAggregationCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Evaluated)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.ByStatus[models.StatusOK])

	for _, b := range []string{"alpha", "gamma"} {
		st, err := f.statuses.Get(context.Background(), b, "x/")
		require.NoError(t, err)
		require.NotNil(t, st, b)
		assert.Equal(t, models.StatusOK, st.Status)
		assert.Equal(t, map[string]int64{"STANDARD": 5}, st.StorageClassBreakdown)
	}
	st, err := f.statuses.Get(context.Background(), "slow", "x/")
	require.NoError(t, err)
	assert.Nil(t, st)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Len(t, engine.stopped, 1, "the timed out execution is stopped")
}
