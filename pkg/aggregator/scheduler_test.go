package aggregator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	f := newFixture(prefixConfig("logs", "app/"))
	f.runner.set("logs", healthyData())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cycles atomic.Int32
	s := &Scheduler{
		Service:  New(f.deps()),
		Interval: 5 * time.Millisecond,
		Logger:   discardLogger(),
		OnCycle: func(summary CycleSummary, err error) {
			if err == nil && cycles.Add(1) == 3 {
				cancel()
			}
		},
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, cycles.Load(), int32(3))
	assert.GreaterOrEqual(t, f.evaluationCount(t, "logs", "app/"), 1)
}
