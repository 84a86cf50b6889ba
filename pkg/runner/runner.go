package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/younsl/bucketpulse/pkg/utils"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxWait      = 30 * time.Second
	DefaultMaxRows      = 1000

	// engines cap a single results page at this many rows, header included
	maxPageRows = 1000

	stopTimeout = 5 * time.Second
)

// Observer receives per-query outcomes
type Observer interface {
	ObserveQuery(kind, outcome string, d time.Duration)
}

// Options tunes a Runner. Zero values take the defaults.
type Options struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxRows      int
	Limiter      *rate.Limiter // paces submissions, optional
	Observer     Observer      // optional
}

// Runner submits queries and waits for them. Each call owns its execution id
// and poll loop, so a Runner is safe for concurrent use.
type Runner struct {
	engine Engine
	opts   Options
}

// New creates a Runner for the given engine
func New(engine Engine, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	return &Runner{engine: engine, opts: opts}
}

// RunSingleRowQuery returns the first data row, or nil when the result has no data rows
func (r *Runner) RunSingleRowQuery(ctx context.Context, query string) (row *Row, err error) {
	start := time.Now()
	defer func() { r.observe("single", start, err) }()

	id, err := r.execute(ctx, query)
	if err != nil {
		return nil, err
	}

	page, err := r.engine.FetchRows(ctx, id, 2, "")
	if err != nil {
		return nil, fmt.Errorf("fetch results for %s: %w", id, err)
	}
	if len(page.Rows) < 2 {
		return nil, nil
	}
	return &Row{Columns: header(page.Rows[0]), Values: page.Rows[1]}, nil
}

// RunMultiRowQuery returns every data row, up to MaxRows, keyed by column name
func (r *Runner) RunMultiRowQuery(ctx context.Context, query string) (records []Record, err error) {
	start := time.Now()
	defer func() { r.observe("multi", start, err) }()

	id, err := r.execute(ctx, query)
	if err != nil {
		return nil, err
	}

	var columns []string
	token := ""
	for {
		want := r.opts.MaxRows - len(records)
		if columns == nil {
			want++ // header row
		}
		page, err := r.engine.FetchRows(ctx, id, int32(min(want, maxPageRows)), token)
		if err != nil {
			return nil, fmt.Errorf("fetch results for %s: %w", id, err)
		}

		rows := page.Rows
		if columns == nil {
			if len(rows) == 0 {
				return nil, nil
			}
			columns = header(rows[0])
			rows = rows[1:]
		}
		for _, cells := range rows {
			if len(records) >= r.opts.MaxRows {
				break
			}
			records = append(records, toRecord(columns, cells))
		}

		if page.NextToken == "" || len(records) >= r.opts.MaxRows {
			return records, nil
		}
		token = page.NextToken
	}
}

// execute submits the query and blocks until it succeeds
func (r *Runner) execute(ctx context.Context, query string) (string, error) {
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for submission slot: %w", err)
		}
	}

	id, err := r.engine.Submit(ctx, query)
	if err != nil {
		return "", fmt.Errorf("submit query: %w", err)
	}
	if id == "" {
		return "", errors.New("submit query: engine returned no execution id")
	}

	if err := r.wait(ctx, id); err != nil {
		if !errors.Is(err, ErrQueryExecutionFailed) {
			r.stop(ctx, id)
		}
		return "", err
	}
	return id, nil
}

// wait polls until a terminal state, the MaxWait deadline, or ctx cancellation
func (r *Runner) wait(ctx context.Context, id string) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.opts.MaxWait)
	defer cancel()

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		status, err := r.engine.PollState(waitCtx, id)
		if err != nil {
			if timeoutErr := r.deadlineErr(ctx, waitCtx, id); timeoutErr != nil {
				return timeoutErr
			}
			return fmt.Errorf("poll query %s: %w", id, err)
		}

		if status.State.Terminal() {
			if status.State == StateSucceeded {
				return nil
			}
			return &QueryExecutionError{ExecutionID: id, State: status.State, Reason: status.Reason}
		}

		select {
		case <-waitCtx.Done():
			if timeoutErr := r.deadlineErr(ctx, waitCtx, id); timeoutErr != nil {
				return timeoutErr
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// deadlineErr returns ErrQueryTimeout when the wait budget, not the caller, ended the wait
func (r *Runner) deadlineErr(parent, waitCtx context.Context, id string) error {
	if parent.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: execution %s did not finish within %s", ErrQueryTimeout, id, r.opts.MaxWait)
	}
	return nil
}

// stop cancels an abandoned execution, best effort
func (r *Runner) stop(ctx context.Context, id string) {
	stopper, ok := r.engine.(Stopper)
	if !ok {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	_ = stopper.Stop(stopCtx, id)
}

func (r *Runner) observe(kind string, start time.Time, err error) {
	if r.opts.Observer == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, ErrQueryTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrQueryExecutionFailed):
		outcome = "failed"
	case err != nil:
		outcome = "error"
	}
	r.opts.Observer.ObserveQuery(kind, outcome, time.Since(start))
}

func header(cells []*string) []string {
	columns := make([]string, len(cells))
	for i, c := range cells {
		columns[i] = utils.SafeDeref(c)
	}
	return columns
}

func toRecord(columns []string, cells []*string) Record {
	rec := make(Record, len(columns))
	for i, col := range columns {
		var value string
		if i < len(cells) {
			value = utils.SafeDeref(cells[i])
		}
		rec[strings.ToLower(col)] = value
	}
	return rec
}
