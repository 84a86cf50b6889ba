package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/younsl/bucketpulse/pkg/runner"
	"github.com/younsl/bucketpulse/pkg/utils"
)

// AthenaAPI is the subset of the Athena client used by AthenaEngine
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
	StopQueryExecution(ctx context.Context, in *athena.StopQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StopQueryExecutionOutput, error)
	GetWorkGroup(ctx context.Context, in *athena.GetWorkGroupInput, optFns ...func(*athena.Options)) (*athena.GetWorkGroupOutput, error)
}

// AthenaOptions selects where queries run and where results land
type AthenaOptions struct {
	Workgroup      string
	OutputLocation string // optional when the workgroup enforces one
	Database       string // optional default database
}

// AthenaEngine runs queries on Amazon Athena. It implements runner.Engine and runner.Stopper.
type AthenaEngine struct {
	client AthenaAPI
	opts   AthenaOptions
}

// NewAthenaEngine creates an engine from a loaded AWS config
func NewAthenaEngine(cfg aws.Config, opts AthenaOptions) *AthenaEngine {
	return NewAthenaEngineWithClient(athena.NewFromConfig(cfg), opts)
}

// NewAthenaEngineWithClient creates an engine over an existing client
func NewAthenaEngineWithClient(client AthenaAPI, opts AthenaOptions) *AthenaEngine {
	return &AthenaEngine{client: client, opts: opts}
}

// Submit starts a query execution
func (e *AthenaEngine) Submit(ctx context.Context, query string) (string, error) {
	input := &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		WorkGroup:   utils.StringPtr(e.opts.Workgroup),
	}
	if e.opts.OutputLocation != "" {
		input.ResultConfiguration = &types.ResultConfiguration{OutputLocation: aws.String(e.opts.OutputLocation)}
	}
	if e.opts.Database != "" {
		input.QueryExecutionContext = &types.QueryExecutionContext{Database: aws.String(e.opts.Database)}
	}

	out, err := e.client.StartQueryExecution(ctx, input)
	if err != nil {
		return "", fmt.Errorf("error starting Athena query: %w", err)
	}
	return aws.ToString(out.QueryExecutionId), nil
}

// PollState returns the current state of an execution
func (e *AthenaEngine) PollState(ctx context.Context, executionID string) (runner.ExecutionStatus, error) {
	out, err := e.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return runner.ExecutionStatus{}, fmt.Errorf("error getting Athena query execution: %w", err)
	}
	if out.QueryExecution == nil || out.QueryExecution.Status == nil {
		return runner.ExecutionStatus{State: runner.StateQueued}, nil
	}

	status := out.QueryExecution.Status
	result := runner.ExecutionStatus{
		State:  stateFromAthena(status.State),
		Reason: aws.ToString(status.StateChangeReason),
	}
	if result.Reason == "" && status.AthenaError != nil {
		result.Reason = aws.ToString(status.AthenaError.ErrorMessage)
	}
	return result, nil
}

func stateFromAthena(s types.QueryExecutionState) runner.State {
	switch s {
	case types.QueryExecutionStateRunning:
		return runner.StateRunning
	case types.QueryExecutionStateSucceeded:
		return runner.StateSucceeded
	case types.QueryExecutionStateFailed:
		return runner.StateFailed
	case types.QueryExecutionStateCancelled:
		return runner.StateCancelled
	default:
		return runner.StateQueued
	}
}

// FetchRows returns one page of results. The first page starts with the header row.
func (e *AthenaEngine) FetchRows(ctx context.Context, executionID string, maxRows int32, pageToken string) (runner.Page, error) {
	input := &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(executionID),
		MaxResults:       aws.Int32(maxRows),
		NextToken:        utils.StringPtr(pageToken),
	}

	out, err := e.client.GetQueryResults(ctx, input)
	if err != nil {
		return runner.Page{}, fmt.Errorf("error getting Athena query results: %w", err)
	}

	page := runner.Page{NextToken: aws.ToString(out.NextToken)}
	if out.ResultSet == nil {
		return page, nil
	}
	page.Rows = make([][]*string, 0, len(out.ResultSet.Rows))
	for _, r := range out.ResultSet.Rows {
		cells := make([]*string, len(r.Data))
		for i, d := range r.Data {
			cells[i] = d.VarCharValue
		}
		page.Rows = append(page.Rows, cells)
	}
	return page, nil
}

// Stop cancels a running execution
func (e *AthenaEngine) Stop(ctx context.Context, executionID string) error {
	_, err := e.client.StopQueryExecution(ctx, &athena.StopQueryExecutionInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return fmt.Errorf("error stopping Athena query %s: %w", executionID, err)
	}
	return nil
}

// CheckWorkgroup verifies the configured workgroup exists and is enabled
func (e *AthenaEngine) CheckWorkgroup(ctx context.Context) error {
	if e.opts.Workgroup == "" {
		return errors.New("no Athena workgroup configured")
	}
	out, err := e.client.GetWorkGroup(ctx, &athena.GetWorkGroupInput{WorkGroup: aws.String(e.opts.Workgroup)})
	if err != nil {
		return fmt.Errorf("error getting Athena workgroup %s: %w", e.opts.Workgroup, err)
	}
	if out.WorkGroup != nil && out.WorkGroup.State == types.WorkGroupStateDisabled {
		return fmt.Errorf("workgroup %s is disabled", e.opts.Workgroup)
	}
	return nil
}
