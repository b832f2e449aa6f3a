package api

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/internal/workflows"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/temporal"
)

func testSale() domain.Sale {
	return domain.Sale{
		BranchID:   "1",
		CustomerID: "C-1",
		Lines:      []domain.SaleLine{{ProductID: "pancake", Quantity: 1, UnitPrice: decimal.NewFromInt(4)}},
	}
}

func TestTemporalRunner_SubmitSale(t *testing.T) {
	temporalClient := &mocks.Client{}
	run := &mocks.WorkflowRun{}

	var options client.StartWorkflowOptions
	var input workflows.SaleWorkflowInput
	temporalClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, temporal.WorkflowNames.Sale, mock.Anything).
		Run(func(args mock.Arguments) {
			options = args.Get(1).(client.StartWorkflowOptions)
			input = args.Get(3).(workflows.SaleWorkflowInput)
		}).
		Return(run, nil)

	run.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			result := args.Get(1).(*domain.WorkflowResult)
			*result = *domain.NewWorkflowResult(domain.KindSale, t0)
			result.WorkflowID = options.ID
			result.Transaction = &domain.PersistedTransaction{ID: "S-1"}
			result.Finish(t0)
		}).
		Return(nil)

	runner := NewTemporalRunner(temporalClient, "", 0, WithRunnerLogger(logging.Discard()))

	ctx := clients.WithAuthorization(context.Background(), "Bearer t")
	ctx = logging.ContextWithCorrelationID(ctx, "corr-1")
	result, err := runner.SubmitSale(ctx, testSale())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Regexp(t, `^sale-`, result.WorkflowID)

	assert.Equal(t, temporal.TaskQueues.InventorySync, options.TaskQueue)
	assert.Equal(t, workflows.DefaultWorkflowTimeout, options.WorkflowExecutionTimeout)
	assert.Equal(t, "Bearer t", input.Authorization)
	assert.Equal(t, "corr-1", input.CorrelationID)
	assert.Equal(t, "C-1", input.Sale.CustomerID)
	temporalClient.AssertExpectations(t)
}

func TestTemporalRunner_FailedResultReturnsError(t *testing.T) {
	temporalClient := &mocks.Client{}
	run := &mocks.WorkflowRun{}

	temporalClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, temporal.WorkflowNames.Purchase, mock.Anything).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			result := args.Get(1).(*domain.WorkflowResult)
			*result = *domain.NewWorkflowResult(domain.KindPurchaseOrder, t0)
			result.Fail(domain.StageCommitting, &domain.RemoteError{Kind: domain.KindRejected, Service: "commerce", Detail: "unknown provider"}, t0)
		}).
		Return(nil)

	runner := NewTemporalRunner(temporalClient, "q", 0, WithRunnerLogger(logging.Discard()))
	result, err := runner.SubmitPurchase(context.Background(), domain.PurchaseOrder{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommerceWriteFailed)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindRejected, result.Failure.Kind)
}

func TestTemporalRunner_LostResultIsOutcomeUnknown(t *testing.T) {
	temporalClient := &mocks.Client{}
	run := &mocks.WorkflowRun{}

	var options client.StartWorkflowOptions
	temporalClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, temporal.WorkflowNames.Sale, mock.Anything).
		Run(func(args mock.Arguments) {
			options = args.Get(1).(client.StartWorkflowOptions)
		}).
		Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Return(errors.New("connection lost"))

	runner := NewTemporalRunner(temporalClient, "q", 0, WithRunnerLogger(logging.Discard()))
	result, err := runner.SubmitSale(context.Background(), testSale())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOutcomeUnknown)
	assert.NotErrorIs(t, err, domain.ErrCommerceWriteFailed)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindOutcomeUnknown, result.Failure.Kind)
	assert.Equal(t, domain.StageUnknown, result.Failure.Stage)
	assert.Contains(t, result.Failure.Message, "connection lost")
	assert.Equal(t, options.ID, result.WorkflowID)
	assert.False(t, result.Failure.Kind.Retryable())
	run.AssertExpectations(t)
}

func TestTemporalRunner_StartFailure(t *testing.T) {
	temporalClient := &mocks.Client{}
	temporalClient.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	runner := NewTemporalRunner(temporalClient, "q", 0, WithRunnerLogger(logging.Discard()))
	result, err := runner.SubmitSale(context.Background(), testSale())

	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindNetworkUnavailable, result.Failure.Kind)
	assert.Nil(t, result.Transaction)
}

func TestTemporalRunner_CancelledBeforeStart(t *testing.T) {
	temporalClient := &mocks.Client{}
	runner := NewTemporalRunner(temporalClient, "q", 0, WithRunnerLogger(logging.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := runner.SubmitSale(ctx, testSale())

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, domain.KindCancelled, result.Failure.Kind)
	temporalClient.AssertNotCalled(t, "ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
