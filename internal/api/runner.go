package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"github.com/storefront-platform/storefront/internal/clients"
	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/internal/workflows"
	"github.com/storefront-platform/storefront/pkg/logging"
	"github.com/storefront-platform/storefront/pkg/metrics"
	"github.com/storefront-platform/storefront/pkg/temporal"
)

// Runner runs the sale and purchase workflows. The in-process
// orchestrator.Orchestrator and TemporalRunner both implement it.
//
// The returned result is never nil and the error is non-nil only when the
// result is FAILED.
type Runner interface {
	SubmitSale(ctx context.Context, sale domain.Sale) (*domain.WorkflowResult, error)
	SubmitPurchase(ctx context.Context, po domain.PurchaseOrder) (*domain.WorkflowResult, error)
}

// WorkflowExecutor is the part of the Temporal client the runner uses
type WorkflowExecutor interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalRunner starts the workflows on a Temporal worker and waits for
// their result.
type TemporalRunner struct {
	client    WorkflowExecutor
	taskQueue string
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *logging.Logger
	now       func() time.Time
}

// TemporalRunnerOption configures a TemporalRunner
type TemporalRunnerOption func(*TemporalRunner)

// WithRunnerMetrics records workflow metrics on the API side
func WithRunnerMetrics(m *metrics.Metrics) TemporalRunnerOption {
	return func(r *TemporalRunner) { r.metrics = m }
}

// WithRunnerLogger sets the logger
func WithRunnerLogger(l *logging.Logger) TemporalRunnerOption {
	return func(r *TemporalRunner) { r.logger = l }
}

// NewTemporalRunner creates a runner that executes workflows on taskQueue
func NewTemporalRunner(c WorkflowExecutor, taskQueue string, timeout time.Duration, opts ...TemporalRunnerOption) *TemporalRunner {
	if taskQueue == "" {
		taskQueue = temporal.TaskQueues.InventorySync
	}
	if timeout == 0 {
		timeout = workflows.DefaultWorkflowTimeout
	}
	r := &TemporalRunner{
		client:    c,
		taskQueue: taskQueue,
		timeout:   timeout,
		logger:    logging.FromSlog(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("temporal-runner")
	return r
}

// SubmitSale runs SaleWorkflow
func (r *TemporalRunner) SubmitSale(ctx context.Context, sale domain.Sale) (*domain.WorkflowResult, error) {
	input := workflows.SaleWorkflowInput{Caller: callerFrom(ctx), Sale: sale}
	return r.run(ctx, domain.KindSale, temporal.WorkflowNames.Sale, input)
}

// SubmitPurchase runs PurchaseWorkflow
func (r *TemporalRunner) SubmitPurchase(ctx context.Context, po domain.PurchaseOrder) (*domain.WorkflowResult, error) {
	input := workflows.PurchaseWorkflowInput{Caller: callerFrom(ctx), PurchaseOrder: po}
	return r.run(ctx, domain.KindPurchaseOrder, temporal.WorkflowNames.Purchase, input)
}

func (r *TemporalRunner) run(ctx context.Context, kind domain.TransactionKind, workflowName string, input interface{}) (*domain.WorkflowResult, error) {
	workflowID := workflowIDFor(kind)
	started := r.now()
	r.logger.WorkflowStart(ctx, string(kind), workflowID)

	failed := func(stage domain.Stage, err error) (*domain.WorkflowResult, error) {
		result := domain.NewWorkflowResult(kind, started)
		result.WorkflowID = workflowID
		result.Fail(stage, err, r.now())
		r.complete(ctx, result)
		return result, result.Err()
	}

	if err := ctx.Err(); err != nil {
		return failed(domain.StageCommitting, fmt.Errorf("%w: %w", domain.ErrCancelled, err))
	}

	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                r.taskQueue,
		WorkflowExecutionTimeout: r.timeout,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflowName, input)
	if err != nil {
		return failed(domain.StageCommitting, &domain.RemoteError{
			Kind:      domain.KindNetworkUnavailable,
			Service:   "temporal",
			Operation: "ExecuteWorkflow",
			Err:       err,
		})
	}

	// Once started the workflow runs to the end; wait for it regardless of the caller.
	var result domain.WorkflowResult
	if err := run.Get(context.WithoutCancel(ctx), &result); err != nil {
		return failed(domain.StageUnknown, fmt.Errorf("%w: workflow %s: %w", domain.ErrOutcomeUnknown, workflowID, err))
	}
	if result.WorkflowID == "" {
		result.WorkflowID = workflowID
	}

	r.complete(ctx, &result)
	return &result, result.Err()
}

func (r *TemporalRunner) complete(ctx context.Context, result *domain.WorkflowResult) {
	r.metrics.RecordWorkflow(string(result.Kind), string(result.Status), result.Duration())
	r.logger.WorkflowComplete(ctx, string(result.Kind), result.WorkflowID, string(result.Status), result.Duration())
}

// callerFrom captures what the worker needs to call the backends as the user
func callerFrom(ctx context.Context) workflows.Caller {
	return workflows.Caller{
		Authorization: clients.AuthorizationFromContext(ctx),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
	}
}

func workflowIDFor(kind domain.TransactionKind) string {
	switch kind {
	case domain.KindSale:
		return "sale-" + uuid.NewString()
	default:
		return "purchase-" + uuid.NewString()
	}
}
