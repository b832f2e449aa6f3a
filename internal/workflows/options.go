package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// noRetry is the only policy these workflows use. A retried commerce write
// could record the same sale twice, and a retried movement could apply the
// same delta twice.
func noRetry() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		MaximumAttempts: 1,
	}
}

// activityOptions returns single-attempt activity options
func activityOptions(startToClose time.Duration) workflow.ActivityOptions {
	if startToClose == 0 {
		startToClose = DeltaActivityTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: startToClose,
		RetryPolicy:         noRetry(),
	}
}

func withActivityTimeout(ctx workflow.Context, startToClose time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(startToClose))
}
