package workflows

import "time"

// Activity names. Workflows schedule activities by name so the worker can
// register them from another package.
const (
	CommitSaleActivity          = "CommitSale"
	CommitPurchaseActivity      = "CommitPurchase"
	ExpandRecipeActivity        = "ExpandRecipe"
	ApplyInventoryDeltaActivity = "ApplyInventoryDelta"
	PublishResultActivity       = "PublishResult"
)

// Activity timeouts
const (
	// CommitActivityTimeout bounds the commerce write, including the client timeout
	CommitActivityTimeout time.Duration = 2 * time.Minute

	// LookupActivityTimeout bounds one catalog lookup
	LookupActivityTimeout time.Duration = time.Minute

	// DeltaActivityTimeout bounds one inventory movement
	DeltaActivityTimeout time.Duration = time.Minute

	// PublishActivityTimeout bounds the reconciliation event publish
	PublishActivityTimeout time.Duration = 30 * time.Second
)

// DefaultWorkflowTimeout is the execution timeout used when none is configured
const DefaultWorkflowTimeout time.Duration = 30 * time.Minute
