package domain

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowStatus is the terminal state of a workflow
type WorkflowStatus string

const (
	StatusCompleted          WorkflowStatus = "COMPLETED"
	StatusPartiallyCompleted WorkflowStatus = "PARTIALLY_COMPLETED"
	StatusFailed             WorkflowStatus = "FAILED"
)

// Stage names a step of the workflow state machines
type Stage string

const (
	StageValidating        Stage = "VALIDATING"
	StageCommitting        Stage = "COMMITTING"
	StageExpandingRecipes  Stage = "EXPANDING_RECIPES"
	StageApplyingInventory Stage = "APPLYING_INVENTORY"
	// StageUnknown: the runner lost track of a started workflow
	StageUnknown Stage = "UNKNOWN"
)

// AppliedDelta is a delta the inventory API accepted
type AppliedDelta struct {
	Delta      InventoryDelta `json:"delta"`
	MovementID string         `json:"movementId,omitempty"`
}

// FailedDelta is a delta the inventory API did not accept
type FailedDelta struct {
	Delta InventoryDelta `json:"delta"`
	Error ErrorInfo      `json:"error"`
}

// LineFailure is a sale line whose recipe could not be expanded. None of
// its deltas were attempted.
type LineFailure struct {
	LineIndex int       `json:"lineIndex"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Error     ErrorInfo `json:"error"`
}

// Failure describes why a workflow ended FAILED
type Failure struct {
	Stage      Stage             `json:"stage"`
	Kind       ErrorKind         `json:"kind"`
	Message    string            `json:"message"`
	Service    string            `json:"service,omitempty"`
	StatusCode int               `json:"statusCode,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// WorkflowResult is the complete accounting of one workflow. Every attempted
// delta appears in exactly one of AppliedDeltas and FailedDeltas.
type WorkflowResult struct {
	WorkflowID    string                `json:"workflowId,omitempty"`
	Kind          TransactionKind       `json:"kind"`
	Status        WorkflowStatus        `json:"status"`
	Transaction   *PersistedTransaction `json:"transaction,omitempty"`
	AppliedDeltas []AppliedDelta        `json:"appliedDeltas"`
	FailedDeltas  []FailedDelta         `json:"failedDeltas"`
	FailedLines   []LineFailure         `json:"failedLines"`
	Failure       *Failure              `json:"failure,omitempty"`
	StartedAt     time.Time             `json:"startedAt"`
	CompletedAt   time.Time             `json:"completedAt"`
}

// NewWorkflowResult starts the accounting for a workflow
func NewWorkflowResult(kind TransactionKind, startedAt time.Time) *WorkflowResult {
	return &WorkflowResult{
		Kind:          kind,
		AppliedDeltas: []AppliedDelta{},
		FailedDeltas:  []FailedDelta{},
		FailedLines:   []LineFailure{},
		StartedAt:     startedAt,
	}
}

// RecordApplied records an accepted delta
func (r *WorkflowResult) RecordApplied(delta InventoryDelta, record *MovementRecord) {
	applied := AppliedDelta{Delta: delta}
	if record != nil {
		applied.MovementID = record.ID
	}
	r.AppliedDeltas = append(r.AppliedDeltas, applied)
}

// RecordFailed records a delta that could not be posted
func (r *WorkflowResult) RecordFailed(delta InventoryDelta, err error) {
	r.FailedDeltas = append(r.FailedDeltas, FailedDelta{Delta: delta, Error: NewErrorInfo(err)})
}

// RecordLineFailure records a sale line whose recipe lookup failed
func (r *WorkflowResult) RecordLineFailure(index int, line PersistedLine, err error) {
	r.FailedLines = append(r.FailedLines, LineFailure{
		LineIndex: index,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Error:     NewErrorInfo(err),
	})
}

// Fail terminates the workflow as FAILED at stage
func (r *WorkflowResult) Fail(stage Stage, err error, now time.Time) {
	info := NewErrorInfo(err)
	f := &Failure{
		Stage:      stage,
		Kind:       info.Kind,
		Message:    info.Message,
		Service:    info.Service,
		StatusCode: info.StatusCode,
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		f.Fields = verr.Fields
	}

	r.Failure = f
	r.Status = StatusFailed
	r.CompletedAt = now
}

// Finish sets the terminal status of a workflow that got past the commit
func (r *WorkflowResult) Finish(now time.Time) {
	if r.Status == StatusFailed {
		return
	}
	if len(r.FailedDeltas) == 0 && len(r.FailedLines) == 0 {
		r.Status = StatusCompleted
	} else {
		r.Status = StatusPartiallyCompleted
	}
	r.CompletedAt = now
}

// Attempted returns the number of deltas sent to the inventory API
func (r *WorkflowResult) Attempted() int {
	return len(r.AppliedDeltas) + len(r.FailedDeltas)
}

// Duration returns the wall-clock duration of the workflow
func (r *WorkflowResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// NeedsReconciliation reports whether an operator must look at the result
func (r *WorkflowResult) NeedsReconciliation() bool {
	return r.Status == StatusPartiallyCompleted
}

// Err rebuilds the workflow error from a FAILED result, for callers that
// only have the serialized result.
func (r *WorkflowResult) Err() error {
	if r.Status != StatusFailed || r.Failure == nil {
		return nil
	}
	return &WorkflowError{Failure: *r.Failure}
}

// WorkflowError is a FAILED result seen as an error. It matches the
// taxonomy sentinels with errors.Is.
type WorkflowError struct {
	Failure Failure
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Failure.Stage, e.Failure.Kind, e.Failure.Message)
}

func (e *WorkflowError) Unwrap() []error {
	var errs []error
	switch e.Failure.Kind {
	case KindValidation:
		errs = append(errs, ErrValidation)
	case KindInvalidQuantity:
		errs = append(errs, ErrValidation, ErrInvalidQuantity)
	case KindCancelled:
		errs = append(errs, ErrCancelled)
	case KindOutcomeUnknown:
		errs = append(errs, ErrOutcomeUnknown)
	}
	if e.Failure.Stage == StageCommitting && e.Failure.Kind != KindCancelled && e.Failure.Kind != KindOutcomeUnknown {
		errs = append(errs, ErrCommerceWriteFailed)
	}
	return errs
}
