package cloudevents

import (
	"time"
)

// Event types emitted by the inventory sync workflows
const (
	InventorySynced                 = "storefront.inventory.synced"
	InventoryReconciliationRequired = "storefront.inventory.reconciliation-required"
)

// Sources
const (
	SourceInventorySync = "/storefront/inventory-sync"
)

// SpecVersion is the CloudEvents version produced by this package
const SpecVersion = "1.0"

// StorefrontCloudEvent represents a CloudEvents v1.0 event with storefront extensions
type StorefrontCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Storefront extensions
	CorrelationID string `json:"storefrontcorrelationid,omitempty"`
	BranchID      string `json:"storefrontbranchid,omitempty"`
	WorkflowID    string `json:"storefrontworkflowid,omitempty"`

	// W3C trace context extension
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// Extensions returns the populated extension attributes keyed by their
// CloudEvents name, used for binary-mode transport headers.
func (e *StorefrontCloudEvent) Extensions() map[string]string {
	ext := make(map[string]string)
	if e.CorrelationID != "" {
		ext["storefrontcorrelationid"] = e.CorrelationID
	}
	if e.BranchID != "" {
		ext["storefrontbranchid"] = e.BranchID
	}
	if e.WorkflowID != "" {
		ext["storefrontworkflowid"] = e.WorkflowID
	}
	if e.TraceParent != "" {
		ext["traceparent"] = e.TraceParent
	}
	if e.TraceState != "" {
		ext["tracestate"] = e.TraceState
	}
	return ext
}
