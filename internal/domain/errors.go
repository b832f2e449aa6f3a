package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Workflow error taxonomy
var (
	ErrValidation           = errors.New("validation failed")
	ErrCommerceWriteFailed  = errors.New("commerce write failed")
	ErrCatalogUnavailable   = errors.New("catalog lookup failed")
	ErrInventoryWriteFailed = errors.New("inventory write failed")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrCancelled            = errors.New("workflow cancelled before commit")
	ErrOutcomeUnknown       = errors.New("workflow outcome unknown")
)

// ErrorKind classifies a failure for the caller
type ErrorKind string

const (
	// KindNetworkUnavailable: transport error, timeout, 5xx, 429 or an open breaker. Retry may help.
	KindNetworkUnavailable ErrorKind = "NETWORK_UNAVAILABLE"
	// KindRejected: the backend refused the input. Retry will not help.
	KindRejected ErrorKind = "REJECTED"
	// KindUnauthorized: the caller's session is not accepted.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	// KindInvalidResponse: a 2xx response that could not be decoded.
	KindInvalidResponse ErrorKind = "INVALID_RESPONSE"

	KindValidation      ErrorKind = "VALIDATION"
	KindInvalidQuantity ErrorKind = "INVALID_QUANTITY"
	KindCancelled       ErrorKind = "CANCELLED"
	KindInternal        ErrorKind = "INTERNAL"
	// KindOutcomeUnknown: the workflow was started but its result never
	// came back. The record may or may not exist; look it up by workflow ID.
	KindOutcomeUnknown ErrorKind = "OUTCOME_UNKNOWN"
)

// Retryable reports whether resubmitting might succeed
func (k ErrorKind) Retryable() bool {
	return k == KindNetworkUnavailable
}

// RemoteError is returned by every backend client call
type RemoteError struct {
	Kind       ErrorKind
	Service    string
	Operation  string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", e.Service, e.Operation, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// ValidationError lists the offending fields of a request
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// KindOf derives the caller-facing kind of err
func KindOf(err error) ErrorKind {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutcomeUnknown):
		return KindOutcomeUnknown
	case errors.As(err, &remote):
		return remote.Kind
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetworkUnavailable
	case errors.Is(err, ErrInvalidQuantity):
		return KindInvalidQuantity
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// ErrorInfo is the serializable description of an error kept in results
type ErrorInfo struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Service    string    `json:"service,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
}

// NewErrorInfo captures err for a result
func NewErrorInfo(err error) ErrorInfo {
	info := ErrorInfo{Kind: KindOf(err), Message: err.Error()}

	var remote *RemoteError
	if errors.As(err, &remote) {
		info.Service = remote.Service
		info.StatusCode = remote.StatusCode
		if remote.Detail != "" {
			info.Message = remote.Detail
		}
	}
	return info
}

// Err turns the info back into an error of the same kind. Used where only
// the serialized form crossed a process boundary.
func (i ErrorInfo) Err() error {
	switch i.Kind {
	case KindValidation:
		return &restoredError{msg: i.Message, kind: ErrValidation}
	case KindInvalidQuantity:
		return &restoredError{msg: i.Message, kind: ErrInvalidQuantity}
	case KindCancelled:
		return &restoredError{msg: i.Message, kind: ErrCancelled}
	case KindOutcomeUnknown:
		return &restoredError{msg: i.Message, kind: ErrOutcomeUnknown}
	case KindInternal, "":
		return errors.New(i.Message)
	}
	return &RemoteError{
		Kind:       i.Kind,
		Service:    i.Service,
		StatusCode: i.StatusCode,
		Detail:     i.Message,
	}
}

// restoredError keeps the original message and the sentinel it matched
type restoredError struct {
	msg  string
	kind error
}

func (e *restoredError) Error() string { return e.msg }

func (e *restoredError) Unwrap() error { return e.kind }
