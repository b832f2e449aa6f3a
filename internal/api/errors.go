package api

import (
	"net/http"

	"github.com/storefront-platform/storefront/internal/domain"
	"github.com/storefront-platform/storefront/pkg/errors"
)

// successStatus is the HTTP status of a workflow that committed its record
func successStatus(result *domain.WorkflowResult) int {
	if result.Status == domain.StatusPartiallyCompleted {
		return http.StatusMultiStatus
	}
	return http.StatusCreated
}

// failureError maps a FAILED result to the API error returned to the caller
func failureError(result *domain.WorkflowResult) *errors.AppError {
	f := result.Failure
	if f == nil {
		return errors.ErrInternal("").Wrap(result.Err())
	}

	service := f.Service
	if service == "" {
		service = "backend service"
	}

	var appErr *errors.AppError
	switch f.Kind {
	case domain.KindValidation, domain.KindInvalidQuantity:
		appErr = errors.ErrValidation(f.Message)
		for field, msg := range f.Fields {
			appErr.WithDetail(field, msg)
		}
	case domain.KindRejected:
		appErr = errors.ErrRejected(f.Message)
	case domain.KindUnauthorized:
		appErr = errors.ErrUnauthorized(f.Message)
	case domain.KindNetworkUnavailable:
		appErr = errors.ErrServiceUnavailable(service)
	case domain.KindInvalidResponse:
		appErr = errors.ErrBadGateway(service)
	case domain.KindCancelled:
		appErr = errors.ErrCancelled(f.Message)
	case domain.KindOutcomeUnknown:
		appErr = errors.ErrTimeout("workflow " + result.WorkflowID)
	default:
		appErr = errors.ErrInternal("")
	}

	appErr.WithDetail("workflowId", result.WorkflowID).WithDetail("stage", string(f.Stage))
	if f.Service != "" {
		appErr.WithDetail("service", f.Service)
	}
	return appErr.Wrap(result.Err())
}
