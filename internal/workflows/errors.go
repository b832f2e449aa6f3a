package workflows

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/storefront-platform/storefront/internal/domain"
)

// NewActivityError converts a client or domain error into the non-retryable
// application error an activity returns. The error kind is the application
// error type and the ErrorInfo travels as its details.
func NewActivityError(err error) error {
	if err == nil {
		return nil
	}
	info := domain.NewErrorInfo(err)
	return temporal.NewNonRetryableApplicationError(info.Message, string(info.Kind), err, info)
}

// FromActivityError recovers the domain error an activity failed with
func FromActivityError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		var info domain.ErrorInfo
		if appErr.HasDetails() && appErr.Details(&info) == nil && info.Kind != "" {
			return info.Err()
		}
		return domain.ErrorInfo{Kind: domain.ErrorKind(appErr.Type()), Message: appErr.Message()}.Err()
	}

	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return &domain.RemoteError{
			Kind:   domain.KindNetworkUnavailable,
			Detail: "activity timed out",
			Err:    err,
		}
	}

	var canceledErr *temporal.CanceledError
	if errors.As(err, &canceledErr) {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}

	return err
}
