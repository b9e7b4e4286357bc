package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Causes surfaced by inference backends.
var (
	ErrRemoteUnavailable   = errors.New("inference service unavailable")
	ErrInvalidResponse     = errors.New("inference service returned invalid response")
	ErrRemoteRejectedInput = errors.New("inference service rejected input")
)

// Failure is the failure of one unit's inference call. Cause is usually one of the
// sentinel errors above, wrapped with detail.
type Failure struct {
	UnitIndex int
	Cause     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("unit %d: %v", f.UnitIndex, f.Cause)
}

func (f *Failure) Unwrap() error { return f.Cause }

// NewFailure wraps err as the failure of unit index. An error that already is a
// Failure is returned unchanged.
func NewFailure(index int, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{UnitIndex: index, Cause: err}
}

// ClassifyTransportError maps a failed HTTP round trip to ErrRemoteUnavailable.
// Context cancellation is passed through so callers can tell it apart.
func ClassifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out", ErrRemoteUnavailable)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, netErr)
	}
	return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
}

// ClassifyStatus maps a non-2xx HTTP status to a cause. detail is appended to the message.
func ClassifyStatus(code int, detail string) error {
	var cause error
	switch code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		cause = ErrRemoteRejectedInput
	case http.StatusTooManyRequests:
		cause = ErrRemoteUnavailable
	default:
		if code >= 500 {
			cause = ErrRemoteUnavailable
		} else {
			cause = ErrInvalidResponse
		}
	}
	if detail == "" {
		return fmt.Errorf("%w: status %d", cause, code)
	}
	return fmt.Errorf("%w: status %d: %s", cause, code, detail)
}
