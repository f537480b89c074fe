package youtube

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNotFound means the platform returned no channel, uploads playlist or video.
	ErrNotFound = errors.New("youtube: not found")

	// ErrMissingAPIKey is a configuration error; it is never retried.
	ErrMissingAPIKey = errors.New("youtube: api key not configured")
)

// UpstreamError is a non-success response (or transport failure) from the
// video platform.
type UpstreamError struct {
	Op      string
	Status  int // HTTP status; 0 when no response was received
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("youtube %s: upstream status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("youtube %s: %s", e.Op, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &UpstreamError{Op: op, Status: gerr.Code, Message: gerr.Message, Err: err}
	}
	return &UpstreamError{Op: op, Message: err.Error(), Err: err}
}
