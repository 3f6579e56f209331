package ai

import (
	"context"
	"errors"
)

// ErrUpstreamUnavailable matches every *UpstreamError via errors.Is.
var ErrUpstreamUnavailable = errors.New("upstream completion unavailable")

var errEmptyCompletion = errors.New("empty completion")

// UpstreamError wraps a failed remote completion. Cause may carry endpoint
// or credential details; log it, never show it to end users.
type UpstreamError struct {
	Provider string
	Cause    error
	TimedOut bool
}

func (e *UpstreamError) Error() string {
	if e.Cause == nil {
		return ErrUpstreamUnavailable.Error()
	}
	return ErrUpstreamUnavailable.Error() + ": " + e.Cause.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// Timeout reports whether the call ran past its deadline.
func (e *UpstreamError) Timeout() bool {
	return e.TimedOut || errors.Is(e.Cause, context.DeadlineExceeded)
}
