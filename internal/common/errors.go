package common

import "errors"

// Error kinds enumerated in spec §7. Each is a sentinel or a thin typed
// wrapper so callers can errors.Is/errors.As at the boundary that is
// supposed to handle it, matching the teacher's ErrNotEnoughLiquidity /
// ErrRejection style rather than a generic error-code scheme.
var (
	// ErrValidation marks a malformed request caught before matching; the
	// order is rejected (status REJECTED) and never reaches the book.
	ErrValidation = errors.New("common: validation error")

	// ErrNotFound marks a referenced Order absent from the primary store.
	ErrNotFound = errors.New("common: not found")

	// ErrVersionConflict marks an optimistic-lock mismatch on the
	// order_books row; retryable inside the Matching Coordinator.
	ErrVersionConflict = errors.New("common: version conflict")

	// ErrTransientPersistence marks a retryable store failure (timeout,
	// connection reset); retried by the Ingress Dispatcher.
	ErrTransientPersistence = errors.New("common: transient persistence error")

	// ErrPublishFailed marks an event publish that failed; logged, never
	// reverses a durable commit.
	ErrPublishFailed = errors.New("common: publish failed")

	// ErrDuplicateMessage marks a message_id already recorded as
	// processed; suppressed silently at ingress.
	ErrDuplicateMessage = errors.New("common: duplicate message")

	// ErrTerminalFailure marks an ingress record that exhausted retry and
	// is routed to the dead-letter stream.
	ErrTerminalFailure = errors.New("common: terminal failure")

	// ErrInvalidOrderType marks an order whose type has no matching
	// strategy.
	ErrInvalidOrderType = errors.New("common: invalid order type")

	// ErrPersistenceConflict marks a version conflict that survived every
	// retry attempt inside the Matching Coordinator.
	ErrPersistenceConflict = errors.New("common: persistence conflict after retries exhausted")

	// ErrUpstreamUnavailable marks an ingress prerequisite (e.g. the
	// primary store) that could not be read.
	ErrUpstreamUnavailable = errors.New("common: upstream unavailable")

	// ErrAlreadyTerminal marks a cancel request against an order whose
	// status is already CANCELLED, FILLED or REJECTED.
	ErrAlreadyTerminal = errors.New("common: order already in a terminal state")
)

// ValidationError wraps ErrValidation with the offending field, letting
// callers report a precise reason without string-matching.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "common: validation error: " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
