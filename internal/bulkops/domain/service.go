package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Execute runs the full bulk pipeline: validate, authorize, claim the
	// idempotency slot, dispatch per target, aggregate, audit. Completed
	// duplicates within the idempotency window replay the stored result.
	Execute(ctx context.Context, raw RawRequest) (*Result, error)
}

var (
	ErrForbidden = errors.New("bulk_forbidden")
	// ErrInFlight is returned when an identical request is still running.
	ErrInFlight = errors.New("bulk_request_in_flight")
)
