package cgt

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientHoldings means a disposal is larger than everything
	// available to match it once all three rules have been applied.
	ErrInsufficientHoldings = errors.New("disposal exceeds holdings")
	// ErrMissingValuation means an event reached the calculation without a GBP value.
	ErrMissingValuation = errors.New("missing GBP valuation")
	// ErrInvalidEvent means an event breaks the input contract.
	ErrInvalidEvent = errors.New("invalid event")
)

// EventError identifies the input event that broke the input contract.
type EventError struct {
	Index int // position in the input list
	Ref   string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %d [%s]: %v", e.Index, e.Ref, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// InconsistencyError reports a disposal that would drive the Section 104
// pool negative, together with the pool state at that point.
type InconsistencyError struct {
	Ref          string
	Date         time.Time
	Quantity     decimal.Decimal // unmatched disposal quantity reaching the pool
	PoolQuantity decimal.Decimal
	PoolCost     decimal.Decimal
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("disposal [%s] on %s: %s units exceed pool holding of %s units (cost %s)",
		e.Ref, e.Date.Format(dateFormat), e.Quantity.String(), e.PoolQuantity.String(), e.PoolCost.StringFixed(moneyPlaces))
}

func (e *InconsistencyError) Unwrap() error { return ErrInsufficientHoldings }
