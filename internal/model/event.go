package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies an event for matching.
type Kind string

const (
	KindAcquisition Kind = "acquisition"
	KindDisposal    Kind = "disposal"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAcquisition || k == KindDisposal
}

// Event is a single acquisition or disposal of one asset, valued in GBP.
type Event struct {
	Date     time.Time // calendar day, UTC
	Kind     Kind
	Quantity decimal.Decimal     // asset units, always positive
	Value    decimal.NullDecimal // cost for an acquisition, proceeds for a disposal
	Ref      string
	Fee      Fee
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
