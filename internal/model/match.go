package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method names the HMRC rule that matched a disposal.
type Method string

const (
	MethodSameDay    Method = "same_day"
	MethodThirtyDay  Method = "thirty_day"
	MethodSection104 Method = "section_104"
)

// Rank orders methods by HMRC priority.
func (m Method) Rank() int {
	switch m {
	case MethodSameDay:
		return 0
	case MethodThirtyDay:
		return 1
	case MethodSection104:
		return 2
	default:
		return 3
	}
}

// MatchRecord is one matched (part of a) disposal. It maps onto a single
// line of a capital gains report.
type MatchRecord struct {
	Method          Method
	DisposalDate    time.Time
	AcquisitionDate time.Time // zero for section_104
	DisposalRef     string    // semicolon-separated when a same-day disposal aggregates several events
	AcquisitionRef  string
	Quantity        decimal.Decimal // 8 dp
	AllowableCost   decimal.Decimal // 2 dp
	Proceeds        decimal.Decimal // 2 dp
	Gain            decimal.Decimal // Proceeds - AllowableCost, negative for a loss
	Fees            []Fee           // fees of the originating disposal events
}

// IsLoss reports whether the record realises a loss.
func (r MatchRecord) IsLoss() bool {
	return r.Gain.IsNegative()
}
