package cgt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

const (
	dateFormat = "2006-01-02"

	quantityPlaces int32 = 8
	moneyPlaces    int32 = 2

	// precision is the scale kept by proportional divisions. Values are only
	// rounded to quantityPlaces/moneyPlaces when a record is emitted.
	precision int32 = 24
)

// fragment is an event, an aggregate of a day's events, or a split-off part
// of either, travelling between matching stages.
type fragment struct {
	seq      int
	date     time.Time
	kind     model.Kind
	quantity decimal.Decimal
	value    decimal.Decimal
	refs     []string
	fees     []model.Fee

	// poolOnly marks the acquisition residue of a same-day match: it goes
	// straight to the pool and is never a thirty-day target.
	poolOnly bool
}

func (f fragment) empty() bool {
	return !f.quantity.IsPositive()
}

// split takes qty off f. The taken part's value is proportional; the rest
// keeps the difference so that no value is created or lost.
func (f fragment) split(qty decimal.Decimal) (taken, rest fragment) {
	if qty.GreaterThanOrEqual(f.quantity) {
		rest = f
		rest.quantity = decimal.Zero
		rest.value = decimal.Zero
		return f, rest
	}
	portion := f.value.Mul(qty).DivRound(f.quantity, precision)

	taken = f
	taken.quantity = qty
	taken.value = portion

	rest = f
	rest.quantity = f.quantity.Sub(qty)
	rest.value = f.value.Sub(portion)
	return taken, rest
}

// merge aggregates fragments of one day and kind. The result keeps the
// earliest sequence number.
func merge(frags []fragment) fragment {
	out := fragment{
		seq:      frags[0].seq,
		date:     frags[0].date,
		kind:     frags[0].kind,
		quantity: decimal.Zero,
		value:    decimal.Zero,
	}
	for _, f := range frags {
		out.quantity = out.quantity.Add(f.quantity)
		out.value = out.value.Add(f.value)
		out.refs = append(out.refs, f.refs...)
		out.fees = append(out.fees, f.fees...)
	}
	return out
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}
