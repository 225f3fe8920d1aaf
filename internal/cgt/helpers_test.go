package cgt

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func acquire(day time.Time, qty, cost, ref string) model.Event {
	return model.Event{
		Date:     day,
		Kind:     model.KindAcquisition,
		Quantity: dec(qty),
		Value:    decimal.NewNullDecimal(dec(cost)),
		Ref:      ref,
	}
}

func dispose(day time.Time, qty, proceeds, ref string) model.Event {
	return model.Event{
		Date:     day,
		Kind:     model.KindDisposal,
		Quantity: dec(qty),
		Value:    decimal.NewNullDecimal(dec(proceeds)),
		Ref:      ref,
	}
}

// assertDec compares decimals by value so that exponent differences
// ("500" vs "500.00") do not matter.
func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}
