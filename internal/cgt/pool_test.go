package cgt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAverageCostAfterAcquisitions(t *testing.T) {
	var p Pool
	lots := []struct{ qty, cost string }{
		{"1", "1000"},
		{"0.5", "700"},
		{"2.5", "2300"},
	}
	for _, l := range lots {
		p.Acquire(dec(l.qty), dec(l.cost))
	}
	assertDec(t, "4", p.Quantity)
	assertDec(t, "4000", p.TotalCost)
	assertDec(t, "1000", p.AverageCost())
}

func TestPoolDisposeProportional(t *testing.T) {
	var p Pool
	p.Acquire(dec("3"), dec("100"))

	removed, err := p.Dispose(dec("1"), DefaultEpsilon)
	require.NoError(t, err)
	assert.Equal(t, "33.33", removed.StringFixed(2))
	assertDec(t, "2", p.Quantity)
	assert.True(t, removed.Add(p.TotalCost).Equal(dec("100")), "cost must be conserved")

	removed, err = p.Dispose(dec("2"), DefaultEpsilon)
	require.NoError(t, err)
	assert.Equal(t, "66.67", removed.StringFixed(2))
	assert.True(t, p.IsEmpty())
	assert.True(t, p.TotalCost.IsZero())
}

func TestPoolDisposeInsufficient(t *testing.T) {
	var p Pool
	_, err := p.Dispose(dec("0.1"), DefaultEpsilon)
	assert.ErrorIs(t, err, ErrInsufficientHoldings)

	p.Acquire(dec("1"), dec("50"))
	_, err = p.Dispose(dec("1.1"), DefaultEpsilon)
	assert.ErrorIs(t, err, ErrInsufficientHoldings)
	assertDec(t, "1", p.Quantity, "failed disposal must leave the pool untouched")
	assertDec(t, "50", p.TotalCost)
}

func TestPoolRounded(t *testing.T) {
	p := Pool{Quantity: dec("0.123456789"), TotalCost: dec("10.005")}
	r := p.Rounded()
	assertDec(t, "0.12345679", r.Quantity)
	assertDec(t, "10.01", r.TotalCost)
	assert.True(t, Pool{}.AverageCost().IsZero())
}
