package cgt

import (
	"github.com/shopspring/decimal"
)

// Pool is a Section 104 holding: every unit not matched by the same-day or
// thirty-day rules, at its weighted average cost.
//
// A Pool is owned by a single run and is not safe for concurrent use.
type Pool struct {
	Quantity  decimal.Decimal
	TotalCost decimal.Decimal
}

// AverageCost returns the cost per unit, or zero for an empty pool.
func (p Pool) AverageCost() decimal.Decimal {
	if !p.Quantity.IsPositive() {
		return decimal.Zero
	}
	return p.TotalCost.DivRound(p.Quantity, precision)
}

// IsEmpty reports whether the pool holds nothing.
func (p Pool) IsEmpty() bool {
	return !p.Quantity.IsPositive()
}

// Rounded returns the pool at reporting precision.
func (p Pool) Rounded() Pool {
	return Pool{
		Quantity:  p.Quantity.Round(quantityPlaces),
		TotalCost: p.TotalCost.Round(moneyPlaces),
	}
}

// Acquire adds qty units bought for cost.
func (p *Pool) Acquire(qty, cost decimal.Decimal) {
	p.Quantity = p.Quantity.Add(qty)
	p.TotalCost = p.TotalCost.Add(cost)
}

// Dispose removes qty units and returns the cost that leaves the pool with
// them. A shortfall of at most epsilon empties the pool; anything larger
// returns ErrInsufficientHoldings and leaves the pool untouched.
func (p *Pool) Dispose(qty, epsilon decimal.Decimal) (decimal.Decimal, error) {
	if qty.GreaterThanOrEqual(p.Quantity) {
		if !p.Quantity.IsPositive() || qty.Sub(p.Quantity).GreaterThan(epsilon) {
			return decimal.Zero, ErrInsufficientHoldings
		}
		removed := p.TotalCost
		p.Quantity = decimal.Zero
		p.TotalCost = decimal.Zero
		return removed, nil
	}

	removed := p.TotalCost.Mul(qty).DivRound(p.Quantity, precision)
	p.Quantity = p.Quantity.Sub(qty)
	p.TotalCost = p.TotalCost.Sub(removed)
	return removed, nil
}
