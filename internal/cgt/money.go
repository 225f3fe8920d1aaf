package cgt

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatGBP renders an amount as pounds, e.g. "£1,333.33".
func FormatGBP(d decimal.Decimal) string {
	pence := d.Round(moneyPlaces).Shift(moneyPlaces).IntPart()
	return money.New(pence, money.GBP).Display()
}
