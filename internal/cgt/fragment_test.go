package cgt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

func TestSplitConservesQuantityAndValue(t *testing.T) {
	tests := []struct {
		qty, value, take string
	}{
		{"1.5", "2000", "1"},
		{"3", "100", "1"},
		{"0.00000003", "0.01", "0.00000001"},
		{"7", "1234.56", "2.33333333"},
		{"1", "0", "0.5"},
	}
	for _, tt := range tests {
		f := fragment{kind: model.KindAcquisition, quantity: dec(tt.qty), value: dec(tt.value)}
		taken, rest := f.split(dec(tt.take))

		assert.True(t, taken.quantity.Add(rest.quantity).Equal(f.quantity), "quantity %+v", tt)
		assert.True(t, taken.value.Add(rest.value).Equal(f.value), "value %+v", tt)
		assertDec(t, tt.take, taken.quantity)
	}
}

func TestSplitWholeFragment(t *testing.T) {
	f := fragment{kind: model.KindDisposal, quantity: dec("2"), value: dec("10"), refs: []string{"d1"}}

	taken, rest := f.split(dec("2"))
	assertDec(t, "2", taken.quantity)
	assertDec(t, "10", taken.value)
	assert.True(t, rest.empty())
	assert.True(t, rest.value.IsZero())

	taken, rest = f.split(dec("3"))
	assertDec(t, "2", taken.quantity)
	assert.True(t, rest.empty())
}

func TestSplitIsProportional(t *testing.T) {
	f := fragment{quantity: dec("1.5"), value: dec("2000")}
	taken, rest := f.split(dec("1"))
	assert.Equal(t, "1333.33", taken.value.StringFixed(2))
	assert.Equal(t, "666.67", rest.value.StringFixed(2))
}

func TestMerge(t *testing.T) {
	day := date(2021, 5, 1)
	m := merge([]fragment{
		{seq: 4, date: day, kind: model.KindDisposal, quantity: dec("0.5"), value: dec("10"), refs: []string{"x"}},
		{seq: 7, date: day, kind: model.KindDisposal, quantity: dec("0.25"), value: dec("6"), refs: []string{"y"},
			fees: []model.Fee{{Currency: "BTC"}}},
	})
	assert.Equal(t, 4, m.seq)
	assertDec(t, "0.75", m.quantity)
	assertDec(t, "16", m.value)
	assert.Equal(t, []string{"x", "y"}, m.refs)
	assert.Len(t, m.fees, 1)
}
