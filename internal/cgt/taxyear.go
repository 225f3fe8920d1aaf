package cgt

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// TaxYear is a UK tax year, 6 April to 5 April inclusive.
type TaxYear struct {
	Name       string // e.g. "2021-22"
	Start, End time.Time
}

// TaxYearOf returns the tax year containing t.
func TaxYearOf(t time.Time) TaxYear {
	day := model.Day(t)
	start := day.Year()
	if day.Before(time.Date(start, time.April, 6, 0, 0, 0, 0, time.UTC)) {
		start--
	}
	return TaxYear{
		Name:  fmt.Sprintf("%d-%02d", start, (start+1)%100),
		Start: time.Date(start, time.April, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(start+1, time.April, 5, 0, 0, 0, 0, time.UTC),
	}
}

// Contains reports whether t falls inside the tax year.
func (ty TaxYear) Contains(t time.Time) bool {
	day := model.Day(t)
	return !day.Before(ty.Start) && !day.After(ty.End)
}

// YearSummary totals the report lines of one tax year.
type YearSummary struct {
	TaxYear
	Disposals     int
	Proceeds      decimal.Decimal
	AllowableCost decimal.Decimal
	Gains         decimal.Decimal
	Losses        decimal.Decimal // positive amount
	Net           decimal.Decimal
}

// SummarizeByTaxYear groups records by the tax year of their disposal.
// Disposals counts distinct disposals, not report lines.
func SummarizeByTaxYear(records []model.MatchRecord) []YearSummary {
	byName := make(map[string]*YearSummary)
	seen := make(map[string]bool)
	for _, r := range records {
		ty := TaxYearOf(r.DisposalDate)
		s, ok := byName[ty.Name]
		if !ok {
			s = &YearSummary{TaxYear: ty}
			byName[ty.Name] = s
		}
		key := r.DisposalDate.Format(dateFormat) + "|" + r.DisposalRef
		if !seen[key] {
			seen[key] = true
			s.Disposals++
		}
		s.Proceeds = s.Proceeds.Add(r.Proceeds)
		s.AllowableCost = s.AllowableCost.Add(r.AllowableCost)
		if r.Gain.IsNegative() {
			s.Losses = s.Losses.Sub(r.Gain)
		} else {
			s.Gains = s.Gains.Add(r.Gain)
		}
		s.Net = s.Net.Add(r.Gain)
	}

	out := make([]YearSummary, 0, len(byName))
	for _, s := range byName {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
