package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// ValidationError describes a single invariant violation found by Reconcile.
type ValidationError struct {
	Invariant   int
	Ref         string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.Ref, e.Description)
}

const refSeparator = ";"

// quantityUnit is the smallest reported quantity step.
var quantityUnit = decimal.New(1, -8)

// Reconcile audits a computed result against the events it came from.
// It enforces 5 invariants and returns every violation found.
func Reconcile(events []model.Event, res cgt.Result) []ValidationError {
	var errs []ValidationError

	// Group records by disposal (date + joined refs).
	groups := make(map[string]decimal.Decimal)
	var groupOrder []string
	total := decimal.Zero
	for _, rec := range res.Records {
		key := disposalKey(rec)
		if _, seen := groups[key]; !seen {
			groupOrder = append(groupOrder, key)
			groups[key] = decimal.Zero
		}
		groups[key] = groups[key].Add(rec.Quantity)
		total = total.Add(rec.Quantity)
	}

	tolerance := quantityUnit.Mul(decimal.NewFromInt(int64(len(res.Records) + 1)))

	// Invariant 1: each disposal is matched in full.
	for _, key := range groupOrder {
		date, refs, _ := strings.Cut(key, "|")
		want := decimal.Zero
		for _, ev := range events {
			if ev.Kind == model.KindDisposal && model.Day(ev.Date).Format(dateFormat) == date && containsRef(refs, ev.Ref) {
				want = want.Add(ev.Quantity)
			}
		}
		if got := groups[key]; got.Sub(want).Abs().GreaterThan(tolerance) {
			errs = append(errs, ValidationError{
				Invariant:   1,
				Ref:         refs,
				Description: fmt.Sprintf("matched quantity (%s) != disposed quantity (%s) on %s", got.String(), want.String(), date),
			})
		}
	}

	for _, rec := range res.Records {
		// Invariant 2: gain is proceeds minus allowable cost.
		if want := rec.Proceeds.Sub(rec.AllowableCost); !rec.Gain.Equal(want) {
			errs = append(errs, ValidationError{
				Invariant:   2,
				Ref:         rec.DisposalRef,
				Description: fmt.Sprintf("gain (%s) != proceeds - cost (%s)", rec.Gain.String(), want.String()),
			})
		}

		// Invariant 3: reporting precision.
		for _, m := range []struct {
			name  string
			value decimal.Decimal
		}{{"allowable cost", rec.AllowableCost}, {"proceeds", rec.Proceeds}, {"gain", rec.Gain}} {
			if !m.value.Equal(m.value.Round(2)) {
				errs = append(errs, ValidationError{
					Invariant:   3,
					Ref:         rec.DisposalRef,
					Description: fmt.Sprintf("%s %s has more than 2 decimal places", m.name, m.value.String()),
				})
			}
		}
		if !rec.Quantity.Equal(rec.Quantity.Round(8)) {
			errs = append(errs, ValidationError{
				Invariant:   3,
				Ref:         rec.DisposalRef,
				Description: fmt.Sprintf("quantity %s has more than 8 decimal places", rec.Quantity.String()),
			})
		}
	}

	// Invariant 4: every record consumed acquired quantity, the rest is pooled.
	acquired := decimal.Zero
	disposed := decimal.Zero
	for _, ev := range events {
		switch ev.Kind {
		case model.KindAcquisition:
			acquired = acquired.Add(ev.Quantity)
		case model.KindDisposal:
			disposed = disposed.Add(ev.Quantity)
		}
	}
	if want := total.Add(res.Pool.Quantity); acquired.Sub(want).Abs().GreaterThan(tolerance) {
		errs = append(errs, ValidationError{
			Invariant:   4,
			Ref:         "pool",
			Description: fmt.Sprintf("acquired (%s) != matched acquisitions + pool (%s)", acquired.String(), want.String()),
		})
	}
	if disposed.Sub(total).Abs().GreaterThan(tolerance) {
		errs = append(errs, ValidationError{
			Invariant:   4,
			Ref:         "pool",
			Description: fmt.Sprintf("disposed (%s) != reported quantity (%s)", disposed.String(), total.String()),
		})
	}

	// Invariant 5: pool is never negative.
	if res.Pool.Quantity.IsNegative() || res.Pool.TotalCost.IsNegative() {
		errs = append(errs, ValidationError{
			Invariant:   5,
			Ref:         "pool",
			Description: fmt.Sprintf("negative pool (quantity %s, cost %s)", res.Pool.Quantity.String(), res.Pool.TotalCost.String()),
		})
	}

	return errs
}

func disposalKey(rec model.MatchRecord) string {
	return rec.DisposalDate.Format(dateFormat) + "|" + rec.DisposalRef
}

func containsRef(joined, ref string) bool {
	for _, r := range strings.Split(joined, refSeparator) {
		if r == ref {
			return true
		}
	}
	return false
}
