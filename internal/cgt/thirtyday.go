package cgt

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// windowDays is how far after a disposal an acquisition can be matched.
const windowDays = 30

// matchThirtyDay matches each disposal, oldest first, against acquisitions
// made on the 30 days after it, earliest first. Acquisitions are consumed as
// they are matched, so an earlier disposal has first claim. Unmatched
// quantities on either side are returned for the pool in date order.
func matchThirtyDay(frags []fragment, log logrus.FieldLogger) ([]pending, []fragment) {
	var (
		disposals []fragment
		targets   []fragment
		rest      []fragment
	)
	for _, f := range frags {
		switch {
		case f.kind == model.KindDisposal:
			disposals = append(disposals, f)
		case f.poolOnly:
			rest = append(rest, f)
		default:
			targets = append(targets, f)
		}
	}

	var records []pending
	for _, d := range disposals {
		remaining := d
		last := d.date.AddDate(0, 0, windowDays)
		for i := range targets {
			if remaining.empty() {
				break
			}
			a := targets[i]
			if a.empty() || !a.date.After(d.date) {
				continue
			}
			if a.date.After(last) {
				break
			}
			take := minDecimal(remaining.quantity, a.quantity)

			var dispTaken, acqTaken fragment
			dispTaken, remaining = remaining.split(take)
			acqTaken, targets[i] = a.split(take)

			rec := newRecord(model.MethodThirtyDay, dispTaken, acqTaken.value, &acqTaken)
			log.WithFields(logrus.Fields{
				"disposal":    dispTaken.date.Format(dateFormat),
				"acquisition": acqTaken.date.Format(dateFormat),
				"quantity":    rec.rec.Quantity.String(),
				"gain":        rec.rec.Gain.StringFixed(moneyPlaces),
			}).Debug("thirty-day match")
			records = append(records, rec)
		}
		if !remaining.empty() {
			rest = append(rest, remaining)
		}
	}

	for _, a := range targets {
		if !a.empty() {
			rest = append(rest, a)
		}
	}
	sortFragments(rest)
	return records, rest
}

func sortFragments(frags []fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		if !frags[i].date.Equal(frags[j].date) {
			return frags[i].date.Before(frags[j].date)
		}
		return frags[i].seq < frags[j].seq
	})
}
