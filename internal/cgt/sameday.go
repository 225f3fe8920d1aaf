package cgt

import (
	"github.com/sirupsen/logrus"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// matchSameDay nets each day's acquisitions against its disposals. frags
// must be sorted by date. It returns the same_day records and the fragments
// left for the later rules, still in date order.
func matchSameDay(frags []fragment, log logrus.FieldLogger) ([]pending, []fragment) {
	var (
		records []pending
		rest    []fragment
	)
	for start := 0; start < len(frags); {
		end := start
		for end < len(frags) && frags[end].date.Equal(frags[start].date) {
			end++
		}
		recs, left := netDay(frags[start:end], log)
		records = append(records, recs...)
		rest = append(rest, left...)
		start = end
	}
	return records, rest
}

func netDay(day []fragment, log logrus.FieldLogger) ([]pending, []fragment) {
	var acqs, disps []fragment
	for _, f := range day {
		if f.kind == model.KindAcquisition {
			acqs = append(acqs, f)
		} else {
			disps = append(disps, f)
		}
	}
	if len(acqs) == 0 || len(disps) == 0 {
		return nil, day
	}

	acquired, disposed := merge(acqs), merge(disps)
	matched := minDecimal(acquired.quantity, disposed.quantity)

	acqTaken, acqRest := acquired.split(matched)
	dispTaken, dispRest := disposed.split(matched)

	rec := newRecord(model.MethodSameDay, dispTaken, acqTaken.value, &acqTaken)
	log.WithFields(logrus.Fields{
		"date":     dispTaken.date.Format(dateFormat),
		"quantity": rec.rec.Quantity.String(),
		"gain":     rec.rec.Gain.StringFixed(moneyPlaces),
	}).Debug("same-day match")

	var left []fragment
	if !acqRest.empty() {
		acqRest.poolOnly = true
		left = append(left, acqRest)
	}
	if !dispRest.empty() {
		left = append(left, dispRest)
	}
	return []pending{rec}, left
}
