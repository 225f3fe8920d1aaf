package cgt

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// replayPool feeds the residual fragments, in date order, through pool.
func replayPool(frags []fragment, pool *Pool, epsilon decimal.Decimal, log logrus.FieldLogger) ([]pending, error) {
	var records []pending
	for _, f := range frags {
		if f.kind == model.KindAcquisition {
			pool.Acquire(f.quantity, f.value)
			continue
		}

		held := *pool
		cost, err := pool.Dispose(f.quantity, epsilon)
		if errors.Is(err, ErrInsufficientHoldings) {
			return nil, &InconsistencyError{
				Ref:          strings.Join(f.refs, refSeparator),
				Date:         f.date,
				Quantity:     f.quantity,
				PoolQuantity: held.Quantity,
				PoolCost:     held.TotalCost,
			}
		}
		if err != nil {
			return nil, err
		}

		rec := newRecord(model.MethodSection104, f, cost, nil)
		log.WithFields(logrus.Fields{
			"date":          f.date.Format(dateFormat),
			"quantity":      rec.rec.Quantity.String(),
			"pool_quantity": pool.Quantity.String(),
			"gain":          rec.rec.Gain.StringFixed(moneyPlaces),
		}).Debug("section 104 match")
		records = append(records, rec)
	}
	return records, nil
}
