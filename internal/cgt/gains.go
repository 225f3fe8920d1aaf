package cgt

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// refSeparator joins the references of events aggregated into one record.
const refSeparator = ";"

// DefaultEpsilon is the largest pool shortfall, in asset units, treated as
// rounding drift rather than missing history.
var DefaultEpsilon = decimal.New(1, -8)

// Result is the outcome of a run over one asset's history.
type Result struct {
	Records []model.MatchRecord
	Pool    Pool
}

type options struct {
	epsilon decimal.Decimal
	log     logrus.FieldLogger
}

// Option configures ComputeGains.
type Option func(*options)

// WithEpsilon overrides DefaultEpsilon.
func WithEpsilon(eps decimal.Decimal) Option {
	return func(o *options) { o.epsilon = eps }
}

// WithLogger traces every match at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// ComputeGains matches the disposals in one asset's history under the
// same-day rule, then the thirty-day rule, then the Section 104 pool.
//
// Same-day and thirty-day matching is resolved for the whole history before
// anything enters the pool, since a disposal can claim an acquisition made
// up to 30 days later. Events are ordered by date, ties keeping input order.
// The returned records are sorted by disposal date and rule priority.
//
// ComputeGains reads nothing but its arguments and returns no partial
// result on error.
func ComputeGains(events []model.Event, opts ...Option) (Result, error) {
	o := options{epsilon: DefaultEpsilon}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = discardLogger()
	}

	frags, err := fragments(events)
	if err != nil {
		return Result{}, err
	}

	sameDay, rest := matchSameDay(frags, o.log)
	thirtyDay, rest := matchThirtyDay(rest, o.log)

	var pool Pool
	section104, err := replayPool(rest, &pool, o.epsilon, o.log)
	if err != nil {
		return Result{}, err
	}

	all := make([]pending, 0, len(sameDay)+len(thirtyDay)+len(section104))
	all = append(all, sameDay...)
	all = append(all, thirtyDay...)
	all = append(all, section104...)
	sortPending(all)

	records := make([]model.MatchRecord, len(all))
	for i, p := range all {
		records[i] = p.rec
	}
	return Result{Records: records, Pool: pool}, nil
}

// fragments validates events and orders them by day, keeping input order
// for ties.
func fragments(events []model.Event) ([]fragment, error) {
	frags := make([]fragment, 0, len(events))
	for i, ev := range events {
		if err := validate(ev); err != nil {
			return nil, &EventError{Index: i, Ref: ev.Ref, Err: err}
		}
		f := fragment{
			seq:      i,
			date:     model.Day(ev.Date),
			kind:     ev.Kind,
			quantity: ev.Quantity,
			value:    ev.Value.Decimal,
			refs:     []string{ev.Ref},
		}
		if ev.Kind == model.KindDisposal && !ev.Fee.IsZero() {
			f.fees = []model.Fee{ev.Fee}
		}
		frags = append(frags, f)
	}
	sortFragments(frags)
	return frags, nil
}

func validate(ev model.Event) error {
	switch {
	case !ev.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
	case ev.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidEvent)
	case !ev.Quantity.IsPositive():
		return fmt.Errorf("%w: quantity %s must be positive", ErrInvalidEvent, ev.Quantity)
	case !ev.Value.Valid:
		return ErrMissingValuation
	case ev.Value.Decimal.IsNegative():
		return fmt.Errorf("%w: value %s must not be negative", ErrInvalidEvent, ev.Value.Decimal)
	}
	return nil
}

type pending struct {
	rec model.MatchRecord
	seq int
}

// newRecord rounds a match for reporting. The gain is taken from the
// rounded figures so every line adds up on its own.
func newRecord(method model.Method, disposal fragment, cost decimal.Decimal, acq *fragment) pending {
	proceeds := disposal.value.Round(moneyPlaces)
	allowable := cost.Round(moneyPlaces)
	rec := model.MatchRecord{
		Method:        method,
		DisposalDate:  disposal.date,
		DisposalRef:   strings.Join(disposal.refs, refSeparator),
		Quantity:      disposal.quantity.Round(quantityPlaces),
		AllowableCost: allowable,
		Proceeds:      proceeds,
		Gain:          proceeds.Sub(allowable),
		Fees:          disposal.fees,
	}
	if acq != nil {
		rec.AcquisitionDate = acq.date
		rec.AcquisitionRef = strings.Join(acq.refs, refSeparator)
	}
	return pending{rec: rec, seq: disposal.seq}
}

func sortPending(all []pending) {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.rec.DisposalDate.Equal(b.rec.DisposalDate) {
			return a.rec.DisposalDate.Before(b.rec.DisposalDate)
		}
		if a.rec.Method.Rank() != b.rec.Method.Rank() {
			return a.rec.Method.Rank() < b.rec.Method.Rank()
		}
		return a.seq < b.seq
	})
}
