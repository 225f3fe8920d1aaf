package cgt

import (
	"fmt"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// acquisitionActions are the actions that increase the holding of the asset.
var acquisitionActions = map[string]bool{
	model.ActionFiatForCrypto:   true,
	model.ActionCryptoForCrypto: true,
}

// Classify turns a normalized transaction into an acquisition or disposal
// event. ok is false for records the calculation ignores (transfers,
// deposits, withdrawals and anything else that is neither).
//
// A disposal is valued at the GBP value of what was received; an
// acquisition at the GBP value of what was given up.
func Classify(tx model.Transaction) (ev model.Event, ok bool, err error) {
	var kind model.Kind
	switch {
	case tx.Disposal:
		kind = model.KindDisposal
	case acquisitionActions[tx.Action]:
		kind = model.KindAcquisition
	default:
		return model.Event{}, false, nil
	}

	if tx.DateTime.IsZero() {
		return model.Event{}, false, fmt.Errorf("%w: missing date", ErrInvalidEvent)
	}

	qty, value := tx.FinalQuantity, tx.InitialGBP
	if kind == model.KindDisposal {
		qty, value = tx.InitialQuantity, tx.FinalGBP
	}
	if !qty.IsPositive() {
		return model.Event{}, false, fmt.Errorf("%w: %s quantity %s must be positive", ErrInvalidEvent, kind, qty)
	}
	if !value.Valid {
		return model.Event{}, false, fmt.Errorf("%w: %s on %s", ErrMissingValuation, kind, tx.DateTime.Format(dateFormat))
	}

	return model.Event{
		Date:     model.Day(tx.DateTime),
		Kind:     kind,
		Quantity: qty,
		Value:    value,
		Ref:      tx.Reference(),
		Fee:      tx.Fee,
	}, true, nil
}

// ClassifyAll classifies transactions in order, dropping ignored ones.
func ClassifyAll(txs []model.Transaction) ([]model.Event, error) {
	events := make([]model.Event, 0, len(txs))
	for i, tx := range txs {
		ev, ok, err := Classify(tx)
		if err != nil {
			return nil, &EventError{Index: i, Ref: tx.Reference(), Err: err}
		}
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}
