package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Actions recognized in the normalized transaction schema.
const (
	ActionFiatForCrypto   = "exchange_fiat_for_crypto"
	ActionCryptoForCrypto = "exchange_crypto_for_crypto"
	ActionCryptoForFiat   = "exchange_crypto_for_fiat"
	ActionDepositCrypto   = "deposit_crypto"
	ActionWithdrawCrypto  = "withdraw_crypto"
	ActionDepositFiat     = "deposit_fiat"
	ActionWithdrawFiat    = "withdraw_fiat"
)

// Fee is the fee charged on a transaction. It never enters the gain
// calculation and is carried through to report lines unchanged.
type Fee struct {
	Type     string // exchange fee or transfer fee
	Quantity decimal.Decimal
	Currency string
	GBP      decimal.NullDecimal
}

// IsZero reports whether no fee was recorded.
func (f Fee) IsZero() bool {
	return f.Type == "" && f.Quantity.IsZero() && f.Currency == "" && !f.GBP.Valid
}

// Transaction is one row of the normalized per-asset transaction history
// produced by the exchange and wallet importers.
type Transaction struct {
	Asset    string
	Action   string // exchange_fiat_for_crypto, exchange_crypto_for_crypto, deposit_crypto, ...
	Type     string // provider's own categorisation
	Disposal bool   // taxable disposal for HMRC
	DateTime time.Time

	InitialQuantity decimal.Decimal
	InitialCurrency string
	InitialLocation string
	InitialAddress  string
	InitialGBP      decimal.NullDecimal // GBP value of what was given up

	Price decimal.Decimal

	FinalQuantity decimal.Decimal
	FinalCurrency string
	FinalLocation string
	FinalAddress  string
	FinalGBP      decimal.NullDecimal // GBP value of what was received

	Fee Fee

	SourceTransactionID string
	SourceTradeID       string
}

// Reference returns the most specific source identifier available.
func (t Transaction) Reference() string {
	if t.SourceTransactionID != "" {
		return t.SourceTransactionID
	}
	return t.SourceTradeID
}
