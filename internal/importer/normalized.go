package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// NormalizedParser parses the normalized per-asset transaction history
// written by the exchange and wallet importers. Columns are located by
// header name, so their order does not matter and unknown columns are
// ignored.
type NormalizedParser struct{}

// Normalized schema column names.
const (
	colAsset               = "asset"
	colAction              = "action"
	colType                = "type"
	colDisposal            = "disposal"
	colDateTime            = "datetime"
	colInitialQuantity     = "initial_asset_quantity"
	colInitialCurrency     = "initial_asset_currency"
	colInitialLocation     = "initial_asset_location"
	colInitialAddress      = "initial_asset_address"
	colInitialGBP          = "initial_asset_gbp"
	colPrice               = "price"
	colFinalQuantity       = "final_asset_quantity"
	colFinalCurrency       = "final_asset_currency"
	colFinalGBP            = "final_asset_gbp"
	colFinalLocation       = "final_asset_location"
	colFinalAddress        = "final_asset_address"
	colFeeType             = "fee_type"
	colFeeQuantity         = "fee_quantity"
	colFeeCurrency         = "fee_currency"
	colFeeGBP              = "fee_gbp"
	colSourceTransactionID = "source_transaction_id"
	colSourceTradeID       = "source_trade_id"
)

var requiredColumns = []string{colAction, colDisposal, colDateTime, colInitialQuantity, colFinalQuantity}

// dateTimeLayouts are tried in order.
var dateTimeLayouts = []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02"}

const fiatGBP = "GBP"

// Format returns the parser name.
func (p *NormalizedParser) Format() string { return "normalized" }

// Parse reads normalized transactions and classifies them.
func (p *NormalizedParser) Parse(r io.Reader) ([]model.Event, error) {
	txs, err := p.ParseTransactions(r)
	if err != nil {
		return nil, err
	}
	return cgt.ClassifyAll(txs)
}

// ParseTransactions reads normalized transactions without classifying them.
func (p *NormalizedParser) ParseTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading normalized CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var txs []model.Transaction
	for i, rec := range records[1:] {
		tx, err := parseNormalizedRow(row{cols: cols, rec: rec})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// row looks up fields by column name.
type row struct {
	cols map[string]int
	rec  []string
}

func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r row) amount(name string) (decimal.Decimal, error) {
	s := r.get(name)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s %q: %w", name, s, err)
	}
	return d, nil
}

func (r row) nullAmount(name string) (decimal.NullDecimal, error) {
	s := r.get(name)
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parsing %s %q: %w", name, s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseNormalizedRow(r row) (model.Transaction, error) {
	var (
		tx  model.Transaction
		err error
	)

	tx.DateTime, err = parseDateTime(r.get(colDateTime))
	if err != nil {
		return model.Transaction{}, err
	}

	if s := r.get(colDisposal); s != "" {
		tx.Disposal, err = strconv.ParseBool(s)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing disposal %q: %w", s, err)
		}
	}

	tx.Asset = r.get(colAsset)
	tx.Action = r.get(colAction)
	tx.Type = r.get(colType)
	tx.InitialCurrency = r.get(colInitialCurrency)
	tx.InitialLocation = r.get(colInitialLocation)
	tx.InitialAddress = r.get(colInitialAddress)
	tx.FinalCurrency = r.get(colFinalCurrency)
	tx.FinalLocation = r.get(colFinalLocation)
	tx.FinalAddress = r.get(colFinalAddress)
	tx.Fee.Type = r.get(colFeeType)
	tx.Fee.Currency = r.get(colFeeCurrency)
	tx.SourceTransactionID = r.get(colSourceTransactionID)
	tx.SourceTradeID = r.get(colSourceTradeID)

	if tx.InitialQuantity, err = r.amount(colInitialQuantity); err != nil {
		return model.Transaction{}, err
	}
	if tx.FinalQuantity, err = r.amount(colFinalQuantity); err != nil {
		return model.Transaction{}, err
	}
	if tx.Price, err = r.amount(colPrice); err != nil {
		return model.Transaction{}, err
	}
	if tx.Fee.Quantity, err = r.amount(colFeeQuantity); err != nil {
		return model.Transaction{}, err
	}
	if tx.InitialGBP, err = r.nullAmount(colInitialGBP); err != nil {
		return model.Transaction{}, err
	}
	if tx.FinalGBP, err = r.nullAmount(colFinalGBP); err != nil {
		return model.Transaction{}, err
	}
	if tx.Fee.GBP, err = r.nullAmount(colFeeGBP); err != nil {
		return model.Transaction{}, err
	}

	// A GBP leg is its own valuation.
	if !tx.InitialGBP.Valid && strings.EqualFold(tx.InitialCurrency, fiatGBP) {
		tx.InitialGBP = decimal.NewNullDecimal(tx.InitialQuantity)
	}
	if !tx.FinalGBP.Valid && strings.EqualFold(tx.FinalCurrency, fiatGBP) {
		tx.FinalGBP = decimal.NewNullDecimal(tx.FinalQuantity)
	}
	if !tx.Fee.GBP.Valid && strings.EqualFold(tx.Fee.Currency, fiatGBP) {
		tx.Fee.GBP = decimal.NewNullDecimal(tx.Fee.Quantity)
	}

	return tx, nil
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing datetime %q", s)
}
