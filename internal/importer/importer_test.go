package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

const (
	btcFixture = "../../testdata/asset_transactions/BTC.csv"
	ethFixture = "../../testdata/events/ETH.csv"
)

const normalizedHeader = "asset,action,type,disposal,datetime,initial_asset_quantity,initial_asset_currency,initial_asset_location,initial_asset_address,price,final_asset_quantity,final_asset_currency,final_asset_gbp,final_asset_location,final_asset_address,fee_type,fee_quantity,fee_currency,fee_gbp,source_transaction_id,source_trade_id\n"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizedParser_ParseTransactions(t *testing.T) {
	data, err := os.ReadFile(btcFixture)
	require.NoError(t, err)

	p := &NormalizedParser{}
	txs, err := p.ParseTransactions(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, txs, 4)

	first := txs[0]
	assert.Equal(t, "BTC", first.Asset)
	assert.Equal(t, model.ActionFiatForCrypto, first.Action)
	assert.False(t, first.Disposal)
	assert.Equal(t, 2021, first.DateTime.Year())
	assert.Equal(t, 10, first.DateTime.Hour())
	assert.True(t, dec("1000").Equal(first.InitialQuantity))
	assert.True(t, first.InitialGBP.Valid, "GBP leg values itself")
	assert.True(t, dec("1000").Equal(first.InitialGBP.Decimal))
	assert.False(t, first.FinalGBP.Valid)
	assert.True(t, dec("10").Equal(first.FinalQuantity))
	assert.Equal(t, "exchange_fee", first.Fee.Type)
	assert.True(t, dec("4.99").Equal(first.Fee.GBP.Decimal))
	assert.Equal(t, "tx1", first.Reference())

	sell := txs[3]
	assert.True(t, sell.Disposal)
	assert.True(t, dec("2400").Equal(sell.FinalGBP.Decimal))
}

func TestNormalizedParser_Parse(t *testing.T) {
	data, err := os.ReadFile(btcFixture)
	require.NoError(t, err)

	p := &NormalizedParser{}
	events, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, events, 3, "deposit is dropped")

	assert.Equal(t, model.KindAcquisition, events[0].Kind)
	assert.Equal(t, model.KindAcquisition, events[1].Kind)
	assert.Equal(t, model.KindDisposal, events[2].Kind)
	assert.True(t, dec("8").Equal(events[2].Quantity))
	assert.True(t, dec("2400").Equal(events[2].Value.Decimal))
	assert.Equal(t, "tx4", events[2].Ref)
	assert.Equal(t, 0, events[2].Date.Hour(), "events are dated by day")
}

func TestNormalizedParser_ColumnOrder(t *testing.T) {
	input := "source_transaction_id,final_asset_quantity,initial_asset_quantity,datetime,disposal,action,initial_asset_gbp,extra\n" +
		"x1,0.25,0.01,2022-06-01T09:30:00Z,false,exchange_crypto_for_crypto,350.10,ignored\n"

	p := &NormalizedParser{}
	events, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.KindAcquisition, events[0].Kind)
	assert.True(t, dec("0.25").Equal(events[0].Quantity))
	assert.True(t, dec("350.10").Equal(events[0].Value.Decimal))
	assert.Equal(t, "x1", events[0].Ref)
}

func TestNormalizedParser_MissingColumn(t *testing.T) {
	p := &NormalizedParser{}
	_, err := p.Parse(strings.NewReader("action,datetime\nexchange_fiat_for_crypto,2021-01-01\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "disposal"`)
}

func TestNormalizedParser_MissingValuation(t *testing.T) {
	input := normalizedHeader +
		"ETH,exchange_fiat_for_crypto,buy,False,2021-01-01 10:00:00,1000,GBP,Coinbase,,100,10,ETH,,Coinbase,,,,,,e1,\n" +
		"ETH,exchange_crypto_for_crypto,trade,False,2021-01-02 10:00:00,0.1,BTC,Binance,,,2,ETH,,Binance,,,,,,e2,\n"

	p := &NormalizedParser{}
	_, err := p.Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cgt.ErrMissingValuation))

	var evErr *cgt.EventError
	require.True(t, errors.As(err, &evErr))
	assert.Equal(t, 1, evErr.Index)
	assert.Equal(t, "e2", evErr.Ref)
}

func TestNormalizedParser_BadValues(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad disposal flag", "BTC,exchange_crypto_for_fiat,sell,maybe,2021-01-01 10:00:00,1,BTC,,,,100,GBP,,,,,,,,t1,", "parsing disposal"},
		{"bad datetime", "BTC,exchange_crypto_for_fiat,sell,True,yesterday,1,BTC,,,,100,GBP,,,,,,,,t1,", "parsing datetime"},
		{"bad quantity", "BTC,exchange_crypto_for_fiat,sell,True,2021-01-01 10:00:00,one,BTC,,,,100,GBP,,,,,,,,t1,", "parsing initial_asset_quantity"},
		{"bad gbp", "BTC,exchange_crypto_for_fiat,sell,True,2021-01-01 10:00:00,1,BTC,,,,100,USD,lots,,,,,,,t1,", "parsing final_asset_gbp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &NormalizedParser{}
			_, err := p.ParseTransactions(strings.NewReader(normalizedHeader + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNormalizedParser_EmptyFile(t *testing.T) {
	p := &NormalizedParser{}
	events, err := p.Parse(strings.NewReader(normalizedHeader))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventsParser_Parse(t *testing.T) {
	data, err := os.ReadFile(ethFixture)
	require.NoError(t, err)

	p := &EventsParser{}
	events, err := p.Parse(strings.NewReader(string(data)))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, model.KindDisposal, events[1].Kind)
	assert.True(t, dec("2500").Equal(events[1].Value.Decimal))
	assert.Equal(t, "e2", events[1].Ref)

	res, err := cgt.ComputeGains(events)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, model.MethodThirtyDay, res.Records[0].Method)
}

func TestEventsParser_Errors(t *testing.T) {
	header := "date,kind,quantity,value_gbp,reference\n"
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad date", "01/05/2021,acquisition,1,10,r", "parsing date"},
		{"bad kind", "2021-05-01,gift,1,10,r", "unknown kind"},
		{"bad quantity", "2021-05-01,disposal,x,10,r", "parsing quantity"},
		{"bad value", "2021-05-01,disposal,1,x,r", "parsing value_gbp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &EventsParser{}
			_, err := p.Parse(strings.NewReader(header + tt.row + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEventsParser_MissingValue(t *testing.T) {
	p := &EventsParser{}
	events, err := p.Parse(strings.NewReader("date,kind,quantity,value_gbp,reference\n2021-05-01,Acquisition,1,,r1\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Value.Valid)

	_, err = cgt.ComputeGains(events)
	assert.True(t, errors.Is(err, cgt.ErrMissingValuation))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("Normalized"))
	assert.NotNil(t, r.Get("events"))
	assert.Nil(t, r.Get("chase"))
	assert.Equal(t, []string{"events", "normalized"}, r.Formats())

	assert.Panics(t, func() { r.Register(&EventsParser{}) })
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"btc.csv", "ETH.csv", "GBP.csv", "EUR.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "old.csv"), 0o755))

	files, err := Scan(dir, []string{"gbp", "EUR"})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "BTC", files[0].Asset)
	assert.Equal(t, "btc.csv", files[0].Name)
	assert.Equal(t, filepath.Join(dir, "btc.csv"), files[0].Path)
	assert.Equal(t, int64(2), files[0].Size)
	assert.Equal(t, "ETH", files[1].Asset)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"), nil)
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestReadFile(t *testing.T) {
	events, err := ReadFile(&NormalizedParser{}, btcFixture)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = ReadFile(&NormalizedParser{}, "does-not-exist.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening")
}
