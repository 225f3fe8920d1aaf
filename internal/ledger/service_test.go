package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

func computeOrFail(t *testing.T, events []model.Event) cgt.Result {
	t.Helper()
	res, err := cgt.ComputeGains(events)
	require.NoError(t, err)
	return res
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(filepath.Join(dir, "reports"))

	lines, err := svc.WriteReport("btc", sampleEvents(), sampleResult(t))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	path := filepath.Join(dir, "reports", "BTC.csv")
	assert.Equal(t, path, svc.Path("btc"))
	_, err = os.Stat(path)
	require.NoError(t, err)

	got, err := svc.ReadReport("BTC")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BTC-2020-0001a", got[0].ID)
	assert.Equal(t, model.MethodSameDay, got[0].Method)
	assert.True(t, dec("500").Equal(got[0].Gain))
	assert.Equal(t, model.MethodSection104, got[1].Method)
	assert.True(t, dec("600").Equal(got[1].Gain))
}

func TestWriteReport_Rewrites(t *testing.T) {
	svc := NewService(t.TempDir())

	_, err := svc.WriteReport("BTC", sampleEvents(), sampleResult(t))
	require.NoError(t, err)

	events := sampleEvents()[:1]
	_, err = svc.WriteReport("BTC", events, computeOrFail(t, events))
	require.NoError(t, err)

	got, err := svc.ReadReport("BTC")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteReport_ReconcileFailure(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir)

	res := sampleResult(t)
	res.Records[0].Gain = dec("0")

	_, err := svc.WriteReport("BTC", sampleEvents(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciliation failed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadReport_Missing(t *testing.T) {
	svc := NewService(t.TempDir())
	lines, err := svc.ReadReport("DOGE")
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestDisposals(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.WriteReport("BTC", sampleEvents(), sampleResult(t))
	require.NoError(t, err)

	ids, err := svc.Disposals("BTC")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC-2020-0001"}, ids)
}
