package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		RunID:     "01JHGX5Z8W3V9K2M4N6P8Q0R2S",
		Asset:     "BTC",
		Action:    ActionComputed,
		Details:   "3 lines, net gain £1,100.00",
	}
}

func TestAppend_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run-log.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BTC", entries[0].Asset)
	assert.True(t, testTime.Equal(entries[0].Timestamp))
}

func TestAppend_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-log.csv")
	require.NoError(t, Append(path, []Entry{testEntry()}))

	e2 := testEntry()
	e2.Asset = "ETH"
	e2.Action = ActionFailed
	require.NoError(t, Append(path, []Entry{e2}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "BTC", entries[0].Asset)
	assert.Equal(t, ActionFailed, entries[1].Action)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_NonExistent(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_BadTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-log.csv")
	require.NoError(t, os.WriteFile(path, []byte(Header+"\nyesterday,r1,BTC,start,\n"), 0o644))

	_, err := Read(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestDetailsWithCommas(t *testing.T) {
	e := testEntry()
	e.Details = `failed: insufficient holdings, "BTC" short`
	path := filepath.Join(t.TempDir(), "run-log.csv")
	require.NoError(t, Append(path, []Entry{e}))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.Details, entries[0].Details)
}

func TestForRun(t *testing.T) {
	a := testEntry()
	b := testEntry()
	b.RunID = "other"
	got := ForRun([]Entry{a, b, a}, a.RunID)
	assert.Len(t, got, 2)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder("run-1")
	r.now = func() time.Time { return testTime }

	var wg sync.WaitGroup
	for _, asset := range []string{"BTC", "ETH", "SOL"} {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			r.Record(asset, ActionComputed, "ok")
		}(asset)
	}
	wg.Wait()

	entries := r.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "run-1", e.RunID)
		assert.True(t, testTime.Equal(e.Timestamp))
	}

	path := filepath.Join(t.TempDir(), "run-log.csv")
	require.NoError(t, r.Flush(path))
	read, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, read, 3)
}
