package id

import (
	cryptorand "crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// FormatDisposalID returns a disposal ID like "BTC-2021-0001", numbered
// within the tax year starting in year.
func FormatDisposalID(asset string, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", strings.ToUpper(asset), year, seq)
}

// FormatLineID returns a report line ID like "BTC-2021-0001a" (line 0='a', 1='b', etc.).
func FormatLineID(disposalID string, line int) string {
	return disposalID + string(rune('a'+line))
}

// ParseDisposalID parses "BTC-2021-0001" into asset, year, seq.
func ParseDisposalID(id string) (asset string, year, seq int, err error) {
	// Strip any line suffix (trailing lowercase letters).
	base := DisposalGroup(id)

	seqAt := strings.LastIndex(base, "-")
	if seqAt <= 0 {
		return "", 0, 0, fmt.Errorf("invalid disposal ID format: %q", id)
	}
	yearAt := strings.LastIndex(base[:seqAt], "-")
	if yearAt <= 0 {
		return "", 0, 0, fmt.Errorf("invalid disposal ID format: %q", id)
	}

	asset = base[:yearAt]

	year, err = strconv.Atoi(base[yearAt+1 : seqAt])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid year in disposal ID %q: %w", id, err)
	}

	seq, err = strconv.Atoi(base[seqAt+1:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in disposal ID %q: %w", id, err)
	}

	return asset, year, seq, nil
}

// DisposalGroup strips the line suffix from a line ID.
// "BTC-2021-0001a" -> "BTC-2021-0001"
func DisposalGroup(lineID string) string {
	if len(lineID) == 0 {
		return ""
	}
	i := len(lineID)
	for i > 0 && lineID[i-1] >= 'a' && lineID[i-1] <= 'z' {
		i--
	}
	return lineID[:i]
}

var (
	mu      sync.Mutex
	entropy io.Reader = ulid.Monotonic(cryptorand.Reader, 0)
)

// NewRunID returns a ULID identifying one calculation run. Run IDs sort by
// creation time.
func NewRunID() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// RunTime returns the creation time encoded in a run ID.
func RunTime(runID string) (time.Time, error) {
	u, err := ulid.ParseStrict(runID)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing run ID %q: %w", runID, err)
	}
	return ulid.Time(u.Time()), nil
}
