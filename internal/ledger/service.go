package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/id"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// Service writes and reads per-asset gains reports under an output directory.
type Service struct {
	outputDir string
}

// NewService creates a ledger Service.
func NewService(outputDir string) *Service {
	return &Service{outputDir: outputDir}
}

// WriteReport reconciles res against events, numbers its lines and
// rewrites <outputDir>/<ASSET>.csv from scratch. Nothing is written when
// reconciliation fails.
func (s *Service) WriteReport(asset string, events []model.Event, res cgt.Result) ([]Line, error) {
	if verrs := Reconcile(events, res); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, fmt.Errorf("reconciliation failed: %s", strings.Join(msgs, "; "))
	}

	lines := NumberLines(asset, res.Records)

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}

	// Write to a temp file first so a failed run never leaves half a report.
	path := s.Path(asset)
	tmp, err := os.CreateTemp(s.outputDir, "."+strings.ToUpper(asset)+"-*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteRecords(tmp, lines); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing report %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("replacing report %s: %w", path, err)
	}
	return lines, nil
}

// ReadReport reads the report for an asset. A missing report yields no lines.
func (s *Service) ReadReport(asset string) ([]Line, error) {
	path := s.Path(asset)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()

	lines, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	return lines, nil
}

// Disposals returns the distinct disposal IDs in a report, in file order.
func (s *Service) Disposals(asset string) ([]string, error) {
	lines, err := s.ReadReport(asset)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		g := id.DisposalGroup(line.ID)
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out, nil
}

// Path returns the report path for an asset.
func (s *Service) Path(asset string) string {
	return filepath.Join(s.outputDir, strings.ToUpper(asset)+".csv")
}
