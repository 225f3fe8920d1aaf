package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/cgt"
	"github.com/cryptotax-uk/cryptotax/internal/id"
	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// Header is the CSV header of a gains report.
const Header = "line_id,asset,method,disposal_date,acquisition_date,quantity,allowable_cost,proceeds,gain,disposal_ref,acquisition_ref,fees"

const (
	numFields      = 12
	dateFormat     = "2006-01-02"
	colLineID      = 0
	colAsset       = 1
	colMethod      = 2
	colDispDate    = 3
	colAcqDate     = 4
	colQuantity    = 5
	colCost        = 6
	colProceeds    = 7
	colGain        = 8
	colDispRef     = 9
	colAcqRef      = 10
	colFees        = 11
	feeSeparator   = ";"
	feeFieldSep    = ":"
	feeFieldsCount = 4
)

// Line is one row of a gains report: a match record with its line ID.
type Line struct {
	ID    string
	Asset string
	model.MatchRecord
}

// NumberLines assigns line IDs to records, which must be in report order.
// Disposals are numbered from 1 within each tax year; the lines of one
// disposal share its ID and take suffixes a, b, c...
func NumberLines(asset string, records []model.MatchRecord) []Line {
	lines := make([]Line, 0, len(records))
	seqByYear := make(map[int]int)
	lineNo := make(map[string]int)
	disposalIDs := make(map[string]string)

	for _, rec := range records {
		key := rec.DisposalDate.Format(dateFormat) + "|" + rec.DisposalRef
		dispID, ok := disposalIDs[key]
		if !ok {
			year := cgt.TaxYearOf(rec.DisposalDate).Start.Year()
			seqByYear[year]++
			dispID = id.FormatDisposalID(asset, year, seqByYear[year])
			disposalIDs[key] = dispID
		}
		lines = append(lines, Line{
			ID:          id.FormatLineID(dispID, lineNo[dispID]),
			Asset:       strings.ToUpper(asset),
			MatchRecord: rec,
		})
		lineNo[dispID]++
	}
	return lines
}

// ReadRecords reads all lines from a gains report reader.
func ReadRecords(r io.Reader) ([]Line, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading report CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var lines []Line
	for i, rec := range records[1:] {
		line, err := UnmarshalRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// WriteRecords writes lines to a gains report writer (including header).
func WriteRecords(w io.Writer, lines []Line) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, line := range lines {
		if err := cw.Write(MarshalRecord(line)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRecord converts a Line to a CSV row ([]string).
func MarshalRecord(line Line) []string {
	row := make([]string, numFields)
	row[colLineID] = line.ID
	row[colAsset] = line.Asset
	row[colMethod] = string(line.Method)
	row[colDispDate] = line.DisposalDate.Format(dateFormat)
	if !line.AcquisitionDate.IsZero() {
		row[colAcqDate] = line.AcquisitionDate.Format(dateFormat)
	}
	row[colQuantity] = line.Quantity.StringFixed(8)
	row[colCost] = line.AllowableCost.StringFixed(2)
	row[colProceeds] = line.Proceeds.StringFixed(2)
	row[colGain] = line.Gain.StringFixed(2)
	row[colDispRef] = line.DisposalRef
	row[colAcqRef] = line.AcquisitionRef
	row[colFees] = marshalFees(line.Fees)
	return row
}

// UnmarshalRecord converts a CSV row to a Line.
func UnmarshalRecord(record []string) (Line, error) {
	if len(record) != numFields {
		return Line{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	dispDate, err := time.Parse(dateFormat, record[colDispDate])
	if err != nil {
		return Line{}, fmt.Errorf("parsing disposal_date %q: %w", record[colDispDate], err)
	}

	var acqDate time.Time
	if record[colAcqDate] != "" {
		acqDate, err = time.Parse(dateFormat, record[colAcqDate])
		if err != nil {
			return Line{}, fmt.Errorf("parsing acquisition_date %q: %w", record[colAcqDate], err)
		}
	}

	amounts := make([]decimal.Decimal, 4)
	for i, col := range []int{colQuantity, colCost, colProceeds, colGain} {
		amounts[i], err = decimal.NewFromString(record[col])
		if err != nil {
			return Line{}, fmt.Errorf("parsing %s %q: %w", strings.Split(Header, ",")[col], record[col], err)
		}
	}

	fees, err := unmarshalFees(record[colFees])
	if err != nil {
		return Line{}, err
	}

	return Line{
		ID:    record[colLineID],
		Asset: record[colAsset],
		MatchRecord: model.MatchRecord{
			Method:          model.Method(record[colMethod]),
			DisposalDate:    dispDate,
			AcquisitionDate: acqDate,
			DisposalRef:     record[colDispRef],
			AcquisitionRef:  record[colAcqRef],
			Quantity:        amounts[0],
			AllowableCost:   amounts[1],
			Proceeds:        amounts[2],
			Gain:            amounts[3],
			Fees:            fees,
		},
	}, nil
}

// marshalFees renders fees as "type:quantity:currency:gbp" joined by ";".
func marshalFees(fees []model.Fee) string {
	parts := make([]string, 0, len(fees))
	for _, f := range fees {
		gbp := ""
		if f.GBP.Valid {
			gbp = f.GBP.Decimal.String()
		}
		parts = append(parts, strings.Join([]string{f.Type, f.Quantity.String(), f.Currency, gbp}, feeFieldSep))
	}
	return strings.Join(parts, feeSeparator)
}

func unmarshalFees(s string) ([]model.Fee, error) {
	if s == "" {
		return nil, nil
	}
	var fees []model.Fee
	for _, part := range strings.Split(s, feeSeparator) {
		fields := strings.Split(part, feeFieldSep)
		if len(fields) != feeFieldsCount {
			return nil, fmt.Errorf("parsing fee %q: expected %d fields", part, feeFieldsCount)
		}
		qty, err := decimal.NewFromString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("parsing fee quantity %q: %w", fields[1], err)
		}
		fee := model.Fee{Type: fields[0], Quantity: qty, Currency: fields[2]}
		if fields[3] != "" {
			gbp, err := decimal.NewFromString(fields[3])
			if err != nil {
				return nil, fmt.Errorf("parsing fee gbp %q: %w", fields[3], err)
			}
			fee.GBP = decimal.NewNullDecimal(gbp)
		}
		fees = append(fees, fee)
	}
	return fees, nil
}
