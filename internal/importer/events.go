package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptotax-uk/cryptotax/internal/model"
)

// EventsParser parses compact, already classified event files:
//
//	date,kind,quantity,value_gbp,reference
//	2021-03-01,acquisition,1.5,45000.00,cb-123
type EventsParser struct{}

const (
	eventsNumFields  = 5
	eventsDateFormat = "2006-01-02"
	eventsColDate    = 0
	eventsColKind    = 1
	eventsColQty     = 2
	eventsColValue   = 3
	eventsColRef     = 4
)

// Format returns the parser name.
func (p *EventsParser) Format() string { return "events" }

// Parse reads an events CSV. Validation of quantities and values is left
// to the gains calculation, which reports the offending event.
func (p *EventsParser) Parse(r io.Reader) ([]model.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = eventsNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading events CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var events []model.Event
	for i, rec := range records[1:] {
		ev, err := parseEventRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseEventRow(rec []string) (model.Event, error) {
	date, err := time.Parse(eventsDateFormat, rec[eventsColDate])
	if err != nil {
		return model.Event{}, fmt.Errorf("parsing date %q: %w", rec[eventsColDate], err)
	}

	kind := model.Kind(strings.ToLower(rec[eventsColKind]))
	if !kind.Valid() {
		return model.Event{}, fmt.Errorf("unknown kind %q", rec[eventsColKind])
	}

	qty, err := decimal.NewFromString(rec[eventsColQty])
	if err != nil {
		return model.Event{}, fmt.Errorf("parsing quantity %q: %w", rec[eventsColQty], err)
	}

	var value decimal.NullDecimal
	if s := rec[eventsColValue]; s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return model.Event{}, fmt.Errorf("parsing value_gbp %q: %w", s, err)
		}
		value = decimal.NewNullDecimal(v)
	}

	return model.Event{
		Date:     date,
		Kind:     kind,
		Quantity: qty,
		Value:    value,
		Ref:      rec[eventsColRef],
	}, nil
}
