package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/positions/ledger"
	"github.com/shopspring/decimal"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ReadDealsCSV parses deals from r.
//
// Expected columns:
// code,action,quantity,price,time
// A header row is allowed. Blank lines are skipped. Times without a zone
// are taken as UTC.
func ReadDealsCSV(r io.Reader) ([]*ledger.Deal, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		out  []*ledger.Deal
		line int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "code") {
			continue
		}

		d, err := parseDealRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, d)
	}
}

func parseDealRow(row []string) (*ledger.Deal, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("%w: want 5 columns, got %d", ledger.ErrInvalidDeal, len(row))
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	action, err := ledger.ParseAction(row[1])
	if err != nil {
		return nil, err
	}
	qty, err := strconv.ParseInt(row[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q", ledger.ErrInvalidDeal, row[2])
	}
	price, err := decimal.NewFromString(row[3])
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ledger.ErrInvalidDeal, row[3])
	}
	at, err := parseTime(row[4])
	if err != nil {
		return nil, err
	}

	return ledger.NewDeal(row[0], action, qty, price, at), nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ledger.ErrInvalidDeal, s)
}
