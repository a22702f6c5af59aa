package rates

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

var rateDayRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// ReadTable parses a per-year rate file: CSV rows of Date (DD.MM.YYYY) and
// Rate (decimal string, trailing zeros stripped). A leading header row is
// tolerated. A malformed rate value is an error, not a skip: a wrong number
// here ends up in a tax filing.
func ReadTable(r io.Reader) (map[string]decimal.Decimal, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	table := map[string]decimal.Decimal{}
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			continue
		}
		if first && !rateDayRe.MatchString(row[0]) {
			first = false
			continue // header row
		}
		first = false
		if _, err := date.ParseRate(row[0]); err != nil {
			return nil, err
		}
		rate, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("invalid exchange rate value %q on %s: %w", row[1], row[0], err)
		}
		table[row[0]] = rate
	}
}

// Table is one built year of daily per-unit rates for a single currency,
// ordered and gap-free across the covered range.
type Table struct {
	Currency string
	Year     int
	days     []date.Date
	rates    map[string]decimal.Decimal
}

// Len returns the number of covered days.
func (t *Table) Len() int { return len(t.days) }

// Rate returns the rate on a covered day.
func (t *Table) Rate(on date.Date) (decimal.Decimal, bool) {
	r, ok := t.rates[on.Rate()]
	return r, ok
}

// WriteTo writes the table in the per-year file format, trailing zeros
// stripped so the files diff cleanly across regenerations.
func (t *Table) WriteTo(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Exchange Rate"}); err != nil {
		return err
	}
	for _, day := range t.days {
		if err := cw.Write([]string{day.Rate(), formatRate(t.rates[day.Rate()])}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatRate renders a rate with trailing zeros (and a bare trailing point)
// stripped.
func formatRate(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}

// FillGaps forward-fills a sparse per-year file: every calendar day between
// the first and last observed dates gets the most recent earlier rate. Rates
// are never interpolated or averaged. Returns the number of days filled in.
func FillGaps(r io.Reader, w io.Writer) (int, error) {
	table, err := ReadTable(r)
	if err != nil {
		return 0, err
	}
	if len(table) == 0 {
		return 0, fmt.Errorf("no rate rows to fill")
	}

	var first, last date.Date
	for day := range table {
		d, err := date.ParseRate(day)
		if err != nil {
			return 0, err
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Exchange Rate"}); err != nil {
		return 0, err
	}
	filled := 0
	var carry decimal.Decimal
	for day := range (date.Range{From: first, To: last}).Days() {
		rate, ok := table[day.Rate()]
		if ok {
			carry = rate
		} else {
			rate = carry
			filled++
		}
		if err := cw.Write([]string{day.Rate(), formatRate(rate)}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return filled, cw.Error()
}
