package rates

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

// Observation is one raw statistics-bureau row: the BGN amount quoted for a
// quantity of foreign currency on a day. Some currencies are quoted in
// non-unit lots (JPY per 100), so the per-unit rate is always amount divided
// by quantity, never the raw amount.
type Observation struct {
	Date     date.Date
	Quantity decimal.Decimal
	Amount   decimal.Decimal
}

// Rate returns the per-unit rate of the observation.
func (o Observation) Rate() decimal.Decimal { return o.Amount.Div(o.Quantity) }

// The bureau serves each segment with a localized title line naming the
// covered period, then a fixed column header. Both are validated before any
// row is parsed; a mismatch means the download is not what was asked for.
const (
	segmentTitlePrefix = "Курсове на българския лев за периода"
	segmentPeriodWord  = "г."
)

var segmentColumns = []string{"Дата", "Наименование", "Код", "Количество", "Стойност (лв.)"}

// ParseSegment parses one raw downloaded segment covering the given period
// for a single currency. Validation failures abort the segment: archive
// construction must not guess at mislabelled data.
func ParseSegment(r io.Reader, currency string, period date.Range) ([]Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	title, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading segment title: %w", err)
	}
	if err := validateTitle(strings.Join(title, ","), period); err != nil {
		return nil, err
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	if len(header) < len(segmentColumns) {
		return nil, fmt.Errorf("malformed segment header: got %d columns, want %d", len(header), len(segmentColumns))
	}
	for i, want := range segmentColumns {
		if strings.TrimSpace(header[i]) != want {
			return nil, fmt.Errorf("malformed segment header: column %d is %q, want %q", i, header[i], want)
		}
	}

	var obs []Observation
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return obs, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) < len(segmentColumns) {
			continue
		}
		day, err := date.ParseRate(strings.TrimSpace(row[0]))
		if err != nil {
			continue // trailing notes below the data block
		}
		if code := strings.TrimSpace(row[2]); !strings.EqualFold(code, currency) {
			return nil, fmt.Errorf("segment mixes currencies: got %q, want %q", code, currency)
		}
		quantity, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q on %s: %w", row[3], row[0], err)
		}
		if quantity.IsZero() {
			return nil, fmt.Errorf("zero quantity on %s", row[0])
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row[4]))
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q on %s: %w", row[4], row[0], err)
		}
		obs = append(obs, Observation{Date: day, Quantity: quantity, Amount: amount})
	}
}

func validateTitle(title string, period date.Range) error {
	if !strings.HasPrefix(title, segmentTitlePrefix) {
		return fmt.Errorf("malformed segment title %q: want prefix %q", title, segmentTitlePrefix)
	}
	if !strings.Contains(title, period.From.Rate()) || !strings.Contains(title, period.To.Rate()) {
		return fmt.Errorf("segment title %q does not cover period %s %s - %s %s",
			title, period.From.Rate(), segmentPeriodWord, period.To.Rate(), segmentPeriodWord)
	}
	return nil
}

// BuildYear assembles the gap-free per-year table for a currency from raw
// observations spanning December of the prior year through December of the
// target year. The December run-in exists so the first days of January can
// carry a rate forward across the year boundary.
//
// Days with no prior observation at all cannot be filled; they are returned
// for the caller to report and are left out of the table.
func BuildYear(obs []Observation, currency string, year int) (*Table, []date.Date) {
	observed := map[string]decimal.Decimal{}
	for _, o := range obs {
		observed[o.Date.Rate()] = o.Rate()
	}

	span := date.Range{From: date.New(year-1, 12, 1), To: date.New(year, 12, 31)}
	t := &Table{Currency: strings.ToUpper(currency), Year: year, rates: map[string]decimal.Decimal{}}
	var unresolved []date.Date

	var carry decimal.Decimal
	haveCarry := false
	for day := range span.Days() {
		if rate, ok := observed[day.Rate()]; ok {
			carry, haveCarry = rate, true
		}
		if day.Year() != year {
			continue // the December run-in only feeds the carry
		}
		if !haveCarry {
			unresolved = append(unresolved, day)
			continue
		}
		t.days = append(t.days, day)
		t.rates[day.Rate()] = carry
	}

	if len(unresolved) > 0 {
		slog.Warn("days with no rate available and no earlier observation",
			"currency", t.Currency, "year", year, "days", len(unresolved))
	}
	return t, unresolved
}
