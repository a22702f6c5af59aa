// Package rates stores one decimal BGN exchange rate per (currency, calendar
// day) and answers exact point lookups for the tax computation.
//
// Tables are assembled once per run from per-year CSV files (or raw
// statistics-bureau observations) and are read-only afterwards. Two
// currencies never reach the archive: BGN itself and EUR, which is pegged by
// statute.
package rates

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

// Domestic is the domestic currency; everything converts into it.
const Domestic = "BGN"

var (
	one = decimal.NewFromInt(1)
	// eurPeg is the statutory BGN/EUR rate, fixed by the currency board law.
	eurPeg = decimal.RequireFromString("1.95583")
)

// ErrNotFound reports a missed rate lookup. The archive never substitutes a
// nearby date or a default value: a miss here must abort the run.
var ErrNotFound = errors.New("exchange rate not found")

// Archive answers Lookup queries from per-year rate tables found in a
// directory. Tables are loaded lazily, once per (currency, year).
type Archive struct {
	dir    string
	rates  map[string]map[string]decimal.Decimal // currency -> DD.MM.YYYY -> rate
	loaded map[string]bool                       // currency|year segments already read
}

// NewArchive returns an archive reading its tables from dir.
func NewArchive(dir string) *Archive {
	return &Archive{
		dir:    dir,
		rates:  map[string]map[string]decimal.Decimal{},
		loaded: map[string]bool{},
	}
}

// Lookup returns the BGN amount per one unit of currency on the given day.
// The domestic currency and the pegged EUR are answered without consulting
// any table. Lookups are idempotent: the archive is never mutated by a query
// beyond lazily loading the table file that covers it.
func (a *Archive) Lookup(currency string, on date.Date) (decimal.Decimal, error) {
	cur := strings.ToUpper(currency)
	if cur == Domestic {
		return one, nil
	}
	if cur == "EUR" {
		return eurPeg, nil
	}

	if err := a.load(cur, on.Year()); err != nil {
		return decimal.Decimal{}, err
	}
	rate, ok := a.rates[cur][on.Rate()]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w for %s on %s", ErrNotFound, cur, on.Rate())
	}
	return rate, nil
}

// load reads the first table file that exists among the candidates for
// (currency, year) and merges it into the archive.
func (a *Archive) load(currency string, year int) error {
	key := fmt.Sprintf("%s|%d", currency, year)
	if a.loaded[key] {
		return nil
	}

	candidates := []string{
		fmt.Sprintf("%s_%d_corrected.csv", currency, year),
		fmt.Sprintf("%s_%d.csv", currency, year),
		currency + ".csv",
	}
	for _, name := range candidates {
		path := filepath.Join(a.dir, name)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("opening rate file %q: %w", path, err)
		}
		defer f.Close()

		table, err := ReadTable(f)
		if err != nil {
			return fmt.Errorf("reading rate file %q: %w", path, err)
		}
		if a.rates[currency] == nil {
			a.rates[currency] = map[string]decimal.Decimal{}
		}
		for day, rate := range table {
			a.rates[currency][day] = rate
		}
		a.loaded[key] = true
		slog.Info("loaded rate table", "currency", currency, "year", year, "path", path, "days", len(table))
		return nil
	}
	return fmt.Errorf("%w: no rate file for %s among %v in %q", ErrNotFound, currency, candidates, a.dir)
}

// Add inserts a single rate point. Used by tests and by callers that build
// archives from freshly fetched observations instead of files.
func (a *Archive) Add(currency string, on date.Date, rate decimal.Decimal) {
	cur := strings.ToUpper(currency)
	if a.rates[cur] == nil {
		a.rates[cur] = map[string]decimal.Decimal{}
	}
	a.rates[cur][on.Rate()] = rate
	a.loaded[fmt.Sprintf("%s|%d", cur, on.Year())] = true
}
