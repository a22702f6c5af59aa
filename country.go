package divitax

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// UnknownCountry is the sentinel returned for identifiers whose country
// cannot be determined.
const UnknownCountry = "UNKNOWN"

// CountryResolver maps a security identifier to its tax-residence country.
// An override table is consulted first: a handful of securities are tax
// resident somewhere other than the jurisdiction that issued their
// identifier. On a miss the two-letter identifier prefix is used, which is
// usually but not always correct.
type CountryResolver struct {
	overrides map[string]string
}

// NewCountryResolver returns a resolver with no overrides: every identifier
// resolves to its prefix.
func NewCountryResolver() *CountryResolver {
	return &CountryResolver{overrides: map[string]string{}}
}

// LoadCountryOverrides reads the override CSV (columns ISIN and Country_tax).
// A missing file is not an error: resolution falls back to prefixes only.
func LoadCountryOverrides(path string) (*CountryResolver, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Info("no country override file, using ISIN prefixes only", "path", path)
		return NewCountryResolver(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening country override file %q: %w", path, err)
	}
	defer f.Close()
	return ReadCountryOverrides(f)
}

// ReadCountryOverrides parses the override table from r.
func ReadCountryOverrides(r io.Reader) (*CountryResolver, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading country override header: %w", err)
	}
	isinCol, countryCol := -1, -1
	for i, col := range header {
		switch col {
		case "ISIN":
			isinCol = i
		case "Country_tax":
			countryCol = i
		}
	}
	if isinCol < 0 || countryCol < 0 {
		return nil, fmt.Errorf("country override file must have ISIN and Country_tax columns, got %v", header)
	}

	res := NewCountryResolver()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading country override row: %w", err)
		}
		if len(row) <= isinCol || len(row) <= countryCol {
			continue
		}
		isin, country := row[isinCol], row[countryCol]
		if isin == "" || country == "" {
			continue
		}
		if err := ValidateISIN(isin); err != nil {
			slog.Warn("skipping malformed override entry", "error", err)
			continue
		}
		res.overrides[isin] = country
	}
	return res, nil
}

// Resolve returns the tax-residence country code for the identifier.
// Anomalies are counted on the report.
func (c *CountryResolver) Resolve(isin string, rep *Report) string {
	if !hasCountryPrefix(isin) {
		slog.Warn("ISIN prefix not valid", "isin", isin)
		rep.UnknownISINs++
		return UnknownCountry
	}
	if country, ok := c.overrides[isin]; ok {
		return country
	}
	prefix := isin[:2]
	slog.Info("using fallback ISIN country code", "isin", isin, "country", prefix)
	rep.FallbackCountries++
	return prefix
}
