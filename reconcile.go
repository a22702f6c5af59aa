package divitax

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// Options configures a reconciliation run.
type Options struct {
	Resolver *CountryResolver
	Rates    RateSource
	// Names maps ISIN to company name; results fall back to the ticker for
	// identifiers not in the map. Optional.
	Names map[string]string
}

// Outcome is the terminal product of a run: the filing lines, the detected
// tax year and the consolidated anomaly report.
type Outcome struct {
	Results []Result
	TaxYear int
	Report  Report
}

// Totals sums the converted amounts over all filing lines.
func (o *Outcome) Totals() (dividendBGN, taxBGN, taxDue decimal.Decimal) {
	for _, r := range o.Results {
		dividendBGN = dividendBGN.Add(r.DividendBGN)
		taxBGN = taxBGN.Add(r.TaxBGN)
		taxDue = taxDue.Add(r.TaxDue)
	}
	return dividendBGN, taxBGN, taxDue
}

// Reconcile runs the full pipeline over extracted records: tax-year
// filtering, country resolution, matching, currency conversion and credit
// computation. The returned error is always fatal; every recoverable
// condition lands in the outcome's report instead.
func Reconcile(dividends []DividendEvent, taxes []TaxAdjustment, opts Options) (*Outcome, error) {
	if len(dividends) == 0 {
		return nil, Fatalf("reconcile", "no dividend data found")
	}
	if opts.Resolver == nil {
		opts.Resolver = NewCountryResolver()
	}

	out := &Outcome{}
	rep := &out.Report

	dividends, taxes = filterTaxYear(dividends, taxes, out)

	for i := range dividends {
		// FlexQuery records carry the issuer country; everything else is
		// resolved from the identifier.
		if dividends[i].Country == "" {
			dividends[i].Country = opts.Resolver.Resolve(dividends[i].ISIN, rep)
		}
		if len(opts.Names) > 0 && dividends[i].ISIN != "" {
			if name, ok := opts.Names[dividends[i].ISIN]; ok {
				dividends[i].Name = name
			} else {
				rep.MissingNames++
				slog.Info("no company name found for ISIN",
					"isin", dividends[i].ISIN, "ticker", dividends[i].Ticker)
			}
		}
		if dividends[i].Name == "" {
			dividends[i].Name = dividends[i].Ticker
		}
	}

	matched := Match(dividends, taxes, rep)

	engine := &Engine{Rates: opts.Rates}
	out.Results = make([]Result, 0, len(matched))
	for _, rec := range matched {
		res, err := engine.Compute(rec, rep)
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

// filterTaxYear detects the filing year as the one most dividends fall in
// (latest year wins a tie) and drops records outside it. Dropping more than
// 30% of the dividends suggests the report period is wrong and escalates to a
// serious issue.
func filterTaxYear(dividends []DividendEvent, taxes []TaxAdjustment, out *Outcome) ([]DividendEvent, []TaxAdjustment) {
	counts := map[int]int{}
	for _, d := range dividends {
		counts[d.Date.Year()]++
	}
	year, best := 0, 0
	for y, n := range counts {
		if n > best || (n == best && y > year) {
			year, best = y, n
		}
	}
	out.TaxYear = year

	kept := dividends[:0]
	dropped := 0
	for _, d := range dividends {
		if d.Date.Year() == year {
			kept = append(kept, d)
			continue
		}
		dropped++
		slog.Info("ignoring dividend from a different tax year",
			"ticker", d.Ticker, "date", d.Date, "taxYear", year)
	}
	slog.Info("detected tax year", "year", year, "kept", len(kept), "total", len(dividends))

	keptTaxes := taxes[:0]
	for _, t := range taxes {
		if t.Date.Year() == year {
			keptTaxes = append(keptTaxes, t)
			continue
		}
		dropped++
		slog.Info("ignoring tax adjustment from a different tax year",
			"date", t.Date, "description", t.Description, "taxYear", year)
	}

	out.Report.DroppedOutOfYear = dropped
	if len(dividends) > 0 && float64(len(dividends)-len(kept))/float64(len(dividends)) > 0.3 {
		out.Report.TooManyDropped = true
		slog.Warn("more than 30% of dividends are outside the detected tax year, verify the report period",
			"taxYear", year)
	}
	return kept, keptTaxes
}
