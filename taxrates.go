package divitax

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// Expected withholding-tax bands by tax-residence country. Max is the treaty
// rate the broker should have applied; Min is set where a rate below it is
// suspicious (missing reclaim paperwork cuts the other way). A nil Min means
// any lower rate, including zero, is plausible.
type withholdingBand struct {
	Max decimal.Decimal
	Min *decimal.Decimal
}

func band(max string, min string) withholdingBand {
	b := withholdingBand{Max: decimal.RequireFromString(max)}
	if min != "" {
		m := decimal.RequireFromString(min)
		b.Min = &m
	}
	return b
}

var withholdingBands = map[string]withholdingBand{
	"US": band("0.10", "0.10"),
	"CA": band("0.15", "0.15"),
	"DE": band("0.26375", "0.26375"),
	"FR": band("0.30", "0.12"),
	// Zero-withholding jurisdictions.
	"UK": band("0", ""),
	"GB": band("0", ""),
	"KY": band("0", ""),
	"VG": band("0", ""),
	"JE": band("0", ""),
	"GG": band("0", ""),
}

var defaultBand = band("0.30", "")

var (
	veryHighThreshold = decimal.RequireFromString("0.50")
	// One stotinka of tolerance: a tax amount rounded by the broker can move
	// the computed rate across a band boundary without meaning anything.
	roundingBuffer = decimal.RequireFromString("0.01")
)

// checkWithholdingRate flags a dividend whose effective withholding rate
// falls outside the expected band for its country. Advisory only.
func checkWithholdingRate(div DividendEvent, tax decimal.Decimal, rep *Report) {
	if !div.Gross.IsPositive() || !tax.IsNegative() {
		return // nothing meaningful to check
	}

	absTax := tax.Abs()
	exactRate := absTax.Div(div.Gross)
	// Buffered rates: lenient in the direction of each check.
	rateHigh := absTax.Sub(roundingBuffer).Div(div.Gross)
	rateLow := absTax.Add(roundingBuffer).Div(div.Gross)

	country := strings.ToUpper(div.Country)
	if country == "" {
		country = UnknownCountry
	}
	b, ok := withholdingBands[country]
	if !ok {
		b = defaultBand
	}

	switch {
	case exactRate.GreaterThan(veryHighThreshold):
		rep.VeryHighRates++
		rep.HighRates++
		slog.Warn("very high withholding tax",
			"isin", div.ISIN, "ticker", div.Ticker, "country", country,
			"dividend", div.Gross, "withheld", tax, "rate", exactRate, "max", b.Max)
	case rateHigh.GreaterThan(b.Max):
		rep.HighRates++
		slog.Warn("high withholding tax",
			"isin", div.ISIN, "ticker", div.Ticker, "country", country,
			"dividend", div.Gross, "withheld", tax, "rate", exactRate, "max", b.Max)
	}

	if b.Min != nil && rateLow.LessThan(*b.Min) {
		rep.LowRates++
		slog.Warn("low withholding tax",
			"isin", div.ISIN, "ticker", div.Ticker, "country", country,
			"dividend", div.Gross, "withheld", tax, "rate", exactRate, "min", *b.Min)
	}
}
