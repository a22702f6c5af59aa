package divitax

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

// IncomeCodeDividend is the filing income code for foreign dividend income.
const IncomeCodeDividend = "8141"

var (
	// creditRate is the treaty cap: the creditable part of foreign
	// withholding tax is at most 5% of the BGN dividend.
	creditRate = decimal.RequireFromString("0.05")
	// minReportableBGN is the floor for the converted dividend. A line that
	// rounds to 0.00 is arithmetically valid but administratively
	// meaningless, so it is clamped up to one stotinka.
	minReportableBGN = decimal.RequireFromString("0.01")
)

// RateSource answers point lookups of the BGN exchange rate. The archive in
// package rates implements it.
type RateSource interface {
	Lookup(currency string, on date.Date) (decimal.Decimal, error)
}

// Engine converts matched records to BGN and computes the treaty tax credit.
type Engine struct {
	Rates RateSource
}

// Compute turns one matched record into a filing line. A failed rate lookup
// is fatal: substituting a nearby date or a default would silently corrupt
// legally significant arithmetic.
//
// Rounding happens exactly twice per amount: once at currency conversion and
// once at credit computation. Everything before that is exact.
func (e *Engine) Compute(rec MatchedRecord, rep *Report) (Result, error) {
	div := rec.Event
	currency := strings.ToUpper(div.Currency)

	// Input withholding is expected non-positive; flip it so taxes come out
	// positive. A positive input stays visible as a negative output.
	if rec.TotalTax.IsPositive() {
		rep.PositiveTaxes++
		slog.Warn("withholding tax is positive, expected negative or zero",
			"isin", div.ISIN, "date", div.Date, "amount", rec.TotalTax)
	}
	gross := M(div.Gross, currency).Unit()
	tax := M(rec.TotalTax.Neg(), currency).Unit()
	currency = gross.Currency()

	rate, err := e.Rates.Lookup(currency, div.Date)
	if err != nil {
		return Result{}, &FatalError{Op: "rate lookup", Err: err}
	}

	dividendBGN := gross.Mul(rate).Round2().Amount()
	if dividendBGN.LessThan(minReportableBGN) {
		dividendBGN = minReportableBGN
	}
	taxBGN := tax.Mul(rate).Round2().Amount()

	permitted := dividendBGN.Mul(creditRate).Round(2)

	var due, applied decimal.Decimal
	if taxBGN.IsZero() {
		due = permitted
	} else {
		due = decimal.Max(decimal.Zero, permitted.Sub(taxBGN))
	}
	applied = decimal.Min(taxBGN, permitted)

	method := "1"
	if taxBGN.IsZero() {
		method = "3"
		// The zero-tax reporting path shows no credit; the credit already
		// went into the tax due above.
		permitted = decimal.Zero
	}

	return Result{
		Name:            div.Name,
		ISIN:            div.ISIN,
		Country:         div.Country,
		Date:            div.Date,
		Currency:        currency,
		Gross:           gross.Amount(),
		Tax:             tax.Amount(),
		Rate:            rate,
		DividendBGN:     dividendBGN,
		TaxBGN:          taxBGN,
		PermittedCredit: permitted,
		AppliedCredit:   applied,
		TaxDue:          due,
		Method:          method,
		IncomeCode:      IncomeCodeDividend,
	}, nil
}
