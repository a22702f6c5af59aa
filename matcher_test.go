package divitax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vstoykovbg/divitax/date"
)

func div(day, desc, amount string) DividendEvent {
	return DividendEvent{
		Date:        date.MustParse(day),
		ISIN:        "US0378331005",
		Ticker:      "AAPL",
		Description: desc,
		Gross:       d(amount),
		Currency:    "USD",
		Country:     "US",
	}
}

func tax(day, desc, amount string) TaxAdjustment {
	return TaxAdjustment{Date: date.MustParse(day), Description: desc, Amount: d(amount)}
}

func TestMatchByDescriptionAndDate(t *testing.T) {
	dividends := []DividendEvent{div("2024-03-15", "AAPL(US0378331005) Cash Dividend USD 0.24 per Share", "24")}
	taxes := []TaxAdjustment{
		tax("2024-03-15", "AAPL(US0378331005) Cash Dividend USD 0.24 per Share", "-3.60"),
		tax("2024-03-15", "MSFT(US5949181045) Cash Dividend USD 0.75 per Share", "-1.00"),
	}
	var rep Report

	records := Match(dividends, taxes, &rep)

	require.Len(t, records, 1)
	assert.True(t, records[0].TotalTax.Equal(d("-3.60")), "TotalTax = %s", records[0].TotalTax)
	assert.True(t, taxes[0].Consumed)
	assert.False(t, taxes[1].Consumed)
	assert.Equal(t, 1, rep.OrphanTaxes, "the unrelated tax is an orphan")
}

func TestMatchConsumesEachAdjustmentOnce(t *testing.T) {
	// Two identical dividends on the same description but different amounts,
	// one tax line each: the second dividend must not re-consume the first's.
	dividends := []DividendEvent{
		div("2024-03-15", "AAPL dividend", "24"),
		div("2024-03-15", "AAPL dividend", "25"),
	}
	taxes := []TaxAdjustment{
		tax("2024-03-15", "AAPL dividend", "-3.60"),
		tax("2024-03-15", "AAPL dividend", "-3.75"),
	}
	var rep Report

	records := Match(dividends, taxes, &rep)

	require.Len(t, records, 2)
	// The first dividend consumed both fallback matches; the second got none.
	assert.True(t, records[0].TotalTax.Equal(d("-7.35")), "TotalTax = %s", records[0].TotalTax)
	assert.True(t, records[1].TotalTax.IsZero())
	assert.Equal(t, 0, rep.OrphanTaxes)
}

func TestMatchPrefersCorrelationKey(t *testing.T) {
	dividend := div("2024-03-15", "AAPL dividend", "24")
	dividend.CorrelationID = "12345"
	taxes := []TaxAdjustment{
		// Same description and date but a different correlation key.
		{Date: date.MustParse("2024-03-15"), Description: "AAPL dividend", Amount: d("-9.99"), CorrelationID: "99999"},
		{Date: date.MustParse("2024-03-15"), Description: "AAPL dividend", Amount: d("-3.60"), CorrelationID: "12345"},
	}
	var rep Report

	records := Match([]DividendEvent{dividend}, taxes, &rep)

	require.Len(t, records, 1)
	assert.True(t, records[0].TotalTax.Equal(d("-3.60")), "TotalTax = %s", records[0].TotalTax)
	assert.Equal(t, 1, rep.SumMismatches, "the two strategies disagree")
	assert.Equal(t, 1, rep.OrphanTaxes)
}

func TestMatchIdenticalAdjustmentsInvalidateOutput(t *testing.T) {
	dividend := div("2024-03-15", "AAPL dividend", "24")
	taxes := []TaxAdjustment{
		tax("2024-03-15", "AAPL dividend", "-3.60"),
		tax("2024-03-15", "AAPL dividend", "-3.60"),
	}
	var rep Report

	records := Match([]DividendEvent{dividend}, taxes, &rep)

	require.Len(t, records, 1)
	// Both lines are still summed; the report flags the damage instead of
	// silently dropping one.
	assert.True(t, records[0].TotalTax.Equal(d("-7.20")), "TotalTax = %s", records[0].TotalTax)
	assert.Equal(t, 1, rep.IdenticalAdjustments)
	assert.True(t, rep.OutputInvalid())
}

func TestMatchAmendmentPairIsValid(t *testing.T) {
	// A cancellation and a replacement differ in amount: legitimate.
	dividend := div("2024-03-15", "FP(FR0000120271) Cash Dividend EUR 0.74", "100")
	taxes := []TaxAdjustment{
		tax("2024-03-15", "FP(FR0000120271) Cash Dividend EUR 0.74", "-30"),
		tax("2024-03-15", "FP(FR0000120271) Cash Dividend EUR 0.74", "18"),
	}
	var rep Report

	records := Match([]DividendEvent{dividend}, taxes, &rep)

	require.Len(t, records, 1)
	assert.True(t, records[0].TotalTax.Equal(d("-12")), "TotalTax = %s", records[0].TotalTax)
	assert.Equal(t, 0, rep.IdenticalAdjustments)
	assert.False(t, rep.OutputInvalid())
}

func TestMatchDuplicateDividendsInvalidateOutput(t *testing.T) {
	dividends := []DividendEvent{
		div("2024-03-15", "AAPL dividend", "24"),
		div("2024-03-15", "AAPL dividend", "24"),
	}
	var rep Report

	Match(dividends, nil, &rep)

	assert.Len(t, rep.DuplicateDividends, 1)
	assert.True(t, rep.OutputInvalid())
	assert.Equal(t, 1, rep.ExitCode())
}

func TestMatchOrphanExcludesInterest(t *testing.T) {
	taxes := []TaxAdjustment{
		tax("2024-03-15", "WITHHOLDING @ 10% ON CREDIT INT FOR MAR-2024", "-0.50"),
		tax("2024-03-15", "CANCEL WITHHOLDING ON CREDIT INT FOR FEB-2024", "0.50"),
		tax("2024-03-15", "AAPL dividend", "-3.60"),
	}
	var rep Report

	Match([]DividendEvent{div("2024-01-02", "other", "1")}, taxes, &rep)

	assert.Equal(t, 1, rep.OrphanTaxes, "only the dividend tax is an orphan")
}

func TestMatchHighWithholdingRate(t *testing.T) {
	// 30% withheld on a US dividend: way above the 10% treaty band.
	dividends := []DividendEvent{div("2024-03-15", "AAPL dividend", "100")}
	taxes := []TaxAdjustment{tax("2024-03-15", "AAPL dividend", "-30")}
	var rep Report

	Match(dividends, taxes, &rep)

	assert.Equal(t, 1, rep.HighRates)
	assert.Equal(t, 0, rep.VeryHighRates)
}

func TestMatchVeryHighWithholdingRate(t *testing.T) {
	dividends := []DividendEvent{div("2024-03-15", "AAPL dividend", "100")}
	taxes := []TaxAdjustment{tax("2024-03-15", "AAPL dividend", "-60")}
	var rep Report

	Match(dividends, taxes, &rep)

	assert.Equal(t, 1, rep.VeryHighRates)
	assert.True(t, rep.Serious())
}

func TestMatchLowWithholdingRate(t *testing.T) {
	// 1% withheld on a US dividend, below the 10% reclaim floor.
	dividends := []DividendEvent{div("2024-03-15", "AAPL dividend", "100")}
	taxes := []TaxAdjustment{tax("2024-03-15", "AAPL dividend", "-1")}
	var rep Report

	Match(dividends, taxes, &rep)

	assert.Equal(t, 1, rep.LowRates)
}

func TestWithholdingRateBufferTolerance(t *testing.T) {
	// 0.16 on 1.60 is exactly 10%; broker rounding that lands one stotinka
	// over must not trip the band.
	var rep Report
	checkWithholdingRate(div("2024-03-15", "x", "1.60"), d("-0.17"), &rep)
	if rep.HighRates != 0 {
		t.Errorf("HighRates = %d, want 0 within the rounding buffer", rep.HighRates)
	}
}

func TestDecimalSumExactness(t *testing.T) {
	sum := decimal.Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(d("0.1"))
	}
	if !sum.Equal(d("1")) {
		t.Errorf("ten times 0.1 = %s, want exactly 1", sum)
	}
}
