package divitax

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

// stubRates answers lookups from a fixed per-currency rate, any date.
type stubRates map[string]string

func (s stubRates) Lookup(currency string, _ date.Date) (decimal.Decimal, error) {
	if r, ok := s[currency]; ok {
		return d(r), nil
	}
	return decimal.Decimal{}, fmt.Errorf("no rate for %s", currency)
}

func record(gross, tax, currency string) MatchedRecord {
	return MatchedRecord{
		Event: DividendEvent{
			Date:     date.New(2024, 3, 15),
			ISIN:     "US0378331005",
			Ticker:   "AAPL",
			Name:     "APPLE INC",
			Currency: currency,
			Country:  "US",
			Gross:    d(gross),
		},
		TotalTax: d(tax),
	}
}

func TestComputeWithWithholding(t *testing.T) {
	e := &Engine{Rates: stubRates{"USD": "1.80"}}
	var rep Report

	res, err := e.Compute(record("100", "-15", "USD"), &rep)
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"DividendBGN", res.DividendBGN, "180.00"},
		{"TaxBGN", res.TaxBGN, "27.00"},
		{"PermittedCredit", res.PermittedCredit, "9.00"},
		{"AppliedCredit", res.AppliedCredit, "9.00"},
		{"TaxDue", res.TaxDue, "0.00"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if res.Method != "1" {
		t.Errorf("Method = %q, want %q", res.Method, "1")
	}
	if res.IncomeCode != IncomeCodeDividend {
		t.Errorf("IncomeCode = %q, want %q", res.IncomeCode, IncomeCodeDividend)
	}
	if !res.Tax.Equal(d("15")) {
		t.Errorf("Tax = %s, want 15 (sign flipped)", res.Tax)
	}
}

func TestComputeNoWithholding(t *testing.T) {
	e := &Engine{Rates: stubRates{"EUR": "1.95583"}}
	var rep Report

	res, err := e.Compute(record("50", "0", "EUR"), &rep)
	if err != nil {
		t.Fatal(err)
	}
	if !res.DividendBGN.Equal(d("97.79")) {
		t.Errorf("DividendBGN = %s, want 97.79", res.DividendBGN)
	}
	// The credit goes into the tax due; the reported permitted credit is
	// zeroed on the no-withholding path.
	if !res.TaxDue.Equal(d("4.89")) {
		t.Errorf("TaxDue = %s, want 4.89", res.TaxDue)
	}
	if !res.PermittedCredit.IsZero() {
		t.Errorf("PermittedCredit = %s, want 0", res.PermittedCredit)
	}
	if res.Method != "3" {
		t.Errorf("Method = %q, want %q", res.Method, "3")
	}
}

func TestComputeDividendFloor(t *testing.T) {
	e := &Engine{Rates: stubRates{"USD": "1.80"}}
	var rep Report

	res, err := e.Compute(record("0.001", "0", "USD"), &rep)
	if err != nil {
		t.Fatal(err)
	}
	if !res.DividendBGN.Equal(d("0.01")) {
		t.Errorf("DividendBGN = %s, want the 0.01 floor", res.DividendBGN)
	}
	if !res.TaxDue.IsZero() {
		t.Errorf("TaxDue = %s, want 0", res.TaxDue)
	}
}

func TestComputeSubUnitCurrency(t *testing.T) {
	e := &Engine{Rates: stubRates{"GBP": "2.30"}}
	var rep Report

	res, err := e.Compute(record("500", "0", "GBX"), &rep)
	if err != nil {
		t.Fatal(err)
	}
	if res.Currency != "GBP" {
		t.Errorf("Currency = %q, want GBP", res.Currency)
	}
	if !res.Gross.Equal(d("5")) {
		t.Errorf("Gross = %s, want 5", res.Gross)
	}
	if !res.DividendBGN.Equal(d("11.50")) {
		t.Errorf("DividendBGN = %s, want 11.50", res.DividendBGN)
	}
}

func TestComputePositiveTaxWarns(t *testing.T) {
	e := &Engine{Rates: stubRates{"USD": "1.80"}}
	var rep Report

	res, err := e.Compute(record("100", "5", "USD"), &rep)
	if err != nil {
		t.Fatal(err)
	}
	if rep.PositiveTaxes != 1 {
		t.Errorf("PositiveTaxes = %d, want 1", rep.PositiveTaxes)
	}
	// The flipped sign leaves the error visible in the output.
	if !res.Tax.IsNegative() {
		t.Errorf("Tax = %s, want negative", res.Tax)
	}
}

func TestComputeMissingRateIsFatal(t *testing.T) {
	e := &Engine{Rates: stubRates{}}
	var rep Report

	_, err := e.Compute(record("100", "-15", "USD"), &rep)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("Compute error = %v, want a FatalError", err)
	}
}
