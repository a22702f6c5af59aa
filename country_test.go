package divitax

import (
	"strings"
	"testing"
)

func TestValidateISIN(t *testing.T) {
	tests := []struct {
		isin string
		ok   bool
	}{
		{"US0378331005", true},
		{"IE00B4L5Y983", true},
		{"us0378331005", false}, // lowercase prefix
		{"US03783310", false},   // too short
		{"US03783310051", false},
		{"US037833100X", false}, // non-numeric check digit
		{"U10378331005", false}, // digit in prefix
	}
	for _, tc := range tests {
		err := ValidateISIN(tc.isin)
		if (err == nil) != tc.ok {
			t.Errorf("ValidateISIN(%q) = %v, want ok=%v", tc.isin, err, tc.ok)
		}
	}
}

func TestResolveOverrideWins(t *testing.T) {
	res, err := ReadCountryOverrides(strings.NewReader(
		"ISIN,Country_tax\n" +
			"IE00B4L5Y983,IE\n" +
			"US0378331005,US\n" +
			"NL0000388619,US\n")) // an NL-prefixed security tax resident in the US
	if err != nil {
		t.Fatal(err)
	}
	var rep Report

	if got := res.Resolve("NL0000388619", &rep); got != "US" {
		t.Errorf("Resolve = %q, want the override US", got)
	}
	if rep.FallbackCountries != 0 {
		t.Errorf("FallbackCountries = %d, want 0", rep.FallbackCountries)
	}
}

func TestResolveFallsBackToPrefix(t *testing.T) {
	var rep Report
	res := NewCountryResolver()

	if got := res.Resolve("DE0005557508", &rep); got != "DE" {
		t.Errorf("Resolve = %q, want DE", got)
	}
	if rep.FallbackCountries != 1 {
		t.Errorf("FallbackCountries = %d, want 1", rep.FallbackCountries)
	}
}

func TestResolveInvalidPrefix(t *testing.T) {
	var rep Report
	res := NewCountryResolver()

	if got := res.Resolve("12345", &rep); got != UnknownCountry {
		t.Errorf("Resolve = %q, want %q", got, UnknownCountry)
	}
	if rep.UnknownISINs != 1 {
		t.Errorf("UnknownISINs = %d, want 1", rep.UnknownISINs)
	}
}

func TestReadCountryOverridesRejectsWrongHeader(t *testing.T) {
	_, err := ReadCountryOverrides(strings.NewReader("foo,bar\nx,y\n"))
	if err == nil {
		t.Fatal("expected an error for a file without the required columns")
	}
}

func TestReadCountryOverridesSkipsMalformedEntries(t *testing.T) {
	res, err := ReadCountryOverrides(strings.NewReader(
		"ISIN,Country_tax\n" +
			"notanisin,XX\n" +
			"US0378331005,US\n"))
	if err != nil {
		t.Fatal(err)
	}
	var rep Report
	if got := res.Resolve("US0378331005", &rep); got != "US" {
		t.Errorf("Resolve = %q, want US", got)
	}
	if len(res.overrides) != 1 {
		t.Errorf("overrides = %d entries, want 1", len(res.overrides))
	}
}
