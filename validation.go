package divitax

import "fmt"

// hasCountryPrefix reports whether the identifier starts with two uppercase
// Latin letters, the part the resolver is allowed to interpret as a country.
func hasCountryPrefix(isin string) bool {
	if len(isin) < 2 {
		return false
	}
	for _, c := range isin[:2] {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// ValidateISIN checks the syntactic shape of an ISIN: a two-letter country
// prefix, nine alphanumeric characters and a final check digit. The check
// digit itself is not verified; broker exports occasionally carry synthetic
// identifiers that fail the checksum but are otherwise usable.
func ValidateISIN(isin string) error {
	if len(isin) != 12 {
		return fmt.Errorf("invalid ISIN %q: want 12 characters, got %d", isin, len(isin))
	}
	if !hasCountryPrefix(isin) {
		return fmt.Errorf("invalid ISIN %q: want an uppercase two-letter country prefix", isin)
	}
	for _, c := range isin[2:11] {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("invalid ISIN %q: invalid character %q", isin, c)
		}
	}
	if c := isin[11]; c < '0' || c > '9' {
		return fmt.Errorf("invalid ISIN %q: check digit must be numeric", isin)
	}
	return nil
}
