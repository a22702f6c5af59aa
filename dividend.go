package divitax

import (
	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax/date"
)

// DividendEvent is one gross dividend payment extracted from broker data.
// It is immutable once extracted.
type DividendEvent struct {
	Date        date.Date
	ISIN        string
	Ticker      string
	Name        string // company name when known, ticker otherwise
	Description string // base description used as the fallback matching key
	Gross       decimal.Decimal
	Currency    string
	// CorrelationID links the event to its withholding-tax adjustments.
	// Only the FlexQuery schema supplies it; empty otherwise.
	CorrelationID string
	// Country is the tax-residence country code, filled before matching.
	Country string
}

// identity returns the deduplication key of the event: (date, security
// identifier, amount), falling back to the correlation key for records
// without an ISIN.
func (e DividendEvent) identity() string {
	id := e.ISIN
	if id == "" {
		id = e.CorrelationID
	}
	return e.Date.String() + "|" + id + "|" + e.Gross.String()
}

// TaxAdjustment is one withholding-tax line item, possibly one of several
// corrections to a single dividend. Amount is signed and expected non-positive.
type TaxAdjustment struct {
	Date          date.Date
	Description   string
	Amount        decimal.Decimal
	CorrelationID string
	// Consumed is set by the matcher, exactly once, when the adjustment is
	// attributed to a dividend.
	Consumed bool
}

// MatchedRecord associates a dividend event with the tax adjustments it
// consumed. TotalTax is kept at full precision; it is rounded only at
// currency conversion.
type MatchedRecord struct {
	Event       DividendEvent
	Adjustments []TaxAdjustment
	TotalTax    decimal.Decimal
}

// Result is the terminal output entity: one line of the tax filing.
type Result struct {
	Name     string
	ISIN     string
	Country  string
	Date     date.Date
	Currency string
	Gross    decimal.Decimal // in Currency, after sub-unit normalization
	Tax      decimal.Decimal // in Currency, sign flipped to positive

	Rate            decimal.Decimal // BGN per one unit of Currency
	DividendBGN     decimal.Decimal
	TaxBGN          decimal.Decimal
	PermittedCredit decimal.Decimal
	AppliedCredit   decimal.Decimal
	TaxDue          decimal.Decimal
	Method          string // "1" tax withheld, "3" no tax withheld
	IncomeCode      string
}
