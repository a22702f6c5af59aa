package ibkr

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax"
	"github.com/vstoykovbg/divitax/date"
)

// Row types carried in the FlexQuery Type column. Payments in lieu stand in
// for regular dividends on lent-out shares and are taxed the same way.
const (
	typeDividend      = "Dividends"
	typePaymentInLieu = "Payment In Lieu Of Dividends"
	typeTax           = "Withholding Tax"
)

// Settlement stamps at or past this hour land on the next calendar day in
// Sofia, so the date used for the rate lookup may be off by one.
const lateSettleHour = 21

// extractFlexQuery walks a flat FlexQuery report. Unlike the activity
// statement it carries the issuer country and a correlation identifier
// (ActionID) linking each tax adjustment to its dividend.
func extractFlexQuery(rows [][]string, rep *divitax.Report) (*Statement, error) {
	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, name := range []string{"Type", "Amount", "SettleDate", "Description", "ISIN", "CurrencyPrimary", "IssuerCountryCode"} {
		if _, ok := idx[name]; !ok {
			return nil, divitax.Fatalf("reading statement", "missing %q column", name)
		}
	}
	symbolIdx, hasSymbol := idx["Symbol"]
	actionIdx, hasAction := idx["ActionID"]

	st := &Statement{}
	seenTaxes := map[string]bool{}

	for _, row := range rows[1:] {
		if len(row) < len(header) {
			continue
		}
		typ := strings.TrimSpace(row[idx["Type"]])
		if typ != typeDividend && typ != typePaymentInLieu && typ != typeTax {
			continue
		}

		dateStr := strings.TrimSpace(row[idx["SettleDate"]])
		on, err := date.ParseFlex(dateStr)
		if err != nil {
			return nil, divitax.Fatalf("reading statement", "%v", err)
		}
		if t, ok := date.TimePart(dateStr); ok && t.Hour() >= lateSettleHour {
			rep.TimezoneShifts++
			slog.Warn("settlement stamped late in the day, date may shift in local time",
				"date", dateStr)
		}
		amountStr := strings.TrimSpace(row[idx["Amount"]])
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, divitax.Fatalf("reading statement", "amount %q: %v", amountStr, err)
		}
		desc := strings.TrimSpace(row[idx["Description"]])
		isin := strings.TrimSpace(row[idx["ISIN"]])

		var ticker string
		if hasSymbol {
			ticker = strings.TrimSpace(row[symbolIdx])
		}
		var actionID string
		if hasAction {
			actionID = strings.TrimSpace(row[actionIdx])
		}

		switch typ {
		case typeDividend, typePaymentInLieu:
			st.Dividends = append(st.Dividends, divitax.DividendEvent{
				Date:          on,
				ISIN:          isin,
				Ticker:        ticker,
				Description:   baseDescription(desc),
				Gross:         amount,
				Currency:      strings.TrimSpace(row[idx["CurrencyPrimary"]]),
				CorrelationID: actionID,
				Country:       strings.TrimSpace(row[idx["IssuerCountryCode"]]),
			})

		case typeTax:
			if ticker == "" && interestDescription(desc) {
				continue
			}
			// Dedup on the raw description: base descriptions collapse
			// legitimate corrections onto each other.
			key := on.String() + "|" + desc + "|" + amount.String()
			if seenTaxes[key] {
				rep.DuplicateTaxes++
				slog.Warn("duplicate withholding tax row",
					"date", on, "description", desc, "amount", amount)
			}
			seenTaxes[key] = true
			st.Taxes = append(st.Taxes, divitax.TaxAdjustment{
				Date:          on,
				Description:   baseDescription(desc),
				Amount:        amount,
				CorrelationID: actionID,
			})
		}
	}
	return st, nil
}

// interestDescription reports whether a tax description belongs to credit
// interest withholding rather than a dividend.
func interestDescription(desc string) bool {
	u := strings.ToUpper(desc)
	return strings.HasPrefix(u, "WITHHOLDING") ||
		strings.HasPrefix(u, "CANCEL WITHHOLDING ON CREDIT INT")
}
