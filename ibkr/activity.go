package ibkr

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vstoykovbg/divitax"
	"github.com/vstoykovbg/divitax/date"
)

// extractActivity walks a sectioned activity statement. Only the Dividends
// and Withholding Tax sections feed the reconciliation; instrument names come
// along when the statement embeds them.
func extractActivity(rows [][]string, rep *divitax.Report) (*Statement, error) {
	scanDuplicateSections(rows, rep)
	st := &Statement{Names: extractNames(rows)}

	var divCols, taxCols map[string]int
	seenTaxes := map[string]bool{}

	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		section, kind := row[0], row[1]
		switch {
		case section == sectionDividends && kind == rowHeader:
			divCols = columnIndex(row)
		case section == sectionTax && kind == rowHeader:
			taxCols = columnIndex(row)

		case section == sectionDividends && kind == rowData:
			if divCols == nil {
				return nil, divitax.Fatalf("reading statement", "dividend data before the section header")
			}
			ev, ok, err := activityDividend(row, divCols)
			if err != nil {
				return nil, err
			}
			if ok {
				st.Dividends = append(st.Dividends, ev)
			}

		case section == sectionTax && kind == rowData:
			if taxCols == nil {
				return nil, divitax.Fatalf("reading statement", "withholding tax data before the section header")
			}
			adj, ok, err := activityTax(row, taxCols)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			key := adj.Date.String() + "|" + adj.Description + "|" + adj.Amount.String()
			if seenTaxes[key] {
				rep.DuplicateTaxes++
				slog.Warn("duplicate withholding tax row",
					"date", adj.Date, "description", adj.Description, "amount", adj.Amount)
			}
			seenTaxes[key] = true
			st.Taxes = append(st.Taxes, adj)
		}
	}
	return st, nil
}

// activityDividend parses one Dividends data row. Subtotal and summary rows
// carry no parseable ticker and are skipped with ok=false.
func activityDividend(row []string, cols map[string]int) (divitax.DividendEvent, bool, error) {
	desc, err := cell(row, cols, "Description")
	if err != nil {
		return divitax.DividendEvent{}, false, err
	}
	dateStr, err := cell(row, cols, "Date")
	if err != nil {
		return divitax.DividendEvent{}, false, err
	}
	if desc == "" || dateStr == "" {
		return divitax.DividendEvent{}, false, nil
	}
	m := tickerISINRe.FindStringSubmatch(desc)
	if m == nil {
		return divitax.DividendEvent{}, false, nil
	}
	amountStr, err := cell(row, cols, "Amount")
	if err != nil {
		return divitax.DividendEvent{}, false, err
	}
	currency, err := cell(row, cols, "Currency")
	if err != nil {
		return divitax.DividendEvent{}, false, err
	}

	on, err := date.Parse(dateStr)
	if err != nil {
		return divitax.DividendEvent{}, false, divitax.Fatalf("reading statement", "dividend row: %v", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return divitax.DividendEvent{}, false, divitax.Fatalf("reading statement", "dividend amount %q: %v", amountStr, err)
	}

	return divitax.DividendEvent{
		Date:        on,
		ISIN:        strings.TrimSpace(m[2]),
		Ticker:      strings.TrimSpace(m[1]),
		Description: baseDescription(desc),
		Gross:       amount,
		Currency:    currency,
	}, true, nil
}

// activityTax parses one Withholding Tax data row. Interest-related
// withholding has no dividend to reconcile with and is skipped.
func activityTax(row []string, cols map[string]int) (divitax.TaxAdjustment, bool, error) {
	desc, err := cell(row, cols, "Description")
	if err != nil {
		return divitax.TaxAdjustment{}, false, err
	}
	dateStr, err := cell(row, cols, "Date")
	if err != nil {
		return divitax.TaxAdjustment{}, false, err
	}
	amountStr, err := cell(row, cols, "Amount")
	if err != nil {
		return divitax.TaxAdjustment{}, false, err
	}
	if dateStr == "" || amountStr == "" || strings.Contains(desc, "Interest") {
		return divitax.TaxAdjustment{}, false, nil
	}

	on, err := date.Parse(dateStr)
	if err != nil {
		return divitax.TaxAdjustment{}, false, divitax.Fatalf("reading statement", "tax row: %v", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return divitax.TaxAdjustment{}, false, divitax.Fatalf("reading statement", "tax amount %q: %v", amountStr, err)
	}

	return divitax.TaxAdjustment{
		Date:        on,
		Description: baseDescription(desc),
		Amount:      amount,
	}, true, nil
}

// cell returns the trimmed value of a named column, failing when the section
// header did not declare it or the row is too short.
func cell(row []string, cols map[string]int, name string) (string, error) {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return "", divitax.Fatalf("reading statement", "missing %q column", name)
	}
	return strings.TrimSpace(row[i]), nil
}
