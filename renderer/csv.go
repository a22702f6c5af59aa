// Package renderer serializes reconciliation outcomes: the filing-ready CSV
// layouts and a markdown summary of the run.
package renderer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vstoykovbg/divitax"
)

// Mode selects the CSV layout.
type Mode string

const (
	// Filing is the minimal layout consumed by filing automation:
	// one line per dividend with the BGN amounts only.
	Filing Mode = "filing"
	// Sheet is the full layout with every intermediate quantity, meant for
	// review in a spreadsheet.
	Sheet Mode = "sheet"
	// Table is the layout mirroring the declaration form's table.
	Table Mode = "table"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case Filing, Sheet, Table:
		return m, nil
	}
	return "", fmt.Errorf("unknown output mode %q, want filing, sheet or table", s)
}

// WriteCSV writes the results in the given layout.
func WriteCSV(w io.Writer, mode Mode, results []divitax.Result) error {
	cw := csv.NewWriter(w)
	header, row := layout(mode)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func layout(mode Mode) (header []string, row func(divitax.Result) []string) {
	switch mode {
	case Sheet:
		return []string{
				"name", "ISIN", "currency code", "dividend", "withholding tax", "date",
				"currency rate", "dividend BGN", "withholding tax BGN", "permitted tax credit",
				"method", "applied tax credit", "tax due", "country",
			}, func(r divitax.Result) []string {
				return []string{
					r.Name, r.ISIN, r.Currency,
					r.Gross.StringFixed(2), r.Tax.StringFixed(2), r.Date.Rate(),
					r.Rate.StringFixed(5), r.DividendBGN.StringFixed(2), r.TaxBGN.StringFixed(2),
					r.PermittedCredit.StringFixed(2), r.Method, r.AppliedCredit.StringFixed(2),
					r.TaxDue.StringFixed(2), r.Country,
				}
			}
	case Table:
		return []string{
				"name", "country", "income code", "method", "dividend BGN",
				"withholding tax BGN", "permitted tax credit", "applied tax credit", "tax due",
			}, func(r divitax.Result) []string {
				return []string{
					r.Name, r.Country, r.IncomeCode, r.Method, r.DividendBGN.StringFixed(2),
					r.TaxBGN.StringFixed(2), r.PermittedCredit.StringFixed(2),
					r.AppliedCredit.StringFixed(2), r.TaxDue.StringFixed(2),
				}
			}
	default: // Filing
		return []string{"name", "country", "sum", "paidtax"},
			func(r divitax.Result) []string {
				return []string{r.Name, r.Country, r.DividendBGN.StringFixed(2), r.TaxBGN.StringFixed(2)}
			}
	}
}
