package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"
	"github.com/vstoykovbg/divitax"
)

// SummaryMarkdown renders a run summary: the detected tax year, the filing
// totals, and every anomaly the report accumulated.
func SummaryMarkdown(out *divitax.Outcome) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Dividend Tax Reconciliation %d", out.TaxYear))
	doc.PlainText(fmt.Sprintf("%d dividend line(s) processed.", len(out.Results)))

	var dividendBGN, taxBGN, due string
	{
		d, t, u := out.Totals()
		dividendBGN, taxBGN, due = d.StringFixed(2), t.StringFixed(2), u.StringFixed(2)
	}
	doc.Table(md.TableSet{
		Header: []string{"Total", "BGN"},
		Rows: [][]string{
			{"Dividends", dividendBGN},
			{"Withholding tax", taxBGN},
			{"Tax due", due},
		},
	})

	rep := &out.Report
	if rep.OutputInvalid() {
		doc.H2("Output invalid")
		doc.PlainText("The input contains duplicate data. Do not use this output for filing.")
	}

	if rep.HasWarnings() {
		doc.H2("Anomalies")
		doc.Table(md.TableSet{
			Header: []string{"Condition", "Count"},
			Rows:   anomalyRows(rep),
		})
	} else {
		doc.PlainText("No anomalies detected.")
	}

	return doc.String()
}

func anomalyRows(rep *divitax.Report) [][]string {
	var rows [][]string
	add := func(label string, n int) {
		if n > 0 {
			rows = append(rows, []string{label, fmt.Sprintf("%d", n)})
		}
	}
	add("Duplicate dividends", len(rep.DuplicateDividends))
	add("Duplicate tax rows", rep.DuplicateTaxes)
	add("Identical tax adjustments in one match", rep.IdenticalAdjustments)
	add("Duplicate statement sections", len(rep.DuplicateSections))
	add("Orphan tax adjustments", rep.OrphanTaxes)
	add("Positive withholding tax", rep.PositiveTaxes)
	add("Unknown security identifiers", rep.UnknownISINs)
	add("Withholding above 50%", rep.VeryHighRates)
	add("Withholding above the expected band", rep.HighRates)
	add("Withholding below the expected band", rep.LowRates)
	add("Matching strategy sum mismatches", rep.SumMismatches)
	add("Late settlement timestamps", rep.TimezoneShifts)
	add("Countries resolved from the identifier prefix", rep.FallbackCountries)
	add("Missing instrument names", rep.MissingNames)
	add("Records outside the tax year", rep.DroppedOutOfYear)
	if rep.TooManyDropped {
		rows = append(rows, []string{"Over 30% of dividends outside the tax year", "yes"})
	}
	return rows
}
