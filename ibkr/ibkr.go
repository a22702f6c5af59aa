// Package ibkr extracts dividend events and withholding-tax adjustments from
// Interactive Brokers CSV exports.
//
// Two schemas are supported and auto-detected: the sectioned activity
// statement (rows prefixed with a section name and a Header/Data discriminator)
// and the flat FlexQuery report (a single header row with a Type column).
package ibkr

import (
	"encoding/csv"
	"io"
	"regexp"
	"strings"

	"github.com/vstoykovbg/divitax"
)

const (
	sectionDividends = "Dividends"
	sectionTax       = "Withholding Tax"
	sectionFII       = "Financial Instrument Information"

	rowHeader = "Header"
	rowData   = "Data"
)

// Statement is the extracted content of one broker export.
type Statement struct {
	Dividends []divitax.DividendEvent
	Taxes     []divitax.TaxAdjustment
	// Names maps ISIN to the full instrument name, when the export carries
	// Financial Instrument Information sections.
	Names map[string]string
}

// Extract reads a broker CSV export, detects its schema and extracts
// dividends, tax adjustments and instrument names. Anomalies that do not
// prevent extraction are accumulated on rep.
func Extract(r io.Reader, rep *divitax.Report) (*Statement, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, divitax.Fatalf("reading statement", "%v", err)
	}
	if len(rows) == 0 {
		return nil, divitax.Fatalf("reading statement", "empty input")
	}
	if isFlexQuery(rows[0]) {
		return extractFlexQuery(rows, rep)
	}
	return extractActivity(rows, rep)
}

// ExtractNames reads a standalone Financial Instrument Information export and
// returns its ISIN to instrument-name mapping.
func ExtractNames(r io.Reader) (map[string]string, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, divitax.Fatalf("reading instrument information", "%v", err)
	}
	return extractNames(rows), nil
}

func readRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	// Sections have different widths; let every row keep its own.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

// isFlexQuery reports whether the first row is a FlexQuery header.
func isFlexQuery(header []string) bool {
	cols := make(map[string]bool, len(header))
	for _, c := range header {
		cols[strings.TrimSpace(c)] = true
	}
	return cols["CurrencyPrimary"] && cols["ISIN"] && cols["SettleDate"]
}

// tickerISINRe matches activity-statement descriptions of the form
// "TICKER(ISIN) Cash Dividend ...".
var tickerISINRe = regexp.MustCompile(`^(.*?)\((.*?)\)`)

// baseDescription cuts a raw description down to the part shared between a
// dividend row and its tax rows, so the two can be correlated. The per-share
// detail before the first " -" or " (" stays in the key on purpose: two
// distributions of the same security on the same day differ there.
func baseDescription(desc string) string {
	if i := strings.Index(desc, " -"); i >= 0 {
		return strings.TrimSpace(desc[:i])
	}
	if i := strings.Index(desc, " ("); i >= 0 {
		return strings.TrimSpace(desc[:i])
	}
	return strings.TrimSpace(desc)
}

// scanDuplicateSections flags sections whose header row appears more than
// once. Instrument-information sections legitimately repeat per asset class
// and are ignored.
func scanDuplicateSections(rows [][]string, rep *divitax.Report) {
	counts := map[string]int{}
	for _, row := range rows {
		if len(row) >= 2 && row[1] == rowHeader && row[0] != sectionFII {
			counts[row[0]]++
		}
	}
	for section, n := range counts {
		if n > 1 {
			rep.DuplicateSections = append(rep.DuplicateSections, section)
		}
	}
}

// extractNames collects the ISIN to name mapping from every
// Financial Instrument Information section that carries both a Security ID
// and a Description column.
func extractNames(rows [][]string) map[string]string {
	names := map[string]string{}
	idIdx, descIdx := -1, -1
	inSection := false
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		section, kind := row[0], row[1]
		switch {
		case section == sectionFII && kind == rowHeader:
			cols := columnIndex(row)
			idIdx, descIdx = cols["Security ID"], cols["Description"]
			inSection = idIdx > 0 && descIdx > 0
		case section == sectionFII && kind == rowData && inSection:
			if idIdx >= len(row) || descIdx >= len(row) {
				continue
			}
			isin := strings.TrimSpace(row[idIdx])
			name := strings.TrimSpace(row[descIdx])
			if isin != "" && name != "" {
				names[isin] = name
			}
		case section != sectionFII:
			inSection = false
		}
	}
	return names
}

// columnIndex maps section column names to their absolute row index. The two
// leading cells of every sectioned row hold the section name and the row kind.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header)-2)
	for i, col := range header[2:] {
		idx[strings.TrimSpace(col)] = i + 2
	}
	return idx
}
