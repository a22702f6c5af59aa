package divitax

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// interestTax reports whether an unconsumed adjustment is interest
// withholding rather than dividend withholding. Interest is out of scope
// here, so such adjustments are not reported as orphans.
func interestTax(desc string) bool {
	u := strings.ToUpper(desc)
	return strings.HasPrefix(u, "WITHHOLDING") ||
		strings.HasPrefix(u, "CANCEL WITHHOLDING ON CREDIT INT")
}

// Match associates every dividend event with the tax adjustments that belong
// to it. Dividends are processed in source order; each adjustment is consumed
// at most once. Anomalies are accumulated on rep.
//
// Two matching keys exist: the broker-supplied correlation key (primary,
// FlexQuery only) and the (base description, date) pair (fallback, always
// computable). When both are available their sums are cross-validated; a
// divergence is a warning, not an error, because broker data may genuinely
// support only one strategy per record.
func Match(dividends []DividendEvent, taxes []TaxAdjustment, rep *Report) []MatchedRecord {
	detectDuplicateDividends(dividends, rep)

	records := make([]MatchedRecord, 0, len(dividends))
	for _, div := range dividends {
		records = append(records, matchOne(div, taxes, rep))
	}

	for _, t := range taxes {
		if t.Consumed || interestTax(t.Description) {
			continue
		}
		rep.OrphanTaxes++
		slog.Warn("orphan tax adjustment, not matched to any dividend",
			"amount", t.Amount, "date", t.Date, "description", t.Description,
			"correlationID", t.CorrelationID)
	}

	return records
}

// detectDuplicateDividends scans for events sharing an identity key. Any hit
// makes the whole run's output invalid for filing; processing still completes
// so the damage can be inspected.
func detectDuplicateDividends(dividends []DividendEvent, rep *Report) {
	seen := make(map[string]bool, len(dividends))
	for _, div := range dividends {
		key := div.identity()
		if seen[key] {
			rep.DuplicateDividends = append(rep.DuplicateDividends, DuplicateDividend{Event: div})
			slog.Warn("duplicate dividend detected, output will be invalid for filing",
				"ticker", div.Ticker, "date", div.Date, "amount", div.Gross)
		}
		seen[key] = true
	}
}

func matchOne(div DividendEvent, taxes []TaxAdjustment, rep *Report) MatchedRecord {
	// Primary-key set: adjustments sharing the event's correlation key.
	var primary []int
	if div.CorrelationID != "" {
		for i, t := range taxes {
			if !t.Consumed && t.CorrelationID == div.CorrelationID {
				primary = append(primary, i)
			}
		}
	}

	// Fallback-key set: same base description on the same date.
	var fallback []int
	for i, t := range taxes {
		if !t.Consumed && t.Description == div.Description && t.Date == div.Date {
			fallback = append(fallback, i)
		}
	}

	if div.CorrelationID != "" {
		sumPrimary := sumAmounts(taxes, primary)
		sumFallback := sumAmounts(taxes, fallback)
		if !sumPrimary.Equal(sumFallback) {
			rep.SumMismatches++
			slog.Warn("tax matching strategies disagree",
				"ticker", div.Ticker, "date", div.Date,
				"correlationID", div.CorrelationID,
				"byCorrelationKey", sumPrimary, "byDescDate", sumFallback,
				"difference", sumPrimary.Sub(sumFallback))
		}
	}

	// Tie-break: the primary-key set wins whenever it is non-empty.
	selected := primary
	if len(selected) == 0 {
		selected = fallback
	}

	rec := MatchedRecord{Event: div, TotalTax: decimal.Zero}
	if len(selected) == 0 {
		slog.Info("no tax found for dividend", "ticker", div.Ticker, "date", div.Date)
		return rec
	}

	for _, i := range selected {
		taxes[i].Consumed = true
		rec.Adjustments = append(rec.Adjustments, taxes[i])
		rec.TotalTax = rec.TotalTax.Add(taxes[i].Amount)
	}

	if rec.TotalTax.IsNegative() {
		checkWithholdingRate(div, rec.TotalTax, rep)
	}

	if len(selected) > 1 {
		flagRepeatedAdjustments(div, rec, rep)
	}

	return rec
}

// flagRepeatedAdjustments inspects a multi-adjustment match. Amendments and
// corrections legitimately produce several adjustments, which are summed; but
// brokers occasionally emit the same correction twice, which double-counts.
func flagRepeatedAdjustments(div DividendEvent, rec MatchedRecord, rep *Report) {
	slog.Info("multiple tax adjustments for one dividend",
		"ticker", div.Ticker, "date", div.Date,
		"count", len(rec.Adjustments), "netTax", rec.TotalTax)

	// All amounts identical: advisory only, descriptions may still differ.
	allIdentical := true
	for _, t := range rec.Adjustments[1:] {
		if !t.Amount.Equal(rec.Adjustments[0].Amount) {
			allIdentical = false
			break
		}
	}
	if allIdentical {
		slog.Warn("all adjustments are identical, possible duplicate data in file",
			"ticker", div.Ticker, "date", div.Date)
	}

	// Identical (date, amount) pairs: definite duplicate lines. This
	// invalidates the output regardless of description or correlation key.
	seen := make(map[string]bool, len(rec.Adjustments))
	for _, t := range rec.Adjustments {
		key := t.Date.String() + "|" + t.Amount.String()
		if seen[key] {
			rep.IdenticalAdjustments++
			slog.Warn("duplicate (date, amount) tax adjustment, output will be invalid for filing",
				"ticker", div.Ticker, "date", t.Date, "amount", t.Amount)
		}
		seen[key] = true
	}
}

func sumAmounts(taxes []TaxAdjustment, idx []int) decimal.Decimal {
	sum := decimal.Zero
	for _, i := range idx {
		sum = sum.Add(taxes[i].Amount)
	}
	return sum
}
