package divitax

import "fmt"

// DuplicateDividend records one dividend event seen more than once in the
// input. Any such event makes the whole output unusable for filing.
type DuplicateDividend struct {
	Event DividendEvent
}

// Report accumulates every anomaly observed during a run. It is threaded
// through the pipeline explicitly and merged at well-defined points; there is
// no ambient global state, so runs are reproducible and tests are isolated.
type Report struct {
	// Advisory conditions: reported, output stays usable.
	UnknownISINs      int // security identifiers with a non-letter prefix
	FallbackCountries int // countries resolved from the ISIN prefix, not the override table
	OrphanTaxes       int // adjustments never consumed by any dividend
	PositiveTaxes     int // withholding reported with the wrong sign
	HighRates         int // withholding above the expected band
	VeryHighRates     int // withholding above 50%
	LowRates          int // withholding below the expected band
	SumMismatches     int // primary vs fallback matching sums diverged
	TimezoneShifts    int // record timestamps close to a day boundary
	MissingNames      int // instrument names not found for an ISIN
	DroppedOutOfYear  int // records outside the detected tax year
	TooManyDropped    bool

	// Invalidating conditions: output written but unfit for filing.
	DuplicateTaxes       int // duplicate tax rows at extraction
	IdenticalAdjustments int // identical (date, amount) pairs within one match
	DuplicateDividends   []DuplicateDividend
	DuplicateSections    []string
}

// Merge folds another report into r.
func (r *Report) Merge(o Report) {
	r.UnknownISINs += o.UnknownISINs
	r.FallbackCountries += o.FallbackCountries
	r.OrphanTaxes += o.OrphanTaxes
	r.PositiveTaxes += o.PositiveTaxes
	r.HighRates += o.HighRates
	r.VeryHighRates += o.VeryHighRates
	r.LowRates += o.LowRates
	r.SumMismatches += o.SumMismatches
	r.TimezoneShifts += o.TimezoneShifts
	r.MissingNames += o.MissingNames
	r.DroppedOutOfYear += o.DroppedOutOfYear
	r.TooManyDropped = r.TooManyDropped || o.TooManyDropped
	r.DuplicateTaxes += o.DuplicateTaxes
	r.IdenticalAdjustments += o.IdenticalAdjustments
	r.DuplicateDividends = append(r.DuplicateDividends, o.DuplicateDividends...)
	r.DuplicateSections = append(r.DuplicateSections, o.DuplicateSections...)
}

// OutputInvalid reports whether the produced output must not be used for
// filing. Processing still completes in that case, to aid debugging.
func (r *Report) OutputInvalid() bool {
	return len(r.DuplicateDividends) > 0 ||
		r.IdenticalAdjustments > 0 ||
		r.DuplicateTaxes > 0 ||
		len(r.DuplicateSections) > 0
}

// Serious reports whether the run hit conditions that warrant a failure exit
// even though output was written.
func (r *Report) Serious() bool {
	return r.OutputInvalid() ||
		r.OrphanTaxes > 0 ||
		r.UnknownISINs > 0 ||
		r.PositiveTaxes > 0 ||
		r.VeryHighRates > 0 ||
		r.TooManyDropped
}

// HasWarnings reports whether anything at all was flagged.
func (r *Report) HasWarnings() bool {
	return r.Serious() ||
		r.FallbackCountries > 0 ||
		r.HighRates > 0 ||
		r.LowRates > 0 ||
		r.SumMismatches > 0 ||
		r.TimezoneShifts > 0 ||
		r.MissingNames > 0 ||
		r.DroppedOutOfYear > 0
}

// ExitCode maps the report onto a process exit status. The core never
// terminates the process itself; callers decide what to do with this.
func (r *Report) ExitCode() int {
	if r.Serious() {
		return 1
	}
	return 0
}

// FatalError marks a condition under which the run must abort with no partial
// output: continuing would either crash unpredictably or silently put wrong
// numbers in a tax filing.
type FatalError struct {
	Op  string // what was being done, e.g. "rate lookup"
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf wraps a formatted error as fatal.
func Fatalf(op, format string, args ...any) *FatalError {
	return &FatalError{Op: op, Err: fmt.Errorf(format, args...)}
}
