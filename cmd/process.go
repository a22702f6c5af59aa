package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/vstoykovbg/divitax"
	"github.com/vstoykovbg/divitax/ibkr"
	"github.com/vstoykovbg/divitax/rates"
	"github.com/vstoykovbg/divitax/renderer"
)

// processCmd implements the "process" command: the full reconciliation
// pipeline from one broker export to one filing CSV.
type processCmd struct {
	input     string
	fii       string
	output    string
	mode      string
	ratesDir  string
	countries string
}

func (*processCmd) Name() string     { return "process" }
func (*processCmd) Synopsis() string { return "reconcile a broker statement into a filing CSV" }
func (*processCmd) Usage() string {
	return `process -i statement.csv -o filing.csv [-mode filing|sheet|table] [-fii instruments.csv]:

Extracts dividends and withholding taxes from a broker CSV export (activity
statement or FlexQuery, auto-detected), matches taxes to dividends, converts
to BGN and computes the foreign tax credit. Prints a run summary and exits
non-zero when the run hit serious issues, even if output was written.
`
}

func (c *processCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.input, "i", "", "broker CSV export to process")
	f.StringVar(&c.fii, "fii", "", "separate Financial Instrument Information CSV (optional)")
	f.StringVar(&c.output, "o", "", "output CSV file, must not exist")
	f.StringVar(&c.mode, "mode", string(renderer.Filing), "output layout: filing, sheet or table")
	f.StringVar(&c.ratesDir, "rates", envOr(EnvRatesDir, "."), "directory holding the exchange-rate archive")
	f.StringVar(&c.countries, "countries", envOr(EnvCountryFile, "ISIN_country.csv"), "ISIN to country override file")
}

func (c *processCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.input == "" || c.output == "" {
		fmt.Fprintln(os.Stderr, "Error: -i and -o are required.")
		return subcommands.ExitUsageError
	}
	mode, err := renderer.ParseMode(c.mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	// Filing output is legally significant; never clobber an existing file.
	if _, err := os.Stat(c.output); err == nil {
		fmt.Fprintf(os.Stderr, "Error: output file %q already exists.\n", c.output)
		return subcommands.ExitFailure
	}

	out, err := c.run(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	summary := renderer.SummaryMarkdown(out)
	if rendered, err := glamour.Render(summary, "auto"); err == nil {
		fmt.Print(rendered)
	} else {
		fmt.Print(summary)
	}

	if out.Report.ExitCode() != 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *processCmd) run(mode renderer.Mode) (*divitax.Outcome, error) {
	in, err := os.Open(c.input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var rep divitax.Report
	st, err := ibkr.Extract(in, &rep)
	if err != nil {
		return nil, err
	}

	names := st.Names
	if c.fii != "" {
		fii, err := os.Open(c.fii)
		if err != nil {
			return nil, err
		}
		defer fii.Close()
		if names, err = ibkr.ExtractNames(fii); err != nil {
			return nil, err
		}
	}

	resolver, err := divitax.LoadCountryOverrides(c.countries)
	if err != nil {
		return nil, err
	}

	out, err := divitax.Reconcile(st.Dividends, st.Taxes, divitax.Options{
		Resolver: resolver,
		Rates:    rates.NewArchive(c.ratesDir),
		Names:    names,
	})
	if err != nil {
		return nil, err
	}
	out.Report.Merge(rep)

	w, err := os.Create(c.output)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	if err := renderer.WriteCSV(w, mode, out.Results); err != nil {
		return nil, fmt.Errorf("writing %q: %w", c.output, err)
	}
	fmt.Fprintf(os.Stderr, "Output written to %s in mode %q.\n", c.output, mode)
	return out, nil
}
