package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"
	"github.com/vstoykovbg/divitax/bnb"
	"github.com/vstoykovbg/divitax/rates"
)

// ratesCmd is the top-level command for exchange-rate archive operations.
type ratesCmd struct{}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "exchange-rate archive commands" }
func (*ratesCmd) Usage() string {
	return `rates <subcommand> <options>

Exchange-rate archive commands.
`
}
func (c *ratesCmd) SetFlags(f *flag.FlagSet) {}

func (c *ratesCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	commander := subcommands.NewCommander(f, "rates")
	commander.Register(&ratesFetchCmd{}, "")
	commander.Register(&ratesFillGapsCmd{}, "")
	return commander.Execute(ctx, args...)
}

// ratesFetchCmd implements "rates fetch": download one currency's daily rates
// for a full year and write a gap-free archive file.
type ratesFetchCmd struct {
	output string
}

func (*ratesFetchCmd) Name() string     { return "fetch" }
func (*ratesFetchCmd) Synopsis() string { return "fetch a year of daily rates from the central bank" }
func (*ratesFetchCmd) Usage() string {
	return `rates fetch <currency> <year> [-o file.csv]:

Downloads daily exchange rates month by month, fills weekend and holiday gaps
by carrying the last known rate forward, and writes the year's archive file.
`
}

func (c *ratesFetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file, defaults to <CURRENCY>_<year>.csv in the rates directory")
}

func (c *ratesFetchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected <currency> <year>.")
		return subcommands.ExitUsageError
	}
	currency := f.Arg(0)
	year, err := strconv.Atoi(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid year %q.\n", f.Arg(1))
		return subcommands.ExitUsageError
	}
	output := c.output
	if output == "" {
		output = fmt.Sprintf("%s_%d.csv", currency, year)
	}

	obs, err := bnb.New().FetchYear(currency, year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	table, unresolved := rates.BuildYear(obs, currency, year)
	for _, day := range unresolved {
		fmt.Fprintf(os.Stderr, "Warning: no rate resolvable for %s.\n", day)
	}

	w, err := os.Create(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer w.Close()
	if err := table.WriteTo(w); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", output, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Wrote %d day(s) to %s.\n", table.Len(), output)
	return subcommands.ExitSuccess
}

// ratesFillGapsCmd implements "rates fill-gaps": forward-fill an existing
// sparse archive file.
type ratesFillGapsCmd struct{}

func (*ratesFillGapsCmd) Name() string     { return "fill-gaps" }
func (*ratesFillGapsCmd) Synopsis() string { return "forward-fill missing days in an archive file" }
func (*ratesFillGapsCmd) Usage() string {
	return `rates fill-gaps <input.csv> <output.csv>:

Fills every missing day between the first and last date of the input with the
most recent preceding rate. Rates are never interpolated.
`
}
func (c *ratesFillGapsCmd) SetFlags(f *flag.FlagSet) {}

func (c *ratesFillGapsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected <input.csv> <output.csv>.")
		return subcommands.ExitUsageError
	}
	in, err := os.Open(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer in.Close()
	out, err := os.Create(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	filled, err := rates.FillGaps(in, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Filled %d missing day(s) into %s.\n", filled, f.Arg(1))
	return subcommands.ExitSuccess
}
