package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
)

type tickCmd struct {
	count int
}

func (*tickCmd) Name() string     { return "tick" }
func (*tickCmd) Synopsis() string { return "apply market simulator ticks to the stored catalog and exit" }
func (*tickCmd) Usage() string {
	return `tick [-n <count>]

  Moves every stock of the configured store by <count> simulator ticks, as the
  running server would, then prints the resulting quotes.
`
}

func (c *tickCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.count, "n", 1, "Number of ticks to apply.")
}

func (c *tickCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.count < 1 {
		fmt.Fprintln(os.Stderr, "-n must be at least 1")
		return subcommands.ExitUsageError
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	for i := 0; i < c.count; i++ {
		if err := a.Simulator.Tick(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}

	if err := printStocks(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type stocksCmd struct{}

func (*stocksCmd) Name() string           { return "stocks" }
func (*stocksCmd) Synopsis() string       { return "print the stored stock catalog" }
func (*stocksCmd) Usage() string          { return "stocks\n\n  Prints every listed stock with its current quote.\n" }
func (*stocksCmd) SetFlags(*flag.FlagSet) {}

func (*stocksCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := printStocks(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printStocks(a *app) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE\tCHANGE %\tLOW\tHIGH\tSECTOR\t")
	for _, s := range a.Catalog.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			s.Symbol,
			s.CurrentPrice.StringFixed(2),
			s.Change.StringFixed(2),
			s.ChangePercent.StringFixed(2),
			s.DayLow.StringFixed(2),
			s.DayHigh.StringFixed(2),
			s.Sector,
		)
	}
	return w.Flush()
}
