/*
main.go - Evaluate one contract from the command line

PURPOSE:
  Reads contract terms (JSON or YAML), optionally a risk-factor file, runs
  the engine and prints the evaluated event table. Nothing is stored.

COMMAND-LINE FLAGS:
  -terms         Terms file; .yaml/.yml is read as YAML, anything else as JSON
  -observations  Observations and contingent events file (optional)
  -analysis      Comma-separated analysis dates (optional)
  -types         Comma-separated event types to print (optional)
  -payoff-only   Print cash-flow events only
  -json          Print the events as JSON instead of a table

EXAMPLES:
  ./lifecycle -terms loan.yaml
  ./lifecycle -terms swap.json -observations sofr.yaml -analysis 2025-06-30
*/
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/instruments"
	"github.com/warp/cashflow-engine/riskfactor"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "lifecycle:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("lifecycle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	termsPath := fs.String("terms", "", "contract terms file (JSON or YAML)")
	obsPath := fs.String("observations", "", "risk-factor file (optional)")
	analysis := fs.String("analysis", "", "comma-separated analysis dates")
	types := fs.String("types", "", "comma-separated event types to print")
	payoffOnly := fs.Bool("payoff-only", false, "print cash-flow events only")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	verbose := fs.Bool("v", false, "log engine decisions to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *termsPath == "" {
		return errors.New("-terms is required")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	terms, err := factory.NewTermsFactory().ParseFile(*termsPath)
	if err != nil {
		return err
	}
	rf := riskfactor.NewObserver()
	if *obsPath != "" {
		if rf, err = riskfactor.ParseFile(*obsPath); err != nil {
			return err
		}
	}
	times, err := parseDates(*analysis)
	if err != nil {
		return err
	}
	filter := generic.Filter{PayoffOnly: *payoffOnly}
	for _, s := range splitList(*types) {
		t, err := generic.ParseEventType(s)
		if err != nil {
			return err
		}
		filter.Types = append(filter.Types, t)
	}

	events, err := instruments.NewEngine(nil, logger).Evaluate(times, terms, rf)
	if err != nil {
		return err
	}
	records := generic.NewEventRecords(filter.Apply(events))

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return printTable(stdout, records)
}

func printTable(w io.Writer, records []generic.EventRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tTYPE\tCCY\tPAYOFF\tNOTIONAL\tRATE\tACCRUED\t")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.EventTime.Format("2006-01-02"),
			r.Type,
			r.Currency,
			r.Payoff.StringFixed(2),
			r.NotionalPrincipal.StringFixed(2),
			r.NominalInterestRate.String(),
			r.AccruedInterest.StringFixed(2),
		)
	}
	return tw.Flush()
}

func parseDates(list string) ([]time.Time, error) {
	var out []time.Time
	for _, s := range splitList(list) {
		t, err := factory.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("-analysis: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
