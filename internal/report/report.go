// Package report renders projections for people.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"rbudget/internal/core"
	"rbudget/internal/simulation"
)

// WriteDays prints each projected day as a date line followed by one line
// per account in ID order:
//
//	2023-02-24:
//	Account 0, current value £1000.00
func WriteDays(w io.Writer, days []simulation.Day) error {
	for _, d := range days {
		if _, err := fmt.Fprintf(w, "%s:\n", d.Date); err != nil {
			return err
		}
		for _, id := range d.Values.IDs() {
			if _, err := fmt.Fprintf(w, "Account %s, current value %s\n", id, d.Values[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// AccountStats holds descriptive statistics of one account over a projection.
type AccountStats struct {
	Mean   float64
	StdDev float64
}

// Stats computes the mean and standard deviation of an account's daily values.
// A single value is its own mean with zero deviation; no values give zeros.
func Stats(history []core.AccountState) AccountStats {
	if len(history) < 2 {
		if len(history) == 1 {
			return AccountStats{Mean: history[0].Value.Fraction()}
		}
		return AccountStats{}
	}
	xs := make([]float64, len(history))
	for i, st := range history {
		xs[i] = st.Value.Fraction()
	}
	mean, std := stat.MeanStdDev(xs, nil)
	return AccountStats{Mean: mean, StdDev: std}
}

// WriteSummary prints a table of per-account figures over days.
func WriteSummary(w io.Writer, summaries []simulation.AccountSummary, days []simulation.Day) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tName\tInitial\tFinal\tChange\tMin\tMax\tMean\t")
	for _, s := range summaries {
		st := Stats(simulation.History(days, s.ID))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s (%s)\t%s (%s)\t%s\t\n",
			s.ID,
			s.Name,
			Amount(s.Initial),
			Amount(s.Final),
			Amount(s.Final.Sub(s.Initial)),
			Amount(s.Min.Value), s.Min.Date,
			Amount(s.Max.Value), s.Max.Date,
			Amount(core.MoneyFromFraction(st.Mean)),
		)
	}
	return tw.Flush()
}

// WriteHeader prints a one-line description of a projection run.
func WriteHeader(w io.Writer, scenario string, start core.Date, days int) error {
	_, err := fmt.Fprintf(w, "Scenario %q from %s over %s %s\n",
		scenario, start, humanize.Comma(int64(days)), plural(days, "day", "days"))
	return err
}

// Amount formats m with the currency symbol and thousands separators.
func Amount(m core.Money) string {
	s := humanize.FormatFloat("#,###.##", m.Amount.Abs().InexactFloat64())
	if m.IsNegative() {
		return "-" + core.CurrencySymbol + s
	}
	return core.CurrencySymbol + s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Compare prints the final value of every account for several projections
// side by side. Accounts missing from a projection are shown as "-".
func Compare(w io.Writer, names []string, finals []simulation.Snapshot) error {
	ids := map[core.AccountID]struct{}{}
	for _, f := range finals {
		for id := range f {
			ids[id] = struct{}{}
		}
	}
	all := make(simulation.Snapshot, len(ids))
	for id := range ids {
		all[id] = core.ZeroMoney
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Account\t%s\t\n", strings.Join(names, "\t"))
	for _, id := range all.IDs() {
		cells := make([]string, len(finals))
		for i, f := range finals {
			if v, ok := f[id]; ok {
				cells[i] = Amount(v)
			} else {
				cells[i] = "-"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", id, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
