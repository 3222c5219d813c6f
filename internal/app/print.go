package app

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/vk/calcgrid/internal/session"
	"github.com/vk/calcgrid/internal/sweep"
	"github.com/vk/calcgrid/internal/units"
)

// printState writes one row per visible variable. Inputs are marked "<" and
// outputs ">".
func printState(out io.Writer, st session.State) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", st.Calculator)
	for _, v := range st.Variables {
		if v.Hidden {
			continue
		}
		arrow := "<"
		if v.Direction == "output" {
			arrow = ">"
		}
		formatted := v.Formatted
		if formatted == "" {
			formatted = "-"
		}
		fmt.Fprintf(w, "  %s %s\t%s\t%s", arrow, v.Name, formatted, v.Level)
		if v.Message != "" {
			fmt.Fprintf(w, "\t%s", v.Message)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

// printSweep writes the sweep as two columns in display units.
func printSweep(out io.Writer, res sweep.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\n%s\t%s\n", axis(res.Input, res.InputUnit), axis(res.Output, res.OutputUnit))
	for _, p := range res.Points {
		y := "-"
		if !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) {
			y = units.Format(p.Y, 4)
		}
		fmt.Fprintf(w, "%s\t%s\n", units.Format(p.X, 4), y)
	}
	return w.Flush()
}

func axis(name, unit string) string {
	if unit == "" {
		return name
	}
	return fmt.Sprintf("%s [%s]", name, unit)
}
