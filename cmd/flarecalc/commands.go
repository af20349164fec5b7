package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

// inputFlags are the three form inputs shared by most commands.
type inputFlags struct {
	flowRate       float64
	heatContent    float64
	radFractionPct float64
}

func (f *inputFlags) register(cmd *cobra.Command, withFraction bool) {
	def := domain.DefaultInputs()
	cmd.Flags().Float64Var(&f.flowRate, "flow-rate", envFloat("FLARE_FLOW_RATE", def.FlowRate), "gas flow rate (SCFM)")
	cmd.Flags().Float64Var(&f.heatContent, "heat-content", envFloat("FLARE_HEAT_CONTENT", def.HeatContent), "heat content (BTU/SCF)")
	if withFraction {
		cmd.Flags().Float64Var(&f.radFractionPct, "rad-fraction-pct", envFloat("FLARE_RAD_FRACTION_PCT", def.RadFractionPercent()), "radiation fraction (%)")
	}
}

func (f *inputFlags) inputs() (domain.FlareInputs, error) {
	frac, err := domain.PercentToFraction("rad-fraction-pct", f.radFractionPct)
	if err != nil {
		return domain.FlareInputs{}, err
	}
	in := domain.FlareInputs{FlowRate: f.flowRate, HeatContent: f.heatContent, RadFraction: frac}
	if err := in.Validate(); err != nil {
		return domain.FlareInputs{}, err
	}
	return in, nil
}

// envFloat reads a flag default from the environment. Unparseable values
// fall back so a bad .env never hides the built-in default.
func envFloat(key string, fallback float64) float64 {
	raw := sharedcfg.EnvOrDefault(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func newReleaseCmd() *cobra.Command {
	var f inputFlags
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Print the heat release conversion chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := domain.FlareInputs{FlowRate: f.flowRate, HeatContent: f.heatContent, RadFraction: 1}
			if err := in.Validate(); err != nil {
				return err
			}
			printBreakdown(cmd.OutOrStdout(), domain.BreakdownHeatRelease(in.FlowRate, in.HeatContent))
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func newFluxCmd() *cobra.Command {
	var (
		f        inputFlags
		distance float64
	)
	cmd := &cobra.Command{
		Use:   "flux",
		Short: "Print the radiant heat flux at a distance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.inputs()
			if err != nil {
				return err
			}
			q, err := domain.HeatFlux(in.FlowRate, in.HeatContent, in.RadFraction, distance)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f kW/m² at %g m\n", q, distance)
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().Float64Var(&distance, "distance", 10, "distance from the flare (m)")
	return cmd
}

func newDistanceCmd() *cobra.Command {
	var (
		heatRelease, radFractionPct, targetFlux float64
		threshold                               string
	)
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Print the minimum distance at which flux falls to a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold != "" {
				th, ok := domain.ThresholdByName(threshold)
				if !ok {
					return fmt.Errorf("unknown threshold %q: want one of %s", threshold, thresholdNames())
				}
				targetFlux = th.Flux
			}
			frac, err := domain.PercentToFraction("rad-fraction-pct", radFractionPct)
			if err != nil {
				return err
			}
			d, err := domain.SafeDistance(heatRelease, frac, targetFlux)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.1f m\n", d)
			return nil
		},
	}
	def := domain.DefaultInputs()
	cmd.Flags().Float64Var(&heatRelease, "heat-release", def.HeatRelease(), "heat release (kW)")
	cmd.Flags().Float64Var(&radFractionPct, "rad-fraction-pct", def.RadFractionPercent(), "radiation fraction (%)")
	cmd.Flags().Float64Var(&targetFlux, "target-flux", domain.SafeFlux, "target heat flux (kW/m²)")
	cmd.Flags().StringVar(&threshold, "threshold", "", "named exposure limit to use as the target ("+thresholdNames()+")")
	cmd.MarkFlagsMutuallyExclusive("threshold", "target-flux")
	return cmd
}

func thresholdNames() string {
	ths := domain.Thresholds()
	names := make([]string, len(ths))
	for i, th := range ths {
		names[i] = th.Name
	}
	return strings.Join(names, ", ")
}

func newReportCmd() *cobra.Command {
	var (
		f      inputFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the full report: heat release, safe distances and the flux curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.inputs()
			if err != nil {
				return err
			}
			report, err := domain.BuildReport(in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report)
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the report as JSON")
	return cmd
}

func printBreakdown(w io.Writer, b domain.HeatReleaseBreakdown) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "BTU/min\t%.2f\n", b.BTUPerMinute)
	fmt.Fprintf(tw, "BTU/day\t%.2f\n", b.BTUPerDay)
	fmt.Fprintf(tw, "kWh/day\t%.2f\n", b.KWhPerDay)
	fmt.Fprintf(tw, "kW\t%.2f\n", b.KW)
	tw.Flush() //nolint:errcheck // best-effort console output
}

func printReport(w io.Writer, r domain.Report) {
	fmt.Fprintf(w, "Report %s\n", r.ID)
	fmt.Fprintf(w, "Inputs: %g SCFM, %g BTU/SCF, %g%% radiated\n\n",
		r.Inputs.FlowRate, r.Inputs.HeatContent, r.Inputs.RadFractionPercent())

	printBreakdown(w, r.HeatRelease)

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "THRESHOLD\tFLUX (kW/m²)\tDISTANCE (m)")
	for _, d := range r.SafeDistances {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\n", d.Threshold.Label, d.Threshold.Flux, d.Distance)
	}
	tw.Flush() //nolint:errcheck // best-effort console output

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DISTANCE (m)\tFLUX (kW/m²)")
	for _, s := range r.Curve {
		fmt.Fprintf(tw, "%g\t%.4f\n", s.Distance, s.HeatFlux)
	}
	tw.Flush() //nolint:errcheck // best-effort console output
}
