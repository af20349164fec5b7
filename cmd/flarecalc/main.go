// Command flarecalc runs the flare heat flux model from the command line and
// manages the golden report fixtures used by the test suites.
//
// Usage:
//
//	go run ./cmd/flarecalc report --flow-rate 150 --heat-content 650 --rad-fraction-pct 35
//	go run ./cmd/flarecalc fixtures --out testdata/reports.json
//	go run ./cmd/flarecalc validate --fixtures testdata/reports.json
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A .env file may supply FLARE_* flag defaults.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: read .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "flarecalc",
		Short:        "Flare radiant heat flux and safe working distance calculator",
		SilenceUsage: true,
	}
	root.AddCommand(
		newReleaseCmd(),
		newFluxCmd(),
		newDistanceCmd(),
		newReportCmd(),
		newFixturesCmd(),
		newValidateCmd(),
	)
	return root
}
