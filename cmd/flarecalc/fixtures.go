package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// fixtureTime stamps every golden report so regenerated fixtures diff cleanly.
var fixtureTime = time.Date(2025, time.March, 14, 9, 26, 0, 0, time.UTC)

// fixtureGrid spans small to large flares across the full fraction range.
var fixtureGrid = struct {
	flowRates    []float64
	heatContents []float64
	radFractions []float64
}{
	flowRates:    []float64{25, 150, 1200},
	heatContents: []float64{650, 1000, 2350},
	radFractions: []float64{0.15, 0.35, 1},
}

func newFixturesCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Generate golden report fixtures over a fixed input grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := buildFixtures()
			if err != nil {
				return err
			}
			if err := writeFixtures(out, reports); err != nil {
				return fmt.Errorf("writing fixtures: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reports to %s\n", len(reports), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path for the JSON fixture")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// buildFixtures computes one report per grid point with the clock pinned to
// fixtureTime.
func buildFixtures() ([]domain.Report, error) {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	g := fixtureGrid
	reports := make([]domain.Report, 0, len(g.flowRates)*len(g.heatContents)*len(g.radFractions))
	for _, f := range g.flowRates {
		for _, h := range g.heatContents {
			for _, r := range g.radFractions {
				in := domain.FlareInputs{FlowRate: f, HeatContent: h, RadFraction: r}
				report, err := domain.BuildReport(in)
				if err != nil {
					return nil, fmt.Errorf("report for %+v: %w", in, err)
				}
				reports = append(reports, report)
			}
		}
	}
	return reports, nil
}

func writeFixtures(path string, reports []domain.Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func loadFixtures(path string) ([]domain.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
