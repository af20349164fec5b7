package main

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

// relTolerance bounds floating point drift between fixture and recomputation.
const relTolerance = 1e-9

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Recompute every golden fixture and check the model's invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := loadFixtures(path)
			if err != nil {
				return fmt.Errorf("load fixtures: %w", err)
			}
			return runValidation(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().StringVar(&path, "fixtures", "", "path to the JSON fixture")
	_ = cmd.MarkFlagRequired("fixtures")
	return cmd
}

func runValidation(w io.Writer, reports []domain.Report) error {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	fmt.Fprintln(w, "=== Flare Heat Flux Fixture Validation ===")

	phases := []*phase{
		validateShape(reports),
		validateRecompute(reports),
		validateInvariants(reports),
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-36s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nReports: %d\n", len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if !allPassed {
		return errValidationFailed
	}
	fmt.Fprintln(w, "\nAll validations passed.")
	return nil
}

// ── Phase 1: Shape ──

func validateShape(reports []domain.Report) *phase {
	p := &phase{name: "Phase 1: Shape"}
	if len(reports) == 0 {
		p.errorf("fixture is empty")
	}
	want := domain.DefaultSweep.Samples()
	seen := map[string]bool{}
	for i := range reports {
		r := &reports[i]
		if r.ID != r.Inputs.Fingerprint() {
			p.errorf("report %d: id %q does not match inputs fingerprint %q", i, r.ID, r.Inputs.Fingerprint())
		}
		if seen[r.ID] {
			p.errorf("report %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if len(r.Curve) != want {
			p.errorf("report %s: curve has %d samples, want %d", r.ID, len(r.Curve), want)
		}
		if len(r.ReferenceLines) != len(domain.Thresholds()) {
			p.errorf("report %s: %d reference lines", r.ID, len(r.ReferenceLines))
		}
		if len(r.SafeDistances) != len(domain.Thresholds()) {
			p.errorf("report %s: %d safe distances", r.ID, len(r.SafeDistances))
		}
	}
	return p
}

// ── Phase 2: Recompute ──

func validateRecompute(reports []domain.Report) *phase {
	p := &phase{name: "Phase 2: Recompute"}
	for i := range reports {
		r := &reports[i]
		fresh, err := domain.BuildReport(r.Inputs)
		if err != nil {
			p.errorf("report %s: %v", r.ID, err)
			continue
		}
		compareReports(p, fresh, r)
	}
	return p
}

func compareReports(p *phase, want domain.Report, got *domain.Report) {
	id := want.ID
	if !floatEq(got.HeatRelease.KW, want.HeatRelease.KW) {
		p.errorf("report %s: heat release %g kW, want %g", id, got.HeatRelease.KW, want.HeatRelease.KW)
	}
	if !floatEq(got.HeatRelease.KWhPerDay, want.HeatRelease.KWhPerDay) {
		p.errorf("report %s: %g kWh/day, want %g", id, got.HeatRelease.KWhPerDay, want.HeatRelease.KWhPerDay)
	}
	for j := range min(len(got.Curve), len(want.Curve)) {
		g, w := got.Curve[j], want.Curve[j]
		if g.Distance != w.Distance || !floatEq(g.HeatFlux, w.HeatFlux) {
			p.errorf("report %s: sample %d is (%g, %g), want (%g, %g)", id, j, g.Distance, g.HeatFlux, w.Distance, w.HeatFlux)
		}
	}
	for _, d := range want.SafeDistances {
		gotD, ok := got.SafeDistanceFor(d.Threshold.Name)
		if !ok || gotD != d.Distance {
			p.errorf("report %s: %s distance %g, want %g", id, d.Threshold.Name, gotD, d.Distance)
		}
	}
	if !got.ComputedAt.Equal(want.ComputedAt) {
		p.errorf("report %s: computed_at %s, want %s", id, got.ComputedAt, want.ComputedAt)
	}
}

// ── Phase 3: Invariants ──

func validateInvariants(reports []domain.Report) *phase {
	p := &phase{name: "Phase 3: Model invariants"}
	for i := range reports {
		checkCurve(p, &reports[i])
		checkDistanceOrder(p, &reports[i])
	}
	return p
}

// checkCurve verifies the inverse-square law: flux strictly decreases and
// flux·d² is constant along the curve.
func checkCurve(p *phase, r *domain.Report) {
	if len(r.Curve) == 0 {
		return
	}
	first := r.Curve[0]
	k := first.HeatFlux * first.Distance * first.Distance
	for j := 1; j < len(r.Curve); j++ {
		s := r.Curve[j]
		if s.HeatFlux >= r.Curve[j-1].HeatFlux {
			p.errorf("report %s: flux does not decrease at %g m", r.ID, s.Distance)
		}
		if !floatEq(s.HeatFlux*s.Distance*s.Distance, k) {
			p.errorf("report %s: flux·d² drifts at %g m", r.ID, s.Distance)
		}
	}
}

// checkDistanceOrder verifies higher flux limits sit closer to the flare.
func checkDistanceOrder(p *phase, r *domain.Report) {
	for j := 1; j < len(r.SafeDistances); j++ {
		prev, cur := r.SafeDistances[j-1], r.SafeDistances[j]
		if cur.Distance > prev.Distance {
			p.errorf("report %s: %s at %g m is farther than %s at %g m",
				r.ID, cur.Threshold.Name, cur.Distance, prev.Threshold.Name, prev.Distance)
		}
	}
}

func floatEq(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= relTolerance*math.Max(math.Abs(a), math.Abs(b))
}
