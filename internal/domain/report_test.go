package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholds(t *testing.T) {
	ths := Thresholds()
	require.Len(t, ths, 3)
	assert.Equal(t, "safe", ths[0].Name)
	assert.Equal(t, 1.5, ths[0].Flux)
	assert.Equal(t, "shortExposure", ths[1].Name)
	assert.Equal(t, 3.0, ths[1].Flux)
	assert.Equal(t, "veryShortExposure", ths[2].Name)
	assert.Equal(t, 4.6, ths[2].Flux)

	// Callers must not be able to mutate the fixed table.
	ths[0].Flux = 99
	assert.Equal(t, SafeFlux, Thresholds()[0].Flux)

	th, ok := ThresholdByName("shortExposure")
	assert.True(t, ok)
	assert.Equal(t, "~48s", th.Exposure)

	_, ok = ThresholdByName("lethal")
	assert.False(t, ok)
}

func TestSafetyDistances(t *testing.T) {
	got, err := SafetyDistances(DefaultInputs())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5.6, got[0].Distance)
	assert.Equal(t, 4.0, got[1].Distance)
	assert.Equal(t, 3.2, got[2].Distance)

	// Higher flux thresholds are reached closer to the flare.
	assert.Greater(t, got[0].Distance, got[1].Distance)
	assert.Greater(t, got[1].Distance, got[2].Distance)

	_, err = SafetyDistances(FlareInputs{FlowRate: 150, HeatContent: 650})
	assert.ErrorIs(t, err, ErrDomain)
}

func TestSweep(t *testing.T) {
	t.Run("default sweep", func(t *testing.T) {
		samples, err := Sweep(DefaultInputs(), DefaultSweep)
		require.NoError(t, err)
		require.Len(t, samples, 100)
		assert.Equal(t, 1.0, samples[0].Distance)
		assert.Equal(t, 100.0, samples[99].Distance)

		for i, s := range samples {
			assert.Equal(t, float64(i+1), s.Distance)
			want, err := HeatFlux(DefaultFlowRate, DefaultHeatContent, DefaultRadFraction, s.Distance)
			require.NoError(t, err)
			assert.Equal(t, want, s.HeatFlux)
		}
	})

	t.Run("custom range", func(t *testing.T) {
		samples, err := Sweep(DefaultInputs(), SweepRange{Start: 5, End: 50, Step: 5})
		require.NoError(t, err)
		require.Len(t, samples, 10)
		assert.Equal(t, 50.0, samples[9].Distance)
	})

	t.Run("single point", func(t *testing.T) {
		samples, err := Sweep(DefaultInputs(), SweepRange{Start: 10, End: 10, Step: 1})
		require.NoError(t, err)
		assert.Len(t, samples, 1)
	})

	t.Run("fractional step includes end", func(t *testing.T) {
		r := SweepRange{Start: 0.1, End: 0.3, Step: 0.1}
		assert.Equal(t, 3, r.Samples())

		samples, err := Sweep(DefaultInputs(), r)
		require.NoError(t, err)
		require.Len(t, samples, 3)
		assert.Equal(t, 0.3, samples[2].Distance)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		for _, r := range []SweepRange{
			{Start: 0, End: 100, Step: 1},
			{Start: 1, End: 100, Step: 0},
			{Start: 10, End: 5, Step: 1},
			{Start: 1, End: 1e30, Step: 1e-10},
			{Start: 1, End: 1 + MaxSweepSamples, Step: 1},
		} {
			_, err := Sweep(DefaultInputs(), r)
			assert.ErrorIs(t, err, ErrDomain, "%+v", r)
			assert.Zero(t, r.Samples(), "%+v", r)
		}
	})

	t.Run("largest allowed range", func(t *testing.T) {
		r := SweepRange{Start: 1, End: MaxSweepSamples, Step: 1}
		samples, err := Sweep(DefaultInputs(), r)
		require.NoError(t, err)
		assert.Len(t, samples, MaxSweepSamples)
	})

	t.Run("distance too small for a finite flux", func(t *testing.T) {
		_, err := Sweep(DefaultInputs(), SweepRange{Start: 1e-200, End: 1, Step: 0.5})
		assert.ErrorIs(t, err, ErrDomain)
	})
}

func TestBuildReport(t *testing.T) {
	frozen := time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	in := DefaultInputs()
	r, err := BuildReport(in)
	require.NoError(t, err)

	assert.Equal(t, in.Fingerprint(), r.ID)
	assert.Equal(t, in, r.Inputs)
	assert.InEpsilon(t, testHeatReleaseKW, r.HeatRelease.KW, 1e-12)
	assert.Len(t, r.Curve, 100)
	assert.Len(t, r.ReferenceLines, 3)
	assert.Equal(t, frozen, r.ComputedAt)

	d, ok := r.SafeDistanceFor("safe")
	assert.True(t, ok)
	assert.Equal(t, 5.6, d)
	_, ok = r.SafeDistanceFor("unknown")
	assert.False(t, ok)

	again, err := BuildReport(in)
	require.NoError(t, err)
	assert.Equal(t, r, again)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"heat_release":{"btu_per_minute":97500`)
	assert.Contains(t, string(data), `"computed_at":"2025-03-14T09:26:00Z"`)
}

func TestBuildReport_InvalidInputs(t *testing.T) {
	_, err := BuildReport(FlareInputs{FlowRate: -1, HeatContent: 650, RadFraction: 0.35})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
