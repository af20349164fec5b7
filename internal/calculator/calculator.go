package calculator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
)

// Operation names used as metric labels.
const (
	OpHeatRelease  = "heat_release"
	OpFlux         = "flux"
	OpSafeDistance = "safe_distance"
	OpReport       = "report"
)

// publishTimeout bounds a single report publish.
const publishTimeout = 5 * time.Second

// Publisher receives every freshly built report.
type Publisher interface {
	PublishReport(ctx context.Context, report domain.Report) error
}

// Calculator runs model operations with metrics, logging and optional
// report publishing around them. It holds no calculation state.
type Calculator struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Calculator. Pass a nil publisher to disable publishing.
func New(publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Calculator {
	return &Calculator{
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// HeatRelease validates the flow and heat content and returns the
// conversion breakdown.
func (c *Calculator) HeatRelease(flowRate, heatContent float64) (domain.HeatReleaseBreakdown, error) {
	start := time.Now()
	in := domain.FlareInputs{FlowRate: flowRate, HeatContent: heatContent, RadFraction: 1}
	err := in.Validate()
	c.observe(OpHeatRelease, start, err)
	if err != nil {
		return domain.HeatReleaseBreakdown{}, err
	}
	return domain.BreakdownHeatRelease(flowRate, heatContent), nil
}

// Flux returns the heat flux at distance for the given inputs.
func (c *Calculator) Flux(in domain.FlareInputs, distance float64) (float64, error) {
	start := time.Now()
	q, err := domain.HeatFlux(in.FlowRate, in.HeatContent, in.RadFraction, distance)
	c.observe(OpFlux, start, err)
	return q, err
}

// SafeDistance returns the rounded distance at which targetFlux is reached.
func (c *Calculator) SafeDistance(heatRelease, radFraction, targetFlux float64) (float64, error) {
	start := time.Now()
	d, err := domain.SafeDistance(heatRelease, radFraction, targetFlux)
	c.observe(OpSafeDistance, start, err)
	return d, err
}

// Report builds the full report for in and hands it to the publisher.
// Publish failures are logged and never fail the calculation.
func (c *Calculator) Report(ctx context.Context, in domain.FlareInputs) (domain.Report, error) {
	report, err := c.Compute(in)
	if err != nil {
		return domain.Report{}, err
	}
	c.Publish(ctx, report)
	return report, nil
}

// Compute builds the full report for in without publishing it.
func (c *Calculator) Compute(in domain.FlareInputs) (domain.Report, error) {
	start := time.Now()
	report, err := domain.BuildReport(in)
	c.observe(OpReport, start, err)
	if err != nil {
		return domain.Report{}, err
	}
	c.logger.Debug("report computed",
		"id", report.ID,
		"heat_release_kw", report.HeatRelease.KW,
		"rad_fraction", in.RadFraction,
	)
	return report, nil
}

// Publish hands report to the publisher, if any. The write outlives a
// cancelled caller context but is bounded by publishTimeout.
func (c *Calculator) Publish(ctx context.Context, report domain.Report) {
	if c.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := c.publisher.PublishReport(ctx, report); err != nil {
		c.metrics.ReportsPublished.WithLabelValues("error").Inc()
		c.logger.Warn("publish report failed", "error", err, "id", report.ID)
		return
	}
	c.metrics.ReportsPublished.WithLabelValues("success").Inc()
}

func (c *Calculator) observe(op string, start time.Time, err error) {
	c.metrics.CalculationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrDomain) {
			c.metrics.DomainErrors.WithLabelValues(op).Inc()
		}
		return
	}
	c.metrics.Calculations.WithLabelValues(op).Inc()
}
