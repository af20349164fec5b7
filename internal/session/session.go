package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/couchcryptid/flare-heat-flux/internal/observability"
)

// Field names a form input of the calculator.
type Field string

const (
	FieldFlowRate       Field = "flowRate"
	FieldHeatContent    Field = "heatContent"
	FieldRadFractionPct Field = "radFractionPct"
)

// ErrUnknownField is returned by Apply for a field it does not recognize.
var ErrUnknownField = errors.New("unknown field")

// Session is one interactive calculator: the current inputs plus the report
// memoized for exactly those inputs. Edits are serialized, so the last
// accepted edit wins.
type Session struct {
	ID string

	calc    *calculator.Calculator
	metrics *observability.Metrics

	mu     sync.Mutex
	inputs domain.FlareInputs
	memo   *domain.Report
}

func newSession(id string, calc *calculator.Calculator, metrics *observability.Metrics) *Session {
	return &Session{
		ID:      id,
		calc:    calc,
		metrics: metrics,
		inputs:  domain.DefaultInputs(),
	}
}

// Inputs returns a snapshot of the current inputs.
func (s *Session) Inputs() domain.FlareInputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

// Apply parses raw for field and, if the resulting input set is valid, makes
// it current. Invalid text, or a value that makes the set invalid as a whole,
// leaves the previous value in place and returns accepted=false with the
// error.
func (s *Session) Apply(field Field, raw string) (bool, error) {
	var (
		v   float64
		err error
	)
	switch field {
	case FieldFlowRate, FieldHeatContent:
		v, err = domain.ParsePositive(string(field), raw)
	case FieldRadFractionPct:
		v, err = domain.ParsePercentFraction(string(field), raw)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if err != nil {
		s.metrics.InputRejections.WithLabelValues(string(field)).Inc()
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.inputs
	switch field {
	case FieldFlowRate:
		next.FlowRate = v
	case FieldHeatContent:
		next.HeatContent = v
	case FieldRadFractionPct:
		next.RadFraction = v
	}
	if err := next.Validate(); err != nil {
		s.metrics.InputRejections.WithLabelValues(string(field)).Inc()
		return false, err
	}
	s.inputs = next
	return true, nil
}

// Report returns the report for the current inputs, recomputing only when
// they changed since the last call. A fresh report is published after the
// lock is released.
func (s *Session) Report(ctx context.Context) (domain.Report, error) {
	s.mu.Lock()
	if s.memo != nil && s.memo.Inputs == s.inputs {
		r := *s.memo
		s.mu.Unlock()
		s.metrics.ReportCache.WithLabelValues("hit").Inc()
		return r, nil
	}
	s.metrics.ReportCache.WithLabelValues("miss").Inc()

	r, err := s.calc.Compute(s.inputs)
	if err != nil {
		s.mu.Unlock()
		return domain.Report{}, err
	}
	s.memo = &r
	s.mu.Unlock()

	s.calc.Publish(ctx, r)
	return r, nil
}
