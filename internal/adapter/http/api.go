package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/couchcryptid/flare-heat-flux/internal/domain"
	"github.com/couchcryptid/flare-heat-flux/internal/session"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// flareParams are the form inputs as the browser sends them: the radiation
// fraction is a percentage.
type flareParams struct {
	FlowRate       float64 `json:"flow_rate" validate:"gt=0"`
	HeatContent    float64 `json:"heat_content" validate:"gt=0"`
	RadFractionPct float64 `json:"rad_fraction_pct" validate:"gt=0,lte=100"`
}

func (p flareParams) inputs() (domain.FlareInputs, error) {
	frac, err := domain.PercentToFraction("rad_fraction_pct", p.RadFractionPct)
	if err != nil {
		return domain.FlareInputs{}, err
	}
	return domain.FlareInputs{FlowRate: p.FlowRate, HeatContent: p.HeatContent, RadFraction: frac}, nil
}

type heatReleaseParams struct {
	FlowRate    float64 `json:"flow_rate" validate:"gt=0"`
	HeatContent float64 `json:"heat_content" validate:"gt=0"`
}

type fluxParams struct {
	flareParams
	Distance float64 `json:"distance" validate:"gt=0"`
}

type safeDistanceParams struct {
	HeatRelease    float64 `json:"heat_release" validate:"gte=0"`
	RadFractionPct float64 `json:"rad_fraction_pct" validate:"gt=0,lte=100"`
	TargetFlux     float64 `json:"target_flux" validate:"gt=0"`
}

type editRequest struct {
	Field string `json:"field" validate:"required,oneof=flowRate heatContent radFractionPct"`
	Value string `json:"value"`
}

type editResponse struct {
	Accepted bool          `json:"accepted"`
	Error    string        `json:"error,omitempty"`
	Report   domain.Report `json:"report"`
}

type sessionResponse struct {
	ID     string        `json:"id"`
	Report domain.Report `json:"report"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) handleThresholds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": domain.Thresholds()})
}

func (s *Server) handleHeatRelease(w http.ResponseWriter, r *http.Request) {
	var p heatReleaseParams
	if err := s.bindQuery(r, &p, "flow_rate", "heat_content"); err != nil {
		s.writeError(w, err)
		return
	}
	b, err := s.calc.HeatRelease(p.FlowRate, p.HeatContent)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"flow_rate":    p.FlowRate,
		"heat_content": p.HeatContent,
		"heat_release": b,
	})
}

func (s *Server) handleFlux(w http.ResponseWriter, r *http.Request) {
	var p fluxParams
	if err := s.bindQuery(r, &p, "flow_rate", "heat_content", "rad_fraction_pct", "distance"); err != nil {
		s.writeError(w, err)
		return
	}
	in, err := p.inputs()
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.calc.Flux(in, p.Distance)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"inputs":    in,
		"distance":  p.Distance,
		"heat_flux": q,
	})
}

func (s *Server) handleSafeDistance(w http.ResponseWriter, r *http.Request) {
	var p safeDistanceParams
	if err := s.bindQuery(r, &p, "heat_release", "rad_fraction_pct", "target_flux"); err != nil {
		s.writeError(w, err)
		return
	}
	frac, err := domain.PercentToFraction("rad_fraction_pct", p.RadFractionPct)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.calc.SafeDistance(p.HeatRelease, frac, p.TargetFlux)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"heat_release": p.HeatRelease,
		"rad_fraction": frac,
		"target_flux":  p.TargetFlux,
		"distance":     d,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var p flareParams
	if err := s.bindJSON(w, r, &p); err != nil {
		s.writeError(w, err)
		return
	}
	in, err := p.inputs()
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := s.calc.Report(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := sess.Report(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("session created", "id", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Report: report})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	report, err := sess.Report(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, Report: report})
}

func (s *Server) handleEditSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req editRequest
	if err := s.bindJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := applyEdit(r.Context(), sess, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// applyEdit applies one field edit and returns the report for whatever
// inputs are current afterwards. A rejected edit is not an error: the
// prior value stays and the response says so.
func applyEdit(ctx context.Context, sess *session.Session, req editRequest) (editResponse, error) {
	accepted, applyErr := sess.Apply(session.Field(req.Field), req.Value)
	if applyErr != nil && !errors.Is(applyErr, domain.ErrInvalidInput) {
		return editResponse{}, applyErr
	}
	report, err := sess.Report(ctx)
	if err != nil {
		return editResponse{}, err
	}
	resp := editResponse{Accepted: accepted, Report: report}
	if applyErr != nil {
		resp.Error = applyErr.Error()
	}
	return resp, nil
}

// bindQuery decodes the named float query parameters into dst by JSON tag
// and validates it.
func (s *Server) bindQuery(r *http.Request, dst any, names ...string) error {
	q := r.URL.Query()
	fields := make(map[string]float64, len(names))
	for _, name := range names {
		raw := q.Get(name)
		if raw == "" {
			return fmt.Errorf("%w: missing query parameter %q", errBadRequest, name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: query parameter %q is not a number", errBadRequest, name)
		}
		fields[name] = v
	}
	// Round-trip through JSON so embedded structs and tags are honoured.
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

func (s *Server) bindJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": describeError(err)})
}

func describeError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return describeValidation(verrs)
	}
	return err.Error()
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, session.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
