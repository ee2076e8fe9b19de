package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/text/language"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
	"github.com/giygas/tpn-api/interfaces"
	"github.com/giygas/tpn-api/logging"
	"github.com/giygas/tpn-api/metrics"
	"github.com/giygas/tpn-api/report"
	"github.com/giygas/tpn-api/validation"
)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	catalog     interfaces.SolutionCatalog
	calculator  interfaces.DoseCalculator
	validator   interfaces.DataValidator
	health      interfaces.HealthChecker
	defaultLang language.Tag
}

// Compile-time check
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	c interfaces.SolutionCatalog,
	calc interfaces.DoseCalculator,
	validator interfaces.DataValidator,
	health interfaces.HealthChecker,
	defaultLang language.Tag,
) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		catalog:     c,
		calculator:  calc,
		validator:   validator,
		health:      health,
		defaultLang: defaultLang,
	}
}

// CalculationRequest is the body of POST /v1/calculations and
// POST /v1/validations. Pointers distinguish a missing field from zero.
type CalculationRequest struct {
	WeightG         *float64           `json:"weight_g"`
	FlowRateMLPerHr *float64           `json:"flow_rate_ml_per_hr"`
	Volumes         map[string]float64 `json:"volumes"`
}

// CalculationResponse is the body of a successful calculation
type CalculationResponse struct {
	CalculationID string                  `json:"calculation_id"`
	Mixture       calculator.MixtureInput `json:"mixture"`
	Report        *calculator.DoseReport  `json:"report"`
	Display       *report.Display         `json:"display,omitempty"`
}

// ValidationResponse is the body of POST /v1/validations
type ValidationResponse struct {
	Valid        bool                        `json:"valid"`
	BaseVolumeML float64                     `json:"base_volume_ml"`
	Errors       calculator.ValidationErrors `json:"errors"`
}

// SolutionResponse describes one catalog entry
type SolutionResponse struct {
	catalog.Solution
	Substances []string `json:"substances"`
}

// SolutionListResponse is the body of GET /v1/solutions
type SolutionListResponse struct {
	BaseVolumeML float64            `json:"base_volume_ml"`
	Count        int                `json:"count"`
	Solutions    []SolutionResponse `json:"solutions"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
}

func newSolutionResponse(s catalog.Solution) SolutionResponse {
	contained := lo.Filter(catalog.Substances(), func(sub catalog.Substance, _ int) bool {
		return s.Contains(sub)
	})
	return SolutionResponse{
		Solution:   s,
		Substances: lo.Map(contained, func(sub catalog.Substance, _ int) string { return sub.Key() }),
	}
}

// ListSolutions returns the catalog in display order
func (h *HTTPHandlerImpl) ListSolutions(w http.ResponseWriter, r *http.Request) {
	solutions := lo.Map(h.catalog.Solutions(), func(s catalog.Solution, _ int) SolutionResponse {
		return newSolutionResponse(s)
	})

	RespondWithJSON(w, r, http.StatusOK, SolutionListResponse{
		BaseVolumeML: catalog.BaseVolumeML,
		Count:        len(solutions),
		Solutions:    solutions,
	})
}

// GetSolution returns one solution. The name is matched exactly first,
// then after width and case folding.
func (h *HTTPHandlerImpl) GetSolution(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	if err := h.validator.ValidateInput(name); err != nil {
		logging.Warn("Unusual user input", "name", name, "error", err)
		RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	canonical, ok := h.catalog.Resolve(name)
	if !ok {
		RespondWithError(w, r, http.StatusNotFound, fmt.Sprintf("solution %q not found", name))
		return
	}

	s, _ := h.catalog.Lookup(canonical)
	RespondWithJSON(w, r, http.StatusOK, newSolutionResponse(s))
}

// Calculate validates a mixture and returns the dose report. Malformed
// input is a 400; a mixture breaking a clinical rule is a 422 listing
// every violated rule.
func (h *HTTPHandlerImpl) Calculate(w http.ResponseWriter, r *http.Request) {
	lang := h.language(w, r)

	mixture, patient, ok := h.decodeCalculation(w, r)
	if !ok {
		metrics.RecordInvalidInput()
		return
	}

	result, errs := h.calculator.ValidateAndCompute(mixture, patient)
	if len(errs) > 0 {
		metrics.RecordRejection(lo.Map(errs, func(e calculator.ValidationError, _ int) string {
			return string(e.Rule)
		})...)
		logging.Info("Calculation rejected", "rules", len(errs), "weight_g", patient.WeightG)

		localized := report.LocalizeErrors(errs, lang)
		RespondWithErrorDetails(w, r, http.StatusUnprocessableEntity, localized.Error(), localized)
		return
	}

	id := uuid.NewString()
	metrics.RecordCalculation(result.GIR)
	logging.Info("Calculation completed",
		"calculation_id", id,
		"weight_g", patient.WeightG,
		"flow_rate_ml_per_hr", patient.FlowRateMLPerHr,
		"gir", result.GIR,
	)

	resp := CalculationResponse{
		CalculationID: id,
		Mixture:       mixture,
		Report:        result,
	}
	if r.URL.Query().Get("view") == "display" {
		display := report.Format(result, lang)
		resp.Display = &display
	}

	RespondWithJSON(w, r, http.StatusOK, resp)
}

// Validate runs the clinical rules without computing doses
func (h *HTTPHandlerImpl) Validate(w http.ResponseWriter, r *http.Request) {
	lang := h.language(w, r)

	mixture, patient, ok := h.decodeCalculation(w, r)
	if !ok {
		return
	}

	errs := report.LocalizeErrors(h.calculator.Validate(mixture, patient), lang)
	if errs == nil {
		errs = calculator.ValidationErrors{}
	}

	RespondWithJSON(w, r, http.StatusOK, ValidationResponse{
		Valid:        len(errs) == 0,
		BaseVolumeML: h.calculator.BaseVolume(mixture),
		Errors:       errs,
	})
}

// HealthCheck returns service health
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := h.health.HealthCheck()

	RespondWithJSON(w, r, httpStatus, HealthResponse{
		Status:        status,
		UptimeSeconds: time.Since(h.health.StartTime()).Seconds(),
		Data:          details,
	})
}

// decodeCalculation parses and shape-checks a calculation request. On
// failure it has already written the error response.
func (h *HTTPHandlerImpl) decodeCalculation(w http.ResponseWriter, r *http.Request) (calculator.MixtureInput, calculator.PatientContext, bool) {
	var req CalculationRequest
	var patient calculator.PatientContext

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			RespondWithError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, patient, false
		}
		RespondWithError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, patient, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		RespondWithError(w, r, http.StatusBadRequest, "invalid JSON body: trailing data")
		return nil, patient, false
	}

	var missing validation.InputErrors
	if req.WeightG == nil {
		missing = append(missing, validation.InputError{Field: "weight_g", Message: "is required"})
	}
	if req.FlowRateMLPerHr == nil {
		missing = append(missing, validation.InputError{Field: "flow_rate_ml_per_hr", Message: "is required"})
	}
	if req.Volumes == nil {
		missing = append(missing, validation.InputError{Field: "volumes", Message: "is required"})
	}
	if len(missing) > 0 {
		RespondWithErrorDetails(w, r, http.StatusBadRequest, missing.Error(), missing)
		return nil, patient, false
	}

	patient = calculator.PatientContext{WeightG: *req.WeightG, FlowRateMLPerHr: *req.FlowRateMLPerHr}

	var inputErrs validation.InputErrors
	if err := h.validator.ValidatePatient(patient); err != nil {
		inputErrs = append(inputErrs, asInputErrors(err)...)
	}
	mixture, err := h.validator.ResolveMixture(req.Volumes)
	if err != nil {
		inputErrs = append(inputErrs, asInputErrors(err)...)
	}
	if len(inputErrs) > 0 {
		logging.Warn("Rejected calculation input", "errors", inputErrs.Error())
		RespondWithErrorDetails(w, r, http.StatusBadRequest, inputErrs.Error(), inputErrs)
		return nil, patient, false
	}

	return mixture, patient, true
}

func asInputErrors(err error) validation.InputErrors {
	var inputErrs validation.InputErrors
	if errors.As(err, &inputErrs) {
		return inputErrs
	}
	return validation.InputErrors{{Field: "request", Message: err.Error()}}
}

// language picks the response language and advertises it
func (h *HTTPHandlerImpl) language(w http.ResponseWriter, r *http.Request) language.Tag {
	tag := report.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), h.defaultLang)
	w.Header().Set("Content-Language", tag.String())
	return tag
}
