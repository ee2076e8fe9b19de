package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
	"github.com/giygas/tpn-api/interfaces"
	"github.com/giygas/tpn-api/validation"
)

// stubHealth is a fixed-answer health checker
type stubHealth struct {
	status     string
	httpStatus int
}

func (s stubHealth) HealthCheck() (string, map[string]any, int) {
	return s.status, map[string]any{"solutions": 11}, s.httpStatus
}

func (s stubHealth) RefreshCatalog() *interfaces.CatalogQualityReport { return nil }

func (s stubHealth) StartTime() time.Time { return time.Now().Add(-time.Minute) }

func newTestHandler(lang language.Tag) *HTTPHandlerImpl {
	c := catalog.Default()
	return NewHTTPHandler(
		c,
		calculator.New(c),
		validation.NewDataValidator(c),
		stubHealth{status: "healthy", httpStatus: http.StatusOK},
		lang,
	).(*HTTPHandlerImpl)
}

// newTestRouter mounts h the way the server does
func newTestRouter(h interfaces.HTTPHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/solutions", h.ListSolutions)
	r.Get("/v1/solutions/{name}", h.GetSolution)
	r.Post("/v1/calculations", h.Calculate)
	r.Post("/v1/validations", h.Validate)
	r.Get("/health", h.HealthCheck)
	return r
}

func postJSON(t *testing.T, handler http.Handler, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func calculationBody(weight, flow float64, volumes map[string]float64) map[string]any {
	return map[string]any{
		"weight_g":            weight,
		"flow_rate_ml_per_hr": flow,
		"volumes":             volumes,
	}
}

// errorBody mirrors ErrorResponse with typed details
type errorBody[D any] struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details D      `json:"details"`
}
