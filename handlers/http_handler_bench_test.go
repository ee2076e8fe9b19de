package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/language"
)

const benchCalculationBody = `{"weight_g": 1200, "flow_rate_ml_per_hr": 4.5,
	"volumes": {"ソルデム3AG": 20, "20%糖液": 15, "プレアミンP": 10, "10%NaCl": 2, "KCl": 1, "リン酸Na": 2, "ヘパリン": 0.5}}`

// BenchmarkCalculate benchmarks POST /v1/calculations
func BenchmarkCalculate(b *testing.B) {
	handler := newTestHandler(language.Japanese)

	b.ResetTimer()
	for b.Loop() {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations", strings.NewReader(benchCalculationBody))
		handler.Calculate(rr, req)
	}
}

// BenchmarkCalculateDisplay benchmarks the formatted view
func BenchmarkCalculateDisplay(b *testing.B) {
	handler := newTestHandler(language.Japanese)

	b.ResetTimer()
	for b.Loop() {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/calculations?view=display", strings.NewReader(benchCalculationBody))
		handler.Calculate(rr, req)
	}
}

// BenchmarkListSolutions benchmarks GET /v1/solutions
func BenchmarkListSolutions(b *testing.B) {
	handler := newTestHandler(language.Japanese)

	b.ResetTimer()
	for b.Loop() {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/solutions", nil)
		handler.ListSolutions(rr, req)
	}
}
