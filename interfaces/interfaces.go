// Package interfaces defines core abstractions for the TPN API
// to improve testability and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
)

// CatalogQualityReport summarises integrity findings for a catalog.
type CatalogQualityReport struct {
	SolutionCount     int
	Errors            []string
	DiluentName       string
	DiluentHasContent bool // the diluent is excluded from the volume sum but still summed into totals
}

// Valid reports whether the catalog passed every integrity check.
func (r *CatalogQualityReport) Valid() bool {
	return r != nil && len(r.Errors) == 0
}

// SolutionCatalog provides read-only access to the solution table.
type SolutionCatalog interface {
	Lookup(name string) (catalog.Solution, bool)
	Resolve(input string) (string, bool)
	Solutions() []catalog.Solution
	Names() []string
	Diluent() (catalog.Solution, bool)
	Len() int
}

// DoseCalculator validates mixtures and derives dose reports.
type DoseCalculator interface {
	ValidateAndCompute(mixture calculator.MixtureInput, patient calculator.PatientContext) (*calculator.DoseReport, calculator.ValidationErrors)
	Validate(mixture calculator.MixtureInput, patient calculator.PatientContext) calculator.ValidationErrors
	BaseVolume(mixture calculator.MixtureInput) float64
}

// DataValidator defines the contract for input and catalog validation.
type DataValidator interface {
	// ValidateInput screens free-text input such as a solution name in a URL
	ValidateInput(input string) error

	// ResolveMixture maps raw names to canonical ones and checks volumes
	ResolveMixture(raw map[string]float64) (calculator.MixtureInput, error)

	// ValidatePatient checks weight and flow rate are usable numbers
	ValidatePatient(patient calculator.PatientContext) error

	// ReportCatalogQuality runs every integrity check on the catalog
	ReportCatalogQuality() *CatalogQualityReport
}

// Scheduler defines the contract for maintenance job scheduling.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ListSolutions(w http.ResponseWriter, r *http.Request)
	GetSolution(w http.ResponseWriter, r *http.Request)
	Calculate(w http.ResponseWriter, r *http.Request)
	Validate(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the status, details and HTTP status code
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// RefreshCatalog re-runs the catalog integrity checks and keeps the
	// result for subsequent health checks
	RefreshCatalog() *CatalogQualityReport

	// StartTime returns when the process started serving
	StartTime() time.Time
}
