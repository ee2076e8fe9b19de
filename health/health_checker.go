// Package health reports service health from catalog integrity.
package health

import (
	"net/http"
	"sync"
	"time"

	"github.com/giygas/tpn-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	validator interfaces.DataValidator
	startTime time.Time
	now       func() time.Time

	mu          sync.RWMutex
	lastReport  *interfaces.CatalogQualityReport
	lastChecked time.Time
}

// NewHealthChecker creates a health checker and runs the first catalog check
func NewHealthChecker(validator interfaces.DataValidator) interfaces.HealthChecker {
	h := &HealthCheckerImpl{
		validator: validator,
		startTime: time.Now(),
		now:       time.Now,
	}
	h.RefreshCatalog()
	return h
}

// RefreshCatalog re-runs the integrity checks and stores the result
func (h *HealthCheckerImpl) RefreshCatalog() *interfaces.CatalogQualityReport {
	report := h.validator.ReportCatalogQuality()

	h.mu.Lock()
	h.lastReport = report
	h.lastChecked = h.now()
	h.mu.Unlock()

	return report
}

// StartTime returns when the checker was created
func (h *HealthCheckerImpl) StartTime() time.Time {
	return h.startTime
}

// HealthCheck derives status from the last catalog check:
//   - integrity errors: unhealthy, 503
//   - diluent carrying content: degraded, 200
//   - otherwise healthy, 200
func (h *HealthCheckerImpl) HealthCheck() (status string, details map[string]any, httpStatus int) {
	h.mu.RLock()
	report := h.lastReport
	checked := h.lastChecked
	h.mu.RUnlock()

	switch {
	case !report.Valid():
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case report.DiluentHasContent:
		status = "degraded"
		httpStatus = http.StatusOK
	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	details = map[string]any{
		"last_catalog_check": checked.Format(time.RFC3339),
	}
	if report != nil {
		details["solutions"] = report.SolutionCount
		details["diluent"] = report.DiluentName
		if len(report.Errors) > 0 {
			details["catalog_errors"] = report.Errors
		}
	}

	return status, details, httpStatus
}
