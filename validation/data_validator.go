// Package validation provides input and catalog validation for the TPN API.
package validation

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
	"github.com/giygas/tpn-api/interfaces"
	"github.com/giygas/tpn-api/logging"
)

const (
	MinFlowRate = 0.1
	MaxFlowRate = 10.0

	maxInputLength = 50
	maxMixtureKeys = 32
)

// Pre-compiled patterns, reused for all validations
var (
	// Letters of any script (kana, kanji, latin), digits, spaces and the
	// punctuation used in solution names
	inputRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-\.\+%％ー・()（）]+$`)

	// Substring checks are cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// InputError describes one malformed field of a request.
type InputError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InputErrors collects every malformed field of a request.
type InputErrors []InputError

func (e InputErrors) Error() string {
	parts := make([]string, len(e))
	for i, ie := range e {
		parts[i] = ie.Field + ": " + ie.Message
	}
	return strings.Join(parts, "; ")
}

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	catalog interfaces.SolutionCatalog
}

// Compile-time check
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// NewDataValidator creates a validator bound to a catalog
func NewDataValidator(c interfaces.SolutionCatalog) interfaces.DataValidator {
	return &DataValidatorImpl{catalog: c}
}

// ValidateInput validates free-text input such as a solution name
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len([]rune(input)) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters")
	}

	return nil
}

// ResolveMixture maps every raw name onto its canonical catalog name and
// checks the volumes. Zero volumes are kept so the calculator sees what
// the caller sent.
func (v *DataValidatorImpl) ResolveMixture(raw map[string]float64) (calculator.MixtureInput, error) {
	var errs InputErrors

	if len(raw) > maxMixtureKeys {
		return nil, InputErrors{{Field: "volumes", Message: fmt.Sprintf("too many entries: maximum %d", maxMixtureKeys)}}
	}

	mixture := make(calculator.MixtureInput, len(raw))
	seen := make(map[string]string, len(raw))

	for _, input := range slices.Sorted(maps.Keys(raw)) {
		vol := raw[input]
		field := "volumes." + input

		name, ok := v.catalog.Resolve(input)
		if !ok {
			errs = append(errs, InputError{Field: field, Message: "unknown solution"})
			continue
		}
		if prev, dup := seen[name]; dup {
			errs = append(errs, InputError{Field: field, Message: fmt.Sprintf("duplicates %q", prev)})
			continue
		}
		seen[name] = input

		sol, _ := v.catalog.Lookup(name)
		switch {
		case math.IsNaN(vol) || math.IsInf(vol, 0):
			errs = append(errs, InputError{Field: field, Message: "volume must be a finite number"})
			continue
		case vol < 0:
			errs = append(errs, InputError{Field: field, Message: "volume cannot be negative"})
			continue
		case vol > sol.MaxVolumeML:
			errs = append(errs, InputError{Field: field, Message: fmt.Sprintf("volume exceeds %g mL", sol.MaxVolumeML)})
			continue
		}

		mixture[name] = vol
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return mixture, nil
}

// ValidatePatient checks that weight and flow rate are usable numbers.
// Weight only has to be finite: zero and negative weights fall outside the
// clinical range and are reported by the calculator with the other rules.
func (v *DataValidatorImpl) ValidatePatient(patient calculator.PatientContext) error {
	var errs InputErrors

	if math.IsNaN(patient.WeightG) || math.IsInf(patient.WeightG, 0) {
		errs = append(errs, InputError{Field: "weight_g", Message: "weight must be a finite number"})
	}

	flow := patient.FlowRateMLPerHr
	switch {
	case math.IsNaN(flow) || math.IsInf(flow, 0):
		errs = append(errs, InputError{Field: "flow_rate_ml_per_hr", Message: "flow rate must be a finite number"})
	case flow < MinFlowRate || flow > MaxFlowRate:
		errs = append(errs, InputError{Field: "flow_rate_ml_per_hr", Message: fmt.Sprintf("flow rate must be between %g and %g mL/hr", MinFlowRate, MaxFlowRate)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ReportCatalogQuality runs every integrity check on the bound catalog
func (v *DataValidatorImpl) ReportCatalogQuality() *interfaces.CatalogQualityReport {
	return CheckCatalog(v.catalog)
}

// CheckCatalog verifies that every solution has a name, a finite
// non-negative content for all eight substances and a usable maximum
// volume, and that exactly one diluent exists.
func CheckCatalog(c interfaces.SolutionCatalog) *interfaces.CatalogQualityReport {
	report := &interfaces.CatalogQualityReport{SolutionCount: c.Len()}

	if c.Len() == 0 {
		report.Errors = append(report.Errors, "catalog is empty")
		return report
	}

	for _, s := range c.Solutions() {
		if strings.TrimSpace(s.Name) == "" {
			report.Errors = append(report.Errors, "solution with empty name")
		}
		for _, sub := range catalog.Substances() {
			val := s.Content[sub]
			if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: invalid %s content %v", s.Name, sub, val))
			}
		}
		if !(s.MaxVolumeML > 0) {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: invalid max volume %v", s.Name, s.MaxVolumeML))
		}
	}

	d, ok := c.Diluent()
	if !ok {
		report.Errors = append(report.Errors, "catalog has no diluent")
	} else {
		report.DiluentName = d.Name
		report.DiluentHasContent = !d.Content.IsZero()
	}

	if len(report.Errors) > 0 {
		logging.Error("Catalog integrity check failed", "errors", report.Errors)
	}
	if report.DiluentHasContent {
		logging.Warn("Diluent carries non-zero content and is summed into mixture totals",
			"diluent", report.DiluentName)
	}

	return report
}
