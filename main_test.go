package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/giygas/tpn-api/validation"
)

func TestParseVolumes(t *testing.T) {
	tests := []struct {
		name    string
		values   []string
		want    map[string]float64
		wantErr string
	}{
		{"empty", nil, map[string]float64{}, ""},
		{"single", []string{"20%糖液=50"}, map[string]float64{"20%糖液": 50}, ""},
		{"spaces kept in name", []string{"10% NaCl = 1.5"}, map[string]float64{"10% NaCl": 1.5}, ""},
		{"several", []string{"KCl=0.5", "ヘパリン=0.05"}, map[string]float64{"KCl": 0.5, "ヘパリン": 0.05}, ""},
		{"missing separator", []string{"KCl"}, nil, "expected name=mL"},
		{"missing name", []string{"=1"}, nil, "expected name=mL"},
		{"blank name", []string{" =1"}, nil, "empty solution name"},
		{"bad number", []string{"KCl=abc"}, nil, "invalid --volume"},
		{"duplicate", []string{"KCl=1", "KCl=2"}, nil, "duplicate --volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVolumes(tt.values)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for name, ml := range tt.want {
				if got[name] != ml {
					t.Errorf("%s: expected %v, got %v", name, ml, got[name])
				}
			}
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalcCommand(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "1000", "--flow", "6", "--volume", "20%糖液=50", "--lang", "en")
	if err != nil {
		t.Fatalf("Unexpected error: %v\n%s", err, out)
	}

	for _, want := range []string{"Summary", "Weight (kg)", "1.000", "GIR (mg/kg/min)", "20.00", "N/A", "Nitrogen (g/L)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestCalcCommandJapaneseDefault(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "1000", "--flow", "6", "--volume", "20%糖液=50")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, "基本情報") {
		t.Errorf("Expected Japanese section title, got:\n%s", out)
	}
}

func TestCalcCommandRejected(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "1000", "--flow", "6", "--volume", "20%糖液=40", "--lang", "en")
	if !errors.Is(err, errRejected) {
		t.Fatalf("Expected errRejected, got %v", err)
	}
	if !strings.Contains(out, "x Total volume excluding ヘパリン is not 50mL. (current: 40.0mL)") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestCalcCommandJSON(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "1000", "--flow", "6", "--volume", "20%糖液=50", "--json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var body struct {
		CalculationID string         `json:"calculation_id"`
		Report        map[string]any `json:"report"`
		Display       map[string]any `json:"display"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, out)
	}
	if body.CalculationID == "" {
		t.Error("Expected a calculation_id")
	}
	if gir, _ := body.Report["gir_mg_per_kg_per_min"].(float64); gir < 19.999 || gir > 20.001 {
		t.Errorf("Expected GIR 20, got %v", body.Report["gir_mg_per_kg_per_min"])
	}
	if body.Display == nil {
		t.Error("Expected display block in JSON output")
	}
}

func TestCalcCommandRejectedJSON(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "200", "--flow", "6", "--volume", "20%糖液=50", "--json")
	if !errors.Is(err, errRejected) {
		t.Fatalf("Expected errRejected, got %v", err)
	}

	var body struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Rule string `json:"rule"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, out)
	}
	if body.Valid || len(body.Errors) != 1 {
		t.Errorf("Expected one violation, got %+v", body)
	}
}

func TestCalcCommandInputErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing weight", []string{"calc", "--flow", "6"}, "weight"},
		{"unknown solution", []string{"calc", "--weight", "1000", "--flow", "6", "--volume", "30%糖液=50"}, "unknown solution"},
		{"flow out of range", []string{"calc", "--weight", "1000", "--flow", "20", "--volume", "20%糖液=50"}, "flow_rate_ml_per_hr"},
		{"bad language", []string{"calc", "--weight", "1000", "--flow", "6", "--lang", "fr"}, "unsupported language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Expected error containing %q, got %v", tt.want, err)
			}
			if errors.Is(err, errRejected) {
				t.Error("Input errors should not be reported as rule violations")
			}
		})
	}
}

func TestCalcCommandInputErrorsAreTyped(t *testing.T) {
	_, err := execute(t, "calc", "--weight", "1000", "--flow", "0")

	var inputErrs validation.InputErrors
	if !errors.As(err, &inputErrs) {
		t.Fatalf("Expected InputErrors, got %T: %v", err, err)
	}
	if inputErrs[0].Field != "flow_rate_ml_per_hr" {
		t.Errorf("Expected flow_rate_ml_per_hr error, got %v", inputErrs)
	}
}

func TestCalcCommandZeroWeightIsRuleViolation(t *testing.T) {
	out, err := execute(t, "calc", "--weight", "0", "--flow", "6", "--volume", "20%糖液=50", "--lang", "en")
	if !errors.Is(err, errRejected) {
		t.Fatalf("Expected errRejected, got %v", err)
	}
	if !strings.Contains(out, "x Weight is outside 500g-5000g. (current: 0g)") {
		t.Errorf("Unexpected output:\n%s", out)
	}
}

func TestSolutionsCommand(t *testing.T) {
	out, err := execute(t, "solutions", "--lang", "en")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{"Solutions", "KCl", "max 50mL: K, Cl", "ヘパリン"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	out, err = execute(t, "solutions", "--json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var solutions []map[string]any
	if err := json.Unmarshal([]byte(out), &solutions); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(solutions) != 11 {
		t.Errorf("Expected 11 solutions, got %d", len(solutions))
	}
}
