// Package calculator turns a TPN mixture, a patient weight and a flow rate
// into per-kilogram daily doses and safety ratios. Everything here is a
// pure function of its inputs: no I/O, no shared mutable state.
package calculator

import (
	"fmt"
	"math"

	"github.com/giygas/tpn-api/catalog"
)

const (
	MinWeightG = 500.0
	MaxWeightG = 5000.0

	// BaseVolumeML is the volume of the base recipe that every mixture
	// must add up to, diluent excluded.
	BaseVolumeML = catalog.BaseVolumeML

	// VolumeTolerance guards the base volume equality against
	// floating-point noise.
	VolumeTolerance = 1e-9

	HoursPerDay = 24.0

	// GlucoseKcalPerGram is the energy yield used for non-protein calories.
	GlucoseKcalPerGram = 3.4

	// PerLiterFactor projects base-recipe totals onto one litre.
	PerLiterFactor = 1000.0 / BaseVolumeML
)

// MixtureInput maps a canonical solution name to its volume in mL.
type MixtureInput map[string]float64

// PatientContext carries the patient-specific scalars.
type PatientContext struct {
	WeightG         float64 `json:"weight_g"`
	FlowRateMLPerHr float64 `json:"flow_rate_ml_per_hr"`
}

// MixtureTotals is the amount of each substance contained in the base
// recipe.
type MixtureTotals = catalog.Amounts

// DoseReport is the derived output of a valid calculation.
type DoseReport struct {
	WeightKg                 float64 `json:"weight_kg"`
	FlowRateMLPerHr          float64 `json:"flow_rate_ml_per_hr"`
	DailyVolumeML            float64 `json:"daily_volume_ml"`
	DailyVolumePerKg         float64 `json:"daily_volume_ml_per_kg"`
	DextroseConcentrationPct float64 `json:"dextrose_concentration_pct"`
	GIR                      float64 `json:"gir_mg_per_kg_per_min"`
	NPCKcal                  float64 `json:"npc_kcal"`
	// NPCNRatio is nil when the mixture carries no nitrogen.
	NPCNRatio   *float64        `json:"npc_n_ratio"`
	Totals      MixtureTotals   `json:"mixture_totals"`
	PerKgPerDay catalog.Amounts `json:"per_kg_per_day"`
	PerLiter    catalog.Amounts `json:"per_liter"`
}

// NPCN returns the NPC/N ratio and whether it is applicable.
func (r *DoseReport) NPCN() (float64, bool) {
	if r.NPCNRatio == nil {
		return 0, false
	}
	return *r.NPCNRatio, true
}

// Calculator validates mixtures and derives dose reports against one
// catalog. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	catalog *catalog.Catalog
}

// New returns a calculator bound to c.
func New(c *catalog.Catalog) *Calculator {
	return &Calculator{catalog: c}
}

var defaultCalculator = New(catalog.Default())

// ValidateAndCompute runs the default calculator.
func ValidateAndCompute(mixture MixtureInput, patient PatientContext) (*DoseReport, ValidationErrors) {
	return defaultCalculator.ValidateAndCompute(mixture, patient)
}

// Catalog returns the catalog the calculator is bound to.
func (c *Calculator) Catalog() *catalog.Catalog {
	return c.catalog
}

// ValidateAndCompute validates the inputs and, when every rule passes,
// derives the dose report. On failure the report is nil and all violated
// rules are returned in rule order.
func (c *Calculator) ValidateAndCompute(mixture MixtureInput, patient PatientContext) (*DoseReport, ValidationErrors) {
	if errs := c.Validate(mixture, patient); len(errs) > 0 {
		return nil, errs
	}
	return c.Compute(mixture, patient), nil
}

// Validate evaluates every rule and collects all failures. Names in the
// mixture must be canonical catalog names; anything else panics.
func (c *Calculator) Validate(mixture MixtureInput, patient PatientContext) ValidationErrors {
	c.checkNames(mixture)

	var errs ValidationErrors

	if !(patient.WeightG >= MinWeightG && patient.WeightG <= MaxWeightG) {
		errs = append(errs, weightError(patient.WeightG))
	}

	sum := c.BaseVolume(mixture)
	if !(math.Abs(sum-BaseVolumeML) < VolumeTolerance) {
		errs = append(errs, volumeSumError(sum, c.diluentName()))
	}

	for _, p := range c.catalog.Containing(catalog.Phosphorus) {
		if mixture[p.Name] <= 0 {
			continue
		}
		for _, ca := range c.catalog.Containing(catalog.Calcium) {
			if ca.Name == p.Name || mixture[ca.Name] <= 0 {
				continue
			}
			errs = append(errs, incompatibleError(p.Name, ca.Name))
		}
	}

	return errs
}

// BaseVolume sums the volumes of every solution except the diluent, in
// catalog order.
func (c *Calculator) BaseVolume(mixture MixtureInput) float64 {
	var sum float64
	for _, s := range c.catalog.Solutions() {
		if s.Diluent {
			continue
		}
		sum += mixture[s.Name]
	}
	return sum
}

// Totals returns the amount of each substance in the mixture. The diluent
// is summed like any other entry; its catalog content is all zero.
func (c *Calculator) Totals(mixture MixtureInput) MixtureTotals {
	var totals MixtureTotals
	for _, s := range c.catalog.Solutions() {
		vol := mixture[s.Name]
		if vol == 0 {
			continue
		}
		totals.AddScaled(s.Content, vol)
	}
	return totals
}

// Compute derives the dose report without validating. Callers must have
// run Validate first; weight must be non-zero.
func (c *Calculator) Compute(mixture MixtureInput, patient PatientContext) *DoseReport {
	c.checkNames(mixture)

	weightKg := patient.WeightG / 1000
	dailyVolume := patient.FlowRateMLPerHr * HoursPerDay
	totals := c.Totals(mixture)

	var perKg catalog.Amounts
	for i := range perKg {
		perKg[i] = (totals[i] / BaseVolumeML) * dailyVolume / weightKg
	}

	glucose := totals[catalog.Glucose]
	dextrosePct := (glucose / BaseVolumeML) * 100
	gir := (patient.FlowRateMLPerHr * dextrosePct * 10) / (weightKg * 60)
	npcKcal := glucose * GlucoseKcalPerGram

	report := &DoseReport{
		WeightKg:                 weightKg,
		FlowRateMLPerHr:          patient.FlowRateMLPerHr,
		DailyVolumeML:            dailyVolume,
		DailyVolumePerKg:         dailyVolume / weightKg,
		DextroseConcentrationPct: dextrosePct,
		GIR:                      gir,
		NPCKcal:                  npcKcal,
		Totals:                   totals,
		PerKgPerDay:              perKg,
		PerLiter:                 totals.Scale(PerLiterFactor),
	}

	if n := totals[catalog.Nitrogen]; n > 0 {
		ratio := npcKcal / n
		report.NPCNRatio = &ratio
	}

	return report
}

func (c *Calculator) checkNames(mixture MixtureInput) {
	for name := range mixture {
		if _, ok := c.catalog.Lookup(name); !ok {
			panic(fmt.Sprintf("calculator: unknown solution %q", name))
		}
	}
}

func (c *Calculator) diluentName() string {
	if d, ok := c.catalog.Diluent(); ok {
		return d.Name
	}
	return "希釈液"
}
