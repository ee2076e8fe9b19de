package report

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
)

// NotApplicable is shown for a ratio that has no meaningful value.
const NotApplicable = "N/A"

// Row is one labelled, rounded value.
type Row struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Section is a titled group of rows.
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

// Display is a dose report formatted for reading.
type Display struct {
	Language string    `json:"language"`
	Sections []Section `json:"sections"`
}

// substance order of the per-kg table; the per-litre table appends nitrogen
var doseOrder = []catalog.Substance{
	catalog.Glucose,
	catalog.AminoAcid,
	catalog.Sodium,
	catalog.Potassium,
	catalog.Chloride,
	catalog.Phosphorus,
	catalog.Calcium,
}

// Format rounds and labels r in tag's language:
//   - weight 3 places, fluid and dextrose 1 place, GIR 2 places
//   - NPC/N whole number, or N/A when there is no nitrogen or no calories
//   - per-kg doses 2 places, per-litre concentrations 1 place
func Format(r *calculator.DoseReport, tag language.Tag) Display {
	p := printer(tag)

	npcn := NotApplicable
	if ratio, ok := r.NPCN(); ok && ratio > 0 {
		npcn = Fixed(ratio, 0)
	}

	summary := Section{
		Key:   "summary",
		Title: p.Sprintf(msgSummary),
		Rows: []Row{
			{Key: "weight_kg", Label: p.Sprintf(msgWeight), Value: Fixed(r.WeightKg, 3)},
			{Key: "daily_volume_ml_per_kg", Label: p.Sprintf(msgFluid), Value: Fixed(r.DailyVolumePerKg, 1)},
			{Key: "dextrose_concentration_pct", Label: p.Sprintf(msgDextrose), Value: Fixed(r.DextroseConcentrationPct, 1)},
			{Key: "gir_mg_per_kg_per_min", Label: p.Sprintf(msgGIR), Value: Fixed(r.GIR, 2)},
			{Key: "npc_n_ratio", Label: p.Sprintf(msgNPCN), Value: npcn},
		},
	}

	perKg := Section{Key: "per_kg_per_day", Title: p.Sprintf(msgPerKg)}
	for _, sub := range doseOrder {
		perKg.Rows = append(perKg.Rows, Row{
			Key:   sub.Key(),
			Label: p.Sprintf(msgPerKgRow, substanceName(p, sub), sub.Unit()),
			Value: Fixed(r.PerKgPerDay.Get(sub), 2),
		})
	}

	perLiter := Section{Key: "per_liter", Title: p.Sprintf(msgPerLiter)}
	for _, sub := range append(doseOrder[:len(doseOrder):len(doseOrder)], catalog.Nitrogen) {
		perLiter.Rows = append(perLiter.Rows, Row{
			Key:   sub.Key(),
			Label: p.Sprintf(msgPerLiterRow, substanceName(p, sub), sub.Unit()),
			Value: Fixed(r.PerLiter.Get(sub), 1),
		})
	}

	return Display{
		Language: tag.String(),
		Sections: []Section{summary, perKg, perLiter},
	}
}

// FormatCatalog lists solutions with their volume limit and the
// substances they carry.
func FormatCatalog(solutions []catalog.Solution, tag language.Tag) Display {
	p := printer(tag)

	section := Section{Key: "solutions", Title: p.Sprintf(msgCatalog)}
	for _, s := range solutions {
		value := p.Sprintf(msgDiluentRow, plain(s.MaxVolumeML))
		if !s.Diluent {
			var names []string
			for _, sub := range catalog.Substances() {
				if s.Contains(sub) {
					names = append(names, substanceName(p, sub))
				}
			}
			value = p.Sprintf(msgSolutionRow, plain(s.MaxVolumeML), strings.Join(names, ", "))
		}
		section.Rows = append(section.Rows, Row{Key: s.Name, Label: s.Name, Value: value})
	}

	return Display{Language: tag.String(), Sections: []Section{section}}
}

// Fixed rounds v half away from zero to places decimals. Non-finite
// values render as N/A.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotApplicable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}
