package report

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
)

// message keys
const (
	msgWeightRange  = "weight_range"
	msgVolumeSum    = "volume_sum"
	msgIncompatible = "phosphate_calcium"

	msgSummary  = "section.summary"
	msgPerKg    = "section.per_kg_per_day"
	msgPerLiter = "section.per_liter"
	msgCatalog  = "section.solutions"

	msgWeight      = "row.weight_kg"
	msgFluid       = "row.daily_volume_per_kg"
	msgDextrose    = "row.dextrose"
	msgGIR         = "row.gir"
	msgNPCN        = "row.npc_n"
	msgPerKgRow    = "row.per_kg"
	msgPerLiterRow = "row.per_liter"
	msgSolutionRow = "row.solution"
	msgDiluentRow  = "row.diluent"

	msgGlucose   = "substance.glucose"
	msgAminoAcid = "substance.amino_acid"
	msgNitrogen  = "substance.n"
)

var translations = map[language.Tag]map[string]string{
	language.Japanese: {
		msgWeightRange:  "体重が%sg~%sgの範囲外です。(現在: %sg)",
		msgVolumeSum:    "%s以外の合計輸液量が%smLになっていません。(現在: %smL)",
		msgIncompatible: "%sと%sは同時に投与できません。どちらかを0にしてください。",

		msgSummary:  "基本情報",
		msgPerKg:    "1日あたり投与量 (/kg/day)",
		msgPerLiter: "参考: 混合液の濃度 (/Lあたり)",
		msgCatalog:  "輸液一覧",

		msgWeight:      "体重 (kg)",
		msgFluid:       "1日あたり総水分量 (mL/kg/day)",
		msgDextrose:    "輸液糖濃度 (%%)",
		msgGIR:         "GIR (mg/kg/min)",
		msgNPCN:        "NPC/N比",
		msgPerKgRow:    "%s (%s)",
		msgPerLiterRow: "%s (%s/L)",
		msgSolutionRow: "上限%smL: %s",
		msgDiluentRow:  "上限%smL: 希釈用 (合計量に含めない)",

		msgGlucose:   "ブドウ糖",
		msgAminoAcid: "アミノ酸",
		msgNitrogen:  "窒素",
	},
	language.English: {
		msgWeightRange:  "Weight is outside %sg-%sg. (current: %sg)",
		msgVolumeSum:    "Total volume excluding %s is not %smL. (current: %smL)",
		msgIncompatible: "%s and %s cannot be given together. Set one of them to 0.",

		msgSummary:  "Summary",
		msgPerKg:    "Daily dose (/kg/day)",
		msgPerLiter: "Reference: mixture concentration (per L)",
		msgCatalog:  "Solutions",

		msgWeight:      "Weight (kg)",
		msgFluid:       "Total fluid (mL/kg/day)",
		msgDextrose:    "Dextrose concentration (%%)",
		msgGIR:         "GIR (mg/kg/min)",
		msgNPCN:        "NPC/N ratio",
		msgPerKgRow:    "%s (%s)",
		msgPerLiterRow: "%s (%s/L)",
		msgSolutionRow: "max %smL: %s",
		msgDiluentRow:  "max %smL: diluent (excluded from the total)",

		msgGlucose:   "Glucose",
		msgAminoAcid: "Amino acids",
		msgNitrogen:  "Nitrogen",
	},
}

func init() {
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
}

// printer returns a printer for tag, falling back to Japanese for tags
// without translations.
func printer(tag language.Tag) *message.Printer {
	if _, ok := translations[tag]; !ok {
		tag = language.Japanese
	}
	return message.NewPrinter(tag)
}

// substanceName returns the display name of sub. Electrolytes keep their
// chemical symbol in every language.
func substanceName(p *message.Printer, sub catalog.Substance) string {
	switch sub {
	case catalog.Glucose:
		return p.Sprintf(msgGlucose)
	case catalog.AminoAcid:
		return p.Sprintf(msgAminoAcid)
	case catalog.Nitrogen:
		return p.Sprintf(msgNitrogen)
	case catalog.Sodium:
		return "Na"
	case catalog.Potassium:
		return "K"
	case catalog.Chloride:
		return "Cl"
	case catalog.Phosphorus:
		return "P"
	case catalog.Calcium:
		return "Ca"
	}
	return sub.Key()
}

// LocalizeErrors returns a copy of errs with messages in tag's language.
// Numbers are pre-formatted so the printer does not regroup digits.
func LocalizeErrors(errs calculator.ValidationErrors, tag language.Tag) calculator.ValidationErrors {
	if len(errs) == 0 {
		return errs
	}

	p := printer(tag)
	out := make(calculator.ValidationErrors, len(errs))
	for i, e := range errs {
		out[i] = e
		switch e.Rule {
		case calculator.RuleWeightRange:
			if e.Value != nil {
				out[i].Message = p.Sprintf(msgWeightRange,
					plain(calculator.MinWeightG), plain(calculator.MaxWeightG), plain(*e.Value))
			}
		case calculator.RuleVolumeSum:
			if e.Value != nil && len(e.Solutions) == 1 {
				out[i].Message = p.Sprintf(msgVolumeSum,
					e.Solutions[0], plain(calculator.BaseVolumeML), strconv.FormatFloat(*e.Value, 'f', 1, 64))
			}
		case calculator.RuleIncompatible:
			if len(e.Solutions) == 2 {
				out[i].Message = p.Sprintf(msgIncompatible, e.Solutions[0], e.Solutions[1])
			}
		}
	}
	return out
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
