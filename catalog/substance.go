package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Substance identifies one of the eight tracked nutrients or electrolytes.
type Substance int

const (
	Glucose Substance = iota
	Sodium
	Potassium
	Chloride
	AminoAcid
	Nitrogen
	Phosphorus
	Calcium

	NumSubstances = 8
)

var substanceKeys = [NumSubstances]string{
	Glucose:    "glucose",
	Sodium:     "na",
	Potassium:  "k",
	Chloride:   "cl",
	AminoAcid:  "amino_acid",
	Nitrogen:   "n",
	Phosphorus: "p",
	Calcium:    "ca",
}

var substanceUnits = [NumSubstances]string{
	Glucose:    "g",
	Sodium:     "mEq",
	Potassium:  "mEq",
	Chloride:   "mEq",
	AminoAcid:  "g",
	Nitrogen:   "g",
	Phosphorus: "mmol",
	Calcium:    "mEq",
}

// Substances returns all substances in display order.
func Substances() []Substance {
	return []Substance{Glucose, Sodium, Potassium, Chloride, AminoAcid, Nitrogen, Phosphorus, Calcium}
}

// Key returns the stable JSON key of the substance.
func (s Substance) Key() string {
	if s < 0 || s >= NumSubstances {
		return "unknown"
	}
	return substanceKeys[s]
}

// Unit returns the amount unit (g, mEq or mmol).
func (s Substance) Unit() string {
	if s < 0 || s >= NumSubstances {
		return ""
	}
	return substanceUnits[s]
}

func (s Substance) String() string {
	return s.Key()
}

// SubstanceByKey looks a substance up by its JSON key.
func SubstanceByKey(key string) (Substance, bool) {
	for i, k := range substanceKeys {
		if k == key {
			return Substance(i), true
		}
	}
	return 0, false
}

// Amounts holds one value per substance. Depending on context it is a
// per-mL content, a mixture total, a per-kg daily dose or a per-litre
// concentration.
type Amounts [NumSubstances]float64

// Get returns the value for s.
func (a Amounts) Get(s Substance) float64 {
	return a[s]
}

// Scale returns a copy with every value multiplied by f.
func (a Amounts) Scale(f float64) Amounts {
	var out Amounts
	for i, v := range a {
		out[i] = v * f
	}
	return out
}

// AddScaled adds b*f to a in place.
func (a *Amounts) AddScaled(b Amounts, f float64) {
	for i, v := range b {
		a[i] += v * f
	}
}

// IsZero reports whether every value is exactly zero.
func (a Amounts) IsZero() bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// Map returns the values keyed by substance key.
func (a Amounts) Map() map[string]float64 {
	m := make(map[string]float64, NumSubstances)
	for i, v := range a {
		m[substanceKeys[i]] = v
	}
	return m
}

// MarshalJSON encodes the amounts as an object in substance order so
// responses stay stable across runs.
func (a Amounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(substanceKeys[i]))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the keyed object written by MarshalJSON. Missing
// keys are zero; unknown keys are an error.
func (a *Amounts) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var out Amounts
	for key, v := range m {
		sub, ok := SubstanceByKey(key)
		if !ok {
			return fmt.Errorf("unknown substance %q", key)
		}
		out[sub] = v
	}
	*a = out
	return nil
}
