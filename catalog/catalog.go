// Package catalog holds the fixed table of infusion solutions and their
// per-millilitre composition. The table is built once at start-up and is
// read-only afterwards.
package catalog

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Canonical solution names.
const (
	Soldem3AG      = "ソルデム3AG"
	Saline         = "生理食塩水"
	Dextrose20     = "20%糖液"
	Dextrose50     = "50%糖液"
	PreaminP       = "プレアミンP"
	KCl            = "KCl"
	NaCl10         = "10%NaCl"
	SodiumPhos     = "リン酸Na"
	Calticol       = "カルチコール"
	DistilledWater = "蒸留水"
	Heparin        = "ヘパリン"
)

const (
	// BaseVolumeML is the fixed volume of the base recipe.
	BaseVolumeML = 50.0

	defaultMaxVolumeML = 50.0
	heparinMaxVolumeML = 5.0
)

// Solution is one catalog entry.
type Solution struct {
	Name        string  `json:"name"`
	Content     Amounts `json:"content_per_ml"`
	MaxVolumeML float64 `json:"max_volume_ml"`
	// Diluent marks the entry excluded from the base volume sum.
	Diluent bool `json:"diluent"`
}

// Contains reports whether the solution carries a non-zero amount of s.
func (s Solution) Contains(sub Substance) bool {
	return s.Content[sub] > 0
}

// Catalog is an immutable, ordered set of solutions.
type Catalog struct {
	solutions []Solution
	byName    map[string]int
	byFolded  map[string]int
	diluent   int
}

func content(glucose, na, k, cl, aminoAcid, n, p, ca float64) Amounts {
	return Amounts{
		Glucose:    glucose,
		Sodium:     na,
		Potassium:  k,
		Chloride:   cl,
		AminoAcid:  aminoAcid,
		Nitrogen:   n,
		Phosphorus: p,
		Calcium:    ca,
	}
}

// defaultSolutions is the composition table, per mL.
// Units: g for glucose, amino acid and nitrogen; mEq for electrolytes;
// mmol for phosphorus.
func defaultSolutions() []Solution {
	return []Solution{
		{Name: Soldem3AG, Content: content(0.075, 0.035, 0.020, 0.035, 0, 0, 0, 0)},
		{Name: Saline, Content: content(0, 0.154, 0, 0.154, 0, 0, 0, 0)},
		{Name: Dextrose20, Content: content(0.200, 0, 0, 0, 0, 0, 0, 0)},
		{Name: Dextrose50, Content: content(0.500, 0, 0, 0, 0, 0, 0, 0)},
		{Name: PreaminP, Content: content(0, 0.003, 0, 0, 0.076, 0.01175, 0, 0)},
		{Name: KCl, Content: content(0, 0, 1.0, 1.0, 0, 0, 0, 0)},
		{Name: NaCl10, Content: content(0, 1.711, 0, 1.711, 0, 0, 0, 0)},
		// Na 0.75 mEq/mL, P 0.5 mmol/mL
		{Name: SodiumPhos, Content: content(0, 0.75, 0, 0, 0, 0, 0.5, 0)},
		// 8.5% calcium gluconate
		{Name: Calticol, Content: content(0, 0, 0, 0, 0, 0, 0, 0.39)},
		{Name: DistilledWater, Content: content(0, 0, 0, 0, 0, 0, 0, 0)},
		{Name: Heparin, Content: Amounts{}, MaxVolumeML: heparinMaxVolumeML, Diluent: true},
	}
}

var defaultCatalog = mustNew(defaultSolutions())

// Default returns the process-wide catalog.
func Default() *Catalog {
	return defaultCatalog
}

// New builds a catalog from the given solutions. Entries with no
// MaxVolumeML get the base volume as their limit.
func New(solutions []Solution) (*Catalog, error) {
	c := &Catalog{
		solutions: make([]Solution, 0, len(solutions)),
		byName:    make(map[string]int, len(solutions)),
		byFolded:  make(map[string]int, len(solutions)),
		diluent:   -1,
	}

	for _, s := range solutions {
		if s.Name == "" {
			return nil, fmt.Errorf("solution with empty name")
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate solution %q", s.Name)
		}
		folded := Fold(s.Name)
		if other, dup := c.byFolded[folded]; dup {
			return nil, fmt.Errorf("solution %q collides with %q after folding", s.Name, c.solutions[other].Name)
		}
		if s.Diluent {
			if c.diluent >= 0 {
				return nil, fmt.Errorf("more than one diluent: %q and %q", c.solutions[c.diluent].Name, s.Name)
			}
			c.diluent = len(c.solutions)
		}
		if s.MaxVolumeML == 0 {
			s.MaxVolumeML = defaultMaxVolumeML
		}

		c.byName[s.Name] = len(c.solutions)
		c.byFolded[folded] = len(c.solutions)
		c.solutions = append(c.solutions, s)
	}

	return c, nil
}

func mustNew(solutions []Solution) *Catalog {
	c, err := New(solutions)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

// Lookup returns the solution with the exact canonical name.
func (c *Catalog) Lookup(name string) (Solution, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Solution{}, false
	}
	return c.solutions[i], true
}

// MustLookup is Lookup for names known at build time. An unknown name is
// a programming error and panics.
func (c *Catalog) MustLookup(name string) Solution {
	s, ok := c.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("catalog: unknown solution %q", name))
	}
	return s
}

// Resolve maps a user-supplied name to its canonical catalog name.
// Width variants, compatibility characters and whitespace are ignored,
// so "10% NaCl" and "ＫＣｌ" resolve to "10%NaCl" and "KCl".
func (c *Catalog) Resolve(input string) (string, bool) {
	if _, ok := c.byName[input]; ok {
		return input, true
	}
	i, ok := c.byFolded[Fold(input)]
	if !ok {
		return "", false
	}
	return c.solutions[i].Name, true
}

// Solutions returns the entries in catalog order.
func (c *Catalog) Solutions() []Solution {
	out := make([]Solution, len(c.solutions))
	copy(out, c.solutions)
	return out
}

// Names returns the canonical names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.solutions))
	for i, s := range c.solutions {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of solutions.
func (c *Catalog) Len() int {
	return len(c.solutions)
}

// Diluent returns the diluent entry, if the catalog has one.
func (c *Catalog) Diluent() (Solution, bool) {
	if c.diluent < 0 {
		return Solution{}, false
	}
	return c.solutions[c.diluent], true
}

// Containing returns the solutions carrying a non-zero amount of s.
func (c *Catalog) Containing(s Substance) []Solution {
	var out []Solution
	for _, sol := range c.solutions {
		if sol.Contains(s) {
			out = append(out, sol)
		}
	}
	return out
}

// Fold normalises a solution name for tolerant matching: NFKC, lower case,
// no whitespace.
func Fold(name string) string {
	folded := norm.NFKC.String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, folded)
}
