package calculator

import (
	"fmt"
	"strconv"
	"strings"
)

// Rule identifies which validation rule rejected an input.
type Rule string

const (
	RuleWeightRange  Rule = "weight_range"
	RuleVolumeSum    Rule = "volume_sum"
	RuleIncompatible Rule = "phosphate_calcium"
)

// ValidationError describes one violated rule. Value carries the offending
// number (weight in g or volume sum in mL). Solutions names the
// incompatible pair, or the diluent left out of a volume sum.
type ValidationError struct {
	Rule      Rule     `json:"rule"`
	Value     *float64 `json:"value,omitempty"`
	Solutions []string `json:"solutions,omitempty"`
	Message   string   `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

func weightError(weightG float64) ValidationError {
	return ValidationError{
		Rule:    RuleWeightRange,
		Value:   &weightG,
		Message: fmt.Sprintf("体重が%sg~%sgの範囲外です。(現在: %sg)", formatNumber(MinWeightG), formatNumber(MaxWeightG), formatNumber(weightG)),
	}
}

func volumeSumError(sum float64, diluent string) ValidationError {
	return ValidationError{
		Rule:      RuleVolumeSum,
		Value:     &sum,
		Solutions: []string{diluent},
		Message:   fmt.Sprintf("%s以外の合計輸液量が%smLになっていません。(現在: %.1fmL)", diluent, formatNumber(BaseVolumeML), sum),
	}
}

func incompatibleError(phosphate, calcium string) ValidationError {
	return ValidationError{
		Rule:      RuleIncompatible,
		Solutions: []string{phosphate, calcium},
		Message:   fmt.Sprintf("%sと%sは同時に投与できません。どちらかを0にしてください。", phosphate, calcium),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ValidationErrors is the ordered list of violated rules. It is returned
// as a whole so every problem can be shown at once.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the human-readable messages in rule order.
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return msgs
}

// Has reports whether rule r was violated.
func (e ValidationErrors) Has(r Rule) bool {
	for _, v := range e {
		if v.Rule == r {
			return true
		}
	}
	return false
}
