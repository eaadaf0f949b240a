// Package cutting applies the shop-floor cutting rule: sheets are only cut in
// multiples of a fixed step, so real dimensions round down to that step.
package cutting

import (
	"math"
	"strconv"
	"strings"
)

// DefaultStepMM is the step used by every line in the plant.
const DefaultStepMM = 300

// Rule rounds dimensions down to the nearest multiple of StepMM.
type Rule struct {
	StepMM int
}

// NewRule builds a rule, falling back to DefaultStepMM for non-positive steps.
func NewRule(stepMM int) Rule {
	if stepMM <= 0 {
		stepMM = DefaultStepMM
	}
	return Rule{StepMM: stepMM}
}

func (r Rule) step() int {
	if r.StepMM <= 0 {
		return DefaultStepMM
	}
	return r.StepMM
}

// Cut truncates mm to an integer and floors it to the step. Negative, NaN and
// infinite input yields 0.
func (r Rule) Cut(mm float64) int {
	if math.IsNaN(mm) || math.IsInf(mm, 0) || mm < 0 {
		return 0
	}
	if mm >= math.MaxInt32 {
		mm = math.MaxInt32
	}
	whole := int(mm)
	step := r.step()
	return (whole / step) * step
}

// CutInt is Cut for integer millimetres.
func (r Rule) CutInt(mm int) int {
	if mm < 0 {
		return 0
	}
	step := r.step()
	return (mm / step) * step
}

// CutString parses operator text such as "950", "950.7" or "950,7". Anything
// that is not a number yields 0.
func (r Rule) CutString(raw string) int {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	value = strings.Replace(value, ",", ".", 1)
	mm, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return r.Cut(mm)
}
