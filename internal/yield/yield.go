// Package yield derives theoretical mass and scrap for a production entry.
package yield

import "github.com/brametal/chapas-backend/internal/cutting"

// Input is everything needed to evaluate one entry. Dimensions are the real,
// measured values in millimetres; the cutting rule is applied by Compute.
type Input struct {
	MassFactor   float64
	RealWidth    int
	RealLength   int
	Quantity     int
	MeasuredMass float64
}

// Result carries the derived quantities plus anomaly flags. The flags are
// informational; scrap is never clamped.
type Result struct {
	CutWidth        int     `json:"cutWidth"`
	CutLength       int     `json:"cutLength"`
	TheoreticalMass float64 `json:"theoreticalMass"`
	Scrap           float64 `json:"scrap"`
	NegativeScrap   bool    `json:"negativeScrap"`
	ZeroFactor      bool    `json:"zeroFactor"`
}

// TheoreticalMass is factor (kg/m²) times cut area (m²) times quantity, unrounded.
func TheoreticalMass(factor float64, cutWidth, cutLength, quantity int) float64 {
	return factor * (float64(cutWidth) / 1000) * (float64(cutLength) / 1000) * float64(quantity)
}

// Scrap is measured minus theoretical mass. Negative values are kept.
func Scrap(measured, theoretical float64) float64 {
	return measured - theoretical
}

// Compute applies the cutting rule and evaluates the entry.
func Compute(rule cutting.Rule, in Input) Result {
	cutWidth := rule.CutInt(in.RealWidth)
	cutLength := rule.CutInt(in.RealLength)
	theoretical := TheoreticalMass(in.MassFactor, cutWidth, cutLength, in.Quantity)
	scrap := Scrap(in.MeasuredMass, theoretical)

	return Result{
		CutWidth:        cutWidth,
		CutLength:       cutLength,
		TheoreticalMass: theoretical,
		Scrap:           scrap,
		NegativeScrap:   scrap < 0,
		ZeroFactor:      in.MassFactor == 0,
	}
}
