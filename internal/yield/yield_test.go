package yield

import (
	"testing"

	"github.com/brametal/chapas-backend/internal/cutting"
	"github.com/stretchr/testify/assert"
)

func TestComputeReferenceEntry(t *testing.T) {
	res := Compute(cutting.NewRule(300), Input{
		MassFactor:   7.85,
		RealWidth:    950,
		RealLength:   1220,
		Quantity:     2,
		MeasuredMass: 50.0,
	})

	assert.Equal(t, 900, res.CutWidth)
	assert.Equal(t, 1200, res.CutLength)
	assert.InDelta(t, 16.956, res.TheoreticalMass, 1e-9)
	assert.InDelta(t, 33.044, res.Scrap, 1e-9)
	assert.False(t, res.NegativeScrap)
	assert.False(t, res.ZeroFactor)
}

func TestScrapIsNotClamped(t *testing.T) {
	res := Compute(cutting.NewRule(300), Input{
		MassFactor:   10,
		RealWidth:    1000,
		RealLength:   1000,
		Quantity:     1,
		MeasuredMass: 5,
	})
	assert.InDelta(t, 9.0, res.TheoreticalMass, 1e-9)
	assert.Equal(t, 5-res.TheoreticalMass, res.Scrap)
	assert.True(t, res.NegativeScrap)
}

func TestZeroFactorFlag(t *testing.T) {
	res := Compute(cutting.NewRule(300), Input{RealWidth: 900, RealLength: 900, Quantity: 3, MeasuredMass: 12})
	assert.True(t, res.ZeroFactor)
	assert.Zero(t, res.TheoreticalMass)
	assert.Equal(t, 12.0, res.Scrap)
}

func TestTheoreticalMassIsMonotonic(t *testing.T) {
	base := TheoreticalMass(7.85, 900, 1200, 2)
	assert.GreaterOrEqual(t, TheoreticalMass(7.85, 900, 1200, 3), base)
	assert.GreaterOrEqual(t, TheoreticalMass(7.85, 1200, 1200, 2), base)
	assert.GreaterOrEqual(t, TheoreticalMass(7.85, 900, 1500, 2), base)
	assert.GreaterOrEqual(t, TheoreticalMass(8.0, 900, 1200, 2), base)
	assert.Zero(t, TheoreticalMass(7.85, 0, 1200, 2))
}

func TestScrapExact(t *testing.T) {
	for _, tc := range []struct{ measured, theoretical float64 }{
		{50, 16.956}, {1, 2.5}, {0, 0},
	} {
		assert.Equal(t, tc.measured-tc.theoretical, Scrap(tc.measured, tc.theoretical))
	}
}
