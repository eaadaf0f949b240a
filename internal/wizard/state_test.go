package wizard

import (
	"math"
	"testing"
	"time"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/internal/cutting"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chapaX = catalog.Product{Code: 12345, Description: "Chapa X", MassFactor: 7.85}

func walk(t *testing.T) State {
	t.Helper()
	s, err := Start("st-1", chapaX, time.Now())
	require.NoError(t, err)
	s, err = s.WithReservation("R-001", nil)
	require.NoError(t, err)
	s, err = s.WithQuantity(2)
	require.NoError(t, err)
	s, err = s.WithMeasuredMass(50)
	require.NoError(t, err)
	s, err = s.WithWidth(950)
	require.NoError(t, err)
	s, err = s.WithLength(1220)
	require.NoError(t, err)
	return s
}

func TestFullWalk(t *testing.T) {
	s := walk(t)
	assert.True(t, s.Ready())
	require.NoError(t, s.CheckReady())

	res := s.Compute(cutting.NewRule(300))
	assert.Equal(t, 900, res.CutWidth)
	assert.Equal(t, 1200, res.CutLength)
	assert.InDelta(t, 16.956, res.TheoreticalMass, 1e-9)
	assert.InDelta(t, 33.044, res.Scrap, 1e-9)
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	s, err := Start("st-1", chapaX, time.Now())
	require.NoError(t, err)
	next, err := s.WithReservation("R-9", nil)
	require.NoError(t, err)

	assert.Equal(t, StepReservation, s.Step)
	assert.Empty(t, s.ReservationID)
	assert.Equal(t, StepQuantity, next.Step)
	assert.Equal(t, "R-9", next.ReservationID)
}

func TestStepsMustFollowOrder(t *testing.T) {
	s, err := Start("st-1", chapaX, time.Now())
	require.NoError(t, err)

	_, err = s.WithQuantity(2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = s.WithLength(1000)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.True(t, pkgerrors.IsCode(s.CheckReady(), pkgerrors.CodeStateConflict))

	s, err = s.WithReservation("R", nil)
	require.NoError(t, err)
	_, err = s.WithReservation("R2", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestFieldValidation(t *testing.T) {
	_, err := Start("  ", chapaX, time.Now())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	s, _ := Start("st-1", chapaX, time.Now())
	_, err = s.WithReservation("   ", nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	s, _ = s.WithReservation("R", nil)
	_, err = s.WithQuantity(0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	s, _ = s.WithQuantity(1)
	_, err = s.WithMeasuredMass(0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	s, _ = s.WithMeasuredMass(0.001)
	_, err = s.WithWidth(-1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestZeroDimensionsAreNotReady(t *testing.T) {
	s, _ := Start("st-1", chapaX, time.Now())
	s, _ = s.WithReservation("R", nil)
	s, _ = s.WithQuantity(1)
	s, _ = s.WithMeasuredMass(10)
	s, err := s.WithWidth(0)
	require.NoError(t, err)
	s, err = s.WithLength(0)
	require.NoError(t, err)

	assert.False(t, s.Ready())
	err = s.CheckReady()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	s, err = s.WithLength(1500)
	require.NoError(t, err, "length can be corrected before saving")
	assert.False(t, s.Ready(), "width is still zero")
}

func TestFactorOverride(t *testing.T) {
	s, _ := Start("st-1", chapaX, time.Now())
	factor := 8.0
	next, err := s.WithReservation("R", &factor)
	require.NoError(t, err)
	assert.True(t, next.FactorOverridden)
	assert.Equal(t, 8.0, next.Product.MassFactor)
	assert.Equal(t, 7.85, s.Product.MassFactor)

	same := 7.85
	next, err = s.WithReservation("R", &same)
	require.NoError(t, err)
	assert.False(t, next.FactorOverridden)

	negative := -1.0
	_, err = s.WithReservation("R", &negative)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestComputeWithLengthPreview(t *testing.T) {
	s, _ := Start("st-1", chapaX, time.Now())
	s, _ = s.WithReservation("R", nil)
	s, _ = s.WithQuantity(2)
	s, _ = s.WithMeasuredMass(50)
	s, _ = s.WithWidth(950)

	res := s.ComputeWithLength(cutting.NewRule(300), 1220)
	assert.InDelta(t, 16.956, res.TheoreticalMass, 1e-9)
	assert.Zero(t, s.RealLength)
	assert.True(t, s.Reached(StepWidth))
	assert.False(t, s.Reached(StepReady))
}

func TestInputLimitsKeepMassFinite(t *testing.T) {
	s, _ := Start("st-1", chapaX, time.Now())
	huge := 1e308
	_, err := s.WithReservation("R", &huge)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	inf := math.Inf(1)
	_, err = s.WithReservation("R", &inf)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	limit := MaxMassFactor
	s, err = s.WithReservation("R", &limit)
	require.NoError(t, err)
	_, err = s.WithQuantity(MaxQuantity + 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	s, err = s.WithQuantity(MaxQuantity)
	require.NoError(t, err)
	_, err = s.WithMeasuredMass(math.Inf(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	s, err = s.WithMeasuredMass(1)
	require.NoError(t, err)
	_, err = s.WithWidth(MaxDimensionMM + 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	s, err = s.WithWidth(MaxDimensionMM)
	require.NoError(t, err)
	_, err = s.WithLength(MaxDimensionMM + 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	s, err = s.WithLength(MaxDimensionMM)
	require.NoError(t, err)

	res := s.Compute(cutting.NewRule(300))
	assert.False(t, math.IsInf(res.TheoreticalMass, 0))
	assert.False(t, math.IsInf(res.Scrap, 0))
}
