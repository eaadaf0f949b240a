// Package wizard models the five-step operator entry as an immutable value.
// Every transition returns a new State; the caller decides where it lives.
package wizard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/brametal/chapas-backend/internal/catalog"
	"github.com/brametal/chapas-backend/internal/cutting"
	"github.com/brametal/chapas-backend/internal/yield"
	pkgerrors "github.com/brametal/chapas-backend/pkg/errors"
)

// Step is the next field the operator has to provide.
type Step string

const (
	StepReservation  Step = "reservation"
	StepQuantity     Step = "quantity"
	StepMeasuredMass Step = "measured_mass"
	StepWidth        Step = "width"
	StepLength       Step = "length"
	StepReady        Step = "ready"
)

// Input limits. Within them the theoretical mass of an entry stays finite.
const (
	MaxMassFactor   = 10_000.0
	MaxQuantity     = 100_000
	MaxMeasuredMass = 1_000_000_000.0
	MaxDimensionMM  = 1_000_000
)

var stepOrder = []Step{StepReservation, StepQuantity, StepMeasuredMass, StepWidth, StepLength, StepReady}

// State is one station's in-progress entry.
type State struct {
	StationID        string          `json:"stationId"`
	Product          catalog.Product `json:"product"`
	FactorOverridden bool            `json:"factorOverridden"`
	Step             Step            `json:"step"`
	ReservationID    string          `json:"reservationId,omitempty"`
	Quantity         int             `json:"quantity,omitempty"`
	MeasuredMass     float64         `json:"measuredMass,omitempty"`
	RealWidth        int             `json:"realWidth"`
	RealLength       int             `json:"realLength"`
	StartedAt        time.Time       `json:"startedAt"`
}

// Start opens a wizard for a scanned product.
func Start(stationID string, product catalog.Product, now time.Time) (State, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "station id is required")
	}
	return State{
		StationID: stationID,
		Product:   product,
		Step:      StepReservation,
		StartedAt: now.UTC(),
	}, nil
}

// WithReservation records the reservation id. A non-nil factor replaces the
// catalog mass factor for this entry only.
func (s State) WithReservation(reservationID string, factor *float64) (State, error) {
	if err := s.expect(StepReservation); err != nil {
		return s, err
	}
	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		return s, invalid("reservation is required")
	}
	if factor != nil {
		if math.IsNaN(*factor) || *factor < 0 || *factor > MaxMassFactor {
			return s, invalid(fmt.Sprintf("mass factor must be between 0 and %g", MaxMassFactor))
		}
		if *factor != s.Product.MassFactor {
			s.Product.MassFactor = *factor
			s.FactorOverridden = true
		}
	}
	s.ReservationID = reservationID
	s.Step = StepQuantity
	return s, nil
}

// WithQuantity records the number of sheets.
func (s State) WithQuantity(quantity int) (State, error) {
	if err := s.expect(StepQuantity); err != nil {
		return s, err
	}
	if quantity < 1 || quantity > MaxQuantity {
		return s, invalid(fmt.Sprintf("quantity must be between 1 and %d", MaxQuantity))
	}
	s.Quantity = quantity
	s.Step = StepMeasuredMass
	return s, nil
}

// WithMeasuredMass records the scale reading in kilograms.
func (s State) WithMeasuredMass(kg float64) (State, error) {
	if err := s.expect(StepMeasuredMass); err != nil {
		return s, err
	}
	if math.IsNaN(kg) || kg <= 0 || kg > MaxMeasuredMass {
		return s, invalid(fmt.Sprintf("measured mass must be greater than zero and at most %g", MaxMeasuredMass))
	}
	s.MeasuredMass = kg
	s.Step = StepWidth
	return s, nil
}

// WithWidth records the real width in millimetres. Zero is accepted here and
// rejected when saving.
func (s State) WithWidth(mm int) (State, error) {
	if err := s.expect(StepWidth); err != nil {
		return s, err
	}
	if mm < 0 || mm > MaxDimensionMM {
		return s, invalid(fmt.Sprintf("width must be between 0 and %d", MaxDimensionMM))
	}
	s.RealWidth = mm
	s.Step = StepLength
	return s, nil
}

// WithLength records the real length in millimetres. The length can be
// re-entered until the entry is saved.
func (s State) WithLength(mm int) (State, error) {
	if s.Step != StepLength && s.Step != StepReady {
		return s, s.outOfOrder(StepLength)
	}
	if mm < 0 || mm > MaxDimensionMM {
		return s, invalid(fmt.Sprintf("length must be between 0 and %d", MaxDimensionMM))
	}
	s.RealLength = mm
	s.Step = StepReady
	return s, nil
}

// Ready reports whether the entry may be saved.
func (s State) Ready() bool {
	return s.Step == StepReady && s.RealWidth > 0 && s.RealLength > 0
}

// CheckReady explains why an entry cannot be saved yet.
func (s State) CheckReady() error {
	if s.Step != StepReady {
		return s.outOfOrder(StepReady)
	}
	var problems []string
	if s.RealWidth <= 0 {
		problems = append(problems, "width must be greater than zero")
	}
	if s.RealLength <= 0 {
		problems = append(problems, "length must be greater than zero")
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry is not complete").
			WithDetails(map[string]any{"problems": problems})
	}
	return nil
}

// Compute evaluates the entry with whatever dimensions are known so far.
func (s State) Compute(rule cutting.Rule) yield.Result {
	return yield.Compute(rule, s.input())
}

// ComputeWithLength previews the result for a length that was not submitted yet.
func (s State) ComputeWithLength(rule cutting.Rule, lengthMM int) yield.Result {
	in := s.input()
	in.RealLength = lengthMM
	return yield.Compute(rule, in)
}

func (s State) input() yield.Input {
	return yield.Input{
		MassFactor:   s.Product.MassFactor,
		RealWidth:    s.RealWidth,
		RealLength:   s.RealLength,
		Quantity:     s.Quantity,
		MeasuredMass: s.MeasuredMass,
	}
}

// Reached reports whether the wizard has passed step.
func (s State) Reached(step Step) bool {
	return stepIndex(s.Step) >= stepIndex(step)
}

func (s State) expect(step Step) error {
	if s.Step != step {
		return s.outOfOrder(step)
	}
	return nil
}

func (s State) outOfOrder(step Step) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("wizard is at step %s, not %s", s.Step, step)).
		WithDetails(map[string]any{"currentStep": s.Step, "requestedStep": step})
}

func invalid(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg)
}

func stepIndex(step Step) int {
	for i, s := range stepOrder {
		if s == step {
			return i
		}
	}
	return -1
}
