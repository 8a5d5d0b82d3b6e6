package models

import (
	"errors"
	"math"
)

// ErrNoInteriorEquilibrium is returned by Predict when the linear system for
// the coexistence state is singular.
var ErrNoInteriorEquilibrium = errors.New("models: no interior equilibrium (singular denominator)")

// DenominatorEpsilon is the magnitude below which the equilibrium
// denominator is treated as zero.
const DenominatorEpsilon = 1e-12

// Equilibrium is the closed-form coexistence state.
type Equilibrium struct {
	X1          float64 `json:"x1"`
	X2          float64 `json:"x2"`
	X3          float64 `json:"x3"`
	Denominator float64 `json:"denominator"`
	// Feasible is true when all three populations are strictly positive.
	Feasible bool `json:"feasible"`
}

// Values returns the steady state as (x1*, x2*, x3*).
func (e Equilibrium) Values() [3]float64 { return [3]float64{e.X1, e.X2, e.X3} }

// Predict solves dx/dt = 0 with all three populations non-zero. Only the ten
// rates are used; the initial populations do not affect the result.
func Predict(c Coefficients) (Equilibrium, error) {
	den := c.A11*c.A22*c.A33 + c.A12*c.A21*c.A33 + c.A11*c.A23*c.A32
	if math.Abs(den) <= DenominatorEpsilon || math.IsNaN(den) {
		return Equilibrium{Denominator: den}, ErrNoInteriorEquilibrium
	}

	n1 := c.A12*c.A33*c.D2 + c.BD1*(c.A22*c.A33+c.A23*c.A32) - c.A12*c.A23*c.D3
	n2 := c.BD1*c.A21*c.A33 + c.A11*c.A23*c.D3 - c.A11*c.A33*c.D2
	n3 := c.BD1*c.A21*c.A32 - c.A11*c.A32*c.D2 - c.D3*(c.A11*c.A22+c.A12*c.A21)

	eq := Equilibrium{
		X1:          n1 / den,
		X2:          n2 / den,
		X3:          n3 / den,
		Denominator: den,
	}
	eq.Feasible = eq.X1 > 0 && eq.X2 > 0 && eq.X3 > 0
	return eq, nil
}
