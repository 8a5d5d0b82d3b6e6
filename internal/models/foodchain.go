package models

import (
	"github.com/san-kum/popsim/internal/dynamo"
)

// Derivative evaluates the food chain vector field at (x1, x2, x3).
// It is defined for all real inputs and does not clamp populations.
func Derivative(x1, x2, x3 float64, c Coefficients) (dx1, dx2, dx3 float64) {
	dx1 = x1 * (c.BD1 - c.A11*x1 - c.A12*x2)
	dx2 = x2 * (-c.D2 + c.A21*x1 - c.A22*x2 - c.A23*x3)
	dx3 = x3 * (-c.D3 + c.A32*x2 - c.A33*x3)
	return
}

// Jacobian returns the partial derivatives of the vector field at x.
func Jacobian(x dynamo.State, c Coefficients) [3][3]float64 {
	x1, x2, x3 := x[0], x[1], x[2]
	return [3][3]float64{
		{c.BD1 - 2*c.A11*x1 - c.A12*x2, -c.A12 * x1, 0},
		{c.A21 * x2, -c.D2 + c.A21*x1 - 2*c.A22*x2 - c.A23*x3, -c.A23 * x2},
		{0, c.A32 * x3, -c.D3 + c.A32*x2 - 2*c.A33*x3},
	}
}

// FoodChain adapts Derivative to dynamo.System.
type FoodChain struct {
	coef Coefficients
}

var (
	_ dynamo.System       = (*FoodChain)(nil)
	_ dynamo.Configurable = (*FoodChain)(nil)
)

func NewFoodChain(c Coefficients) *FoodChain { return &FoodChain{coef: c} }

func (f *FoodChain) StateDim() int { return 3 }

// Derive calculates the population growth rates.
func (f *FoodChain) Derive(x dynamo.State, _ float64) dynamo.State {
	dx1, dx2, dx3 := Derivative(x[0], x[1], x[2], f.coef)
	return dynamo.State{dx1, dx2, dx3}
}

func (f *FoodChain) Coefficients() Coefficients { return f.coef }

func (f *FoodChain) DefaultState() dynamo.State { return f.coef.Initial() }

func (f *FoodChain) GetParams() map[string]float64 { return f.coef.Map() }

func (f *FoodChain) SetParam(name string, value float64) error {
	c, err := f.coef.With(name, value)
	if err != nil {
		return err
	}
	f.coef = c
	return nil
}
