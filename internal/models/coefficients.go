package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/popsim/internal/dynamo"
)

var (
	// ErrUnknownCoefficient indicates a name outside Names.
	ErrUnknownCoefficient = errors.New("models: unknown coefficient")

	// ErrNonPositive indicates a coefficient that is zero, negative or not finite.
	ErrNonPositive = errors.New("models: coefficient must be positive")
)

// Names lists the coefficient names in display order: ten rates, then the
// three initial populations.
var Names = []string{
	"bd1", "d2", "d3",
	"a11", "a12", "a21",
	"a22", "a23", "a32",
	"a33", "ix1", "ix2", "ix3",
}

// RateNames is the subset of Names that parameterises the vector field.
var RateNames = Names[:10]

var labels = map[string]string{
	"bd1": "b - d1",
	"ix1": "x1 initial value",
	"ix2": "x2 initial value",
	"ix3": "x3 initial value",
}

// Label returns the human readable label for a coefficient name.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// Coefficients is the full parameter set of one simulation. BD1 is the net
// prey growth rate (birth minus death), D2 and D3 are predator death rates
// and Aij is the effect of species j on the per-capita growth of species i.
type Coefficients struct {
	BD1 float64 `json:"bd1" yaml:"bd1"`
	D2  float64 `json:"d2" yaml:"d2"`
	D3  float64 `json:"d3" yaml:"d3"`
	A11 float64 `json:"a11" yaml:"a11"`
	A12 float64 `json:"a12" yaml:"a12"`
	A21 float64 `json:"a21" yaml:"a21"`
	A22 float64 `json:"a22" yaml:"a22"`
	A23 float64 `json:"a23" yaml:"a23"`
	A32 float64 `json:"a32" yaml:"a32"`
	A33 float64 `json:"a33" yaml:"a33"`
	IX1 float64 `json:"ix1" yaml:"ix1"`
	IX2 float64 `json:"ix2" yaml:"ix2"`
	IX3 float64 `json:"ix3" yaml:"ix3"`
}

func DefaultCoefficients() Coefficients {
	return Coefficients{
		BD1: 3.5,
		D2:  0.5,
		D3:  0.5,
		A11: 0.5,
		A12: 0.5,
		A21: 0.5,
		A22: 0.5,
		A23: 0.5,
		A32: 0.5,
		A33: 0.5,
		IX1: 5.0,
		IX2: 3.5,
		IX3: 2.0,
	}
}

func (c *Coefficients) field(name string) *float64 {
	switch name {
	case "bd1":
		return &c.BD1
	case "d2":
		return &c.D2
	case "d3":
		return &c.D3
	case "a11":
		return &c.A11
	case "a12":
		return &c.A12
	case "a21":
		return &c.A21
	case "a22":
		return &c.A22
	case "a23":
		return &c.A23
	case "a32":
		return &c.A32
	case "a33":
		return &c.A33
	case "ix1":
		return &c.IX1
	case "ix2":
		return &c.IX2
	case "ix3":
		return &c.IX3
	}
	return nil
}

// Get returns the named value.
func (c Coefficients) Get(name string) (float64, bool) {
	p := c.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// With returns a copy of c with one value replaced. The receiver is never
// modified, also not when an error is returned.
func (c Coefficients) With(name string, value float64) (Coefficients, error) {
	p := c.field(name)
	if p == nil {
		return c, fmt.Errorf("%w: %q", ErrUnknownCoefficient, name)
	}
	if !(value > 0) || math.IsInf(value, 0) {
		return c, fmt.Errorf("%w: %s = %g", ErrNonPositive, name, value)
	}
	*p = value
	return c, nil
}

// Validate reports the first value that is not strictly positive.
func (c Coefficients) Validate() error {
	for _, name := range Names {
		v, _ := c.Get(name)
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %g", ErrNonPositive, name, v)
		}
	}
	return nil
}

// Initial returns the initial state (ix1, ix2, ix3).
func (c Coefficients) Initial() dynamo.State {
	return dynamo.State{c.IX1, c.IX2, c.IX3}
}

// Map returns all 13 values keyed by name.
func (c Coefficients) Map() map[string]float64 {
	m := make(map[string]float64, len(Names))
	for _, name := range Names {
		m[name], _ = c.Get(name)
	}
	return m
}

// FromMap overlays the given values on the defaults.
func FromMap(values map[string]float64) (Coefficients, error) {
	c := DefaultCoefficients()
	for name, v := range values {
		p := c.field(name)
		if p == nil {
			return c, fmt.Errorf("%w: %q", ErrUnknownCoefficient, name)
		}
		*p = v
	}
	return c, nil
}
