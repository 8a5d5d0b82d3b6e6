package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/popsim/internal/models"
)

var ErrEigenFailed = errors.New("analysis: eigendecomposition did not converge")

// Class is the local behaviour of the flow near an equilibrium.
type Class string

const (
	StableNode  Class = "stable node"
	StableFocus Class = "stable focus"
	Unstable    Class = "unstable"
	Saddle      Class = "saddle"
	Degenerate  Class = "degenerate"
)

func (c Class) Attracting() bool { return c == StableNode || c == StableFocus }

// eigenTol separates zero from nonzero real and imaginary parts.
const eigenTol = 1e-9

type StabilityReport struct {
	Point       [3]float64    `json:"point"`
	Jacobian    [3][3]float64 `json:"jacobian"`
	Eigenvalues []complex128  `json:"-"`
	Class       Class         `json:"class"`
}

// Stability linearizes the system at eq and classifies it by the signs of
// the eigenvalue real parts.
func Stability(c models.Coefficients, eq models.Equilibrium) (StabilityReport, error) {
	point := eq.Values()
	jac := models.Jacobian(point[:], c)

	data := make([]float64, 0, 9)
	for _, row := range jac {
		data = append(data, row[:]...)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(mat.NewDense(3, 3, data), mat.EigenNone); !ok {
		return StabilityReport{}, ErrEigenFailed
	}
	values := eig.Values(nil)

	return StabilityReport{
		Point:       point,
		Jacobian:    jac,
		Eigenvalues: values,
		Class:       classify(values),
	}, nil
}

func classify(values []complex128) Class {
	var neg, pos int
	oscillating := false
	for _, v := range values {
		if cmplx.IsNaN(v) {
			return Degenerate
		}
		re := real(v)
		switch {
		case math.Abs(re) <= eigenTol:
			return Degenerate
		case re < 0:
			neg++
		default:
			pos++
		}
		if math.Abs(imag(v)) > eigenTol {
			oscillating = true
		}
	}

	switch {
	case pos == 0 && oscillating:
		return StableFocus
	case pos == 0:
		return StableNode
	case neg == 0:
		return Unstable
	default:
		return Saddle
	}
}

// SpectralAbscissa is the largest real part among the eigenvalues.
func (r StabilityReport) SpectralAbscissa() float64 {
	m := math.Inf(-1)
	for _, v := range r.Eigenvalues {
		m = math.Max(m, real(v))
	}
	return m
}
