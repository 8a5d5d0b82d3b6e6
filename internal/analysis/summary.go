package analysis

import (
	"math"

	"github.com/san-kum/popsim/internal/models"
	"github.com/san-kum/popsim/internal/sim"
)

// SettleTolerance is the relative band around the equilibrium, floored at
// an absolute width of SettleTolerance, used for the settling time.
var SettleTolerance = 0.02

type SpeciesSummary struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Final float64 `json:"final"`
	// Offset is Final minus the equilibrium value, NaN without one.
	Offset float64 `json:"offset"`
}

type Summary struct {
	Species [3]SpeciesSummary `json:"species"`
	// Distance is the Euclidean distance from the final state to the
	// equilibrium, NaN without one.
	Distance float64 `json:"distance"`
	// SettlingTime is the first sample time after which every species stays
	// within the settle band, -1 when that never happens.
	SettlingTime float64 `json:"settling_time"`
}

// Summarize reduces a trajectory. eq may be nil when the coefficients have
// no interior equilibrium.
func Summarize(tr sim.Trajectory, eq *models.Equilibrium) Summary {
	s := Summary{Distance: math.NaN(), SettlingTime: -1}
	if tr.Len() == 0 {
		return s
	}

	for i := 0; i < 3; i++ {
		series := tr.Series(i)
		sp := SpeciesSummary{
			Min:    series[0],
			Max:    series[0],
			Final:  series[len(series)-1],
			Offset: math.NaN(),
		}
		for _, v := range series[1:] {
			sp.Min = math.Min(sp.Min, v)
			sp.Max = math.Max(sp.Max, v)
		}
		s.Species[i] = sp
	}

	if eq == nil {
		return s
	}

	target := eq.Values()
	sum := 0.0
	for i := range s.Species {
		d := s.Species[i].Final - target[i]
		s.Species[i].Offset = d
		sum += d * d
	}
	s.Distance = math.Sqrt(sum)

	// walk backwards to the last sample outside the band
	settled := -1
	for k := tr.Len() - 1; k >= 0; k-- {
		if !withinBand(tr.States[k], target) {
			break
		}
		settled = k
	}
	if settled >= 0 {
		s.SettlingTime = tr.Times[settled]
	}

	return s
}

func withinBand(x []float64, target [3]float64) bool {
	for i := range target {
		band := SettleTolerance * math.Max(1, math.Abs(target[i]))
		if !(math.Abs(x[i]-target[i]) <= band) {
			return false
		}
	}
	return true
}
