package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/popsim/internal/sim"
)

// minAmplitude is the smallest peak-to-mean swing treated as oscillation.
const minAmplitude = 1e-6

// PowerSpectrum returns the one-sided magnitude spectrum of the mean-removed
// series, bins 0..n/2.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantPeriods estimates the oscillation period of each species from the
// strongest spectral bin. A species gets 0 when it does not oscillate: the
// swing is negligible or the strongest bin is the slowest one, which is what
// a monotone approach looks like.
func DominantPeriods(tr sim.Trajectory) [3]float64 {
	var out [3]float64
	n := tr.Len()
	if n < 4 {
		return out
	}
	window := (tr.Times[n-1] - tr.Times[0]) * float64(n) / float64(n-1)

	for i := range out {
		series := tr.Series(i)
		if swing(series) < minAmplitude {
			continue
		}

		ps := PowerSpectrum(series)
		peak := 1
		for k := 2; k < len(ps); k++ {
			if ps[k] > ps[peak] {
				peak = k
			}
		}
		if peak <= 1 {
			continue
		}
		out[i] = window / float64(peak)
	}
	return out
}

func swing(series []float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range series {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
