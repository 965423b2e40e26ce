package optimize

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	interrors "github.com/causalkit/intervene/pkg/errors"
)

// pipageEpsilon is the numerical-stability threshold for treating a
// coordinate as integral and for validating direction probabilities.
const pipageEpsilon = 0.001

// Pipage performs randomized pipage rounding of a fractional solution
// under the cardinality bound. Pairs of fractional coordinates are
// repeatedly shifted to a boundary in a randomly chosen direction; the
// direction probability keeps the rounding lossless in expectation for
// submodular objectives. A single remaining fractional coordinate is
// resolved by three rules: dropped when the sum sits in (bound, bound+0.1)
// from rounding error, forced on when the total mass is at most one
// intervention, and Bernoulli-sampled otherwise.
//
// The input is not modified. A direction probability outside [0, 1+ε]
// indicates corrupt iterates and returns a fatal INVALID_PROBABILITY
// error.
func Pipage(x []float64, bound int, rng *rand.Rand) ([]float64, error) {
	out := make([]float64, len(x))
	for i, v := range x {
		// 10-decimal pre-round for numerical stability
		out[i] = math.Round(v*1e10) / 1e10
	}

	var frac []int
	for i, v := range out {
		if math.Round(v) != v {
			frac = append(frac, i)
		}
	}

	for len(frac) > 1 {
		a := rng.IntN(len(frac))
		b := rng.IntN(len(frac) - 1)
		if b >= a {
			b++
		}
		i, j := frac[a], frac[b]

		distI := math.Min(1-out[i], out[j]) // headroom pushing mass onto i
		distJ := math.Min(1-out[j], out[i]) // headroom pushing mass onto j

		p := math.Abs(distI / (distJ + distI))
		if math.IsNaN(p) || p > 1+pipageEpsilon {
			return nil, interrors.New(interrors.ErrCodeInvalidProbability, "pipage direction probability %v for coordinates (%d,%d)", p, i, j)
		}
		if p > 1 {
			p = 1
		}

		if rng.Float64() < p {
			out[i] -= distJ
			out[j] += distJ
		} else {
			out[i] += distI
			out[j] -= distI
		}

		if math.Abs(out[i]-1) < pipageEpsilon || math.Abs(out[i]) < pipageEpsilon {
			out[i] = math.Round(out[i])
			frac = removeValue(frac, i)
		}
		if math.Abs(out[j]-1) < pipageEpsilon || math.Abs(out[j]) < pipageEpsilon {
			out[j] = math.Round(out[j])
			frac = removeValue(frac, j)
		}
	}

	if len(frac) == 1 {
		last := frac[0]
		sum := floats.Sum(out)
		switch {
		case sum > float64(bound) && sum < float64(bound)+0.1:
			out[last] = 0
		case sum <= 1:
			// an all-near-zero iterate still commits one perturbation
			out[last] = 1
		default:
			if rng.Float64() < out[last] {
				out[last] = 1
			} else {
				out[last] = 0
			}
		}
	}
	return out, nil
}

func removeValue(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
