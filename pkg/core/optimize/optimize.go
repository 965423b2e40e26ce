// Package optimize maximizes the multilinear relaxation of the
// edge-orientation objective with conditional-gradient methods and rounds
// the fractional solution to a concrete intervention batch.
//
// Two coordinate spaces are supported. Node-space optimizers
// ([ContinuousGreedy], [SCGPP]) design one intervention per batch slot
// over the node ground set with a per-intervention cardinality cap.
// Separating-system optimizers ([SSContinuous], [SCGPPSS]) pick whole
// candidates from a prebuilt separating system under a batch-size cap.
//
// A fractional iterate whose coordinate sum exceeds its cap by more than
// 0.1 indicates a logic or numerical-stability bug; optimizers abort with
// a CONSTRAINT_VIOLATED error rather than clamp.
package optimize

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	interrors "github.com/causalkit/intervene/pkg/errors"
	"github.com/causalkit/intervene/pkg/observability"
)

const (
	defaultSteps  = 100
	defaultTrials = 10
	defaultBatchM = 10
)

// Direction solves the ascent-direction linear program: maximize grad·v
// over {v : Σv ≤ bound, 0 ≤ v_i ≤ upper_i}. The polytope is embedded in
// standard form with one budget slack and one slack per coordinate bound.
func Direction(grad []float64, bound float64, upper []float64) ([]float64, error) {
	n := len(grad)
	if len(upper) != n {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "gradient has %d coordinates, bounds have %d", n, len(upper))
	}

	cols := 2*n + 1
	c := make([]float64, cols)
	for i := 0; i < n; i++ {
		c[i] = -grad[i]
	}

	a := mat.NewDense(n+1, cols, nil)
	b := make([]float64, n+1)
	for i := 0; i < n; i++ {
		a.Set(0, i, 1)
	}
	a.Set(0, n, 1)
	b[0] = bound
	for i := 0; i < n; i++ {
		a.Set(1+i, i, 1)
		a.Set(1+i, n+1+i, 1)
		b[1+i] = upper[i]
	}

	_, x, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return nil, interrors.Wrap(interrors.ErrCodeInternal, err, "solving ascent direction")
	}
	return x[:n], nil
}

// checkBudget enforces the fractional budget with 0.1 slack for
// accumulated floating point error. Anything beyond that is a fault.
func checkBudget(x []float64, bound float64) error {
	if sum := floats.Sum(x); sum > bound+0.1 {
		return &interrors.ConstraintError{Sum: sum, Bound: bound}
	}
	return nil
}

// normalize rescales x to L1 norm bound and clamps coordinates to 1,
// resolving slight numerical constraint violations before rounding.
func normalize(x []float64, bound float64) {
	norm := floats.Norm(x, 1)
	if norm == 0 {
		return
	}
	for i := range x {
		x[i] = min(x[i]/norm*bound, 1)
	}
}

// roundBest runs pipage rounding 1 + trials times and keeps the support
// with the best score.
func roundBest(ctx context.Context, x []float64, bound, trials int, rng *rand.Rand, score func(context.Context, []int) (float64, error)) ([]int, error) {
	var (
		bestSupport []int
		bestScore   float64
	)
	for trial := 0; trial <= trials; trial++ {
		rounded, err := Pipage(x, bound, rng)
		if err != nil {
			return nil, err
		}
		s := support(rounded)
		v, err := score(ctx, s)
		if err != nil {
			return nil, err
		}
		observability.Optimizer().OnRoundingTrial(ctx, trial, v)
		if trial == 0 || v > bestScore {
			bestSupport, bestScore = s, v
		}
	}
	return bestSupport, nil
}

// support returns the indices of nonzero coordinates.
func support(x []float64) []int {
	var out []int
	for i, v := range x {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}

// uniformVec draws a vector of independent uniforms on [0, 1).
func uniformVec(rng *rand.Rand, n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, rng.Float64())
	}
	return v
}
