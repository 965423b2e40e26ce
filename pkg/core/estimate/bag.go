package estimate

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/causalkit/intervene/pkg/cache"
	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	interrors "github.com/causalkit/intervene/pkg/errors"
)

// BagEstimator estimates gradients and Hessians against a fixed weighted
// bag instead of fresh equivalence-class draws. Each call picks one bag
// member uniformly at random and weights its contribution by the member's
// probability weight, keeping the estimate unbiased for the bag's
// weighted objective.
type BagEstimator struct {
	Bag     *objective.Bag
	Repeats int
	RNG     *rand.Rand
}

// Gradient estimates the node-space gradient at x over the bag objective.
// Unlike the fresh-sample estimator, the forced subsets are scored with the
// full weighted bag objective, so one call re-scores every member.
func (e *BagEstimator) Gradient(ctx context.Context, base mec.Batch, x mat.Vector) (*mat.VecDense, error) {
	member, err := e.pickMember()
	if err != nil {
		return nil, err
	}
	n := member.CPDAG.N()
	if x.Len() != n {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "gradient point has %d coordinates, CPDAG has %d nodes", x.Len(), n)
	}

	repeats := max(1, e.Repeats)
	grad := mat.NewVecDense(n, nil)
	memo := cache.NewMemo()

	bagScore := func(subset []int) (float64, error) {
		key := cache.SubsetKey("bag", subset)
		return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
			batch := append(append(mec.Batch{}, base...), mec.Intervention(subset))
			return e.Bag.Evaluate(ctx, batch)
		})
	}

	for r := 0; r < repeats; r++ {
		mask := bernoulli(e.RNG, x)
		for v := 0; v < n; v++ {
			upper, err := bagScore(forced(mask, v, true))
			if err != nil {
				return nil, err
			}
			lower, err := bagScore(forced(mask, v, false))
			if err != nil {
				return nil, err
			}
			grad.SetVec(v, grad.AtVec(v)+member.Weight*(upper-lower)/float64(repeats))
		}
	}
	return grad, nil
}

// GradientSS estimates the separating-system gradient at x over the bag
// objective, scoring candidate subsets against the drawn member only.
func (e *BagEstimator) GradientSS(ctx context.Context, x mat.Vector, ss []mec.Intervention) (*mat.VecDense, error) {
	member, err := e.pickMember()
	if err != nil {
		return nil, err
	}
	nss := len(ss)
	if x.Len() != nss {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "gradient point has %d coordinates, separating system has %d candidates", x.Len(), nss)
	}

	repeats := max(1, e.Repeats)
	grad := mat.NewVecDense(nss, nil)
	memo := cache.NewMemo()

	memberScore := func(indices []int) (float64, error) {
		key := cache.SubsetKey("bagss", indices)
		return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
			return objective.EvaluateOn(ctx, member.CPDAG, pick(ss, indices), member.CPDAG, []*mec.DAG{member.DAG}, e.Bag.IsTree)
		})
	}

	for r := 0; r < repeats; r++ {
		mask := bernoulli(e.RNG, x)
		for v := 0; v < nss; v++ {
			upper, err := memberScore(forced(mask, v, true))
			if err != nil {
				return nil, err
			}
			lower, err := memberScore(forced(mask, v, false))
			if err != nil {
				return nil, err
			}
			grad.SetVec(v, grad.AtVec(v)+member.Weight*(upper-lower)/float64(repeats))
		}
	}
	return grad, nil
}

// Hessian estimates the node-space Hessian at x over the bag objective.
// Only the upper triangle is populated.
func (e *BagEstimator) Hessian(ctx context.Context, base mec.Batch, x, thresh mat.Vector) (*mat.Dense, error) {
	member, err := e.pickMember()
	if err != nil {
		return nil, err
	}
	n := member.CPDAG.N()
	if x.Len() != n || thresh.Len() != n {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "Hessian point has %d/%d coordinates, CPDAG has %d nodes", x.Len(), thresh.Len(), n)
	}
	score := func(ctx context.Context, memo cache.Store, subset []int) (float64, error) {
		key := cache.SubsetKey("bag", subset)
		return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
			c := member.CPDAG.Clone()
			batch := append(append(mec.Batch{}, base...), mec.Intervention(subset))
			if err := mec.SimulateIntervention(member.DAG, c, batch, mec.SimulateOptions{Hard: true, IsTree: e.Bag.IsTree}); err != nil {
				return 0, err
			}
			return float64(c.Score()), nil
		})
	}
	return e.hessian(ctx, n, member.Weight, x, thresh, score)
}

// HessianSS estimates the separating-system Hessian at x over the bag
// objective. Only the upper triangle is populated.
func (e *BagEstimator) HessianSS(ctx context.Context, x, thresh mat.Vector, ss []mec.Intervention) (*mat.Dense, error) {
	member, err := e.pickMember()
	if err != nil {
		return nil, err
	}
	nss := len(ss)
	if x.Len() != nss || thresh.Len() != nss {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "Hessian point has %d/%d coordinates, separating system has %d candidates", x.Len(), thresh.Len(), nss)
	}
	score := func(ctx context.Context, memo cache.Store, indices []int) (float64, error) {
		key := cache.SubsetKey("bagss", indices)
		return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
			c := member.CPDAG.Clone()
			if err := mec.SimulateIntervention(member.DAG, c, pick(ss, indices), mec.SimulateOptions{Hard: true, IsTree: e.Bag.IsTree}); err != nil {
				return 0, err
			}
			return float64(c.Score()), nil
		})
	}
	return e.hessian(ctx, nss, member.Weight, x, thresh, score)
}

// hessian accumulates the weighted second differences over one member.
func (e *BagEstimator) hessian(ctx context.Context, dim int, weight float64, x, thresh mat.Vector, score func(context.Context, cache.Store, []int) (float64, error)) (*mat.Dense, error) {
	repeats := max(1, e.Repeats)
	hess := mat.NewDense(dim, dim, nil)
	memo := cache.NewMemo()

	for r := 0; r < repeats; r++ {
		S := threshold(x, thresh)
		for i := 0; i < dim; i++ {
			for j := i + 1; j < dim; j++ {
				second := 0.0
				for _, term := range secondDifference(S, i, j) {
					v, err := score(ctx, memo, term.subset)
					if err != nil {
						return nil, err
					}
					second += term.sign * v
				}
				hess.Set(i, j, hess.At(i, j)+weight*second/float64(repeats))
			}
		}
	}
	return hess, nil
}

// pickMember draws one bag member uniformly at random.
func (e *BagEstimator) pickMember() (objective.Member, error) {
	if e.Bag == nil || len(e.Bag.Members) == 0 {
		return objective.Member{}, interrors.New(interrors.ErrCodeEmptySample, "empty bag")
	}
	return e.Bag.Members[e.RNG.IntN(len(e.Bag.Members))], nil
}
