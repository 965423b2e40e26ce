// Package estimate computes stochastic gradients and Hessians of the
// multilinear extension of the edge-orientation objective.
//
// Coordinates live either in node space (coordinate v is the marginal
// probability of perturbing node v) or in separating-system space
// (coordinate i is the probability of committing candidate ss[i]). Both an
// [Estimator] drawing fresh equivalence-class samples per call and a
// [BagEstimator] bound to a fixed weighted bag are provided; the continuous
// optimizers consume either through the function types below.
//
// All estimates are unbiased but high variance; callers average over
// minibatches. Every randomized decision draws from the caller-supplied
// RNG, never from package-level state.
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

// GradFunc estimates the gradient of the multilinear extension at x in
// node space, on top of the already-committed base batch.
type GradFunc func(ctx context.Context, base mec.Batch, x mat.Vector) (*mat.VecDense, error)

// HessFunc estimates the Hessian at x in node space. e is the uniform
// threshold vector selecting the conditioning subset S = {s : e[s] < x[s]}.
// Only the upper triangle (j > i) is populated.
type HessFunc func(ctx context.Context, base mec.Batch, x, e mat.Vector) (*mat.Dense, error)

// SSGradFunc estimates the gradient over a separating-system ground set:
// coordinate i is the inclusion probability of candidate ss[i].
type SSGradFunc func(ctx context.Context, x mat.Vector, ss []mec.Intervention) (*mat.VecDense, error)

// SSHessFunc estimates the Hessian over a separating-system ground set.
// Only the upper triangle is populated.
type SSHessFunc func(ctx context.Context, x, e mat.Vector, ss []mec.Intervention) (*mat.Dense, error)

// Estimator draws fresh DAG samples from the equivalence class on every
// call. Samples is the minibatch of DAG draws per call; Repeats is the
// number of Bernoulli base samples per drawn DAG.
type Estimator struct {
	CPDAG   *mec.CPDAG
	Sampler objective.Sampler
	Samples int
	Repeats int
	Exact   bool
	IsTree  bool
	RNG     *rand.Rand
}

// Gradient estimates the node-space gradient at x given the committed base
// batch. For each sampled DAG and each Bernoulli draw from x, every
// coordinate is forced to 1 and to 0 and the score difference of the two
// induced interventions is accumulated. Scores are memoized per DAG draw.
func (e *Estimator) Gradient(ctx context.Context, base mec.Batch, x mat.Vector) (*mat.VecDense, error) {
	n := e.CPDAG.N()
	if x.Len() != n {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "gradient point has %d coordinates, CPDAG has %d nodes", x.Len(), n)
	}
	dags, err := e.draw(ctx)
	if err != nil {
		return nil, err
	}

	repeats := max(1, e.Repeats)
	norm := float64(len(dags) * repeats)
	grad := mat.NewVecDense(n, nil)

	for _, dag := range dags {
		memo := cache.NewMemo()
		for r := 0; r < repeats; r++ {
			mask := bernoulli(e.RNG, x)
			for v := 0; v < n; v++ {
				upper, err := e.nodeScore(ctx, memo, dag, base, forced(mask, v, true))
				if err != nil {
					return nil, err
				}
				lower, err := e.nodeScore(ctx, memo, dag, base, forced(mask, v, false))
				if err != nil {
					return nil, err
				}
				grad.SetVec(v, grad.AtVec(v)+(upper-lower)/norm)
			}
		}
	}
	return grad, nil
}

// GradientSS estimates the gradient over the separating-system ground set:
// forcing coordinate i commits candidate ss[i] to the batch.
func (e *Estimator) GradientSS(ctx context.Context, x mat.Vector, ss []mec.Intervention) (*mat.VecDense, error) {
	nss := len(ss)
	if x.Len() != nss {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "gradient point has %d coordinates, separating system has %d candidates", x.Len(), nss)
	}
	dags, err := e.draw(ctx)
	if err != nil {
		return nil, err
	}

	repeats := max(1, e.Repeats)
	norm := float64(len(dags) * repeats)
	grad := mat.NewVecDense(nss, nil)

	for _, dag := range dags {
		memo := cache.NewMemo()
		for r := 0; r < repeats; r++ {
			mask := bernoulli(e.RNG, x)
			for v := 0; v < nss; v++ {
				upper, err := e.ssScore(ctx, memo, dag, forced(mask, v, true), ss)
				if err != nil {
					return nil, err
				}
				lower, err := e.ssScore(ctx, memo, dag, forced(mask, v, false), ss)
				if err != nil {
					return nil, err
				}
				grad.SetVec(v, grad.AtVec(v)+(upper-lower)/norm)
			}
		}
	}
	return grad, nil
}

// draw fetches the estimator's DAG minibatch.
func (e *Estimator) draw(ctx context.Context) ([]*mec.DAG, error) {
	if e.Samples < 1 {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "sample count %d, need at least 1", e.Samples)
	}
	dags, err := e.Sampler.Sample(e.CPDAG, nil, e.Samples, e.Exact)
	if err != nil {
		return nil, interrors.Wrap(interrors.ErrCodeInternal, err, "sampling equivalence class")
	}
	if len(dags) == 0 {
		return nil, interrors.New(interrors.ErrCodeEmptySample, "sampler returned no DAGs for %d requested", e.Samples)
	}
	return dags, nil
}

// nodeScore memoizes the directed-edge count after committing base plus
// one node subset against the given DAG.
func (e *Estimator) nodeScore(ctx context.Context, memo cache.Store, dag *mec.DAG, base mec.Batch, subset []int) (float64, error) {
	key := cache.SubsetKey("node", subset)
	return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
		c := e.CPDAG.Clone()
		batch := append(append(mec.Batch{}, base...), mec.Intervention(subset))
		if err := mec.SimulateIntervention(dag, c, batch, mec.SimulateOptions{Hard: true, IsTree: e.IsTree}); err != nil {
			return 0, err
		}
		return float64(c.Score()), nil
	})
}

// ssScore memoizes the directed-edge count after committing the selected
// separating-system candidates against the given DAG.
func (e *Estimator) ssScore(ctx context.Context, memo cache.Store, dag *mec.DAG, indices []int, ss []mec.Intervention) (float64, error) {
	key := cache.SubsetKey("ss", indices)
	return cache.GetOrCompute(ctx, memo, key, func() (float64, error) {
		c := e.CPDAG.Clone()
		if err := mec.SimulateIntervention(dag, c, pick(ss, indices), mec.SimulateOptions{Hard: true, IsTree: e.IsTree}); err != nil {
			return 0, err
		}
		return float64(c.Score()), nil
	})
}

// bernoulli draws a 0/1 mask with per-coordinate success probability x.
func bernoulli(rng *rand.Rand, x mat.Vector) []bool {
	mask := make([]bool, x.Len())
	for i := range mask {
		mask[i] = rng.Float64() < x.AtVec(i)
	}
	return mask
}

// forced returns the set bits of mask with coordinate v forced on or off,
// as a sorted index list.
func forced(mask []bool, v int, on bool) []int {
	out := make([]int, 0, len(mask))
	for i, b := range mask {
		if i == v {
			b = on
		}
		if b {
			out = append(out, i)
		}
	}
	return out
}

// pick maps index subsets of the ground set to the candidate batch.
func pick(ss []mec.Intervention, indices []int) mec.Batch {
	batch := make(mec.Batch, 0, len(indices))
	for _, i := range indices {
		batch = append(batch, ss[i])
	}
	return batch
}
