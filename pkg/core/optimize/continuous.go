package optimize

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/causalkit/intervene/pkg/core/estimate"
	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	interrors "github.com/causalkit/intervene/pkg/errors"
	"github.com/causalkit/intervene/pkg/observability"
)

// ContinuousGreedy designs a batch one intervention at a time with plain
// stochastic continuous greedy: a moving-average gradient estimate
// (ρ_t = 4/(t+8)^(2/3)) drives conditional-gradient ascent over the
// node-space polytope, and the fractional slot solution is pipage-rounded.
type ContinuousGreedy struct {
	N         int            // number of nodes
	Batch     int            // interventions in the designed batch
	K         int            // per-intervention cardinality cap
	Objective objective.Func // scores candidate batches during rounding
	Gradient  estimate.GradFunc
	Steps     int // ascent iterations per slot; 0 means 100
	Trials    int // extra rounding trials; 0 means 10
	RNG       *rand.Rand
}

// Design produces the intervention batch.
func (g *ContinuousGreedy) Design(ctx context.Context) (mec.Batch, error) {
	steps := orDefault(g.Steps, defaultSteps)
	trials := orDefault(g.Trials, defaultTrials)

	var batch mec.Batch
	for slot := 0; slot < g.Batch; slot++ {
		observability.Optimizer().OnRoundStart(ctx, "continuous-greedy", steps)
		start := time.Now()

		x := make([]float64, g.N)
		d := make([]float64, g.N)
		for t := 0; t < steps; t++ {
			rho := 4 / math.Pow(float64(t+8), 2.0/3.0)
			grad, err := g.Gradient(ctx, batch, mat.NewVecDense(g.N, x))
			if err != nil {
				observability.Optimizer().OnRoundComplete(ctx, "continuous-greedy", time.Since(start), err)
				return nil, err
			}
			for i := range d {
				d[i] = (1-rho)*d[i] + rho*grad.AtVec(i)
			}
			v, err := Direction(d, float64(g.K), headroom(x))
			if err != nil {
				observability.Optimizer().OnRoundComplete(ctx, "continuous-greedy", time.Since(start), err)
				return nil, err
			}
			for i := range x {
				x[i] += v[i] / float64(steps)
			}
		}

		if err := checkBudget(x, float64(g.K)); err != nil {
			observability.Optimizer().OnRoundComplete(ctx, "continuous-greedy", time.Since(start), err)
			return nil, err
		}
		subset, err := roundBest(ctx, x, g.K, trials, g.RNG, func(ctx context.Context, s []int) (float64, error) {
			return g.Objective(ctx, appendIntervention(batch, s))
		})
		if err != nil {
			observability.Optimizer().OnRoundComplete(ctx, "continuous-greedy", time.Since(start), err)
			return nil, err
		}
		batch = append(batch, mec.Intervention(subset))
		observability.Optimizer().OnRoundComplete(ctx, "continuous-greedy", time.Since(start), nil)
	}
	return batch, nil
}

// SSContinuous runs plain stochastic continuous greedy over a separating
// system ground set: the whole batch is designed in one ascent with the
// batch-size cap, and support indices map back to candidates. A system no
// larger than the batch is committed verbatim.
type SSContinuous struct {
	SS        []mec.Intervention
	Batch     int
	Objective objective.Func
	Gradient  estimate.SSGradFunc
	Steps     int
	Trials    int
	RNG       *rand.Rand
}

// Design produces the intervention batch.
func (g *SSContinuous) Design(ctx context.Context) (mec.Batch, error) {
	if len(g.SS) == 0 {
		return nil, interrors.New(interrors.ErrCodeEmptySeparatingSystem, "separating system is empty")
	}
	if len(g.SS) <= g.Batch {
		return append(mec.Batch{}, g.SS...), nil
	}
	steps := orDefault(g.Steps, defaultSteps)
	trials := orDefault(g.Trials, defaultTrials)
	nss := len(g.SS)

	observability.Optimizer().OnRoundStart(ctx, "ss-continuous", steps)
	start := time.Now()

	x := make([]float64, nss)
	d := make([]float64, nss)
	for t := 0; t < steps; t++ {
		rho := 4 / math.Pow(float64(t+8), 2.0/3.0)
		grad, err := g.Gradient(ctx, mat.NewVecDense(nss, x), g.SS)
		if err != nil {
			observability.Optimizer().OnRoundComplete(ctx, "ss-continuous", time.Since(start), err)
			return nil, err
		}
		for i := range d {
			d[i] = (1-rho)*d[i] + rho*grad.AtVec(i)
		}
		v, err := Direction(d, float64(g.Batch), ones(nss))
		if err != nil {
			observability.Optimizer().OnRoundComplete(ctx, "ss-continuous", time.Since(start), err)
			return nil, err
		}
		for i := range x {
			x[i] += v[i] / float64(steps)
		}
	}

	batch, err := g.finish(ctx, x, trials)
	observability.Optimizer().OnRoundComplete(ctx, "ss-continuous", time.Since(start), err)
	return batch, err
}

// finish validates, normalizes, and rounds the separating-system iterate.
func (g *SSContinuous) finish(ctx context.Context, x []float64, trials int) (mec.Batch, error) {
	if err := checkBudget(x, float64(g.Batch)); err != nil {
		return nil, err
	}
	normalize(x, float64(g.Batch))
	indices, err := roundBest(ctx, x, g.Batch, trials, g.RNG, func(ctx context.Context, s []int) (float64, error) {
		return g.Objective(ctx, selectCandidates(g.SS, s))
	})
	if err != nil {
		return nil, err
	}
	return selectCandidates(g.SS, indices), nil
}

// headroom returns the per-coordinate bound 1 − x of the node polytope.
func headroom(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = 1 - v
	}
	return out
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// appendIntervention extends a batch without aliasing its backing array.
func appendIntervention(batch mec.Batch, subset []int) mec.Batch {
	out := append(append(mec.Batch{}, batch...), mec.Intervention(subset))
	return out
}

// selectCandidates maps support indices onto separating-system candidates.
func selectCandidates(ss []mec.Intervention, indices []int) mec.Batch {
	out := make(mec.Batch, 0, len(indices))
	for _, i := range indices {
		out = append(out, ss[i])
	}
	return out
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
