// Package greedy selects intervention batches directly from discrete
// candidate sets: a chordal-random baseline, single-node greedy, (lazy)
// greedy over a separating system, and lazy discrete random greedy.
//
// All selectors score candidates through an [objective.Func] and never
// mutate the CPDAG they were built from. Tie-breaking among equal maximal
// marginal gains is uniform over the caller-supplied RNG, not iteration
// order, so runs reproduce under a fixed seed.
package greedy

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	"github.com/causalkit/intervene/pkg/core/sepsys"
	"github.com/causalkit/intervene/pkg/observability"
)

// RandomBatch draws nb chordal-random interventions: each picks up to k
// distinct nodes among those still incident to an undirected edge. Fewer
// than k ambiguous nodes shrink the intervention; a fully oriented CPDAG
// yields empty interventions.
func RandomBatch(c *mec.CPDAG, nb, k int, rng *rand.Rand) mec.Batch {
	batch := make(mec.Batch, 0, nb)
	for i := 0; i < nb; i++ {
		nodes := c.AmbiguousNodes()
		rng.Shuffle(len(nodes), func(a, b int) { nodes[a], nodes[b] = nodes[b], nodes[a] })
		take := min(k, len(nodes))
		batch = append(batch, mec.Intervention(nodes[:take]))
	}
	return batch
}

// SingleNode is the single-node greedy selector: each batch slot
// re-samples representative DAGs and adds the unselected node whose
// singleton intervention maximizes the batch objective. No lazy
// evaluation; ties keep the first maximizer.
type SingleNode struct {
	CPDAG   *mec.CPDAG
	Ref     *mec.CPDAG // objective baseline; nil means CPDAG itself
	Sampler objective.Sampler
	Samples int
	Batch   int
	Exact   bool
	IsTree  bool
}

// Design produces a batch of singleton interventions.
func (s *SingleNode) Design(ctx context.Context) (mec.Batch, error) {
	n := s.CPDAG.N()
	ref := s.Ref
	if ref == nil {
		ref = s.CPDAG
	}

	selected := make(map[int]bool, s.Batch)
	var batch mec.Batch
	for slot := 0; slot < s.Batch; slot++ {
		dags, err := s.Sampler.Sample(s.CPDAG, nil, s.Samples, s.Exact)
		if err != nil {
			return nil, err
		}
		observability.Estimator().OnSampleDraw(ctx, s.Samples, s.Exact)

		bestV := 0
		bestScore := math.Inf(-1)
		for v := 0; v < n; v++ {
			if selected[v] {
				continue
			}
			cand := append(append(mec.Batch{}, batch...), mec.Intervention{v})
			score, err := objective.EvaluateOn(ctx, s.CPDAG, cand, ref, dags, s.IsTree)
			if err != nil {
				return nil, err
			}
			observability.Selector().OnCandidateEvaluated(ctx, "single-node", score)
			if score > bestScore {
				bestV = v
				bestScore = score
			}
		}
		selected[bestV] = true
		batch = append(batch, mec.Intervention{bestV})
	}
	return batch, nil
}

// SS greedily extends the batch from a separating-system candidate pool,
// evaluating every candidate each slot. With the structure-agnostic
// builder every cap size 1..K is tried (unless AllK is off) and the
// best-scoring batch wins; the structure-aware builder fixes the cap.
type SS struct {
	CPDAG     *mec.CPDAG
	Batch     int
	K         int
	Objective objective.Func
	Smart     bool // structure-aware builder
	AllK      bool // try cap sizes 1..K with the agnostic builder
	RNG       *rand.Rand
}

// Design produces the intervention batch.
func (s *SS) Design(ctx context.Context) (mec.Batch, error) {
	var (
		best      mec.Batch
		bestScore = math.Inf(-1)
	)
	for _, kc := range capRange(s.Smart, s.AllK, s.K) {
		ss := buildSystem(s.CPDAG, s.Smart, kc)
		if len(ss) == 0 {
			observability.Selector().OnFallback(ctx, "ss-greedy", "empty separating system")
			return randomFallback(s.CPDAG.N(), s.Batch, s.K, s.RNG), nil
		}

		var batch mec.Batch
		for slot := 0; slot < s.Batch; slot++ {
			var bestCand mec.Intervention
			bestCandScore := math.Inf(-1)
			for _, cand := range ss {
				score, err := s.Objective(ctx, append(append(mec.Batch{}, batch...), cand))
				if err != nil {
					return nil, err
				}
				observability.Selector().OnCandidateEvaluated(ctx, "ss-greedy", score)
				if score > bestCandScore {
					bestCandScore = score
					bestCand = cand
				}
			}
			batch = append(batch, bestCand)
		}

		score, err := s.Objective(ctx, batch)
		if err != nil {
			return nil, err
		}
		if score > bestScore {
			bestScore = score
			best = batch
		}
	}
	return best, nil
}

// capRange lists the cap sizes a separating-system selector tries.
func capRange(smart, allK bool, k int) []int {
	if smart || !allK {
		return []int{k}
	}
	out := make([]int, 0, k)
	for kc := 1; kc <= k; kc++ {
		out = append(out, kc)
	}
	return out
}

// buildSystem dispatches to the structure-aware or agnostic builder.
func buildSystem(c *mec.CPDAG, smart bool, k int) []mec.Intervention {
	if smart {
		return sepsys.Structured(c, k)
	}
	return sepsys.Construct(c.N(), k)
}

// randomFallback replaces an empty separating system with uniformly
// random interventions of exactly k node draws (repeats allowed).
func randomFallback(n, nb, k int, rng *rand.Rand) mec.Batch {
	batch := make(mec.Batch, 0, nb)
	for i := 0; i < nb; i++ {
		iv := make(mec.Intervention, k)
		for j := range iv {
			iv[j] = rng.IntN(n)
		}
		batch = append(batch, iv)
	}
	return batch
}

// argmaxUniform picks uniformly among the indices attaining the maximum.
func argmaxUniform(values []float64, rng *rand.Rand) int {
	best := math.Inf(-1)
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	var ties []int
	for i, v := range values {
		if v == best {
			ties = append(ties, i)
		}
	}
	return ties[rng.IntN(len(ties))]
}
