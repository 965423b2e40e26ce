package greedy

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	"github.com/causalkit/intervene/pkg/observability"
)

// LazySS is the lazy variant of [SS]: marginal gains are non-increasing as
// the batch grows, so each candidate's last observed gain is kept as an
// upper bound and candidates are re-evaluated best-bound-first, stopping
// as soon as the freshest evaluation still tops every cached bound. Ties
// among maximal gains break uniformly at random.
type LazySS struct {
	CPDAG     *mec.CPDAG
	Batch     int
	K         int
	Objective objective.Func
	Smart     bool
	AllK      bool
	RNG       *rand.Rand
}

// Design produces the intervention batch.
func (s *LazySS) Design(ctx context.Context) (mec.Batch, error) {
	var (
		best      mec.Batch
		bestScore = math.Inf(-1)
	)
	for _, kc := range capRange(s.Smart, s.AllK, s.K) {
		ss := buildSystem(s.CPDAG, s.Smart, kc)
		if len(ss) == 0 {
			observability.Selector().OnFallback(ctx, "ss-lazy", "empty separating system")
			return randomFallback(s.CPDAG.N(), s.Batch, s.K, s.RNG), nil
		}

		batch, err := s.selectFrom(ctx, ss)
		if err != nil {
			return nil, err
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

// selectFrom runs one lazy-greedy pass over a fixed candidate pool.
func (s *LazySS) selectFrom(ctx context.Context, ss []mec.Intervention) (mec.Batch, error) {
	delta := make([]float64, len(ss))
	for i := range delta {
		delta[i] = math.Inf(1)
	}
	currentScore := 0.0

	var batch mec.Batch
	for slot := 0; slot < s.Batch; slot++ {
		evaluated := 0
		for _, j := range byBoundDesc(delta) {
			cand := append(append(mec.Batch{}, batch...), ss[j])
			score, err := s.Objective(ctx, cand)
			if err != nil {
				return nil, err
			}
			evaluated++
			gain := score - currentScore
			observability.Selector().OnCandidateEvaluated(ctx, "ss-lazy", gain)
			delta[j] = gain
			// the freshest gain beating every cached bound cannot be
			// overtaken: bounds only shrink on re-evaluation
			if gain >= maxOf(delta) {
				break
			}
		}
		observability.Selector().OnLazySkip(ctx, "ss-lazy", len(ss)-evaluated)

		choice := argmaxUniform(delta, s.RNG)
		currentScore += delta[choice]
		batch = append(batch, ss[choice])
	}
	return batch, nil
}

// byBoundDesc orders candidate indices by cached bound, best first, index
// ascending on ties.
func byBoundDesc(delta []float64) []int {
	order := make([]int, len(delta))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return delta[order[a]] > delta[order[b]]
	})
	return order
}

func maxOf(values []float64) float64 {
	best := math.Inf(-1)
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}

// LazyRandomGreedy is the lazy discrete random greedy selector for the
// possibly non-monotone regime: each intervention is assembled one element
// at a time from the node ground set padded with K zero-value
// placeholders; each pick refreshes the top 2K candidates by cached
// marginal gain and then samples uniformly among the top K. Drawing a
// placeholder leaves the slot empty, which is what grants the
// random-greedy approximation guarantee without monotonicity.
type LazyRandomGreedy struct {
	N         int
	Batch     int
	K         int
	Objective objective.Func
	RNG       *rand.Rand
}

// Design produces the intervention batch.
func (g *LazyRandomGreedy) Design(ctx context.Context) (mec.Batch, error) {
	var batch mec.Batch
	for slot := 0; slot < g.Batch; slot++ {
		total := g.N + g.K
		delta := make([]float64, total)
		for i := range delta {
			delta[i] = math.Inf(1)
		}
		currentScore := 0.0

		var intervention mec.Intervention
		for pick := 0; pick < g.K; pick++ {
			// Refresh the top 2K cached bounds. Never-evaluated candidates
			// sort first and must all be refreshed before sampling, so the
			// first pick degenerates to a full evaluation pass.
			refreshed := 0
			for _, j := range byBoundDesc(delta) {
				if refreshed >= 2*g.K && !hasUnevaluated(delta) {
					break
				}
				switch {
				case intervention.Contains(j):
					delta[j] = math.Inf(-1)
					continue
				case j >= g.N:
					delta[j] = 0
				default:
					cand := append(append(mec.Batch{}, batch...), append(append(mec.Intervention{}, intervention...), j))
					score, err := g.Objective(ctx, cand)
					if err != nil {
						return nil, err
					}
					observability.Selector().OnCandidateEvaluated(ctx, "lazy-drg", score-currentScore)
					delta[j] = score - currentScore
				}
				refreshed++
			}

			choice := topKUniform(delta, g.K, g.RNG)
			currentScore += delta[choice]
			if choice < g.N {
				intervention = append(intervention, choice)
			}
		}
		batch = append(batch, intervention)
	}
	return batch, nil
}

// hasUnevaluated reports whether any candidate still carries its initial
// infinite bound.
func hasUnevaluated(delta []float64) bool {
	for _, v := range delta {
		if math.IsInf(v, 1) {
			return true
		}
	}
	return false
}

// topKUniform samples uniformly among the k indices with the highest
// cached gains.
func topKUniform(delta []float64, k int, rng *rand.Rand) int {
	order := byBoundDesc(delta)
	if k > len(order) {
		k = len(order)
	}
	return order[rng.IntN(k)]
}
