package objective

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/causalkit/intervene/pkg/core/mec"
	interrors "github.com/causalkit/intervene/pkg/errors"
	"github.com/causalkit/intervene/pkg/observability"
)

// Member is one weighted draw in a Bag: a DAG taken to be the truth, the
// CPDAG it was drawn under, and the probability weight of the draw.
type Member struct {
	CPDAG  *mec.CPDAG
	DAG    *mec.DAG
	Weight float64
}

// Bag is a fixed weighted sample of (CPDAG, DAG) pairs. All evaluations on
// a Bag share the same draws, giving selectors a stable comparison basis
// across candidates (fresh-sample estimators do not).
//
// Workers > 1 evaluates members concurrently. Results are gathered
// positionally before reduction, so the value is identical to the serial
// evaluation.
type Bag struct {
	Members []Member
	IsTree  bool
	Workers int
}

// Evaluate computes the weighted edge-orientation objective of the batch
// over the bag: for each member, the directed-edge gain of simulating the
// batch on the member's DAG relative to the member's own CPDAG.
func (b *Bag) Evaluate(ctx context.Context, batch mec.Batch) (float64, error) {
	if len(b.Members) == 0 {
		return 0, interrors.New(interrors.ErrCodeEmptySample, "empty bag")
	}

	values, err := b.memberScores(batch)
	if err != nil {
		return 0, err
	}
	out := 0.0
	for i, m := range b.Members {
		out += m.Weight * float64(values[i]-m.CPDAG.Score())
	}
	observability.Estimator().OnObjectiveEvaluated(ctx, len(batch), out)
	return out, nil
}

// Func returns the bag's edge objective as a closure.
func (b *Bag) Func() Func {
	return b.Evaluate
}

// EvaluateMI computes the mutual-information objective of the batch over
// the bag: the entropy of the weight distribution minus the expected
// posterior entropy once the batch's revelations rule out members whose
// pre- or post-intervention CPDAG disagrees with the presumed truth.
func (b *Bag) EvaluateMI(ctx context.Context, batch mec.Batch) (float64, error) {
	if len(b.Members) == 0 {
		return 0, interrors.New(interrors.ErrCodeEmptySample, "empty bag")
	}
	m := len(b.Members)
	opts := mec.SimulateOptions{Hard: true, IsTree: b.IsTree}

	posteriors := make([]*mec.CPDAG, m)
	for i, member := range b.Members {
		c := member.CPDAG.Clone()
		if err := mec.SimulateIntervention(member.DAG, c, batch, opts); err != nil {
			return 0, err
		}
		posteriors[i] = c
	}

	weights := make([]float64, m)
	for i, member := range b.Members {
		weights[i] = member.Weight
	}
	out := entropyBits(weights)

	scratch := make([]float64, m)
	for i := range b.Members {
		copy(scratch, weights)
		for j := range b.Members {
			if j == i {
				continue
			}
			if !b.Members[i].CPDAG.Equal(b.Members[j].CPDAG) {
				scratch[j] = 0
				continue
			}
			if !posteriors[i].Equal(posteriors[j]) {
				scratch[j] = 0
			}
		}
		out -= weights[i] * entropyBits(scratch)
	}

	observability.Estimator().OnObjectiveEvaluated(ctx, len(batch), out)
	return out, nil
}

// MIFunc returns the bag's mutual-information objective as a closure.
func (b *Bag) MIFunc() Func {
	return b.EvaluateMI
}

// memberScores returns the post-intervention directed-edge count for every
// member, serial or across Workers goroutines.
func (b *Bag) memberScores(batch mec.Batch) ([]int, error) {
	opts := mec.SimulateOptions{Hard: true, IsTree: b.IsTree}
	values := make([]int, len(b.Members))

	if b.Workers <= 1 {
		for i, m := range b.Members {
			c := m.CPDAG.Clone()
			if err := mec.SimulateIntervention(m.DAG, c, batch, opts); err != nil {
				return nil, err
			}
			values[i] = c.Score()
		}
		return values, nil
	}

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, b.Workers)
		mu   sync.Mutex
		ferr error
	)
	for i, m := range b.Members {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, m Member) {
			defer wg.Done()
			defer func() { <-sem }()
			c := m.CPDAG.Clone()
			if err := mec.SimulateIntervention(m.DAG, c, batch, opts); err != nil {
				mu.Lock()
				if ferr == nil {
					ferr = err
				}
				mu.Unlock()
				return
			}
			values[i] = c.Score()
		}(i, m)
	}
	wg.Wait()
	if ferr != nil {
		return nil, ferr
	}
	return values, nil
}

// FixedSample draws a Bag of count members up front: each draw picks a
// CPDAG by its weight and samples one DAG from its equivalence class.
// Members carry uniform weight 1/count, matching the empirical
// distribution of the draws.
func FixedSample(ctx context.Context, cpdags []*mec.CPDAG, weights []float64, sampler Sampler, count int, exact, isTree bool, rng *rand.Rand) (*Bag, error) {
	if len(cpdags) == 0 || len(cpdags) != len(weights) {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "got %d CPDAGs and %d weights", len(cpdags), len(weights))
	}
	if count < 1 {
		return nil, interrors.New(interrors.ErrCodeInvalidInput, "sample count %d, need at least 1", count)
	}

	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		c := cpdags[categorical(rng, weights)]
		dags, err := sampler.Sample(c, nil, 1, exact)
		if err != nil {
			return nil, interrors.Wrap(interrors.ErrCodeInternal, err, "sampling equivalence class")
		}
		observability.Estimator().OnSampleDraw(ctx, 1, exact)
		if len(dags) == 0 {
			return nil, interrors.New(interrors.ErrCodeEmptySample, "sampler returned no DAGs")
		}
		members = append(members, Member{CPDAG: c, DAG: dags[0], Weight: 1 / float64(count)})
	}
	return &Bag{Members: members, IsTree: isTree}, nil
}

// categorical draws an index proportionally to weights.
func categorical(rng *rand.Rand, weights []float64) int {
	total := floats.Sum(weights)
	r := rng.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

// entropyBits is the base-2 Shannon entropy of an unnormalized weight
// vector. An all-zero vector has zero entropy.
func entropyBits(weights []float64) float64 {
	total := floats.Sum(weights)
	if total <= 0 {
		return 0
	}
	p := make([]float64, len(weights))
	for i, w := range weights {
		p[i] = w / total
	}
	return stat.Entropy(p) / math.Ln2
}
