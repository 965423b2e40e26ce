// Package objective defines the scalar objectives that drive intervention
// selection: the expected number of edge orientations a batch of
// interventions reveals, estimated over draws from the Markov equivalence
// class of the current CPDAG.
//
// The package never samples equivalence classes itself. Callers supply a
// [Sampler]; the estimators consume whatever DAGs it returns without
// validation. A sampler returning no DAGs is a degenerate but recoverable
// condition and surfaces as an EMPTY_SAMPLE error.
package objective

import (
	"context"

	"github.com/causalkit/intervene/pkg/core/mec"
	interrors "github.com/causalkit/intervene/pkg/errors"
	"github.com/causalkit/intervene/pkg/observability"
)

// Sampler draws member DAGs from the Markov equivalence class of a CPDAG.
//
// Sample returns count DAGs consistent with the CPDAG and with every edge
// in required. Exact selects exact uniform sampling over the class; inexact
// samplers may trade uniformity for speed. Enumerate returns every member
// of the class and is only feasible for small classes.
type Sampler interface {
	Sample(c *mec.CPDAG, required []mec.Edge, count int, exact bool) ([]*mec.DAG, error)
	Enumerate(c *mec.CPDAG) ([]*mec.DAG, error)
}

// Func is the scalar objective consumed by all selectors and optimizers:
// the estimated value of committing to the given batch.
type Func func(ctx context.Context, batch mec.Batch) (float64, error)

// Estimator is the Monte-Carlo edge-orientation objective: the expected
// gain in directed-edge count over DAGs sampled from the equivalence class
// of CPDAG, relative to the Ref baseline.
type Estimator struct {
	CPDAG   *mec.CPDAG
	Ref     *mec.CPDAG // baseline for the gain; nil means CPDAG itself
	Sampler Sampler
	Samples int
	Exact   bool
	IsTree  bool
}

// Evaluate estimates the objective for one batch. Each call draws a fresh
// sample, so repeated calls on the same batch vary; selectors that need a
// fixed comparison basis should use EvaluateOn or a Bag instead.
func (e *Estimator) Evaluate(ctx context.Context, batch mec.Batch) (float64, error) {
	if e.Samples < 1 {
		return 0, interrors.New(interrors.ErrCodeInvalidInput, "sample count %d, need at least 1", e.Samples)
	}
	dags, err := e.Sampler.Sample(e.CPDAG, nil, e.Samples, e.Exact)
	if err != nil {
		return 0, interrors.Wrap(interrors.ErrCodeInternal, err, "sampling equivalence class")
	}
	observability.Estimator().OnSampleDraw(ctx, e.Samples, e.Exact)
	if len(dags) == 0 {
		return 0, interrors.New(interrors.ErrCodeEmptySample, "sampler returned no DAGs for %d requested", e.Samples)
	}

	ref := e.Ref
	if ref == nil {
		ref = e.CPDAG
	}
	out, err := EvaluateOn(ctx, e.CPDAG, batch, ref, dags, e.IsTree)
	if err != nil {
		return 0, err
	}
	return out, nil
}

// Func returns the estimator as an objective closure.
func (e *Estimator) Func() Func {
	return e.Evaluate
}

// EvaluateOn computes the edge-orientation objective of a batch against a
// fixed list of DAGs: the mean over the list of the directed-edge count
// after simulating the batch, minus the reference CPDAG's count.
func EvaluateOn(ctx context.Context, c *mec.CPDAG, batch mec.Batch, ref *mec.CPDAG, dags []*mec.DAG, isTree bool) (float64, error) {
	if len(dags) == 0 {
		return 0, interrors.New(interrors.ErrCodeEmptySample, "empty DAG list")
	}
	refScore := ref.Score()
	opts := mec.SimulateOptions{Hard: true, IsTree: isTree}

	out := 0.0
	for _, dag := range dags {
		c2 := c.Clone()
		if err := mec.SimulateIntervention(dag, c2, batch, opts); err != nil {
			return 0, err
		}
		out += float64(c2.Score()-refScore) / float64(len(dags))
	}
	observability.Estimator().OnObjectiveEvaluated(ctx, len(batch), out)
	return out, nil
}

// PrefixScores evaluates every prefix of a designed batch: out[i] is the
// objective of batch[:i+1]. Useful for reporting how value accrues per
// intervention committed.
func PrefixScores(ctx context.Context, f Func, batch mec.Batch) ([]float64, error) {
	out := make([]float64, len(batch))
	for i := range batch {
		v, err := f(ctx, batch[:i+1])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
