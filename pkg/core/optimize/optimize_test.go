package optimize

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/causalkit/intervene/pkg/core/estimate"
	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	interrors "github.com/causalkit/intervene/pkg/errors"
)

type fixedSampler struct {
	dags []*mec.DAG
}

func (s *fixedSampler) Sample(c *mec.CPDAG, required []mec.Edge, count int, exact bool) ([]*mec.DAG, error) {
	if count >= len(s.dags) {
		return s.dags, nil
	}
	return s.dags[:count], nil
}

func (s *fixedSampler) Enumerate(c *mec.CPDAG) ([]*mec.DAG, error) {
	return s.dags, nil
}

func chainDAG(n int) *mec.DAG {
	d := mec.NewDAG(n)
	for i := 0; i < n-1; i++ {
		d.AddEdge(i, i+1)
	}
	return d
}

func TestDirection_PicksTopCoordinate(t *testing.T) {
	v, err := Direction([]float64{1, 0}, 1, []float64{1, 1})
	if err != nil {
		t.Fatalf("Direction() error = %v", err)
	}
	if math.Abs(v[0]-1) > 1e-8 || math.Abs(v[1]) > 1e-8 {
		t.Errorf("Direction() = %v, want [1 0]", v)
	}
}

func TestDirection_RespectsUpperBounds(t *testing.T) {
	v, err := Direction([]float64{1, 1}, 2, []float64{0.25, 1})
	if err != nil {
		t.Fatalf("Direction() error = %v", err)
	}
	if math.Abs(v[0]-0.25) > 1e-8 || math.Abs(v[1]-1) > 1e-8 {
		t.Errorf("Direction() = %v, want [0.25 1]", v)
	}
}

func TestDirection_BudgetBinds(t *testing.T) {
	v, err := Direction([]float64{1, 1, 1}, 1, []float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Direction() error = %v", err)
	}
	if sum := floats.Sum(v); math.Abs(sum-1) > 1e-8 {
		t.Errorf("sum(v) = %v, want 1", sum)
	}
	for i, vi := range v {
		if vi < -1e-8 || vi > 1+1e-8 {
			t.Errorf("v[%d] = %v out of [0,1]", i, vi)
		}
	}
}

func TestCheckBudget(t *testing.T) {
	if err := checkBudget([]float64{0.5, 0.55}, 1); err != nil {
		t.Errorf("checkBudget within slack = %v, want nil", err)
	}
	err := checkBudget([]float64{1, 0.2}, 1)
	var cerr *interrors.ConstraintError
	if err == nil {
		t.Fatal("checkBudget past slack = nil, want ConstraintError")
	}
	if !asConstraintError(err, &cerr) {
		t.Fatalf("checkBudget error type = %T", err)
	}
	if cerr.Bound != 1 {
		t.Errorf("Bound = %v, want 1", cerr.Bound)
	}
}

func asConstraintError(err error, target **interrors.ConstraintError) bool {
	ce, ok := err.(*interrors.ConstraintError)
	if ok {
		*target = ce
	}
	return ok
}

// chainSetup wires a deterministic objective and estimator over the
// 3-chain MEC: the sampler always returns the true DAG.
func chainSetup() (*mec.CPDAG, *estimate.Estimator, objective.Func) {
	d := chainDAG(3)
	c := mec.Observational(d)
	sampler := &fixedSampler{dags: []*mec.DAG{d}}
	est := &estimate.Estimator{
		CPDAG:   c,
		Sampler: sampler,
		Samples: 1,
		Repeats: 1,
		RNG:     rand.New(rand.NewPCG(11, 13)),
	}
	obj := (&objective.Estimator{CPDAG: c, Sampler: sampler, Samples: 1}).Func()
	return c, est, obj
}

func TestContinuousGreedy_ChainSingleSlot(t *testing.T) {
	_, est, obj := chainSetup()
	g := &ContinuousGreedy{
		N:         3,
		Batch:     1,
		K:         1,
		Objective: obj,
		Gradient:  est.Gradient,
		Steps:     25,
		Trials:    2,
		RNG:       rand.New(rand.NewPCG(17, 19)),
	}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}
	if len(batch[0]) > 1 {
		t.Fatalf("intervention %v exceeds cap 1", batch[0])
	}
	// Both high-gradient nodes fully resolve the chain.
	score, err := obj(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if score != 2 {
		t.Errorf("objective(batch) = %v, want 2 (batch %v)", score, batch)
	}
}

func TestSSContinuous_Chain(t *testing.T) {
	_, est, obj := chainSetup()
	g := &SSContinuous{
		SS:        []mec.Intervention{{0}, {1}, {2}},
		Batch:     1,
		Objective: obj,
		Gradient:  est.GradientSS,
		Steps:     25,
		Trials:    2,
		RNG:       rand.New(rand.NewPCG(23, 29)),
	}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}
	score, err := obj(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if score != 2 {
		t.Errorf("objective(batch) = %v, want 2 (batch %v)", score, batch)
	}
}

func TestSSContinuous_WholeSystemWhenSmall(t *testing.T) {
	ss := []mec.Intervention{{0}, {1}}
	g := &SSContinuous{SS: ss, Batch: 2}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want the whole system", len(batch))
	}
}

func TestSSContinuous_EmptySystem(t *testing.T) {
	g := &SSContinuous{Batch: 2}
	_, err := g.Design(context.Background())
	if !interrors.Is(err, interrors.ErrCodeEmptySeparatingSystem) {
		t.Errorf("Design() error = %v, want EMPTY_SEPARATING_SYSTEM", err)
	}
}

func TestSCGPP_ChainSingleSlot(t *testing.T) {
	_, est, obj := chainSetup()
	g := &SCGPP{
		N:         3,
		Batch:     1,
		K:         1,
		Objective: obj,
		Gradient:  est.Gradient,
		Hessian:   est.Hessian,
		Steps:     10,
		M0:        2,
		M:         2,
		Trials:    2,
		RNG:       rand.New(rand.NewPCG(31, 37)),
	}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}
	if len(batch[0]) > 1 {
		t.Fatalf("intervention %v exceeds cap 1", batch[0])
	}
	score, err := obj(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if score < 1 {
		t.Errorf("objective(batch) = %v, want at least 1", score)
	}
}

func TestSCGPPSS_WholeSystemWhenSmall(t *testing.T) {
	ss := []mec.Intervention{{0, 1}, {2}}
	g := &SCGPPSS{SS: ss, Batch: 3}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want the whole system", len(batch))
	}
}

func TestSCGPPSS_Chain(t *testing.T) {
	_, est, obj := chainSetup()
	g := &SCGPPSS{
		SS:        []mec.Intervention{{0}, {1}, {2}},
		Batch:     1,
		Objective: obj,
		Gradient:  est.GradientSS,
		Hessian:   est.HessianSS,
		Steps:     10,
		M0:        2,
		M:         2,
		Trials:    2,
		RNG:       rand.New(rand.NewPCG(41, 43)),
	}
	batch, err := g.Design(context.Background())
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}
	score, err := obj(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if score < 1 {
		t.Errorf("objective(batch) = %v, want at least 1", score)
	}
}
