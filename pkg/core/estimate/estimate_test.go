package estimate

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

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

// chainEstimator builds a deterministic estimator over the 3-chain: the
// sampler always returns the true DAG, so expected values are exact.
func chainEstimator() *Estimator {
	d := chainDAG(3)
	return &Estimator{
		CPDAG:   mec.Observational(d),
		Sampler: &fixedSampler{dags: []*mec.DAG{d}},
		Samples: 1,
		Repeats: 1,
		RNG:     rand.New(rand.NewPCG(1, 2)),
	}
}

func TestGradient_ChainAtZero(t *testing.T) {
	// At x = 0 the Bernoulli mask is empty, so grad[v] is the marginal
	// value of the singleton intervention {v}: 2 for the chain ends that
	// cascade, 1 for the sink.
	e := chainEstimator()
	grad, err := e.Gradient(context.Background(), nil, mat.NewVecDense(3, nil))
	if err != nil {
		t.Fatalf("Gradient() error = %v", err)
	}
	want := []float64{2, 2, 1}
	for v, w := range want {
		if math.Abs(grad.AtVec(v)-w) > 1e-12 {
			t.Errorf("grad[%d] = %v, want %v", v, grad.AtVec(v), w)
		}
	}
}

func TestGradient_DimensionMismatch(t *testing.T) {
	e := chainEstimator()
	_, err := e.Gradient(context.Background(), nil, mat.NewVecDense(4, nil))
	if !interrors.Is(err, interrors.ErrCodeInvalidInput) {
		t.Errorf("Gradient() error = %v, want INVALID_INPUT", err)
	}
}

func TestGradient_EmptySample(t *testing.T) {
	e := chainEstimator()
	e.Sampler = &fixedSampler{}
	_, err := e.Gradient(context.Background(), nil, mat.NewVecDense(3, nil))
	if !interrors.Is(err, interrors.ErrCodeEmptySample) {
		t.Errorf("Gradient() error = %v, want EMPTY_SAMPLE", err)
	}
}

func TestGradientSS_ChainAtZero(t *testing.T) {
	e := chainEstimator()
	ss := []mec.Intervention{{0}, {2}}
	grad, err := e.GradientSS(context.Background(), mat.NewVecDense(2, nil), ss)
	if err != nil {
		t.Fatalf("GradientSS() error = %v", err)
	}
	want := []float64{2, 1}
	for v, w := range want {
		if math.Abs(grad.AtVec(v)-w) > 1e-12 {
			t.Errorf("grad[%d] = %v, want %v", v, grad.AtVec(v), w)
		}
	}
}

func halfVec(n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, 0.5)
	}
	return v
}

func TestHessian_ChainAtZero(t *testing.T) {
	// With x = 0 and thresholds at 0.5 the conditioning set is empty, so
	// entry (i,j) is the exact second difference of singleton values.
	e := chainEstimator()
	hess, err := e.Hessian(context.Background(), nil, mat.NewVecDense(3, nil), halfVec(3))
	if err != nil {
		t.Fatalf("Hessian() error = %v", err)
	}

	want := map[[2]int]float64{
		{0, 1}: -2, // f{0,1}=2, f{0}=2, f{1}=2, f{}=0
		{0, 2}: -1, // f{0,2}=2, f{0}=2, f{2}=1
		{1, 2}: -1, // f{1,2}=2, f{1}=2, f{2}=1
	}
	for ij, w := range want {
		if got := hess.At(ij[0], ij[1]); math.Abs(got-w) > 1e-12 {
			t.Errorf("hess[%d,%d] = %v, want %v", ij[0], ij[1], got, w)
		}
	}
	// Lower triangle stays zero.
	for i := 0; i < 3; i++ {
		for j := 0; j <= i; j++ {
			if hess.At(i, j) != 0 {
				t.Errorf("hess[%d,%d] = %v, want 0", i, j, hess.At(i, j))
			}
		}
	}
}

func TestHessianSS_ChainAtZero(t *testing.T) {
	e := chainEstimator()
	ss := []mec.Intervention{{0}, {2}}
	hess, err := e.HessianSS(context.Background(), mat.NewVecDense(2, nil), halfVec(2), ss)
	if err != nil {
		t.Fatalf("HessianSS() error = %v", err)
	}
	// f({0},{2}) = 2, f({0}) = 2, f({2}) = 1, f() = 0.
	if got := hess.At(0, 1); math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("hess[0,1] = %v, want -1", got)
	}
}

func TestBagGradient_SingleMember(t *testing.T) {
	d := chainDAG(3)
	c := mec.Observational(d)
	e := &BagEstimator{
		Bag:     &objective.Bag{Members: []objective.Member{{CPDAG: c, DAG: d, Weight: 1}}},
		Repeats: 1,
		RNG:     rand.New(rand.NewPCG(3, 4)),
	}
	grad, err := e.Gradient(context.Background(), nil, mat.NewVecDense(3, nil))
	if err != nil {
		t.Fatalf("Gradient() error = %v", err)
	}
	want := []float64{2, 2, 1}
	for v, w := range want {
		if math.Abs(grad.AtVec(v)-w) > 1e-12 {
			t.Errorf("grad[%d] = %v, want %v", v, grad.AtVec(v), w)
		}
	}
}

func TestBagGradient_EmptyBag(t *testing.T) {
	e := &BagEstimator{Bag: &objective.Bag{}, RNG: rand.New(rand.NewPCG(0, 0))}
	_, err := e.Gradient(context.Background(), nil, mat.NewVecDense(3, nil))
	if !interrors.Is(err, interrors.ErrCodeEmptySample) {
		t.Errorf("Gradient() error = %v, want EMPTY_SAMPLE", err)
	}
}

func TestBagHessianSS_SingleMember(t *testing.T) {
	d := chainDAG(3)
	c := mec.Observational(d)
	e := &BagEstimator{
		Bag:     &objective.Bag{Members: []objective.Member{{CPDAG: c, DAG: d, Weight: 1}}},
		Repeats: 1,
		RNG:     rand.New(rand.NewPCG(5, 6)),
	}
	ss := []mec.Intervention{{0}, {2}}
	hess, err := e.HessianSS(context.Background(), mat.NewVecDense(2, nil), halfVec(2), ss)
	if err != nil {
		t.Fatalf("HessianSS() error = %v", err)
	}
	if got := hess.At(0, 1); math.Abs(got-(-1)) > 1e-12 {
		t.Errorf("hess[0,1] = %v, want -1", got)
	}
}
