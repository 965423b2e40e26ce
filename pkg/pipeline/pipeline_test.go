package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/causalkit/intervene/pkg/config"
	"github.com/causalkit/intervene/pkg/core/mec"
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

func chainOptions(n int, strategy Strategy) Options {
	d := chainDAG(n)
	return Options{
		Params: config.Params{
			Strategy: string(strategy),
			Batch:    1,
			K:        1,
			Samples:  1,
			Steps:    20,
			Trials:   2,
			M0:       2,
			M:        2,
			AllK:     true,
			Seed:     11,
		},
		CPDAG:   mec.Observational(d),
		Sampler: &fixedSampler{dags: []*mec.DAG{d}},
	}
}

func quietRunner() *Runner {
	return NewRunner(log.NewWithOptions(io.Discard, log.Options{}))
}

func TestValidateStrategy(t *testing.T) {
	tests := []struct {
		strategy Strategy
		wantErr  bool
	}{
		{StrategyRandom, false},
		{StrategySingleNode, false},
		{StrategySSGreedy, false},
		{StrategySSLazy, false},
		{StrategyContinuous, false},
		{StrategySSContinuous, false},
		{StrategySCGPP, false},
		{StrategySCGPPSS, false},
		{StrategyRandomGreedy, false},
		{"invalid", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateStrategy(tt.strategy)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateStrategy(%q) error = %v, wantErr %v", tt.strategy, err, tt.wantErr)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	// Missing CPDAG
	opts := Options{Params: config.Params{Strategy: "random", Batch: 1, K: 1}}
	if err := opts.ValidateAndSetDefaults(); !interrors.Is(err, interrors.ErrCodeInvalidInput) {
		t.Errorf("missing cpdag: error = %v, want INVALID_INPUT", err)
	}

	// Missing sampler for a gradient strategy
	opts = chainOptions(3, StrategyContinuous)
	opts.Sampler = nil
	if err := opts.ValidateAndSetDefaults(); !interrors.Is(err, interrors.ErrCodeInvalidInput) {
		t.Errorf("missing sampler: error = %v, want INVALID_INPUT", err)
	}

	// Defaults applied
	opts = chainOptions(3, StrategySSLazy)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.Ref == nil || opts.Logger == nil || opts.RNG == nil {
		t.Error("defaults not applied for Ref, Logger, or RNG")
	}
}

func TestDesign_SSLazyChain(t *testing.T) {
	result, err := quietRunner().Design(context.Background(), chainOptions(3, StrategySSLazy))
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if result.Strategy != StrategySSLazy {
		t.Errorf("Strategy = %q, want %q", result.Strategy, StrategySSLazy)
	}
	if len(result.Batch) != 1 {
		t.Fatalf("len(Batch) = %d, want 1", len(result.Batch))
	}
	if result.Score != 2 {
		t.Errorf("Score = %v, want 2 (batch %v)", result.Score, result.Batch)
	}
	if len(result.PrefixScores) != 1 || result.PrefixScores[0] != result.Score {
		t.Errorf("PrefixScores = %v, want [%v]", result.PrefixScores, result.Score)
	}
	if result.Stats.NodeCount != 3 || result.Stats.UndirectedCount != 2 {
		t.Errorf("Stats = %+v, want 3 nodes, 2 undirected", result.Stats)
	}
}

func TestDesign_AllStrategiesProduceBatches(t *testing.T) {
	strategies := []Strategy{
		StrategyRandom,
		StrategySingleNode,
		StrategySSGreedy,
		StrategySSLazy,
		StrategyContinuous,
		StrategySSContinuous,
		StrategySCGPP,
		StrategySCGPPSS,
		StrategyRandomGreedy,
	}
	for _, strategy := range strategies {
		result, err := quietRunner().Design(context.Background(), chainOptions(3, strategy))
		if err != nil {
			t.Errorf("%s: Design() error = %v", strategy, err)
			continue
		}
		if len(result.Batch) != 1 {
			t.Errorf("%s: len(Batch) = %d, want 1", strategy, len(result.Batch))
		}
		if len(result.PrefixScores) != len(result.Batch) {
			t.Errorf("%s: PrefixScores length %d != batch length %d", strategy, len(result.PrefixScores), len(result.Batch))
		}
	}
}

func TestDesign_PrefixScoresCoverBatch(t *testing.T) {
	opts := chainOptions(5, StrategySSGreedy)
	opts.Params.Batch = 3
	result, err := quietRunner().Design(context.Background(), opts)
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(result.PrefixScores) != 3 {
		t.Fatalf("len(PrefixScores) = %d, want 3", len(result.PrefixScores))
	}
	for i := 1; i < len(result.PrefixScores); i++ {
		if result.PrefixScores[i] < result.PrefixScores[i-1] {
			t.Errorf("prefix scores decreased: %v", result.PrefixScores)
			break
		}
	}
	if result.Score != result.PrefixScores[2] {
		t.Errorf("Score = %v, want last prefix %v", result.Score, result.PrefixScores[2])
	}
}

func TestDesign_EmptySystemFallsBackToRandom(t *testing.T) {
	// A single-node graph admits no separating system.
	opts := chainOptions(1, StrategySSContinuous)
	result, err := quietRunner().Design(context.Background(), opts)
	if err != nil {
		t.Fatalf("Design() error = %v", err)
	}
	if len(result.Batch) != 1 {
		t.Errorf("len(Batch) = %d, want 1 fallback intervention", len(result.Batch))
	}
}

func TestDesign_ReproducibleUnderSeed(t *testing.T) {
	a, err := quietRunner().Design(context.Background(), chainOptions(4, StrategyRandom))
	if err != nil {
		t.Fatal(err)
	}
	b, err := quietRunner().Design(context.Background(), chainOptions(4, StrategyRandom))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Batch) != len(b.Batch) {
		t.Fatalf("batch lengths differ: %d vs %d", len(a.Batch), len(b.Batch))
	}
	for i := range a.Batch {
		if len(a.Batch[i]) != len(b.Batch[i]) {
			t.Fatalf("batches differ: %v vs %v", a.Batch, b.Batch)
		}
		for j := range a.Batch[i] {
			if a.Batch[i][j] != b.Batch[i][j] {
				t.Fatalf("batches differ: %v vs %v", a.Batch, b.Batch)
			}
		}
	}
}
