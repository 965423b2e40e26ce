package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/causalkit/intervene/pkg/core/estimate"
	"github.com/causalkit/intervene/pkg/core/greedy"
	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	"github.com/causalkit/intervene/pkg/core/optimize"
	"github.com/causalkit/intervene/pkg/core/sepsys"
	interrors "github.com/causalkit/intervene/pkg/errors"
)

// Runner executes design runs with shared logging.
//
// The Runner is stateless except for the logger - it doesn't store run
// results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. A nil logger falls back to log.Default().
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Design runs the complete design → score pipeline.
func (r *Runner) Design(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, interrors.Wrap(interrors.ErrCodeInvalidInput, err, "invalid options")
	}

	strategy := Strategy(opts.Params.Strategy)
	result := &Result{Strategy: strategy}
	result.Stats.NodeCount = opts.CPDAG.N()
	result.Stats.UndirectedCount = len(opts.CPDAG.UndirectedEdges())

	r.Logger.Info("designing batch",
		"strategy", strategy,
		"nodes", result.Stats.NodeCount,
		"undirected", result.Stats.UndirectedCount,
		"batch", opts.Params.Batch,
		"k", opts.Params.K)

	obj := opts.objectiveFunc()

	// Stage 1: Design
	designStart := time.Now()
	batch, err := r.dispatch(ctx, &opts, obj)
	if err != nil {
		return nil, err
	}
	result.Batch = batch
	result.Stats.DesignTime = time.Since(designStart)

	r.Logger.Info("designed batch",
		"strategy", strategy,
		"interventions", len(batch),
		"duration", result.Stats.DesignTime)

	// Stage 2: Score
	scoreStart := time.Now()
	scores, err := objective.PrefixScores(ctx, obj, batch)
	if err != nil {
		return nil, interrors.Wrap(interrors.ErrCodeInternal, err, "score designed batch")
	}
	result.PrefixScores = scores
	if len(scores) > 0 {
		result.Score = scores[len(scores)-1]
	}
	result.Stats.ScoreTime = time.Since(scoreStart)

	r.Logger.Info("scored batch",
		"score", result.Score,
		"duration", result.Stats.ScoreTime)

	return result, nil
}

// dispatch runs the strategy named in the options.
func (r *Runner) dispatch(ctx context.Context, opts *Options, obj objective.Func) (mec.Batch, error) {
	p := &opts.Params
	n := opts.CPDAG.N()

	est := &estimate.Estimator{
		CPDAG:   opts.CPDAG,
		Sampler: opts.Sampler,
		Samples: p.Samples,
		Repeats: p.Repeats,
		Exact:   p.Exact,
		IsTree:  p.IsTree,
		RNG:     opts.RNG,
	}

	switch Strategy(p.Strategy) {
	case StrategyRandom:
		return greedy.RandomBatch(opts.CPDAG, p.Batch, p.K, opts.RNG), nil

	case StrategySingleNode:
		s := &greedy.SingleNode{
			CPDAG:   opts.CPDAG,
			Ref:     opts.Ref,
			Sampler: opts.Sampler,
			Samples: p.Samples,
			Batch:   p.Batch,
			Exact:   p.Exact,
			IsTree:  p.IsTree,
		}
		return s.Design(ctx)

	case StrategySSGreedy:
		s := &greedy.SS{
			CPDAG:     opts.CPDAG,
			Batch:     p.Batch,
			K:         p.K,
			Objective: obj,
			Smart:     p.Smart,
			AllK:      p.AllK,
			RNG:       opts.RNG,
		}
		return s.Design(ctx)

	case StrategySSLazy:
		s := &greedy.LazySS{
			CPDAG:     opts.CPDAG,
			Batch:     p.Batch,
			K:         p.K,
			Objective: obj,
			Smart:     p.Smart,
			AllK:      p.AllK,
			RNG:       opts.RNG,
		}
		return s.Design(ctx)

	case StrategyRandomGreedy:
		g := &greedy.LazyRandomGreedy{
			N:         n,
			Batch:     p.Batch,
			K:         p.K,
			Objective: obj,
			RNG:       opts.RNG,
		}
		return g.Design(ctx)

	case StrategyContinuous:
		g := &optimize.ContinuousGreedy{
			N:         n,
			Batch:     p.Batch,
			K:         p.K,
			Objective: obj,
			Gradient:  est.Gradient,
			Steps:     p.Steps,
			Trials:    p.Trials,
			RNG:       opts.RNG,
		}
		return g.Design(ctx)

	case StrategySSContinuous:
		g := &optimize.SSContinuous{
			SS:        r.buildSystem(opts),
			Batch:     p.Batch,
			Objective: obj,
			Gradient:  est.GradientSS,
			Steps:     p.Steps,
			Trials:    p.Trials,
			RNG:       opts.RNG,
		}
		return r.withRandomFallback(ctx, opts, g.Design)

	case StrategySCGPP:
		g := &optimize.SCGPP{
			N:         n,
			Batch:     p.Batch,
			K:         p.K,
			Objective: obj,
			Gradient:  est.Gradient,
			Hessian:   est.Hessian,
			Steps:     p.Steps,
			M0:        p.M0,
			M:         p.M,
			Trials:    p.Trials,
			RNG:       opts.RNG,
		}
		return g.Design(ctx)

	case StrategySCGPPSS:
		g := &optimize.SCGPPSS{
			SS:        r.buildSystem(opts),
			Batch:     p.Batch,
			Objective: obj,
			Gradient:  est.GradientSS,
			Hessian:   est.HessianSS,
			Steps:     p.Steps,
			M0:        p.M0,
			M:         p.M,
			Trials:    p.Trials,
			RNG:       opts.RNG,
		}
		return r.withRandomFallback(ctx, opts, g.Design)

	default:
		return nil, interrors.New(interrors.ErrCodeUnsupported, "strategy %q not implemented", p.Strategy)
	}
}

// buildSystem constructs the separating system for the SS-restricted
// optimizers.
func (r *Runner) buildSystem(opts *Options) []mec.Intervention {
	if opts.Params.Smart {
		return sepsys.Structured(opts.CPDAG, opts.Params.K)
	}
	return sepsys.Construct(opts.CPDAG.N(), opts.Params.K)
}

// withRandomFallback runs a designer and substitutes a random batch when
// the separating system came out empty, matching the discrete selectors.
func (r *Runner) withRandomFallback(ctx context.Context, opts *Options, design func(context.Context) (mec.Batch, error)) (mec.Batch, error) {
	batch, err := design(ctx)
	if interrors.Is(err, interrors.ErrCodeEmptySeparatingSystem) {
		r.Logger.Warn("empty separating system, falling back to random batch",
			"strategy", opts.Params.Strategy)
		return greedy.RandomBatch(opts.CPDAG, opts.Params.Batch, opts.Params.K, opts.RNG), nil
	}
	return batch, err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
