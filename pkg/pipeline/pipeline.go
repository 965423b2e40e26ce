// Package pipeline orchestrates intervention-batch design runs.
//
// This package wires the estimators, optimizers, and selectors into a
// single entry point that library callers and experiment harnesses share.
// By centralizing the dispatch we ensure every strategy is configured,
// seeded, and scored the same way.
//
// # Architecture
//
// A run consists of two stages:
//
//  1. Design: the selected strategy produces an intervention batch
//  2. Score: the batch (and each of its prefixes) is re-scored with the
//     run objective
//
// # Usage
//
// Create a Runner and execute a run:
//
//	runner := pipeline.NewRunner(logger)
//	opts := pipeline.Options{
//	    Params:  config.Params{Strategy: "ss-lazy", Batch: 3, K: 2},
//	    CPDAG:   cpdag,
//	    Sampler: sampler,
//	}
//	result, err := runner.Design(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batch := result.Batch
package pipeline

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/causalkit/intervene/pkg/config"
	"github.com/causalkit/intervene/pkg/core/mec"
	"github.com/causalkit/intervene/pkg/core/objective"
	interrors "github.com/causalkit/intervene/pkg/errors"
)

// Strategy names a batch-design algorithm.
type Strategy string

// Supported design strategies.
const (
	// StrategyRandom draws interventions uniformly among ambiguous nodes.
	StrategyRandom Strategy = "random"

	// StrategySingleNode is single-node greedy with per-round resampling.
	StrategySingleNode Strategy = "single-node"

	// StrategySSGreedy is eager greedy over a separating system.
	StrategySSGreedy Strategy = "ss-greedy"

	// StrategySSLazy is lazy greedy over a separating system.
	StrategySSLazy Strategy = "ss-lazy"

	// StrategyContinuous is the continuous greedy ascent over node space.
	StrategyContinuous Strategy = "continuous"

	// StrategySSContinuous is the continuous ascent restricted to a
	// separating system.
	StrategySSContinuous Strategy = "ss-continuous"

	// StrategySCGPP is the variance-reduced ascent over node space.
	StrategySCGPP Strategy = "scg++"

	// StrategySCGPPSS is the variance-reduced ascent restricted to a
	// separating system.
	StrategySCGPPSS Strategy = "scg++-ss"

	// StrategyRandomGreedy is lazy discrete random greedy.
	StrategyRandomGreedy Strategy = "random-greedy"
)

// ValidStrategies is the set of supported design strategies.
var ValidStrategies = map[Strategy]bool{
	StrategyRandom:       true,
	StrategySingleNode:   true,
	StrategySSGreedy:     true,
	StrategySSLazy:       true,
	StrategyContinuous:   true,
	StrategySSContinuous: true,
	StrategySCGPP:        true,
	StrategySCGPPSS:      true,
	StrategyRandomGreedy: true,
}

// ValidateStrategy checks that a strategy name is supported.
func ValidateStrategy(s Strategy) error {
	if !ValidStrategies[s] {
		return interrors.New(interrors.ErrCodeInvalidInput, "invalid strategy: %q", s)
	}
	return nil
}

// Options contains all configuration for one design run.
type Options struct {
	// Params holds the strategy name and the numeric knobs.
	Params config.Params

	// CPDAG is the essential graph the batch is designed for.
	CPDAG *mec.CPDAG

	// Ref is the objective baseline; nil means CPDAG itself.
	Ref *mec.CPDAG

	// Sampler draws representative DAGs from the equivalence class.
	// Required unless Objective is set.
	Sampler objective.Sampler

	// Objective overrides the default edge-orientation objective when
	// set, e.g. with a bag or mutual-information objective.
	Objective objective.Func

	// Runtime options
	Logger *log.Logger
	RNG    *rand.Rand

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.Params.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if err := ValidateStrategy(Strategy(o.Params.Strategy)); err != nil {
		return err
	}
	if o.CPDAG == nil {
		return interrors.New(interrors.ErrCodeInvalidInput, "cpdag is required")
	}
	switch Strategy(o.Params.Strategy) {
	case StrategySingleNode, StrategyContinuous, StrategySSContinuous, StrategySCGPP, StrategySCGPPSS:
		// these strategies resample DAGs for gradients or rounds
		if o.Sampler == nil {
			return interrors.New(interrors.ErrCodeInvalidInput, "sampler is required for strategy %q", o.Params.Strategy)
		}
	default:
		if o.Sampler == nil && o.Objective == nil {
			return interrors.New(interrors.ErrCodeInvalidInput, "sampler or objective is required")
		}
	}
	if o.Ref == nil {
		o.Ref = o.CPDAG
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.RNG == nil {
		o.RNG = rand.New(rand.NewPCG(o.Params.Seed, o.Params.Seed))
	}
	o.validated = true
	return nil
}

// objectiveFunc returns the run objective, defaulting to the Monte-Carlo
// edge-orientation objective over the run sampler.
func (o *Options) objectiveFunc() objective.Func {
	if o.Objective != nil {
		return o.Objective
	}
	est := &objective.Estimator{
		CPDAG:   o.CPDAG,
		Ref:     o.Ref,
		Sampler: o.Sampler,
		Samples: o.Params.Samples,
		Exact:   o.Params.Exact,
		IsTree:  o.Params.IsTree,
	}
	return est.Func()
}

// Result contains the outputs of a design run.
type Result struct {
	// Strategy is the algorithm that produced the batch.
	Strategy Strategy

	// Batch is the designed intervention batch.
	Batch mec.Batch

	// Score is the objective value of the full batch.
	Score float64

	// PrefixScores holds the objective value of every batch prefix,
	// PrefixScores[i] covering the first i+1 interventions.
	PrefixScores []float64

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains design-run statistics.
type Stats struct {
	NodeCount       int
	UndirectedCount int
	DesignTime      time.Duration
	ScoreTime       time.Duration
}
