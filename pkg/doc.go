// Package pkg provides the core libraries for intervene, an active
// learning toolkit for causal structure discovery.
//
// # Overview
//
// Intervene designs batches of hard interventions that maximally orient a
// Markov equivalence class of causal DAGs. The pkg directory is organized
// into three main areas:
//
//  1. [core] - Domain logic (equivalence classes, objectives, estimators,
//     optimizers, selectors)
//  2. Ambient infrastructure (errors, caching, configuration,
//     observability, metrics)
//  3. [pipeline] - Orchestration (design → score)
//
// # Architecture
//
// The typical data flow through a design run:
//
//	CPDAG + DAG sampler
//	         ↓
//	    [core/objective] package (Monte-Carlo orientation objective)
//	         ↓
//	    [core/estimate] package (stochastic gradients and Hessians of the
//	    multilinear extension)
//	         ↓
//	    [core/optimize] or [core/greedy] package (batch design)
//	         ↓
//	    intervention batch + prefix scores
//
// # Quick Start
//
// Design a batch with the lazy separating-system greedy strategy:
//
//	import (
//	    "context"
//	    "github.com/causalkit/intervene/pkg/config"
//	    "github.com/causalkit/intervene/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Design(context.Background(), pipeline.Options{
//	    Params:  config.Params{Strategy: "ss-lazy", Batch: 3, K: 2},
//	    CPDAG:   cpdag,
//	    Sampler: sampler,
//	})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [core/mec] - Essential graphs (CPDAGs), Meek-rule closure, and hard
// intervention simulation against a ground-truth DAG.
//
// [core/sepsys] - Separating-system construction, structure-agnostic and
// structure-aware (vertex cover plus greedy coloring).
//
// [core/objective] - Monte-Carlo edge-orientation objectives over sampled
// DAGs, weighted bags, and the mutual-information variant.
//
// [core/estimate] - Stochastic gradient and Hessian estimators of the
// objective's multilinear extension, over node space and separating-system
// space.
//
// [core/optimize] - Continuous greedy and variance-reduced ascent with an
// LP direction step and randomized pipage rounding.
//
// [core/greedy] - Discrete selectors: random baseline, single-node greedy,
// eager and lazy separating-system greedy, lazy discrete random greedy.
//
// ## Infrastructure
//
// [cache] - Content-addressed score memoization with canonical subset and
// batch keys.
//
// [config] - TOML-backed experiment parameters with validated defaults.
//
// [errors] - Coded errors distinguishing fatal optimization faults from
// recoverable degeneracies.
//
// [observability] - Hook registry for estimator, optimizer, and selector
// events; [metrics] provides the Prometheus implementation.
//
// [pipeline] - Strategy dispatch, shared seeding, and batch re-scoring used
// by every entry point.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/core/mec/...     # Specific package
//
// [core]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core
// [core/mec]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/mec
// [core/sepsys]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/sepsys
// [core/objective]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/objective
// [core/estimate]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/estimate
// [core/optimize]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/optimize
// [core/greedy]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/core/greedy
// [cache]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/cache
// [config]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/config
// [errors]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/errors
// [observability]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/observability
// [metrics]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/metrics
// [pipeline]: https://pkg.go.dev/github.com/causalkit/intervene/pkg/pipeline
package pkg
