// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about objective evaluations, optimizer rounds, and selector
// decisions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (Prometheus, OpenTelemetry, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEstimatorHooks(&myEstimatorHooks{})
//	    observability.SetOptimizerHooks(&myOptimizerHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Estimator().OnObjectiveEvaluated(ctx, len(batch), value)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Estimator Hooks
// =============================================================================

// EstimatorHooks receives events from objective, gradient, and Hessian
// estimation.
type EstimatorHooks interface {
	// OnSampleDraw records one request to the equivalence-class sampler.
	OnSampleDraw(ctx context.Context, count int, exact bool)

	// OnObjectiveEvaluated records a completed objective evaluation.
	OnObjectiveEvaluated(ctx context.Context, batchSize int, value float64)

	// Score memoization events
	OnMemoHit(ctx context.Context, keyType string)
	OnMemoMiss(ctx context.Context, keyType string)
}

// =============================================================================
// Optimizer Hooks
// =============================================================================

// OptimizerHooks receives events from the continuous optimizers.
type OptimizerHooks interface {
	// Round events. A round is one full Frank-Wolfe loop producing one
	// fractional iterate.
	OnRoundStart(ctx context.Context, method string, steps int)
	OnRoundComplete(ctx context.Context, method string, duration time.Duration, err error)

	// OnRoundingTrial records one pipage rounding trial and its score.
	OnRoundingTrial(ctx context.Context, trial int, score float64)
}

// =============================================================================
// Selector Hooks
// =============================================================================

// SelectorHooks receives events from the discrete greedy selectors.
type SelectorHooks interface {
	// OnCandidateEvaluated records one candidate scoring during greedy
	// selection.
	OnCandidateEvaluated(ctx context.Context, method string, gain float64)

	// OnLazySkip records a lazy-evaluation short circuit: candidates whose
	// cached bounds made re-evaluation unnecessary.
	OnLazySkip(ctx context.Context, method string, skipped int)

	// OnFallback records a fall back to random selection (for example an
	// empty separating system).
	OnFallback(ctx context.Context, method, reason string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEstimatorHooks is a no-op implementation of EstimatorHooks.
type NoopEstimatorHooks struct{}

func (NoopEstimatorHooks) OnSampleDraw(context.Context, int, bool)            {}
func (NoopEstimatorHooks) OnObjectiveEvaluated(context.Context, int, float64) {}
func (NoopEstimatorHooks) OnMemoHit(context.Context, string)                  {}
func (NoopEstimatorHooks) OnMemoMiss(context.Context, string)                 {}

// NoopOptimizerHooks is a no-op implementation of OptimizerHooks.
type NoopOptimizerHooks struct{}

func (NoopOptimizerHooks) OnRoundStart(context.Context, string, int)                     {}
func (NoopOptimizerHooks) OnRoundComplete(context.Context, string, time.Duration, error) {}
func (NoopOptimizerHooks) OnRoundingTrial(context.Context, int, float64)                 {}

// NoopSelectorHooks is a no-op implementation of SelectorHooks.
type NoopSelectorHooks struct{}

func (NoopSelectorHooks) OnCandidateEvaluated(context.Context, string, float64) {}
func (NoopSelectorHooks) OnLazySkip(context.Context, string, int)               {}
func (NoopSelectorHooks) OnFallback(context.Context, string, string)            {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	estimatorHooks EstimatorHooks = NoopEstimatorHooks{}
	optimizerHooks OptimizerHooks = NoopOptimizerHooks{}
	selectorHooks  SelectorHooks  = NoopSelectorHooks{}
	hooksMu        sync.RWMutex
)

// SetEstimatorHooks registers custom estimator hooks.
// This should be called once at application startup before any estimation.
func SetEstimatorHooks(h EstimatorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		estimatorHooks = h
	}
}

// SetOptimizerHooks registers custom optimizer hooks.
// This should be called once at application startup before any optimization.
func SetOptimizerHooks(h OptimizerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		optimizerHooks = h
	}
}

// SetSelectorHooks registers custom selector hooks.
// This should be called once at application startup before any selection.
func SetSelectorHooks(h SelectorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		selectorHooks = h
	}
}

// Estimator returns the registered estimator hooks.
func Estimator() EstimatorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return estimatorHooks
}

// Optimizer returns the registered optimizer hooks.
func Optimizer() OptimizerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return optimizerHooks
}

// Selector returns the registered selector hooks.
func Selector() SelectorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return selectorHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	estimatorHooks = NoopEstimatorHooks{}
	optimizerHooks = NoopOptimizerHooks{}
	selectorHooks = NoopSelectorHooks{}
}
