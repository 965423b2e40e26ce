// Package metrics exports Prometheus instrumentation for design runs.
//
// The package defines promauto-registered collectors and hook
// implementations that feed them from the observability events. Install
// wires everything up; libraries stay free of any Prometheus dependency.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/causalkit/intervene/pkg/observability"
)

var (
	// SampleDrawsTotal counts requests to the equivalence-class sampler,
	// labeled by sampling mode.
	SampleDrawsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_sample_draws_total",
			Help: "Total number of DAG sample draws requested",
		},
		[]string{"mode"},
	)

	// ObjectiveEvaluationsTotal counts completed objective evaluations.
	ObjectiveEvaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intervene_objective_evaluations_total",
			Help: "Total number of objective evaluations",
		},
	)

	// MemoLookupsTotal counts score-cache lookups, labeled by key type
	// (node, ss, bag) and outcome (hit, miss).
	MemoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_memo_lookups_total",
			Help: "Total number of score cache lookups",
		},
		[]string{"key_type", "outcome"},
	)

	// RoundDuration measures one full ascent round per optimizer method.
	RoundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intervene_round_duration_seconds",
			Help: "Duration of continuous optimizer rounds in seconds",
			// Rounds span milliseconds on toy graphs to minutes at scale.
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"method"},
	)

	// RoundErrorsTotal counts failed optimizer rounds per method.
	RoundErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_round_errors_total",
			Help: "Total number of failed optimizer rounds",
		},
		[]string{"method"},
	)

	// RoundingTrialsTotal counts pipage rounding trials.
	RoundingTrialsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intervene_rounding_trials_total",
			Help: "Total number of pipage rounding trials",
		},
	)

	// CandidateEvaluationsTotal counts greedy candidate scorings per
	// selector method.
	CandidateEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_candidate_evaluations_total",
			Help: "Total number of greedy candidate evaluations",
		},
		[]string{"method"},
	)

	// LazySkipsTotal counts candidates skipped by lazy short circuits.
	LazySkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_lazy_skips_total",
			Help: "Total number of candidates skipped by lazy evaluation",
		},
		[]string{"method"},
	)

	// FallbacksTotal counts random-selection fallbacks per method and
	// reason.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervene_fallbacks_total",
			Help: "Total number of random-selection fallbacks",
		},
		[]string{"method", "reason"},
	)
)

// Install registers the Prometheus-backed hooks with the observability
// registry. Call once at application startup.
func Install() {
	observability.SetEstimatorHooks(estimatorHooks{})
	observability.SetOptimizerHooks(optimizerHooks{})
	observability.SetSelectorHooks(selectorHooks{})
}

type estimatorHooks struct{}

func (estimatorHooks) OnSampleDraw(_ context.Context, count int, exact bool) {
	mode := "sample"
	if exact {
		mode = "exact"
	}
	SampleDrawsTotal.WithLabelValues(mode).Add(float64(count))
}

func (estimatorHooks) OnObjectiveEvaluated(_ context.Context, _ int, _ float64) {
	ObjectiveEvaluationsTotal.Inc()
}

func (estimatorHooks) OnMemoHit(_ context.Context, keyType string) {
	MemoLookupsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (estimatorHooks) OnMemoMiss(_ context.Context, keyType string) {
	MemoLookupsTotal.WithLabelValues(keyType, "miss").Inc()
}

type optimizerHooks struct{}

func (optimizerHooks) OnRoundStart(_ context.Context, _ string, _ int) {}

func (optimizerHooks) OnRoundComplete(_ context.Context, method string, duration time.Duration, err error) {
	RoundDuration.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		RoundErrorsTotal.WithLabelValues(method).Inc()
	}
}

func (optimizerHooks) OnRoundingTrial(_ context.Context, _ int, _ float64) {
	RoundingTrialsTotal.Inc()
}

type selectorHooks struct{}

func (selectorHooks) OnCandidateEvaluated(_ context.Context, method string, _ float64) {
	CandidateEvaluationsTotal.WithLabelValues(method).Inc()
}

func (selectorHooks) OnLazySkip(_ context.Context, method string, skipped int) {
	LazySkipsTotal.WithLabelValues(method).Add(float64(skipped))
}

func (selectorHooks) OnFallback(_ context.Context, method, reason string) {
	FallbacksTotal.WithLabelValues(method, reason).Inc()
}
