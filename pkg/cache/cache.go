// Package cache provides the memoization store used by the gradient and
// Hessian estimators.
//
// One stochastic gradient draw scores the same intervention subsets many
// times (every coordinate is forced to 0 and to 1 against the same
// Bernoulli base sample). Estimators create one Store per outer sample
// draw and key scores by content-addressed canonical keys, so logically
// equal subsets hit the same entry regardless of element order or
// duplicates.
package cache

import (
	"context"
	"sync"

	"github.com/causalkit/intervene/pkg/observability"
)

// Store caches objective scores under canonical keys.
type Store interface {
	// Get retrieves a cached score. The second return reports presence.
	Get(ctx context.Context, key string) (float64, bool)

	// Set stores a score.
	Set(ctx context.Context, key string, value float64)
}

// Memo is an in-memory Store, safe for concurrent use.
type Memo struct {
	mu sync.RWMutex
	m  map[string]float64
}

// NewMemo creates an empty in-memory store.
func NewMemo() *Memo {
	return &Memo{m: make(map[string]float64)}
}

// Get retrieves a cached score.
func (c *Memo) Get(ctx context.Context, key string) (float64, bool) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		observability.Estimator().OnMemoHit(ctx, keyType(key))
	} else {
		observability.Estimator().OnMemoMiss(ctx, keyType(key))
	}
	return v, ok
}

// Set stores a score.
func (c *Memo) Set(ctx context.Context, key string, value float64) {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Memo) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// GetOrCompute returns the cached score for key, computing and storing it
// on a miss. The computation's error is returned as-is and nothing is
// stored.
func GetOrCompute(ctx context.Context, s Store, key string, compute func() (float64, error)) (float64, error) {
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return 0, err
	}
	s.Set(ctx, key, v)
	return v, nil
}

// Null is a no-op Store that never stores anything.
// Useful for testing or when memoization should be disabled.
type Null struct{}

// NewNull creates a null store.
func NewNull() Store {
	return Null{}
}

// Get always reports a miss.
func (Null) Get(ctx context.Context, key string) (float64, bool) {
	return 0, false
}

// Set does nothing.
func (Null) Set(ctx context.Context, key string, value float64) {}

// Ensure both stores implement Store.
var (
	_ Store = (*Memo)(nil)
	_ Store = Null{}
)
