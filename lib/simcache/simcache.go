// Package simcache holds user-pair similarity scores for the lifetime of
// an engine instance. The cache is shared across concurrent
// recommendation requests; recomputing a pair on a racy miss is
// harmless because the computation is deterministic.
package simcache

import (
	"context"
	"sync"
)

// Store is the similarity cache contract. Implementations must be safe
// for concurrent use. A failed backend lookup is reported as a miss,
// never as an error; the scoring path cannot fail on cache trouble.
type Store interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, score float64)
}

// Memory is the default in-process cache.
type Memory struct {
	mu     sync.RWMutex
	scores map[string]float64
}

// NewMemory creates an empty in-process similarity cache.
func NewMemory() *Memory {
	return &Memory{scores: make(map[string]float64)}
}

func (m *Memory) Get(ctx context.Context, key string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	score, ok := m.scores[key]
	return score, ok
}

func (m *Memory) Set(ctx context.Context, key string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[key] = score
}

// Len reports the number of cached pairs, for stats.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scores)
}
