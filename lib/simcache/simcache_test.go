package simcache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok := m.Get(ctx, "a|b")
	assert.False(t, ok)

	m.Set(ctx, "a|b", 0.6)
	got, ok := m.Get(ctx, "a|b")
	assert.True(t, ok)
	assert.Equal(t, 0.6, got)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "a|b", 0.1)
	m.Set(ctx, "a|b", 0.9)

	got, ok := m.Get(ctx, "a|b")
	assert.True(t, ok)
	assert.Equal(t, 0.9, got)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Set(ctx, "key", 0.5)
		}()
		go func() {
			defer wg.Done()
			m.Get(ctx, "key")
		}()
	}
	wg.Wait()

	got, ok := m.Get(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, 0.5, got)
}
