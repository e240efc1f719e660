// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCacheSetGet(t *testing.T) {
	c := New[string](0)
	defer c.Stop()

	c.Set("k", "v", time.Hour)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCacheMiss(t *testing.T) {
	c := New[int](0)
	defer c.Stop()

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New[string](0)
	defer c.Stop()

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok, "expired entry must be a miss")
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := New[string](0)
	defer c.Stop()

	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestCacheJanitorEvicts(t *testing.T) {
	c := New[string](20 * time.Millisecond)
	defer c.Stop()

	c.Set("k", "v", time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().Evictions >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestCacheStats(t *testing.T) {
	c := New[string](0)
	defer c.Stop()

	c.Set("k", "v", time.Hour)
	c.Get("k")
	c.Get("absent")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
}

func TestCacheStopIdempotent(t *testing.T) {
	c := New[string](time.Minute)
	c.Stop()
	c.Stop()
}
