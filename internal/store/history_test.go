// SPDX-License-Identifier: MIT

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccan-dev/ccan/internal/gitmine"
)

func openCache(t *testing.T, ttl time.Duration) *HistoryCache {
	t.Helper()
	c, err := OpenHistoryCache(t.TempDir(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleHistory() *gitmine.History {
	return &gitmine.History{Deltas: []gitmine.Delta{
		{
			Bin:      time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			Parent:   gitmine.Commit{Hash: "aaa", Author: "x", When: time.Date(2023, 5, 31, 12, 0, 0, 0, time.UTC)},
			Child:    gitmine.Commit{Hash: "bbb", Author: "y", When: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)},
			OldFiles: []string{"a.go"},
			NewFiles: []string{"a.go"},
		},
	}}
}

func TestHistoryCacheRoundTrip(t *testing.T) {
	c := openCache(t, time.Hour)

	h := sampleHistory()
	require.NoError(t, c.Put("key1", h))

	got, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, h, got)
}

func TestHistoryCacheMiss(t *testing.T) {
	c := openCache(t, time.Hour)

	_, ok := c.Get("unknown")
	assert.False(t, ok)
}

func TestHistoryCacheExpiry(t *testing.T) {
	c := openCache(t, time.Second)

	require.NoError(t, c.Put("ephemeral", sampleHistory()))

	_, ok := c.Get("ephemeral")
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	_, ok = c.Get("ephemeral")
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestHistoryCacheOverwrite(t *testing.T) {
	c := openCache(t, 0)

	first := sampleHistory()
	require.NoError(t, c.Put("k", first))

	second := &gitmine.History{}
	require.NoError(t, c.Put("k", second))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Empty(t, got.Deltas)
}
