// SPDX-License-Identifier: MIT

// Package store provides the persistent history cache. Mined change
// histories are expensive to produce on large repositories; caching them
// keyed by the full mining options lets repeat analyses skip the git walk.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ccan-dev/ccan/internal/gitmine"
	"github.com/ccan-dev/ccan/internal/log"
)

const historyPrefix = "hist:"

// HistoryCache is a badger-backed cache of mined histories. Entries expire
// after the configured TTL; a TTL of zero disables expiry.
type HistoryCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenHistoryCache opens (or creates) the cache at path.
func OpenHistoryCache(path string, ttl time.Duration) (*HistoryCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history cache at %q: %w", path, err)
	}
	return &HistoryCache{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (c *HistoryCache) Close() error { return c.db.Close() }

// Get looks up a history by cache key. Missing, expired or undecodable
// entries are a miss, never an error.
func (c *HistoryCache) Get(key string) (*gitmine.History, bool) {
	var h gitmine.History
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(historyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &h)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			logger := log.WithComponent("store")
			logger.Debug().
				Err(err).
				Str("key", key).
				Msg("history cache read failed, treating as miss")
		}
		return nil, false
	}
	return &h, true
}

// Put stores a history under the cache key.
func (c *HistoryCache) Put(key string, h *gitmine.History) error {
	buf, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(historyPrefix+key), buf)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}
