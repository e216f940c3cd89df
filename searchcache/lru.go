// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package searchcache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize is the default number of entries kept by LRUCache.
const DefaultLRUSize = 1000

// Verify interface compliance
var _ Cache = (*LRUCache)(nil)

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRUCache implements Cache in process memory with least-recently-used eviction.
// Expired entries are dropped lazily on read.
type LRUCache struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

// NewLRUCache creates an in-memory cache holding up to size entries.
func NewLRUCache(size int) *LRUCache {
	if size <= 0 {
		size = DefaultLRUSize
	}
	cache, _ := lru.New[string, lruEntry](size)
	return &LRUCache{cache: cache, now: time.Now}
}

// Get retrieves a cached value.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, error) {
	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value with TTL.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Add(key, entry)
	return nil
}

// Delete removes a value.
func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.cache.Remove(key)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// Close purges the cache.
func (c *LRUCache) Close() error {
	c.cache.Purge()
	return nil
}
