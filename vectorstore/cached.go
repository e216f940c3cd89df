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


package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/searchcache"
)

// DefaultCacheTTL is how long a cached search response stays valid.
const DefaultCacheTTL = 300 * time.Second

// searchKeyPrefix namespaces search responses in a shared cache.
const searchKeyPrefix = "search:"

// Verify interface compliance
var _ Store = (*Cached)(nil)

// Cached wraps a Store and memoizes unfiltered search responses.
// Filtered searches bypass the cache and degraded responses are never stored.
// Cache failures are logged and the wrapped store answers instead.
// Writes pass through untouched, so cached responses can be stale for up to the TTL.
type Cached struct {
	inner  Store
	cache  searchcache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// CachedOption configures a Cached store.
type CachedOption func(*Cached)

// WithTTL sets the cache entry lifetime.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(c *Cached) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCached wraps inner with cache.
func NewCached(inner Store, cache searchcache.Cache, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:  inner,
		cache:  cache,
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "cached-store")
	return c
}

// SearchKey returns the cache key for an unfiltered search.
func SearchKey(query string, limit int) string {
	return searchKeyPrefix + core.ContentHash(fmt.Sprintf("%s\x00%d", query, limit))
}

// AddDocument passes through to the wrapped store.
func (c *Cached) AddDocument(ctx context.Context, content string, metadata core.Metadata) (core.EmbeddingRecord, error) {
	return c.inner.AddDocument(ctx, content, metadata)
}

// BatchAddDocuments passes through to the wrapped store.
func (c *Cached) BatchAddDocuments(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error) {
	return c.inner.BatchAddDocuments(ctx, docs)
}

// DeleteDocument passes through to the wrapped store.
func (c *Cached) DeleteDocument(ctx context.Context, storeID string) (bool, error) {
	return c.inner.DeleteDocument(ctx, storeID)
}

// SearchSimilar answers from the cache when possible.
func (c *Cached) SearchSimilar(ctx context.Context, query string, limit int, filters map[string]string) (*core.SearchResponse, error) {
	if len(filters) > 0 {
		return c.inner.SearchSimilar(ctx, query, limit, filters)
	}

	key := SearchKey(query, limit)
	if resp, ok := c.lookup(ctx, key); ok {
		c.logger.Debug("search cache hit", "key", key)
		return resp, nil
	}

	resp, err := c.inner.SearchSimilar(ctx, query, limit, nil)
	if err != nil {
		return nil, err
	}
	if resp.Degraded {
		return resp, nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("failed to encode search response for cache", "err", err)
		return resp, nil
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("failed to cache search response", "key", key, "err", err)
	}
	return resp, nil
}

func (c *Cached) lookup(ctx context.Context, key string) (*core.SearchResponse, bool) {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, searchcache.ErrCacheMiss) {
			c.logger.Warn("search cache unavailable", "key", key, "err", err)
		}
		return nil, false
	}

	var resp core.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
		_ = c.cache.Delete(ctx, key)
		return nil, false
	}
	return &resp, true
}
