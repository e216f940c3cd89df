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
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/searchcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	searches int
	response *core.SearchResponse
	err      error
}

func (s *stubStore) AddDocument(ctx context.Context, content string, metadata core.Metadata) (core.EmbeddingRecord, error) {
	return core.EmbeddingRecord{StoreID: core.StoreIDFor(content, metadata), Outcome: core.OutcomeStored}, nil
}

func (s *stubStore) BatchAddDocuments(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error) {
	return make([]core.EmbeddingRecord, len(docs)), nil
}

func (s *stubStore) SearchSimilar(ctx context.Context, query string, limit int, filters map[string]string) (*core.SearchResponse, error) {
	s.searches++
	return s.response, s.err
}

func (s *stubStore) DeleteDocument(ctx context.Context, storeID string) (bool, error) {
	return true, nil
}

// brokenCache fails every operation.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("down") }
func (brokenCache) Close() error                         { return nil }

func liveResponse() *core.SearchResponse {
	return &core.SearchResponse{
		Results: []core.SearchResult{{ID: "a", Content: "alpha", Score: 0.9}},
		Total:   1,
	}
}

func TestCached_HitsCacheForRepeatedQuery(t *testing.T) {
	inner := &stubStore{response: liveResponse()}
	c := NewCached(inner, searchcache.NewLRUCache(10))
	ctx := context.Background()

	first, err := c.SearchSimilar(ctx, "install", 5, nil)
	require.NoError(t, err)
	second, err := c.SearchSimilar(ctx, "install", 5, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.searches)
	assert.Equal(t, first, second)

	_, err = c.SearchSimilar(ctx, "install", 6, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.searches, "limit is part of the key")
}

func TestCached_FilteredSearchBypassesCache(t *testing.T) {
	inner := &stubStore{response: liveResponse()}
	cache := searchcache.NewLRUCache(10)
	c := NewCached(inner, cache)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.SearchSimilar(ctx, "install", 5, map[string]string{"source": "x.dev"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.searches)
	assert.Zero(t, cache.Len())
}

func TestCached_DegradedNotCached(t *testing.T) {
	inner := &stubStore{response: FallbackResponse("install", 5, "search returned no results")}
	cache := searchcache.NewLRUCache(10)
	c := NewCached(inner, cache)
	ctx := context.Background()

	resp, err := c.SearchSimilar(ctx, "install", 5, nil)
	require.NoError(t, err)
	assert.True(t, resp.Degraded)

	_, err = c.SearchSimilar(ctx, "install", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.searches)
	assert.Zero(t, cache.Len())
}

func TestCached_ErrorsNotCached(t *testing.T) {
	inner := &stubStore{err: errors.New("backend down")}
	c := NewCached(inner, searchcache.NewLRUCache(10))

	_, err := c.SearchSimilar(context.Background(), "q", 5, nil)
	assert.Error(t, err)
}

func TestCached_BrokenCacheFallsBackToStore(t *testing.T) {
	inner := &stubStore{response: liveResponse()}
	c := NewCached(inner, brokenCache{})

	resp, err := c.SearchSimilar(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, liveResponse(), resp)
}

func TestCached_CorruptEntryIsDiscarded(t *testing.T) {
	inner := &stubStore{response: liveResponse()}
	cache := searchcache.NewLRUCache(10)
	c := NewCached(inner, cache)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, SearchKey("q", 5), []byte("{not json"), time.Minute))

	resp, err := c.SearchSimilar(ctx, "q", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.searches)
	assert.Equal(t, "a", resp.Results[0].ID)
}

func TestCached_TTL(t *testing.T) {
	c := NewCached(&stubStore{}, searchcache.NewLRUCache(1))
	assert.Equal(t, DefaultCacheTTL, c.ttl)

	c = NewCached(&stubStore{}, searchcache.NewLRUCache(1), WithTTL(time.Second))
	assert.Equal(t, time.Second, c.ttl)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, SearchKey("a", 1), SearchKey("a", 1))
	assert.NotEqual(t, SearchKey("a", 1), SearchKey("a", 2))
	assert.NotEqual(t, SearchKey("a1", 1), SearchKey("a", 11))
	assert.Regexp(t, `^search:[0-9a-f]{32}$`, SearchKey("q", 10))
}

func TestFallbackResults(t *testing.T) {
	results := FallbackResults("q", 10)
	require.Len(t, results, 5)
	assert.Equal(t, "mock-1", results[0].ID)
	assert.InDelta(t, 0.90, results[0].Score, 1e-9)
	assert.InDelta(t, 0.70, results[4].Score, 1e-9)

	assert.Len(t, FallbackResults("q", 3), 3)
	assert.Empty(t, FallbackResults("q", 0))

	resp := FallbackResponse("q", 2, "why")
	assert.True(t, resp.Degraded)
	assert.Equal(t, "why", resp.DegradedReason)
	assert.Equal(t, 2, resp.Total)
}

func TestIsFilterKey(t *testing.T) {
	for _, k := range []string{"title", "url", "source", "version"} {
		assert.True(t, IsFilterKey(k), k)
	}
	assert.False(t, IsFilterKey("content"))
	assert.False(t, IsFilterKey(""))
}
