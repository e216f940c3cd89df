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


package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
)

// DefaultSearchLimit is used when a search does not request a positive limit.
const DefaultSearchLimit = 10

var searchFields = []graphql.Field{
	{Name: "content"},
	{Name: "title"},
	{Name: "url"},
	{Name: "source"},
	{Name: "version"},
	{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
}

type hit struct {
	Content    *string `json:"content"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Source     string  `json:"source"`
	Version    string  `json:"version"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float64 `json:"certainty"`
	} `json:"_additional"`
}

// SearchSimilar runs a nearest-neighbour query.
//
// With fallback enabled (the default) a backend failure or an empty result
// set returns placeholder results marked Degraded instead. With fallback
// disabled, backend errors are returned and empty results stay empty.
func (s *Store) SearchSimilar(ctx context.Context, query string, limit int, conditions map[string]string) (*core.SearchResponse, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := s.search(ctx, query, limit, conditions)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("search failed", "err", err)
		if s.fallback {
			return vectorstore.FallbackResponse(query, limit, "search backend error: "+err.Error()), nil
		}
		return nil, err
	}

	if len(results) == 0 {
		s.logger.Info("no search results found", "query_length", len(query))
		if s.fallback {
			return vectorstore.FallbackResponse(query, limit, "search returned no results"), nil
		}
	}

	return &core.SearchResponse{Results: results, Total: len(results)}, nil
}

func (s *Store) search(ctx context.Context, query string, limit int, conditions map[string]string) ([]core.SearchResult, error) {
	get := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(searchFields...).
		WithLimit(limit)

	if s.embedder == nil {
		get = get.WithNearText(s.client.GraphQL().NearTextArgBuilder().
			WithConcepts([]string{query}))
	} else {
		vector, err := s.embedder.EmbedText(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		get = get.WithNearVector(s.client.GraphQL().NearVectorArgBuilder().
			WithVector(vector))
	}

	if where := s.where(conditions); where != nil {
		get = get.WithWhere(where)
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
	}

	hits, err := s.decodeHits(resp.Data["Get"])
	if err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, len(hits))
	for i, h := range hits {
		if h.Content == nil {
			continue
		}
		id := h.Additional.ID
		if id == "" {
			id = fmt.Sprintf("unknown-%d", i)
		}
		var score float64
		if h.Additional.Certainty != nil {
			score = clamp(*h.Additional.Certainty)
		}
		results = append(results, core.SearchResult{
			ID:      id,
			Content: *h.Content,
			Metadata: core.Metadata{
				Title:   orDefault(h.Title, "Untitled"),
				URL:     h.URL,
				Source:  h.Source,
				Version: orDefault(h.Version, core.DefaultVersion),
			},
			Score: score,
		})
	}
	return results, nil
}

// decodeHits pulls this store's class out of the untyped Get payload.
func (s *Store) decodeHits(get any) ([]hit, error) {
	if get == nil {
		return nil, nil
	}
	data, err := json.Marshal(get)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	var classes map[string][]hit
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	return classes[s.className], nil
}

// where builds an equality filter from whitelisted keys. Keys are sorted
// so the same filters always produce the same query.
func (s *Store) where(conditions map[string]string) *filters.WhereBuilder {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		if !vectorstore.IsFilterKey(k) {
			s.logger.Debug("ignoring unsupported filter", "key", k)
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	operands := make([]*filters.WhereBuilder, len(keys))
	for i, k := range keys {
		operands[i] = filters.Where().
			WithPath([]string{k}).
			WithOperator(filters.Equal).
			WithValueText(conditions[k])
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().
		WithOperator(filters.And).
		WithOperands(operands)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
