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
	"fmt"

	"github.com/poiesic/docraptor/core"
)

// maxFallbackResults caps the placeholder results returned in degraded mode.
const maxFallbackResults = 5

// FallbackSource is the metadata source of placeholder results.
const FallbackSource = "mock-data"

// FallbackResponse returns placeholder results for query, marked degraded with reason.
// Callers can tell them apart by Degraded and by Metadata.Source.
func FallbackResponse(query string, limit int, reason string) *core.SearchResponse {
	results := FallbackResults(query, limit)
	return &core.SearchResponse{
		Results:        results,
		Total:          len(results),
		Degraded:       true,
		DegradedReason: reason,
	}
}

// FallbackResults returns min(limit, 5) placeholder results with descending scores.
func FallbackResults(query string, limit int) []core.SearchResult {
	n := limit
	if n > maxFallbackResults {
		n = maxFallbackResults
	}
	if n < 0 {
		n = 0
	}

	results := make([]core.SearchResult, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, core.SearchResult{
			ID:      fmt.Sprintf("mock-%d", i),
			Content: fmt.Sprintf("This is a mock document %d for query: %s", i, query),
			Metadata: core.Metadata{
				Title:   fmt.Sprintf("Mock Document %d", i),
				URL:     fmt.Sprintf("https://example.com/doc%d", i),
				Source:  FallbackSource,
				Version: core.DefaultVersion,
			},
			Score: 0.95 - float64(i)*0.05,
		})
	}
	return results
}
