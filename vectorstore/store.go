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

	"github.com/poiesic/docraptor/core"
)

// ClassName is the collection that holds documentation chunks.
const ClassName = "Documentation"

// FilterKeys lists the metadata fields a search may filter on.
// Other keys are ignored.
var FilterKeys = []string{"title", "url", "source", "version"}

// IsFilterKey reports whether key may be used as a search filter.
func IsFilterKey(key string) bool {
	for _, k := range FilterKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Store persists documents with their embeddings and searches them by similarity.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddDocument stores a single document. Its store id is derived from content
	// and metadata, so adding identical input twice creates one object.
	// A failed write is reported through the record's Outcome, not the error.
	AddDocument(ctx context.Context, content string, metadata core.Metadata) (core.EmbeddingRecord, error)

	// BatchAddDocuments stores documents in one request. Any failure fails the
	// whole call. Empty input returns an empty slice without contacting the backend.
	BatchAddDocuments(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error)

	// SearchSimilar returns up to limit documents ranked by similarity to query.
	// filters holds exact-match metadata constraints keyed by FilterKeys.
	SearchSimilar(ctx context.Context, query string, limit int, filters map[string]string) (*core.SearchResponse, error)

	// DeleteDocument removes the object with the given store id.
	DeleteDocument(ctx context.Context, storeID string) (bool, error)
}
