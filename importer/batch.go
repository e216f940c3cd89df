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


package importer

import (
	"context"
	"fmt"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"github.com/poiesic/docraptor/vectorstore"
)

// BatchProcessor writes batches of documents to a vector store.
type BatchProcessor struct {
	store vectorstore.Store
	retry crawler.RetryPolicy
}

// NewBatchProcessor creates a processor that retries transient failures with policy.
func NewBatchProcessor(store vectorstore.Store, policy crawler.RetryPolicy) *BatchProcessor {
	return &BatchProcessor{
		store: store,
		retry: policy,
	}
}

// Process writes docs in one batch call and returns the store records.
func (bp *BatchProcessor) Process(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var records []core.EmbeddingRecord
	err := crawler.RetryWithBackoff(ctx, func() error {
		var err error
		records, err = bp.store.BatchAddDocuments(ctx, docs)
		return err
	}, bp.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to store batch of %d documents: %w", len(docs), err)
	}

	if len(records) != len(docs) {
		return nil, fmt.Errorf("record count mismatch: expected %d, got %d", len(docs), len(records))
	}
	return records, nil
}
