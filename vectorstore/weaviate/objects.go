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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/poiesic/docraptor/core"
	"github.com/weaviate/weaviate/entities/models"
)

// ErrBatchFailed is returned when any object in a batch write is rejected.
var ErrBatchFailed = errors.New("batch write failed")

func properties(content string, metadata core.Metadata) map[string]string {
	props := metadata.Map()
	props["content"] = content
	return props
}

// exists reports whether an object with storeID is already stored.
func (s *Store) exists(ctx context.Context, storeID string) (bool, error) {
	found, err := s.client.Data().Checker().
		WithClassName(s.className).
		WithID(storeID).
		Do(ctx)
	if err != nil {
		return false, classify(ctx, err)
	}
	return found, nil
}

// AddDocument stores one document unless an identical one is already present.
//
// An existing object yields OutcomeStored without a write. If the existence
// check itself fails the object is created anyway and a successful write is
// reported as OutcomeStoredWithWarning. A failed write returns OutcomeFailed
// with a nil error; both ids are populated in every case.
func (s *Store) AddDocument(ctx context.Context, content string, metadata core.Metadata) (core.EmbeddingRecord, error) {
	if err := core.ValidateDocument(core.Document{Content: content, Metadata: metadata}); err != nil {
		return core.EmbeddingRecord{}, err
	}

	record := core.EmbeddingRecord{
		DocumentID: core.NewID(),
		StoreID:    core.StoreIDFor(content, metadata),
		Outcome:    core.OutcomeStored,
	}

	found, err := s.exists(ctx, record.StoreID)
	if err == nil && found {
		s.logger.Info("document already exists", "store_id", record.StoreID)
		return record, nil
	}

	var checkErr error
	if err != nil {
		checkErr = err
		s.logger.Warn("existence check failed, creating anyway", "store_id", record.StoreID, "err", err)
	}

	creator := s.client.Data().Creator().
		WithClassName(s.className).
		WithID(record.StoreID).
		WithProperties(properties(content, metadata))
	if s.embedder != nil {
		vector, err := s.embedder.EmbedText(ctx, content)
		if err != nil {
			return s.failed(record, fmt.Errorf("embedding failed: %w", err)), nil
		}
		creator = creator.WithVector(vector)
	}

	if _, err := creator.Do(ctx); err != nil {
		return s.failed(record, classify(ctx, err)), nil
	}

	if checkErr != nil {
		record.Outcome = core.OutcomeStoredWithWarning
		record.Warning = "existence check failed: " + checkErr.Error()
	}
	s.logger.Info("added document", "store_id", record.StoreID, "outcome", record.Outcome)
	return record, nil
}

func (s *Store) failed(record core.EmbeddingRecord, err error) core.EmbeddingRecord {
	s.logger.Error("failed to add document", "store_id", record.StoreID, "err", err)
	record.Outcome = core.OutcomeFailed
	record.Warning = err.Error()
	return record
}

// BatchAddDocuments writes docs in a single batch request.
// Ids are derived the same way as AddDocument, so re-adding a document
// overwrites the same object. Any rejected object fails the whole call.
func (s *Store) BatchAddDocuments(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error) {
	if len(docs) == 0 {
		return []core.EmbeddingRecord{}, nil
	}

	var vectors [][]float32
	if s.embedder != nil {
		texts := make([]string, len(docs))
		for i, doc := range docs {
			texts[i] = doc.Content
		}
		var err error
		vectors, err = s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding: %w", ErrBatchFailed, err)
		}
		if len(vectors) != len(docs) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d documents", ErrBatchFailed, len(vectors), len(docs))
		}
	}

	records := make([]core.EmbeddingRecord, len(docs))
	objects := make([]*models.Object, len(docs))
	for i, doc := range docs {
		storeID := core.StoreIDFor(doc.Content, doc.Metadata)
		objects[i] = &models.Object{
			Class:      s.className,
			ID:         strfmt.UUID(storeID),
			Properties: properties(doc.Content, doc.Metadata),
		}
		if vectors != nil {
			objects[i].Vector = vectors[i]
		}
		records[i] = core.EmbeddingRecord{
			DocumentID: core.NewID(),
			StoreID:    storeID,
			Outcome:    core.OutcomeStored,
		}
	}

	results, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		s.logger.Error("batch write failed", "count", len(docs), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrBatchFailed, classify(ctx, err))
	}

	var messages []string
	for _, r := range results {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				messages = append(messages, fmt.Sprintf("%s: %s", r.ID, e.Message))
			}
		}
	}
	if len(messages) > 0 {
		s.logger.Error("batch write rejected objects", "count", len(docs), "rejected", len(messages))
		return nil, fmt.Errorf("%w: %s", ErrBatchFailed, strings.Join(messages, "; "))
	}

	s.logger.Info("added documents in batch", "count", len(docs))
	return records, nil
}

// DeleteDocument removes an object. Deleting a missing object returns false
// and no error.
func (s *Store) DeleteDocument(ctx context.Context, storeID string) (bool, error) {
	if storeID == "" {
		return false, fmt.Errorf("%w: store id is required", core.ErrInvalidArgument)
	}

	err := s.client.Data().Deleter().
		WithClassName(s.className).
		WithID(storeID).
		Do(ctx)
	if statusCode(err) == http.StatusNotFound {
		s.logger.Info("document to delete not found", "store_id", storeID)
		return false, nil
	}
	if err != nil {
		s.logger.Error("failed to delete document", "store_id", storeID, "err", err)
		return false, fmt.Errorf("failed to delete document %s: %w", storeID, classify(ctx, err))
	}

	s.logger.Info("deleted document", "store_id", storeID)
	return true, nil
}
