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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchStore struct {
	mu       sync.Mutex
	batches  [][]core.Document
	failures []error
}

var _ vectorstore.Store = (*batchStore)(nil)

func (s *batchStore) AddDocument(ctx context.Context, content string, metadata core.Metadata) (core.EmbeddingRecord, error) {
	return core.EmbeddingRecord{}, errors.New("not used")
}

func (s *batchStore) BatchAddDocuments(ctx context.Context, docs []core.Document) ([]core.EmbeddingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return nil, err
	}
	s.batches = append(s.batches, docs)
	records := make([]core.EmbeddingRecord, len(docs))
	for i, doc := range docs {
		records[i] = core.EmbeddingRecord{
			DocumentID: core.NewID(),
			StoreID:    core.StoreIDFor(doc.Content, doc.Metadata),
			Outcome:    core.OutcomeStored,
		}
	}
	return records, nil
}

func (s *batchStore) SearchSimilar(ctx context.Context, query string, limit int, filters map[string]string) (*core.SearchResponse, error) {
	return nil, errors.New("not used")
}

func (s *batchStore) DeleteDocument(ctx context.Context, storeID string) (bool, error) {
	return false, errors.New("not used")
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func fastConfig(batchSize int) *Config {
	return &Config{
		BatchSize:      batchSize,
		ReportInterval: 1,
		Retry: crawler.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
			Retryable:   crawler.IsTransient,
		},
	}
}

func TestFileIterator_Files(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"b.md":               "# B",
		"a.txt":              "a",
		"nested/c.MARKDOWN":  "c",
		"image.png":          "png",
		".git/config.md":     "hidden",
		"nested/.cache/x.md": "hidden",
	})

	files, err := NewFileIterator(root, 10, nil).Files(context.Background())
	require.NoError(t, err)

	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.Equal(t, []string{"a.txt", "b.md", "nested/c.MARKDOWN"}, rel)
}

func TestReadDocument(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"guide.md":  "\n# Getting Started\n\nInstall the CLI.",
		"notes.txt": "plain notes",
	})

	doc, err := ReadDocument(filepath.Join(root, "guide.md"))
	require.NoError(t, err)
	assert.Equal(t, "Getting Started", doc.Metadata.Title)
	assert.Equal(t, LocalSource, doc.Metadata.Source)
	assert.Equal(t, core.DefaultVersion, doc.Metadata.Version)
	assert.True(t, strings.HasPrefix(doc.Metadata.URL, "file://"))
	assert.True(t, strings.HasSuffix(doc.Metadata.URL, "/guide.md"))

	doc, err = ReadDocument(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", doc.Metadata.Title)

	_, err = ReadDocument(filepath.Join(root, "missing.md"))
	assert.Error(t, err)
}

func TestImporter_Run(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 5; i++ {
		files[fmt.Sprintf("doc%d.md", i)] = fmt.Sprintf("# Doc %d\ncontent %d", i, i)
	}
	files["blank.md"] = "  \n\t"
	root := writeFiles(t, files)

	store := &batchStore{}
	var progress bytes.Buffer
	im, err := NewImporter(store, fastConfig(2), &progress)
	require.NoError(t, err)

	result, err := im.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Files)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 5, result.Embedded)
	assert.Len(t, result.StoreIDs, 5)

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 2)
	assert.Len(t, store.batches[2], 1)
	assert.Contains(t, progress.String(), "6/6")
	assert.Contains(t, progress.String(), "Import complete")
}

func TestImporter_RetriesTransientFailures(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.md": "alpha"})
	store := &batchStore{failures: []error{
		fmt.Errorf("%w: connection reset", core.ErrTransient),
		fmt.Errorf("%w: 503", core.ErrTransient),
	}}

	im, err := NewImporter(store, fastConfig(10), nil)
	require.NoError(t, err)

	result, err := im.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Embedded)
}

func TestImporter_StopsOnPermanentFailure(t *testing.T) {
	root := writeFiles(t, map[string]string{"a.md": "alpha", "b.md": "beta"})
	store := &batchStore{failures: []error{errors.New("batch rejected")}}

	im, err := NewImporter(store, fastConfig(1), nil)
	require.NoError(t, err)

	result, err := im.Run(context.Background(), root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch rejected")
	assert.Equal(t, 0, result.Embedded)
	assert.Empty(t, store.batches, "second batch never runs")
}

func TestImporter_NoDocuments(t *testing.T) {
	root := writeFiles(t, map[string]string{"image.png": "png"})

	im, err := NewImporter(&batchStore{}, nil, nil)
	require.NoError(t, err)

	_, err = im.Run(context.Background(), root)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestNewImporter_RequiresStore(t *testing.T) {
	_, err := NewImporter(nil, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestNewImporter_RetriesLogThroughImporter(t *testing.T) {
	im, err := NewImporter(&batchStore{}, fastConfig(1), nil)
	require.NoError(t, err)
	assert.Same(t, im.logger, im.processor.retry.Logger)

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := fastConfig(1)
	cfg.Retry.Logger = custom
	im, err = NewImporter(&batchStore{}, cfg, nil)
	require.NoError(t, err)
	assert.Same(t, custom, im.processor.retry.Logger, "an explicit policy logger is kept")
}
