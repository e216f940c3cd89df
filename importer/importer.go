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
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"github.com/poiesic/docraptor/vectorstore"
)

// Config holds configuration for an import.
type Config struct {
	// BatchSize is the number of documents written per batch call.
	BatchSize int

	// ReportInterval is how often to report progress (number of documents).
	ReportInterval int

	// Extensions restricts which files are read. Empty uses DefaultExtensions.
	Extensions []string

	// Retry governs retries of failed batch writes.
	Retry crawler.RetryPolicy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		Retry:          crawler.DefaultRetryPolicy(),
	}
}

// Result summarizes a finished import.
type Result struct {
	Files    int
	Skipped  int
	Embedded int
	StoreIDs []string
}

// Importer embeds every matching file under a directory.
type Importer struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewImporter creates an importer writing to store.
// progress: where to write progress output (typically os.Stderr)
func NewImporter(store vectorstore.Store, config *Config, progress io.Writer) (*Importer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	logger := slog.Default().With("component", "importer")
	policy := config.Retry
	if policy.Logger == nil {
		policy.Logger = logger
	}

	return &Importer{
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, policy),
		logger:    logger,
	}, nil
}

// Run imports every matching file under root.
// A batch that still fails after retries stops the import; batches already
// written stay in the store.
func (im *Importer) Run(ctx context.Context, root string) (*Result, error) {
	iterator := NewFileIterator(root, im.config.BatchSize, im.config.Extensions)

	files, err := iterator.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoDocuments, root)
	}

	fmt.Fprintf(im.progress, "Importing %d files (batch size: %d)\n", len(files), iterator.batchSize)

	result := &Result{Files: len(files)}
	tracker := NewProgressTracker(im.progress, len(files), im.config.ReportInterval)
	tracker.Start()

	skip := func(path string) {
		im.logger.Warn("skipping file with empty content", "path", path)
		result.Skipped++
		tracker.Increment(1)
	}

	err = iterator.ForEach(ctx, files, skip, func(docs []core.Document) error {
		records, err := im.processor.Process(ctx, docs)
		if err != nil {
			return err
		}
		for _, record := range records {
			if record.Stored() {
				result.Embedded++
				result.StoreIDs = append(result.StoreIDs, record.StoreID)
			}
		}
		tracker.Increment(len(docs))
		return nil
	})
	if err != nil {
		return result, err
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(im.progress, "Import complete. Embedded %d of %d files in %v\n",
		result.Embedded, result.Files, elapsed.Round(time.Millisecond))

	return result, nil
}
