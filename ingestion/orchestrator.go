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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"github.com/poiesic/docraptor/storage"
	"github.com/poiesic/docraptor/vectorstore"
)

const (
	// DefaultChunkSize is how many documents are summarized concurrently.
	DefaultChunkSize = 10

	// DefaultSummaryMaxTokens is the root token budget for per-page summaries.
	DefaultSummaryMaxTokens = 1000

	// DefaultHierarchyLevels is the depth of per-page summary trees.
	DefaultHierarchyLevels = 3

	// UntitledPage is the title given to pages the crawler returned without one.
	UntitledPage = "Untitled Page"
)

// Summarizer builds a summary tree over a set of documents.
// *summarize.Summarizer satisfies it.
type Summarizer interface {
	Generate(ctx context.Context, documents []string, maxTokens, hierarchyLevels int) (string, *core.SummaryRecord, error)
}

// CrawlRequest describes a crawl to run and store.
type CrawlRequest struct {
	URL               string
	MaxPages          int
	IncludePatterns   []string
	ExcludePatterns   []string
	GenerateSummaries bool
}

// CrawlResult aggregates the outcome of CrawlAndStore.
type CrawlResult struct {
	JobID           string         `json:"job_id"`
	Status          core.JobStatus `json:"status"`
	URL             string         `json:"url"`
	PageCount       int            `json:"page_count"`
	EmbeddedCount   int            `json:"embedded_count"`
	SummarizedCount int            `json:"summarized_count"`
}

// Orchestrator drives crawl, embedding and summarization for one site at a time.
type Orchestrator struct {
	client        crawler.Client
	poller        *crawler.Poller
	store         vectorstore.Store
	summarizer    Summarizer
	repository    storage.SummaryRepository
	pool          *ants.Pool
	chunkSize     int
	maxTokens     int
	levels        int
	policy        core.FailurePolicy
	checkInterval time.Duration
	retry         crawler.RetryPolicy
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithChunkSize sets how many documents are summarized per chunk.
// It is also the worker pool size. Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidArgument, size)
		}
		o.chunkSize = size
		return nil
	}
}

// WithSummaryParams sets the root token budget and depth of per-page summaries.
func WithSummaryParams(maxTokens, hierarchyLevels int) Option {
	return func(o *Orchestrator) error {
		if err := core.ValidateSummaryParams(1, maxTokens, hierarchyLevels); err != nil {
			return err
		}
		o.maxTokens = maxTokens
		o.levels = hierarchyLevels
		return nil
	}
}

// WithFailurePolicy sets how summarization failures are handled.
// Default is core.ContinueOnError.
func WithFailurePolicy(policy core.FailurePolicy) Option {
	return func(o *Orchestrator) error {
		o.policy = policy
		return nil
	}
}

// WithCheckInterval sets the delay between crawl status checks.
// Default is crawler.DefaultCheckInterval.
func WithCheckInterval(interval time.Duration) Option {
	return func(o *Orchestrator) error {
		if interval <= 0 {
			return fmt.Errorf("%w: check interval must be positive", core.ErrInvalidArgument)
		}
		o.checkInterval = interval
		return nil
	}
}

// WithRetryPolicy sets the retry policy for crawl status checks.
func WithRetryPolicy(policy crawler.RetryPolicy) Option {
	return func(o *Orchestrator) error {
		o.retry = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator. Call Release when done with it.
func NewOrchestrator(
	client crawler.Client,
	store vectorstore.Store,
	summarizer Summarizer,
	repository storage.SummaryRepository,
	opts ...Option,
) (*Orchestrator, error) {
	if client == nil {
		return nil, ErrCrawlerRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}
	if repository == nil {
		return nil, ErrSummaryRepositoryRequired
	}

	o := &Orchestrator{
		client:        client,
		store:         store,
		summarizer:    summarizer,
		repository:    repository,
		chunkSize:     DefaultChunkSize,
		maxTokens:     DefaultSummaryMaxTokens,
		levels:        DefaultHierarchyLevels,
		policy:        core.ContinueOnError,
		checkInterval: crawler.DefaultCheckInterval,
		retry:         crawler.DefaultRetryPolicy(),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "ingestion")

	poller, err := crawler.NewPoller(client,
		crawler.WithRetryPolicy(o.retry),
		crawler.WithPollerLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}
	o.poller = poller

	pool, err := ants.NewPool(o.chunkSize)
	if err != nil {
		return nil, err
	}
	o.pool = pool

	return o, nil
}

// CrawlAndStore crawls req.URL, embeds every non-blank page and, when
// requested, stores a summary tree per page.
//
// The call fails before touching the vector store if the crawl does not
// complete. Zero pages returns a result with zero counts and no store or
// summarizer calls.
func (o *Orchestrator) CrawlAndStore(ctx context.Context, req CrawlRequest) (*CrawlResult, error) {
	source, err := core.SourceFromURL(req.URL)
	if err != nil {
		return nil, err
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = crawler.DefaultMaxPages
	}

	logger := o.logger.With("url", req.URL)

	jobID, err := o.client.StartCrawl(ctx, crawler.StartRequest{
		URL:             req.URL,
		MaxPages:        maxPages,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start crawl: %w", err)
	}
	logger = logger.With("job_id", jobID)
	logger.Info("crawl started", "max_pages", maxPages)

	status, pageCount, err := o.poller.Wait(ctx, jobID, o.checkInterval)
	if err != nil {
		logger.Error("crawl did not finish", "err", err)
		return nil, err
	}
	if status != core.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job %s ended with status %s", ErrJobNotCompleted, jobID, status)
	}

	result := &CrawlResult{
		JobID:     jobID,
		Status:    status,
		URL:       req.URL,
		PageCount: pageCount,
	}

	pages, err := o.client.FetchResults(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crawl results: %w", err)
	}
	if len(pages) == 0 {
		logger.Info("crawl returned no pages")
		return result, nil
	}

	docs := o.buildDocuments(pages, req.URL, source, logger)
	if len(docs) == 0 {
		logger.Warn("every crawled page was blank", "pages", len(pages))
		return result, nil
	}

	records, err := o.store.BatchAddDocuments(ctx, docs)
	if err != nil {
		logger.Error("failed to embed documents", "documents", len(docs), "err", err)
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	result.EmbeddedCount = len(records)
	logger.Info("documents embedded", "count", result.EmbeddedCount)

	if req.GenerateSummaries {
		summarized, err := o.summarizeAll(ctx, docs, logger)
		result.SummarizedCount = summarized
		if err != nil {
			return nil, err
		}
		logger.Info("documents summarized", "count", summarized, "documents", len(docs))
	}

	return result, nil
}

// buildDocuments converts pages into documents, dropping blank ones.
func (o *Orchestrator) buildDocuments(pages []core.CrawledPage, rootURL, source string, logger *slog.Logger) []core.Document {
	docs := make([]core.Document, 0, len(pages))
	for i, page := range pages {
		pageURL := page.URL
		if pageURL == "" {
			pageURL = rootURL
		}
		if strings.TrimSpace(page.Content) == "" {
			logger.Warn("skipping page with empty content", "index", i, "page_url", pageURL)
			continue
		}
		title := page.Title
		if title == "" {
			title = UntitledPage
		}
		docs = append(docs, core.Document{
			Content: page.Content,
			Metadata: core.Metadata{
				Title:   title,
				URL:     pageURL,
				Source:  source,
				Version: core.DefaultVersion,
			},
		})
	}
	return docs
}

// summarizeAll summarizes docs chunk by chunk. A chunk starts only after every
// task of the previous chunk has finished.
func (o *Orchestrator) summarizeAll(ctx context.Context, docs []core.Document, logger *slog.Logger) (int, error) {
	var succeeded atomic.Int64

	for start := 0; start < len(docs); start += o.chunkSize {
		end := min(start+o.chunkSize, len(docs))
		failures := o.summarizeChunk(ctx, docs[start:end], &succeeded, logger)

		if len(failures) > 0 && o.policy == core.FailFast {
			logger.Error("aborting summarization", "chunk_start", start, "failures", len(failures))
			return int(succeeded.Load()), fmt.Errorf("%w: %w", core.ErrSummaryGenerationFailed, errors.Join(failures...))
		}
	}

	return int(succeeded.Load()), nil
}

// summarizeChunk runs one task per document and waits for all of them.
// It returns the errors of the failed tasks.
func (o *Orchestrator) summarizeChunk(ctx context.Context, chunk []core.Document, succeeded *atomic.Int64, logger *slog.Logger) []error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	fail := func(doc core.Document, err error) {
		logger.Warn("failed to summarize document", "page_url", doc.Metadata.URL, "err", err)
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}

	for _, doc := range chunk {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			if err := o.summarizeDocument(ctx, doc); err != nil {
				fail(doc, err)
				return
			}
			succeeded.Add(1)
		})
		if err != nil {
			wg.Done()
			fail(doc, err)
		}
	}

	wg.Wait()
	return failures
}

func (o *Orchestrator) summarizeDocument(ctx context.Context, doc core.Document) error {
	id, record, err := o.summarizer.Generate(ctx, []string{doc.Content}, o.maxTokens, o.levels)
	if err != nil {
		return err
	}
	if err := o.repository.Store(ctx, id, record); err != nil {
		return fmt.Errorf("failed to store summary %s: %w", id, err)
	}
	return nil
}

// Release releases the worker pool.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
