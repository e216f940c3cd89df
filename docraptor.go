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


package docraptor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docraptor/ai"
	"github.com/poiesic/docraptor/ai/openai"
	"github.com/poiesic/docraptor/config"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"github.com/poiesic/docraptor/ingestion"
	"github.com/poiesic/docraptor/searchcache"
	"github.com/poiesic/docraptor/storage"
	"github.com/poiesic/docraptor/storage/badger"
	"github.com/poiesic/docraptor/summarize"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/poiesic/docraptor/vectorstore/weaviate"
)

// Service wires the crawler, vector store, AI provider and summary storage
// described by a config.Config.
type Service struct {
	config     *config.Config
	provider   ai.AIProvider
	crawler    crawler.Client
	store      vectorstore.Store
	cache      searchcache.Cache
	summaries  storage.SummaryRepository
	summarizer *summarize.Summarizer
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider  ai.AIProvider
	crawler   crawler.Client
	store     vectorstore.Store
	summaries storage.SummaryRepository
}

// WithProvider uses provider instead of creating an OpenAI-compatible one.
func WithProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithCrawler uses client instead of an HTTP Crawl4AI client.
func WithCrawler(client crawler.Client) ServiceOption {
	return func(o *serviceOptions) {
		o.crawler = client
	}
}

// WithStore uses store instead of connecting to Weaviate.
// The configured search cache still wraps it.
func WithStore(store vectorstore.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithSummaryRepository uses repo instead of opening the configured Badger path.
// The service closes it on Close.
func WithSummaryRepository(repo storage.SummaryRepository) ServiceOption {
	return func(o *serviceOptions) {
		o.summaries = repo
	}
}

// NewService builds a Service from cfg. Connecting to Weaviate creates the
// document class if it is missing.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s := &Service{
		config: cfg,
		logger: slog.Default().With("component", "service"),
	}

	if err := s.open(ctx, options); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error releasing partially opened service", "err", closeErr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Service) open(ctx context.Context, options *serviceOptions) error {
	cfg := s.config
	var err error

	s.summaries = options.summaries
	if s.summaries == nil {
		s.summaries, err = badger.NewSummaryRepository(cfg.Storage.Path)
		if err != nil {
			return err
		}
	}

	s.provider = options.provider
	if s.provider == nil {
		s.provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return err
		}
	}

	s.crawler = options.crawler
	if s.crawler == nil {
		s.crawler, err = crawler.NewHTTPClient(cfg.Crawler.URL,
			crawler.WithAPIKey(cfg.Crawler.APIKey),
			crawler.WithTimeout(cfg.Crawler.Timeout),
		)
		if err != nil {
			return err
		}
	}

	store := options.store
	if store == nil {
		store, err = weaviate.New(ctx, cfg.Weaviate.URL,
			weaviate.WithAPIKey(cfg.Weaviate.APIKey),
			weaviate.WithOpenAIKey(cfg.Weaviate.OpenAIKey),
			weaviate.WithClassName(cfg.Weaviate.ClassName),
			weaviate.WithTimeout(cfg.Weaviate.Timeout),
			weaviate.WithFallback(!cfg.Weaviate.NoFallback),
			weaviate.WithEmbedder(s.provider.Embedder()),
		)
		if err != nil {
			return err
		}
	}

	s.cache, err = newCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if s.cache != nil {
		store = vectorstore.NewCached(store, s.cache, vectorstore.WithTTL(cfg.Cache.TTL))
	}
	s.store = store

	s.summarizer, err = summarize.NewSummarizer(s.provider.Completer(),
		summarize.WithSummaryModel(cfg.AI.SummaryModel),
		summarize.WithTopicModel(cfg.AI.TopicModel),
		summarize.WithRepository(s.summaries),
	)
	return err
}

// newCache returns the configured search cache, or nil when caching is off.
func newCache(ctx context.Context, cfg config.CacheConfig) (searchcache.Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.CacheMemory:
		return searchcache.NewLRUCache(cfg.Size), nil
	case config.CacheRedis:
		cache, err := searchcache.NewRedisCacheFromURL(ctx, cfg.RedisURL, cfg.Prefix)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, nil
	}
}

// Close releases every resource the service holds.
func (s *Service) Close() error {
	var errs []error

	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("error closing search cache", "err", err)
			errs = append(errs, err)
		}
	}
	if s.summaries != nil {
		if err := s.summaries.Close(); err != nil {
			s.logger.Error("error closing summary repository", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store returns the vector store, wrapped by the search cache when one is configured.
func (s *Service) Store() vectorstore.Store {
	return s.store
}

// SummaryRepository returns the summary repository.
func (s *Service) SummaryRepository() storage.SummaryRepository {
	return s.summaries
}

// Summarizer returns the hierarchical summarizer.
func (s *Service) Summarizer() *summarize.Summarizer {
	return s.summarizer
}

// NewOrchestrator creates an ingestion orchestrator using the configured
// ingestion settings. opts are applied after them. Release it when done.
func (s *Service) NewOrchestrator(opts ...ingestion.Option) (*ingestion.Orchestrator, error) {
	cfg := s.config
	defaults := []ingestion.Option{
		ingestion.WithChunkSize(cfg.Ingestion.ChunkSize),
		ingestion.WithSummaryParams(cfg.Ingestion.SummaryMaxTokens, cfg.Ingestion.HierarchyLevels),
		ingestion.WithFailurePolicy(cfg.FailurePolicy()),
		ingestion.WithCheckInterval(cfg.Crawler.CheckInterval),
	}
	return ingestion.NewOrchestrator(s.crawler, s.store, s.summarizer, s.summaries, append(defaults, opts...)...)
}

// CrawlAndStore runs one crawl through a short-lived orchestrator.
func (s *Service) CrawlAndStore(ctx context.Context, req ingestion.CrawlRequest) (*ingestion.CrawlResult, error) {
	orchestrator, err := s.NewOrchestrator()
	if err != nil {
		return nil, err
	}
	defer orchestrator.Release()
	return orchestrator.CrawlAndStore(ctx, req)
}

// Summarize builds a summary tree over documents and stores it.
func (s *Service) Summarize(ctx context.Context, documents []string, maxTokens, hierarchyLevels int) (string, *core.SummaryRecord, error) {
	return s.summarizer.GenerateAndStore(ctx, documents, maxTokens, hierarchyLevels)
}

// Search runs a similarity search against the vector store.
func (s *Service) Search(ctx context.Context, query string, limit int, filters map[string]string) (*core.SearchResponse, error) {
	return s.store.SearchSimilar(ctx, query, limit, filters)
}
