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


package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/poiesic/docraptor/ai"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/crawler"
	"gopkg.in/yaml.v3"
)

// Cache backends accepted by CacheConfig.Backend.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete docraptor configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// file, and environment variables for secrets. Command line flags are
// applied on top by the CLI.
type Config struct {
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Weaviate  WeaviateConfig  `yaml:"weaviate"`
	AI        AIConfig        `yaml:"ai"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// CrawlerConfig configures the Crawl4AI client.
type CrawlerConfig struct {
	URL           string        `yaml:"url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	CheckInterval time.Duration `yaml:"check_interval"`
	MaxPages      int           `yaml:"max_pages"`
}

// WeaviateConfig configures the vector store.
type WeaviateConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	OpenAIKey string        `yaml:"openai_key"`
	ClassName string        `yaml:"class_name"`
	Timeout   time.Duration `yaml:"timeout"`
	// NoFallback turns off placeholder results on failed or empty searches.
	NoFallback bool `yaml:"no_fallback"`
}

// AIConfig configures the completion and embedding services.
type AIConfig struct {
	Host              string        `yaml:"host"`
	EmbeddingHost     string        `yaml:"embedding_host"`
	APIKey            string        `yaml:"api_key"`
	SummaryModel      string        `yaml:"summary_model"`
	TopicModel        string        `yaml:"topic_model"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	Prefix   string        `yaml:"prefix"`
	Size     int           `yaml:"size"`
	TTL      time.Duration `yaml:"ttl"`
}

// StorageConfig configures summary persistence.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// IngestionConfig configures crawl ingestion.
type IngestionConfig struct {
	ChunkSize        int  `yaml:"chunk_size"`
	SummaryMaxTokens int  `yaml:"summary_max_tokens"`
	HierarchyLevels  int  `yaml:"hierarchy_levels"`
	FailFast         bool `yaml:"fail_fast"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Crawler: CrawlerConfig{
			URL:           "http://localhost:11235",
			Timeout:       crawler.DefaultTimeout,
			CheckInterval: crawler.DefaultCheckInterval,
			MaxPages:      crawler.DefaultMaxPages,
		},
		Weaviate: WeaviateConfig{
			URL:       "http://localhost:8080",
			ClassName: "Documentation",
			Timeout:   30 * time.Second,
		},
		AI: AIConfig{
			Host:           aiDefaults.CompletionHost,
			APIKey:         aiDefaults.APIKey,
			SummaryModel:   aiDefaults.SummaryModel,
			TopicModel:     aiDefaults.TopicModel,
			RequestTimeout: aiDefaults.RequestTimeout,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			Prefix:  "docraptor:",
			Size:    1000,
			TTL:     5 * time.Minute,
		},
		Storage: StorageConfig{
			Path: "./data/summaries",
		},
		Ingestion: IngestionConfig{
			ChunkSize:        10,
			SummaryMaxTokens: 1000,
			HierarchyLevels:  3,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides reads secrets from the environment when set.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CRAWL4AI_API_KEY"); v != "" {
		c.Crawler.APIKey = v
	}
	if v := os.Getenv("WEAVIATE_API_KEY"); v != "" {
		c.Weaviate.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
		if c.Weaviate.OpenAIKey == "" {
			c.Weaviate.OpenAIKey = v
		}
	}
}

// Validate checks the configuration. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Crawler.URL == "" {
		errs = append(errs, errors.New("crawler.url is required"))
	}
	if c.Crawler.Timeout <= 0 {
		errs = append(errs, errors.New("crawler.timeout must be positive"))
	}
	if c.Crawler.CheckInterval <= 0 {
		errs = append(errs, errors.New("crawler.check_interval must be positive"))
	}
	if c.Crawler.MaxPages < 1 {
		errs = append(errs, errors.New("crawler.max_pages must be at least 1"))
	}

	if c.Weaviate.URL == "" {
		errs = append(errs, errors.New("weaviate.url is required"))
	}
	if c.Weaviate.ClassName == "" {
		errs = append(errs, errors.New("weaviate.class_name is required"))
	}
	if c.Weaviate.Timeout <= 0 {
		errs = append(errs, errors.New("weaviate.timeout must be positive"))
	}

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case CacheNone, "":
	case CacheMemory:
		if c.Cache.Size < 1 {
			errs = append(errs, errors.New("cache.size must be at least 1"))
		}
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be one of none, memory, redis; got %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl cannot be negative"))
	}

	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required"))
	}

	if c.Ingestion.ChunkSize < 1 {
		errs = append(errs, errors.New("ingestion.chunk_size must be at least 1"))
	}
	if err := core.ValidateSummaryParams(1, c.Ingestion.SummaryMaxTokens, c.Ingestion.HierarchyLevels); err != nil {
		errs = append(errs, fmt.Errorf("ingestion: %w", err))
	}

	return errors.Join(errs...)
}

// AIConfig converts the ai section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithCompletionHost(c.AI.Host),
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithSummaryModel(c.AI.SummaryModel),
		ai.WithTopicModel(c.AI.TopicModel),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithRequestTimeout(c.AI.RequestTimeout),
		ai.WithRequestsPerSecond(c.AI.RequestsPerSecond),
	)
}

// FailurePolicy returns the policy for summarization failures during ingestion.
func (c *Config) FailurePolicy() core.FailurePolicy {
	if c.Ingestion.FailFast {
		return core.FailFast
	}
	return core.ContinueOnError
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
