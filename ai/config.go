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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// CompletionHost is the base URL for the chat completion API.
	// Example: "https://api.openai.com/v1" or "http://localhost:11434/v1"
	CompletionHost string

	// EmbeddingHost is the base URL for the embedding API. Defaults to CompletionHost.
	EmbeddingHost string

	// APIKey is sent as the bearer token. Local OpenAI-compatible servers accept "none".
	APIKey string

	// SummaryModel is used for summaries and topic content extraction.
	// Example: "gpt-4o"
	SummaryModel string

	// TopicModel is used for topic extraction.
	// Example: "gpt-4o-mini"
	TopicModel string

	// EmbeddingModel is optional. When empty no client-side embedder is created.
	EmbeddingModel string

	// RequestTimeout bounds each completion call.
	// Default: 120s
	RequestTimeout time.Duration

	// RequestsPerSecond limits completion calls across the process. 0 disables limiting.
	RequestsPerSecond float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithHost sets both completion and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
		c.EmbeddingHost = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithSummaryModel sets the model used for summaries.
func WithSummaryModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummaryModel = model
	}
}

// WithTopicModel sets the model used for topic extraction.
func WithTopicModel(model string) ConfigOption {
	return func(c *Config) {
		c.TopicModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithRequestTimeout sets the per-call completion timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// WithRequestsPerSecond sets the completion rate limit.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config with defaults for the hosted OpenAI API.
func DefaultConfig() *Config {
	return &Config{
		CompletionHost: "https://api.openai.com/v1",
		APIKey:         "none",
		SummaryModel:   "gpt-4o",
		TopicModel:     "gpt-4o-mini",
		RequestTimeout: 120 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithSummaryModel("qwen2.5:14b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// normalizeHost adds the /v1 suffix required by OpenAI-compatible APIs.
func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Normalize ensures the configuration is in a canonical form.
func (c *Config) Normalize() {
	c.CompletionHost = normalizeHost(c.CompletionHost)
	if c.EmbeddingHost == "" {
		c.EmbeddingHost = c.CompletionHost
	}
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	if c.TopicModel == "" {
		c.TopicModel = c.SummaryModel
	}
	if c.APIKey == "" {
		c.APIKey = "none"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.CompletionHost == "" {
		return errors.New("ai config: CompletionHost is required")
	}
	if c.SummaryModel == "" {
		return errors.New("ai config: SummaryModel is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("ai config: RequestTimeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	return nil
}
