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
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/docraptor/ai"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/vectorstore"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
)

// DefaultTimeout bounds every HTTP call made by Store.
const DefaultTimeout = 30 * time.Second

// DefaultVectorizer is the server-side vectorizer module used when no client embedder is set.
const DefaultVectorizer = "text2vec-transformers"

// ErrBaseURLRequired is returned when a store is created without a base URL.
var ErrBaseURLRequired = errors.New("weaviate base URL is required")

// Verify interface compliance
var _ vectorstore.Store = (*Store)(nil)

// Store implements vectorstore.Store with the Weaviate Go client.
type Store struct {
	client     *weaviate.Client
	className  string
	apiKey     string
	openAIKey  string
	vectorizer string
	fallback   bool
	embedder   ai.Embedder
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithAPIKey sets the Weaviate bearer API key.
func WithAPIKey(key string) Option {
	return func(s *Store) error {
		s.apiKey = key
		return nil
	}
}

// WithOpenAIKey forwards an OpenAI key to server-side OpenAI modules.
func WithOpenAIKey(key string) Option {
	return func(s *Store) error {
		s.openAIKey = key
		return nil
	}
}

// WithEmbedder computes vectors client-side instead of relying on a server vectorizer.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(s *Store) error {
		s.embedder = embedder
		return nil
	}
}

// WithFallback controls whether failed or empty searches return degraded
// placeholder results. Enabled by default.
func WithFallback(enabled bool) Option {
	return func(s *Store) error {
		s.fallback = enabled
		return nil
	}
}

// WithVectorizer sets the server-side vectorizer module for a new schema.
func WithVectorizer(module string) Option {
	return func(s *Store) error {
		s.vectorizer = module
		return nil
	}
}

// WithClassName overrides the collection name.
func WithClassName(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return fmt.Errorf("%w: class name cannot be empty", core.ErrInvalidArgument)
		}
		s.className = name
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive", core.ErrInvalidArgument)
		}
		s.httpClient.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the *http.Client the Weaviate client sends requests with.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Store) error {
		if hc == nil {
			return fmt.Errorf("%w: http client cannot be nil", core.ErrInvalidArgument)
		}
		s.httpClient = hc
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// New creates a store rooted at baseURL and ensures its schema exists.
func New(ctx context.Context, baseURL string, opts ...Option) (*Store, error) {
	s, err := newStore(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(baseURL string, opts ...Option) (*Store, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid weaviate URL %q", core.ErrInvalidArgument, baseURL)
	}

	s := &Store{
		className:  vectorstore.ClassName,
		vectorizer: DefaultVectorizer,
		fallback:   true,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["Authorization"] = "Bearer " + s.apiKey
	}
	if s.openAIKey != "" {
		headers["X-OpenAI-Api-Key"] = s.openAIKey
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:             u.Host,
		Scheme:           u.Scheme,
		Headers:          headers,
		ConnectionClient: s.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating weaviate client: %w", err)
	}
	s.client = client
	s.logger = s.logger.With("component", "weaviate-store", "class", s.className)
	return s, nil
}

// classify maps a client error onto the core error taxonomy. A 404 becomes
// core.ErrNotFound; every other failure is core.ErrTransient.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if statusCode(err) == http.StatusNotFound {
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", core.ErrTransient, err)
}

// statusCode returns the HTTP status of an unexpected Weaviate response, or 0.
func statusCode(err error) int {
	var werr *fault.WeaviateClientError
	if errors.As(err, &werr) && werr.IsUnexpectedStatusCode {
		return werr.StatusCode
	}
	return 0
}
