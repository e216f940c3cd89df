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


package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docraptor/core"
)

// DefaultMaxPages is used when a crawl request does not set MaxPages.
const DefaultMaxPages = 100

// DefaultTimeout bounds every HTTP call made by HTTPClient.
const DefaultTimeout = 60 * time.Second

// StartRequest describes a crawl to launch.
type StartRequest struct {
	URL             string
	MaxPages        int
	IncludePatterns []string
	ExcludePatterns []string
}

// StatusChecker fetches the current state of a crawl job.
type StatusChecker interface {
	GetStatus(ctx context.Context, jobID string) (*core.CrawlJob, error)
}

// Client is the remote crawl service.
// Transport failures and non-404 HTTP errors wrap core.ErrTransient.
// A 404 wraps core.ErrNotFound.
type Client interface {
	StatusChecker

	// StartCrawl launches a crawl and returns its client-generated job id.
	StartCrawl(ctx context.Context, req StartRequest) (string, error)

	// FetchResults returns the pages of a completed job.
	FetchResults(ctx context.Context, jobID string) ([]core.CrawledPage, error)
}

// HTTPClient talks to a Crawl4AI server over HTTP.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient) error

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) error {
		c.apiKey = key
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive", core.ErrInvalidArgument)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) error {
		if hc == nil {
			return fmt.Errorf("%w: http client cannot be nil", core.ErrInvalidArgument)
		}
		c.httpClient = hc
		return nil
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *HTTPClient) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// NewHTTPClient creates a Crawl4AI client rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "crawl4ai-client")
	return c, nil
}

type startPayload struct {
	URL             string   `json:"url"`
	MaxPages        int      `json:"max_pages"`
	JobID           string   `json:"job_id"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
}

type statusPayload struct {
	Status    string `json:"status"`
	URL       string `json:"url"`
	PageCount int    `json:"page_count"`
	Error     string `json:"error"`
}

// StartCrawl launches a crawl job. The job id is generated locally.
func (c *HTTPClient) StartCrawl(ctx context.Context, req StartRequest) (string, error) {
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	jobID := uuid.NewString()
	body, err := json.Marshal(startPayload{
		URL:             req.URL,
		MaxPages:        maxPages,
		JobID:           jobID,
		IncludePatterns: req.IncludePatterns,
		ExcludePatterns: req.ExcludePatterns,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/crawl", body)
	if err != nil {
		return "", fmt.Errorf("failed to start crawl: %w", err)
	}
	resp.Body.Close()

	c.logger.Info("started crawl job", "job_id", jobID, "url", req.URL, "max_pages", maxPages)
	return jobID, nil
}

// GetStatus returns the current job snapshot.
// A missing or unrecognised status becomes core.JobStatusUnknown.
func (c *HTTPClient) GetStatus(ctx context.Context, jobID string) (*core.CrawlJob, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}

	resp, err := c.do(ctx, http.MethodGet, c.jobURL(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl status: %w", err)
	}
	defer resp.Body.Close()

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: crawl status: %v", core.ErrMalformedResponse, err)
	}

	c.logger.Debug("got crawl status", "job_id", jobID, "status", payload.Status, "pages", payload.PageCount)

	return &core.CrawlJob{
		ID:        jobID,
		Status:    core.ParseJobStatus(payload.Status),
		URL:       payload.URL,
		PageCount: payload.PageCount,
		Error:     payload.Error,
	}, nil
}

// FetchResults returns the crawled pages of a job.
func (c *HTTPClient) FetchResults(ctx context.Context, jobID string) ([]core.CrawledPage, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}

	resp, err := c.do(ctx, http.MethodGet, c.jobURL(jobID)+"/results", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crawl results: %w", err)
	}
	defer resp.Body.Close()

	var pages []core.CrawledPage
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		return nil, fmt.Errorf("%w: crawl results: %v", core.ErrMalformedResponse, err)
	}

	c.logger.Info("fetched crawl results", "job_id", jobID, "pages", len(pages))
	return pages, nil
}

func (c *HTTPClient) jobURL(jobID string) string {
	return c.baseURL + "/crawl/" + url.PathEscape(jobID)
}

// do sends a request and classifies failures. On success the caller owns resp.Body.
func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("crawl request failed", "method", method, "url", target, "err", err)
		return nil, fmt.Errorf("%w: %v", core.ErrTransient, err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		c.logger.Error("crawl request returned error status", "method", method, "url", target, "status", resp.StatusCode)
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", core.ErrNotFound, target)
		}
		return nil, fmt.Errorf("%w: %s - %s", core.ErrTransient, resp.Status, strings.TrimSpace(string(respBody)))
	}

	return resp, nil
}
