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


package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a remote crawl job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusError     JobStatus = "error"
	JobStatusUnknown   JobStatus = "unknown"
)

// ParseJobStatus maps a remote status string onto a JobStatus.
// Empty and unrecognised values become JobStatusUnknown.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case JobStatusPending:
		return JobStatusPending
	case JobStatusRunning:
		return JobStatusRunning
	case JobStatusCompleted:
		return JobStatusCompleted
	case JobStatusFailed:
		return JobStatusFailed
	case JobStatusError:
		return JobStatusError
	default:
		return JobStatusUnknown
	}
}

// IsTerminal reports whether the crawler will no longer change this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusError
}

// IsFailure reports whether the status is a terminal failure.
func (s JobStatus) IsFailure() bool {
	return s == JobStatusFailed || s == JobStatusError
}

// CrawlJob is a snapshot of a remote crawl job. Only the crawler mutates it.
type CrawlJob struct {
	ID        string
	Status    JobStatus
	URL       string
	PageCount int
	Error     string
}

// CrawledPage is a single page produced by the crawler.
type CrawledPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DefaultVersion is the version label attached to freshly crawled documents.
const DefaultVersion = "latest"

// Metadata describes where a document came from.
type Metadata struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Source  string `json:"source"`
	Version string `json:"version"`
}

// Map returns the metadata as a key/value map.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"title":   m.Title,
		"url":     m.URL,
		"source":  m.Source,
		"version": m.Version,
	}
}

// Canonical returns a stable serialization of the metadata.
// Keys are sorted, so equal metadata always serializes identically.
func (m Metadata) Canonical() string {
	// json.Marshal sorts map keys.
	b, _ := json.Marshal(m.Map())
	return string(b)
}

// Document is a crawled page prepared for embedding.
type Document struct {
	Content  string
	Metadata Metadata
}

// IsBlank reports whether the document has no non-whitespace content.
func (d Document) IsBlank() bool {
	return strings.TrimSpace(d.Content) == ""
}

// WriteOutcome records what actually happened to a vector store write.
type WriteOutcome int

const (
	// OutcomeStored means the object is known to be in the store.
	OutcomeStored WriteOutcome = iota + 1
	// OutcomeStoredWithWarning means the write succeeded but a preceding step failed.
	OutcomeStoredWithWarning
	// OutcomeFailed means the write was attempted and failed. Ids are still populated.
	OutcomeFailed
)

func (o WriteOutcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeStoredWithWarning:
		return "stored_with_warning"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EmbeddingRecord is the result of writing one document to the vector store.
type EmbeddingRecord struct {
	DocumentID string
	StoreID    string
	Outcome    WriteOutcome
	Warning    string
}

// Stored reports whether the document is known to be persisted.
func (r EmbeddingRecord) Stored() bool {
	return r.Outcome == OutcomeStored || r.Outcome == OutcomeStoredWithWarning
}

// StoreIDFor derives the deterministic vector store id for a document.
// Identical content and metadata always produce the same id.
func StoreIDFor(content string, metadata Metadata) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(content+"::"+metadata.Canonical())).String()
}

// NewID returns a random identifier.
func NewID() string {
	return uuid.NewString()
}

// SummaryNode is one node of a hierarchical summary tree.
// A parent exclusively owns its children.
type SummaryNode struct {
	Level     int            `json:"level"`
	Content   string         `json:"content"`
	Topic     string         `json:"topic,omitempty"`
	MaxTokens int            `json:"max_tokens"`
	Children  []*SummaryNode `json:"children"`
}

// Depth returns the number of levels in the tree rooted at n.
func (n *SummaryNode) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, child := range n.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Count returns the number of nodes in the tree rooted at n.
func (n *SummaryNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// Walk visits every node depth-first, parents before children.
func (n *SummaryNode) Walk(fn func(*SummaryNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// SummaryRecord is a persisted summary tree.
type SummaryRecord struct {
	ID              string       `json:"id"`
	Summary         string       `json:"summary"`
	Root            *SummaryNode `json:"hierarchical_summary"`
	DocumentCount   int          `json:"document_count"`
	HierarchyLevels int          `json:"hierarchy_levels"`
	MaxTokens       int          `json:"max_tokens"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Info returns the listing view of r.
func (r SummaryRecord) Info() SummaryInfo {
	return SummaryInfo{ID: r.ID, DocumentCount: r.DocumentCount, CreatedAt: r.CreatedAt}
}

// SummaryInfo is the listing view of a SummaryRecord.
type SummaryInfo struct {
	ID            string    `json:"id"`
	DocumentCount int       `json:"document_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// SearchResult is a single nearest-neighbour hit.
type SearchResult struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// SearchResponse is the outcome of a similarity search.
// When Degraded is set the results are placeholders, not live data.
type SearchResponse struct {
	Results        []SearchResult `json:"results"`
	Total          int            `json:"total"`
	Degraded       bool           `json:"degraded"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}

// FailurePolicy selects how a multi-step operation reacts to a failed step.
type FailurePolicy int

const (
	// ContinueOnError records the failure and carries on with the remaining steps.
	ContinueOnError FailurePolicy = iota
	// FailFast stops at the first failure and reports it.
	FailFast
)

func (p FailurePolicy) String() string {
	if p == FailFast {
		return "fail_fast"
	}
	return "continue_on_error"
}
