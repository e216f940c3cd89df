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


package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docraptor/ai"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/storage"
)

// DocumentSeparator joins input documents into one context blob.
const DocumentSeparator = "\n\n"

// Summarizer builds hierarchical summary trees from LLM completions.
//
// The root summarizes every input document. Each node below the last level
// is expanded by asking the model for up to MaxTopics topics, extracting the
// content on each topic from the original documents, and summarizing that
// content with half the parent's token budget.
type Summarizer struct {
	completer    ai.Completer
	repository   storage.SummaryRepository
	summaryModel string
	topicModel   string
	now          func() time.Time
	logger       *slog.Logger
}

// Option is a functional option for configuring a Summarizer.
type Option func(*Summarizer) error

// WithSummaryModel sets the model used for summaries and topic content extraction.
// Empty uses the completer's default.
func WithSummaryModel(model string) Option {
	return func(s *Summarizer) error {
		s.summaryModel = model
		return nil
	}
}

// WithTopicModel sets the model used for topic extraction.
// Empty uses the completer's default.
func WithTopicModel(model string) Option {
	return func(s *Summarizer) error {
		s.topicModel = model
		return nil
	}
}

// WithRepository sets where GenerateAndStore persists records.
func WithRepository(repo storage.SummaryRepository) Option {
	return func(s *Summarizer) error {
		s.repository = repo
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewSummarizer creates a summarizer backed by completer.
func NewSummarizer(completer ai.Completer, opts ...Option) (*Summarizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	s := &Summarizer{
		completer: completer,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "summarizer")
	return s, nil
}

// Generate builds a summary tree over documents and returns its new id and record.
//
// The tree has at most hierarchyLevels levels and level L is generated with a
// budget of maxTokens/2^(L-1). Invalid arguments fail with core.ErrInvalidArgument
// before any completion call. Any failed completion aborts the whole call with
// core.ErrSummaryGenerationFailed and no partial tree.
func (s *Summarizer) Generate(ctx context.Context, documents []string, maxTokens, hierarchyLevels int) (string, *core.SummaryRecord, error) {
	if err := core.ValidateSummaryParams(len(documents), maxTokens, hierarchyLevels); err != nil {
		return "", nil, err
	}

	id := core.NewID()
	logger := s.logger.With("summary_id", id)
	joined := strings.Join(documents, DocumentSeparator)

	b := &treeBuilder{
		summarizer: s,
		documents:  joined,
		maxLevel:   hierarchyLevels,
		maxTokens:  maxTokens,
		logger:     logger,
	}

	rootContent, err := b.summarize(ctx, joined, 1, maxTokens)
	if err != nil {
		return "", nil, err
	}
	root := &core.SummaryNode{
		Level:     1,
		Content:   rootContent,
		MaxTokens: maxTokens,
		Children:  []*core.SummaryNode{},
	}

	if err := b.expand(ctx, root); err != nil {
		return "", nil, err
	}

	record := &core.SummaryRecord{
		ID:              id,
		Summary:         root.Content,
		Root:            root,
		DocumentCount:   len(documents),
		HierarchyLevels: hierarchyLevels,
		MaxTokens:       maxTokens,
		CreatedAt:       s.now().UTC().Truncate(time.Microsecond),
	}

	logger.Info("generated summary", "documents", len(documents), "levels", hierarchyLevels, "nodes", root.Count())
	return id, record, nil
}

// GenerateAndStore generates a summary and persists it with the configured repository.
func (s *Summarizer) GenerateAndStore(ctx context.Context, documents []string, maxTokens, hierarchyLevels int) (string, *core.SummaryRecord, error) {
	if s.repository == nil {
		return "", nil, ErrRepositoryRequired
	}

	id, record, err := s.Generate(ctx, documents, maxTokens, hierarchyLevels)
	if err != nil {
		return "", nil, err
	}
	if err := s.repository.Store(ctx, id, record); err != nil {
		s.logger.Error("failed to store summary", "summary_id", id, "err", err)
		return "", nil, fmt.Errorf("failed to store summary %s: %w", id, err)
	}
	return id, record, nil
}

// treeBuilder carries the per-call state of one Generate.
type treeBuilder struct {
	summarizer *Summarizer
	documents  string
	maxLevel   int
	maxTokens  int
	logger     *slog.Logger
}

// expand adds children to node and recurses until the last level.
func (b *treeBuilder) expand(ctx context.Context, node *core.SummaryNode) error {
	if node.Level > b.maxLevel {
		return fmt.Errorf("%w: level %d of %d", ErrDepthExceeded, node.Level, b.maxLevel)
	}
	if node.Level == b.maxLevel {
		return nil
	}

	topics, err := b.topics(ctx, node.Content)
	if err != nil {
		return err
	}

	childLevel := node.Level + 1
	childBudget := core.TokenBudget(b.maxTokens, childLevel)
	for _, topic := range topics {
		content, err := b.extract(ctx, topic)
		if err != nil {
			return err
		}

		summary, err := b.summarize(ctx, content, childLevel, childBudget)
		if err != nil {
			return err
		}

		child := &core.SummaryNode{
			Level:     childLevel,
			Content:   summary,
			Topic:     topic,
			MaxTokens: childBudget,
			Children:  []*core.SummaryNode{},
		}
		node.Children = append(node.Children, child)

		if err := b.expand(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func (b *treeBuilder) summarize(ctx context.Context, text string, level, budget int) (string, error) {
	out, err := b.summarizer.completer.Complete(ctx, ai.CompletionRequest{
		Model:       b.summarizer.summaryModel,
		System:      summarySystemPrompt,
		Prompt:      summaryPrompt(level, text),
		MaxTokens:   budget,
		Temperature: summaryTemperature,
	})
	if err != nil {
		b.logger.Error("failed to generate level summary", "level", level, "err", err)
		return "", fmt.Errorf("%w: level %d summary: %w", core.ErrSummaryGenerationFailed, level, err)
	}
	return out, nil
}

func (b *treeBuilder) topics(ctx context.Context, text string) ([]string, error) {
	out, err := b.summarizer.completer.Complete(ctx, ai.CompletionRequest{
		Model:       b.summarizer.topicModel,
		System:      topicSystemPrompt,
		Prompt:      topicPrompt(text),
		MaxTokens:   topicMaxTokens,
		Temperature: topicTemperature,
	})
	if err != nil {
		b.logger.Error("failed to extract topics", "err", err)
		return nil, fmt.Errorf("%w: topic extraction: %w", core.ErrSummaryGenerationFailed, err)
	}

	topics := ParseTopics(out)
	b.logger.Debug("extracted topics", "count", len(topics))
	return topics, nil
}

func (b *treeBuilder) extract(ctx context.Context, topic string) (string, error) {
	out, err := b.summarizer.completer.Complete(ctx, ai.CompletionRequest{
		Model:       b.summarizer.summaryModel,
		System:      extractSystemPrompt,
		Prompt:      extractPrompt(topic, b.documents),
		MaxTokens:   extractMaxTokens,
		Temperature: extractTemperature,
	})
	if err != nil {
		b.logger.Error("failed to extract topic content", "topic", topic, "err", err)
		return "", fmt.Errorf("%w: content for topic %q: %w", core.ErrSummaryGenerationFailed, topic, err)
	}
	return out, nil
}
