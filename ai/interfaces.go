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

import "context"

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	// Model overrides the provider's default completion model when set.
	Model string

	// System is the system prompt. Optional.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens bounds the length of the completion.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// Completer produces text completions from a chat model.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete runs one chat completion and returns the first choice's text,
	// trimmed of surrounding whitespace.
	// Returns an error if the call fails or the model returns no choices.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Completer returns the chat completion service.
	Completer() Completer

	// Embedder returns the embedding service, or nil when no embedding model is configured.
	// Without an embedder the vector store vectorizes documents itself.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
