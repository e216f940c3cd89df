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
	"fmt"
	"net/url"
	"strings"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Content must contain non-whitespace characters
//
// Metadata fields are optional.
func ValidateDocument(doc Document) error {
	if doc.IsBlank() {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyContent)
	}
	return nil
}

// ValidateSummaryParams checks generation parameters before any completion call.
// The budget must survive halving at every level, so maxTokens >= 2^(levels-1).
func ValidateSummaryParams(documentCount, maxTokens, hierarchyLevels int) error {
	if documentCount == 0 {
		return fmt.Errorf("%w: at least one document is required", ErrInvalidArgument)
	}
	if hierarchyLevels < 1 {
		return fmt.Errorf("%w: hierarchy levels must be at least 1, got %d", ErrInvalidArgument, hierarchyLevels)
	}
	if hierarchyLevels > 30 {
		return fmt.Errorf("%w: hierarchy levels must be at most 30, got %d", ErrInvalidArgument, hierarchyLevels)
	}
	if maxTokens < 1<<(hierarchyLevels-1) {
		return fmt.Errorf("%w: max tokens %d cannot be halved across %d levels", ErrInvalidArgument, maxTokens, hierarchyLevels)
	}
	return nil
}

// SourceFromURL returns the host component of rawURL.
func SourceFromURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: url %q has no host", ErrInvalidArgument, rawURL)
	}
	return u.Host, nil
}

// TokenBudget returns the completion budget for a tree level: initial / 2^(level-1).
func TokenBudget(initial, level int) int {
	if level < 1 {
		return initial
	}
	return initial >> (level - 1)
}
