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

import "errors"

// Error taxonomy shared by every docraptor component.
var (
	// ErrTransient indicates a network or upstream HTTP failure that may succeed on retry.
	ErrTransient = errors.New("transient network error")

	// ErrCrawlJobFailed indicates the remote crawl job reached a failed or error state.
	// It is terminal and never retried.
	ErrCrawlJobFailed = errors.New("crawl job failed")

	// ErrNotFound indicates a lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrMalformedResponse indicates an upstream payload could not be parsed as expected.
	// Components degrade instead of returning it to callers.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrSummaryGenerationFailed indicates a summary tree could not be built.
	// No partial tree accompanies it.
	ErrSummaryGenerationFailed = errors.New("summary generation failed")

	// ErrInvalidArgument indicates a caller supplied an unusable value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyContent indicates a document has no non-whitespace content.
	ErrEmptyContent = errors.New("content cannot be empty")
)
