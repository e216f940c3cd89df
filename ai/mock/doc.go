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


// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Completer, ai.Embedder,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	completer := mock.NewMockCompleter().
//	    WithCompleteFunc(func(ctx context.Context, req ai.CompletionRequest) (string, error) {
//	        return `["Installation", "Configuration"]`, nil
//	    })
//
//	// Inspect what was sent
//	reqs := completer.Requests()
//
// # Default Behavior
//
//   - MockCompleter: returns "summary (max N tokens)" for every request
//   - MockEmbedder: returns deterministic vectors based on text hash
//   - MockProvider: aggregates a mock completer and an optional embedder
package mock
