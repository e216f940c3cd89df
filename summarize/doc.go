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


// Package summarize builds hierarchical ("RAPTOR") summary trees.
//
// A Summarizer turns a set of documents into a tree whose root summarizes
// everything and whose children refine topics the model found in their
// parent. Token budgets halve at each level, every node has at most
// MaxTopics children, and the depth never exceeds the requested hierarchy.
//
// Topic lists come back from the model in many shapes. ParseTopics accepts
// JSON arrays, arrays embedded in prose, and plain bulleted lines.
//
// # Usage
//
//	s, err := summarize.NewSummarizer(provider.Completer(),
//	    summarize.WithTopicModel("gpt-4o-mini"),
//	    summarize.WithRepository(repo),
//	)
//	id, record, err := s.GenerateAndStore(ctx, docs, 1000, 3)
package summarize
