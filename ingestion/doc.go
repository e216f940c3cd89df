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


// Package ingestion turns a crawl into stored embeddings and summaries.
//
// Orchestrator.CrawlAndStore runs the whole flow:
//   - start a crawl and poll it to completion
//   - drop blank pages and embed the rest in one vector store batch
//   - optionally summarize each page on a worker pool, one chunk at a time
//
// Crawl and embedding failures fail the call. Summarization failures are
// governed by a core.FailurePolicy: by default they are logged and left out
// of SummarizedCount.
package ingestion
