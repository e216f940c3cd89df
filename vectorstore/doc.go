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


// Package vectorstore defines the document vector store used for ingestion
// and semantic search.
//
// Store is implemented by vectorstore/weaviate. Cached decorates any Store
// with a searchcache.Cache. FallbackResponse builds the placeholder results
// a store returns when it degrades instead of failing a search.
package vectorstore
