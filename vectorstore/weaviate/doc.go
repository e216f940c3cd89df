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


// Package weaviate implements vectorstore.Store on Weaviate using the
// official Go client.
//
// Objects live in a single class ("Documentation") whose ids are derived
// from document content and metadata, so repeated ingestion of the same page
// does not create duplicates. Vectors come from the server's vectorizer
// module unless an ai.Embedder is supplied with WithEmbedder.
package weaviate
