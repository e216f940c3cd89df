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


package storage

import (
	"context"

	"github.com/poiesic/docraptor/core"
)

// SummaryRepository persists hierarchical summary records by id.
type SummaryRepository interface {
	// Store writes the whole record under id, replacing any existing record.
	Store(ctx context.Context, id string, record *core.SummaryRecord) error

	// Get retrieves a record.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*core.SummaryRecord, error)

	// Delete removes a record.
	// Returns ErrNotFound if the record doesn't exist.
	Delete(ctx context.Context, id string) error

	// List returns lightweight metadata for every stored record, ordered by id.
	// Records that cannot be decoded are skipped with a warning.
	List(ctx context.Context) ([]core.SummaryInfo, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
