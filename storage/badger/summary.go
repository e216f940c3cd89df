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


package badger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docraptor/core"
	"github.com/poiesic/docraptor/storage"
)

// SummaryRepository stores summary records in BadgerDB, one JSON value per id.
type SummaryRepository struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.SummaryRepository = (*SummaryRepository)(nil)

// NewSummaryRepository opens (or creates) a database at path.
// Closing the repository closes the database.
func NewSummaryRepository(path string) (storage.SummaryRepository, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newSummaryRepository(backend, true), nil
}

// NewSummaryRepositoryWithBackend uses an already open backend.
// The caller keeps ownership of the backend and must close it.
func NewSummaryRepositoryWithBackend(backend *Backend) storage.SummaryRepository {
	return newSummaryRepository(backend, false)
}

func newSummaryRepository(backend *Backend, owns bool) *SummaryRepository {
	return &SummaryRepository{
		backend:     backend,
		ownsBackend: owns,
		logger:      slog.Default().With("component", "summary-repository"),
	}
}

// Close closes the database if the repository opened it.
func (r *SummaryRepository) Close() error {
	if !r.ownsBackend || r.backend.IsClosed() {
		return nil
	}
	return r.backend.Close()
}

func (r *SummaryRepository) check(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if strings.TrimSpace(id) == "" {
		return storage.ErrInvalidID
	}
	return nil
}

// Store writes a record, replacing any existing record with the same id.
func (r *SummaryRepository) Store(ctx context.Context, id string, record *core.SummaryRecord) error {
	if err := r.check(ctx, id); err != nil {
		return err
	}
	value, err := storage.MarshalSummaryRecord(record)
	if err != nil {
		return err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSummaryKey(id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		r.logger.Error("failed to store summary", "summary_id", id, "err", err)
		return err
	}

	r.logger.Info("stored summary", "summary_id", id)
	return nil
}

// Get retrieves a record by id.
func (r *SummaryRepository) Get(ctx context.Context, id string) (*core.SummaryRecord, error) {
	if err := r.check(ctx, id); err != nil {
		return nil, err
	}

	var record *core.SummaryRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSummaryKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalSummaryRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record by id.
func (r *SummaryRepository) Delete(ctx context.Context, id string) error {
	if err := r.check(ctx, id); err != nil {
		return err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSummaryKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	r.logger.Info("deleted summary", "summary_id", id)
	return nil
}

// List returns metadata for every decodable record, ordered by id.
func (r *SummaryRepository) List(ctx context.Context) ([]core.SummaryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	infos := []core.SummaryInfo{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(summaryRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			id := summaryIDFromKey(item.Key())

			var info core.SummaryInfo
			err := item.Value(func(val []byte) error {
				var err error
				info, err = storage.UnmarshalSummaryInfo(val)
				return err
			})
			if err != nil {
				r.logger.Warn("skipping unreadable summary", "summary_id", id, "err", err)
				continue
			}
			// The key is authoritative for the id.
			info.ID = id
			infos = append(infos, info)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return infos, nil
}
