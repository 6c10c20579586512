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
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/dgraph-io/badger/v4"
)

// ProgressRepository implements storage.ProgressRepository for BadgerDB.
type ProgressRepository struct {
	backend *Backend
}

var _ storage.ProgressRepository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(backend *Backend) *ProgressRepository {
	return &ProgressRepository{
		backend: backend,
	}
}

// SaveProgress persists ingestion counters for a source.
func (r *ProgressRepository) SaveProgress(ctx context.Context, progress *core.IngestionProgress) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		progress.UpdatedAt = time.Now().UTC()
		key := makeProgressKey(progress.Source)
		value, err := storage.MarshalProgress(progress)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return commitTx(tx)
	}, true)
}

// LoadProgress retrieves the counters for a source.
// Returns nil, nil if no progress exists.
func (r *ProgressRepository) LoadProgress(ctx context.Context, source string) (*core.IngestionProgress, error) {
	var progress *core.IngestionProgress
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeProgressKey(source)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			progress, unmarshalErr = storage.UnmarshalProgress(val)
			return unmarshalErr
		})
	}, false)

	return progress, err
}
