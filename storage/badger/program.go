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
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/dgraph-io/badger/v4"
)

// ProgramIndex implements storage.ProgramIndex for BadgerDB.
// Filtering and vector ranking scan the program prefix; the catalogue is
// small enough (tens of thousands of records) for a linear pass.
type ProgramIndex struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.ProgramIndex = (*ProgramIndex)(nil)

// NewProgramIndex creates a new ProgramIndex.
func NewProgramIndex(backend *Backend) (*ProgramIndex, error) {
	return &ProgramIndex{
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases resources. ProgramIndex has no resources to release.
func (r *ProgramIndex) Close() error {
	return nil
}

// UpsertPrograms stores records keyed by Id.
func (r *ProgramIndex) UpsertPrograms(ctx context.Context, records ...*core.ProgramRecord) (storage.UpsertSummary, error) {
	var summary storage.UpsertSummary
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := makeProgramKey(record.Id)
			old, err := readProgram(tx, key)
			if err != nil {
				return err
			}

			now := r.now()
			if old == nil {
				record.InsertedAt = now
				record.UpdatedAt = now
				summary.Inserted++
			} else {
				record.InsertedAt = old.InsertedAt
				// UpdatedAt must advance even when the clock has not
				if !now.After(old.UpdatedAt) {
					now = old.UpdatedAt.Add(time.Microsecond)
				}
				record.UpdatedAt = now
				if len(record.Vector) == 0 {
					record.Vector = old.Vector
				}
				summary.Updated++
			}

			value, err := storage.MarshalProgram(record)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return commitTx(tx)
	}, true)
	if err != nil {
		return storage.UpsertSummary{}, err
	}
	return summary, nil
}

// GetProgram retrieves a single record by ID.
func (r *ProgramIndex) GetProgram(ctx context.Context, id core.ID) (*core.ProgramRecord, error) {
	var record *core.ProgramRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readProgram(tx, makeProgramKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: program %s", storage.ErrNotFound, id)
	}
	return record, nil
}

// GetPrograms retrieves multiple records by their IDs, skipping missing ones.
func (r *ProgramIndex) GetPrograms(ctx context.Context, ids ...core.ID) ([]*core.ProgramRecord, error) {
	records := make([]*core.ProgramRecord, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := readProgram(tx, makeProgramKey(id))
			if err != nil {
				return err
			}
			if record != nil {
				records = append(records, record)
			}
		}
		return nil
	}, false)
	return records, err
}

// QueryByFilter returns active records consistent with the filter.
func (r *ProgramIndex) QueryByFilter(ctx context.Context, filter core.Filter) ([]core.ID, error) {
	var ids []core.ID
	err := r.scan(ctx, func(record *core.ProgramRecord) {
		if record.Active && filter.Admits(record.Predicates) {
			ids = append(ids, record.Id)
		}
	})
	return ids, err
}

// QueryByVector ranks active records with an embedding by cosine similarity.
// Stored vectors are unit length so the dot product is the cosine.
func (r *ProgramIndex) QueryByVector(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []core.SimilarityMatch
	err := r.scan(ctx, func(record *core.ProgramRecord) {
		if !record.Active || len(record.Vector) == 0 {
			return
		}
		results = append(results, core.SimilarityMatch{
			RecordId: record.Id,
			Score:    dotProduct(vector, record.Vector),
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.SimilarityMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.RecordId, b.RecordId)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ListPrograms returns every stored record ordered by ID.
func (r *ProgramIndex) ListPrograms(ctx context.Context) ([]*core.ProgramRecord, error) {
	var records []*core.ProgramRecord
	err := r.scan(ctx, func(record *core.ProgramRecord) {
		records = append(records, record)
	})
	return records, err
}

// CountPrograms returns the number of active records.
func (r *ProgramIndex) CountPrograms(ctx context.Context) (int, error) {
	count := 0
	err := r.scan(ctx, func(record *core.ProgramRecord) {
		if record.Active {
			count++
		}
	})
	return count, err
}

// scan visits every program record in key order.
func (r *ProgramIndex) scan(ctx context.Context, visit func(*core.ProgramRecord)) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(programRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record *core.ProgramRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalProgram(val)
				return err
			})
			if err != nil {
				return err
			}
			visit(record)
		}
		return nil
	}, false)
}

// readProgram returns nil, nil when the key is absent.
func readProgram(tx *badger.Txn, key []byte) (*core.ProgramRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var record *core.ProgramRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalProgram(val)
		return err
	})
	return record, err
}
