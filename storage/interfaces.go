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

	"github.com/crazybass81/GovChat/core"
)

// UpsertSummary reports how an upsert batch changed the index.
type UpsertSummary struct {
	Inserted int
	Updated  int
}

// ProgramIndex is the vector/attribute index the engine consumes.
// Any backend that can filter by predicates and rank by vector similarity suffices.
type ProgramIndex interface {
	// UpsertPrograms stores records keyed by Id. Existing records keep their
	// InsertedAt and get an advanced UpdatedAt. An incoming record without a
	// vector keeps the stored vector.
	UpsertPrograms(ctx context.Context, records ...*core.ProgramRecord) (UpsertSummary, error)

	// GetProgram retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetProgram(ctx context.Context, id core.ID) (*core.ProgramRecord, error)

	// GetPrograms retrieves multiple records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetPrograms(ctx context.Context, ids ...core.ID) ([]*core.ProgramRecord, error)

	// QueryByFilter returns the IDs of active records whose predicates are
	// consistent with every known field in the filter.
	QueryByFilter(ctx context.Context, filter core.Filter) ([]core.ID, error)

	// QueryByVector returns up to k active records ordered by cosine similarity (highest first).
	QueryByVector(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error)

	// ListPrograms returns every stored record ordered by ID.
	ListPrograms(ctx context.Context) ([]*core.ProgramRecord, error)

	// CountPrograms returns the number of active records.
	CountPrograms(ctx context.Context) (int, error)

	// Close releases resources held by the index.
	Close() error
}

// ProfileStore persists conversation profiles between stateless turns.
type ProfileStore interface {
	// GetProfile returns the profile for a session.
	// Returns ErrNotFound if the session has no profile.
	GetProfile(ctx context.Context, sessionID string) (*core.UserProfile, error)

	// PutProfile stores a profile, replacing any previous one (last write wins).
	PutProfile(ctx context.Context, profile *core.UserProfile) error

	// UpdateProfile applies fn to the current profile as one atomic
	// read-modify-write. A missing profile starts empty. Concurrent writers
	// cause fn to run again on a fresh read; ErrConflict is returned only
	// after the retry budget is spent.
	UpdateProfile(ctx context.Context, sessionID string, fn func(*core.UserProfile) error) (*core.UserProfile, error)

	// Close releases resources held by the store.
	Close() error
}

// RetryQueue holds records whose embedding must be computed again.
type RetryQueue interface {
	// EnqueueRetries adds or refreshes entries. Re-enqueueing bumps Attempts.
	EnqueueRetries(ctx context.Context, entries ...core.RetryEntry) error

	// ListRetries returns up to limit entries ordered by record ID. limit <= 0 means all.
	ListRetries(ctx context.Context, limit int) ([]core.RetryEntry, error)

	// RemoveRetries deletes entries. Missing entries are ignored.
	RemoveRetries(ctx context.Context, ids ...core.ID) error
}

// ProgressRepository persists ingestion counters per source.
type ProgressRepository interface {
	// SaveProgress persists the counters for progress.Source.
	SaveProgress(ctx context.Context, progress *core.IngestionProgress) error

	// LoadProgress retrieves counters for a source.
	// Returns nil, nil if nothing was saved yet.
	LoadProgress(ctx context.Context, source string) (*core.IngestionProgress, error)
}
