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


// Package storage provides the storage abstraction layer for the matching engine.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic:
//
//   - ProgramIndex: program records with predicate filtering and vector ranking
//   - ProfileStore: per-session conversation profiles with atomic updates
//   - RetryQueue: records whose embedding failed and must be retried
//   - ProgressRepository: durable ingestion counters
//
// # Implementations
//
//   - storage/badger: embedded BadgerDB; implements every interface
//   - storage/elastic: Elasticsearch program index (keyword filters + knn)
//   - storage/redis: Redis profile store with WATCH/MULTI updates
//   - storage/memory: in-process profile store backed by go-cache
//
// # Constructor Return Type Pattern
//
// Public constructors outside tests return interface types to prevent
// accidental coupling to a particular backend:
//
//	profiles, err := redis.NewProfileStore(client, time.Hour) // storage.ProfileStore
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
