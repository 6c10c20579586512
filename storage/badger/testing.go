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

import "github.com/crazybass81/GovChat/storage"

// MemoryStore bundles every BadgerDB repository over one in-memory backend.
type MemoryStore struct {
	Programs storage.ProgramIndex
	Profiles storage.ProfileStore
	Retries  storage.RetryQueue
	Progress storage.ProgressRepository
	Backend  *Backend
}

// Close closes the repositories and the backend.
func (m *MemoryStore) Close() error {
	m.Profiles.Close()
	m.Programs.Close()
	return m.Backend.Close()
}

// NewMemoryStore creates in-memory repositories for testing.
// Caller must Close the store when done.
func NewMemoryStore() (*MemoryStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	programs, err := NewProgramIndex(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	profiles, err := NewProfileStore(backend, 0)
	if err != nil {
		programs.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryStore{
		Programs: programs,
		Profiles: profiles,
		Retries:  NewRetryQueue(backend),
		Progress: NewProgressRepository(backend),
		Backend:  backend,
	}, nil
}
