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


package reembed

import (
	"context"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
)

const (
	// DefaultBatchSize is the default number of programs handed to one embedding call
	DefaultBatchSize = 100
)

// ProgramIterator iterates over all indexed programs in batches.
type ProgramIterator struct {
	index     storage.ProgramIndex
	batchSize int
}

// NewProgramIterator creates a new program iterator.
// batchSize: number of programs per batch (defaults when <= 0)
func NewProgramIterator(index storage.ProgramIndex, batchSize int) *ProgramIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ProgramIterator{
		index:     index,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of programs in id order.
// Iteration stops on the first error from fn.
// Context cancellation is checked between batches.
func (it *ProgramIterator) ForEach(ctx context.Context, fn func([]*core.ProgramRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	programs, err := it.index.ListPrograms(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(programs); i += it.batchSize {
		batch := programs[i:min(i+it.batchSize, len(programs))]
		if err := fn(batch); err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
