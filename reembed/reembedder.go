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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/retry"
	"github.com/crazybass81/GovChat/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of programs sent in one embedding call
	BatchSize int

	// ReportInterval is how often to report progress (number of programs)
	ReportInterval int

	// Retry bounds each batch embedding call
	Retry retry.Policy

	// MaxEmbedChars truncates the embedded projection (runes)
	MaxEmbedChars int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		Retry:          retry.DefaultPolicy(),
		MaxEmbedChars:  2000,
	}
}

// Summary is the outcome of a run.
type Summary struct {
	Total    int
	Embedded int
	Queued   int
	Drifted  int
	Elapsed  time.Duration
}

// Reembedder recomputes the vector of every program in an index.
type Reembedder struct {
	index     storage.ProgramIndex
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ProgramIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder. retries may be nil, in which case
// the first batch that cannot be embedded aborts the run.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(index storage.ProgramIndex, retries storage.RetryQueue, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		index:     index,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(index, retries, embedder, config.Retry, config.MaxEmbedChars),
		iterator:  NewProgramIterator(index, config.BatchSize),
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run re-embeds every stored program, inactive ones included.
func (r *Reembedder) Run(ctx context.Context) (Summary, error) {
	total, err := r.countAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to count programs: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No programs found in index (0 programs)\n")
		return Summary{}, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d programs (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	summary := Summary{Total: total}
	err = r.iterator.ForEach(ctx, func(programs []*core.ProgramRecord) error {
		result, err := r.processor.Process(ctx, programs)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		summary.Embedded += result.Embedded
		summary.Queued += result.Queued
		summary.Drifted += result.Drifted
		tracker.Record(result)
		return nil
	})
	summary.Elapsed = tracker.Elapsed()
	if err != nil {
		return summary, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d, queued %d, drifted %d in %v\n",
		summary.Embedded, summary.Queued, summary.Drifted, summary.Elapsed.Round(time.Millisecond))
	r.logger.Info("reembedding complete", "total", total, "embedded", summary.Embedded, "queued", summary.Queued, "drifted", summary.Drifted)
	return summary, nil
}

func (r *Reembedder) countAll(ctx context.Context) (int, error) {
	programs, err := r.index.ListPrograms(ctx)
	if err != nil {
		return 0, err
	}
	return len(programs), nil
}
