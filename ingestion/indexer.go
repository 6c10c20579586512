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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Indexer turns raw listings into indexed program records. It normalizes,
// extracts predicates, embeds on a worker pool and upserts. Records whose
// embedding keeps failing are still upserted so attribute filters find them,
// and their ids go on the retry queue for Drain.
type Indexer struct {
	index      storage.ProgramIndex
	retries    storage.RetryQueue
	progress   storage.ProgressRepository
	embedder   ai.Embedder
	normalizer *Normalizer
	extractor  *Extractor
	pool       *ants.Pool
	config     Config
	metrics    *Metrics
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(ix *Indexer) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		ix.config = cfg
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		ix.config.PoolSize = size
		return nil
	}
}

// WithExtractor sets the predicate extractor.
func WithExtractor(e *Extractor) Option {
	return func(ix *Indexer) error {
		if e == nil {
			return fmt.Errorf("%w: nil extractor", ErrInvalidConfig)
		}
		ix.extractor = e
		return nil
	}
}

// WithProgressRepository persists per-source counters after each sync.
func WithProgressRepository(repo storage.ProgressRepository) Option {
	return func(ix *Indexer) error {
		ix.progress = repo
		return nil
	}
}

// WithMetrics registers the ingestion counters with reg.
// Default is a private registry that is never scraped.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(ix *Indexer) error {
		ix.metrics = NewMetrics(reg)
		return nil
	}
}

// WithSharedMetrics reuses counters already registered, so several
// indexers can report into one registry.
func WithSharedMetrics(m *Metrics) Option {
	return func(ix *Indexer) error {
		if m == nil {
			return fmt.Errorf("%w: nil metrics", ErrInvalidConfig)
		}
		ix.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates an indexer writing to index and queueing failed
// embeddings on retries.
func NewIndexer(index storage.ProgramIndex, retries storage.RetryQueue, provider ai.AIProvider, opts ...Option) (*Indexer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if retries == nil {
		return nil, ErrRetryQueueRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	ix := &Indexer{
		index:    index,
		retries:  retries,
		embedder: provider.Embedder(),
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}

	if ix.metrics == nil {
		ix.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if ix.extractor == nil {
		extractor, err := NewExtractor(WithExtractorLogger(ix.logger))
		if err != nil {
			return nil, err
		}
		ix.extractor = extractor
	}
	ix.normalizer = NewNormalizer(ix.extractor.Vocabulary())
	ix.logger = ix.logger.With("component", "indexer")

	pool, err := ants.NewPool(ix.config.PoolSize)
	if err != nil {
		return nil, err
	}
	ix.pool = pool
	return ix, nil
}

// Release releases the worker pool. The indexer must not be used afterwards.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

// IngestItems normalizes raw items from one source and indexes them.
// Malformed items are skipped and counted, never fatal.
func (ix *Indexer) IngestItems(ctx context.Context, source core.SourceType, items []RawItem) (*BatchReport, error) {
	report := &BatchReport{}
	records := make([]*core.ProgramRecord, 0, len(items))
	for _, item := range items {
		record, err := ix.normalizer.Normalize(item, source)
		if err != nil {
			ix.logger.Warn("skipping malformed item", "source", source, "err", err)
			report.Total++
			report.Skipped++
			if id := firstOf(item, externalIDAliases); id != "" {
				report.addFailure(id)
			}
			ix.metrics.Skipped.Inc()
			continue
		}
		records = append(records, record)
	}

	indexed, err := ix.IndexRecords(ctx, records...)
	report.Merge(indexed)
	return report, err
}

// IndexRecords extracts predicates, embeds and upserts normalized records.
// Cancellation is honoured between records: records already embedded are
// still upserted and the context error is returned with the partial report.
func (ix *Indexer) IndexRecords(ctx context.Context, records ...*core.ProgramRecord) (*BatchReport, error) {
	report := &BatchReport{}
	var valid []*core.ProgramRecord
	for _, record := range records {
		report.Total++
		preds, _ := ix.extractor.Extract(record.Title + " " + record.Description)
		record.Predicates = preds
		if err := core.ValidateProgramRecord(record); err != nil {
			ix.logger.Warn("skipping invalid record", "externalId", record.ExternalId, "err", err)
			report.Skipped++
			report.addFailure(record.ExternalId)
			ix.metrics.Skipped.Inc()
			continue
		}
		valid = append(valid, record)
	}

	failures, done := ix.embedAll(ctx, valid)

	var ready []*core.ProgramRecord
	var queued []core.RetryEntry
	for i, record := range valid {
		if !done[i] {
			continue
		}
		ready = append(ready, record)
		if failures[i] != nil {
			queued = append(queued, core.RetryEntry{
				RecordId:   record.Id,
				Reason:     failures[i].Error(),
				EnqueuedAt: time.Now().UTC(),
			})
			report.addFailure(record.ExternalId)
		} else {
			report.Embedded++
		}
	}

	// finish what was embedded even when the batch was cancelled
	writeCtx := context.WithoutCancel(ctx)
	if len(ready) > 0 {
		summary, err := ix.upsert(writeCtx, ready)
		if err != nil {
			return report, fmt.Errorf("upserting programs: %w", err)
		}
		report.Inserted += summary.Inserted
		report.Updated += summary.Updated
		for _, record := range ready {
			ix.metrics.Ingested.WithLabelValues(string(record.SourceType)).Inc()
		}
	}
	if len(queued) > 0 {
		err := ix.store(writeCtx, "enqueue", func(ctx context.Context) error {
			return ix.retries.EnqueueRetries(ctx, queued...)
		})
		if err != nil {
			return report, fmt.Errorf("queueing embedding retries: %w", err)
		}
		report.Queued += len(queued)
		ix.metrics.Queued.Add(float64(len(queued)))
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// embedAll embeds records on the pool. done[i] is false for records
// skipped because ctx was cancelled before their turn.
func (ix *Indexer) embedAll(ctx context.Context, records []*core.ProgramRecord) (failures []error, done []bool) {
	failures = make([]error, len(records))
	done = make([]bool, len(records))

	var wg sync.WaitGroup
	for i, record := range records {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			failures[i] = ix.embed(ctx, record)
			done[i] = true
		})
		if err != nil {
			wg.Done()
			failures[i] = err
			done[i] = true
		}
	}
	wg.Wait()
	return failures, done
}

// embed sets record.Vector to the normalized embedding of its projection.
func (ix *Indexer) embed(ctx context.Context, record *core.ProgramRecord) error {
	text := Projection(record, ix.config.MaxEmbedChars)
	var vector []float32
	err := ix.config.Retry.Do(ctx, func(ctx context.Context) error {
		v, err := ix.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return errors.New("embedder returned an empty vector")
		}
		vector = v
		return nil
	}, func(attempt int, err error) {
		ix.metrics.EmbedRetries.Inc()
		ix.logger.Debug("embedding failed, retrying", "id", record.Id, "attempt", attempt, "err", err)
	})
	if err != nil {
		ix.logger.Warn("embedding failed, queueing for retry", "id", record.Id, "err", err)
		return err
	}
	record.Vector = ai.NormalizeVector(vector)
	return nil
}

// upsert writes records to the index under the retry policy. Upserts are
// idempotent per id, so a retried write is safe.
func (ix *Indexer) upsert(ctx context.Context, records []*core.ProgramRecord) (storage.UpsertSummary, error) {
	var summary storage.UpsertSummary
	err := ix.store(ctx, "upsert", func(ctx context.Context) error {
		var err error
		summary, err = ix.index.UpsertPrograms(ctx, records...)
		return err
	})
	return summary, err
}

// store runs one index or queue call with the policy's attempt timeout and
// bounded retries.
func (ix *Indexer) store(ctx context.Context, call string, op func(ctx context.Context) error) error {
	return ix.config.Retry.Do(ctx, op, func(attempt int, err error) {
		ix.logger.Debug("store call failed, retrying", "call", call, "attempt", attempt, "err", err)
	})
}

// Projection is the text embedded for a record: title, description and
// support type, truncated to maxRunes.
func Projection(record *core.ProgramRecord, maxRunes int) string {
	text := record.Title + " " + record.Description
	if st := record.SupportType(); st != "" {
		text += " " + st
	}
	runes := []rune(text)
	if maxRunes > 0 && len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes)
}

// Drain re-embeds up to limit queued records. Records that succeed leave
// the queue; failures stay with a bumped attempt count. Ids no longer in
// the index are dropped from the queue.
func (ix *Indexer) Drain(ctx context.Context, limit int) (*BatchReport, error) {
	report := &BatchReport{}
	var entries []core.RetryEntry
	err := ix.store(ctx, "list retries", func(ctx context.Context) error {
		var err error
		entries, err = ix.retries.ListRetries(ctx, limit)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("listing retry queue: %w", err)
	}
	if len(entries) == 0 {
		return report, nil
	}

	ids := make([]core.ID, len(entries))
	for i, e := range entries {
		ids[i] = e.RecordId
	}
	var records []*core.ProgramRecord
	err = ix.store(ctx, "get", func(ctx context.Context) error {
		var err error
		records, err = ix.index.GetPrograms(ctx, ids...)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("loading queued programs: %w", err)
	}
	found := make(map[core.ID]bool, len(records))
	for _, r := range records {
		found[r.Id] = true
	}
	var orphans []core.ID
	for _, id := range ids {
		if !found[id] {
			orphans = append(orphans, id)
		}
	}

	failures, done := ix.embedAll(ctx, records)
	var embedded []*core.ProgramRecord
	var requeue []core.RetryEntry
	for i, record := range records {
		if !done[i] {
			continue
		}
		report.Total++
		if failures[i] != nil {
			requeue = append(requeue, core.RetryEntry{RecordId: record.Id, Reason: failures[i].Error()})
			report.addFailure(record.ExternalId)
			continue
		}
		embedded = append(embedded, record)
	}

	writeCtx := context.WithoutCancel(ctx)
	var errs []error
	if len(embedded) > 0 {
		summary, err := ix.upsert(writeCtx, embedded)
		if err != nil {
			return report, fmt.Errorf("upserting programs: %w", err)
		}
		report.Updated += summary.Updated
		report.Inserted += summary.Inserted
		report.Embedded += len(embedded)
		for _, r := range embedded {
			orphans = append(orphans, r.Id)
		}
	}
	err = ix.store(writeCtx, "remove retries", func(ctx context.Context) error {
		return ix.retries.RemoveRetries(ctx, orphans...)
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("removing drained entries: %w", err))
	}
	if len(requeue) > 0 {
		err := ix.store(writeCtx, "requeue", func(ctx context.Context) error {
			return ix.retries.EnqueueRetries(ctx, requeue...)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("requeueing entries: %w", err))
		}
		report.Queued += len(requeue)
	}
	if ctx.Err() != nil {
		errs = append(errs, ctx.Err())
	}

	ix.logger.Info("drained retry queue", "report", report.String())
	return report, errors.Join(errs...)
}

// Sync pulls every page of a feed, indexes it and records progress under name.
func (ix *Indexer) Sync(ctx context.Context, feed *FeedClient, source core.SourceType, name string) (*BatchReport, error) {
	report := &BatchReport{}
	err := feed.Fetch(ctx, func(pageNo int, page *Page) error {
		for _, rej := range page.Rejected {
			ix.logger.Warn("skipping malformed item", "page", pageNo, "err", rej)
		}
		report.Total += len(page.Rejected)
		report.Skipped += len(page.Rejected)
		ix.metrics.Skipped.Add(float64(len(page.Rejected)))

		pageReport, err := ix.IngestItems(ctx, source, page.Items)
		report.Merge(pageReport)
		ix.logger.Info("indexed feed page", "page", pageNo, "report", pageReport.String())
		return err
	})

	if perr := ix.saveProgress(context.WithoutCancel(ctx), name, report); perr != nil {
		err = errors.Join(err, perr)
	}
	return report, err
}

func (ix *Indexer) saveProgress(ctx context.Context, name string, report *BatchReport) error {
	if ix.progress == nil {
		return nil
	}
	progress, err := ix.progress.LoadProgress(ctx, name)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if progress == nil {
		progress = &core.IngestionProgress{Source: name}
	}
	progress.Ingested += int64(report.Inserted + report.Updated)
	progress.Skipped += int64(report.Skipped)
	progress.Queued += int64(report.Queued)
	if err := ix.progress.SaveProgress(ctx, progress); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	return nil
}
