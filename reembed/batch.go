package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
	"github.com/crazybass81/GovChat/retry"
	"github.com/crazybass81/GovChat/storage"
)

// driftThreshold is the cosine below which a new vector counts as changed.
const driftThreshold = 0.999

// BatchResult counts the outcome of one batch.
type BatchResult struct {
	Embedded int
	Queued   int
	Drifted  int // previous vector existed and moved noticeably
}

// BatchProcessor embeds batches of programs and writes them back.
type BatchProcessor struct {
	index    storage.ProgramIndex
	retries  storage.RetryQueue
	embedder ai.Embedder
	policy   retry.Policy
	maxChars int
	logger   *slog.Logger
}

// NewBatchProcessor creates a new batch processor. retries may be nil, in
// which case a failed batch is returned as an error.
func NewBatchProcessor(index storage.ProgramIndex, retries storage.RetryQueue, embedder ai.Embedder, policy retry.Policy, maxChars int) *BatchProcessor {
	return &BatchProcessor{
		index:    index,
		retries:  retries,
		embedder: embedder,
		policy:   policy,
		maxChars: maxChars,
		logger:   slog.Default().With("component", "reembed"),
	}
}

// Process embeds the programs' projections with one batch call and upserts
// the normalized vectors.
func (bp *BatchProcessor) Process(ctx context.Context, programs []*core.ProgramRecord) (BatchResult, error) {
	var result BatchResult
	if len(programs) == 0 {
		return result, nil
	}

	texts := make([]string, len(programs))
	for i, p := range programs {
		texts[i] = ingestion.Projection(p, bp.maxChars)
	}

	var embeddings [][]float32
	err := bp.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(embeddings) != len(programs) {
			return retry.Permanent(fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(programs), len(embeddings)))
		}
		return err
	}, func(attempt int, err error) {
		bp.logger.Debug("batch embedding failed, retrying", "attempt", attempt, "size", len(programs), "err", err)
	})
	if err != nil {
		return bp.queue(ctx, programs, err)
	}

	for i, p := range programs {
		vector := ai.NormalizeVector(embeddings[i])
		if len(p.Vector) > 0 && ai.Cosine(p.Vector, vector) < driftThreshold {
			result.Drifted++
		}
		p.Vector = vector
	}

	if _, err := bp.index.UpsertPrograms(ctx, programs...); err != nil {
		return result, fmt.Errorf("failed to update programs: %w", err)
	}
	result.Embedded = len(programs)
	return result, nil
}

func (bp *BatchProcessor) queue(ctx context.Context, programs []*core.ProgramRecord, cause error) (BatchResult, error) {
	if bp.retries == nil {
		return BatchResult{}, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.policy.MaxAttempts, cause)
	}

	entries := make([]core.RetryEntry, len(programs))
	now := time.Now().UTC()
	for i, p := range programs {
		entries[i] = core.RetryEntry{RecordId: p.Id, Reason: cause.Error(), EnqueuedAt: now}
	}
	if err := bp.retries.EnqueueRetries(context.WithoutCancel(ctx), entries...); err != nil {
		return BatchResult{}, fmt.Errorf("failed to queue batch: %w", err)
	}
	bp.logger.Warn("batch embedding failed, queued for retry", "size", len(programs), "err", cause)
	return BatchResult{Queued: len(programs)}, nil
}
