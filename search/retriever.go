package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"golang.org/x/sync/errgroup"
)

// Query is what a retrieval ranks against.
type Query struct {
	Filter core.Filter
	Text   string
}

// QueryFromProfile builds a query from the profile's known fields and free text.
func QueryFromProfile(profile *core.UserProfile) Query {
	return Query{Filter: profile.Filter(), Text: profile.FreeText}
}

// Retriever provides hybrid attribute and vector retrieval over program records.
type Retriever struct {
	index    storage.ProgramIndex
	embedder ai.Embedder
	config   Config
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithConfig replaces the default ranking configuration.
func WithConfig(cfg Config) Option {
	return func(r *Retriever) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		r.config = cfg
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(index storage.ProgramIndex, provider ai.AIProvider, opts ...Option) (*Retriever, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		index:    index,
		embedder: provider.Embedder(),
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")
	return r, nil
}

// Retrieve ranks programs for the query. See RetrieveWithMonitor.
func (r *Retriever) Retrieve(ctx context.Context, query Query) (*core.CandidateSet, error) {
	return r.RetrieveWithMonitor(ctx, query, nil)
}

// RetrieveWithMonitor ranks programs for the query, reporting each stage to monitor.
//
// Every index read runs under the retry policy and the caller's deadline.
// The filter query and the record load run alongside the query embedding;
// when they fail, nothing has been found and the error is returned. A
// failure or an expired deadline after that point only degrades the ranking
// to predicate-only, so the records already loaded are always ranked.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query Query, monitor RetrievalMonitor) (*core.CandidateSet, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query)

	text := strings.TrimSpace(query.Text)

	var (
		filtered []core.ID
		records  []*core.ProgramRecord
		vector   []float32
		embedErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		filtered, records, err = r.load(gctx, query.Filter)
		return err
	})
	if text != "" {
		g.Go(func() error {
			// embedding failures degrade, they never fail the group
			vector, embedErr = r.embed(gctx, text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error("error loading candidates", "err", err)
		return nil, err
	}
	monitor.AfterFilter(filtered)
	if text != "" {
		monitor.AfterEmbedding(vector, embedErr)
	}

	set := &core.CandidateSet{
		Total:    len(filtered),
		Fallback: len(filtered) == 0 && len(records) > 0,
		Degraded: embedErr != nil,
	}
	if set.Fallback {
		monitor.FallingBack(len(records))
		r.logger.Debug("no program satisfies the filter, ranking whole index", "filter", query.Filter)
	}
	if len(records) == 0 {
		monitor.Finish(set)
		return set, nil
	}

	var cosines map[core.ID]float64
	if len(vector) > 0 {
		matches, err := r.similar(ctx, vector, len(records), set.Fallback)
		monitor.AfterVectorSearch(matches, err)
		if err != nil {
			r.logger.Warn("vector query failed, ranking by predicates only", "err", err)
			set.Degraded = true
		} else {
			cosines = make(map[core.ID]float64, len(matches))
			for _, m := range matches {
				cosines[m.RecordId] = min(max(float64(m.Score), 0), 1)
			}
		}
	}

	set.Candidates = r.rank(records, query.Filter, cosines, set.Fallback)
	if len(set.Candidates) > r.config.MaxResults {
		set.Candidates = set.Candidates[:r.config.MaxResults]
	}
	monitor.Finish(set)
	return set, nil
}

// load runs the filter query and fetches the matching records. An empty
// filtered set loads every active record for the fallback ranking.
func (r *Retriever) load(ctx context.Context, filter core.Filter) ([]core.ID, []*core.ProgramRecord, error) {
	var filtered []core.ID
	err := r.read(ctx, "filter", func(ctx context.Context) error {
		var err error
		filtered, err = r.index.QueryByFilter(ctx, filter)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("filter query: %w", err)
	}

	var records []*core.ProgramRecord
	if len(filtered) > 0 {
		err = r.read(ctx, "get", func(ctx context.Context) error {
			var err error
			records, err = r.index.GetPrograms(ctx, filtered...)
			return err
		})
	} else {
		err = r.read(ctx, "list", func(ctx context.Context) error {
			var err error
			records, err = r.index.ListPrograms(ctx)
			return err
		})
		records = slices.DeleteFunc(records, func(p *core.ProgramRecord) bool { return !p.Active })
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading programs: %w", err)
	}
	return filtered, records, nil
}

// similar queries the vector index. Outside fallback the filtered records
// may sit anywhere in the similarity order, so the whole index is asked for.
func (r *Retriever) similar(ctx context.Context, vector []float32, loaded int, fallback bool) ([]core.SimilarityMatch, error) {
	k := loaded
	if !fallback {
		err := r.read(ctx, "count", func(ctx context.Context) error {
			var err error
			k, err = r.index.CountPrograms(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	var matches []core.SimilarityMatch
	err := r.read(ctx, "vector", func(ctx context.Context) error {
		var err error
		matches, err = r.index.QueryByVector(ctx, vector, k)
		return err
	})
	return matches, err
}

// read runs one index call under the retry policy. Each attempt carries the
// policy's attempt timeout on top of the caller's deadline.
func (r *Retriever) read(ctx context.Context, call string, op func(ctx context.Context) error) error {
	return r.config.Retry.Do(ctx, op, func(attempt int, err error) {
		r.logger.Debug("index read failed, retrying", "call", call, "attempt", attempt, "err", err)
	})
}

// rank scores records and orders them by score, matched predicate count,
// most recent update, then id. A nil cosines map means predicate-only.
func (r *Retriever) rank(records []*core.ProgramRecord, filter core.Filter, cosines map[core.ID]float64, fallback bool) []core.Candidate {
	candidates := make([]core.Candidate, 0, len(records))
	for _, record := range records {
		ev := filter.Evaluate(record.Predicates)
		ratio := ev.MatchRatio()
		if fallback {
			ratio = ev.PartialRatio()
		}

		score := ratio
		if cosines != nil {
			score = r.config.Alpha*ratio + (1-r.config.Alpha)*cosines[record.Id]
		}
		candidates = append(candidates, core.Candidate{Record: record, Score: score, Matched: ev.Satisfied})
	}

	slices.SortFunc(candidates, func(a, b core.Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Matched, a.Matched); c != 0 {
			return c
		}
		if c := b.Record.UpdatedAt.Compare(a.Record.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.Id, b.Record.Id)
	})
	return candidates
}

// embed computes a normalized query vector under the retry policy.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := r.config.Retry.Do(ctx, func(ctx context.Context) error {
		v, err := r.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	}, func(attempt int, err error) {
		r.logger.Debug("query embedding failed, retrying", "attempt", attempt, "err", err)
	})
	if err != nil {
		r.logger.Warn("query embedding failed, ranking by predicates only", "err", err)
		return nil, err
	}
	return ai.NormalizeVector(vector), nil
}
