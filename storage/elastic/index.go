package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultIndexName  = "govchat-programs"
	defaultDimensions = 1024
	// Elasticsearch's default index.max_result_window
	defaultPageSize = 10000
	// upper bound of knn k and num_candidates
	maxKNNCandidates = 10000
)

// ErrRequestFailed indicates Elasticsearch answered with an error status.
var ErrRequestFailed = errors.New("elasticsearch request failed")

// ProgramIndex implements storage.ProgramIndex on Elasticsearch.
type ProgramIndex struct {
	client     *elasticsearch.Client
	index      string
	dims       int
	pageSize   int
	logger     *slog.Logger
	now        func() time.Time
}

var _ storage.ProgramIndex = (*ProgramIndex)(nil)

// Option configures a ProgramIndex.
type Option func(*ProgramIndex) error

// WithIndexName sets the index name. Defaults to "govchat-programs".
func WithIndexName(name string) Option {
	return func(p *ProgramIndex) error {
		if name == "" {
			return errors.New("index name must not be empty")
		}
		p.index = name
		return nil
	}
}

// WithDimensions sets the embedding size used when creating the index.
func WithDimensions(dims int) Option {
	return func(p *ProgramIndex) error {
		if dims < 1 {
			return errors.New("dimensions must be positive")
		}
		p.dims = dims
		return nil
	}
}

// WithPageSize sets how many hits one search page returns. Filter and list
// queries page through every hit with search_after.
func WithPageSize(n int) Option {
	return func(p *ProgramIndex) error {
		if n < 1 || n > defaultPageSize {
			return fmt.Errorf("page size %d outside [1,%d]", n, defaultPageSize)
		}
		p.pageSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *ProgramIndex) error {
		p.logger = logger
		return nil
	}
}

// NewProgramIndex creates an Elasticsearch-backed index. Call EnsureIndex
// before first use against a fresh cluster.
func NewProgramIndex(client *elasticsearch.Client, opts ...Option) (*ProgramIndex, error) {
	if client == nil {
		return nil, errors.New("elasticsearch client is nil")
	}
	p := &ProgramIndex{
		client:     client,
		index:      defaultIndexName,
		dims:       defaultDimensions,
		pageSize:   defaultPageSize,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "elastic-index", "index", p.index)
	return p, nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (p *ProgramIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{p.index}}.Do(ctx, p.client)
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping(p.dims))
	if err != nil {
		return err
	}
	res, err = esapi.IndicesCreateRequest{Index: p.index, Body: bytes.NewReader(body)}.Do(ctx, p.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError(res)
	}
	p.logger.Info("created index", "dimensions", p.dims)
	return nil
}

// UpsertPrograms indexes records in one bulk request.
func (p *ProgramIndex) UpsertPrograms(ctx context.Context, records ...*core.ProgramRecord) (storage.UpsertSummary, error) {
	var summary storage.UpsertSummary
	if len(records) == 0 {
		return summary, nil
	}

	ids := make([]core.ID, len(records))
	for i, r := range records {
		ids[i] = r.Id
	}
	existing, err := p.getDocuments(ctx, ids...)
	if err != nil {
		return summary, err
	}

	var buf bytes.Buffer
	for _, record := range records {
		now := p.now()
		if old, ok := existing[record.Id]; ok {
			record.InsertedAt = old.Record.InsertedAt
			if !now.After(old.Record.UpdatedAt) {
				now = old.Record.UpdatedAt.Add(time.Microsecond)
			}
			if len(record.Vector) == 0 {
				record.Vector = old.Vector
			}
			summary.Updated++
		} else {
			record.InsertedAt = now
			summary.Inserted++
		}
		record.UpdatedAt = now
		existing[record.Id] = newDocument(record)

		meta := map[string]any{"index": map[string]any{"_id": record.Id.String()}}
		if err := writeNDJSON(&buf, meta, newDocument(record)); err != nil {
			return storage.UpsertSummary{}, err
		}
	}

	res, err := esapi.BulkRequest{Index: p.index, Body: &buf, Refresh: "wait_for"}.Do(ctx, p.client)
	if err != nil {
		return storage.UpsertSummary{}, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return storage.UpsertSummary{}, responseError(res)
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return storage.UpsertSummary{}, err
	}
	if bulk.Errors {
		for _, item := range bulk.Items {
			for _, result := range item {
				if result.Status >= 300 {
					return storage.UpsertSummary{}, fmt.Errorf("%w: bulk item %s status %d", ErrRequestFailed, result.ID, result.Status)
				}
			}
		}
	}
	return summary, nil
}

// GetProgram retrieves a single record by ID.
func (p *ProgramIndex) GetProgram(ctx context.Context, id core.ID) (*core.ProgramRecord, error) {
	docs, err := p.getDocuments(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: program %s", storage.ErrNotFound, id)
	}
	return doc.toRecord(), nil
}

// GetPrograms retrieves the records that exist, in request order.
func (p *ProgramIndex) GetPrograms(ctx context.Context, ids ...core.ID) ([]*core.ProgramRecord, error) {
	docs, err := p.getDocuments(ctx, ids...)
	if err != nil {
		return nil, err
	}
	records := make([]*core.ProgramRecord, 0, len(docs))
	for _, id := range ids {
		if doc, ok := docs[id]; ok {
			records = append(records, doc.toRecord())
		}
	}
	return records, nil
}

// QueryByFilter returns IDs of active records consistent with the filter.
func (p *ProgramIndex) QueryByFilter(ctx context.Context, filter core.Filter) ([]core.ID, error) {
	hits, err := p.searchAll(ctx, buildFilterQuery(filter))
	if err != nil {
		return nil, err
	}
	ids := make([]core.ID, 0, len(hits))
	for _, h := range hits {
		id, err := core.ParseID(h.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// QueryByVector runs an approximate knn search over active records. k is
// capped at 10000; records beyond the cap are left out.
func (p *ProgramIndex) QueryByVector(ctx context.Context, vector []float32, k int) ([]core.SimilarityMatch, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}
	hits, err := p.search(ctx, buildKNNQuery(vector, k))
	if err != nil {
		return nil, err
	}
	matches := make([]core.SimilarityMatch, 0, len(hits))
	for _, h := range hits {
		id, err := core.ParseID(h.ID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, core.SimilarityMatch{RecordId: id, Score: cosineFromScore(h.Score)})
	}
	return matches, nil
}

// ListPrograms returns every record ordered by ID.
func (p *ProgramIndex) ListPrograms(ctx context.Context) ([]*core.ProgramRecord, error) {
	hits, err := p.searchAll(ctx, map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
	})
	if err != nil {
		return nil, err
	}
	records := make([]*core.ProgramRecord, 0, len(hits))
	for _, h := range hits {
		if h.Source.Record != nil {
			records = append(records, h.Source.toRecord())
		}
	}
	return records, nil
}

// CountPrograms returns the number of active records.
func (p *ProgramIndex) CountPrograms(ctx context.Context) (int, error) {
	body, err := json.Marshal(map[string]any{"query": termClause("active", "true")})
	if err != nil {
		return 0, err
	}
	res, err := esapi.CountRequest{Index: []string{p.index}, Body: bytes.NewReader(body)}.Do(ctx, p.client)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError(res)
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Close is a no-op; the client belongs to the caller.
func (p *ProgramIndex) Close() error {
	return nil
}

type hit struct {
	ID     string   `json:"_id"`
	Score  float64  `json:"_score"`
	Source document `json:"_source"`
	Sort   []any    `json:"sort"`
}

// searchAll pages through every hit of query in id order with search_after.
func (p *ProgramIndex) searchAll(ctx context.Context, query map[string]any) ([]hit, error) {
	var (
		all   []hit
		after []any
	)
	for {
		page := maps.Clone(query)
		page["size"] = p.pageSize
		page["sort"] = []any{map[string]any{"id": "asc"}}
		if after != nil {
			page["search_after"] = after
		}
		hits, err := p.search(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
		if len(hits) < p.pageSize {
			return all, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("%w: page without sort values", ErrRequestFailed)
		}
	}
}

func (p *ProgramIndex) search(ctx context.Context, query map[string]any) ([]hit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	res, err := esapi.SearchRequest{Index: []string{p.index}, Body: bytes.NewReader(body)}.Do(ctx, p.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError(res)
	}
	var out struct {
		Hits struct {
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Hits.Hits, nil
}

func (p *ProgramIndex) getDocuments(ctx context.Context, ids ...core.ID) (map[core.ID]document, error) {
	docs := make(map[core.ID]document, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	body, err := json.Marshal(map[string]any{"ids": keys})
	if err != nil {
		return nil, err
	}
	res, err := esapi.MgetRequest{Index: p.index, Body: bytes.NewReader(body)}.Do(ctx, p.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return docs, nil
	}
	if res.IsError() {
		return nil, responseError(res)
	}
	var out struct {
		Docs []struct {
			ID     string   `json:"_id"`
			Found  bool     `json:"found"`
			Source document `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	for _, d := range out.Docs {
		if !d.Found || d.Source.Record == nil {
			continue
		}
		docs[d.Source.Record.Id] = d.Source
	}
	return docs, nil
}

func (d document) toRecord() *core.ProgramRecord {
	record := *d.Record
	record.Vector = d.Vector
	return &record
}

func writeNDJSON(w io.Writer, lines ...any) error {
	enc := json.NewEncoder(w)
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%w: %s: %s", ErrRequestFailed, res.Status(), bytes.TrimSpace(body))
}
