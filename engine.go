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


// Package govchat wires the policy matching engine together: storage,
// the AI provider, ingestion, retrieval and the conversation controller.
package govchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/ai/openai"
	"github.com/crazybass81/GovChat/api"
	"github.com/crazybass81/GovChat/config"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
	"github.com/crazybass81/GovChat/matching"
	"github.com/crazybass81/GovChat/reembed"
	"github.com/crazybass81/GovChat/search"
	"github.com/crazybass81/GovChat/storage"
	"github.com/crazybass81/GovChat/storage/badger"
	"github.com/crazybass81/GovChat/storage/elastic"
	"github.com/crazybass81/GovChat/storage/memory"
	redisstore "github.com/crazybass81/GovChat/storage/redis"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Engine struct {
	config    *config.Config
	backend   *badger.Backend
	index     storage.ProgramIndex
	profiles  storage.ProfileStore
	retries   storage.RetryQueue
	progress  storage.ProgressRepository
	provider  ai.AIProvider
	extractor *ingestion.Extractor
	registry  *prometheus.Registry
	ingest    *ingestion.Metrics
	turns     *matching.Metrics
	redis     redis.UniversalClient
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of the OpenAI-compatible one built from
// the configuration. The engine closes it on Close.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens the configured stores and the AI provider.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	e := &Engine{
		config:   cfg,
		registry: registry,
		ingest:   ingestion.NewMetrics(registry),
		turns:    matching.NewMetrics(registry),
		logger:   options.logger.With("component", "engine"),
	}
	if err := e.open(ctx, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(ctx context.Context, options *engineOptions) error {
	var err error
	dir := e.config.Storage.DataDir
	if e.backend, err = badger.OpenBackend(dir, dir == ""); err != nil {
		return fmt.Errorf("opening data dir: %w", err)
	}
	e.retries = badger.NewRetryQueue(e.backend)
	e.progress = badger.NewProgressRepository(e.backend)

	if e.index, err = e.openIndex(ctx); err != nil {
		return err
	}
	if e.profiles, err = e.openProfiles(); err != nil {
		return err
	}

	extractorOpts := []ingestion.ExtractorOption{ingestion.WithExtractorLogger(options.logger)}
	if path := e.config.Ingestion.VocabularyFile; path != "" {
		vocab, err := loadVocabulary(path)
		if err != nil {
			return err
		}
		extractorOpts = append(extractorOpts, ingestion.WithVocabulary(vocab))
	}
	if e.extractor, err = ingestion.NewExtractor(extractorOpts...); err != nil {
		return err
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(e.config.AIConfig()); err != nil {
			return fmt.Errorf("creating AI provider: %w", err)
		}
	}
	return nil
}

func (e *Engine) openIndex(ctx context.Context) (storage.ProgramIndex, error) {
	switch e.config.Storage.Index {
	case config.BackendElasticsearch:
		client, err := elasticsearch.NewClient(elasticConfig(e.config.Storage))
		if err != nil {
			return nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}
		index, err := elastic.NewProgramIndex(client,
			elastic.WithIndexName(e.config.Storage.ElasticIndex),
			elastic.WithDimensions(e.config.Storage.ElasticDims),
			elastic.WithLogger(e.logger),
		)
		if err != nil {
			return nil, err
		}
		if err := index.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("preparing elasticsearch index: %w", err)
		}
		return index, nil
	default:
		return badger.NewProgramIndex(e.backend)
	}
}

// elasticConfig bounds every cluster response so a stalled node fails the
// attempt instead of holding it.
func elasticConfig(cfg config.StorageConfig) elasticsearch.Config {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.ElasticTimeout
	return elasticsearch.Config{
		Addresses: cfg.ElasticAddresses,
		Transport: transport,
	}
}

func (e *Engine) openProfiles() (storage.ProfileStore, error) {
	ttl := e.config.Storage.ProfileTTL
	switch e.config.Storage.Profiles {
	case config.BackendRedis:
		e.redis = redis.NewClient(&redis.Options{
			Addr:     e.config.Storage.RedisAddr,
			Password: e.config.Storage.RedisPassword,
			DB:       e.config.Storage.RedisDB,
		})
		opts := []redisstore.Option{}
		if ttl > 0 {
			opts = append(opts, redisstore.WithTTL(ttl))
		}
		return redisstore.NewProfileStore(e.redis, opts...)
	case config.BackendMemory:
		return memory.NewProfileStore(ttl), nil
	default:
		return badger.NewProfileStore(e.backend, ttl)
	}
}

func loadVocabulary(path string) (*ingestion.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary: %w", err)
	}
	defer f.Close()
	return ingestion.LoadVocabulary(f)
}

// Close releases the provider and every store. It is safe on a partly opened engine.
func (e *Engine) Close() error {
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.profiles != nil {
		errs = append(errs, e.profiles.Close())
	}
	if e.index != nil {
		errs = append(errs, e.index.Close())
	}
	if e.redis != nil {
		errs = append(errs, e.redis.Close())
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) ProgramIndex() storage.ProgramIndex {
	return e.index
}

func (e *Engine) ProfileStore() storage.ProfileStore {
	return e.profiles
}

func (e *Engine) RetryQueue() storage.RetryQueue {
	return e.retries
}

func (e *Engine) ProgressRepository() storage.ProgressRepository {
	return e.progress
}

// Registry holds every engine metric.
func (e *Engine) Registry() *prometheus.Registry {
	return e.registry
}

// NewIndexer creates an indexer over the engine's stores. Callers must Release it.
func (e *Engine) NewIndexer(opts ...ingestion.Option) (*ingestion.Indexer, error) {
	base := []ingestion.Option{
		ingestion.WithConfig(e.config.IngestionConfig()),
		ingestion.WithExtractor(e.extractor),
		ingestion.WithProgressRepository(e.progress),
		ingestion.WithSharedMetrics(e.ingest),
		ingestion.WithLogger(e.logger),
	}
	return ingestion.NewIndexer(e.index, e.retries, e.provider, append(base, opts...)...)
}

// NewFeedClient creates a client for the configured listing feed.
func (e *Engine) NewFeedClient(opts ...ingestion.FeedOption) (*ingestion.FeedClient, error) {
	feed := e.config.Feed
	base := []ingestion.FeedOption{
		ingestion.WithFeedRetry(e.config.RetryPolicy()),
		ingestion.WithFeedLogger(e.logger),
	}
	// zero keeps the client defaults
	if feed.PageSize > 0 {
		base = append(base, ingestion.WithPageSize(feed.PageSize))
	}
	if feed.MaxPages > 0 {
		base = append(base, ingestion.WithMaxPages(feed.MaxPages))
	}
	if feed.ServiceKey != "" {
		base = append(base, ingestion.WithServiceKey(feed.ServiceKey))
	}
	return ingestion.NewFeedClient(feed.BaseURL, append(base, opts...)...)
}

// Sync pulls the configured feed into the index. opts are applied to the
// indexer after the configured defaults.
func (e *Engine) Sync(ctx context.Context, opts ...ingestion.Option) (*ingestion.BatchReport, error) {
	feed, err := e.NewFeedClient()
	if err != nil {
		return nil, err
	}
	indexer, err := e.NewIndexer(opts...)
	if err != nil {
		return nil, err
	}
	defer indexer.Release()
	return indexer.Sync(ctx, feed, core.SourceType(e.config.Feed.Source), e.config.Feed.Name)
}

func (e *Engine) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	base := []search.Option{
		search.WithConfig(e.config.SearchConfig()),
		search.WithLogger(e.logger),
	}
	return search.NewRetriever(e.index, e.provider, append(base, opts...)...)
}

// NewController creates a conversation controller backed by a fresh retriever.
func (e *Engine) NewController(opts ...matching.Option) (*matching.Controller, error) {
	retriever, err := e.NewRetriever()
	if err != nil {
		return nil, err
	}
	base := []matching.Option{
		matching.WithConfig(e.config.MatchingConfig()),
		matching.WithExtractor(e.extractor),
		matching.WithSharedMetrics(e.turns),
		matching.WithLogger(e.logger),
	}
	return matching.NewController(retriever, e.profiles, e.provider, append(base, opts...)...)
}

// NewServer creates the HTTP server in front of a new controller.
func (e *Engine) NewServer(opts ...api.Option) (*api.Server, error) {
	controller, err := e.NewController()
	if err != nil {
		return nil, err
	}
	base := []api.Option{
		api.WithGatherer(e.registry),
		api.WithMaxCandidates(e.config.Server.MaxCandidates),
		api.WithLogger(e.logger),
	}
	return api.New(controller, append(base, opts...)...)
}

// NewReembedder creates a reembedder that queues failed batches for Drain.
func (e *Engine) NewReembedder(progress io.Writer) (*reembed.Reembedder, error) {
	cfg := reembed.DefaultConfig()
	cfg.BatchSize = e.config.Ingestion.ReembedBatch
	cfg.MaxEmbedChars = e.config.Ingestion.MaxEmbedChars
	cfg.Retry = e.config.RetryPolicy()
	return reembed.NewReembedder(e.index, e.retries, e.provider.Embedder(), cfg, progress)
}
