package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/crazybass81/GovChat/ai"
	"github.com/crazybass81/GovChat/core"
	"github.com/crazybass81/GovChat/ingestion"
	"github.com/crazybass81/GovChat/matching"
	"github.com/crazybass81/GovChat/retry"
	"github.com/crazybass81/GovChat/search"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. GOVCHAT_AI_TOKEN.
const EnvPrefix = "GOVCHAT"

var (
	// ErrInvalidConfig is returned when a loaded value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Index and profile backends.
const (
	BackendBadger        = "badger"
	BackendElasticsearch = "elasticsearch"
	BackendRedis         = "redis"
	BackendMemory        = "memory"
)

// Config is the full engine configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Storage   StorageConfig   `mapstructure:"storage"`
	AI        AIConfig        `mapstructure:"ai"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Server    ServerConfig    `mapstructure:"server"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Search    SearchConfig    `mapstructure:"search"`
	Matching  MatchingConfig  `mapstructure:"matching"`
}

// StorageConfig selects and locates the index and the profile store.
type StorageConfig struct {
	DataDir          string        `mapstructure:"data_dir"` // empty keeps badger in memory
	Index            string        `mapstructure:"index"`
	Profiles         string        `mapstructure:"profiles"`
	ProfileTTL       time.Duration `mapstructure:"profile_ttl"`
	ElasticAddresses []string      `mapstructure:"elastic_addresses"`
	ElasticIndex     string        `mapstructure:"elastic_index"`
	ElasticDims      int           `mapstructure:"elastic_dims"`
	ElasticTimeout   time.Duration `mapstructure:"elastic_timeout"` // per response, zero waits forever
	RedisAddr        string        `mapstructure:"redis_addr"`
	RedisPassword    string        `mapstructure:"redis_password"`
	RedisDB          int           `mapstructure:"redis_db"`
}

type AIConfig struct {
	EmbeddingHost  string `mapstructure:"embedding_host"`
	GeneratorHost  string `mapstructure:"generator_host"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	GeneratorModel string `mapstructure:"generator_model"`
	Token          string `mapstructure:"token"`
}

// FeedConfig points at the public-data listing feed.
type FeedConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
	Source     string `mapstructure:"source"`
	Name       string `mapstructure:"name"` // progress counter key
	PageSize   int    `mapstructure:"page_size"`
	MaxPages   int    `mapstructure:"max_pages"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxCandidates   int           `mapstructure:"max_candidates"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

type IngestionConfig struct {
	PoolSize       int    `mapstructure:"pool_size"`
	MaxEmbedChars  int    `mapstructure:"max_embed_chars"`
	VocabularyFile string `mapstructure:"vocabulary_file"`
	DrainLimit     int    `mapstructure:"drain_limit"`
	ReembedBatch   int    `mapstructure:"reembed_batch"`
}

type SearchConfig struct {
	Alpha      float64 `mapstructure:"alpha"`
	MaxResults int     `mapstructure:"max_results"`
}

type MatchingConfig struct {
	ConfidenceThreshold  float64            `mapstructure:"confidence_threshold"`
	SmallResultThreshold int                `mapstructure:"small_result_threshold"`
	MaxTurns             int                `mapstructure:"max_turns"`
	TopN                 int                `mapstructure:"top_n"`
	Epsilon              float64            `mapstructure:"epsilon"`
	TurnTimeout          time.Duration      `mapstructure:"turn_timeout"`
	Weights              map[string]float64 `mapstructure:"weights"`
}

// Load reads configFile (optional) and the given .env files, then applies
// environment overrides. Missing .env files are ignored; with no envFiles
// ".env" in the working directory is tried. Variables already set in the
// environment win over .env entries.
func Load(configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("govchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	aiCfg := ai.DefaultConfig()
	policy := retry.DefaultPolicy()
	ing := ingestion.DefaultConfig()
	srch := search.DefaultConfig()
	match := matching.DefaultConfig()

	v.SetDefault("log_level", "info")

	v.SetDefault("storage.data_dir", "govchat.db")
	v.SetDefault("storage.index", BackendBadger)
	v.SetDefault("storage.profiles", BackendBadger)
	v.SetDefault("storage.profile_ttl", 24*time.Hour)
	v.SetDefault("storage.elastic_addresses", []string{"http://localhost:9200"})
	v.SetDefault("storage.elastic_index", "govchat-programs")
	v.SetDefault("storage.elastic_dims", 1024)
	v.SetDefault("storage.elastic_timeout", 10*time.Second)
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)

	v.SetDefault("ai.embedding_host", aiCfg.EmbeddingHost)
	v.SetDefault("ai.generator_host", aiCfg.GeneratorHost)
	v.SetDefault("ai.embedding_model", aiCfg.EmbeddingModel)
	v.SetDefault("ai.generator_model", aiCfg.GeneratorModel)
	v.SetDefault("ai.token", aiCfg.Token)

	v.SetDefault("feed.base_url", "")
	v.SetDefault("feed.service_key", "")
	v.SetDefault("feed.source", string(core.SourceTypeAPI))
	v.SetDefault("feed.name", "default")
	v.SetDefault("feed.page_size", 100)
	v.SetDefault("feed.max_pages", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_candidates", 10)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("retry.max_attempts", policy.MaxAttempts)
	v.SetDefault("retry.base_delay", policy.BaseDelay)
	v.SetDefault("retry.attempt_timeout", policy.AttemptTimeout)

	v.SetDefault("ingestion.pool_size", ing.PoolSize)
	v.SetDefault("ingestion.max_embed_chars", ing.MaxEmbedChars)
	v.SetDefault("ingestion.vocabulary_file", "")
	v.SetDefault("ingestion.drain_limit", 0)
	v.SetDefault("ingestion.reembed_batch", 100)

	v.SetDefault("search.alpha", srch.Alpha)
	v.SetDefault("search.max_results", srch.MaxResults)

	v.SetDefault("matching.confidence_threshold", match.ConfidenceThreshold)
	v.SetDefault("matching.small_result_threshold", match.SmallResultThreshold)
	v.SetDefault("matching.max_turns", match.MaxTurns)
	v.SetDefault("matching.top_n", match.TopN)
	v.SetDefault("matching.epsilon", match.Epsilon)
	v.SetDefault("matching.turn_timeout", match.TurnTimeout)
	weights := map[string]float64{}
	for field, w := range match.Weights {
		weights[string(field)] = w
	}
	v.SetDefault("matching.weights", weights)
}

// Validate checks the backends and every derived component config.
func (c *Config) Validate() error {
	switch c.Storage.Index {
	case BackendBadger, BackendElasticsearch:
	default:
		return fmt.Errorf("%w: unknown index backend %q", ErrInvalidConfig, c.Storage.Index)
	}
	switch c.Storage.Profiles {
	case BackendBadger, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown profile backend %q", ErrInvalidConfig, c.Storage.Profiles)
	}
	if c.Storage.Index == BackendElasticsearch && len(c.Storage.ElasticAddresses) == 0 {
		return fmt.Errorf("%w: elasticsearch index needs addresses", ErrInvalidConfig)
	}
	if c.Storage.ElasticTimeout < 0 {
		return fmt.Errorf("%w: elastic timeout %s", ErrInvalidConfig, c.Storage.ElasticTimeout)
	}
	if err := core.ValidateSourceType(core.SourceType(c.Feed.Source)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for field := range c.Matching.Weights {
		if !knownField(field) {
			return fmt.Errorf("%w: weight for unknown field %q", ErrInvalidConfig, field)
		}
	}

	if err := c.IngestionConfig().Validate(); err != nil {
		return err
	}
	if err := c.SearchConfig().Validate(); err != nil {
		return err
	}
	return c.MatchingConfig().Validate()
}

func knownField(name string) bool {
	for _, f := range core.ProfileFields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// AIConfig returns the provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGeneratorHost(c.AI.GeneratorHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGeneratorModel(c.AI.GeneratorModel),
		ai.WithToken(c.AI.Token),
	)
}

// RetryPolicy returns the provider retry policy shared by every component.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    c.Retry.MaxAttempts,
		BaseDelay:      c.Retry.BaseDelay,
		AttemptTimeout: c.Retry.AttemptTimeout,
	}
}

func (c *Config) IngestionConfig() ingestion.Config {
	return ingestion.Config{
		PoolSize:      c.Ingestion.PoolSize,
		MaxEmbedChars: c.Ingestion.MaxEmbedChars,
		Retry:         c.RetryPolicy(),
	}
}

func (c *Config) SearchConfig() search.Config {
	return search.Config{
		Alpha:      c.Search.Alpha,
		MaxResults: c.Search.MaxResults,
		Retry:      c.RetryPolicy(),
	}
}

func (c *Config) MatchingConfig() matching.Config {
	weights := make(map[core.ProfileField]float64, len(c.Matching.Weights))
	for field, w := range c.Matching.Weights {
		weights[core.ProfileField(field)] = w
	}
	return matching.Config{
		ConfidenceThreshold:  c.Matching.ConfidenceThreshold,
		SmallResultThreshold: c.Matching.SmallResultThreshold,
		MaxTurns:             c.Matching.MaxTurns,
		TopN:                 c.Matching.TopN,
		Epsilon:              c.Matching.Epsilon,
		TurnTimeout:          c.Matching.TurnTimeout,
		Weights:              weights,
	}
}
