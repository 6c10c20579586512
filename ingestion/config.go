package ingestion

import (
	"fmt"
	"runtime"

	"github.com/crazybass81/GovChat/retry"
)

// Config tunes the indexer.
type Config struct {
	// PoolSize is the number of concurrent embedding workers.
	PoolSize int

	// MaxEmbedChars truncates the embedding projection, counted in runes.
	MaxEmbedChars int

	// Retry bounds every embedding call.
	Retry retry.Policy
}

// DefaultConfig returns half the CPUs as workers, 2000-rune projections and the default retry policy.
func DefaultConfig() Config {
	return Config{
		PoolSize:      max(runtime.NumCPU()/2, 1),
		MaxEmbedChars: 2000,
		Retry:         retry.DefaultPolicy(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: pool size %d", ErrInvalidConfig, c.PoolSize)
	}
	if c.MaxEmbedChars < 1 {
		return fmt.Errorf("%w: max embed chars %d", ErrInvalidConfig, c.MaxEmbedChars)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, retry.ErrInvalidMaxAttempts)
	}
	return nil
}
