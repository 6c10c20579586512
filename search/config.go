package search

import (
	"fmt"

	"github.com/crazybass81/GovChat/retry"
)

// Config tunes hybrid ranking.
type Config struct {
	// Alpha weighs the filter match ratio against cosine similarity.
	Alpha float64

	// MaxResults caps the candidate set.
	MaxResults int

	// Retry bounds the query embedding and every index read.
	Retry retry.Policy
}

// DefaultConfig returns alpha 0.5, at most 50 candidates and the default retry policy.
func DefaultConfig() Config {
	return Config{
		Alpha:      0.5,
		MaxResults: 50,
		Retry:      retry.DefaultPolicy(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("%w: alpha %.2f outside [0,1]", ErrInvalidConfig, c.Alpha)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("%w: max results %d", ErrInvalidConfig, c.MaxResults)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, retry.ErrInvalidMaxAttempts)
	}
	return nil
}
