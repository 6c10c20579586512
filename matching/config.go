package matching

import (
	"fmt"
	"maps"
	"time"

	"github.com/crazybass81/GovChat/core"
)

// Config holds the conversation thresholds. It is read-only during a turn.
type Config struct {
	// ConfidenceThreshold converges when the top candidate scores at least this.
	ConfidenceThreshold float64

	// SmallResultThreshold converges when at most this many programs pass the filter.
	SmallResultThreshold int

	// MaxTurns bounds the number of questions asked in a session.
	MaxTurns int

	// TopN is how many leading candidates the selector inspects.
	TopN int

	// Epsilon is the lowest question value still worth asking.
	Epsilon float64

	// Weights rank profile fields by how willingly users answer them.
	// Fields without a weight are never asked.
	Weights map[core.ProfileField]float64

	// TurnTimeout bounds one turn. Zero disables the bound.
	TurnTimeout time.Duration
}

// DefaultWeights favours low-friction fields; income is sensitive and asked last.
func DefaultWeights() map[core.ProfileField]float64 {
	return map[core.ProfileField]float64{
		core.FieldRegion:           0.9,
		core.FieldSupportType:      0.9,
		core.FieldAge:              0.8,
		core.FieldBusinessType:     0.8,
		core.FieldEmploymentStatus: 0.6,
		core.FieldIncome:           0.3,
	}
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:  0.9,
		SmallResultThreshold: 2,
		MaxTurns:             6,
		TopN:                 20,
		Epsilon:              0.05,
		Weights:              DefaultWeights(),
		TurnTimeout:          10 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %.2f outside (0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.SmallResultThreshold < 0 {
		return fmt.Errorf("%w: small result threshold %d", ErrInvalidConfig, c.SmallResultThreshold)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("%w: max turns %d", ErrInvalidConfig, c.MaxTurns)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: top n %d", ErrInvalidConfig, c.TopN)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("%w: epsilon %.2f", ErrInvalidConfig, c.Epsilon)
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("%w: turn timeout %s", ErrInvalidConfig, c.TurnTimeout)
	}
	for field, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, field)
		}
	}
	return nil
}

// clone copies the weight table so callers cannot mutate a running config.
func (c Config) clone() Config {
	c.Weights = maps.Clone(c.Weights)
	return c
}
