package ingestion

import "errors"

var (
	// ErrIngestion marks a malformed source item. The item is skipped and counted.
	ErrIngestion = errors.New("ingestion error")

	// ErrExtractionAmbiguity marks conflicting predicate evidence. Logged, never returned to callers.
	ErrExtractionAmbiguity = errors.New("extraction ambiguity")

	// ErrFeed is returned when a listing feed answers with an error.
	ErrFeed = errors.New("feed error")

	// ErrIndexRequired is returned when a program index is not provided.
	ErrIndexRequired = errors.New("program index required")

	// ErrRetryQueueRequired is returned when a retry queue is not provided.
	ErrRetryQueueRequired = errors.New("retry queue required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("invalid ingestion configuration")
)
