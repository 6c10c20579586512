package reembed

import "errors"

var (
	// ErrIndexRequired is returned when a program index is not provided.
	ErrIndexRequired = errors.New("program index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingMismatch is returned when a batch call returns the wrong number of vectors.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")
)
