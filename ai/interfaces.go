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


package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// QuestionPhraser turns a chosen profile field into a natural-language question.
// Implementations must be thread-safe for concurrent use.
type QuestionPhraser interface {
	// PhraseQuestion returns one short question asking the user about req.Field.
	// Returns an error if generation fails; callers fall back to TemplateQuestion.
	PhraseQuestion(ctx context.Context, req QuestionRequest) (string, error)
}

// QuestionRequest describes the question the conversation needs next.
type QuestionRequest struct {
	// Field is the profile field to ask about, e.g. "region".
	Field string

	// Options are suggested answers shown alongside the question.
	Options []string

	// CandidateTitles are the titles of the current top programs, used as context.
	CandidateTitles []string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// QuestionPhraser returns the question generation service.
	// The returned QuestionPhraser is safe for concurrent use.
	QuestionPhraser() QuestionPhraser

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
