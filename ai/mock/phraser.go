package mock

import (
	"context"
	"sync"

	"github.com/crazybass81/GovChat/ai"
)

// MockQuestionPhraser is a test double for ai.QuestionPhraser.
type MockQuestionPhraser struct {
	// PhraseQuestionFunc is called by PhraseQuestion if set.
	// If nil, returns the template question for the field.
	PhraseQuestionFunc func(ctx context.Context, req ai.QuestionRequest) (string, error)

	mu       sync.Mutex
	requests []ai.QuestionRequest
}

// NewMockQuestionPhraser creates a phraser that answers with template questions.
func NewMockQuestionPhraser() *MockQuestionPhraser {
	return &MockQuestionPhraser{}
}

// PhraseQuestion records the request and returns a question.
func (m *MockQuestionPhraser) PhraseQuestion(ctx context.Context, req ai.QuestionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	fn := m.PhraseQuestionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return ai.TemplateQuestion(req.Field), nil
}

// CallCount returns the number of times PhraseQuestion was called.
func (m *MockQuestionPhraser) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockQuestionPhraser) Requests() []ai.QuestionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.QuestionRequest(nil), m.requests...)
}

// Reset clears recorded requests and custom functions.
func (m *MockQuestionPhraser) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.PhraseQuestionFunc = nil
}
