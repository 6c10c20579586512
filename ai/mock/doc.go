// Package mock provides test doubles for the ai package interfaces.
//
// Behavior can be injected through the exported function fields:
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors hashed from character bigrams, so texts that
//     share words are similar
//   - MockQuestionPhraser: returns ai.TemplateQuestion for the field
//   - MockProvider: aggregates the two
package mock
