package openai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crazybass81/GovChat/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var errEmptyQuestion = errors.New("model returned an empty question")

// QuestionPhraser implements ai.QuestionPhraser using OpenAI-compatible chat APIs.
type QuestionPhraser struct {
	client llms.Model
	logger *slog.Logger
}

func newQuestionPhraser(config *ai.Config) (*QuestionPhraser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &QuestionPhraser{
		client: client,
		logger: slog.Default().With("component", "openai-phraser"),
	}, nil
}

// PhraseQuestion asks the model for a single polite question about req.Field.
func (p *QuestionPhraser) PhraseQuestion(ctx context.Context, req ai.QuestionRequest) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(req))},
		},
	}

	response, err := p.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(120),
	)
	if err != nil {
		p.logger.Error("failed to generate question", "field", req.Field, "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", errEmptyQuestion
	}

	question := cleanQuestion(response.Choices[0].Content)
	if question == "" {
		return "", errEmptyQuestion
	}
	p.logger.Debug("phrased question", "field", req.Field, "length", len(question))
	return question, nil
}
