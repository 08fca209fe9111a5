package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultOpenAIModel = "gpt-5-mini"

// OpenAIClient talks to the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAIClient(apiKey, model string, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	logger.Info("OpenAI client initialized", zap.String("model", model))
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model, logger: logger}, nil
}

func (o *OpenAIClient) Model() string { return o.model }

func (o *OpenAIClient) Close() error { return nil }

func (o *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	o.logger.Debug("OpenAI completion",
		zap.String("model", o.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
