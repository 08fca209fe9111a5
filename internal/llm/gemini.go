package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient talks to Google's Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GOOGLE_API_KEY")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	logger.Info("Gemini client initialized", zap.String("model", modelName))
	return &GeminiClient{client: client, modelName: modelName, logger: logger}, nil
}

func (g *GeminiClient) Model() string { return g.modelName }

func (g *GeminiClient) Close() error { return g.client.Close() }

func (g *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig.Temperature = genai.Ptr[float32](0)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no valid candidates in response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}
