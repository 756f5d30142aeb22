package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Supported provider names.
const (
	ProviderGrok       = "grok"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// New creates the adapter for provider.
func New(ctx context.Context, provider, modelName, apiKey string) (model.LLM, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey}
	switch provider {
	case ProviderGrok:
		return NewGrokModel(ctx, modelName, cfg)
	case ProviderOpenAI:
		return NewOpenAIModel(ctx, modelName, cfg)
	case ProviderOpenRouter:
		return NewOpenRouterModel(ctx, modelName, cfg)
	case ProviderGemini:
		return NewGeminiModel(ctx, modelName, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
