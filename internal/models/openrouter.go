package models

import (
	"context"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterModel creates a model routed through OpenRouter. Name reports
// the model with an "openrouter/" prefix; requests use the bare name.
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	m, err := newOpenAICompatible(ProviderOpenRouter, modelName, cfg.APIKey, openRouterBaseURL)
	if err != nil {
		return nil, err
	}
	m.name = fmt.Sprintf("openrouter/%s", modelName)
	return m, nil
}
