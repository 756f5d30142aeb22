// Package models provides model.LLM adapters for the supported providers.
package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/agent-social/internal/types"
)

// openaiModel wraps an OpenAI-compatible chat client.
type openaiModel struct {
	client             *openai.Client
	provider           string
	name               string
	model              string
	versionHeaderValue string
}

func newOpenAICompatible(provider, modelName, apiKey, baseURL string) (*openaiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiModel{
		client:   &client,
		provider: provider,
		name:     modelName,
		model:    modelName,
		versionHeaderValue: fmt.Sprintf("agentsocial-%s/%s go/%s",
			provider, "1.0.0", strings.TrimPrefix(runtime.Version(), "go")),
	}, nil
}

// NewOpenAIModel creates a model backed by the OpenAI API.
func NewOpenAIModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return newOpenAICompatible(ProviderOpenAI, modelName, cfg.APIKey, "")
}

func (m *openaiModel) Name() string {
	return m.name
}

// GenerateContent performs a single non-streaming completion. Streaming is
// not needed for comment generation and is served as one final response.
func (m *openaiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	maybeAppendUserContent(req)

	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *openaiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	params := buildOpenAIParams(req, m.model)

	resp, err := m.client.Chat.Completions.New(ctx, params,
		option.WithHeader("user-agent", m.versionHeaderValue))
	if err != nil {
		slog.Error("failed to call llm API", "provider", m.provider, "model", params.Model, "error", err.Error())
		return nil, classifyOpenAIError(m.provider, params.Model, err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return &model.LLMResponse{TurnComplete: true}, nil
	}

	message := resp.Choices[0].Message
	content := &genai.Content{Role: "model"}
	if message.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: message.Content})
	}

	llmResp := &model.LLMResponse{
		Content:      content,
		TurnComplete: true,
	}
	if resp.Usage.TotalTokens > 0 {
		llmResp.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.PromptTokens),
			CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
			TotalTokenCount:      int32(resp.Usage.TotalTokens),
		}
	}
	return llmResp, nil
}

// classifyOpenAIError maps a client failure to a ProviderError. Throttling,
// server faults and transport errors are retryable; a spent context is not.
func classifyOpenAIError(provider, modelName string, err error) *types.ProviderError {
	perr := &types.ProviderError{Provider: provider, Model: modelName, Err: err}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return perr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		perr.Retryable = apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode >= http.StatusInternalServerError
		return perr
	}
	perr.Retryable = true
	return perr
}

func maybeAppendUserContent(req *model.LLMRequest) {
	if len(req.Contents) == 0 {
		req.Contents = append(req.Contents, genai.NewContentFromText("Handle the requests as specified in the System Instruction.", "user"))
	}

	if last := req.Contents[len(req.Contents)-1]; last != nil && last.Role != "user" {
		req.Contents = append(req.Contents, genai.NewContentFromText("Continue processing previous requests as instructed.", "user"))
	}
}
