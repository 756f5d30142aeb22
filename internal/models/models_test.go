package models

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestBuildOpenAIParams(t *testing.T) {
	temp := float32(0.7)
	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText("hello", "user"),
			genai.NewContentFromText("hi there", "model"),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are TechEnthusiast.", "system"),
			Temperature:       &temp,
			MaxOutputTokens:   256,
		},
	}

	params := buildOpenAIParams(req, "grok-4-fast")
	assert.Equal(t, "grok-4-fast", string(params.Model))
	require.Len(t, params.Messages, 3)
	assert.NotNil(t, params.Messages[0].OfSystem)
	assert.NotNil(t, params.Messages[1].OfUser)
	assert.NotNil(t, params.Messages[2].OfAssistant)

	req.Model = "grok-3-mini"
	assert.Equal(t, "grok-3-mini", string(buildOpenAIParams(req, "grok-4-fast").Model))
}

func TestMaybeAppendUserContent(t *testing.T) {
	req := &model.LLMRequest{}
	maybeAppendUserContent(req)
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)

	req.Contents = append(req.Contents, genai.NewContentFromText("reply", "model"))
	maybeAppendUserContent(req)
	assert.Equal(t, "user", req.Contents[len(req.Contents)-1].Role)
}

func TestClassifyOpenAIError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"throttled", &openai.Error{StatusCode: http.StatusTooManyRequests}, true},
		{"server", &openai.Error{StatusCode: http.StatusBadGateway}, true},
		{"bad request", &openai.Error{StatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &openai.Error{StatusCode: http.StatusUnauthorized}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"network", errors.New("connection reset by peer"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			perr := classifyOpenAIError(ProviderGrok, "grok-4-fast", tc.err)
			assert.Equal(t, tc.retryable, perr.Retryable)
			assert.Equal(t, ProviderGrok, perr.Provider)
			assert.ErrorIs(t, perr, tc.err)
		})
	}
}

func TestNewValidatesInput(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, ProviderGrok, "grok-4-fast", "")
	assert.Error(t, err)
	_, err = New(ctx, ProviderOpenAI, "", "key")
	assert.Error(t, err)
	_, err = New(ctx, "claude", "x", "key")
	assert.Error(t, err)

	llm, err := New(ctx, ProviderOpenRouter, "meta-llama/llama-3-70b", "key")
	require.NoError(t, err)
	assert.Equal(t, "openrouter/meta-llama/llama-3-70b", llm.Name())
	assert.Equal(t, "meta-llama/llama-3-70b", llm.(*openaiModel).model)
}
