package memory

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Archive receives significant records for durable, searchable storage.
type Archive interface {
	AddMemory(ctx context.Context, rec Record, embedding []float32) error
}

// Embedder turns text into a vector for the archive.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// GenAIEmbedder embeds text with a Gemini embedding model.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// EmbeddingDimensions matches the archive's vector column.
const EmbeddingDimensions = 768

// NewGenAIEmbedder creates the GenAI embedding client.
func NewGenAIEmbedder(ctx context.Context, apiKey, modelName string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google api key is required for embeddings")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GenAIEmbedder{
		client: client,
		model:  modelName,
	}, nil
}

func (e *GenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	dims := int32(EmbeddingDimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_DOCUMENT",
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response")
	}
	values := resp.Embeddings[0].Values
	switch {
	case len(values) == EmbeddingDimensions:
		return values, nil
	case len(values) > EmbeddingDimensions:
		slog.Warn("embedding dimensions exceed target, truncating", "actual", len(values), "target", EmbeddingDimensions, "model", e.model)
		return values[:EmbeddingDimensions], nil
	default:
		return nil, fmt.Errorf("embedding dimensions mismatch: got %d want %d", len(values), EmbeddingDimensions)
	}
}
