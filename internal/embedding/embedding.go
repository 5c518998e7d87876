package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"web-rag/internal/config"
	"web-rag/internal/helper"
	"web-rag/internal/models"
	"web-rag/internal/store"
)

// NewEmbedder builds the embedding provider selected by the config.
func NewEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	default:
		return NewOllamaEmbedder(cfg)
	}
}

// NewOllamaEmbedder wires a local Ollama model as the embedding provider.
func NewOllamaEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("embedding_model", cfg.Model).Msg("Initializing embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// NewOpenAIEmbedder wires an OpenAI-compatible endpoint as the embedding
// provider.
func NewOpenAIEmbedder(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding LLM: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedChunks computes one vector per chunk and packages the results as
// store entries. Any provider failure aborts the whole batch so a partial
// index is never built.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]store.Entry, error) {
	if len(chunks) == 0 {
		return nil, models.ErrNoChunks
	}

	entries := make([]store.Entry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return nil, &models.EmbeddingError{Cause: err}
		}
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		entries = append(entries, store.Entry{
			ID:        id,
			Content:   chunk.Content,
			Embedding: vector,
			Metadata: map[string]string{
				store.MetaSource: chunk.Source,
				store.MetaTitle:  chunk.Title,
				store.MetaSeq:    strconv.Itoa(chunk.Seq),
			},
		})
	}
	return entries, nil
}

// EmbedQuery embeds a single question for retrieval.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, question string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, &models.EmbeddingError{Cause: err}
	}
	return vector, nil
}
