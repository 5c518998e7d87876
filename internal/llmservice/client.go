package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"web-rag/internal/config"
	"web-rag/internal/models"
)

const requestTimeout = 60 * time.Second

// Client calls the chat model configured for answer synthesis and planning.
type Client struct {
	cfg *config.LLMConfig
}

func NewClient(cfg *config.LLMConfig) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) newModel() (llms.Model, error) {
	switch c.cfg.Provider {
	case config.ProviderOpenAI:
		return openai.New(
			openai.WithBaseURL(c.cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
			openai.WithModel(c.cfg.Model),
		)
	default:
		return ollama.New(
			ollama.WithServerURL(c.cfg.BaseURL),
			ollama.WithModel(c.cfg.Model),
		)
	}
}

// Complete issues one completion with a system prompt and a user prompt and
// returns the raw answer text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: user}},
		},
	}

	resp, err := c.GenerateContent(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &models.CompletionError{Cause: fmt.Errorf("empty response")}
	}
	return resp.Choices[0].Content, nil
}

// GenerateContent calls the chat model, optionally offering tools for the
// planner loop. Provider failures come back as *models.CompletionError.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error) {
	log.Debug().Str("model", c.cfg.Model).Int("messages", len(messages)).Int("tools", len(tools)).Msg("Generating content")

	llm, err := c.newModel()
	if err != nil {
		return nil, &models.CompletionError{Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp *llms.ContentResponse
	if len(tools) > 0 {
		resp, err = llm.GenerateContent(ctx, messages, llms.WithTools(tools), llms.WithTemperature(0.1))
	} else {
		resp, err = llm.GenerateContent(ctx, messages, llms.WithTemperature(0.1))
	}
	if err != nil {
		return nil, &models.CompletionError{Cause: err}
	}
	return resp, nil
}
