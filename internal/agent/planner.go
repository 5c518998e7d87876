package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"web-rag/internal/fetcher"
	"web-rag/internal/models"
)

// maxPlannerSteps bounds the tool-dispatch loop so a confused model cannot
// loop forever.
const maxPlannerSteps = 5

// UnableMessage is returned when the planner exhausts its step budget.
const UnableMessage = "I was unable to complete the request."

const (
	toolLoadWebsites = "load_websites"
	toolAnswer       = "answer_from_websites"
)

// Planner generates chat completions with tool support; llmservice.Client
// is the production implementation.
type Planner interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error)
}

func plannerTools() []llms.Tool {
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolLoadWebsites,
				Description: "Load websites for analysis. Input should be URLs separated by commas.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"urls": map[string]any{
							"type":        "string",
							"description": "Comma-separated list of URLs to load",
						},
					},
					"required": []string{"urls"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolAnswer,
				Description: "Answer questions based on loaded website content. Input should be a question.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question to answer from loaded content",
						},
					},
					"required": []string{"question"},
				},
			},
		},
	}
}

// Plan lets the chat model route the utterance through the two session
// operations. The loop runs at most maxPlannerSteps iterations and reports
// failure deterministically instead of spinning.
func (a *Agent) Plan(ctx context.Context, input string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.PlannerSystemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: input}},
		},
	}
	tools := plannerTools()

	for step := 0; step < maxPlannerSteps; step++ {
		resp, err := a.planner.GenerateContent(ctx, messages, tools)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", &models.CompletionError{Cause: fmt.Errorf("empty response")}
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		for _, call := range choice.ToolCalls {
			result := a.dispatchTool(ctx, call)
			log.Debug().Str("tool", call.FunctionCall.Name).Int("step", step).Msg("Dispatched tool call")

			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{call},
			})
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       call.FunctionCall.Name,
					Content:    result,
				}},
			})
		}
	}

	return UnableMessage, nil
}

// dispatchTool executes one planner tool call against the session. Tool
// failures are reported back to the model as text, never as loop-breaking
// errors.
func (a *Agent) dispatchTool(ctx context.Context, call llms.ToolCall) string {
	switch call.FunctionCall.Name {
	case toolLoadWebsites:
		var args struct {
			URLs string `json:"urls"`
		}
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
			return fmt.Sprintf("Error parsing tool arguments: %v", err)
		}
		report, err := a.session.Load(ctx, fetcher.SplitURLList(args.URLs))
		if err != nil {
			return fmt.Sprintf("Error loading websites: %v", err)
		}
		return report.String()

	case toolAnswer:
		var args struct {
			Question string `json:"question"`
		}
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
			return fmt.Sprintf("Error parsing tool arguments: %v", err)
		}
		result, err := a.session.Answer(ctx, args.Question)
		if err != nil {
			return fmt.Sprintf("Error answering question: %v", err)
		}
		return FormatResult(result)

	default:
		return fmt.Sprintf("Unknown tool: %s", call.FunctionCall.Name)
	}
}
