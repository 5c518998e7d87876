package agent

import (
	"context"
	"fmt"
	"strings"

	"web-rag/internal/models"
)

// Agent routes user utterances to the session. Routing is rule-based by
// default; the planner path hands dispatch to the chat model's tool calling
// for open-ended phrasing.
type Agent struct {
	session    *Session
	planner    Planner
	usePlanner bool
}

func New(session *Session, planner Planner, usePlanner bool) *Agent {
	return &Agent{session: session, planner: planner, usePlanner: usePlanner}
}

// Session exposes the underlying session, for one-shot CLI operations.
func (a *Agent) Session() *Session {
	return a.session
}

// HandleInput processes one user turn and returns the text to show.
// Operation failures are returned as errors; the caller reports them and
// keeps the conversation going.
func (a *Agent) HandleInput(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	if a.usePlanner {
		return a.Plan(ctx, input)
	}

	intent, sources := Classify(input)
	switch intent {
	case IntentLoad:
		report, err := a.session.Load(ctx, sources)
		if err != nil {
			if report != nil && len(report.Failed) > 0 {
				return "", fmt.Errorf("%w (failed: %s)", err, strings.Join(report.Failed, ", "))
			}
			return "", err
		}
		return report.String(), nil

	default:
		result, err := a.session.Answer(ctx, input)
		if err != nil {
			return "", err
		}
		return FormatResult(result), nil
	}
}

// FormatResult renders an answer with its source list.
func FormatResult(result *models.QueryResult) string {
	if len(result.Sources) == 0 {
		return result.Answer
	}
	return fmt.Sprintf("%s\n\nSources: %s", result.Answer, strings.Join(result.Sources, ", "))
}
