package langchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/transcript"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Reasoner wraps an llms.Model.
type Reasoner struct {
	model llms.Model
}

func New(model llms.Model) *Reasoner {
	return &Reasoner{model: model}
}

// NewOpenAI builds a Reasoner on langchaingo's OpenAI client. An empty baseURL uses the default
// endpoint.
func NewOpenAI(model, token, baseURL string) (*Reasoner, error) {
	options := []openai.Option{openai.WithToken(token)}
	if model != "" {
		options = append(options, openai.WithModel(model))
	}
	if baseURL != "" {
		options = append(options, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(options...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai client: %w", err)
	}
	return New(llm), nil
}

func (r *Reasoner) Decide(ctx context.Context, req reasoning.Request) (reasoning.Decision, error) {
	tools, err := toolsToLangchain(&req)
	if err != nil {
		return reasoning.Decision{}, err
	}

	options := []llms.CallOption{llms.WithTemperature(0.1)}
	if len(tools) > 0 {
		options = append(options, llms.WithTools(tools))
	}

	resp, err := r.model.GenerateContent(ctx, turnsToLangchain(req.Instructions, req.Transcript), options...)
	if err != nil {
		return reasoning.Decision{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return reasoning.Decision{}, reasoning.ErrNoDecision
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) > 0 {
		if len(choice.ToolCalls) > 1 {
			slog.WarnContext(ctx, "model requested several tools, using the first", slog.Int("count", len(choice.ToolCalls)))
		}
		tc := choice.ToolCalls[0]
		if tc.FunctionCall == nil {
			return reasoning.Decision{}, fmt.Errorf("tool call %s has no function", tc.ID)
		}
		return reasoning.Invoke(tc.ID, tc.FunctionCall.Name, tc.FunctionCall.Arguments), nil
	}
	if choice.FuncCall != nil {
		return reasoning.Invoke("", choice.FuncCall.Name, choice.FuncCall.Arguments), nil
	}
	if strings.TrimSpace(choice.Content) == "" {
		return reasoning.Decision{}, reasoning.ErrNoDecision
	}
	return reasoning.Reply(choice.Content), nil
}

func toolsToLangchain(req *reasoning.Request) ([]llms.Tool, error) {
	tools := make([]llms.Tool, len(req.Catalog))
	for i, def := range req.Catalog {
		params, err := def.Parameters()
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s schema: %w", def.Name, err)
		}
		tools[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		}
	}
	return tools, nil
}

func turnsToLangchain(instructions string, turns []transcript.Turn) []llms.MessageContent {
	result := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, instructions),
	}
	for _, turn := range turns {
		switch turn.Kind {
		case transcript.KindMessage:
			role := llms.ChatMessageTypeAI
			if turn.Actor == transcript.ActorUser {
				role = llms.ChatMessageTypeHuman
			}
			result = append(result, llms.TextParts(role, turn.Text))
		case transcript.KindPlan:
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeAI,
				Parts: []llms.ContentPart{llms.ToolCall{
					ID:   turn.Invocation.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      turn.Invocation.Name,
						Arguments: turn.Invocation.Arguments,
					},
				}},
			})
		case transcript.KindObservation, transcript.KindFailure:
			id := turn.InvocationID()
			if id == "" {
				continue
			}
			result = append(result, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: id,
					Name:       toolName(turn),
					Content:    reasoning.ToolContent(turn),
				}},
			})
		}
	}
	return result
}

func toolName(turn transcript.Turn) string {
	if turn.Invocation != nil {
		return turn.Invocation.Name
	}
	if turn.Observation != nil {
		return turn.Observation.Kind.String()
	}
	return ""
}
