package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/transcript"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const DefaultModel = openai.ChatModelGPT4oMini

type Reasoner struct {
	client *openai.Client
	model  string
}

func New(model string, options ...option.RequestOption) *Reasoner {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Reasoner{
		client: openai.NewClient(options...),
		model:  model,
	}
}

func (r *Reasoner) buildRequest(req *reasoning.Request) (openai.ChatCompletionNewParams, error) {
	tools := make([]openai.ChatCompletionToolParam, len(req.Catalog))
	for i, def := range req.Catalog {
		jv, err := def.Parameters()
		if err != nil {
			return openai.ChatCompletionNewParams{}, fmt.Errorf("failed to convert %s schema: %w", def.Name, err)
		}

		fn := openai.FunctionDefinitionParam{
			Name:       openai.String(def.Name),
			Parameters: openai.F(shared.FunctionParameters(jv)),
		}
		if strings.TrimSpace(def.Description) != "" {
			fn.Description = openai.String(def.Description)
		}
		tools[i] = openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(fn),
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    openai.F(turnsToOpenAI(req.Instructions, req.Transcript)),
		Model:       openai.F(r.model),
		N:           openai.Int(1),
		Temperature: openai.Float(0.1),
	}
	if len(tools) > 0 {
		params.Tools = openai.F(tools)
		params.ParallelToolCalls = openai.Bool(false)
	}
	return params, nil
}

func (r *Reasoner) Decide(ctx context.Context, req reasoning.Request) (reasoning.Decision, error) {
	params, err := r.buildRequest(&req)
	if err != nil {
		return reasoning.Decision{}, fmt.Errorf("failed to build request: %w", err)
	}

	chat, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return reasoning.Decision{}, err
	}
	if len(chat.Choices) == 0 {
		return reasoning.Decision{}, reasoning.ErrNoDecision
	}

	msg := chat.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		if len(msg.ToolCalls) > 1 {
			slog.WarnContext(ctx, "model requested several tools, using the first", slog.Int("count", len(msg.ToolCalls)))
		}
		tc := msg.ToolCalls[0]
		return reasoning.Invoke(tc.ID, tc.Function.Name, tc.Function.Arguments), nil
	}
	if strings.TrimSpace(msg.Content) == "" {
		return reasoning.Decision{}, reasoning.ErrNoDecision
	}
	return reasoning.Reply(msg.Content), nil
}

func turnsToOpenAI(instructions string, turns []transcript.Turn) []openai.ChatCompletionMessageParamUnion {
	result := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(instructions),
	}
	for _, turn := range turns {
		switch turn.Kind {
		case transcript.KindMessage:
			if turn.Actor == transcript.ActorUser {
				result = append(result, openai.UserMessageParts(openai.TextPart(turn.Text)))
				continue
			}
			am := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			am.Content.Value = append(am.Content.Value, openai.TextPart(turn.Text))
			result = append(result, am)
		case transcript.KindPlan:
			tc := []openai.ChatCompletionMessageToolCallParam{{
				ID:   openai.String(turn.Invocation.ID),
				Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
				Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      openai.String(turn.Invocation.Name),
					Arguments: openai.String(turn.Invocation.Arguments),
				}),
			}}
			result = append(result, openai.ChatCompletionMessageParam{
				Role:      openai.F(openai.ChatCompletionMessageParamRoleAssistant),
				ToolCalls: openai.F[any](tc),
			})
		case transcript.KindObservation, transcript.KindFailure:
			// Failures not tied to a tool call are the assistant's own and are not replayed.
			if id := turn.InvocationID(); id != "" {
				result = append(result, openai.ToolMessage(id, reasoning.ToolContent(turn)))
			}
		}
	}
	return result
}
