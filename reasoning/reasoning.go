package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/latravels/pkg/jsonx"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
)

// ErrNoDecision is returned when a model answers with neither text nor a tool call.
var ErrNoDecision = errors.New("model returned no decision")

const instructions = "You are LA Travels, an airline assistant specializing in round trips from the Los Angeles area. " +
	"All flights depart from LAX. Users may refer to airports by city names or with typos: normalize names like " +
	"'New York' or 'New York City' to NYC and 'Los Angeles' to LAX, and use IATA codes when calling tools. " +
	"Ask clarifying questions when the destination or either date is missing. Dates may be passed to tools in natural " +
	"language. After a search, list each option with its id and price and ask which one to book. " +
	"To book, call book_flight with the flight id and the exact price from the search results."

// Instructions returns the system prompt, anchored to the given day so relative dates make sense.
func Instructions(now time.Time) string {
	return fmt.Sprintf("%s Today is %s.", instructions, now.Format("Monday, 2006-01-02"))
}

// Request is everything a Reasoner gets to see.
type Request struct {
	Instructions string            `json:"instructions"`
	Transcript   []transcript.Turn `json:"transcript"`
	Catalog      []tool.Definition `json:"-"`
}

type DecisionKind string

const (
	DecisionReply  DecisionKind = "reply"
	DecisionInvoke DecisionKind = "invoke"
)

// Decision is a Reasoner's answer. Reply decisions carry Text, invoke decisions carry
// Invocation.
type Decision struct {
	Kind       DecisionKind     `json:"kind"`
	Text       string           `json:"text,omitempty"`
	Invocation *tool.Invocation `json:"invocation,omitempty"`
}

func Reply(text string) Decision {
	return Decision{Kind: DecisionReply, Text: text}
}

func Invoke(id, name, arguments string) Decision {
	return Decision{Kind: DecisionInvoke, Invocation: &tool.Invocation{ID: id, Name: name, Arguments: arguments}}
}

func (d Decision) IsReply() bool {
	return d.Kind == DecisionReply
}

// Reasoner decides the assistant's next step. Implementations are stateless.
type Reasoner interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// Func adapts a function to the Reasoner interface.
type Func func(ctx context.Context, req Request) (Decision, error)

func (f Func) Decide(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// ToolContent is the text a backend sends back to the model for a tool or failure turn.
func ToolContent(turn transcript.Turn) string {
	var payload any
	switch {
	case turn.Observation != nil:
		payload = turn.Observation.Payload()
	case turn.Failure != nil:
		payload = turn.Failure
	default:
		return turn.Text
	}
	s, err := jsonx.Compact(payload)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return s
}
