package transcript

import (
	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/tool"
	"github.com/go-openapi/strfmt"
)

type Actor string

const (
	ActorUser      Actor = "user"
	ActorAssistant Actor = "assistant"
	ActorTool      Actor = "tool"
)

type Kind string

const (
	KindMessage     Kind = "message"
	KindPlan        Kind = "plan"
	KindObservation Kind = "observation"
	KindFailure     Kind = "failure"
)

// Turn is one entry in a transcript. Which of the optional fields are set depends on Kind:
// plan turns carry Invocation, observation turns carry Observation, failure turns carry
// Failure and, when they answer a plan, the Invocation they answer.
type Turn struct {
	ID          strfmt.UUID       `json:"id"`
	Seq         int               `json:"seq"`
	Actor       Actor             `json:"actor"`
	Kind        Kind              `json:"kind"`
	Text        string            `json:"text,omitempty"`
	Invocation  *tool.Invocation  `json:"invocation,omitempty"`
	Observation *tool.Observation `json:"observation,omitempty"`
	Failure     *airline.Failure  `json:"failure,omitempty"`
	Timestamp   strfmt.DateTime   `json:"timestamp"`
}

// Visible reports whether the turn is meant to be shown to a user.
func (t Turn) Visible() bool {
	return t.Kind != KindPlan
}

// InvocationID returns the id of the tool invocation this turn belongs to, if any.
func (t Turn) InvocationID() string {
	switch {
	case t.Invocation != nil:
		return t.Invocation.ID
	case t.Observation != nil:
		return t.Observation.InvocationID
	default:
		return ""
	}
}
