package events

import (
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/transcript"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Event is implemented by every event type.
type Event interface {
	Conversation() uuid.UUID
	event()
}

type Turn struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Turn           transcript.Turn `json:"turn"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

func (t Turn) Conversation() uuid.UUID { return t.ConversationID }
func (Turn) event()                    {}

type StateChange struct {
	ConversationID uuid.UUID          `json:"conversation_id"`
	From           conversation.State `json:"from"`
	To             conversation.State `json:"to"`
	Timestamp      strfmt.DateTime    `json:"timestamp"`
}

func (s StateChange) Conversation() uuid.UUID { return s.ConversationID }
func (StateChange) event()                    {}

// Error carries the message of an infrastructure error; the error value itself does not
// survive serialization.
type Error struct {
	ConversationID uuid.UUID       `json:"conversation_id"`
	Message        string          `json:"message"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

func (e Error) Conversation() uuid.UUID { return e.ConversationID }
func (Error) event()                    {}

func (e Error) Error() string { return e.Message }

// Topic is the name of the topic a conversation's events are published on.
func Topic(conversationID uuid.UUID) string {
	return "conversation." + conversationID.String()
}
