package transcript

import (
	"iter"
	"slices"
	"strconv"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/tool"
	json "github.com/goccy/go-json"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Clock supplies turn timestamps. Workflow code passes its deterministic clock here.
type Clock func() time.Time

// Transcript is the ordered history of one conversation.
type Transcript struct {
	id    uuid.UUID
	turns []Turn
	now   Clock
}

// New creates an empty transcript. The id is normally the conversation id.
func New(id uuid.UUID, now Clock) *Transcript {
	if now == nil {
		now = time.Now
	}
	return &Transcript{id: id, turns: make([]Turn, 0), now: now}
}

func (t *Transcript) ID() uuid.UUID {
	return t.id
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of every turn.
func (t *Transcript) Turns() []Turn {
	return slices.Clone(t.turns)
}

// All iterates the turns in order without copying them.
func (t *Transcript) All() iter.Seq[Turn] {
	return slices.Values(t.turns)
}

// Since returns the turns appended after the first n.
func (t *Transcript) Since(n int) []Turn {
	if n >= len(t.turns) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return slices.Clone(t.turns[n:])
}

// Last returns the most recent turn.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

func (t *Transcript) AddUserMessage(text string) Turn {
	return t.add(Turn{Actor: ActorUser, Kind: KindMessage, Text: text})
}

func (t *Transcript) AddAssistantMessage(text string) Turn {
	return t.add(Turn{Actor: ActorAssistant, Kind: KindMessage, Text: text})
}

// AddPlan records the assistant's decision to run a tool.
func (t *Transcript) AddPlan(inv tool.Invocation) Turn {
	return t.add(Turn{Actor: ActorAssistant, Kind: KindPlan, Invocation: &inv})
}

// AddObservation records a tool result. A result carrying a failure is stored as a failure
// turn so renderers and reasoning backends treat both shapes alike.
func (t *Transcript) AddObservation(obs tool.Observation) Turn {
	turn := Turn{Actor: ActorTool, Kind: KindObservation, Observation: &obs}
	if obs.Failure != nil {
		turn.Kind = KindFailure
		turn.Failure = obs.Failure
	}
	return t.add(turn)
}

// AddFailure records a failure. When it answers a plan turn, inv is that plan's invocation.
func (t *Transcript) AddFailure(actor Actor, inv *tool.Invocation, failure *airline.Failure) Turn {
	turn := Turn{Actor: actor, Kind: KindFailure, Failure: failure}
	if inv != nil {
		cp := *inv
		turn.Invocation = &cp
	}
	return t.add(turn)
}

func (t *Transcript) add(turn Turn) Turn {
	turn.Seq = len(t.turns)
	turn.ID = strfmt.UUID(uuid.NewSHA1(t.id, []byte(strconv.Itoa(turn.Seq))).String())
	turn.Timestamp = strfmt.DateTime(t.now().UTC())
	t.turns = append(t.turns, turn)
	return turn
}

// Checkpoint captures the transcript's current state.
func (t *Transcript) Checkpoint() Checkpoint {
	return Checkpoint{id: t.id, turns: slices.Clone(t.turns)}
}

// Checkpoint is an immutable, serializable copy of a transcript.
type Checkpoint struct {
	id    uuid.UUID
	turns []Turn
}

func (c Checkpoint) ID() uuid.UUID {
	return c.id
}

func (c Checkpoint) Turns() []Turn {
	return slices.Clone(c.turns)
}

// Restore rebuilds a transcript that continues appending where the checkpoint left off.
func (c Checkpoint) Restore(now Clock) *Transcript {
	t := New(c.id, now)
	t.turns = append(t.turns, c.turns...)
	return t
}

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	turns := c.turns
	if turns == nil {
		turns = []Turn{}
	}
	return json.Marshal(struct {
		ID    string `json:"id"`
		Turns []Turn `json:"turns"`
	}{
		ID:    c.id.String(),
		Turns: turns,
	})
}

func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var tmp struct {
		ID    string `json:"id"`
		Turns []Turn `json:"turns"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	id, err := uuid.Parse(tmp.ID)
	if err != nil {
		return err
	}
	c.id = id
	c.turns = tmp.Turns
	return nil
}
