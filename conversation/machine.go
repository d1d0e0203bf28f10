package conversation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/google/uuid"
)

// Machine is one conversation. It is not safe for concurrent use; drivers serialize access.
type Machine struct {
	id         uuid.UUID
	state      State
	transcript *transcript.Transcript
	offers     map[int]airline.Flight
	pending    *tool.Call
	followUp   bool
}

// New starts a conversation awaiting its first user message.
func New(id uuid.UUID, now transcript.Clock) *Machine {
	return &Machine{
		id:         id,
		state:      AwaitingUserInput,
		transcript: transcript.New(id, now),
		offers:     make(map[int]airline.Flight),
	}
}

func (m *Machine) ID() uuid.UUID {
	return m.id
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Ready() bool {
	return m.state.Ready()
}

// History returns every turn so far.
func (m *Machine) History() []transcript.Turn {
	return m.transcript.Turns()
}

// Len is the number of turns so far.
func (m *Machine) Len() int {
	return m.transcript.Len()
}

// Since returns the turns appended after the first n.
func (m *Machine) Since(n int) []transcript.Turn {
	return m.transcript.Since(n)
}

// Offers returns the flights from the latest successful search, ordered by id.
func (m *Machine) Offers() []airline.Flight {
	ids := slices.Sorted(maps.Keys(m.offers))
	flights := make([]airline.Flight, 0, len(ids))
	for _, id := range ids {
		flights = append(flights, m.offers[id])
	}
	return flights
}

// Offer looks up a flight from the latest successful search.
func (m *Machine) Offer(id string) (airline.Flight, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return airline.Flight{}, false
	}
	f, ok := m.offers[n]
	return f, ok
}

// Request builds the input of the reasoning step.
func (m *Machine) Request(instructions string) reasoning.Request {
	return reasoning.Request{
		Instructions: instructions,
		Transcript:   m.transcript.Turns(),
		Catalog:      tool.Catalog(),
	}
}

// Accept records a user message and asks for a decision.
func (m *Machine) Accept(text string) (Action, error) {
	switch m.state {
	case Completed:
		return Action{}, ErrCompleted
	case AwaitingUserInput:
	default:
		return Action{}, ErrNotAwaitingInput
	}
	if strings.TrimSpace(text) == "" {
		return Action{}, ErrEmptyMessage
	}

	m.transcript.AddUserMessage(text)
	m.followUp = false
	m.state = Planning
	return reason(), nil
}

// Decide applies the reasoning step's decision.
func (m *Machine) Decide(d reasoning.Decision) (Action, error) {
	if m.state != Planning {
		return Action{}, fmt.Errorf("%w: decide in %s", ErrUnexpectedStep, m.state)
	}

	switch {
	case d.Kind == reasoning.DecisionReply && strings.TrimSpace(d.Text) != "":
		return m.respond(d.Text), nil
	case d.Kind == reasoning.DecisionInvoke && d.Invocation != nil:
		if m.followUp {
			// A search gets exactly one follow-up decision. A second tool request is answered
			// with the search outcome instead.
			return m.respond(m.searchSummary()), nil
		}
		return m.plan(*d.Invocation), nil
	default:
		return m.Fail(fmt.Errorf("%w: %q", reasoning.ErrNoDecision, d.Kind))
	}
}

func (m *Machine) respond(text string) Action {
	m.state = Responding
	m.transcript.AddAssistantMessage(text)
	m.followUp = false
	m.state = AwaitingUserInput
	return await()
}

func (m *Machine) plan(inv tool.Invocation) Action {
	if inv.ID == "" {
		inv.ID = "call_" + strconv.Itoa(m.transcript.Len())
	}
	m.transcript.AddPlan(inv)

	call, failure := tool.Decode(inv)
	if failure != nil {
		m.transcript.AddFailure(transcript.ActorTool, &inv, failure)
		m.state = AwaitingUserInput
		return await()
	}

	m.pending = &call
	m.state = ExecutingTool
	return execute(call)
}

func (m *Machine) searchSummary() string {
	if last, ok := m.transcript.Last(); ok && last.Failure != nil {
		return last.Failure.Message
	}
	return airline.DescribeFlights(m.Offers())
}

// Pending returns the call being executed, if any.
func (m *Machine) Pending() (tool.Call, bool) {
	if m.pending == nil {
		return tool.Call{}, false
	}
	return *m.pending, true
}

// Observe records the result of the pending call.
func (m *Machine) Observe(obs tool.Observation) (Action, error) {
	if m.state != ExecutingTool || m.pending == nil {
		return Action{}, fmt.Errorf("%w: observe in %s", ErrUnexpectedStep, m.state)
	}
	if obs.Kind != m.pending.Kind {
		return Action{}, fmt.Errorf("%w: observed %s while running %s", ErrUnexpectedStep, obs.Kind, m.pending.Kind)
	}
	obs.InvocationID = m.pending.InvocationID
	m.pending = nil
	m.transcript.AddObservation(obs)

	switch obs.Kind {
	case tool.KindSearch:
		if obs.Failure == nil {
			m.offers = make(map[int]airline.Flight, len(obs.Flights))
			for _, f := range obs.Flights {
				m.offers[f.ID] = f
			}
		}
		m.followUp = true
		m.state = Planning
		return reason(), nil
	case tool.KindPurchase:
		return m.complete(), nil
	default:
		return Action{}, fmt.Errorf("%w: observed %s", ErrUnexpectedStep, obs.Kind)
	}
}

func (m *Machine) complete() Action {
	clear(m.offers)
	m.followUp = false
	m.state = Completed
	return done()
}

// Fail records that the current reasoning or tool step did not finish. The user gets a failure
// turn and may try again, unless a purchase was in flight.
func (m *Machine) Fail(err error) (Action, error) {
	timedOut := errors.Is(err, ErrStepTimeout) || errors.Is(err, context.DeadlineExceeded)

	switch m.state {
	case Planning:
		failure := airline.ReasoningFailure(err)
		if timedOut {
			failure = airline.ReasoningTimeoutFailure()
		}
		m.transcript.AddFailure(transcript.ActorAssistant, nil, failure)
		m.followUp = false
		m.state = AwaitingUserInput
		return await(), nil

	case ExecutingTool:
		call := *m.pending
		m.pending = nil
		if timedOut {
			err = errors.New("timed out")
		}
		inv := &tool.Invocation{ID: call.InvocationID, Name: call.Kind.String()}
		m.transcript.AddFailure(transcript.ActorTool, inv, airline.ToolFailure(call.Kind.String(), err))
		if call.Kind == tool.KindPurchase {
			return m.complete(), nil
		}
		m.state = AwaitingUserInput
		return await(), nil

	default:
		return Action{}, fmt.Errorf("%w: fail in %s", ErrUnexpectedStep, m.state)
	}
}
