package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/payment"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const searchArgs = `{"origin":"LAX","destination":"NYC","departure_date":"next friday","return_date":"next sunday"}`

func newToolbox(t *testing.T, charger payment.Charger) *tool.Toolbox {
	t.Helper()
	tb, err := tool.NewToolbox(
		airline.NewValidator(airline.NewDateParser(clock)),
		airline.NewGenerator(nil),
		airline.NewPurchaser(charger),
	)
	require.NoError(t, err)
	return tb
}

// drive runs the machine the way an executor does until it needs user input or is done.
func drive(t *testing.T, m *Machine, action Action, r reasoning.Reasoner, tb *tool.Toolbox) Action {
	t.Helper()
	ctx := context.Background()
	for {
		var err error
		switch action.Kind {
		case ActionAwait, ActionDone:
			return action
		case ActionReason:
			d, derr := r.Decide(ctx, m.Request("sys"))
			if derr != nil {
				action, err = m.Fail(derr)
			} else {
				action, err = m.Decide(d)
			}
		case ActionExecute:
			action, err = m.Observe(tb.Execute(ctx, *action.Call))
		}
		require.NoError(t, err)
	}
}

func TestMachine_NewIsReady(t *testing.T) {
	m := New(uuidx.New(), clock)
	assert.Equal(t, AwaitingUserInput, m.State())
	assert.True(t, m.Ready())
	assert.Empty(t, m.History())
	assert.Empty(t, m.Offers())
}

func TestMachine_Reply(t *testing.T) {
	m := New(uuidx.New(), clock)

	action, err := m.Accept("hi")
	require.NoError(t, err)
	assert.Equal(t, ActionReason, action.Kind)
	assert.Equal(t, Planning, m.State())
	assert.False(t, m.Ready())

	_, err = m.Accept("again")
	require.ErrorIs(t, err, ErrNotAwaitingInput)

	action, err = m.Decide(reasoning.Reply("Where would you like to go?"))
	require.NoError(t, err)
	assert.Equal(t, ActionAwait, action.Kind)
	assert.True(t, m.Ready())

	h := m.History()
	require.Len(t, h, 2)
	assert.Equal(t, transcript.ActorAssistant, h[1].Actor)
	assert.Equal(t, "Where would you like to go?", h[1].Text)
}

func TestMachine_EmptyMessage(t *testing.T) {
	m := New(uuidx.New(), clock)
	_, err := m.Accept("   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, AwaitingUserInput, m.State())
}

func TestMachine_EndToEndBooking(t *testing.T) {
	fake := payment.NewFake()
	tb := newToolbox(t, fake)
	m := New(uuidx.New(), clock)

	script := reasoning.NewScript(
		reasoning.Call("call_1", tool.SearchName, searchArgs),
		func(_ context.Context, req reasoning.Request) (reasoning.Decision, error) {
			last := req.Transcript[len(req.Transcript)-1]
			require.NotNil(t, last.Observation)
			return reasoning.Reply(airline.DescribeFlights(last.Observation.Flights)), nil
		},
		reasoning.Call("call_2", tool.PurchaseName, `{"flight_id":"2","price":"431.00"}`),
	)

	action, err := m.Accept("I need flights from LAX to NYC next Friday returning next Sunday")
	require.NoError(t, err)
	action = drive(t, m, action, script, tb)
	require.Equal(t, ActionAwait, action.Kind)

	// clock is Saturday 2026-10-17
	offers := m.Offers()
	require.Len(t, offers, 3)
	for i, f := range offers {
		assert.Equal(t, i+1, f.ID)
		assert.Equal(t, airline.Date("2026-10-23"), f.DepartureDate)
		assert.Equal(t, airline.Date("2026-10-25"), f.ReturnDate)
	}
	offer, ok := m.Offer("2")
	require.True(t, ok)
	assert.Equal(t, 2, offer.ID)

	kinds := make([]transcript.Kind, 0)
	for _, turn := range m.History() {
		kinds = append(kinds, turn.Kind)
	}
	assert.Equal(t, []transcript.Kind{transcript.KindMessage, transcript.KindPlan, transcript.KindObservation, transcript.KindMessage}, kinds)

	action, err = m.Accept("book flight 2 at $431.00")
	require.NoError(t, err)
	action = drive(t, m, action, script, tb)
	assert.Equal(t, ActionDone, action.Kind)
	assert.Equal(t, Completed, m.State())
	assert.True(t, m.Ready())
	assert.Empty(t, m.Offers())

	require.Len(t, fake.Charges(), 1)
	assert.Equal(t, payment.Charge{Amount: 43100, Currency: "usd", Description: "Flight booking for 2"}, fake.Charges()[0])

	plan := m.History()[len(m.History())-2]
	require.Equal(t, transcript.KindPlan, plan.Kind)
	require.NotNil(t, plan.Invocation)
	assert.Equal(t, tool.PurchaseName, plan.Invocation.Name)
	assert.JSONEq(t, `{"flight_id":"2","price":"431.00"}`, plan.Invocation.Arguments)

	last := m.History()[len(m.History())-1]
	require.NotNil(t, last.Observation)
	require.NotNil(t, last.Observation.Booking)
	assert.True(t, last.Observation.Booking.Succeeded())

	_, err = m.Accept("thanks")
	require.ErrorIs(t, err, ErrCompleted)
	assert.Equal(t, 0, script.Remaining())
}

func TestMachine_FailedPaymentStillCompletes(t *testing.T) {
	fake := payment.NewFake()
	fake.FailWith(errors.New("card declined"))
	tb := newToolbox(t, fake)
	m := New(uuidx.New(), clock)

	action, err := m.Accept("book flight 1 at 300")
	require.NoError(t, err)
	action = drive(t, m, action, reasoning.NewScript(reasoning.Call("c", tool.PurchaseName, `{"flight_id":"1","price":"300"}`)), tb)
	assert.Equal(t, ActionDone, action.Kind)
	assert.Equal(t, Completed, m.State())

	last := m.History()[len(m.History())-1]
	assert.Equal(t, transcript.KindObservation, last.Kind)
	assert.Equal(t, airline.CodePayment, last.Observation.Booking.Failure.Code)
}

func TestMachine_UnknownTool(t *testing.T) {
	m := New(uuidx.New(), clock)
	_, err := m.Accept("cancel my trip")
	require.NoError(t, err)

	action, err := m.Decide(reasoning.Invoke("c1", "cancel_flight", `{}`))
	require.NoError(t, err)
	assert.Equal(t, ActionAwait, action.Kind)
	assert.Equal(t, AwaitingUserInput, m.State())

	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, transcript.KindPlan, h[1].Kind)
	assert.Equal(t, transcript.KindFailure, h[2].Kind)
	assert.Equal(t, airline.CodeUnknownTool, h[2].Failure.Code)
	assert.Equal(t, "c1", h[2].InvocationID())
}

func TestMachine_InvalidArguments(t *testing.T) {
	m := New(uuidx.New(), clock)
	_, err := m.Accept("flights please")
	require.NoError(t, err)

	_, err = m.Decide(reasoning.Invoke("", tool.SearchName, `{"origin":"LAX"}`))
	require.NoError(t, err)
	h := m.History()
	require.Len(t, h, 3)
	assert.Equal(t, "call_1", h[1].Invocation.ID)
	assert.Equal(t, airline.CodeInvalidToolArguments, h[2].Failure.Code)
	assert.True(t, m.Ready())
}

func TestMachine_SearchFailureGetsFollowUp(t *testing.T) {
	tb := newToolbox(t, payment.NewFake())
	m := New(uuidx.New(), clock)
	script := reasoning.NewScript(
		reasoning.Call("c1", tool.SearchName, `{"origin":"LAX","destination":"LHR","departure_date":"2026-11-01","return_date":"2026-11-08"}`),
		reasoning.Say("Sorry, we only fly to NYC, MUC, SFO, CDG and ORD."),
	)

	action, err := m.Accept("London please")
	require.NoError(t, err)
	action = drive(t, m, action, script, tb)
	assert.Equal(t, ActionAwait, action.Kind)

	h := m.History()
	require.Len(t, h, 4)
	assert.Equal(t, transcript.KindFailure, h[2].Kind)
	assert.Equal(t, []string{"NYC", "MUC", "SFO", "CDG", "ORD"}, h[2].Failure.SupportedDestinations)
	assert.Empty(t, m.Offers())
}

func TestMachine_SecondToolRequestAfterSearchIsNotExecuted(t *testing.T) {
	fake := payment.NewFake()
	tb := newToolbox(t, fake)
	m := New(uuidx.New(), clock)
	script := reasoning.NewScript(
		reasoning.Call("c1", tool.SearchName, searchArgs),
		reasoning.Call("c2", tool.PurchaseName, `{"flight_id":"1","price":"300"}`),
	)

	action, err := m.Accept("find and book the cheapest")
	require.NoError(t, err)
	action = drive(t, m, action, script, tb)
	assert.Equal(t, ActionAwait, action.Kind)
	assert.Equal(t, AwaitingUserInput, m.State())
	assert.Empty(t, fake.Charges())

	last := m.History()[len(m.History())-1]
	assert.Equal(t, transcript.KindMessage, last.Kind)
	assert.Equal(t, airline.DescribeFlights(m.Offers()), last.Text)
}

func TestMachine_ReasoningFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		m := New(uuidx.New(), clock)
		_, err := m.Accept("hi")
		require.NoError(t, err)
		action, err := m.Fail(fmt.Errorf("reason: %w", context.DeadlineExceeded))
		require.NoError(t, err)
		assert.Equal(t, ActionAwait, action.Kind)
		last := m.History()[1]
		assert.Equal(t, airline.CodeReasoningTimeout, last.Failure.Code)
		assert.Equal(t, transcript.ActorAssistant, last.Actor)

		// the conversation stays usable
		_, err = m.Accept("hello?")
		require.NoError(t, err)
	})

	t.Run("error", func(t *testing.T) {
		m := New(uuidx.New(), clock)
		_, err := m.Accept("hi")
		require.NoError(t, err)
		_, err = m.Fail(errors.New("rate limited"))
		require.NoError(t, err)
		assert.Equal(t, airline.CodeReasoningFailed, m.History()[1].Failure.Code)
	})

	t.Run("empty decision", func(t *testing.T) {
		m := New(uuidx.New(), clock)
		_, err := m.Accept("hi")
		require.NoError(t, err)
		action, err := m.Decide(reasoning.Decision{})
		require.NoError(t, err)
		assert.Equal(t, ActionAwait, action.Kind)
		assert.Equal(t, airline.CodeReasoningFailed, m.History()[1].Failure.Code)
	})
}

func TestMachine_ToolFailures(t *testing.T) {
	t.Run("search timeout is resumable", func(t *testing.T) {
		m := New(uuidx.New(), clock)
		_, err := m.Accept("flights")
		require.NoError(t, err)
		action, err := m.Decide(reasoning.Invoke("c1", tool.SearchName, searchArgs))
		require.NoError(t, err)
		require.Equal(t, ActionExecute, action.Kind)
		assert.Equal(t, ExecutingTool, m.State())
		assert.False(t, m.Ready())

		action, err = m.Fail(ErrStepTimeout)
		require.NoError(t, err)
		assert.Equal(t, ActionAwait, action.Kind)
		last := m.History()[len(m.History())-1]
		assert.Equal(t, airline.CodeToolFailed, last.Failure.Code)
		assert.Equal(t, "find_flights failed: timed out", last.Failure.Message)
		assert.Equal(t, "c1", last.InvocationID())
	})

	t.Run("purchase failure completes", func(t *testing.T) {
		m := New(uuidx.New(), clock)
		_, err := m.Accept("book 1")
		require.NoError(t, err)
		_, err = m.Decide(reasoning.Invoke("c1", tool.PurchaseName, `{"flight_id":"1","price":"300"}`))
		require.NoError(t, err)
		action, err := m.Fail(errors.New("worker lost"))
		require.NoError(t, err)
		assert.Equal(t, ActionDone, action.Kind)
		assert.Equal(t, Completed, m.State())
	})
}

func TestMachine_UnexpectedSteps(t *testing.T) {
	m := New(uuidx.New(), clock)
	_, err := m.Decide(reasoning.Reply("x"))
	require.ErrorIs(t, err, ErrUnexpectedStep)
	_, err = m.Observe(tool.Observation{Kind: tool.KindSearch})
	require.ErrorIs(t, err, ErrUnexpectedStep)
	_, err = m.Fail(errors.New("x"))
	require.ErrorIs(t, err, ErrUnexpectedStep)

	_, err = m.Accept("flights")
	require.NoError(t, err)
	_, err = m.Decide(reasoning.Invoke("c1", tool.SearchName, searchArgs))
	require.NoError(t, err)
	_, err = m.Observe(tool.Observation{Kind: tool.KindPurchase})
	require.ErrorIs(t, err, ErrUnexpectedStep)
}

func TestMachine_SnapshotRestore(t *testing.T) {
	tb := newToolbox(t, payment.NewFake())
	m := New(uuidx.New(), clock)
	action, err := m.Accept("flights")
	require.NoError(t, err)
	drive(t, m, action, reasoning.NewScript(reasoning.Call("c1", tool.SearchName, searchArgs), reasoning.Say("pick one")), tb)

	_, err = m.Accept("book 3")
	require.NoError(t, err)
	action, err = m.Decide(reasoning.Invoke("c2", tool.PurchaseName, `{"flight_id":"3","price":"400"}`))
	require.NoError(t, err)
	require.Equal(t, ActionExecute, action.Kind)

	b, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(b, &snap))

	restored, err := Restore(snap, clock)
	require.NoError(t, err)
	assert.Equal(t, m.ID(), restored.ID())
	assert.Equal(t, ExecutingTool, restored.State())
	assert.Equal(t, m.Len(), restored.Len())
	assert.Equal(t, m.Offers(), restored.Offers())

	call, ok := restored.Pending()
	require.True(t, ok)
	assert.Equal(t, tool.KindPurchase, call.Kind)
	assert.Equal(t, "3", call.Purchase.FlightID)

	action, err = restored.Observe(tb.Execute(context.Background(), call))
	require.NoError(t, err)
	assert.Equal(t, ActionDone, action.Kind)
}

func TestRestore_Invalid(t *testing.T) {
	_, err := Restore(Snapshot{State: "bogus"}, clock)
	require.Error(t, err)
	_, err = Restore(Snapshot{State: ExecutingTool}, clock)
	require.Error(t, err)
}
