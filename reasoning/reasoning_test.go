package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructions(t *testing.T) {
	s := Instructions(time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, s, "LAX")
	assert.Contains(t, s, "Today is Saturday, 2026-10-17.")
}

func TestDecisionConstructors(t *testing.T) {
	r := Reply("hello")
	assert.True(t, r.IsReply())
	assert.Nil(t, r.Invocation)

	i := Invoke("call_1", "find_flights", "{}")
	assert.False(t, i.IsReply())
	assert.Equal(t, &tool.Invocation{ID: "call_1", Name: "find_flights", Arguments: "{}"}, i.Invocation)
}

func TestToolContent(t *testing.T) {
	tr := transcript.New(uuidx.New(), nil)
	obs := tr.AddObservation(tool.Observation{
		Kind:    tool.KindSearch,
		Flights: []airline.Flight{{ID: 1, Origin: "LAX", Destination: "NYC", DepartureDate: "2026-10-23", ReturnDate: "2026-10-25", Price: 30000, Currency: "USD"}},
	})
	assert.JSONEq(t, `[{"id":1,"origin":"LAX","destination":"NYC","departure_date":"2026-10-23","return_date":"2026-10-25","price":"300.00","currency":"USD"}]`, ToolContent(obs))

	fail := tr.AddFailure(transcript.ActorTool, nil, airline.UnknownToolFailure("x"))
	assert.JSONEq(t, `{"code":"UnknownToolError","error":"unknown tool: x"}`, ToolContent(fail))

	msg := tr.AddUserMessage("hi")
	assert.Equal(t, "hi", ToolContent(msg))
}

func TestScript(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewScript(Say("hi"), Call("c1", "find_flights", "{}")).Then(Fail(boom))
	assert.Equal(t, 3, s.Remaining())

	d, err := s.Decide(ctx, Request{Instructions: "a"})
	require.NoError(t, err)
	assert.Equal(t, "hi", d.Text)

	d, err = s.Decide(ctx, Request{Instructions: "b"})
	require.NoError(t, err)
	assert.Equal(t, "find_flights", d.Invocation.Name)

	_, err = s.Decide(ctx, Request{})
	require.ErrorIs(t, err, boom)

	_, err = s.Decide(ctx, Request{})
	require.ErrorIs(t, err, ErrScriptExhausted)
	assert.Len(t, s.Requests(), 4)
	assert.Equal(t, "b", s.Requests()[1].Instructions)
}

func TestScript_Block(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := NewScript(Block()).Decide(ctx, Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFunc(t *testing.T) {
	r := Func(func(context.Context, Request) (Decision, error) { return Reply("ok"), nil })
	d, err := r.Decide(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", d.Text)
}
