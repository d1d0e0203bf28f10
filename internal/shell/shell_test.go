package shell

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/internal/broker"
	"github.com/casualjim/latravels/internal/executor"
	"github.com/casualjim/latravels/payment"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/session"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatActivity(t *testing.T) {
	line, ok := FormatActivity(transcript.Turn{
		Kind:       transcript.KindPlan,
		Invocation: &tool.Invocation{Name: tool.SearchName, Arguments: `{"origin":"LAX"}`},
	})
	require.True(t, ok)
	assert.Equal(t, `  → find_flights{"origin"="LAX"}`, line)

	line, ok = FormatActivity(transcript.Turn{
		Kind:        transcript.KindObservation,
		Observation: &tool.Observation{Kind: tool.KindSearch, Flights: make([]airline.Flight, 3)},
	})
	require.True(t, ok)
	assert.Equal(t, "  ← find_flights: 3 flights", line)

	line, ok = FormatActivity(transcript.Turn{
		Kind: transcript.KindObservation,
		Observation: &tool.Observation{Kind: tool.KindPurchase, Booking: &airline.BookingResult{
			Status: airline.BookingFailed, Failure: airline.PaymentFailure(assert.AnError),
		}},
	})
	require.True(t, ok)
	assert.Contains(t, line, "payment error")

	line, ok = FormatActivity(transcript.Turn{
		Kind: transcript.KindFailure, Actor: transcript.ActorTool, Failure: airline.UnknownToolFailure("hotel"),
	})
	require.True(t, ok)
	assert.Contains(t, line, "unknown tool: hotel")

	_, ok = FormatActivity(transcript.Turn{Kind: transcript.KindMessage, Actor: transcript.ActorAssistant, Text: "hi"})
	assert.False(t, ok)
}

func TestShell_Turn(t *testing.T) {
	ctx := context.Background()
	b := broker.Local()

	tb, err := tool.NewToolbox(nil, nil, airline.NewPurchaser(payment.NewFake()))
	require.NoError(t, err)
	script := reasoning.NewScript(
		reasoning.Call("call_1", tool.PurchaseName, `{"flight_id":"1","price":"$350.00"}`),
	)
	exec, err := executor.NewLocal(script, tb, executor.WithBroker(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })

	mgr, err := session.NewManager(exec, session.WithPollInterval(5*time.Millisecond))
	require.NoError(t, err)

	var out syncBuffer
	sh, err := New(mgr, b, &out)
	require.NoError(t, err)

	require.NoError(t, sh.Turn(ctx, "book flight 1 for $350"))

	got := out.String()
	assert.Contains(t, got, "Assistant:")
	assert.Contains(t, got, "Receipt")
	assert.Contains(t, got, "This booking is finished")
}
