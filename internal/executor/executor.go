package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/events"
	"github.com/casualjim/latravels/transcript"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// DefaultStepTimeout bounds a single reasoning or tool step.
const DefaultStepTimeout = 30 * time.Second

// ErrUnknownConversation is returned for queries about a conversation that was never started.
var ErrUnknownConversation = errors.New("unknown conversation")

// Conversations is what the session layer needs from an executor.
type Conversations interface {
	// Send queues a user message. It returns once the message is accepted, not when the turn
	// is over; poll Ready for that.
	Send(ctx context.Context, id uuid.UUID, text string) error
	Ready(ctx context.Context, id uuid.UUID) (bool, error)
	History(ctx context.Context, id uuid.UUID) ([]transcript.Turn, error)
	State(ctx context.Context, id uuid.UUID) (conversation.State, error)
	Offers(ctx context.Context, id uuid.UUID) ([]airline.Flight, error)
}

type result[T any] struct {
	value T
	err   error
}

// withStepTimeout runs fn with its own deadline. A step that overruns is abandoned and reported
// as conversation.ErrStepTimeout even when fn ignores its context.
func withStepTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", conversation.ErrStepTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}

// changeEvents builds the events for turns appended to a conversation and its state change.
func changeEvents(id uuid.UUID, turns []transcript.Turn, from, to conversation.State, now time.Time) []events.Event {
	ts := strfmt.DateTime(now)
	evts := make([]events.Event, 0, len(turns)+1)
	for _, turn := range turns {
		evts = append(evts, events.Turn{ConversationID: id, Turn: turn, Timestamp: ts})
	}
	if from != to {
		evts = append(evts, events.StateChange{ConversationID: id, From: from, To: to, Timestamp: ts})
	}
	return evts
}
