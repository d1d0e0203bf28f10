package events

import (
	"context"
)

// Hook receives the events of one topic.
type Hook interface {
	OnTurn(ctx context.Context, event Turn)
	OnStateChange(ctx context.Context, event StateChange)
	OnError(ctx context.Context, event Error)
}

// Hooks is a Hook built from optional functions.
type Hooks struct {
	Turn        func(ctx context.Context, event Turn)
	StateChange func(ctx context.Context, event StateChange)
	Error       func(ctx context.Context, event Error)
}

func (h Hooks) OnTurn(ctx context.Context, event Turn) {
	if h.Turn != nil {
		h.Turn(ctx, event)
	}
}

func (h Hooks) OnStateChange(ctx context.Context, event StateChange) {
	if h.StateChange != nil {
		h.StateChange(ctx, event)
	}
}

func (h Hooks) OnError(ctx context.Context, event Error) {
	if h.Error != nil {
		h.Error(ctx, event)
	}
}

// Dispatch calls the hook method matching event's type.
func Dispatch(ctx context.Context, hook Hook, event Event) {
	switch e := event.(type) {
	case Turn:
		hook.OnTurn(ctx, e)
	case StateChange:
		hook.OnStateChange(ctx, e)
	case Error:
		hook.OnError(ctx, e)
	}
}
