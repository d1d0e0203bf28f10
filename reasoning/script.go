package reasoning

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by a Script that has no decisions left.
var ErrScriptExhausted = errors.New("script exhausted")

// Step produces one decision of a Script. It sees the same request a real model would.
type Step func(ctx context.Context, req Request) (Decision, error)

// Script is a Reasoner that plays back a fixed sequence of steps. It stands in for a model in
// tests and offline demos.
type Script struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

func NewScript(steps ...Step) *Script {
	return &Script{steps: steps}
}

// Then appends steps.
func (s *Script) Then(steps ...Step) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
	return s
}

func (s *Script) Decide(ctx context.Context, req Request) (Decision, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return Decision{}, ErrScriptExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	return step(ctx, req)
}

// Requests returns every request seen so far.
func (s *Script) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining is the number of steps not yet played.
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Say replies with text.
func Say(text string) Step {
	return func(context.Context, Request) (Decision, error) { return Reply(text), nil }
}

// Call invokes a tool.
func Call(id, name, arguments string) Step {
	return func(context.Context, Request) (Decision, error) { return Invoke(id, name, arguments), nil }
}

// Fail returns err.
func Fail(err error) Step {
	return func(context.Context, Request) (Decision, error) { return Decision{}, err }
}

// Block waits for the context to end, simulating a model that never answers.
func Block() Step {
	return func(ctx context.Context, _ Request) (Decision, error) {
		<-ctx.Done()
		return Decision{}, ctx.Err()
	}
}
