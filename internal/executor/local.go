package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/events"
	"github.com/casualjim/latravels/internal/broker"
	"github.com/casualjim/latravels/internal/store"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// ErrClosed is returned by a Local executor after Close.
var ErrClosed = errors.New("executor is closed")

var _ Conversations = &Local{}

type Option = opts.Option[Local]

var (
	// WithStepTimeout bounds each reasoning and tool step.
	WithStepTimeout = opts.ForName[Local, time.Duration]("stepTimeout")
	// WithBroker publishes turn and state events.
	WithBroker = opts.ForName[Local, broker.Broker]("broker")
	// WithSnapshots persists conversations between turns.
	WithSnapshots = opts.ForName[Local, store.Store[conversation.Snapshot]]("snapshots")
	// WithClock replaces time.Now for turn timestamps and the reasoning instructions.
	WithClock = opts.ForName[Local, func() time.Time]("now")
)

// Local runs conversations in this process, one actor goroutine per conversation.
type Local struct {
	reasoner    reasoning.Reasoner
	toolbox     *tool.Toolbox
	broker      broker.Broker
	snapshots   store.Store[conversation.Snapshot]
	stepTimeout time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	actors *haxmap.Map[string, *actor]
}

func NewLocal(reasoner reasoning.Reasoner, toolbox *tool.Toolbox, options ...Option) (*Local, error) {
	if reasoner == nil {
		return nil, fmt.Errorf("a reasoner is required")
	}
	if toolbox == nil {
		return nil, fmt.Errorf("a toolbox is required")
	}

	l := &Local{
		reasoner:    reasoner,
		toolbox:     toolbox,
		stepTimeout: DefaultStepTimeout,
		now:         time.Now,
		actors:      haxmap.New[string, *actor](),
	}
	if err := opts.Apply(l, options); err != nil {
		return nil, err
	}
	if l.snapshots == nil {
		l.snapshots = store.Memory[conversation.Snapshot]()
	}
	if l.stepTimeout <= 0 {
		l.stepTimeout = DefaultStepTimeout
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	return l, nil
}

// Close stops every actor and waits for in-flight turns to end.
func (l *Local) Close() error {
	l.cancel()
	l.wg.Wait()
	return nil
}

func (l *Local) Send(ctx context.Context, id uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return conversation.ErrEmptyMessage
	}
	if l.ctx.Err() != nil {
		return ErrClosed
	}
	a, err := l.lookup(ctx, id, true)
	if err != nil {
		return err
	}
	return a.enqueue(text)
}

func (l *Local) Ready(ctx context.Context, id uuid.UUID) (bool, error) {
	a, err := l.lookup(ctx, id, false)
	if err != nil {
		return false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.Ready() && !a.busy && len(a.inbox) == 0, nil
}

func (l *Local) History(ctx context.Context, id uuid.UUID) ([]transcript.Turn, error) {
	a, err := l.lookup(ctx, id, false)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.History(), nil
}

func (l *Local) State(ctx context.Context, id uuid.UUID) (conversation.State, error) {
	a, err := l.lookup(ctx, id, false)
	if err != nil {
		return "", err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.State(), nil
}

func (l *Local) Offers(ctx context.Context, id uuid.UUID) ([]airline.Flight, error) {
	a, err := l.lookup(ctx, id, false)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.Offers(), nil
}

// lookup finds the actor of a conversation, restoring it from the snapshot store when this
// process has not seen it yet.
func (l *Local) lookup(ctx context.Context, id uuid.UUID, create bool) (*actor, error) {
	key := id.String()
	if a, ok := l.actors.Get(key); ok {
		return a, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.actors.Get(key); ok {
		return a, nil
	}

	snap, found, err := l.snapshots.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	var m *conversation.Machine
	switch {
	case found:
		m, err = conversation.Restore(snap, l.now)
		if err != nil {
			return nil, fmt.Errorf("failed to restore conversation %s: %w", id, err)
		}
		slog.DebugContext(ctx, "restored conversation", slogx.Conversation(id), slog.String("state", string(m.State())))
	case create:
		m = conversation.New(id, l.now)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}

	a := newActor(id, m)
	l.actors.Set(key, a)
	if m.State() != conversation.Completed {
		l.wg.Add(1)
		go l.run(a)
	}
	return a, nil
}

// run is the actor loop of one conversation. It exits when the conversation completes or the
// executor closes.
func (l *Local) run(a *actor) {
	defer l.wg.Done()
	ctx := l.ctx

	if action, ok := a.resume(); ok {
		l.drive(ctx, a, action)
		a.idle()
	}

	for {
		if a.finished() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-a.wake:
		}

		for {
			text, ok := a.next()
			if !ok {
				break
			}
			l.turn(ctx, a, text)
			a.idle()
		}
	}
}

func (l *Local) turn(ctx context.Context, a *actor, text string) {
	action, err := l.apply(ctx, a, func(m *conversation.Machine) (conversation.Action, error) {
		return m.Accept(text)
	})
	if err != nil {
		l.publishError(ctx, a.id, err)
		return
	}
	l.drive(ctx, a, action)
}

// drive performs actions until the machine waits for the user or is done.
func (l *Local) drive(ctx context.Context, a *actor, action conversation.Action) {
	var err error
	for err == nil {
		switch action.Kind {
		case conversation.ActionReason:
			a.mu.RLock()
			req := a.machine.Request(reasoning.Instructions(l.now()))
			a.mu.RUnlock()

			decision, derr := withStepTimeout(ctx, l.stepTimeout, func(ctx context.Context) (reasoning.Decision, error) {
				return l.reasoner.Decide(ctx, req)
			})
			action, err = l.apply(ctx, a, func(m *conversation.Machine) (conversation.Action, error) {
				if derr != nil {
					slog.WarnContext(ctx, "reasoning step failed", slogx.Conversation(a.id), slogx.Error(derr))
					return m.Fail(derr)
				}
				return m.Decide(decision)
			})

		case conversation.ActionExecute:
			call := *action.Call
			obs, xerr := withStepTimeout(ctx, l.stepTimeout, func(ctx context.Context) (tool.Observation, error) {
				return l.toolbox.Execute(ctx, call), nil
			})
			action, err = l.apply(ctx, a, func(m *conversation.Machine) (conversation.Action, error) {
				if xerr != nil {
					slog.WarnContext(ctx, "tool step failed", slogx.Conversation(a.id), slogx.Stringer("tool", call.Kind), slogx.Error(xerr))
					return m.Fail(xerr)
				}
				return m.Observe(obs)
			})

		default:
			return
		}
	}

	slog.ErrorContext(ctx, "conversation step rejected", slogx.Conversation(a.id), slogx.Error(err))
	l.publishError(ctx, a.id, err)
}

// apply runs one machine transition under the actor lock, publishes what it changed and saves
// the result. A restart between two steps resumes from the last saved step.
func (l *Local) apply(ctx context.Context, a *actor, step func(*conversation.Machine) (conversation.Action, error)) (conversation.Action, error) {
	a.mu.Lock()
	m := a.machine
	before, from := m.Len(), m.State()
	action, err := step(m)
	turns, to := m.Since(before), m.State()
	evts := changeEvents(a.id, turns, from, to, l.now())
	a.mu.Unlock()

	if len(turns) > 0 || from != to {
		l.save(ctx, a)
	}
	l.publish(ctx, a.id, evts...)
	return action, err
}

func (l *Local) save(ctx context.Context, a *actor) {
	a.mu.RLock()
	snap := a.machine.Snapshot()
	a.mu.RUnlock()

	if err := l.snapshots.Put(context.WithoutCancel(ctx), a.id.String(), snap); err != nil {
		slog.ErrorContext(ctx, "failed to save conversation", slogx.Conversation(a.id), slogx.Error(err))
	}
}

func (l *Local) publish(ctx context.Context, id uuid.UUID, evts ...events.Event) {
	if l.broker == nil || len(evts) == 0 {
		return
	}
	topic := l.broker.Topic(ctx, events.Topic(id))
	for _, event := range evts {
		if err := topic.Publish(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish event", slogx.Conversation(id), slogx.Error(err))
			return
		}
	}
}

func (l *Local) publishError(ctx context.Context, id uuid.UUID, err error) {
	l.publish(ctx, id, events.Error{ConversationID: id, Message: err.Error(), Timestamp: strfmt.DateTime(l.now())})
}

// actor owns one machine. Queries take the read lock, transitions the write lock; the
// reasoning and tool steps run without holding it.
type actor struct {
	id   uuid.UUID
	wake chan struct{}

	mu      sync.RWMutex
	machine *conversation.Machine
	inbox   []string
	busy    bool
}

func newActor(id uuid.UUID, m *conversation.Machine) *actor {
	return &actor{
		id:      id,
		wake:    make(chan struct{}, 1),
		machine: m,
		// a conversation restored mid-turn is busy until the turn is finished
		busy: !m.State().Ready(),
	}
}

func (a *actor) enqueue(text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.machine.State() == conversation.Completed {
		return conversation.ErrCompleted
	}
	a.inbox = append(a.inbox, text)
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

func (a *actor) next() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.inbox) == 0 {
		return "", false
	}
	text := a.inbox[0]
	a.inbox = a.inbox[1:]
	a.busy = true
	return text, true
}

func (a *actor) idle() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

// finished reports whether the conversation is over and nothing is left to reject.
func (a *actor) finished() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.machine.State() == conversation.Completed && len(a.inbox) == 0
}

// resume returns the step to continue with when the machine was restored mid-turn.
func (a *actor) resume() (conversation.Action, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch a.machine.State() {
	case conversation.Planning:
		return conversation.Action{Kind: conversation.ActionReason}, true
	case conversation.ExecutingTool:
		call, ok := a.machine.Pending()
		if !ok {
			return conversation.Action{}, false
		}
		return conversation.Action{Kind: conversation.ActionExecute, Call: &call}, true
	default:
		return conversation.Action{}, false
	}
}
