package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/events"
	"github.com/casualjim/latravels/internal/broker"
	"github.com/casualjim/latravels/reasoning"
	"github.com/casualjim/latravels/tool"
	"github.com/casualjim/latravels/transcript"
	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// PublishTurns runs as a local activity, looked up by its registered name.
const publishTurnsActivity = "PublishTurns"

const (
	WorkflowName      = "ConversationWorkflow"
	DefaultTaskQueue  = "latravels"
	SignalUserMessage = "user_message"

	QueryHistory = "get_history"
	QueryIsReady = "is_ready"
	QueryState   = "get_state"
	QueryOffers  = "get_offers"
)

// WorkflowID is the id of the workflow that runs a conversation.
func WorkflowID(id uuid.UUID) string {
	return "conversation-" + id.String()
}

// WorkflowInput starts a conversation, optionally from a snapshot saved by the local executor.
type WorkflowInput struct {
	ConversationID uuid.UUID              `json:"conversation_id"`
	Snapshot       *conversation.Snapshot `json:"snapshot,omitempty"`
	// StepTimeout bounds each reasoning and tool activity; zero means DefaultStepTimeout.
	StepTimeout time.Duration `json:"step_timeout,omitempty"`
}

// ConversationWorkflow runs one conversation until a purchase completes it. User messages
// arrive on the user_message signal and are handled one turn at a time.
func ConversationWorkflow(ctx workflow.Context, in WorkflowInput) (conversation.Snapshot, error) {
	logger := workflow.GetLogger(ctx)
	now := func() time.Time { return workflow.Now(ctx) }

	m := conversation.New(in.ConversationID, now)
	if in.Snapshot != nil {
		restored, err := conversation.Restore(*in.Snapshot, now)
		if err != nil {
			return conversation.Snapshot{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidSnapshot", err)
		}
		m = restored
	}

	var inbox []string
	busy := false

	if err := workflow.SetQueryHandler(ctx, QueryHistory, func() ([]transcript.Turn, error) {
		return m.History(), nil
	}); err != nil {
		return conversation.Snapshot{}, err
	}
	if err := workflow.SetQueryHandler(ctx, QueryIsReady, func() (bool, error) {
		return m.Ready() && !busy && len(inbox) == 0, nil
	}); err != nil {
		return conversation.Snapshot{}, err
	}
	if err := workflow.SetQueryHandler(ctx, QueryState, func() (conversation.State, error) {
		return m.State(), nil
	}); err != nil {
		return conversation.Snapshot{}, err
	}
	if err := workflow.SetQueryHandler(ctx, QueryOffers, func() ([]airline.Flight, error) {
		return m.Offers(), nil
	}); err != nil {
		return conversation.Snapshot{}, err
	}

	messages := workflow.GetSignalChannel(ctx, SignalUserMessage)
	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			var text string
			if more := messages.Receive(ctx, &text); !more {
				return
			}
			inbox = append(inbox, text)
		}
	})

	d := newDriver(m, in)
	if action, ok := resumeAction(m); ok {
		busy = true
		d.drive(ctx, action)
		busy = false
	}

	for m.State() != conversation.Completed {
		if err := workflow.Await(ctx, func() bool { return len(inbox) > 0 }); err != nil {
			return m.Snapshot(), err
		}
		text := inbox[0]
		inbox = inbox[1:]

		busy = true
		action, err := d.apply(ctx, func() (conversation.Action, error) { return m.Accept(text) })
		if err != nil {
			logger.Warn("user message rejected", "error", err)
		} else {
			d.drive(ctx, action)
		}
		busy = false
	}

	logger.Info("conversation completed", "conversation", in.ConversationID.String(), "turns", m.Len())
	return m.Snapshot(), nil
}

func resumeAction(m *conversation.Machine) (conversation.Action, bool) {
	switch m.State() {
	case conversation.Planning:
		return conversation.Action{Kind: conversation.ActionReason}, true
	case conversation.ExecutingTool:
		call, ok := m.Pending()
		if !ok {
			return conversation.Action{}, false
		}
		return conversation.Action{Kind: conversation.ActionExecute, Call: &call}, true
	default:
		return conversation.Action{}, false
	}
}

type driver struct {
	m              *conversation.Machine
	conversationID uuid.UUID
	stepTimeout    time.Duration
}

func newDriver(m *conversation.Machine, in WorkflowInput) *driver {
	d := &driver{m: m, conversationID: in.ConversationID, stepTimeout: in.StepTimeout}
	if d.stepTimeout <= 0 {
		d.stepTimeout = DefaultStepTimeout
	}
	return d
}

func (d *driver) drive(ctx workflow.Context, action conversation.Action) {
	logger := workflow.GetLogger(ctx)
	var acts *Activities
	var err error

	for err == nil {
		switch action.Kind {
		case conversation.ActionReason:
			req := d.m.Request(reasoning.Instructions(workflow.Now(ctx)))
			var decision reasoning.Decision
			rerr := workflow.ExecuteActivity(d.stepContext(ctx), acts.Reason, req).Get(ctx, &decision)
			action, err = d.apply(ctx, func() (conversation.Action, error) {
				if rerr != nil {
					logger.Warn("reasoning step failed", "error", rerr)
					return d.m.Fail(stepError(rerr))
				}
				return d.m.Decide(decision)
			})

		case conversation.ActionExecute:
			call := *action.Call
			fn := acts.SearchFlights
			if call.Kind == tool.KindPurchase {
				fn = acts.PurchaseFlight
			}
			var obs tool.Observation
			xerr := workflow.ExecuteActivity(d.stepContext(ctx), fn, call).Get(ctx, &obs)
			action, err = d.apply(ctx, func() (conversation.Action, error) {
				if xerr != nil {
					logger.Warn("tool step failed", "tool", call.Kind.String(), "error", xerr)
					return d.m.Fail(stepError(xerr))
				}
				return d.m.Observe(obs)
			})

		default:
			return
		}
	}
	logger.Error("conversation step rejected", "error", err)
}

// apply runs one transition and publishes the turns and state change it produced.
func (d *driver) apply(ctx workflow.Context, step func() (conversation.Action, error)) (conversation.Action, error) {
	before, from := d.m.Len(), d.m.State()
	action, err := step()

	params := PublishParams{
		ConversationID: d.conversationID,
		Turns:          d.m.Since(before),
		From:           from,
		To:             d.m.State(),
	}
	if len(params.Turns) > 0 || params.From != params.To {
		lctx := workflow.WithLocalActivityOptions(ctx, workflow.LocalActivityOptions{
			StartToCloseTimeout: 5 * time.Second,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
		})
		if perr := workflow.ExecuteLocalActivity(lctx, publishTurnsActivity, params).Get(ctx, nil); perr != nil {
			workflow.GetLogger(ctx).Warn("failed to publish conversation events", "error", perr)
		}
	}
	return action, err
}

// stepContext configures a reasoning or tool activity: one attempt, bounded by the step timeout.
func (d *driver) stepContext(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    d.stepTimeout,
		ScheduleToStartTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

func stepError(err error) error {
	if temporal.IsTimeoutError(err) {
		return fmt.Errorf("%w: %w", conversation.ErrStepTimeout, err)
	}
	return err
}

// Activities perform the non-deterministic parts of ConversationWorkflow.
type Activities struct {
	reasoner reasoning.Reasoner
	toolbox  *tool.Toolbox
	broker   broker.Broker
	now      func() time.Time
}

// NewActivities creates the activity set. A nil broker disables event publishing.
func NewActivities(reasoner reasoning.Reasoner, toolbox *tool.Toolbox, b broker.Broker) (*Activities, error) {
	if reasoner == nil {
		return nil, fmt.Errorf("a reasoner is required")
	}
	if toolbox == nil {
		return nil, fmt.Errorf("a toolbox is required")
	}
	return &Activities{reasoner: reasoner, toolbox: toolbox, broker: b, now: time.Now}, nil
}

func (a *Activities) Reason(ctx context.Context, req reasoning.Request) (reasoning.Decision, error) {
	activity.GetLogger(ctx).Debug("reasoning", "turns", len(req.Transcript))
	if req.Catalog == nil {
		req.Catalog = tool.Catalog()
	}
	decision, err := a.reasoner.Decide(ctx, req)
	if err != nil {
		return reasoning.Decision{}, temporal.NewNonRetryableApplicationError(err.Error(), "ReasoningFailed", err)
	}
	return decision, nil
}

func (a *Activities) SearchFlights(ctx context.Context, call tool.Call) (tool.Observation, error) {
	if call.Kind != tool.KindSearch {
		return tool.Observation{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("expected %s, got %s", tool.KindSearch, call.Kind), "UnexpectedTool", nil)
	}
	activity.GetLogger(ctx).Info("searching flights", "invocation", call.InvocationID)
	return a.toolbox.Execute(ctx, call), nil
}

func (a *Activities) PurchaseFlight(ctx context.Context, call tool.Call) (tool.Observation, error) {
	if call.Kind != tool.KindPurchase {
		return tool.Observation{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("expected %s, got %s", tool.KindPurchase, call.Kind), "UnexpectedTool", nil)
	}
	activity.GetLogger(ctx).Info("purchasing flight", "invocation", call.InvocationID)
	return a.toolbox.Execute(ctx, call), nil
}

// PublishParams carries the changes of one transition to PublishTurns.
type PublishParams struct {
	ConversationID uuid.UUID          `json:"conversation_id"`
	Turns          []transcript.Turn  `json:"turns,omitempty"`
	From           conversation.State `json:"from"`
	To             conversation.State `json:"to"`
}

func (a *Activities) PublishTurns(ctx context.Context, params PublishParams) error {
	if a.broker == nil {
		return nil
	}
	topic := a.broker.Topic(ctx, events.Topic(params.ConversationID))
	var errs []error
	for _, event := range changeEvents(params.ConversationID, params.Turns, params.From, params.To, a.now()) {
		if err := topic.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register adds the workflow and its activities to w.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(ConversationWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivity(acts)
}
