package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/internal/store"
	"github.com/casualjim/latravels/transcript"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

var _ Conversations = &TemporalProxy{}

// workflowClient is the part of client.Client the proxy uses.
type workflowClient interface {
	SignalWithStartWorkflow(ctx context.Context, workflowID string, signalName string, signalArg interface{},
		options client.StartWorkflowOptions, workflow interface{}, workflowArgs ...interface{}) (client.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type ProxyOption = opts.Option[TemporalProxy]

var (
	// WithWorkflowStepTimeout bounds each reasoning and tool activity of the workflows this proxy starts.
	WithWorkflowStepTimeout = opts.ForName[TemporalProxy, time.Duration]("stepTimeout")
	// WithImportedSnapshots starts workflows from conversations the local executor saved.
	WithImportedSnapshots = opts.ForName[TemporalProxy, store.Store[conversation.Snapshot]]("snapshots")
)

// TemporalProxy talks to conversations running as ConversationWorkflow.
type TemporalProxy struct {
	client      workflowClient
	taskQueue   string
	stepTimeout time.Duration
	snapshots   store.Store[conversation.Snapshot]
}

func NewTemporalProxy(c client.Client, taskQueue string, options ...ProxyOption) (*TemporalProxy, error) {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	t := &TemporalProxy{client: c, taskQueue: taskQueue, stepTimeout: DefaultStepTimeout}
	if err := opts.Apply(t, options); err != nil {
		return nil, err
	}
	return t, nil
}

// Send signals the conversation's workflow, starting it when it is not running yet. A workflow
// id is never reused, so a completed conversation rejects further messages.
func (t *TemporalProxy) Send(ctx context.Context, id uuid.UUID, text string) error {
	if strings.TrimSpace(text) == "" {
		return conversation.ErrEmptyMessage
	}
	in, err := t.input(ctx, id)
	if err != nil {
		return err
	}
	_, err = t.client.SignalWithStartWorkflow(ctx, WorkflowID(id), SignalUserMessage, text,
		client.StartWorkflowOptions{
			ID:                    WorkflowID(id),
			TaskQueue:             t.taskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		},
		WorkflowName, in,
	)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return conversation.ErrCompleted
		}
		return fmt.Errorf("failed to signal conversation %s: %w", id, err)
	}
	return nil
}

// input is only used when the signal starts the workflow. A conversation saved by the local
// executor continues where it stopped.
func (t *TemporalProxy) input(ctx context.Context, id uuid.UUID) (WorkflowInput, error) {
	in := WorkflowInput{ConversationID: id, StepTimeout: t.stepTimeout}
	if t.snapshots == nil {
		return in, nil
	}
	snap, found, err := t.snapshots.Get(ctx, id.String())
	if err != nil {
		return in, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	if !found {
		return in, nil
	}
	if snap.State == conversation.Completed {
		return in, conversation.ErrCompleted
	}
	in.Snapshot = &snap
	return in, nil
}

func (t *TemporalProxy) Ready(ctx context.Context, id uuid.UUID) (bool, error) {
	return query[bool](ctx, t.client, id, QueryIsReady)
}

func (t *TemporalProxy) History(ctx context.Context, id uuid.UUID) ([]transcript.Turn, error) {
	return query[[]transcript.Turn](ctx, t.client, id, QueryHistory)
}

func (t *TemporalProxy) State(ctx context.Context, id uuid.UUID) (conversation.State, error) {
	return query[conversation.State](ctx, t.client, id, QueryState)
}

func (t *TemporalProxy) Offers(ctx context.Context, id uuid.UUID) ([]airline.Flight, error) {
	return query[[]airline.Flight](ctx, t.client, id, QueryOffers)
}

func query[T any](ctx context.Context, c workflowClient, id uuid.UUID, name string) (T, error) {
	var result T
	val, err := c.QueryWorkflow(ctx, WorkflowID(id), "", name)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return result, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
		}
		return result, fmt.Errorf("failed to query %s of conversation %s: %w", name, id, err)
	}
	if err := val.Get(&result); err != nil {
		return result, fmt.Errorf("failed to decode %s of conversation %s: %w", name, id, err)
	}
	return result, nil
}
