package conversation

import (
	"errors"

	"github.com/casualjim/latravels/tool"
)

type State string

const (
	AwaitingUserInput State = "awaiting_user_input"
	Planning          State = "planning"
	ExecutingTool     State = "executing_tool"
	Responding        State = "responding"
	Completed         State = "completed"
)

// Ready reports whether a poller can show the latest reply: the turn is over or the
// conversation has ended.
func (s State) Ready() bool {
	return s == AwaitingUserInput || s == Completed
}

var (
	ErrCompleted        = errors.New("conversation is completed")
	ErrNotAwaitingInput = errors.New("conversation is not awaiting user input")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrUnexpectedStep   = errors.New("step does not match the conversation state")
	// ErrStepTimeout marks a reasoning or tool step that ran out of time. Drivers wrap their
	// runtime's timeout errors with it.
	ErrStepTimeout = errors.New("step timed out")
)

type ActionKind int

const (
	// ActionAwait waits for the next user message.
	ActionAwait ActionKind = iota
	// ActionReason asks the reasoning step for a decision.
	ActionReason
	// ActionExecute runs Action.Call.
	ActionExecute
	// ActionDone ends the conversation.
	ActionDone
)

func (k ActionKind) String() string {
	switch k {
	case ActionAwait:
		return "await"
	case ActionReason:
		return "reason"
	case ActionExecute:
		return "execute"
	case ActionDone:
		return "done"
	default:
		return "unknown"
	}
}

// Action tells the driver what to do next.
type Action struct {
	Kind ActionKind
	Call *tool.Call
}

func await() Action  { return Action{Kind: ActionAwait} }
func reason() Action { return Action{Kind: ActionReason} }
func done() Action   { return Action{Kind: ActionDone} }

func execute(call tool.Call) Action {
	return Action{Kind: ActionExecute, Call: &call}
}
