package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/latravels/conversation"
	"github.com/casualjim/latravels/internal/executor"
	"github.com/casualjim/latravels/internal/store"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/casualjim/latravels/transcript"
	"github.com/fogfish/opts"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultTurnTimeout  = 2 * time.Minute
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrTurnTimeout    = errors.New("timed out waiting for a reply")
)

// Session ties a shell user to their current conversation.
type Session struct {
	ID             string          `json:"id"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	Conversations  int             `json:"conversations"`
	CreatedAt      strfmt.DateTime `json:"created_at"`
	UpdatedAt      strfmt.DateTime `json:"updated_at"`
}

// Reply is the outcome of one Chat call.
type Reply struct {
	SessionID      string             `json:"session_id"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	Text           string             `json:"text"`
	State          conversation.State `json:"state"`
	// Completed is set when this reply ended the conversation; the session has moved on.
	Completed bool             `json:"completed"`
	Turn      *transcript.Turn `json:"turn,omitempty"`
}

type Option = opts.Option[Manager]

var (
	WithPollInterval = opts.ForName[Manager, time.Duration]("pollInterval")
	WithTurnTimeout  = opts.ForName[Manager, time.Duration]("turnTimeout")
	WithStore        = opts.ForName[Manager, store.Store[Session]]("sessions")
	WithClock        = opts.ForName[Manager, func() time.Time]("now")
)

// Manager owns sessions and forwards their messages to an executor.
type Manager struct {
	conversations executor.Conversations
	sessions      store.Store[Session]
	pollInterval  time.Duration
	turnTimeout   time.Duration
	now           func() time.Time

	// one lock per session id; a session handles one Chat at a time
	locks *haxmap.Map[string, *sync.Mutex]
}

func NewManager(conversations executor.Conversations, options ...Option) (*Manager, error) {
	if conversations == nil {
		return nil, fmt.Errorf("an executor is required")
	}
	m := &Manager{
		conversations: conversations,
		pollInterval:  DefaultPollInterval,
		turnTimeout:   DefaultTurnTimeout,
		now:           time.Now,
		locks:         haxmap.New[string, *sync.Mutex](),
	}
	if err := opts.Apply(m, options); err != nil {
		return nil, err
	}
	if m.sessions == nil {
		m.sessions = store.Memory[Session]()
	}
	return m, nil
}

// Create starts a session with an empty conversation.
func (m *Manager) Create(ctx context.Context) (Session, error) {
	now := strfmt.DateTime(m.now())
	s := Session{
		ID:             uuidx.NewString(),
		ConversationID: uuidx.New(),
		Conversations:  1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := m.sessions.Put(ctx, s.ID, s); err != nil {
		return Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	slog.DebugContext(ctx, "created session", slogx.Session(s.ID), slogx.Conversation(s.ConversationID))
	return s, nil
}

func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	s, ok, err := m.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// resolve loads a session, creating it under the given id when it does not exist.
func (m *Manager) resolve(ctx context.Context, id string) (Session, error) {
	s, ok, err := m.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	if ok {
		return s, nil
	}
	now := strfmt.DateTime(m.now())
	return Session{ID: id, ConversationID: uuidx.New(), Conversations: 1, CreatedAt: now, UpdatedAt: now}, nil
}

// Chat sends text on the session's conversation and waits for the reply. Concurrent calls for
// the same session run one after the other.
func (m *Manager) Chat(ctx context.Context, sessionID string, text string) (Reply, error) {
	lock, _ := m.locks.GetOrCompute(sessionID, func() *sync.Mutex { return new(sync.Mutex) })
	lock.Lock()
	defer lock.Unlock()

	s, err := m.resolve(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}

	err = m.conversations.Send(ctx, s.ConversationID, text)
	if errors.Is(err, conversation.ErrCompleted) {
		m.rotate(&s)
		err = m.conversations.Send(ctx, s.ConversationID, text)
	}
	if err != nil {
		return Reply{}, err
	}
	if err := m.save(ctx, &s); err != nil {
		return Reply{}, err
	}

	if err := m.wait(ctx, s.ConversationID); err != nil {
		return Reply{}, err
	}

	history, err := m.conversations.History(ctx, s.ConversationID)
	if err != nil {
		return Reply{}, err
	}
	state, err := m.conversations.State(ctx, s.ConversationID)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{SessionID: s.ID, ConversationID: s.ConversationID, State: state}
	if turn, text, ok := Render(history); ok {
		reply.Text = text
		reply.Turn = &turn
	}

	if state == conversation.Completed {
		reply.Completed = true
		m.rotate(&s)
		if err := m.save(ctx, &s); err != nil {
			return Reply{}, err
		}
		slog.InfoContext(ctx, "conversation completed", slogx.Session(s.ID), slogx.Conversation(reply.ConversationID))
	}
	return reply, nil
}

// History returns the turns of the session's current conversation. A conversation that has not
// received a message yet has no history.
func (m *Manager) History(ctx context.Context, sessionID string) ([]transcript.Turn, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history, err := m.conversations.History(ctx, s.ConversationID)
	if errors.Is(err, executor.ErrUnknownConversation) {
		return []transcript.Turn{}, nil
	}
	return history, err
}

// Ready reports whether the session's current conversation is between turns.
func (m *Manager) Ready(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	ready, err := m.conversations.Ready(ctx, s.ConversationID)
	if errors.Is(err, executor.ErrUnknownConversation) {
		return true, nil
	}
	return ready, err
}

func (m *Manager) wait(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, m.turnTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		ready, err := m.conversations.Ready(ctx, id)
		if err != nil && !errors.Is(err, executor.ErrUnknownConversation) {
			return err
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrTurnTimeout, m.turnTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *Manager) rotate(s *Session) {
	s.ConversationID = uuidx.New()
	s.Conversations++
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = strfmt.DateTime(m.now())
	if err := m.sessions.Put(ctx, s.ID, *s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
