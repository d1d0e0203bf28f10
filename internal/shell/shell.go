// Package shell is the interactive terminal front end of the assistant.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/casualjim/latravels/events"
	"github.com/casualjim/latravels/internal/broker"
	"github.com/casualjim/latravels/session"
	"github.com/casualjim/latravels/transcript"
	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/tidwall/gjson"
)

// Chatter is the part of session.Manager the shell drives.
type Chatter interface {
	Create(ctx context.Context) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	Chat(ctx context.Context, sessionID string, text string) (session.Reply, error)
}

type Shell struct {
	chat     Chatter
	broker   broker.Broker
	renderer *glamour.TermRenderer

	mu        sync.Mutex
	out       io.Writer
	sessionID string
}

// New creates a shell writing to out. A nil broker hides live tool activity.
func New(chat Chatter, b broker.Broker, out io.Writer) (*Shell, error) {
	if out == nil {
		out = os.Stdout
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Shell{chat: chat, broker: b, renderer: renderer, out: out}, nil
}

// Run reads messages until exit, EOF or interrupt.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.CyanString("You") + ": ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer rl.Close()

	sess, err := s.chat.Create(ctx)
	if err != nil {
		return err
	}
	s.sessionID = sess.ID
	s.printAssistant(session.Welcome)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := s.Turn(ctx, text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.printf("%s: %v\n", color.RedString("Error"), err)
		}
	}
}

// Turn sends one message and prints the tool activity and the reply.
func (s *Shell) Turn(ctx context.Context, text string) error {
	if s.sessionID == "" {
		sess, err := s.chat.Create(ctx)
		if err != nil {
			return err
		}
		s.sessionID = sess.ID
	}

	if s.broker != nil {
		sess, err := s.chat.Get(ctx, s.sessionID)
		if err != nil {
			return err
		}
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		sub, err := s.broker.Topic(subCtx, events.Topic(sess.ConversationID)).Subscribe(subCtx, events.Hooks{
			Turn: func(_ context.Context, e events.Turn) {
				if line, ok := FormatActivity(e.Turn); ok {
					s.printf("%s\n", line)
				}
			},
		})
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()
	}

	reply, err := s.chat.Chat(ctx, s.sessionID, text)
	if err != nil {
		return err
	}
	s.printAssistant(reply.Text)
	if reply.Completed {
		s.printf("%s\n", color.GreenString("This booking is finished. Your next message starts a new conversation."))
	}
	return nil
}

// FormatActivity renders the tool side of a turn as a one line trace.
func FormatActivity(turn transcript.Turn) (string, bool) {
	switch {
	case turn.Kind == transcript.KindPlan && turn.Invocation != nil:
		args := strings.ReplaceAll(gjson.Parse(turn.Invocation.Arguments).Raw, `":`, `"=`)
		return fmt.Sprintf("  %s %s%s", color.YellowString("→"), color.YellowString(turn.Invocation.Name), args), true
	case turn.Kind == transcript.KindObservation && turn.Observation != nil:
		obs := turn.Observation
		switch {
		case obs.Failed():
			msg := "failed"
			if obs.Failure != nil {
				msg = obs.Failure.Message
			} else if obs.Booking != nil && obs.Booking.Failure != nil {
				msg = obs.Booking.Failure.Message
			}
			return fmt.Sprintf("  %s %s: %s", color.YellowString("←"), obs.Kind, msg), true
		case obs.Booking != nil:
			return fmt.Sprintf("  %s %s: receipt %s", color.YellowString("←"), obs.Kind, obs.Booking.ReceiptURL), true
		default:
			return fmt.Sprintf("  %s %s: %d flights", color.YellowString("←"), obs.Kind, len(obs.Flights)), true
		}
	case turn.Kind == transcript.KindFailure && turn.Actor == transcript.ActorTool && turn.Failure != nil:
		return fmt.Sprintf("  %s %s", color.RedString("✗"), turn.Failure.Message), true
	default:
		return "", false
	}
}

func (s *Shell) printAssistant(text string) {
	out, err := s.renderer.Render(text)
	if err != nil {
		out = text + "\n"
	}
	s.printf("%s: %s", color.MagentaString("Assistant"), out)
}

func (s *Shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}
