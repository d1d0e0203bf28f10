package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/latravels/events"
	"github.com/casualjim/latravels/pkg/slogx"
	"github.com/casualjim/latravels/pkg/uuidx"
	"github.com/nats-io/nats.go"
)

// ConversationHeader carries the conversation id of every event published over NATS, so
// consumers outside this process can route messages without decoding them.
const ConversationHeader = "Latravels-Conversation"

// pendingMessages bounds the messages a slow subscriber may fall behind by.
const pendingMessages = 64

// NATSBroker publishes conversation events on NATS, one subject per topic. Shells and HTTP
// servers in other processes follow a conversation that a worker drives.
type NATSBroker struct {
	conn     *nats.Conn
	subjects *haxmap.Map[string, *subject]
}

func NATS(conn *nats.Conn) *NATSBroker {
	return &NATSBroker{conn: conn, subjects: haxmap.New[string, *subject]()}
}

func (b *NATSBroker) Topic(_ context.Context, name string) Topic {
	s, _ := b.subjects.GetOrCompute(name, func() *subject {
		return &subject{conn: b.conn, name: name}
	})
	return s
}

type subject struct {
	conn *nats.Conn
	name string
}

func (s *subject) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := events.ToJSON(event)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", s.name, err)
	}
	msg := nats.NewMsg(s.name)
	msg.Header.Set(ConversationHeader, event.Conversation().String())
	msg.Data = data
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.name, err)
	}
	return nil
}

func (s *subject) Subscribe(ctx context.Context, hook events.Hook) (Subscription, error) {
	if hook == nil {
		return nil, errors.New("a hook is required")
	}
	msgs := make(chan *nats.Msg, pendingMessages)
	ns, err := s.conn.ChanSubscribe(s.name, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.name, err)
	}
	sub := &natsSubscription{id: uuidx.NewString(), sub: ns, done: make(chan struct{})}
	go sub.deliver(ctx, msgs, hook)
	context.AfterFunc(ctx, sub.Unsubscribe)
	return sub, nil
}

type natsSubscription struct {
	id   string
	sub  *nats.Subscription
	done chan struct{}
	once sync.Once
}

func (n *natsSubscription) ID() string { return n.id }

// deliver decodes messages in arrival order and hands them to hook. Undecodable messages are
// dropped.
func (n *natsSubscription) deliver(ctx context.Context, msgs <-chan *nats.Msg, hook events.Hook) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case msg := <-msgs:
			event, err := events.FromJSON(msg.Data)
			if err != nil {
				slog.WarnContext(ctx, "dropping undecodable event",
					slog.String("subject", msg.Subject),
					slog.String("conversation", msg.Header.Get(ConversationHeader)),
					slogx.Error(err))
				continue
			}
			events.Dispatch(ctx, hook, event)
		}
	}
}

func (n *natsSubscription) Unsubscribe() {
	n.once.Do(func() {
		close(n.done)
		if !n.sub.IsValid() {
			return
		}
		if err := n.sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe", slog.String("subscription", n.id), slogx.Error(err))
		}
	})
}
