// Package notify announces confirmed bookings to other systems over Kafka.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/casualjim/latravels/airline"
	"github.com/casualjim/latravels/pkg/uuidx"
	json "github.com/goccy/go-json"
	"github.com/go-openapi/strfmt"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic          = "latravels.bookings"
	EventBookingConfirmed = "booking.confirmed"
)

// BookingConfirmed is the message published for every successful purchase.
type BookingConfirmed struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	FlightID   string          `json:"flight_id"`
	Amount     airline.Amount  `json:"amount"`
	Currency   string          `json:"currency"`
	ReceiptURL string          `json:"receipt_url"`
	Timestamp  strfmt.DateTime `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes booking events to a topic.
type Kafka struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafka creates a producer for brokers, a comma separated list or a single address.
func NewKafka(brokers string, topic string) (*Kafka, error) {
	addrs := splitBrokers(brokers)
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{writer: w, now: time.Now}, nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (k *Kafka) BookingConfirmed(ctx context.Context, booking airline.BookingResult) error {
	event := BookingConfirmed{
		Type:       EventBookingConfirmed,
		ID:         uuidx.NewString(),
		FlightID:   booking.FlightID,
		Amount:     booking.Amount,
		Currency:   airline.Currency,
		ReceiptURL: booking.ReceiptURL,
		Timestamp:  strfmt.DateTime(k.now().UTC()),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking event: %w", err)
	}

	msg := kafka.Message{Key: []byte(event.ID), Value: data, Time: time.Time(event.Timestamp)}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write booking event: %w", err)
	}
	slog.DebugContext(ctx, "published booking event", slog.String("event", event.ID), slog.String("flight", event.FlightID))
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
