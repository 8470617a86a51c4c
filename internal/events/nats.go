package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const queueGroup = "moderation-statistics"

// NATSBus publishes and consumes events on a NATS subject.
type NATSBus struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}
	conn, err := nats.Connect(url, nats.Name("moderation-api"))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return conn, nil
}

// NewNATSBus wraps a connection. Events are sent to subject.<type>.
func NewNATSBus(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSBus {
	subject = strings.TrimSuffix(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "moderation.events"
	}
	return &NATSBus{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_bus").Logger(),
	}
}

// Publish implements Publisher.
func (b *NATSBus) Publish(_ context.Context, event Event) error {
	if b == nil || b.conn == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.conn.Publish(b.subject+"."+event.Type, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe implements Subscriber. The subscription is drained when ctx ends.
func (b *NATSBus) Subscribe(ctx context.Context, handler Handler) error {
	if b == nil || b.conn == nil {
		return nil
	}
	sub, err := b.conn.QueueSubscribe(b.subject+".>", queueGroup, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping malformed event")
			return
		}
		handler(ctx, event)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain event subscription")
		}
	}()
	return nil
}
