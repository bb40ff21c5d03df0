package natsadapter

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber with core NATS subscriptions.
// JetStream publishes are delivered to plain subscribers on the same subjects.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber wraps an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeProjectChanges delivers every import and edit event for projectID.
// The returned func removes the subscription.
func (s *Subscriber) SubscribeProjectChanges(ctx context.Context, projectID string, handler func(ctx context.Context, data []byte) error) (func() error, error) {
	if s.conn == nil {
		return nil, fmt.Errorf("nats: no connection")
	}
	sub, err := s.conn.Subscribe("survey.locations.*."+projectID, func(msg *nats.Msg) {
		_ = handler(ctx, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", projectID, err)
	}
	return sub.Unsubscribe, nil
}
