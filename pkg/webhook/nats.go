package webhook

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/idm-client/pkg/idm"
)

// DefaultSubjectPrefix is where Publisher sends events unless configured
// otherwise. The event key is appended, e.g. idm.events.frontegg.user.created.
const DefaultSubjectPrefix = "idm.events"

// Publisher forwards events to NATS.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// NewPublisher creates a Publisher on nc. An empty prefix selects
// DefaultSubjectPrefix.
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	return &Publisher{nc: nc, prefix: prefix}
}

// Subject returns the subject an event with key is published on.
func (p *Publisher) Subject(key string) string {
	return p.prefix + "." + key
}

// Publish sends the raw delivery. It does not wait for subscribers.
func (p *Publisher) Publish(_ context.Context, event *Event) error {
	subject := p.Subject(event.Key)

	err := p.nc.Publish(subject, event.Raw)
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	return nil
}

// Handle is a Func that publishes every event, for use with NewHandler.
func (p *Publisher) Handle(ctx context.Context, event *Event) error {
	return p.Publish(ctx, event)
}

// Subscribe decodes deliveries published on subject and passes them to fn.
// Use a wildcard such as "idm.events.frontegg.user.>" to receive all user
// events. Messages that fail to decode, and errors from fn, are logged and
// dropped. Call Unsubscribe on the result to stop.
func Subscribe(nc *nats.Conn, subject string, fn Func, logger idm.Logger) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		event, err := ParseEvent(msg.Data)
		if err != nil {
			logError(logger, "Dropping undecodable event", msg.Subject, err)

			return
		}

		err = fn(context.Background(), event)
		if err != nil {
			logError(logger, "Event handler failed", msg.Subject, err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	return sub, nil
}

func logError(logger idm.Logger, msg, subject string, err error) {
	if logger == nil {
		return
	}

	logger.Error(msg, map[string]interface{}{
		"subject": subject,
		"error":   err.Error(),
	})
}
