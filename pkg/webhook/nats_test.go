package webhook_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/idm-client/pkg/webhook"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *nats.Conn {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	return nc
}

func TestPublisher_Subject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idm.events.frontegg.user.created", webhook.NewPublisher(nil, "").Subject(webhook.EventUserCreated))
	assert.Equal(t, "custom.frontegg.user.deleted", webhook.NewPublisher(nil, "custom").Subject(webhook.EventUserDeleted))
}

func TestPublishSubscribe(t *testing.T) {
	nc := testConnect(t)
	prefix := "idm.test." + strings.ReplaceAll(t.Name(), "/", ".")

	received := make(chan *webhook.Event, 1)

	sub, err := webhook.Subscribe(nc, prefix+".frontegg.user.>", func(_ context.Context, event *webhook.Event) error {
		received <- event

		return nil
	}, nil)
	require.NoError(t, err)

	defer func() { _ = sub.Unsubscribe() }()

	event, err := webhook.ParseEvent([]byte(createdEvent))
	require.NoError(t, err)

	pub := webhook.NewPublisher(nc, prefix)
	require.NoError(t, pub.Handle(context.Background(), event))
	require.NoError(t, nc.Flush())

	select {
	case got := <-received:
		assert.Equal(t, event.Key, got.Key)
		assert.Equal(t, event.User.ID, got.User.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
