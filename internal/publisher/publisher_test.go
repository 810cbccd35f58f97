package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/pubsub/memory"
	"github.com/adforge/adforge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestEventPublisherRoutesByTopic(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jobs, err := ps.Subscribe(ctx, cfg.Event.TopicJobs)
	require.NoError(t, err)
	accounts, err := ps.Subscribe(ctx, cfg.Event.TopicAccounts)
	require.NoError(t, err)

	p := NewEventPublisher(cfg, log, ps)
	ctx = types.SetUserID(ctx, "user_1")

	debited, err := events.NewEvent(ctx, events.EventLedgerDebit, "org_1", map[string]any{"amount": 30})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, debited))

	queued, err := events.NewEvent(ctx, events.EventJobQueued, "org_1", map[string]any{"job_id": "job_1"})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, queued))

	msg := receive(t, accounts)
	assert.Equal(t, debited.ID, msg.UUID)
	assert.Equal(t, events.EventLedgerDebit, msg.Metadata.Get("event_name"))
	assert.Equal(t, "org_1", msg.Metadata.Get("org_id"))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "user_1", decoded.UserID)
	assert.JSONEq(t, `{"amount":30}`, string(decoded.Payload))

	msg = receive(t, jobs)
	assert.Equal(t, queued.ID, msg.UUID)
}
