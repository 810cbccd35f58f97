package publisher

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/domain/events"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/pubsub"
	"github.com/adforge/adforge/internal/pubsub/kafka"
	"github.com/adforge/adforge/internal/pubsub/memory"
	"github.com/adforge/adforge/internal/types"
	jsoniter "github.com/json-iterator/go"
)

// EventPublisher publishes domain events to the configured destination
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type eventPublisher struct {
	pubsub pubsub.Publisher
	config *config.EventConfig
	logger *logger.Logger
}

// NewPubSub builds the transport selected by event.publish_destination
func NewPubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.Publisher, error) {
	if cfg.Event.PublishDestination == types.PublishToKafka {
		return kafka.NewPublisher(cfg, logger)
	}
	return memory.NewPubSub(logger), nil
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(cfg *config.Configuration, logger *logger.Logger, ps pubsub.Publisher) EventPublisher {
	return &eventPublisher{
		pubsub: ps,
		config: &cfg.Event,
		logger: logger,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := p.config.TopicAccounts
	if event.IsJobEvent() {
		topic = p.config.TopicJobs
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_name", event.EventName)
	msg.Metadata.Set("org_id", event.OrgID)

	p.logger.Debugw("publishing event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"topic", topic,
	)
	return p.pubsub.Publish(ctx, topic, msg)
}
