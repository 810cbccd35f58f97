package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/adforge/adforge/internal/config"
	ierr "github.com/adforge/adforge/internal/errors"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/pubsub"
)

var _ pubsub.Publisher = (*Publisher)(nil)

// Publisher writes events to kafka, keyed by organization so every event of
// one org lands on the same partition in order
type Publisher struct {
	publisher message.Publisher
	logger    *logger.Logger
}

func NewPublisher(cfg *config.Configuration, logger *logger.Logger) (*Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, ierr.NewError("kafka.brokers is empty").
			WithHint("Kafka event publishing is not configured").
			Mark(ierr.ErrValidation)
	}

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Kafka.Brokers,
			Marshaler:             kafka.NewWithPartitioningMarshaler(orgPartitionKey),
			OverwriteSaramaConfig: GetSaramaConfig(cfg),
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not connect to kafka").
			Mark(ierr.ErrStoreUnavailable)
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger,
	}, nil
}

func orgPartitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get("org_id"), nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.publisher.Publish(topic, msg)
}

func (p *Publisher) Close() error {
	return p.publisher.Close()
}
