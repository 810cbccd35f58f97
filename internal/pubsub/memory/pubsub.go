package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/pubsub"
)

var _ pubsub.Publisher = (*PubSub)(nil)

// PubSub is the in-process transport used by local deployments. Messages
// published while nobody is subscribed are dropped.
type PubSub struct {
	channel *gochannel.GoChannel
	logger  *logger.Logger
}

func NewPubSub(logger *logger.Logger) *PubSub {
	return &PubSub{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 100,
		}, watermill.NopLogger{}),
		logger: logger,
	}
}

func (p *PubSub) Publish(ctx context.Context, topic string, msg *message.Message) error {
	msg.SetContext(ctx)
	return p.channel.Publish(topic, msg)
}

// Subscribe streams the messages published to topic from now on
func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.channel.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.channel.Close()
}
