// Package pubsub carries ledger, ownership and job events out of the process.
// Nothing inside adforge consumes them; downstream analytics and the dashboard
// notification service subscribe on the broker side.
package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Publisher sends event messages to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}
