package types

// PublishDestination determines where to publish events
type PublishDestination string

const (
	PublishToMemory PublishDestination = "memory"
	PublishToKafka  PublishDestination = "kafka"
)

// PubSubType defines the type of pubsub implementation
type PubSubType string

const (
	// MemoryPubSub uses in-memory implementation
	MemoryPubSub PubSubType = "memory"

	// KafkaPubSub uses Kafka implementation
	KafkaPubSub PubSubType = "kafka"
)
