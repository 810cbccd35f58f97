package kafka

import (
	"testing"

	"github.com/Shopify/sarama"
	"github.com/adforge/adforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSaramaConfig(t *testing.T) {
	cfg := config.GetDefaultConfig()
	sc := GetSaramaConfig(cfg)
	require.NoError(t, sc.Validate())
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.False(t, sc.Net.TLS.Enable)

	cfg.Kafka.UseSASL = true
	cfg.Kafka.SASLMechanism = sarama.SASLTypePlaintext
	cfg.Kafka.SASLUser = "adforge"
	cfg.Kafka.SASLPassword = "secret"
	sc = GetSaramaConfig(cfg)
	require.NoError(t, sc.Validate())
	assert.True(t, sc.Net.SASL.Enable)
	assert.True(t, sc.Net.TLS.Enable)
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(config.GetDefaultConfig(), nil)
	assert.Error(t, err)
}
