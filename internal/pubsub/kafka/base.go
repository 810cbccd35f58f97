package kafka

import (
	"crypto/tls"
	"time"

	"github.com/Shopify/sarama"
	"github.com/adforge/adforge/internal/config"
)

// GetSaramaConfig is the producer configuration for event publishing. The
// producer is idempotent so a retried send cannot duplicate a ledger event.
func GetSaramaConfig(cfg *config.Configuration) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	sc.ClientID = cfg.Kafka.ClientID

	// the sync publisher waits for the broker acknowledgement
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 250 * time.Millisecond
	sc.Net.MaxOpenRequests = 1

	if cfg.Kafka.TLS || cfg.Kafka.UseSASL {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.Kafka.UseSASL {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Handshake = true
		sc.Net.SASL.Mechanism = cfg.Kafka.SASLMechanism
		sc.Net.SASL.User = cfg.Kafka.SASLUser
		sc.Net.SASL.Password = cfg.Kafka.SASLPassword
	}

	return sc
}
