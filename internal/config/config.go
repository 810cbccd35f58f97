package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/adforge/adforge/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Redis      RedisConfig
	Kafka      KafkaConfig
	Event      EventConfig
	Ledger     LedgerConfig
	Dispatch   DispatchConfig `validate:"required"`
	Provider   ProviderConfig `validate:"required"`
	Sentry     SentryConfig
	Pyroscope  PyroscopeConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	Provider types.AuthProvider `mapstructure:"provider" validate:"required"`
	Secret   string             `mapstructure:"secret"`
	Supabase SupabaseConfig     `mapstructure:"supabase"`
}

type SupabaseConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	ServiceKey string `mapstructure:"service_key"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ClientID      string               `mapstructure:"client_id"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

// EventConfig holds configuration for domain event publishing
type EventConfig struct {
	PublishDestination types.PublishDestination `mapstructure:"publish_destination"`
	TopicJobs          string                   `mapstructure:"topic_jobs"`
	TopicAccounts      string                   `mapstructure:"topic_accounts"`
}

type LedgerConfig struct {
	BalanceCacheEnabled bool          `mapstructure:"balance_cache_enabled"`
	BalanceCacheTTL     time.Duration `mapstructure:"balance_cache_ttl"`
	// SeedCredits are granted to a newly created organization; zero disables the grant
	SeedCredits int64 `mapstructure:"seed_credits" validate:"gte=0"`
}

type DispatchConfig struct {
	LockBackend types.LockBackend `mapstructure:"lock_backend" validate:"required,oneof=memory redis"`
	// LockWait bounds how long a launch waits for another launch of the same job
	LockWait time.Duration `mapstructure:"lock_wait"`
	// LockTTL must exceed Provider.Timeout plus RefundMaxElapsed, the longest a
	// charged launch holds the lock
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// MaxWait is how long a job may stay running before it is failed as timed out
	MaxWait              time.Duration `mapstructure:"max_wait"`
	ReconcileInterval    time.Duration `mapstructure:"reconcile_interval"`
	ReconcileBatch       int           `mapstructure:"reconcile_batch"`
	ReconcileConcurrency int           `mapstructure:"reconcile_concurrency"`
	RefundMaxElapsed     time.Duration `mapstructure:"refund_max_elapsed"`
}

type ProviderConfig struct {
	Default       types.ProviderName `mapstructure:"default"`
	Timeout       time.Duration      `mapstructure:"timeout"`
	RatePerSecond float64            `mapstructure:"rate_per_second"`
	Burst         int                `mapstructure:"burst"`
	Veo3          Veo3Config         `mapstructure:"veo3"`
}

type Veo3Config struct {
	ProjectID    string `mapstructure:"project_id"`
	Location     string `mapstructure:"location"`
	Model        string `mapstructure:"model"`
	Endpoint     string `mapstructure:"endpoint"`
	OutputGCSURI string `mapstructure:"output_gcs_uri"`
	SampleCount  int    `mapstructure:"sample_count"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type PyroscopeConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	ServerAddress   string   `mapstructure:"server_address"`
	ApplicationName string   `mapstructure:"application_name"`
	BasicAuthUser   string   `mapstructure:"basic_auth_user"`
	BasicAuthPass   string   `mapstructure:"basic_auth_password"`
	SampleRate      uint32   `mapstructure:"sample_rate"`
	DisableGCRuns   bool     `mapstructure:"disable_gc_runs"`
	ProfileTypes    []string `mapstructure:"profile_types"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/adforge")

	v.SetEnvPrefix("ADFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// ALLOWED_ORIGINS arrives as a comma separated string from the environment
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = splitAndTrim(config.Server.AllowedOrigins[0])
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("auth.provider", d.Auth.Provider)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("event.publish_destination", d.Event.PublishDestination)
	v.SetDefault("event.topic_jobs", d.Event.TopicJobs)
	v.SetDefault("event.topic_accounts", d.Event.TopicAccounts)
	v.SetDefault("ledger.balance_cache_ttl", d.Ledger.BalanceCacheTTL)
	v.SetDefault("ledger.seed_credits", d.Ledger.SeedCredits)
	v.SetDefault("dispatch.lock_backend", d.Dispatch.LockBackend)
	v.SetDefault("dispatch.lock_wait", d.Dispatch.LockWait)
	v.SetDefault("dispatch.lock_ttl", d.Dispatch.LockTTL)
	v.SetDefault("dispatch.max_wait", d.Dispatch.MaxWait)
	v.SetDefault("dispatch.reconcile_interval", d.Dispatch.ReconcileInterval)
	v.SetDefault("dispatch.reconcile_batch", d.Dispatch.ReconcileBatch)
	v.SetDefault("dispatch.reconcile_concurrency", d.Dispatch.ReconcileConcurrency)
	v.SetDefault("dispatch.refund_max_elapsed", d.Dispatch.RefundMaxElapsed)
	v.SetDefault("provider.default", d.Provider.Default)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.rate_per_second", d.Provider.RatePerSecond)
	v.SetDefault("provider.burst", d.Provider.Burst)
	v.SetDefault("provider.veo3.location", d.Provider.Veo3.Location)
	v.SetDefault("provider.veo3.model", d.Provider.Veo3.Model)
	v.SetDefault("provider.veo3.sample_count", d.Provider.Veo3.SampleCount)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if hold := c.Provider.Timeout + c.Dispatch.RefundMaxElapsed; c.Dispatch.LockTTL > 0 && hold > 0 && c.Dispatch.LockTTL <= hold {
		return fmt.Errorf("dispatch.lock_ttl (%s) must exceed provider.timeout (%s) plus dispatch.refund_max_elapsed (%s)",
			c.Dispatch.LockTTL, c.Provider.Timeout, c.Dispatch.RefundMaxElapsed)
	}
	if c.Provider.Default == types.ProviderVeo3 && c.Provider.Veo3.ProjectID == "" {
		return fmt.Errorf("provider.veo3.project_id is required when provider.default is veo3")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Auth:       AuthConfig{Provider: types.AuthProviderJWT},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
		},
		Kafka: KafkaConfig{ClientID: "adforge"},
		Event: EventConfig{
			PublishDestination: types.PublishToMemory,
			TopicJobs:          "content_job_events",
			TopicAccounts:      "account_events",
		},
		Ledger: LedgerConfig{
			BalanceCacheTTL: 30 * time.Second,
			SeedCredits:     100,
		},
		Dispatch: DispatchConfig{
			LockBackend:          types.LockBackendMemory,
			LockWait:             5 * time.Second,
			LockTTL:              4 * time.Minute,
			MaxWait:              30 * time.Minute,
			ReconcileInterval:    30 * time.Second,
			ReconcileBatch:       50,
			ReconcileConcurrency: 4,
			RefundMaxElapsed:     time.Minute,
		},
		Provider: ProviderConfig{
			Default:       types.ProviderStatic,
			Timeout:       2 * time.Minute,
			RatePerSecond: 1,
			Burst:         2,
			Veo3: Veo3Config{
				Location:    "us-central1",
				Model:       "veo-3.0-generate-preview",
				SampleCount: 1,
			},
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
