package cmd

import (
	"time"

	"ordering/internal/adapters/out/postgres"
	"ordering/internal/core/application/integrationevents"
	"ordering/internal/core/application/usecases/commands"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable, e.g. ORDERING_HTTP_PORT.
const EnvPrefix = "ordering"

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"ordering"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	KafkaConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"ordering"`
	KafkaInboundTopics []string `envconfig:"KAFKA_INBOUND_TOPICS" default:"inbound-stock-confirmation,inbound-payment-result,inbound-grace-period"`

	TopicAwaitingValidation string `envconfig:"TOPIC_AWAITING_VALIDATION" default:"order-awaiting-validation"`
	TopicStockConfirmed     string `envconfig:"TOPIC_STOCK_CONFIRMED" default:"order-stock-confirmed"`
	TopicPaid               string `envconfig:"TOPIC_PAID" default:"order-paid"`
	TopicShipped            string `envconfig:"TOPIC_SHIPPED" default:"order-shipped"`
	TopicCancelled          string `envconfig:"TOPIC_CANCELLED" default:"order-cancelled"`

	// RedisAddr enables the processed-event cache when set.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisCacheTTL time.Duration `envconfig:"REDIS_CACHE_TTL" default:"24h"`

	CommandTimeout  time.Duration `envconfig:"COMMAND_TIMEOUT" default:"30s"`
	ValidationDelay time.Duration `envconfig:"VALIDATION_DELAY" default:"0s"`

	RelaySchedule       string        `envconfig:"RELAY_SCHEDULE" default:"* * * * * *"`
	RelayBatchSize      int           `envconfig:"RELAY_BATCH_SIZE" default:"100"`
	RelayWorkers        int           `envconfig:"RELAY_WORKERS" default:"8"`
	RelayLease          time.Duration `envconfig:"RELAY_LEASE" default:"30s"`
	RelayMaxAttempts    int           `envconfig:"RELAY_MAX_ATTEMPTS" default:"10"`
	RelayPublishTimeout time.Duration `envconfig:"RELAY_PUBLISH_TIMEOUT" default:"5s"`
	RelayBackoffInitial time.Duration `envconfig:"RELAY_BACKOFF_INITIAL" default:"1s"`
	RelayBackoffMax     time.Duration `envconfig:"RELAY_BACKOFF_MAX" default:"5m"`
	RelayBackoffJitter  float64       `envconfig:"RELAY_BACKOFF_JITTER" default:"0.2"`

	CleanupSchedule         string        `envconfig:"CLEANUP_SCHEDULE" default:"0 0 3 * * *"`
	OutboxRetention         time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
	ProcessedEventRetention time.Duration `envconfig:"PROCESSED_EVENT_RETENTION" default:"720h"`
}

// LoadConfig reads the ORDERING_* environment.
func LoadConfig() (Config, error) {
	var config Config
	err := envconfig.Process(EnvPrefix, &config)
	return config, err
}

func (c Config) Topics() integrationevents.Topics {
	return integrationevents.Topics{
		AwaitingValidation: c.TopicAwaitingValidation,
		StockConfirmed:     c.TopicStockConfirmed,
		Paid:               c.TopicPaid,
		Shipped:            c.TopicShipped,
		Cancelled:          c.TopicCancelled,
	}
}

func (c Config) RelayConfig(owner string) commands.RelayConfig {
	return commands.RelayConfig{
		Owner:          owner,
		BatchSize:      c.RelayBatchSize,
		Workers:        c.RelayWorkers,
		Lease:          c.RelayLease,
		MaxAttempts:    c.RelayMaxAttempts,
		PublishTimeout: c.RelayPublishTimeout,
		BackoffInitial: c.RelayBackoffInitial,
		BackoffMax:     c.RelayBackoffMax,
		BackoffJitter:  c.RelayBackoffJitter,
	}
}

func (c Config) DSN() string {
	return postgres.DSN(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func (c Config) MigrationURL() string {
	return postgres.URL(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}
