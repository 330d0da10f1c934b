package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Service    Service    `envPrefix:"SERVICE_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	Postgres   Postgres   `envPrefix:"POSTGRES_"`
	ClickHouse ClickHouse `envPrefix:"CLICKHOUSE_"`
	SQS        SQS        `envPrefix:"SQS_"`
	Streams    Streams    `envPrefix:"STREAM_"`
	Consumer   Consumer   `envPrefix:"CONSUMER_"`
	Vendor     Vendor     `envPrefix:"VENDOR_"`
	Tracing    Tracing    `envPrefix:"OTEL_"`
}

type Service struct {
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
	APIPort      string `env:"API_PORT" envDefault:"5050"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	ConsumerName string `env:"CONSUMER_NAME" envDefault:"worker-1"`
}

type Redis struct {
	URL          string        `env:"URL" envDefault:"redis://localhost:6379/0"`
	StreamMaxLen int64         `env:"STREAM_MAX_LEN" envDefault:"0"`
	ReclaimIdle  time.Duration `env:"RECLAIM_IDLE" envDefault:"30s"`
	GroupStartID string        `env:"GROUP_START_ID" envDefault:"0"`
}

type Postgres struct {
	DSN      string `env:"DSN,required,notEmpty"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
}

// ClickHouse configures the optional delivery-receipt archive. The archive is
// disabled when Host is empty.
type ClickHouse struct {
	Host            string `env:"HOST"`
	Port            string `env:"PORT" envDefault:"9000"`
	Database        string `env:"DB" envDefault:"default"`
	User            string `env:"USER" envDefault:"default"`
	Password        string `env:"PASSWORD"`
	UseTLS          bool   `env:"USE_TLS" envDefault:"false"`
	MaxOpenConns    int    `env:"MAX_OPEN_CONNS" envDefault:"5"`
	MaxIdleConns    int    `env:"MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxLifetime int    `env:"CONN_MAX_LIFETIME_SEC" envDefault:"3600"`
}

// Enabled reports whether the archive is configured
func (c ClickHouse) Enabled() bool {
	return c.Host != ""
}

// SQS configures the SQS dead-letter sink
type SQS struct {
	Endpoint string `env:"ENDPOINT"`
	QueueURL string `env:"QUEUE_URL"`
	Region   string `env:"REGION" envDefault:"us-east-1"`
}

type Streams struct {
	Customers      string `env:"CUSTOMERS" envDefault:"stream:customers"`
	Orders         string `env:"ORDERS" envDefault:"stream:orders"`
	Deliveries     string `env:"DELIVERIES" envDefault:"stream:deliveries"`
	Receipts       string `env:"RECEIPTS" envDefault:"stream:receipts"`
	CustomersGroup string `env:"CUSTOMERS_GROUP" envDefault:"cgCustomers"`
	OrdersGroup    string `env:"ORDERS_GROUP" envDefault:"cgOrders"`
	DeliveryGroup  string `env:"DELIVERIES_GROUP" envDefault:"cgSend"`
	ReceiptsGroup  string `env:"RECEIPTS_GROUP" envDefault:"cgRec"`
}

type Consumer struct {
	BatchSize        int64         `env:"BATCH_SIZE" envDefault:"20"`
	ReceiptBatchSize int64         `env:"RECEIPT_BATCH_SIZE" envDefault:"50"`
	BlockTimeout     time.Duration `env:"BLOCK_TIMEOUT" envDefault:"5s"`
	Backoff          time.Duration `env:"BACKOFF" envDefault:"1s"`
	MaxDeliveries    int64         `env:"MAX_DELIVERIES" envDefault:"10"`
	DeadLetterSink   string        `env:"DEAD_LETTER_SINK" envDefault:"stream"`
	HealthCheckPort  string        `env:"HEALTH_CHECK_PORT" envDefault:"8081"`
}

type Vendor struct {
	MinDelay    time.Duration `env:"MIN_DELAY" envDefault:"100ms"`
	MaxDelay    time.Duration `env:"MAX_DELAY" envDefault:"900ms"`
	FailureRate float64       `env:"FAILURE_RATE" envDefault:"0.1"`
}

// Tracing configures the OTLP exporter. Tracing is a no-op when Endpoint is empty.
type Tracing struct {
	Endpoint    string `env:"EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"xeno-backend"`
}

// Load reads an optional .env file and parses the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Vendor.MinDelay > c.Vendor.MaxDelay {
		return fmt.Errorf("VENDOR_MIN_DELAY (%s) must not exceed VENDOR_MAX_DELAY (%s)", c.Vendor.MinDelay, c.Vendor.MaxDelay)
	}
	if c.Vendor.FailureRate < 0 || c.Vendor.FailureRate > 1 {
		return fmt.Errorf("VENDOR_FAILURE_RATE must be within [0,1], got %v", c.Vendor.FailureRate)
	}
	switch c.Consumer.DeadLetterSink {
	case "stream":
	case "sqs":
		if c.SQS.QueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required when CONSUMER_DEAD_LETTER_SINK=sqs")
		}
	default:
		return fmt.Errorf("unsupported CONSUMER_DEAD_LETTER_SINK %q (supported: stream, sqs)", c.Consumer.DeadLetterSink)
	}
	if c.Consumer.MaxDeliveries < 1 {
		return fmt.Errorf("CONSUMER_MAX_DELIVERIES must be at least 1")
	}
	return nil
}
