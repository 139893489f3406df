package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsAMQP  = "amqp"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"http://127.0.0.1:3000"`

	UpstreamBaseURL        string `env:"UPSTREAM_BASE_URL" envDefault:"http://127.0.0.1:8081/api"`
	UpstreamTimeoutSeconds int    `env:"UPSTREAM_TIMEOUT_SECONDS" envDefault:"10"`

	AuthSecret            string `env:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `env:"ACCESS_TOKEN_TTL_MINUTES" envDefault:"480"`
	ManagerPIN            string `env:"MANAGER_PIN"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/passbook.db"`

	RedisAddr             string `env:"REDIS_ADDR"`
	RedisPassword         string `env:"REDIS_PASSWORD"`
	RedisDB               int    `env:"REDIS_DB" envDefault:"0"`
	LedgerCacheTTLSeconds int    `env:"LEDGER_CACHE_TTL_SECONDS" envDefault:"30"`
	LedgerCacheCapacity   int    `env:"LEDGER_CACHE_CAPACITY" envDefault:"256"`

	EventsDriver string   `env:"EVENTS_DRIVER" envDefault:"none"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"passbook.ledger"`
	AMQPURL      string   `env:"AMQP_URL"`
	AMQPExchange string   `env:"AMQP_EXCHANGE" envDefault:"passbook.ledger"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Timezone  string `env:"TIMEZONE" envDefault:"Local"`

	LowStockThreshold   int    `env:"LOW_STOCK_THRESHOLD" envDefault:"2"`
	PaymentToleranceRaw string `env:"PAYMENT_TOLERANCE" envDefault:"0.01"`

	// Resolved by Load.
	Location         *time.Location  `env:"-"`
	PaymentTolerance decimal.Decimal `env:"-"`
}

// Load reads the environment. Secrets are never given defaults; main refuses
// to start without them.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	cfg.ManagerPIN = strings.TrimSpace(cfg.ManagerPIN)
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.EventsDriver = strings.ToLower(strings.TrimSpace(cfg.EventsDriver))
	cfg.UpstreamBaseURL = strings.TrimRight(strings.TrimSpace(cfg.UpstreamBaseURL), "/")

	if cfg.UpstreamTimeoutSeconds < 1 {
		cfg.UpstreamTimeoutSeconds = 10
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.LedgerCacheTTLSeconds < 0 {
		cfg.LedgerCacheTTLSeconds = 0
	}
	if cfg.LowStockThreshold < 0 {
		return Config{}, fmt.Errorf("config.Load: LOW_STOCK_THRESHOLD must not be negative")
	}

	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config.Load: DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("config.Load: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	switch cfg.EventsDriver {
	case "", EventsNone:
		cfg.EventsDriver = EventsNone
	case EventsKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("config.Load: KAFKA_BROKERS is required when EVENTS_DRIVER=kafka")
		}
	case EventsAMQP:
		if cfg.AMQPURL == "" {
			return Config{}, fmt.Errorf("config.Load: AMQP_URL is required when EVENTS_DRIVER=amqp")
		}
	default:
		return Config{}, fmt.Errorf("config.Load: unknown EVENTS_DRIVER %q", cfg.EventsDriver)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: TIMEZONE: %w", err)
	}
	cfg.Location = loc

	tolerance, err := decimal.NewFromString(strings.TrimSpace(cfg.PaymentToleranceRaw))
	if err != nil || tolerance.IsNegative() {
		return Config{}, fmt.Errorf("config.Load: PAYMENT_TOLERANCE must be a non-negative decimal, got %q", cfg.PaymentToleranceRaw)
	}
	cfg.PaymentTolerance = tolerance

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

func (c Config) LedgerCacheTTL() time.Duration {
	return time.Duration(c.LedgerCacheTTLSeconds) * time.Second
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
