package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	// StorageDriverMemory — in-memory хранилище для разработки и тестов.
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — основное хранилище.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто — работаем без Kafka.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает значения для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  5,
		OutboxRetryDelay:   200 * time.Millisecond,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// LoadConfig читает переменные окружения поверх значений по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("STOREFRONT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STOREFRONT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("STOREFRONT_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
		// Заданный DSN без явного выбора драйвера означает postgres.
		cfg.StorageDriver = StorageDriverPostgres
	}
	if v := os.Getenv("STOREFRONT_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("STOREFRONT_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")

	return cfg
}

// Validate проверяет согласованность конфигурации перед запуском.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("storage driver %q requires a postgres DSN", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	return nil
}
