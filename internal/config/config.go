// Package config собирает настройки сервиса из флагов и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Addr     string
	LogLevel string

	Store   string
	DSN     string
	MongoDB string
	Seed    bool

	RedisAddr      string
	IdempotencyTTL time.Duration

	KafkaBrokers string
	KafkaTopic   string

	AdminToken string

	StoreTimeout    time.Duration
	ConflictRetries int
	Compensate      bool

	BreakerFailures uint
	BreakerTimeout  time.Duration
}

func env(name string) []string { return []string{"CHECKNGO_" + name} }

// StoreFlags нужны и serve, и migrate
func StoreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error", EnvVars: env("LOG_LEVEL")},
		&cli.StringFlag{Name: "store", Value: StoreMemory, Usage: "product store: memory|sqlite|postgres|mongo", EnvVars: env("STORE")},
		&cli.StringFlag{Name: "dsn", Usage: "sqlite file, postgres DSN or mongodb URI", EnvVars: env("DSN")},
		&cli.StringFlag{Name: "mongo-db", Value: "checkngo", Usage: "mongo database name", EnvVars: env("MONGO_DB")},
		&cli.BoolFlag{Name: "seed", Usage: "load demo stores and products into an empty catalog", EnvVars: env("SEED")},
	}
}

func ServeFlags() []cli.Flag {
	return append(StoreFlags(),
		&cli.StringFlag{Name: "addr", Value: ":9091", Usage: "HTTP listen address", EnvVars: env("ADDR")},
		&cli.StringFlag{Name: "redis-addr", Usage: "redis for idempotency keys; in-memory when empty", EnvVars: env("REDIS_ADDR")},
		&cli.DurationFlag{Name: "idempotency-ttl", Value: 24 * time.Hour, Usage: "how long an Idempotency-Key is remembered", EnvVars: env("IDEMPOTENCY_TTL")},
		&cli.StringFlag{Name: "kafka-brokers", Usage: "comma separated brokers; events disabled when empty", EnvVars: env("KAFKA_BROKERS")},
		&cli.StringFlag{Name: "kafka-topic", Value: "checkngo.bills", Usage: "topic for bill.issued events", EnvVars: env("KAFKA_TOPIC")},
		&cli.StringFlag{Name: "admin-token", Usage: "bearer token for admin routes; auth disabled when empty", EnvVars: env("ADMIN_TOKEN")},
		&cli.DurationFlag{Name: "store-timeout", Value: 3 * time.Second, Usage: "timeout of a single product store call", EnvVars: env("STORE_TIMEOUT")},
		&cli.IntFlag{Name: "conflict-retries", Value: 3, Usage: "re-read and retry a stock write this many times on conflict", EnvVars: env("CONFLICT_RETRIES")},
		&cli.BoolFlag{Name: "compensate", Usage: "restore already decremented lines when a checkout aborts", EnvVars: env("COMPENSATE")},
		&cli.UintFlag{Name: "breaker-failures", Value: 5, Usage: "consecutive store failures that open the circuit", EnvVars: env("BREAKER_FAILURES")},
		&cli.DurationFlag{Name: "breaker-timeout", Value: 10 * time.Second, Usage: "how long the circuit stays open", EnvVars: env("BREAKER_TIMEOUT")},
	)
}

// FromContext читает флаги; незаданные флаги команды дают нулевые значения
func FromContext(c *cli.Context) Config {
	return Config{
		Addr:            c.String("addr"),
		LogLevel:        c.String("log-level"),
		Store:           strings.ToLower(c.String("store")),
		DSN:             c.String("dsn"),
		MongoDB:         c.String("mongo-db"),
		Seed:            c.Bool("seed"),
		RedisAddr:       c.String("redis-addr"),
		IdempotencyTTL:  c.Duration("idempotency-ttl"),
		KafkaBrokers:    c.String("kafka-brokers"),
		KafkaTopic:      c.String("kafka-topic"),
		AdminToken:      c.String("admin-token"),
		StoreTimeout:    c.Duration("store-timeout"),
		ConflictRetries: c.Int("conflict-retries"),
		Compensate:      c.Bool("compensate"),
		BreakerFailures: c.Uint("breaker-failures"),
		BreakerTimeout:  c.Duration("breaker-timeout"),
	}
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres, StoreMongo:
		if c.DSN == "" {
			return fmt.Errorf("%w: --dsn is required for store %q", ErrInvalidConfig, c.Store)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	if c.Store == StoreMongo && c.MongoDB == "" {
		return fmt.Errorf("%w: --mongo-db is required for mongo", ErrInvalidConfig)
	}
	if c.ConflictRetries < 0 {
		return fmt.Errorf("%w: conflict-retries must be >= 0", ErrInvalidConfig)
	}
	if c.StoreTimeout < 0 || c.BreakerTimeout < 0 || c.IdempotencyTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}
