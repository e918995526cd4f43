package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Attempts   AttemptConfig
	Catalog    CatalogConfig
	Kafka      KafkaConfig
	Settlement SettlementConfig

	Storage    string `env:"APP_STORAGE,default=postgres"`
	SecretKey  string `env:"APP_SECRET_KEY,default=ChangeMe"`
	LogVerbose bool   `env:"APP_VERBOSE,default=0"`
	LogPretty  bool   `env:"APP_PRETTY,default=0"`
}

type ServerConfig struct {
	Listen       string        `env:"RUN_ADDRESS,default=localhost:8088"`
	TimeoutRead  time.Duration `env:"SERVER_TIMEOUT_READ,default=5s"`
	TimeoutWrite time.Duration `env:"SERVER_TIMEOUT_WRITE,default=10s"`
	TimeoutIdle  time.Duration `env:"SERVER_TIMEOUT_IDLE,default=1m"`
}

type DatabaseConfig struct {
	DSN string `env:"DATABASE_URI,default="`
}

// RedisConfig is used by the attempt limiter; an empty address selects the in-process limiter.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default="`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
}

type AttemptConfig struct {
	Max    int           `env:"ATTEMPT_MAX,default=5"`
	Window time.Duration `env:"ATTEMPT_WINDOW,default=15m"`
}

// CatalogConfig points at the listings catalog; an empty address keeps listings in process.
type CatalogConfig struct {
	RemoteURL string `env:"CATALOG_ADDRESS,default="`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS,default="`
	Topic   string   `env:"KAFKA_TOPIC,default=camptrade.transactions"`
}

type SettlementConfig struct {
	RetryInterval time.Duration `env:"SETTLEMENT_RETRY_INTERVAL,default=30s"`
}

// New config constructor
func New() Config {
	return Config{}
}

// Load config from environment and from .env file (if exists) and from flags
func (cfg *Config) Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env load: %w", err)
	}

	if err := envdecode.StrictDecode(cfg); err != nil {
		return fmt.Errorf("env decode: %w", err)
	}

	fset := pflag.NewFlagSet("camptrade", pflag.ContinueOnError)
	cfg.bindFlags(fset)
	if err := fset.Parse(flagArgs()); err != nil {
		return fmt.Errorf("flags parse: %w", err)
	}

	return cfg.Validate()
}

func (cfg *Config) bindFlags(fset *pflag.FlagSet) {
	fset.StringVarP(&cfg.Server.Listen, "listen-addr", "a", cfg.Server.Listen, "Server address to listen on")
	fset.StringVarP(&cfg.Database.DSN, "database-uri", "d", cfg.Database.DSN, "Database URI")
	fset.StringVarP(&cfg.Storage, "storage", "s", cfg.Storage, "Storage backend (postgres|memory)")
	fset.StringVarP(&cfg.Catalog.RemoteURL, "catalog-url", "c", cfg.Catalog.RemoteURL, "Catalog base URL")
	fset.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address for attempt counters")
	fset.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "Kafka brokers for completion events")
	fset.BoolVarP(&cfg.LogVerbose, "verbose", "v", cfg.LogVerbose, "Verbose output")
	fset.BoolVarP(&cfg.LogPretty, "pretty", "p", cfg.LogPretty, "Pretty output")
}

func (cfg *Config) Validate() error {
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.Database.DSN == "" {
			return errors.New("DATABASE_URI is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	if cfg.Attempts.Max < 0 {
		return errors.New("ATTEMPT_MAX must not be negative")
	}
	if cfg.Settlement.RetryInterval <= 0 {
		return errors.New("SETTLEMENT_RETRY_INTERVAL must be positive")
	}

	brokers := cfg.Kafka.Brokers[:0]
	for _, b := range cfg.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.Kafka.Brokers = brokers

	return nil
}
