// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string

	Ledger LedgerConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	// PostgresURL enables the Postgres event outbox; empty keeps events in
	// memory.
	PostgresURL string
}

// LedgerConfig holds the issuance parameters.
type LedgerConfig struct {
	Address        string
	Symbol         string
	Name           string
	Decimals       uint8
	ContractAdmin  string
	ReserveAdmin   string
	InitialSupply  uint64
	MaxTotalSupply uint64
}

// RedisConfig configures the historical-query cache. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox drain. Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("TESSERA_ADDR", ":8080"),
		LogLevel:      getenv("TESSERA_LOG_LEVEL", "info"),
		JWTSigningKey: getenv("TESSERA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("TESSERA_POSTGRES_URL"),
		Ledger: LedgerConfig{
			Address:        getenv("TESSERA_LEDGER_ADDRESS", "ledger"),
			Symbol:         getenv("TESSERA_SYMBOL", "XYZ"),
			Name:           getenv("TESSERA_NAME", "Ex Why Zee"),
			Decimals:       uint8(getuint("TESSERA_DECIMALS", 6)),
			ContractAdmin:  os.Getenv("TESSERA_CONTRACT_ADMIN"),
			ReserveAdmin:   os.Getenv("TESSERA_RESERVE_ADMIN"),
			InitialSupply:  getuint("TESSERA_INITIAL_SUPPLY", 0),
			MaxTotalSupply: getuint("TESSERA_MAX_TOTAL_SUPPLY", 1_000_000),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("TESSERA_REDIS_URL"),
			PoolSize:     int(getuint("TESSERA_REDIS_POOL_SIZE", 10)),
			MinIdleConns: int(getuint("TESSERA_REDIS_MIN_IDLE", 2)),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: getenv("TESSERA_KAFKA_TOPIC", "tessera.ledger.events"),
		},
	}
	if brokers := os.Getenv("TESSERA_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getuint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
