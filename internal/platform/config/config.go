// Package config loads process configuration. Values come from an optional
// YAML file named by RANCHDESK_CONFIG; environment variables override the file.
// An empty backend setting (Postgres DSN, MinIO endpoint, Kafka brokers, Redis
// URL) selects the in-memory implementation or disables the feature.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   Server         `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Minio    MinioConfig    `yaml:"minio"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Contract ContractConfig `yaml:"contract"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	Migrate      bool   `yaml:"migrate"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AuditStream  string        `yaml:"audit_stream"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	DLQTopic     string        `yaml:"dlq_topic"`
	GroupID      string        `yaml:"group_id"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type ContractConfig struct {
	// SignatureValidity bounds how long a signature stays VALID. Zero means
	// signatures never expire.
	SignatureValidity time.Duration `yaml:"signature_validity"`
	GenerateAttempts  int           `yaml:"generate_attempts"`
	TxTimeout         time.Duration `yaml:"tx_timeout"`
	UnsignedRecheck   bool          `yaml:"unsigned_recheck"`
}

// Defaults returns the configuration used for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			JWTSigningKey:   "dev-secret-key-change-in-production",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Postgres: PostgresConfig{
			MaxOpenConns: 20,
			Migrate:      true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			AuditStream:  "ranchdesk:audit",
		},
		Minio: MinioConfig{Bucket: "contracts"},
		Kafka: KafkaConfig{
			Topic:        "contracts.requested",
			DLQTopic:     "contracts.requested.dlq",
			GroupID:      "ranchdesk-contract-worker",
			MaxAttempts:  5,
			RetryBackoff: time.Second,
		},
		Contract: ContractConfig{
			GenerateAttempts: 3,
			TxTimeout:        5 * time.Second,
		},
	}
}

// Load reads the optional YAML file, then applies environment overrides.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("RANCHDESK_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a config from defaults and environment variables only.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	str("RANCHDESK_ADDR", &cfg.Server.Addr)
	str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	str("DATABASE_URL", &cfg.Postgres.DSN)
	integer("DATABASE_MAX_OPEN_CONNS", &cfg.Postgres.MaxOpenConns)
	boolean("DATABASE_MIGRATE", &cfg.Postgres.Migrate)

	str("REDIS_URL", &cfg.Redis.URL)
	integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	str("AUDIT_REDIS_STREAM", &cfg.Redis.AuditStream)

	str("MINIO_ENDPOINT", &cfg.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &cfg.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &cfg.Minio.SecretKey)
	str("MINIO_BUCKET", &cfg.Minio.Bucket)
	boolean("MINIO_USE_SSL", &cfg.Minio.UseSSL)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	str("KAFKA_CONTRACT_TOPIC", &cfg.Kafka.Topic)
	str("KAFKA_CONTRACT_DLQ_TOPIC", &cfg.Kafka.DLQTopic)
	str("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	integer("KAFKA_MAX_ATTEMPTS", &cfg.Kafka.MaxAttempts)
	duration("KAFKA_RETRY_BACKOFF", &cfg.Kafka.RetryBackoff)

	duration("CONTRACT_SIGNATURE_VALIDITY", &cfg.Contract.SignatureValidity)
	integer("CONTRACT_GENERATE_ATTEMPTS", &cfg.Contract.GenerateAttempts)
	duration("CONTRACT_TX_TIMEOUT", &cfg.Contract.TxTimeout)
	boolean("CONTRACT_UNSIGNED_RECHECK", &cfg.Contract.UnsignedRecheck)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("server addr is required")
	case c.Server.JWTSigningKey == "":
		return fmt.Errorf("jwt signing key is required")
	case c.Contract.SignatureValidity < 0:
		return fmt.Errorf("contract signature validity must not be negative")
	case c.Contract.GenerateAttempts < 1:
		return fmt.Errorf("contract generate attempts must be at least 1")
	case len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "":
		return fmt.Errorf("kafka topic is required when brokers are set")
	case len(c.Kafka.Brokers) > 0 && c.Kafka.MaxAttempts < 1:
		return fmt.Errorf("kafka max attempts must be at least 1")
	case c.Minio.Endpoint != "" && c.Minio.Bucket == "":
		return fmt.Errorf("minio bucket is required when endpoint is set")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
