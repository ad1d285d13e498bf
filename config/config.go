package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" envDefault:"sorrel-api" validate:"required"`
	Port                          int      `env:"PORT" envDefault:"3004" validate:"min=1,max=65535"`
	LogLevel                      string   `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" envDefault:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" envDefault:"30"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" envDefault:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" envDefault:"10"`
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" envDefault:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" envDefault:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" envDefault:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" envDefault:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" envDefault:"5" validate:"min=1"`

	// Document store
	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"postgres" validate:"oneof=postgres http memory"`
	StoreHTTPBaseURL string        `env:"STORE_HTTP_BASE_URL" envDefault:"" validate:"required_if=StoreDriver http"`
	StoreHTTPToken   string        `env:"STORE_HTTP_TOKEN" envDefault:""`
	StoreHTTPTimeout time.Duration `env:"STORE_HTTP_TIMEOUT" envDefault:"30s"`
	StorePageSize    int           `env:"STORE_PAGE_SIZE" envDefault:"100" validate:"min=1,max=1000"`
	StoreSeedFile    string        `env:"STORE_SEED_FILE" envDefault:""`

	// PostgreSQL (documents and run history)
	DatabaseHost                  string        `env:"DB_HOST" envDefault:""`
	DatabasePort                  string        `env:"DB_PORT" envDefault:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" envDefault:""`
	DatabasePassword              string        `env:"DB_PASSWORD" envDefault:""`
	DatabaseName                  string        `env:"DB_NAME" envDefault:"sorrel"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" envDefault:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" envDefault:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" envDefault:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" envDefault:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" envDefault:"true"`

	// Reconciliation
	Collection         string        `env:"COLLECTION" envDefault:""`
	PolicyFile         string        `env:"POLICY_FILE" envDefault:""`
	ChangeDetection    string        `env:"CHANGE_DETECTION" envDefault:"cardinality" validate:"oneof=cardinality difference"`
	ExecutorWorkers    int           `env:"EXECUTOR_WORKERS" envDefault:"1" validate:"min=1,max=64"`
	ExecutorDelay      time.Duration `env:"EXECUTOR_DELAY" envDefault:"350ms"`
	SampleMaxGroups    int           `env:"SAMPLE_MAX_GROUPS" envDefault:"5" validate:"min=0"`
	RunLockTTL         time.Duration `env:"RUN_LOCK_TTL" envDefault:"30m"`
	BackupBoltPath     string        `env:"BACKUP_BOLT_PATH" envDefault:"sorrel-backup.db"`
	ReportsPostgres    bool          `env:"REPORTS_POSTGRES_ENABLED" envDefault:"true"`

	// Redis (run lock)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Graph Database (relation mirror)
	GraphMirrorEnabled bool   `env:"GRAPH_MIRROR_ENABLED" envDefault:"false"`
	GraphDBHost        string `env:"GRAPH_DB_HOST" envDefault:"localhost"`
	GraphDBPort        int    `env:"GRAPH_DB_PORT" envDefault:"7687"`
	GraphDBUser        string `env:"GRAPH_DB_USER" envDefault:""`
	GraphDBPassword    string `env:"GRAPH_DB_PASSWORD" envDefault:""`

	// Kafka Producer (report events)
	KafkaReportsEnabled bool     `env:"KAFKA_REPORTS_ENABLED" envDefault:"false"`
	KafkaBrokers        []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaOutputTopic    string   `env:"KAFKA_OUTPUT_TOPIC" envDefault:"sorrel-events"`
	KafkaBatchSize      int      `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	KafkaBatchTimeout   int      `env:"KAFKA_BATCH_TIMEOUT_MS" envDefault:"100"`
	KafkaRequiredAcks   int      `env:"KAFKA_REQUIRED_ACKS" envDefault:"1"`
	KafkaCompression    string   `env:"KAFKA_COMPRESSION" envDefault:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:""`
	TracingProtocol string `env:"TRACING_PROTOCOL" envDefault:"grpc" validate:"oneof=grpc http"`
	TracingInsecure bool   `env:"TRACING_INSECURE" envDefault:"true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads an optional .env file followed by the process environment
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabaseDSN returns the lib/pq connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
