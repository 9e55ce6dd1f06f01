package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Ramsey-B/trellis/pkg/cache"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/kafka"
	"github.com/Ramsey-B/trellis/pkg/processor"
	"github.com/Ramsey-B/trellis/pkg/tracing"
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"trellis"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	BodyLimit                     string   `env:"HTTP_SERVER_BODY_LIMIT" env-default:"10M"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database host
	DatabaseHost string `env:"DB_HOST" env-default:"localhost"`
	// Database port
	DatabasePort string `env:"DB_PORT" env-default:"5432"`
	// Database user
	DatabaseUserName string `env:"DB_USER_NAME" env-default:""`
	// Database user password
	DatabasePassword string `env:"DB_PASSWORD" env-default:""`
	// Database name
	DatabaseName string `env:"DB_NAME" env-default:"trellis"`
	// Database SSL Mode
	DatabaseSSLMode string `env:"DB_SSL_MODE" env-default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	// Database Migration Version, 0 migrates all the way up
	DatabaseMigrationVersion int `env:"DB_MIGRATION_VERSION" env-default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `env:"DB_MIGRATION_FORCE" env-default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Auth Enabled - when false, allows X-Tenant-ID and X-User-ID headers for testing
	AuthEnabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Auth Issuer URL
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	// Auth Client ID
	AuthClientID string `env:"AUTH_CLIENT_ID" env-default:""`

	// Redis, the shared mapping cache is skipped when RedisHost is empty
	RedisHost       string `env:"REDIS_HOST" env-default:""`
	RedisPort       int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB         int    `env:"REDIS_DB" env-default:"0"`
	RedisTTLSeconds int    `env:"REDIS_TTL_SECONDS" env-default:"900"`

	// Kafka Consumer
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"mapping-requests"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"trellis-worker"`
	KafkaOutputTopic     string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"mapping-results"`
	KafkaErrorTopic      string   `env:"KAFKA_ERROR_TOPIC" env-default:"mapping-errors"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"true"`

	// Kafka Producer
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Processor
	ProcessorWorkerCount    int    `env:"PROCESSOR_WORKER_COUNT" env-default:"4"`
	ProcessorTimeoutSeconds int    `env:"PROCESSOR_TIMEOUT_SECONDS" env-default:"30"`
	MappingCacheMaxSize     int    `env:"MAPPING_CACHE_MAX_SIZE" env-default:"1000"`
	MappingCacheTTLSeconds  int    `env:"MAPPING_CACHE_TTL_SECONDS" env-default:"300"`
	MappingCacheSweepCron   string `env:"MAPPING_CACHE_SWEEP_CRON" env-default:"@every 1m"`

	// Tracing, spans are logged at debug level when the endpoint is empty
	TracingEnabled        bool   `env:"TRACING_ENABLED" env-default:"true"`
	TracingEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	TracingProtocol       string `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"grpc"`
	TracingInsecure       bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`
	TracingTimeoutSeconds int    `env:"OTEL_EXPORTER_OTLP_TIMEOUT_SECONDS" env-default:"10"`
}

// Load reads a .env file when present and binds the environment onto Config.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, pkgerrors.Wrap(err, "failed to load env file")
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, pkgerrors.Wrap(err, "failed to bind environment")
	}

	return cfg, nil
}

func (c Config) Database() database.ConnectionConfig {
	return database.ConnectionConfig{
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		User:            c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c Config) Redis() cache.Config {
	return cache.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c Config) Consumer() kafka.ConsumerConfig {
	consumer := kafka.DefaultConsumerConfig()
	consumer.Brokers = c.KafkaBrokers
	consumer.Topic = c.KafkaInputTopic
	consumer.GroupID = c.KafkaConsumerGroup
	return consumer
}

func (c Config) Producer() kafka.ProducerConfig {
	producer := kafka.DefaultProducerConfig()
	producer.Brokers = c.KafkaBrokers
	producer.Topic = c.KafkaOutputTopic
	producer.ErrorTopic = c.KafkaErrorTopic
	producer.BatchSize = c.KafkaBatchSize
	producer.BatchTimeout = time.Duration(c.KafkaBatchTimeout) * time.Millisecond
	producer.RequiredAcks = c.KafkaRequiredAcks
	producer.Compression = c.KafkaCompression
	return producer
}

func (c Config) Processor() processor.ProcessorConfig {
	return processor.ProcessorConfig{
		WorkerCount:    c.ProcessorWorkerCount,
		ProcessTimeout: time.Duration(c.ProcessorTimeoutSeconds) * time.Second,
	}
}

func (c Config) MappingCache() processor.MappingCacheConfig {
	return processor.MappingCacheConfig{
		MaxSize: c.MappingCacheMaxSize,
		TTL:     time.Duration(c.MappingCacheTTLSeconds) * time.Second,
	}
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		ServiceName: c.AppName,
		Endpoint:    c.TracingEndpoint,
		Protocol:    c.TracingProtocol,
		Insecure:    c.TracingInsecure,
		Timeout:     time.Duration(c.TracingTimeoutSeconds) * time.Second,
	}
}
