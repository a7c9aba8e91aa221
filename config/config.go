package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"symtag"`
	Port                          int      `env:"PORT" env-default:"3010"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Reference store
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"` // postgres, sqlite, memory
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"symtag"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseSQLitePath            string        `env:"DB_SQLITE_PATH" env-default:"symtag.db"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Tagging
	LexiconPath             string  `env:"LEXICON_PATH" env-default:""`
	PatternThreshold        float64 `env:"PATTERN_THRESHOLD" env-default:"0.3"`
	ContextualThreshold     float64 `env:"CONTEXTUAL_THRESHOLD" env-default:"0.5"`
	PatternContextWindow    int     `env:"PATTERN_CONTEXT_WINDOW" env-default:"50"`
	ContextualContextWindow int     `env:"CONTEXTUAL_CONTEXT_WINDOW" env-default:"100"`
	MaxTopContexts          int     `env:"MAX_TOP_CONTEXTS" env-default:"5"`
	MinPersistConfidence    float64 `env:"MIN_PERSIST_CONFIDENCE" env-default:"0"`
	TagWorkerCount          int     `env:"TAG_WORKER_COUNT" env-default:"4"`
	ReloadOnNewSecurity     bool    `env:"RELOAD_ON_NEW_SECURITY" env-default:"true"`

	// Kafka consumer (articles in)
	KafkaBrokers         []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaInputTopic      string   `env:"KAFKA_INPUT_TOPIC" env-default:"news-articles"`
	KafkaConsumerGroup   string   `env:"KAFKA_CONSUMER_GROUP" env-default:"symtag-consumer"`
	KafkaConsumerEnabled bool     `env:"KAFKA_CONSUMER_ENABLED" env-default:"false"`

	// JMESPath expressions applied to incoming article payloads
	ArticleIDExpression    string `env:"ARTICLE_ID_EXPRESSION" env-default:"id"`
	ArticleTitleExpression string `env:"ARTICLE_TITLE_EXPRESSION" env-default:"title"`
	ArticleBodyExpression  string `env:"ARTICLE_BODY_EXPRESSION" env-default:"body"`

	// Kafka producer (tag events out)
	KafkaOutputTopic  string `env:"KAFKA_OUTPUT_TOPIC" env-default:"symbols-tagged"`
	KafkaBatchSize    int    `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int    `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int    `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Redis (reload coordination)
	RedisEnabled                 bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost                    string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort                    int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword                string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB                      int           `env:"REDIS_DB" env-default:"0"`
	ReloadLockTTL                time.Duration `env:"RELOAD_LOCK_TTL" env-default:"30s"`
	ReferenceVersionPollInterval time.Duration `env:"REFERENCE_VERSION_POLL_INTERVAL" env-default:"15s"`

	// Graph Database (Memgraph / Neo4j)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`
	GraphDBName     string `env:"GRAPH_DB_NAME" env-default:""`

	// Tracing
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" env-default:"localhost:4317"`
	OTLPProtocol   string `env:"OTLP_PROTOCOL" env-default:"grpc"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// PostgresDSN builds a lib/pq connection string.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost, c.DatabasePort, c.DatabaseUserName, c.DatabasePassword, c.DatabaseName, c.DatabaseSSLMode)
}
