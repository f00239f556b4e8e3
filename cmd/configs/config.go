package configs

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"ingest-api/pkg/utils"
)

// Config holds all configuration for the application.
// It is built once at startup and passed by pointer to every constructor.
type Config struct {
	// Server configurations
	Server ServerConfig

	// Remote ingestion platform
	Unstructured UnstructuredConfig

	// Source credentials (S3)
	AWS AWSConfig

	// Destination defaults used when the request body omits them
	Supabase SupabaseConfig
	Pinecone PineconeConfig
	Weaviate WeaviateConfig

	// Job ledger database
	Database DatabaseConfig

	// Job result cache
	Redis RedisConfig

	// JWT configurations
	JWT JWTConfig

	// Polling, notification and pipeline defaults
	Orchestrator OrchestratorConfig

	// Application configurations
	AppEnv   string
	LogLevel string
}

// ServerConfig holds server-related configurations
type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
	MCPAddr      string
}

type UnstructuredConfig struct {
	APIKey       string
	APIURL       string // workflow platform base URL
	PartitionURL string // synchronous partition endpoint
	Timeout      int    // seconds, per HTTP call
}

type AWSConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // optional, for S3-compatible stores
}

type SupabaseConfig struct {
	Host      string
	Port      string
	Username  string
	Database  string
	Password  string
	TableName string
	BatchSize int
}

type PineconeConfig struct {
	APIKey    string
	IndexName string
	BatchSize int
}

type WeaviateConfig struct {
	ClusterURL string
	APIKey     string
}

// DatabaseConfig is the Postgres instance holding the ingest_jobs ledger.
// An empty Host disables the ledger.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	URL      string
	Username string
	Password string
	TTL      int // hours
}

// JWTConfig holds JWT-related configurations. An empty SecretKey disables auth.
type JWTConfig struct {
	SecretKey      string
	Issuer         string
	AccessTokenTTL int // minutes
}

type OrchestratorConfig struct {
	PollInterval       int // seconds
	MaxWait            int // seconds
	WebhookTimeout     int // seconds
	TrackerPoolSize    int
	SourcePreflight    bool
	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingDimension int
	EnrichmentModel    string
}

func (c OrchestratorConfig) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c OrchestratorConfig) MaxWaitDuration() time.Duration {
	return time.Duration(c.MaxWait) * time.Second
}

func (c OrchestratorConfig) WebhookTimeoutDuration() time.Duration {
	return time.Duration(c.WebhookTimeout) * time.Second
}

const writeTimeoutMargin = 60 // seconds

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 660) // must outlast MAX_WAIT_SECONDS for synchronous waits
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60)
	v.SetDefault("MCP_ADDR", "localhost:8081")
	v.SetDefault("UNSTRUCTURED_API_URL", "https://platform.unstructuredapp.io/api/v1")
	v.SetDefault("UNSTRUCTURED_PARTITION_URL", "https://api.unstructuredapp.io/general/v0/general")
	v.SetDefault("UNSTRUCTURED_TIMEOUT", 60)
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("SUPABASE_HOST", "aws-0-ap-southeast-2.pooler.supabase.com")
	v.SetDefault("SUPABASE_PORT", "6543")
	v.SetDefault("SUPABASE_USERNAME", "postgres")
	v.SetDefault("SUPABASE_DATABASE", "postgres")
	v.SetDefault("SUPABASE_TABLE", "elements")
	v.SetDefault("SUPABASE_BATCH_SIZE", 100)
	v.SetDefault("PINECONE_BATCH_SIZE", 50)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "ingest")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_TTL_HOURS", 24)
	v.SetDefault("JWT_ISSUER", "ingest-api")
	v.SetDefault("JWT_ACCESS_TTL", 1440)
	v.SetDefault("POLL_INTERVAL_SECONDS", 30)
	v.SetDefault("MAX_WAIT_SECONDS", 600)
	v.SetDefault("WEBHOOK_TIMEOUT_SECONDS", 10)
	v.SetDefault("TRACKER_POOL_SIZE", 256)
	v.SetDefault("SOURCE_PREFLIGHT", false)
	v.SetDefault("EMBEDDING_PROVIDER", "openai")
	v.SetDefault("EMBEDDING_MODEL", "text-embedding-3-large")
	v.SetDefault("EMBEDDING_DIMENSION", 3072)
	v.SetDefault("ENRICHMENT_MODEL", "gpt-4o")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			ReadTimeout:  v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetInt("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetInt("SERVER_IDLE_TIMEOUT"),
			MCPAddr:      v.GetString("MCP_ADDR"),
		},

		// UNSTRUCT_API_KEY is the older variable name still found in deployments
		Unstructured: UnstructuredConfig{
			APIKey:       utils.FirstNonEmpty(v.GetString("UNSTRUCTURED_API_KEY"), v.GetString("UNSTRUCT_API_KEY")),
			APIURL:       v.GetString("UNSTRUCTURED_API_URL"),
			PartitionURL: v.GetString("UNSTRUCTURED_PARTITION_URL"),
			Timeout:      v.GetInt("UNSTRUCTURED_TIMEOUT"),
		},

		AWS: AWSConfig{
			AccessKey: utils.FirstNonEmpty(v.GetString("AWS_S3_KEY"), v.GetString("AWS_ACCESS_KEY_ID")),
			SecretKey: utils.FirstNonEmpty(v.GetString("AWS_S3_SECRET"), v.GetString("AWS_SECRET_ACCESS_KEY")),
			Region:    v.GetString("AWS_REGION"),
			Endpoint:  v.GetString("AWS_S3_ENDPOINT"),
		},

		Supabase: SupabaseConfig{
			Host:      v.GetString("SUPABASE_HOST"),
			Port:      v.GetString("SUPABASE_PORT"),
			Username:  v.GetString("SUPABASE_USERNAME"),
			Database:  v.GetString("SUPABASE_DATABASE"),
			Password:  v.GetString("SUPABASE_PASSWORD"),
			TableName: v.GetString("SUPABASE_TABLE"),
			BatchSize: v.GetInt("SUPABASE_BATCH_SIZE"),
		},

		Pinecone: PineconeConfig{
			APIKey:    v.GetString("PINECONE_API_KEY"),
			IndexName: v.GetString("PINECONE_INDEX"),
			BatchSize: v.GetInt("PINECONE_BATCH_SIZE"),
		},

		Weaviate: WeaviateConfig{
			ClusterURL: v.GetString("WEAVIATE_CLUSTER_URL"),
			APIKey:     v.GetString("WEAVIATE_API_KEY"),
		},

		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},

		Redis: RedisConfig{
			URL:      v.GetString("REDIS_URL"),
			Username: v.GetString("REDIS_USERNAME"),
			Password: v.GetString("REDIS_PASSWORD"),
			TTL:      v.GetInt("REDIS_TTL_HOURS"),
		},

		JWT: JWTConfig{
			SecretKey:      v.GetString("JWT_SECRET"),
			Issuer:         v.GetString("JWT_ISSUER"),
			AccessTokenTTL: v.GetInt("JWT_ACCESS_TTL"),
		},

		Orchestrator: OrchestratorConfig{
			PollInterval:       v.GetInt("POLL_INTERVAL_SECONDS"),
			MaxWait:            v.GetInt("MAX_WAIT_SECONDS"),
			WebhookTimeout:     v.GetInt("WEBHOOK_TIMEOUT_SECONDS"),
			TrackerPoolSize:    v.GetInt("TRACKER_POOL_SIZE"),
			SourcePreflight:    v.GetBool("SOURCE_PREFLIGHT"),
			EmbeddingProvider:  v.GetString("EMBEDDING_PROVIDER"),
			EmbeddingModel:     v.GetString("EMBEDDING_MODEL"),
			EmbeddingDimension: v.GetInt("EMBEDDING_DIMENSION"),
			EnrichmentModel:    v.GetString("ENRICHMENT_MODEL"),
		},

		AppEnv:   v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	// synchronous waits must be answered before the write deadline
	if minWrite := cfg.Orchestrator.MaxWait + writeTimeoutMargin; cfg.Server.WriteTimeout < minWrite {
		cfg.Server.WriteTimeout = minWrite
	}

	return cfg
}
