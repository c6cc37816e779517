package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	DataDir          string
	IndexDir         string
	IndexBackend     string // disk | pgvector
	ChunkSize        int
	ChunkOverlap     int
	MinContentLength int
	EmbedBatchSize   int
	IngestWorkers    int

	AIAPIKey       string
	EmbedModel     string
	GenModel       string
	GenTemperature float64
	GenMaxTokens   int
	GenTopP        float64
	LLMTimeout     time.Duration

	DatabaseURL    string
	LeadBackend    string // memory | postgres
	SessionBackend string // memory | redis
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration

	NatsURL   string
	NatsToken string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	JWTSecret      string
	AllowedOrigins []string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir:          getEnv("DATA_DIR", "data"),
		IndexDir:         getEnv("INDEX_DIR", "kb_index"),
		IndexBackend:     getEnv("INDEX_BACKEND", "disk"),
		ChunkSize:        getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", 100),
		MinContentLength: getEnvInt("MIN_CONTENT_LENGTH", 50),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", 32),
		IngestWorkers:    getEnvInt("INGEST_WORKERS", 4),

		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),
		GenTemperature: getEnvFloat("GEN_TEMPERATURE", 0.7),
		GenMaxTokens:   getEnvInt("GEN_MAX_TOKENS", 1000),
		GenTopP:        getEnvFloat("GEN_TOP_P", 0.9),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LeadBackend:    getEnv("LEAD_BACKEND", "memory"),
		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),

		NatsURL:   getEnv("NATS_URL", ""),
		NatsToken: getEnv("NATS_TOKEN", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}

	return cfg
}

// Validate reports settings that would make the service misbehave at runtime.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	switch c.IndexBackend {
	case "disk":
	case "pgvector":
		if c.DatabaseURL == "" {
			return fmt.Errorf("INDEX_BACKEND=pgvector requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown INDEX_BACKEND %q", c.IndexBackend)
	}
	switch c.LeadBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEAD_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEAD_BACKEND %q", c.LeadBackend)
	}
	switch c.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// ArchiveEnabled reports whether uploads should be mirrored to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.BucketName != "" && c.AwsAccessKey != "" && c.AwsSecretKey != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
