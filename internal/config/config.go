// Package config loads citeassist's configuration from a layered
// defaults-struct -> optional JSON file -> environment-variable scheme,
// grounded on the teacher's own config.Config/LoadConfig shape (default
// struct literal, $RAGGO_CONFIG-style file override, then env overrides),
// generalized to spec.md §6's recognised options. A local .env file is
// read first via github.com/joho/godotenv, matching the archivist
// example's .env-loading idiom, before the layered resolution below runs.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting spec.md §6 names as a recognised environment
// option, plus the database/cache connection strings the ambient stack
// needs.
type Config struct {
	EmbeddingModel     string
	EmbeddingDimension int
	ChunkSize          int
	ChunkOverlap       int

	MaxUploadSize     int64
	AllowedExtensions []string

	WebsocketRateLimit int
	CORSOrigins        []string

	RedisURL      string
	RedisPassword string

	DatabaseURL          string
	DatabasePoolSize     int
	DatabaseMaxOverflow  int

	OpenAIAPIKey   string
	RerankerAPIURL string
	RerankerAPIKey string

	MilvusAddress string

	ReferenceManagerBaseURL string

	DataDir string
	Port    string
}

// Default returns spec.md §6's default values.
func Default() *Config {
	return &Config{
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimension:  384,
		ChunkSize:           500,
		ChunkOverlap:        50,
		MaxUploadSize:       52428800,
		AllowedExtensions:   []string{".pdf", ".docx", ".doc", ".txt", ".rtf"},
		WebsocketRateLimit:  60,
		DatabasePoolSize:        10,
		DatabaseMaxOverflow:     5,
		ReferenceManagerBaseURL: "https://api.zotero.org",
		DataDir:                 "./data",
		Port:                    "8080",
	}
}

// Load builds a Config from defaults, an optional JSON file named by
// CITEASSIST_CONFIG, and environment-variable overrides (highest
// precedence), after loading a local .env file if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CITEASSIST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	overrideString(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	overrideInt(&cfg.EmbeddingDimension, "EMBEDDING_DIMENSION")
	overrideInt(&cfg.ChunkSize, "CHUNK_SIZE")
	overrideInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP")
	overrideInt64(&cfg.MaxUploadSize, "MAX_UPLOAD_SIZE")
	overrideStringSlice(&cfg.AllowedExtensions, "ALLOWED_EXTENSIONS")
	overrideInt(&cfg.WebsocketRateLimit, "WEBSOCKET_RATE_LIMIT")
	overrideStringSlice(&cfg.CORSOrigins, "CORS_ORIGINS")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.RedisPassword, "REDIS_PASSWORD")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideInt(&cfg.DatabasePoolSize, "DATABASE_POOL_SIZE")
	overrideInt(&cfg.DatabaseMaxOverflow, "DATABASE_MAX_OVERFLOW")
	overrideString(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	overrideString(&cfg.RerankerAPIURL, "RERANKER_API_URL")
	overrideString(&cfg.RerankerAPIKey, "RERANKER_API_KEY")
	overrideString(&cfg.MilvusAddress, "MILVUS_ADDRESS")
	overrideString(&cfg.ReferenceManagerBaseURL, "REFERENCE_MANAGER_BASE_URL")
	overrideString(&cfg.DataDir, "DATA_DIR")
	overrideString(&cfg.Port, "PORT")

	return cfg, nil
}

// EmbeddingCacheTTL is a fixed 24h operational constant, not an env option.
// The embedding service's LRU cache does not read it: cache entries carry no
// TTL and are evicted only when the cache exceeds its capacity.
const EmbeddingCacheTTL = 24 * time.Hour

func overrideString(field *string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		*field = v
	}
}

func overrideStringSlice(field *[]string, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		*field = parts
	}
}

func overrideInt(field *int, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*field = n
		}
	}
}

func overrideInt64(field *int64, envKey string) {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*field = n
		}
	}
}
