package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Report   ReportConfig
	Upload   UploadConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	Provider       string // "openai" or "anthropic" (chat only; embeddings are always OpenAI)
	OpenAIKey      string
	AnthropicKey   string
	ChatModel      string
	ClassifyModel  string
	EmbeddingModel string
	Timeout        time.Duration
}

type ReportConfig struct {
	CacheMaxAge      time.Duration // cached report older than this is rebuilt
	RebuildThreshold int           // new questions since build that force a rebuild
}

type UploadConfig struct {
	Dir string // local directory for uploaded files
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	llmTimeout, err := getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT_SECONDS: %w", err)
	}

	cacheAge, err := getEnvInt("REPORT_CACHE_MAX_AGE_SECONDS", 600)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CACHE_MAX_AGE_SECONDS: %w", err)
	}

	rebuildThreshold, err := getEnvInt("REPORT_REBUILD_THRESHOLD", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_REBUILD_THRESHOLD: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			Provider:       getEnv("LLM_PROVIDER", "openai"),
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:   getEnv("ANTHROPIC_API_KEY", ""),
			ChatModel:      getEnv("LLM_CHAT_MODEL", "gpt-4o"),
			ClassifyModel:  getEnv("LLM_CLASSIFY_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:        time.Duration(llmTimeout) * time.Second,
		},
		Report: ReportConfig{
			CacheMaxAge:      time.Duration(cacheAge) * time.Second,
			RebuildThreshold: rebuildThreshold,
		},
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "uploads"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.LLM.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.LLM.Provider == "anthropic" && c.AnthropicKeyMissing() {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) AnthropicKeyMissing() bool {
	return c.LLM.AnthropicKey == ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
