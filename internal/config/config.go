package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	AI       AIConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Address        string
	AllowedOrigins []string
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type AIConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	AgentTimeout   time.Duration
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

const defaultTokenTTL = 7 * 24 * time.Hour

// Load reads configuration from the environment. It fails when
// BETTER_AUTH_SECRET is absent: every issued token is signed with it and a
// process without it cannot verify anything.
func Load() (Config, error) {
	secret := os.Getenv("BETTER_AUTH_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("BETTER_AUTH_SECRET is required")
	}

	tokenTTL := defaultTokenTTL
	if raw := os.Getenv("AUTH_TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTH_TOKEN_TTL: %w", err)
		}
		tokenTTL = parsed
	}

	agentTimeout := 120 * time.Second
	if raw := os.Getenv("AGENT_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AGENT_TIMEOUT: %w", err)
		}
		agentTimeout = parsed
	}

	return Config{
		Server: ServerConfig{
			Address:        getenv("SERVER_ADDRESS", ":8080"),
			AllowedOrigins: splitOrigins(os.Getenv("ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			Secret:   secret,
			TokenTTL: tokenTTL,
		},
		AI: AIConfig{
			APIKey:         os.Getenv("AI_API_KEY"),
			ChatModel:      getenv("AI_CHAT_MODEL", "gemini-2.0-flash"),
			EmbeddingModel: getenv("AI_EMBEDDING_MODEL", "text-embedding-004"),
			AgentTimeout:   agentTimeout,
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
