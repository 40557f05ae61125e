package config

import (
	"log"
	"os"
	"strconv"

	"ai-docchat-be/internal/constant"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Stream   StreamConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	// Connection is the Postgres DSN. Empty means the in-memory chat
	// store is used instead.
	Connection string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "scripted"
	LLMModel      string
	OllamaBaseURL string
}

type StreamConfig struct {
	// IdleTimeoutMs is the default maximum wait between events before the
	// delivery channel gives up; callers may override per request.
	IdleTimeoutMs int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", constant.OllamaDefaultModel),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", constant.OllamaDefaultBaseURL),
		},
		Stream: StreamConfig{
			IdleTimeoutMs: getEnvAsInt("STREAM_IDLE_TIMEOUT_MS", 60000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
