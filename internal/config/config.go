// Package config provides configuration for the chat backend.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Memory service (MemMachine)
	MemMachineBaseURL     string
	MemMachineGroupPrefix string
	MemMachineAgentID     string

	// Completion provider (OpenAI-compatible)
	OpenAIBaseURL string
	OpenAIAPIKey  string
	DefaultModel  string

	// Timeouts
	LLMTimeout    time.Duration
	MemoryTimeout time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:              getEnvInt("HTTP_PORT", 8000),
		DatabaseURL:           getEnv("DATABASE_URL", "file:hipposync.db?cache=shared&mode=rwc"),
		MemMachineBaseURL:     getEnv("MEMMACHINE_BASE_URL", "http://localhost:8080"),
		MemMachineGroupPrefix: getEnv("MEMMACHINE_GROUP_PREFIX", "group"),
		MemMachineAgentID:     getEnv("MEMMACHINE_AGENT_ID", "web-assistant"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		DefaultModel:          getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		LLMTimeout:            time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		MemoryTimeout:         time.Duration(getEnvInt("MEMORY_TIMEOUT_MS", 60000)) * time.Millisecond,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
