package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	OCR    OCRConfig    `mapstructure:"ocr" validate:"required"`
	Gemini GeminiConfig `mapstructure:"gemini" validate:"required"`
	Task   TaskConfig   `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// OCRConfig contains settings for the text recognition sidecar.
type OCRConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`
}

// GeminiConfig contains settings for the text generation backend.
type GeminiConfig struct {
	APIKey            string `mapstructure:"api_key" validate:"required"`
	Model             string `mapstructure:"model" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// TaskConfig contains task orchestration settings.
type TaskConfig struct {
	// ShutdownGrace bounds how long Shutdown waits for an active task
	// attempt to finish before giving up.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" validate:"required"`
}
