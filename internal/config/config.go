package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"imgtext/internal/logger"
)

// Credential sources
const (
	// CredentialSourceForm asks the user for an API key on every request.
	CredentialSourceForm = "form"

	// CredentialSourceEnv reads the API key once from the environment at startup.
	CredentialSourceEnv = "env"
)

// Backend names
const (
	BackendGemini = "gemini"
	BackendVision = "vision"
	BackendOpenAI = "openai"
)

type Config struct {
	// Credential Configuration
	CredentialSource string
	GeminiAPIKey     string
	VisionAPIKey     string
	OpenAIAPIKey     string

	// Backend Configuration
	Backend        string
	GeminiModel    string
	GeminiEndpoint string
	OpenAIModel    string
	OpenAIBaseURL  string

	// Processing Configuration
	ImageMaxDimension int
	ExtractTimeout    time.Duration

	// Server Configuration
	ListenAddr string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	maxDim, err := getEnvInt("IMAGE_MAX_DIMENSION", 0)
	if err != nil {
		return nil, err
	}
	timeoutSecs, err := getEnvInt("EXTRACT_TIMEOUT_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	config := &Config{
		CredentialSource:  getEnv("CREDENTIAL_SOURCE", CredentialSourceForm),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		VisionAPIKey:      getEnv("VISION_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		Backend:           getEnv("EXTRACT_BACKEND", BackendGemini),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiEndpoint:    getEnv("GEMINI_ENDPOINT", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		ImageMaxDimension: maxDim,
		ExtractTimeout:    time.Duration(timeoutSecs) * time.Second,
		ListenAddr:        getEnv("LISTEN_ADDR", ":8501"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:     getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:         getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.CredentialSource {
	case CredentialSourceForm, CredentialSourceEnv:
	default:
		return fmt.Errorf("CREDENTIAL_SOURCE must be %q or %q, got %q", CredentialSourceForm, CredentialSourceEnv, c.CredentialSource)
	}
	switch c.Backend {
	case BackendGemini, BackendVision, BackendOpenAI:
	default:
		return fmt.Errorf("EXTRACT_BACKEND must be one of gemini, vision, openai, got %q", c.Backend)
	}
	if c.ImageMaxDimension < 0 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION must not be negative")
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("EXTRACT_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// APIKey returns the environment-supplied key for the selected backend.
// Vision falls back to the Gemini key since both are Google API keys.
func (c *Config) APIKey() string {
	switch c.Backend {
	case BackendVision:
		if c.VisionAPIKey != "" {
			return c.VisionAPIKey
		}
		return c.GeminiAPIKey
	case BackendOpenAI:
		return c.OpenAIAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// APIKeyVariable names the environment variable APIKey reads for the selected backend.
func (c *Config) APIKeyVariable() string {
	switch c.Backend {
	case BackendVision:
		return "VISION_API_KEY"
	case BackendOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// RequireAPIKey fails when the environment holds no key for the selected backend.
func (c *Config) RequireAPIKey() error {
	if c.APIKey() == "" {
		return fmt.Errorf("%s is required", c.APIKeyVariable())
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
