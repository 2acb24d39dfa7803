package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	OCR    OCRConfig
	Vision VisionConfig
	Verify VerifyConfig
	Cache  CacheConfig
}

// OCRConfig holds local-recognizer configuration
type OCRConfig struct {
	Tesseract string
	Lang      string
}

// VisionConfig holds paid vision-service configuration
type VisionConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// VerifyConfig holds comparison and scheduling configuration
type VerifyConfig struct {
	EmailTolerance float64
	Workers        int
}

// CacheConfig holds result-cache configuration
type CacheConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Tesseract: getEnv("OCR_TESSERACT", "tesseract"),
			Lang:      getEnv("OCR_LANG", "eng"),
		},
		Vision: VisionConfig{
			APIKey:     getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:    getEnv("VISION_BASE_URL", "https://api.anthropic.com"),
			Model:      getEnv("VISION_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:  getEnvAsInt("VISION_MAX_TOKENS", 200),
			MaxRetries: getEnvAsInt("VISION_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("VISION_RETRY_DELAY", 2*time.Second),
			Timeout:    getEnvAsDuration("VISION_TIMEOUT", 60*time.Second),
		},
		Verify: VerifyConfig{
			EmailTolerance: getEnvAsFloat64("EMAIL_TOLERANCE", 0.90),
			Workers:        getEnvAsInt("VERIFY_WORKERS", 1),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "results_cache.json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration for a fallback or remote run.
// Local-only runs do not need the vision API key.
func (c *Config) Validate(needsVision bool) error {
	if needsVision && c.Vision.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.Verify.EmailTolerance <= 0 || c.Verify.EmailTolerance > 1 {
		return NewAppError("CONFIG_ERROR", "EMAIL_TOLERANCE must be in (0,1]", ErrInvalidInput)
	}
	return nil
}
