package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	ScraperHTML    = "html"
	ScraperBrowser = "browser"

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
)

var ErrMissingCredential = errors.New("missing LLM provider credential")

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort       string
	RequestTimeout time.Duration
	AllowedOrigins []string

	LLMProvider      string
	LLMModel         string
	LLMMaxTokens     int
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	ScraperMode      string
	ScraperUserAgent string

	DatabaseURL string // empty disables the relay audit log
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI))
	if provider != ProviderOpenAI && provider != ProviderAnthropic {
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, provider)
	}

	scraperMode := strings.ToLower(getEnv("SCRAPER_MODE", ScraperHTML))
	if scraperMode != ScraperHTML && scraperMode != ScraperBrowser {
		return nil, fmt.Errorf("SCRAPER_MODE must be %q or %q, got %q", ScraperHTML, ScraperBrowser, scraperMode)
	}

	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		LLMProvider:      provider,
		LLMMaxTokens:     getEnvInt("LLM_MAX_TOKENS", 1024),
		OpenAIAPIKey:     getSecretEnv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey:  getSecretEnv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		ScraperMode:      scraperMode,
		ScraperUserAgent: getEnv("SCRAPER_USER_AGENT", "AnyWebSupportBot/1.0"),
		DatabaseURL:      getSecretEnv("DATABASE_URL"),
	}

	switch provider {
	case ProviderOpenAI:
		cfg.LLMModel = getEnv("LLM_MODEL", defaultOpenAIModel)
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingCredential)
		}
	case ProviderAnthropic:
		cfg.LLMModel = getEnv("LLM_MODEL", defaultAnthropicModel)
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY is not set", ErrMissingCredential)
		}
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	log.Printf("Loaded config: Port=%s, Provider=%s, Model=%s, Scraper=%s, DB_URL=%s, RequestTimeout=%s",
		cfg.HTTPPort, cfg.LLMProvider, cfg.LLMModel, cfg.ScraperMode, redact(cfg.DatabaseURL), cfg.RequestTimeout)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
// An empty value counts as unset.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	log.Printf("Env variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getSecretEnv is getEnv without echoing anything to the log.
func getSecretEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("Warning: Invalid %s '%s', using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "***"
}
