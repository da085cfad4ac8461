// Package config provides configuration for the chat backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "supersecretkey"

// Cloud backends.
const (
	CloudBackendGemini = "gemini"
	CloudBackendOpenAI = "openai"
)

// ModeMock swaps the local provider for the simulated one.
const ModeMock = "MOCK"

// Config holds the backend configuration.
type Config struct {
	// Server settings
	Env         string
	HTTPPort    int
	APIPrefix   string
	CORSOrigins []string

	// Storage
	DatabaseURL string
	RedisURL    string

	// Auth
	JWTSecret           string
	AccessTokenTTL      time.Duration
	GoogleClientID      string
	AppleClientID       string
	AllowMockFederation bool

	// Completion providers
	Mode                 string
	LocalLLMEnabled      bool
	LocalLLMURL          string
	LocalModel           string
	CloudBackend         string
	GeminiAPIKey         string
	OpenAIBaseURL        string
	OpenAIAPIKey         string
	CloudModels          []string
	MaxDiscoveryAttempts int
	LLMTimeout           time.Duration

	// Orchestration
	MaxHistoryTurns int
	TitleMaxChars   int
	Persona         Persona

	// Rate limits, requests per minute; zero disables the limit.
	RateLimitAuthPerMin int
	RateLimitSendPerMin int

	// Logging
	LogLevel string
}

// Persona is the fixed instruction turn prepended to every conversation.
type Persona struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
}

// DefaultPersona is used when no persona file is configured.
var DefaultPersona = Persona{
	Name: "TitanBot",
	Prompt: `You are TitanBot, a helpful and intelligent AI assistant created by Abdulkalam.
Answer questions based on Machine Learning, Python, Generative AI, and software engineering.`,
}

// DefaultCloudModels is the fixed candidate priority list for Gemini.
var DefaultCloudModels = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
}

// DefaultOpenAIModels is the fixed candidate priority list for the
// OpenAI-compatible backend.
var DefaultOpenAIModels = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-3.5-turbo",
}

// DefaultModelsFor returns the candidate list used for backend when
// CLOUD_MODELS is unset.
func DefaultModelsFor(backend string) []string {
	if backend == CloudBackendOpenAI {
		return DefaultOpenAIModels
	}
	return DefaultCloudModels
}

// Load loads configuration from environment variables, reading a local
// .env file first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                  getEnv("ENV", "development"),
		HTTPPort:             getEnvInt("HTTP_PORT", 8000),
		APIPrefix:            strings.TrimSuffix(getEnv("API_PREFIX", "/api"), "/"),
		CORSOrigins:          getEnvList("CORS_ORIGINS", []string{"*"}),
		DatabaseURL:          getEnv("DATABASE_URL", "file:titanbot.db?cache=shared&mode=rwc"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSecret:            getEnv("JWT_SECRET", DefaultJWTSecret),
		AccessTokenTTL:       time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		AppleClientID:        os.Getenv("APPLE_CLIENT_ID"),
		AllowMockFederation:  getEnvBool("ALLOW_MOCK_FEDERATION", false),
		Mode:                 strings.ToUpper(os.Getenv("TITANBOT_MODE")),
		LocalLLMEnabled:      getEnvBool("LOCAL_LLM_ENABLED", true),
		LocalLLMURL:          getEnv("LOCAL_LLM_URL", "http://localhost:11434"),
		LocalModel:           getEnv("LOCAL_MODEL", "llama3.2"),
		CloudBackend:         strings.ToLower(getEnv("CLOUD_BACKEND", CloudBackendGemini)),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		MaxDiscoveryAttempts: getEnvInt("MAX_DISCOVERY_ATTEMPTS", 5),
		LLMTimeout:           time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		MaxHistoryTurns:      getEnvInt("MAX_HISTORY_TURNS", 50),
		TitleMaxChars:        getEnvInt("TITLE_MAX_CHARS", 30),
		Persona:              DefaultPersona,
		RateLimitAuthPerMin:  getEnvInt("RATE_LIMIT_AUTH_PER_MIN", 20),
		RateLimitSendPerMin:  getEnvInt("RATE_LIMIT_SEND_PER_MIN", 30),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	cfg.CloudModels = getEnvList("CLOUD_MODELS", DefaultModelsFor(cfg.CloudBackend))

	if path := os.Getenv("PERSONA_FILE"); path != "" {
		persona, err := LoadPersona(path)
		if err != nil {
			return nil, err
		}
		cfg.Persona = persona
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would make the server unsafe or unusable.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	switch c.CloudBackend {
	case CloudBackendGemini, CloudBackendOpenAI:
	default:
		return fmt.Errorf("unknown CLOUD_BACKEND %q", c.CloudBackend)
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.TitleMaxChars <= 0 {
		return errors.New("TITLE_MAX_CHARS must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CloudAPIKey returns the key for the configured cloud backend.
func (c *Config) CloudAPIKey() string {
	if c.CloudBackend == CloudBackendOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// LoadPersona reads a YAML persona definition.
func LoadPersona(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona file: %w", err)
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona file: %w", err)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return Persona{}, errors.New("persona file has an empty prompt")
	}
	if p.Name == "" {
		p.Name = DefaultPersona.Name
	}
	return p, nil
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

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvList parses a comma-separated list, dropping empty entries.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
