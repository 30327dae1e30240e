package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Provider names accepted in LLM_PROVIDER.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderBedrock    = "bedrock"
)

// Config holds runtime configuration values for the Keyword Tailor server and CLI.
type Config struct {
	ServerPort       int
	LogLevel         string
	LLMProvider      string
	LLMEndpoint      string
	LLMAPIKey        string
	LLMModels        []string
	StructuredOutput bool
	AWSRegion        string
	PromptsPath      string
	SentryDSN        string
	Environment      string
	ShutdownGrace    time.Duration
	CORSOrigins      []string
	RateLimit        RateLimitConfig
}

// RateLimitConfig configures the per-client token bucket on the HTTP API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

const (
	defaultServerPort     = 8080
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultProvider       = ProviderOpenRouter
	defaultAWSRegion      = "us-east-1"
	defaultShutdownGrace  = 10 * time.Second
	defaultRateLimitRPS   = 1.0
	defaultRateLimitBurst = 5
	defaultRateLimitTTL   = 10 * time.Minute
)

var defaultModels = map[string]string{
	ProviderOpenRouter: "openai/gpt-4.1-mini",
	ProviderOpenAI:     "gpt-4.1-mini",
}

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		LLMProvider:   strings.ToLower(getEnv("LLM_PROVIDER", defaultProvider)),
		LLMEndpoint:   os.Getenv("LLM_ENDPOINT"),
		LLMAPIKey:     os.Getenv("LLM_API_KEY"),
		AWSRegion:     getEnv("AWS_REGION", defaultAWSRegion),
		PromptsPath:   os.Getenv("PROMPTS_PATH"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
		CORSOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	switch cfg.LLMProvider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderBedrock:
	default:
		return nil, eris.Errorf("invalid LLM_PROVIDER value: %s", cfg.LLMProvider)
	}

	if modelsJSON := os.Getenv("LLM_MODELS"); modelsJSON != "" {
		models, err := parseModels(modelsJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing LLM_MODELS")
		}
		cfg.LLMModels = models
	} else if model, ok := defaultModels[cfg.LLMProvider]; ok {
		cfg.LLMModels = []string{model}
	}

	structured, err := strconv.ParseBool(getEnv("LLM_STRUCTURED_OUTPUT", "true"))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid LLM_STRUCTURED_OUTPUT value: %s", os.Getenv("LLM_STRUCTURED_OUTPUT"))
	}
	cfg.StructuredOutput = structured

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	rateLimit, err := loadRateLimit()
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = rateLimit

	return cfg, nil
}

// KeywordModel is the model used by the keyword flows.
func (c *Config) KeywordModel() string {
	if len(c.LLMModels) == 0 {
		return ""
	}
	return c.LLMModels[0]
}

// BlogModel is the model used for blog posts; it falls back to the keyword model.
func (c *Config) BlogModel() string {
	if len(c.LLMModels) > 1 {
		return c.LLMModels[1]
	}
	return c.KeywordModel()
}

func loadRateLimit() (RateLimitConfig, error) {
	settings := RateLimitConfig{
		RequestsPerSecond: defaultRateLimitRPS,
		Burst:             defaultRateLimitBurst,
		ClientTTL:         defaultRateLimitTTL,
	}

	if raw := os.Getenv("RATE_LIMIT_RPS"); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			return settings, eris.Errorf("invalid RATE_LIMIT_RPS value: %s", raw)
		}
		settings.RequestsPerSecond = rps
	}

	if raw := os.Getenv("RATE_LIMIT_BURST"); raw != "" {
		burst, err := strconv.Atoi(raw)
		if err != nil || burst <= 0 {
			return settings, eris.Errorf("invalid RATE_LIMIT_BURST value: %s", raw)
		}
		settings.Burst = burst
	}

	if raw := os.Getenv("RATE_LIMIT_CLIENT_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return settings, eris.Errorf("invalid RATE_LIMIT_CLIENT_TTL value: %s", raw)
		}
		settings.ClientTTL = ttl
	}

	return settings, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func parseModels(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `models` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		if len(arrayInput) == 0 {
			return nil, eris.New("models list is empty")
		}
		return arrayInput, nil
	}

	var objectInput struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	if len(objectInput.Models) == 0 {
		return nil, eris.New("models list is empty")
	}

	return objectInput.Models, nil
}
