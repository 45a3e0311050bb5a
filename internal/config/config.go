package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/copyscape-bot/internal/plagiarism/copyscape"
)

var (
	ErrMissingUsername = errors.New("COPYSCAPE_USERNAME is required")
	ErrMissingAPIKey   = errors.New("COPYSCAPE_API_KEY is required")
	ErrInvalidTimeout  = errors.New("COPYSCAPE_CONNECT_TIMEOUT_SEC must be positive")
	ErrInvalidEncoding = errors.New("COPYSCAPE_DEFAULT_ENCODING is not a known charset")
)

type Config struct {
	Copyscape   CopyscapeConfig
	Telegram    TelegramConfig
	Database    DatabaseConfig
	HTTP        HTTPConfig
	Log         LogConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	RunExamples bool
}

type CopyscapeConfig struct {
	Username        string
	APIKey          string
	BaseURL         string
	ConnectTimeout  time.Duration
	DefaultEncoding string
}

// Credentials - неизменяемая пара для клиента.
func (c CopyscapeConfig) Credentials() copyscape.Credentials {
	return copyscape.Credentials{Username: c.Username, APIKey: c.APIKey}
}

type TelegramConfig struct {
	Token string
}

func (c TelegramConfig) Enabled() bool { return c.Token != "" }

type DatabaseConfig struct {
	URL string
}

func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

type SessionConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func Load() (*Config, error) {
	cfg := &Config{
		Copyscape: CopyscapeConfig{
			Username:        os.Getenv("COPYSCAPE_USERNAME"),
			APIKey:          os.Getenv("COPYSCAPE_API_KEY"),
			BaseURL:         getEnvOrDefault("COPYSCAPE_API_URL", copyscape.DefaultBaseURL),
			ConnectTimeout:  time.Duration(getEnvIntOrDefault("COPYSCAPE_CONNECT_TIMEOUT_SEC", 5)) * time.Second,
			DefaultEncoding: getEnvOrDefault("COPYSCAPE_DEFAULT_ENCODING", copyscape.DefaultEncoding),
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvIntOrDefault("SESSION_TTL_SEC", 3600)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		RunExamples: getEnvBoolOrDefault("RUN_EXAMPLES", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Copyscape.Username == "" {
		return ErrMissingUsername
	}
	if c.Copyscape.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Copyscape.ConnectTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if !copyscape.IsSupportedEncoding(c.Copyscape.DefaultEncoding) {
		return ErrInvalidEncoding
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
