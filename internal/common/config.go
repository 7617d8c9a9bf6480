package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/parlo-ai/parlo/internal/interfaces"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Sessions    SessionsConfig   `toml:"sessions"`
	Vault       VaultConfig      `toml:"vault"`
	OAuth       OAuthConfig      `toml:"oauth"`
	Maps        MapsConfig       `toml:"maps"`
	Voice       VoiceConfig      `toml:"voice"`
	Mail        MailConfig       `toml:"mail"`
	Automation  AutomationConfig `toml:"automation"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
	// BaseURL is the externally reachable address used when building
	// OAuth redirect URLs and webhook URLs handed to the voice platform.
	BaseURL string `toml:"base_url"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// SessionsConfig controls login session lifetime and cleanup
type SessionsConfig struct {
	TTL           time.Duration `toml:"ttl"`            // Session lifetime (default: 24h)
	SweepSchedule string        `toml:"sweep_schedule"` // Cron schedule for purging expired sessions
}

// VaultConfig holds the key used to seal stored credentials
type VaultConfig struct {
	Key string `toml:"key"` // 32-byte key, hex or raw; required
}

// OAuthConfig contains the Google OAuth client configuration
type OAuthConfig struct {
	ClientID        string        `toml:"client_id"`
	ClientSecret    string        `toml:"client_secret"`
	RedirectURL     string        `toml:"redirect_url"`     // Callback URL registered with Google
	Scopes          []string      `toml:"scopes"`           // Requested OAuth scopes
	StateSecret     string        `toml:"state_secret"`     // HMAC key for signing the state parameter
	StateTTL        time.Duration `toml:"state_ttl"`        // How long an issued state stays valid
	IntegrationsURL string        `toml:"integrations_url"` // Browser destination after the callback completes
}

// MapsConfig contains Google Maps API configuration
type MapsConfig struct {
	APIKey         string        `toml:"api_key"`         // API key fallback when no OAuth token is available
	RateLimit      time.Duration `toml:"rate_limit"`      // Minimum time between API requests
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	MaxResults     int           `toml:"max_results"`     // Result cap per place search
}

// VoiceConfig contains voice platform API configuration
type VoiceConfig struct {
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url"`        // Platform API base (default: https://api.vapi.ai)
	PhoneNumberID  string        `toml:"phone_number_id"` // Platform phone number used for outbound calls
	RequestTimeout time.Duration `toml:"request_timeout"`
	RateLimit      time.Duration `toml:"rate_limit"`
}

// MailConfig contains SMTP settings for result emails
type MailConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// AutomationConfig points at the external browser-automation service
type AutomationConfig struct {
	Endpoint string        `toml:"endpoint"` // HTTP endpoint receiving automation tasks
	Timeout  time.Duration `toml:"timeout"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // Model for summary generation (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // Model for summary generation (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"` // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the provider used for call summaries
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in parlo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:    8080,
			Host:    "localhost",
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Sessions: SessionsConfig{
			TTL:           24 * time.Hour,
			SweepSchedule: "*/15 * * * *", // Purge expired sessions every 15 minutes
		},
		Vault: VaultConfig{
			Key: "", // User must provide a 32-byte key
		},
		OAuth: OAuthConfig{
			RedirectURL: "http://localhost:8080/api/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/calendar.readonly",
			},
			StateTTL:        10 * time.Minute,
			IntegrationsURL: "http://localhost:8080/integrations",
		},
		Maps: MapsConfig{
			RateLimit:      1 * time.Second, // Respects Google API quotas
			RequestTimeout: 30 * time.Second,
			MaxResults:     20,
		},
		Voice: VoiceConfig{
			BaseURL:        "https://api.vapi.ai",
			RequestTimeout: 60 * time.Second,
			RateLimit:      200 * time.Millisecond,
		},
		Mail: MailConfig{
			Port: 587,
		},
		Automation: AutomationConfig{
			Timeout: 2 * time.Minute,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PARLO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PARLO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PARLO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if baseURL := os.Getenv("PARLO_SERVER_BASE_URL"); baseURL != "" {
		config.Server.BaseURL = baseURL
	}

	// Storage configuration
	if badgerPath := os.Getenv("PARLO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("PARLO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("PARLO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("PARLO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Vault configuration
	if key := os.Getenv("PARLO_VAULT_KEY"); key != "" {
		config.Vault.Key = key
	}

	// OAuth configuration
	if clientID := os.Getenv("PARLO_OAUTH_CLIENT_ID"); clientID != "" {
		config.OAuth.ClientID = clientID
	}
	if clientSecret := os.Getenv("PARLO_OAUTH_CLIENT_SECRET"); clientSecret != "" {
		config.OAuth.ClientSecret = clientSecret
	}
	if redirectURL := os.Getenv("PARLO_OAUTH_REDIRECT_URL"); redirectURL != "" {
		config.OAuth.RedirectURL = redirectURL
	}
	if stateSecret := os.Getenv("PARLO_OAUTH_STATE_SECRET"); stateSecret != "" {
		config.OAuth.StateSecret = stateSecret
	}
	if integrationsURL := os.Getenv("PARLO_OAUTH_INTEGRATIONS_URL"); integrationsURL != "" {
		config.OAuth.IntegrationsURL = integrationsURL
	}

	// Maps configuration
	if apiKey := os.Getenv("PARLO_MAPS_API_KEY"); apiKey != "" {
		config.Maps.APIKey = apiKey
	}

	// Voice platform configuration
	if apiKey := os.Getenv("PARLO_VOICE_API_KEY"); apiKey != "" {
		config.Voice.APIKey = apiKey
	}
	if baseURL := os.Getenv("PARLO_VOICE_BASE_URL"); baseURL != "" {
		config.Voice.BaseURL = baseURL
	}
	if phoneNumberID := os.Getenv("PARLO_VOICE_PHONE_NUMBER_ID"); phoneNumberID != "" {
		config.Voice.PhoneNumberID = phoneNumberID
	}

	// Mail configuration
	if host := os.Getenv("PARLO_MAIL_HOST"); host != "" {
		config.Mail.Host = host
	}
	if port := os.Getenv("PARLO_MAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mail.Port = p
		}
	}
	if username := os.Getenv("PARLO_MAIL_USERNAME"); username != "" {
		config.Mail.Username = username
	}
	if password := os.Getenv("PARLO_MAIL_PASSWORD"); password != "" {
		config.Mail.Password = password
	}
	if from := os.Getenv("PARLO_MAIL_FROM"); from != "" {
		config.Mail.From = from
	}

	// Automation configuration
	if endpoint := os.Getenv("PARLO_AUTOMATION_ENDPOINT"); endpoint != "" {
		config.Automation.Endpoint = endpoint
	}

	// Gemini configuration
	if apiKey := os.Getenv("PARLO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PARLO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if temperature := os.Getenv("PARLO_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("PARLO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // PARLO_ prefix takes priority
	}
	if model := os.Getenv("PARLO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("PARLO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("PARLO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key with KV-store-first priority:
// KV store entry -> config fallback. Lets operators rotate keys at
// runtime without restarting.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	if kvStorage != nil {
		if value, err := kvStorage.Get(ctx, name); err == nil && value != "" {
			return value, nil
		}
	}
	if configFallback != "" {
		return configFallback, nil
	}
	return "", fmt.Errorf("no API key found for %s", name)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Validate checks settings that have no workable default
func (c *Config) Validate() error {
	if c.Vault.Key == "" {
		return fmt.Errorf("vault.key is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}
