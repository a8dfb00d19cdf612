package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned when the backend URL or key for the
// requested role is not present in the environment.
var ErrMissingCredentials = errors.New("missing backend credentials")

// KeyRole selects which backend key an operation authenticates with
type KeyRole int

const (
	// ServiceRole bypasses row-level security; used by administrative commands
	ServiceRole KeyRole = iota
	// AnonRole is the lower-privilege key for read-mostly commands
	AnonRole
)

func (r KeyRole) String() string {
	if r == ServiceRole {
		return "service_role"
	}
	return "anon"
}

// Error describes a configuration problem detected before any network call
type Error struct {
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %v (%s)", e.Err, strings.Join(e.Missing, ", "))
}

func (e *Error) Unwrap() error { return e.Err }

// Credentials is the URL/key pair a backend client is built from
type Credentials struct {
	URL  string
	Key  string
	Role KeyRole
}

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Port        string

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseAnonKey    string
	SupabaseJWTSecret  string

	// Optional direct SQL DSN: postgres://, mysql://, sqlite:// or a file path
	DatabaseURL string

	// External language-model provider
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	UploadDelay       time.Duration
	UploadBatchSize   int
	UploadStrict      bool
	RequestTimeout    time.Duration
	GenerationTable   string
	GenerationCron    string
	AnalyticsCacheTTL time.Duration
	AllowedOrigins    string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	anonKey := getEnv("SUPABASE_ANON_KEY", "")
	if anonKey == "" {
		anonKey = getEnv("SUPABASE_KEY", "")
	}

	return &Config{
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "3001"),

		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseAnonKey:    anonKey,
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		UploadDelay:       getDurationEnv("UPLOAD_DELAY", 500*time.Millisecond),
		UploadBatchSize:   getIntEnv("UPLOAD_BATCH_SIZE", 1),
		UploadStrict:      getBoolEnv("UPLOAD_STRICT", false),
		RequestTimeout:    getDurationEnv("REQUEST_TIMEOUT", 30*time.Second),
		GenerationTable:   getEnv("GENERATION_TABLE", "training_data_algorithm"),
		GenerationCron:    getEnv("GENERATION_SCHEDULE", ""),
		AnalyticsCacheTTL: getDurationEnv("ANALYTICS_CACHE_TTL", time.Minute),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

// Backend returns the credentials for the given key role. It never touches the
// network; a missing URL or key yields a *Error wrapping ErrMissingCredentials.
func (c *Config) Backend(role KeyRole) (Credentials, error) {
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	key := c.SupabaseAnonKey
	keyVar := "SUPABASE_KEY"
	if role == ServiceRole {
		key = c.SupabaseServiceKey
		keyVar = "SUPABASE_SERVICE_ROLE_KEY"
	}
	if key == "" {
		missing = append(missing, keyVar)
	}

	if len(missing) > 0 {
		return Credentials{}, &Error{Missing: missing, Err: ErrMissingCredentials}
	}
	return Credentials{URL: c.SupabaseURL, Key: key, Role: role}, nil
}

// LLMKey returns the API key for the configured provider
func (c *Config) LLMKey() (string, error) {
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return "", &Error{Missing: []string{"ANTHROPIC_API_KEY"}, Err: ErrMissingCredentials}
		}
		return c.AnthropicAPIKey, nil
	case "openai", "":
		if c.OpenAIAPIKey == "" {
			return "", &Error{Missing: []string{"OPENAI_API_KEY"}, Err: ErrMissingCredentials}
		}
		return c.OpenAIAPIKey, nil
	default:
		return "", fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		// Bare integers are milliseconds
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
