package config

import (
	"fmt"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RECEIPT_"

// Config holds the receipt settings loaded from the environment.
type Config struct {
	AppEnv           string
	LogFormat        string `validate:"oneof=json console text"`
	LogLevel         string `validate:"oneof=trace debug info warn error fatal panic disabled"`
	CatalogPath      string
	OnMalformed      string `validate:"oneof=reject skip"`
	OutputFormat     string `validate:"oneof=text json"`
	MetricsFile      string
	MetricsNamespace string `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:           valueOrDefault(k.String("RECEIPT_ENV"), "development"),
		LogFormat:        lower(valueOrDefault(k.String("RECEIPT_LOG_FORMAT"), "console")),
		LogLevel:         lower(valueOrDefault(k.String("RECEIPT_LOG_LEVEL"), "warn")),
		CatalogPath:      strings.TrimSpace(k.String("RECEIPT_CATALOG_PATH")),
		OnMalformed:      lower(valueOrDefault(k.String("RECEIPT_ON_MALFORMED"), "reject")),
		OutputFormat:     lower(valueOrDefault(k.String("RECEIPT_OUTPUT_FORMAT"), "text")),
		MetricsFile:      strings.TrimSpace(k.String("RECEIPT_METRICS_FILE")),
		MetricsNamespace: valueOrDefault(k.String("RECEIPT_METRICS_NAMESPACE"), "receipt"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings. Callers overriding fields should validate again.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func lower(value string) string {
	return strings.ToLower(value)
}

// LoadForTests sets the given environment variables, loads the config and restores the previous values.
// An empty value unsets the variable for the duration of the load.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
