package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/receipt/internal/config"
)

var allKeys = []string{
	"RECEIPT_ENV",
	"RECEIPT_LOG_FORMAT",
	"RECEIPT_LOG_LEVEL",
	"RECEIPT_CATALOG_PATH",
	"RECEIPT_ON_MALFORMED",
	"RECEIPT_OUTPUT_FORMAT",
	"RECEIPT_METRICS_FILE",
	"RECEIPT_METRICS_NAMESPACE",
}

func cleanEnv(overrides map[string]string) map[string]string {
	env := make(map[string]string, len(allKeys))
	for _, k := range allKeys {
		env[k] = ""
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(cleanEnv(nil))
	require.NoError(t, err)
	require.Equal(t, &config.Config{
		AppEnv:           "development",
		LogFormat:        "console",
		LogLevel:         "warn",
		OnMalformed:      "reject",
		OutputFormat:     "text",
		MetricsNamespace: "receipt",
	}, cfg)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(cleanEnv(map[string]string{
		"RECEIPT_ENV":               "production",
		"RECEIPT_LOG_FORMAT":        "JSON",
		"RECEIPT_LOG_LEVEL":         "debug",
		"RECEIPT_CATALOG_PATH":      " /etc/receipt/catalog.yaml ",
		"RECEIPT_ON_MALFORMED":      "skip",
		"RECEIPT_OUTPUT_FORMAT":     "json",
		"RECEIPT_METRICS_FILE":      "/tmp/receipt.prom",
		"RECEIPT_METRICS_NAMESPACE": "shop",
	}))
	require.NoError(t, err)
	require.Equal(t, "production", cfg.AppEnv)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/etc/receipt/catalog.yaml", cfg.CatalogPath)
	require.Equal(t, "skip", cfg.OnMalformed)
	require.Equal(t, "json", cfg.OutputFormat)
	require.Equal(t, "/tmp/receipt.prom", cfg.MetricsFile)
	require.Equal(t, "shop", cfg.MetricsNamespace)
}

func TestLoadRejectsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"RECEIPT_LOG_FORMAT":    "xml",
		"RECEIPT_LOG_LEVEL":     "loud",
		"RECEIPT_ON_MALFORMED":  "ignore",
		"RECEIPT_OUTPUT_FORMAT": "html",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := config.LoadForTests(cleanEnv(map[string]string{key: value}))
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadForTestsRestoresEnvironment(t *testing.T) {
	t.Setenv("RECEIPT_LOG_LEVEL", "error")

	cfg, err := config.LoadForTests(map[string]string{"RECEIPT_LOG_LEVEL": "info"})
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "error", os.Getenv("RECEIPT_LOG_LEVEL"))
}

func TestValidateAfterOverride(t *testing.T) {
	cfg, err := config.LoadForTests(cleanEnv(nil))
	require.NoError(t, err)

	cfg.OutputFormat = "yaml"
	require.Error(t, cfg.Validate())

	cfg.OutputFormat = "json"
	cfg.MetricsNamespace = ""
	require.Error(t, cfg.Validate())
}
