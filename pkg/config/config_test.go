package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LABSAI_STORE_DRIVER", "LABSAI_STORE_DSN", "LABSAI_STORE_FILE",
		"LABSAI_ANALYSIS_BACKEND", "LABSAI_ANALYSIS_URL", "LABSAI_ANALYSIS_TIMEOUT",
		"LABSAI_EXPORT_DELIMITER", "LABSAI_LOG_LEVEL",
		"LABSAI_LLM_PROVIDER", "LABSAI_LLM_MODEL",
	} {
		os.Unsetenv(key)
	}
}

func emptyDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	wd, _ := os.Getwd()
	require.NoError(t, os.Chdir(emptyDir(t)))
	defer os.Chdir(wd)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, DefaultDatabasePath(), cfg.Store.DSN)
	assert.Equal(t, "service", cfg.Analysis.Backend)
	assert.Equal(t, 30*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Analysis.CacheTTL)
	assert.Equal(t, 128, cfg.Analysis.CacheSize)
	assert.Equal(t, ",", cfg.Export.Delimiter)
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)
	defer clearEnvVars(t)

	os.Setenv("LABSAI_STORE_DRIVER", "postgres")
	os.Setenv("LABSAI_STORE_DSN", "postgres://localhost/labs")
	os.Setenv("LABSAI_ANALYSIS_TIMEOUT", "5s")
	os.Setenv("LABSAI_EXPORT_DELIMITER", ";")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/labs", cfg.Store.DSN)
	assert.Equal(t, 5*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, ';', cfg.DelimiterRune())
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	clearEnvVars(t)

	path := filepath.Join(emptyDir(t), "labs-ai.yaml")
	content := `
store:
  driver: file
  file: /data/history.json
analysis:
  backend: llm
  timeout: 45s
llm:
  provider: openai
  model: gpt-4o-mini
log:
  level: info
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "warn", "")
	flags.String("model", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug", "--model", "gpt-4.1"}))

	cfg, err := Load(path, map[string]*pflag.Flag{
		"log.level": flags.Lookup("log-level"),
		"llm.model": flags.Lookup("model"),
	})
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "/data/history.json", cfg.Store.File)
	assert.Equal(t, "llm", cfg.Analysis.Backend)
	assert.Equal(t, 45*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnvVars(t)

	_, err := Load(filepath.Join(emptyDir(t), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:    StoreConfig{Driver: "sqlite", DSN: "labs.db"},
			Analysis: AnalysisConfig{Backend: "service", URL: "http://x", Timeout: time.Second},
			Export:   ExportConfig{Delimiter: ","},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"file without path", func(c *Config) { c.Store.Driver = "file" }},
		{"sqlite without dsn", func(c *Config) { c.Store.DSN = "" }},
		{"unknown backend", func(c *Config) { c.Analysis.Backend = "magic" }},
		{"service without url", func(c *Config) { c.Analysis.URL = "" }},
		{"zero timeout", func(c *Config) { c.Analysis.Timeout = 0 }},
		{"negative rate", func(c *Config) { c.Analysis.RateLimit = -1 }},
		{"long delimiter", func(c *Config) { c.Export.Delimiter = "||" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "gemini" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
