package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "LABSAI"

type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Export    ExportConfig    `mapstructure:"export"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres, file
	DSN    string `mapstructure:"dsn"`
	File   string `mapstructure:"file"`
}

type AnalysisConfig struct {
	Backend        string        `mapstructure:"backend"` // service, llm
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	CacheSize      int           `mapstructure:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

// LLMConfig picks the provider for the llm backend. Empty values fall back
// to LLM_PROVIDER and the provider's *_MODEL environment variable.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

type ReferenceConfig struct {
	File string `mapstructure:"file"`
}

type ExportConfig struct {
	Delimiter string `mapstructure:"delimiter"`
	Union     bool   `mapstructure:"union"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load merges defaults, an optional config file, LABSAI_* environment
// variables and the given flags, in increasing order of precedence. flags maps
// config keys such as "store.driver" to the flag that overrides them.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("labs-ai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "labs-ai"))
		}
		v.AddConfigPath("/etc/labs-ai/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", DefaultDatabasePath())
	v.SetDefault("store.file", "")

	v.SetDefault("analysis.backend", "service")
	v.SetDefault("analysis.url", "http://localhost:8000")
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.rate_limit", 2.0)
	v.SetDefault("analysis.cache_size", 128)
	v.SetDefault("analysis.cache_ttl", "15m")
	v.SetDefault("analysis.breaker_timeout", "60s")

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")

	v.SetDefault("reference.file", "")

	v.SetDefault("export.delimiter", ",")
	v.SetDefault("export.union", false)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// DefaultDatabasePath is ~/.labs-ai/labs.db, or a relative path when there is no home directory.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".labs-ai", "labs.db")
	}
	return filepath.Join(home, ".labs-ai", "labs.db")
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver)
		}
	case "file":
		if c.Store.File == "" {
			return fmt.Errorf("store.file is required for the file driver")
		}
	default:
		return fmt.Errorf("invalid store driver: %s", c.Store.Driver)
	}

	switch c.Analysis.Backend {
	case "service":
		if c.Analysis.URL == "" {
			return fmt.Errorf("analysis.url is required for the service backend")
		}
	case "llm":
	default:
		return fmt.Errorf("invalid analysis backend: %s", c.Analysis.Backend)
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis.timeout must be positive")
	}
	if c.Analysis.RateLimit < 0 {
		return fmt.Errorf("analysis.rate_limit must not be negative")
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", "claude", "openai":
	default:
		return fmt.Errorf("invalid llm provider: %s (supported: claude, openai)", c.LLM.Provider)
	}

	if utf8.RuneCountInString(c.Export.Delimiter) != 1 {
		return fmt.Errorf("export.delimiter must be a single character, got %q", c.Export.Delimiter)
	}
	return nil
}

// DelimiterRune returns the export delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Export.Delimiter)
	return r
}
