// Package config loads the service configuration from defaults, an optional
// config file, a .env file and MEDASSIST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const EnvPrefix = "MEDASSIST"

// Backends that can answer questions.
const (
	BackendInference = "inference"
	BackendOllama    = "ollama"
	BackendGemini    = "gemini"
)

var (
	Backends            = []string{BackendInference, BackendOllama, BackendGemini}
	TranslationServices = []string{"googleweb", "google", "mymemory", "ollama"}
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	CSRF        CSRFConfig        `mapstructure:"csrf"`
	Log         LogConfig         `mapstructure:"log"`
	Assistant   AssistantConfig   `mapstructure:"assistant"`
	Model       ModelConfig       `mapstructure:"model"`
	Generation  GenerationConfig  `mapstructure:"generation"`
	Translation TranslationConfig `mapstructure:"translation"`
	History     HistoryConfig     `mapstructure:"history"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MetricsToken protects /metrics when set.
	MetricsToken string `mapstructure:"metrics_token"`
}

type CSRFConfig struct {
	// Key is the 32-byte authentication key. Empty disables CSRF protection.
	Key            string   `mapstructure:"key"`
	Secure         bool     `mapstructure:"secure"`
	TrustedOrigins []string `mapstructure:"trusted_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type AssistantConfig struct {
	// Pivot is the language the model understands.
	Pivot          string        `mapstructure:"pivot"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ModelConfig struct {
	Backend string `mapstructure:"backend"`
	// Dir is the local pretrained model directory served by the inference backend.
	Dir     string        `mapstructure:"dir"`
	URL     string        `mapstructure:"url"`
	Name    string        `mapstructure:"name"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GenerationConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

type TranslationConfig struct {
	Services          []string      `mapstructure:"services"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	Validate          bool          `mapstructure:"validate"`
	GoogleCredentials string        `mapstructure:"google_credentials"`
	MyMemoryEmail     string        `mapstructure:"mymemory_email"`
	OllamaURL         string        `mapstructure:"ollama_url"`
	OllamaModel       string        `mapstructure:"ollama_model"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// SetDefaults registers every key with its default so environment variables
// are picked up for all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 180*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.metrics_token", "")

	v.SetDefault("csrf.key", "")
	v.SetDefault("csrf.secure", false)
	v.SetDefault("csrf.trusted_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("assistant.pivot", "en")
	v.SetDefault("assistant.request_timeout", 150*time.Second)

	v.SetDefault("model.backend", BackendInference)
	v.SetDefault("model.dir", "")
	v.SetDefault("model.url", "http://localhost:8000")
	v.SetDefault("model.name", "")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.timeout", 120*time.Second)

	v.SetDefault("generation.max_concurrent", 1)

	v.SetDefault("translation.services", []string{"googleweb"})
	v.SetDefault("translation.timeout", 30*time.Second)
	v.SetDefault("translation.max_attempts", 3)
	v.SetDefault("translation.retry_delay", 500*time.Millisecond)
	v.SetDefault("translation.validate", true)
	v.SetDefault("translation.google_credentials", "")
	v.SetDefault("translation.mymemory_email", "")
	v.SetDefault("translation.ollama_url", "http://localhost:11434")
	v.SetDefault("translation.ollama_model", "llama3.2")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "./data/medassist.db")
}

// Load reads configuration into v and decodes it. configFile may be empty.
// Precedence: flags bound on v, environment, config file, defaults.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Model.Backend = strings.ToLower(strings.TrimSpace(c.Model.Backend))
	c.Assistant.Pivot = strings.ToLower(strings.TrimSpace(c.Assistant.Pivot))
	services := make([]string, 0, len(c.Translation.Services))
	for _, s := range c.Translation.Services {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			services = append(services, s)
		}
	}
	c.Translation.Services = services
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var errs []error

	if !slices.Contains(Backends, c.Model.Backend) {
		errs = append(errs, fmt.Errorf("model.backend: unknown backend %q (want one of %s)", c.Model.Backend, strings.Join(Backends, ", ")))
	}
	if c.Model.Backend == BackendInference && c.Model.Dir == "" {
		errs = append(errs, errors.New("model.dir is required for the inference backend"))
	}
	if c.Model.Backend == BackendGemini && c.Model.APIKey == "" {
		errs = append(errs, errors.New("model.api_key is required for the gemini backend"))
	}

	if len(c.Translation.Services) == 0 {
		errs = append(errs, errors.New("translation.services must name at least one service"))
	}
	for _, s := range c.Translation.Services {
		if !slices.Contains(TranslationServices, s) {
			errs = append(errs, fmt.Errorf("translation.services: unknown service %q", s))
		}
	}

	if c.CSRF.Key != "" && len(c.CSRF.Key) < 32 {
		errs = append(errs, fmt.Errorf("csrf.key must be at least 32 bytes, got %d", len(c.CSRF.Key)))
	}

	if _, err := language.Parse(c.Assistant.Pivot); err != nil {
		errs = append(errs, fmt.Errorf("assistant.pivot: %w", err))
	}

	if c.Generation.MaxConcurrent < 1 {
		errs = append(errs, errors.New("generation.max_concurrent must be at least 1"))
	}

	return errors.Join(errs...)
}

// LogStatus logs the effective configuration with secrets masked.
func LogStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	logger.Debug(
		"config_status",
		"env_file", fileExists(".env"),
		"addr", cfg.Server.Addr,
		"metrics_token", maskSecret(cfg.Server.MetricsToken),
		"csrf_key", maskSecret(cfg.CSRF.Key),
		"csrf_secure", cfg.CSRF.Secure,
		"pivot", cfg.Assistant.Pivot,
		"backend", cfg.Model.Backend,
		"model_dir", cfg.Model.Dir,
		"model_url", cfg.Model.URL,
		"model_name", cfg.Model.Name,
		"model_api_key", maskSecret(cfg.Model.APIKey),
		"max_concurrent", cfg.Generation.MaxConcurrent,
		"translation_services", strings.Join(cfg.Translation.Services, ","),
		"translation_validate", cfg.Translation.Validate,
		"history_enabled", cfg.History.Enabled,
		"history_path", cfg.History.Path,
		"log_dir", cfg.Log.Dir,
	)
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
