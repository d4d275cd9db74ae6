package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the process-wide configuration, loaded once at startup
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	LLM      LLMConfig      `toml:"llm"`
	Mail     MailConfig     `toml:"mail"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Storage  StorageConfig  `toml:"storage"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	MaxUploadMB        int      `toml:"max_upload_mb"`
	MaxImagePixels     int      `toml:"max_image_pixels"` // width * height limit for uploads
	StaticFilesDir     string   `toml:"static_files_dir"` // empty serves the embedded UI
	ShutdownTimeoutSec int      `toml:"shutdown_timeout_seconds"`
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LLMConfig represents the chat-completion model configuration.
// BaseURL may point at any OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxRetries     int     `toml:"max_retries"`
}

// MailConfig represents the SMTP relay configuration
type MailConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Username       string `toml:"username"` // defaults to Sender
	Password       string `toml:"password"`
	Sender         string `toml:"sender"`
	Receiver       string `toml:"receiver"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// PipelineConfig represents the agent pipeline configuration
type PipelineConfig struct {
	MaxTurns          int    `toml:"max_turns"`
	TerminationPhrase string `toml:"termination_phrase"`
	AnalystTag        string `toml:"analyst_tag"`
}

// StorageConfig represents the optional audit record sink
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// MetricsConfig represents the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Environment variables that override secrets and addresses from the file
const (
	EnvLLMAPIKey    = "MAINTLOG_LLM_API_KEY"
	EnvMailPassword = "MAINTLOG_MAIL_PASSWORD"
	EnvMailSender   = "MAINTLOG_MAIL_SENDER"
	EnvMailReceiver = "MAINTLOG_MAIL_RECEIVER"
)

// DefaultTerminationPhrase is emitted by the analyzer when the image is not aviation maintenance content
const DefaultTerminationPhrase = "Please provide the flight log chart for the analysis."

// Default returns the configuration used for any value the file leaves out
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSAllowedOrigins: []string{},
			MaxUploadMB:        10,
			MaxImagePixels:     40_000_000,
			ShutdownTimeoutSec: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:          "gemini-1.5-flash-8b",
			Temperature:    0.1,
			TimeoutSeconds: 120,
			MaxRetries:     2,
		},
		Mail: MailConfig{
			Host:           "smtp.gmail.com",
			Port:           465,
			TimeoutSeconds: 30,
		},
		Pipeline: PipelineConfig{
			MaxTurns:          5,
			TerminationPhrase: DefaultTerminationPhrase,
			AnalystTag:        "AutoGen_System",
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "data/maintlog.db",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads the TOML file at path on top of the defaults, applies
// environment overrides and validates the result. The file must exist.
func Load(path string) (*Config, error) {
	return load(path, false)
}

// LoadOptional is Load for the implicit default path: a missing file
// is not an error and defaults plus environment are used.
func LoadOptional(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, optional bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !optional || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLLMAPIKey); ok && v != "" {
		c.LLM.APIKey = v
	}
	if v, ok := lookup(EnvMailPassword); ok && v != "" {
		c.Mail.Password = v
	}
	if v, ok := lookup(EnvMailSender); ok && v != "" {
		c.Mail.Sender = v
	}
	if v, ok := lookup(EnvMailReceiver); ok && v != "" {
		c.Mail.Receiver = v
	}
}

func (c *Config) applyDerived() {
	if c.Mail.Username == "" {
		c.Mail.Username = c.Mail.Sender
	}
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if c.Server.MaxImagePixels <= 0 {
		problems = append(problems, "server.max_image_pixels must be positive")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("llm.temperature out of range: %v", c.LLM.Temperature))
	}
	if c.Mail.Host == "" {
		problems = append(problems, "mail.host is required")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		problems = append(problems, fmt.Sprintf("mail.port out of range: %d", c.Mail.Port))
	}
	if c.Pipeline.MaxTurns <= 0 {
		problems = append(problems, "pipeline.max_turns must be positive")
	}
	if strings.TrimSpace(c.Pipeline.TerminationPhrase) == "" {
		problems = append(problems, "pipeline.termination_phrase is required")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		problems = append(problems, "storage.path is required when storage is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
