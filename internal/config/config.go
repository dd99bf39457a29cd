// Package config loads the bot configuration from the environment and an optional .env file.
package config

import (
	"github.com/joho/godotenv"
	"github.com/myrjola/portrait/internal/envstruct"
	"github.com/myrjola/portrait/internal/errors"
	"io/fs"
	"log/slog"
	"time"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

var ErrInvalidConfig = errors.NewSentinel("invalid configuration")

type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
	TelegramMode  string `env:"TELEGRAM_MODE" envDefault:"polling"`
	WebhookURL    string `env:"WEBHOOK_URL" envDefault:""`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:"localhost:4000"`
	PprofAddr     string `env:"PPROF_ADDR" envDefault:""`

	OpenAIKey       string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:""`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	LLMMaxTokens    int    `env:"LLM_MAX_TOKENS" envDefault:"1500"`
	LLMRatePerMin   int    `env:"LLM_RATE_PER_MINUTE" envDefault:"20"`
	LLMProviderName string `env:"LLM_PROVIDER_NAME" envDefault:"OpenAI"`

	DataDir    string `env:"DATA_DIR" envDefault:"./data"`
	OutDir     string `env:"OUT_DIR" envDefault:"./out"`
	ScratchDir string `env:"SCRATCH_DIR" envDefault:""`
	FontDir    string `env:"FONT_DIR" envDefault:"./data/fonts"`

	BuildTimeout   time.Duration `env:"BUILD_TIMEOUT" envDefault:"60s"`
	ChartTimeout   time.Duration `env:"CHART_TIMEOUT" envDefault:"5s"`
	PDFTimeout     time.Duration `env:"PDF_TIMEOUT" envDefault:"10s"`
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"3h"`

	AppendixEnabled bool   `env:"APPENDIX_ENABLED" envDefault:"false"`
	AccessToken     string `env:"ACCESS_TOKEN" envDefault:""`

	WebDAVURL      string `env:"WEBDAV_URL" envDefault:""`
	WebDAVUser     string `env:"WEBDAV_USER" envDefault:""`
	WebDAVPassword string `env:"WEBDAV_PASSWORD" envDefault:""`
	WebDAVFolder   string `env:"WEBDAV_FOLDER" envDefault:"portraits"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the .env file at dotenvPath when it exists and populates Config from lookupEnv.
//
// lookupEnv has the same signature as [os.LookupEnv]. Values already present in the process
// environment take precedence over the .env file.
func Load(dotenvPath string, lookupEnv func(string) (string, bool)) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "load dotenv", slog.String("path", dotenvPath))
		}
	}

	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late, in the middle of a session.
func (c *Config) Validate() error {
	var errs []error
	switch c.TelegramMode {
	case ModePolling:
	case ModeWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.Wrap(ErrInvalidConfig, "webhook mode requires WEBHOOK_URL"))
		}
	default:
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "unknown TELEGRAM_MODE",
			slog.String("mode", c.TelegramMode)))
	}
	for name, d := range map[string]time.Duration{
		"BUILD_TIMEOUT":   c.BuildTimeout,
		"CHART_TIMEOUT":   c.ChartTimeout,
		"PDF_TIMEOUT":     c.PDFTimeout,
		"SESSION_TIMEOUT": c.SessionTimeout,
	} {
		if d <= 0 {
			errs = append(errs, errors.Wrap(ErrInvalidConfig, "timeout must be positive",
				slog.String("name", name), slog.Duration("value", d)))
		}
	}
	if c.LLMRatePerMin <= 0 {
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "LLM_RATE_PER_MINUTE must be positive"))
	}
	if c.DataDir == "" || c.OutDir == "" {
		errs = append(errs, errors.Wrap(ErrInvalidConfig, "DATA_DIR and OUT_DIR are required"))
	}
	return errors.Join(errs...)
}

// LLMEnabled reports whether interpretation requests go to the provider. Without a key every
// instrument gets its fallback text.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIKey != ""
}

// ArchiveEnabled reports whether the cloud archive copy is uploaded.
func (c *Config) ArchiveEnabled() bool {
	return c.WebDAVURL != ""
}

// LogValue masks secrets.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("telegram_mode", c.TelegramMode),
		slog.Bool("telegram_token_set", c.TelegramToken != ""),
		slog.Bool("llm_enabled", c.LLMEnabled()),
		slog.String("llm_model", c.OpenAIModel),
		slog.String("data_dir", c.DataDir),
		slog.String("out_dir", c.OutDir),
		slog.Duration("build_timeout", c.BuildTimeout),
		slog.Bool("appendix", c.AppendixEnabled),
		slog.Bool("access_token_set", c.AccessToken != ""),
		slog.Bool("archive_enabled", c.ArchiveEnabled()),
	)
}
