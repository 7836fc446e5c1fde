package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ProblemScout/internal/analysis"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "PROBLEMSCOUT_CONFIG"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	analyzerProviderEnv = "ANALYZER_PROVIDER"
	analyzerAPIKeyEnv   = "ANALYZER_API_KEY"
	analyzerModelEnv    = "ANALYZER_MODEL"
	analyzerEndpointEnv = "ANALYZER_ENDPOINT"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	httpAddrEnv         = "HTTP_ADDR"
	logLevelEnv         = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Server        ServerConfig       `yaml:"server"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Analyzer      AnalyzerConfig     `yaml:"analyzer"`
	Analysis      analysis.Config    `yaml:"analysis"`
	Submission    SubmissionConfig   `yaml:"submission"`
	Ingestion     IngestionConfig    `yaml:"ingestion"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQL backend; driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// SchedulerConfig defines how often feeds are ingested.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// AnalyzerConfig selects and configures the structured-text analyzer.
// Provider is one of "openai", "gemini", "anthropic", "inference" or empty (local fallbacks only).
type AnalyzerConfig struct {
	Provider     string        `yaml:"provider"`
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxTokens    int           `yaml:"maxTokens"`
}

// SubmissionConfig validates direct submissions.
type SubmissionConfig struct {
	MinTextLength int `yaml:"minTextLength"`
}

// IngestionConfig tunes feed fetching and batch processing.
type IngestionConfig struct {
	Concurrency       int     `yaml:"concurrency"`
	MinContentLength  int     `yaml:"minContentLength"`
	PostLimit         int     `yaml:"postLimit"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	UserAgent         string  `yaml:"userAgent"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name     string            `yaml:"name"`
	Scanner  string            `yaml:"scanner"`
	Channels []ChannelConfig   `yaml:"channels"`
	Options  map[string]string `yaml:"options"`
}

// ChannelConfig holds one concrete feed endpoint (a subreddit, a board page).
type ChannelConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit config path; empty path means defaults only.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	cfg.Analysis = cfg.Analysis.Normalize()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(analyzerProviderEnv); v != "" {
		c.Analyzer.Provider = v
	}
	if v := os.Getenv(analyzerAPIKeyEnv); v != "" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv(analyzerModelEnv); v != "" {
		c.Analyzer.Model = v
	}
	if v := os.Getenv(analyzerEndpointEnv); v != "" {
		c.Analyzer.Endpoint = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Analyzer.Provider != "" {
		base.Analyzer.Provider = override.Analyzer.Provider
	}
	if override.Analyzer.Endpoint != "" {
		base.Analyzer.Endpoint = override.Analyzer.Endpoint
	}
	if override.Analyzer.Model != "" {
		base.Analyzer.Model = override.Analyzer.Model
	}
	if override.Analyzer.APIKey != "" {
		base.Analyzer.APIKey = override.Analyzer.APIKey
	}
	if override.Analyzer.SystemPrompt != "" {
		base.Analyzer.SystemPrompt = override.Analyzer.SystemPrompt
	}
	if override.Analyzer.Timeout > 0 {
		base.Analyzer.Timeout = override.Analyzer.Timeout
	}
	if override.Analyzer.MaxTokens > 0 {
		base.Analyzer.MaxTokens = override.Analyzer.MaxTokens
	}

	// Zero analysis values are filled from analysis.DefaultConfig by Normalize.
	base.Analysis = override.Analysis

	if override.Submission.MinTextLength > 0 {
		base.Submission.MinTextLength = override.Submission.MinTextLength
	}

	if override.Ingestion.Concurrency > 0 {
		base.Ingestion.Concurrency = override.Ingestion.Concurrency
	}
	if override.Ingestion.MinContentLength > 0 {
		base.Ingestion.MinContentLength = override.Ingestion.MinContentLength
	}
	if override.Ingestion.PostLimit > 0 {
		base.Ingestion.PostLimit = override.Ingestion.PostLimit
	}
	if override.Ingestion.RequestsPerSecond > 0 {
		base.Ingestion.RequestsPerSecond = override.Ingestion.RequestsPerSecond
	}
	if override.Ingestion.UserAgent != "" {
		base.Ingestion.UserAgent = override.Ingestion.UserAgent
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "file:problemscout.db?_pragma=foreign_keys(1)"},
		Server:    ServerConfig{Addr: ":8080"},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Analyzer: AnalyzerConfig{
			// Endpoint and model stay empty so each provider applies its own defaults.
			Provider:     "",
			SystemPrompt: "You analyze short problem statements and answer only with the requested structured fields.",
			Timeout:      30 * time.Second,
			MaxTokens:    2048,
		},
		Analysis:   analysis.DefaultConfig(),
		Submission: SubmissionConfig{MinTextLength: 20},
		Ingestion: IngestionConfig{
			Concurrency:       4,
			MinContentLength:  20,
			PostLimit:         25,
			RequestsPerSecond: 1,
			UserAgent:         "ProblemScout/1.0",
		},
		Sites: []SiteConfig{
			{
				Name:    "reddit-default",
				Scanner: "reddit",
				Channels: []ChannelConfig{
					{Name: "Entrepreneur", URL: "https://www.reddit.com/r/Entrepreneur/new.json"},
					{Name: "smallbusiness", URL: "https://www.reddit.com/r/smallbusiness/new.json"},
				},
			},
		},
	}
}
