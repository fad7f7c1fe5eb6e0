package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"DowSentinel/internal/collector"
	"DowSentinel/internal/model"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL    string  `yaml:"base_url"`
		Category   string  `yaml:"category"`
		Limit      int     `yaml:"limit"`
		RateLimit  float64 `yaml:"rate_limit"`
		MaxRetries int     `yaml:"max_retries"`
	} `yaml:"data_source"`
	Targets  []model.Target `yaml:"targets"`
	Analysis struct {
		Period        int    `yaml:"period"`
		Retention     int    `yaml:"retention"`
		DataDir       string `yaml:"data_dir"`
		OutputDir     string `yaml:"output_dir"`
		FullRecompute bool   `yaml:"full_recompute"`
	} `yaml:"analysis"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads an optional .env file and config from a YAML file, then applies environment
// variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BYBIT_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("BYBIT_CATEGORY"); v != "" {
		cfg.DataSource.Category = v
	}
	if v := os.Getenv("TARGETS"); v != "" {
		targets, err := ParseTargets(v)
		if err != nil {
			return nil, fmt.Errorf("TARGETS: %w", err)
		}
		cfg.Targets = targets
	}
	if v := os.Getenv("SWING_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.Period = n
		}
	}
	if v := os.Getenv("FULL_RECOMPUTE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.FullRecompute = b
		}
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.DataSource.BaseURL == "" {
		cfg.DataSource.BaseURL = collector.DefaultBybitURL
	}
	if cfg.DataSource.Category == "" {
		cfg.DataSource.Category = "linear"
	}
	if cfg.DataSource.Limit == 0 {
		cfg.DataSource.Limit = 200
	}
	if cfg.DataSource.RateLimit == 0 {
		cfg.DataSource.RateLimit = 10
	}
	if cfg.DataSource.MaxRetries == 0 {
		cfg.DataSource.MaxRetries = 3
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []model.Target{{Symbol: "BTCUSDT", Interval: "60"}}
	}
	if cfg.Analysis.Period == 0 {
		cfg.Analysis.Period = 5
	}
	if cfg.Analysis.Retention == 0 {
		cfg.Analysis.Retention = 200
	}
	if cfg.Analysis.DataDir == "" {
		cfg.Analysis.DataDir = "data"
	}
	if cfg.Analysis.OutputDir == "" {
		cfg.Analysis.OutputDir = "analysis"
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "0 */5 * * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.DataSource.Limit < 1 || c.DataSource.Limit > 1000 {
		return fmt.Errorf("data_source.limit must be within 1..1000")
	}
	if c.DataSource.RateLimit < 0 {
		return fmt.Errorf("data_source.rate_limit must not be negative")
	}
	if c.Analysis.Period <= 0 {
		return fmt.Errorf("analysis.period must be positive")
	}
	if c.Analysis.Retention <= 0 {
		return fmt.Errorf("analysis.retention must be positive")
	}
	seen := make(map[model.Target]bool, len(c.Targets))
	for _, t := range c.Targets {
		if t.Symbol == "" {
			return fmt.Errorf("targets: symbol is required")
		}
		if err := collector.ValidateInterval(t.Interval); err != nil {
			return fmt.Errorf("targets %s: %w", t, err)
		}
		if seen[t] {
			return fmt.Errorf("targets: %s listed twice", t)
		}
		seen[t] = true
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// ParseTargets parses "SYMBOL:INTERVAL" pairs separated by commas, e.g. "BTCUSDT:60,ETHUSDT:D".
func ParseTargets(s string) ([]model.Target, error) {
	var targets []model.Target
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		symbol, interval, ok := strings.Cut(part, ":")
		if !ok || symbol == "" || interval == "" {
			return nil, fmt.Errorf("invalid target %q, want SYMBOL:INTERVAL", part)
		}
		targets = append(targets, model.Target{Symbol: strings.ToUpper(symbol), Interval: interval})
	}
	return targets, nil
}
