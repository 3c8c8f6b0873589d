package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		InboxDir string `yaml:"inbox_dir"`
		DaysBack int    `yaml:"days_back"`
	} `yaml:"source"`
	Screening struct {
		RedMargin        float64 `yaml:"red_margin"`
		YellowMargin     float64 `yaml:"yellow_margin"`
		AccrualFractionK float64 `yaml:"accrual_fraction_k"`
	} `yaml:"screening"`
	Run struct {
		ConcurrencyLimit int    `yaml:"concurrency_limit"`
		PendingStateFile string `yaml:"pending_state_file"`
	} `yaml:"run"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Export struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"export"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("CRAWLER_BASE_URL"); v != "" {
		cfg.Source.BaseURL = v
	}
	if v := os.Getenv("EDINET_API_KEY"); v != "" {
		cfg.Source.APIKey = v
	}
	if v := os.Getenv("FILING_INBOX_DIR"); v != "" {
		cfg.Source.InboxDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}
	if v := os.Getenv("CONCURRENCY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Run.ConcurrencyLimit = n
		}
	}

	// Defaults
	if cfg.Source.DaysBack == 0 {
		cfg.Source.DaysBack = 365
	}
	if cfg.Screening.RedMargin == 0 {
		cfg.Screening.RedMargin = 0.30
	}
	if cfg.Screening.YellowMargin == 0 {
		cfg.Screening.YellowMargin = 0.10
	}
	if cfg.Screening.AccrualFractionK == 0 {
		cfg.Screening.AccrualFractionK = 0.5
	}
	if cfg.Run.ConcurrencyLimit == 0 {
		cfg.Run.ConcurrencyLimit = 4
	}
	if cfg.Run.PendingStateFile == "" {
		cfg.Run.PendingStateFile = "data/pending_state.json"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 6 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/edinet_screener.db"
	}

	return cfg, nil
}

// Validate checks the threshold invariants and run settings. A violation here
// is fatal at startup: the run never begins with a broken configuration.
func (c *Config) Validate() error {
	if c.Screening.YellowMargin <= 0 {
		return fmt.Errorf("screening.yellow_margin must be positive, got %v", c.Screening.YellowMargin)
	}
	if c.Screening.RedMargin <= c.Screening.YellowMargin {
		return fmt.Errorf("screening.red_margin (%v) must exceed yellow_margin (%v)",
			c.Screening.RedMargin, c.Screening.YellowMargin)
	}
	if c.Screening.AccrualFractionK <= 0 || c.Screening.AccrualFractionK > 1 {
		return fmt.Errorf("screening.accrual_fraction_k must be in (0, 1], got %v", c.Screening.AccrualFractionK)
	}
	if c.Run.ConcurrencyLimit < 1 {
		return fmt.Errorf("run.concurrency_limit must be at least 1, got %d", c.Run.ConcurrencyLimit)
	}
	if c.Source.BaseURL == "" && c.Source.InboxDir == "" {
		return fmt.Errorf("either source.base_url or source.inbox_dir is required")
	}
	return nil
}
