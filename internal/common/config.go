// Package common provides shared utilities for Polyfolio
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Polyfolio
type Config struct {
	Environment string         `toml:"environment"`
	Wallet      string         `toml:"wallet"` // default account address for analysis runs
	Client      ClientConfig   `toml:"client"`
	Snapshot    SnapshotConfig `toml:"snapshot"`
	Analyzer    AnalyzerConfig `toml:"analyzer"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ClientConfig holds Polymarket API client configuration
type ClientConfig struct {
	DataBaseURL  string `toml:"data_base_url"`
	GammaBaseURL string `toml:"gamma_base_url"`
	ClobBaseURL  string `toml:"clob_base_url"`
	Timeout      string `toml:"timeout"`
	PageDelay    string `toml:"page_delay"` // pause between successful pages
	Cooldown     string `toml:"cooldown"`   // pause after an HTTP 429
}

// GetTimeout parses and returns the timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetPageDelay parses and returns the inter-page delay
func (c *ClientConfig) GetPageDelay() time.Duration {
	d, err := time.ParseDuration(c.PageDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetCooldown parses and returns the 429 cooldown
func (c *ClientConfig) GetCooldown() time.Duration {
	d, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// SnapshotConfig holds leaderboard snapshot collector configuration
type SnapshotConfig struct {
	Limit       int      `toml:"limit"`       // top traders captured per category
	Timeframes  []string `toml:"timeframes"`  // subset of day, week, month
	MaxRetries  int      `toml:"max_retries"` // attempts per (category, timeframe)
	RetryDelay  string   `toml:"retry_delay"`
	Schedule    string   `toml:"schedule"`     // cron spec for the scrape daemon
	JobRetries  int      `toml:"job_retries"`  // top-level full-scrape attempts
	JobDelay    string   `toml:"job_delay"`    // delay between full-scrape attempts
	MinRecords  int      `toml:"min_records"`  // warn below this record count
}

// GetRetryDelay parses and returns the per-category retry delay
func (c *SnapshotConfig) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetJobDelay parses and returns the delay between full-scrape attempts
func (c *SnapshotConfig) GetJobDelay() time.Duration {
	d, err := time.ParseDuration(c.JobDelay)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AnalyzerConfig holds analysis run configuration
type AnalyzerConfig struct {
	StartDate string `toml:"start_date"` // optional, YYYY-MM-DD
	EndDate   string `toml:"end_date"`   // optional, YYYY-MM-DD
}

// Window parses the configured date range. Zero times mean unbounded.
func (c *AnalyzerConfig) Window() (start, end time.Time, err error) {
	if c.StartDate != "" {
		start, err = time.Parse("2006-01-02", c.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", c.StartDate, err)
		}
	}
	if c.EndDate != "" {
		end, err = time.Parse("2006-01-02", c.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", c.EndDate, err)
		}
	}
	return start, end, nil
}

// StorageConfig holds paths for the two storage areas.
type StorageConfig struct {
	Snapshots AreaConfig `toml:"snapshots"` // date-partitioned leaderboard CSVs
	Reports   AreaConfig `toml:"reports"`   // per-account analysis exports
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Client: ClientConfig{
			DataBaseURL:  "https://data-api.polymarket.com",
			GammaBaseURL: "https://gamma-api.polymarket.com",
			ClobBaseURL:  "https://clob.polymarket.com",
			Timeout:      "30s",
			PageDelay:    "500ms",
			Cooldown:     "5s",
		},
		Snapshot: SnapshotConfig{
			Limit:      100,
			Timeframes: []string{"day"},
			MaxRetries: 3,
			RetryDelay: "5s",
			Schedule:   "0 12 * * *",
			JobRetries: 2,
			JobDelay:   "30s",
			MinRecords: 800,
		},
		Storage: StorageConfig{
			Snapshots: AreaConfig{Path: "data/snapshots"},
			Reports:   AreaConfig{Path: "data/reports"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateTimeframes(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("POLYFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if wallet := os.Getenv("POLYFOLIO_WALLET"); wallet != "" {
		config.Wallet = wallet
	}

	if level := os.Getenv("POLYFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("POLYFOLIO_DATA_PATH"); path != "" {
		config.Storage.Snapshots.Path = filepath.Join(path, "snapshots")
		config.Storage.Reports.Path = filepath.Join(path, "reports")
	}

	if limit := os.Getenv("POLYFOLIO_SNAPSHOT_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			config.Snapshot.Limit = n
		}
	}

	if tfs := os.Getenv("POLYFOLIO_TIMEFRAMES"); tfs != "" {
		config.Snapshot.Timeframes = strings.Split(tfs, ",")
	}

	if sched := os.Getenv("POLYFOLIO_SCHEDULE"); sched != "" {
		config.Snapshot.Schedule = sched
	}

	if start := os.Getenv("POLYFOLIO_START_DATE"); start != "" {
		config.Analyzer.StartDate = start
	}
	if end := os.Getenv("POLYFOLIO_END_DATE"); end != "" {
		config.Analyzer.EndDate = end
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateTimeframes drops unknown timeframes, defaulting to "day" when none survive.
func validateTimeframes(config *Config) {
	valid := make([]string, 0, len(config.Snapshot.Timeframes))
	for _, tf := range config.Snapshot.Timeframes {
		switch strings.ToLower(strings.TrimSpace(tf)) {
		case "day", "week", "month":
			valid = append(valid, strings.ToLower(strings.TrimSpace(tf)))
		}
	}
	if len(valid) == 0 {
		valid = []string{"day"}
	}
	config.Snapshot.Timeframes = valid
}
