package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	SEC         SECConfig       `toml:"sec"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// SECConfig contains SEC EDGAR API settings. The user agent and request
// spacing are required by the SEC's automated-access policy; clients that
// omit them get blocked upstream.
type SECConfig struct {
	UserAgent      string        `toml:"user_agent"`      // descriptive client identification, required by SEC
	SubmissionsURL string        `toml:"submissions_url"` // submissions endpoint template, %s = zero-padded CIK
	ArchiveBaseURL string        `toml:"archive_base_url"`
	RequestDelay   time.Duration `toml:"request_delay"`   // minimum spacing between outbound requests
	RequestTimeout time.Duration `toml:"request_timeout"` // per-request timeout
	MaxRetries     int           `toml:"max_retries"`     // retries on transient failure (not total attempts)
	FormType       string        `toml:"form_type"`       // target filing form type
}

// FetcherConfig contains output locations for fetch runs.
type FetcherConfig struct {
	OutputDir string `toml:"output_dir"` // directory for rendered PDFs
}

// SchedulerConfig enables periodic background fetch runs.
type SchedulerConfig struct {
	Enabled   bool     `toml:"enabled"`
	Schedule  string   `toml:"schedule"` // cron expression or @every descriptor
	Tickers   []string `toml:"tickers"`  // empty = full supported set
	OutputDir string   `toml:"output_dir"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// The six-company default universe and the 100ms request spacing come from
// the SEC's published guidance of at most 10 requests per second.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		SEC: SECConfig{
			UserAgent:      "Tenka Report Automation admin@ternarybob.com",
			SubmissionsURL: "https://data.sec.gov/submissions/CIK%s.json",
			ArchiveBaseURL: "https://www.sec.gov/Archives/edgar/data",
			RequestDelay:   100 * time.Millisecond,
			RequestTimeout: 30 * time.Second,
			MaxRetries:     1,
			FormType:       "10-K",
		},
		Fetcher: FetcherConfig{
			OutputDir: "./output_pdfs",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false, // user must explicitly opt-in
			Schedule: "0 6 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TENKA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("TENKA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("TENKA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// SEC configuration
	if ua := os.Getenv("TENKA_SEC_USER_AGENT"); ua != "" {
		config.SEC.UserAgent = ua
	}
	if delay := os.Getenv("TENKA_SEC_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.SEC.RequestDelay = d
		}
	}
	if timeout := os.Getenv("TENKA_SEC_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.SEC.RequestTimeout = d
		}
	}
	if retries := os.Getenv("TENKA_SEC_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil && r >= 0 {
			config.SEC.MaxRetries = r
		}
	}
	if form := os.Getenv("TENKA_SEC_FORM_TYPE"); form != "" {
		config.SEC.FormType = form
	}

	// Fetcher configuration
	if dir := os.Getenv("TENKA_OUTPUT_DIR"); dir != "" {
		config.Fetcher.OutputDir = dir
	}

	// Scheduler configuration
	if enabled := os.Getenv("TENKA_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("TENKA_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Logging configuration
	if level := os.Getenv("TENKA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("TENKA_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("TENKA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateSchedule validates a scheduler cron expression. Both standard
// 5-field expressions and @every descriptors are accepted.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
