package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// Config holds run-level configuration shared by all commands. Portal-level
// constants live in Portals (portals.go).
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Network
	HTTPTimeout time.Duration
	NavTimeout  time.Duration

	// Pacing
	DelayMin time.Duration
	DelayMax time.Duration

	// Challenge handling
	ChallengeTimeout time.Duration
	ChallengePoll    time.Duration

	// Identity store
	ProfileBaseDir string
	Headless       bool
	ChromePath     string

	// HTTP client floor
	RateLimitRPS   float64
	RateLimitBurst int

	// Rate-limit retrier
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration

	// Optional portals.yaml override
	PortalsFile string
}

// Load builds a Config by combining defaults, environment variables and CLI
// flags. Caller passes the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:            DefaultLogLevel,
		JSONLog:             DefaultJSONLog,
		HTTPTimeout:         DefaultHTTPTimeout,
		NavTimeout:          DefaultNavTimeout,
		DelayMin:            DefaultDelayMin,
		DelayMax:            DefaultDelayMax,
		ChallengeTimeout:    DefaultChallengeTimeout,
		ChallengePoll:       DefaultChallengePoll,
		ProfileBaseDir:      defaultProfileBase(),
		Headless:            DefaultHeadless,
		RateLimitRPS:        DefaultRateLimitRPS,
		RateLimitBurst:      DefaultRateLimitBurst,
		RetryMaxAttempts:    DefaultRetryMaxAttempts,
		RetryInitialBackoff: DefaultRetryInitialBackoff,
	}

	if v := os.Getenv("SCRAPE_PROFILE_DIR"); v != "" {
		cfg.ProfileBaseDir = v
	}
	if v := os.Getenv("SCRAPE_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("SCRAPE_PORTALS_FILE"); v != "" {
		cfg.PortalsFile = v
	}

	if cmd != nil {
		flags := cmd.Flags()
		if f := flags.Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "debug"
		}
		if f := flags.Lookup("quiet"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "error"
		}
		if f := flags.Lookup("json-log"); f != nil && f.Value.String() == "true" {
			cfg.JSONLog = true
		}
		if f := flags.Lookup("timeout"); f != nil {
			if d, err := time.ParseDuration(f.Value.String()); err == nil && d > 0 {
				cfg.HTTPTimeout = d
				cfg.NavTimeout = d
			}
		}
		if f := flags.Lookup("profile-dir"); f != nil && f.Value.String() != "" {
			cfg.ProfileBaseDir = f.Value.String()
		}
		if f := flags.Lookup("portals-config"); f != nil && f.Value.String() != "" {
			cfg.PortalsFile = f.Value.String()
		}
		if f := flags.Lookup("challenge-timeout"); f != nil {
			if d, err := time.ParseDuration(f.Value.String()); err == nil && d > 0 {
				cfg.ChallengeTimeout = d
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaultProfileBase() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leadharvest"
	}
	return filepath.Join(home, ".leadharvest")
}
