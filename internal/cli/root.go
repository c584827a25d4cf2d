// Package cli wires the cobra command tree: run, portals, sessions and
// warmup. Configuration and logging are initialized once per invocation in
// the root command's PersistentPreRunE.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leadharvest/scrape/internal/config"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "scrape",
	Short:   "Multi-portal company directory scraper",
	Long:    `Scrape extracts structured company records from Spanish business directories and registries, maintaining one persistent browsing identity per portal.`,
	Version: "0.1.0",
}

// Execute runs the CLI under the given context. Called once from main.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(rootCmd)
		if err != nil {
			return err
		}
		cfg = loaded
		initLogging(cfg)
		return nil
	}
}

// initLogging configures the global zerolog logger from run config. Logs
// always go to stderr so stdout stays a clean data stream.
func initLogging(c *config.Config) {
	switch c.LogLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if c.JSONLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// loadPortals resolves the portal constants honoring the override flag.
func loadPortals() (*config.Portals, error) {
	ps, err := config.LoadPortals(cfg.PortalsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load portal config: %w", err)
	}
	return ps, nil
}
