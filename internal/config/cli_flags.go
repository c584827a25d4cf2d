package config

import "github.com/spf13/cobra"

// RegisterFlags registers the shared CLI flags on the root command.
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON to stderr")
	cmd.PersistentFlags().String("timeout", "30s", "Navigation/request timeout")
	cmd.PersistentFlags().String("profile-dir", "", "Base directory for persistent browser profiles")
	cmd.PersistentFlags().String("portals-config", "", "Path to a portals.yaml override")
	cmd.PersistentFlags().String("challenge-timeout", "5m", "How long to wait for a manual challenge solve")
}
