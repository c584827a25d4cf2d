// internal/cli/sessions.go
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadharvest/scrape/internal/session"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persistent portal identities",
	Long: `List and delete the persistent browsing identities kept per portal.

An identity is a Chrome profile directory plus (for HTTP portals) a cookie
snapshot in the OS keyring. Deleting one forces the next run to start from
a fresh identity, which usually means solving the portal's challenge again.`,
	Example: `  # Show all saved identities
  $ scrape sessions list

  # Drop the empresite identity
  $ scrape sessions clear empresite`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved portal identities",
	RunE:  runSessionsList,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <portal>",
	Short: "Delete a portal's identity (profile and cookie snapshot)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	profiles, err := profileDirs(cfg.ProfileBaseDir)
	if err != nil {
		return err
	}

	store, err := session.NewStore(cfg.ProfileBaseDir)
	if err != nil {
		return err
	}
	snapshots, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list cookie snapshots: %w", err)
	}

	if len(profiles) == 0 && len(snapshots) == 0 {
		fmt.Println("\nNo saved identities. Run a crawl or 'scrape warmup' to create one.")
		fmt.Println()
		return nil
	}

	fmt.Println()
	if len(profiles) > 0 {
		fmt.Printf("Browser profiles (%s):\n", cfg.ProfileBaseDir)
		for _, p := range profiles {
			fmt.Printf("  %s\n", p)
		}
	}
	if len(snapshots) > 0 {
		fmt.Println("Cookie snapshots:")
		for _, name := range snapshots {
			line := fmt.Sprintf("  %s", name)
			if cookies, err := store.LoadCookies(name); err == nil {
				line += fmt.Sprintf(" (%d cookies)", len(cookies))
			}
			fmt.Println(line)
		}
	}
	fmt.Println()
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	portal := args[0]

	dir := filepath.Join(cfg.ProfileBaseDir, "chrome-profile-"+portal)
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove profile dir: %w", err)
		}
		fmt.Printf("Removed browser profile %s\n", dir)
	}

	store, err := session.NewStore(cfg.ProfileBaseDir)
	if err != nil {
		return err
	}
	if err := store.Delete(portal); err != nil {
		return fmt.Errorf("failed to remove cookie snapshot: %w", err)
	}
	fmt.Printf("Cleared identity for %s\n", portal)
	return nil
}

// profileDirs lists the per-portal profile directory names under base.
func profileDirs(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "chrome-profile-") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}
