// internal/cli/warmup.go
package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leadharvest/scrape/internal/challenge"
	"github.com/leadharvest/scrape/internal/portals"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	warmupPortal string
	warmupURL    string
)

// warmupCmd represents the warmup command
var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Open a portal's browser identity for manual challenge solving",
	Long: `Warmup opens a visible browser window on a portal's homepage using the
portal's persistent profile. Solve any bot checkpoint or cookie banner by
hand, then press Enter; the solved state is stored in the profile and
reused by later runs.`,
	Example: `  # Warm up the paginasamarillas identity
  $ scrape warmup --portal paginasamarillas

  # Land on a specific page instead of the homepage
  $ scrape warmup --portal einforma --url https://www.einforma.com/informes-empresas/madrid.html`,
	RunE: runWarmup,
}

func init() {
	rootCmd.AddCommand(warmupCmd)

	warmupCmd.Flags().StringVarP(&warmupPortal, "portal", "p", "", "Portal identity to warm up")
	warmupCmd.Flags().StringVar(&warmupURL, "url", "", "Page to open (portal homepage when empty)")
	_ = warmupCmd.MarkFlagRequired("portal")
}

func runWarmup(cmd *cobra.Command, args []string) error {
	ps, err := loadPortals()
	if err != nil {
		return err
	}
	pc, err := ps.Get(warmupPortal)
	if err != nil {
		return err
	}

	target := warmupURL
	if target == "" {
		target = pc.BaseURL
	}

	// Strategies that crawl over plain HTTP still warm up through the
	// browser: the profile is what carries the solved state.
	if _, err := portals.New(warmupPortal, ps); err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := session.Open(ctx, warmupPortal, session.KindBrowser, session.Options{
		ProfileBaseDir: cfg.ProfileBaseDir,
		Headless:       false,
		ChromePath:     cfg.ChromePath,
		NavTimeout:     cfg.NavTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Error closing session")
		}
	}()

	log.Info().Str("portal", warmupPortal).Str("url", target).Msg("Opening browser")
	res, err := sess.Navigate(ctx, models.PageRequest{URL: target})
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}

	detector := challenge.NewDetector(ps.ChallengeFingerprints...)
	if detector.Classify(res.Body) == models.StateChallenged {
		fmt.Println("\nThe portal is showing a bot checkpoint.")
	} else {
		fmt.Println("\nNo checkpoint detected; browse around if the portal needs it.")
	}
	fmt.Println("Solve any challenge in the browser window, then press Enter...")
	fmt.Scanln()

	body, err := sess.Content(ctx)
	if err != nil {
		return err
	}
	if detector.Classify(body) == models.StateChallenged {
		fmt.Println("The page still looks blocked. The profile was saved anyway;")
		fmt.Println("run warmup again if the next crawl is challenged immediately.")
		return nil
	}

	fmt.Printf("Identity for %s is warmed up.\n", warmupPortal)
	return nil
}
