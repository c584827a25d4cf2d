// internal/cli/run.go
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leadharvest/scrape/internal/challenge"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/internal/normalize"
	"github.com/leadharvest/scrape/internal/output"
	"github.com/leadharvest/scrape/internal/pacing"
	"github.com/leadharvest/scrape/internal/portals"
	"github.com/leadharvest/scrape/internal/retry"
	"github.com/leadharvest/scrape/internal/session"
	"github.com/leadharvest/scrape/pkg/models"
)

var (
	runPortal      string
	runRegion      string
	runCity        string
	runLimit       int
	runOutput      string
	runHeadless    bool
	runDetails     bool
	runEmployeeMin int
	runEmployeeMax int
	runDelayMin    time.Duration
	runDelayMax    time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl one portal and emit company records",
	Long: `Run crawls a single portal for the given province, writing one JSON
object per company to stdout (or to --output; an .xlsx suffix selects a
workbook instead).

The crawl stays deliberately slow: requests are spaced by a randomized
human-scale delay and everything flows through one persistent browsing
identity per portal. When a portal raises a bot checkpoint the run pauses
and waits for you to solve it in the browser window.`,
	Example: `  # 50 companies from the empresite directory for Barcelona
  scrape run --portal empresite --region BARCELONA --limit 50

  # Registry data into a spreadsheet
  scrape run --portal einforma --region MADRID --limit 200 -o madrid.xlsx

  # Detail pages too (slower, one extra request per company)
  scrape run --portal empresite --region VALENCIA --details`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runPortal, "portal", "p", "", "Portal to crawl (see 'scrape portals')")
	runCmd.Flags().StringVarP(&runRegion, "region", "r", "BARCELONA", "Province (e.g. BARCELONA, MADRID)")
	runCmd.Flags().StringVar(&runCity, "city", "", "Restrict to a specific city")
	runCmd.Flags().IntVarP(&runLimit, "limit", "n", 0, "Max companies to emit (0 = unbounded)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Output path (default: stdout; .xlsx for a workbook)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run the browser headless (challenges cannot be solved by hand)")
	runCmd.Flags().BoolVar(&runDetails, "details", false, "Fetch detail pages for richer records")
	runCmd.Flags().IntVar(&runEmployeeMin, "employee-min", 0, "Employee count filter floor (portal default when 0)")
	runCmd.Flags().IntVar(&runEmployeeMax, "employee-max", 0, "Employee count filter ceiling (portal default when 0)")
	runCmd.Flags().DurationVar(&runDelayMin, "delay-min", 0, "Min delay between requests (config default when 0)")
	runCmd.Flags().DurationVar(&runDelayMax, "delay-max", 0, "Max delay between requests (config default when 0)")

	_ = runCmd.MarkFlagRequired("portal")
}

func runRun(cmd *cobra.Command, args []string) error {
	ps, err := loadPortals()
	if err != nil {
		return err
	}

	strat, err := portals.New(runPortal, ps)
	if err != nil {
		return err
	}
	pc, err := ps.Get(runPortal)
	if err != nil {
		return err
	}

	crawlCfg := models.CrawlConfig{
		Portal:      runPortal,
		Region:      strings.ToUpper(runRegion),
		City:        strings.ToUpper(runCity),
		Limit:       runLimit,
		Details:     runDetails,
		EmployeeMin: firstPositive(runEmployeeMin, pc.EmployeeMin),
		EmployeeMax: firstPositive(runEmployeeMax, pc.EmployeeMax),
		DelayMin:    firstDuration(runDelayMin, cfg.DelayMin),
		DelayMax:    firstDuration(runDelayMax, cfg.DelayMax),
		Headless:    runHeadless || cfg.Headless,
	}

	sink, err := output.Open(runOutput)
	if err != nil {
		return err
	}
	var emitSink output.Sink = sink
	if runLimit > 0 && stderrIsTerminal() && !cfg.JSONLog {
		emitSink = output.WithProgress(sink, runLimit)
	}

	detector := challenge.NewDetector(ps.ChallengeFingerprints...)
	waiter := challenge.NewWaiter(detector)
	waiter.PollInterval = cfg.ChallengePoll

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryMaxAttempts
	retryCfg.InitialBackoff = cfg.RetryInitialBackoff

	coord := crawler.New(crawler.Options{
		Pacer:            pacing.NewUniform(crawlCfg.DelayMin, crawlCfg.DelayMax),
		Waiter:           waiter,
		Retry:            retryCfg,
		ChallengeTimeout: cfg.ChallengeTimeout,
		OpenSession: func(ctx context.Context, portal string, kind session.Kind) (session.Session, error) {
			return session.Open(ctx, portal, kind, session.Options{
				ProfileBaseDir: cfg.ProfileBaseDir,
				Headless:       crawlCfg.Headless,
				ChromePath:     cfg.ChromePath,
				NavTimeout:     cfg.NavTimeout,
				HTTPTimeout:    cfg.HTTPTimeout,
				RateLimitRPS:   cfg.RateLimitRPS,
				RateLimitBurst: cfg.RateLimitBurst,
			})
		},
		Normalize: normalize.Normalize,
	})

	start := time.Now()
	emitted, runErr := coord.Run(cmd.Context(), crawlCfg, strat, emitSink)
	if cerr := emitSink.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("failed to finalize output: %w", cerr)
	}

	log.Info().
		Str("portal", runPortal).
		Int("records", emitted).
		Dur("elapsed", time.Since(start).Round(time.Second)).
		Msg("Crawl finished")

	if runErr != nil {
		return runErr
	}
	if runOutput != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d records to %s\n", emitted, runOutput)
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstDuration(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

// stderrIsTerminal reports whether stderr is an interactive terminal; the
// progress bar is suppressed when output is redirected.
func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
