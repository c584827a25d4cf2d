// internal/cli/portals.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leadharvest/scrape/internal/portals"
)

// portalsCmd represents the portals command
var portalsCmd = &cobra.Command{
	Use:   "portals",
	Short: "List the portals this tool can crawl",
	RunE:  runPortals,
}

func init() {
	rootCmd.AddCommand(portalsCmd)
}

func runPortals(cmd *cobra.Command, args []string) error {
	ps, err := loadPortals()
	if err != nil {
		return err
	}

	fmt.Println()
	for _, name := range portals.Names() {
		pc, err := ps.Get(name)
		if err != nil {
			fmt.Printf("%-18s (no configuration)\n", name)
			continue
		}

		scope := "province listing"
		switch {
		case len(pc.SearchTerms) > 0:
			scope = fmt.Sprintf("%d search terms", len(pc.SearchTerms))
		case len(pc.Categories) > 0:
			scope = fmt.Sprintf("%d categories", len(pc.Categories))
		}

		ceiling := "unbounded"
		if pc.MaxPages > 0 {
			ceiling = fmt.Sprintf("%d pages/scope", pc.MaxPages)
		}

		fmt.Printf("%-18s %s\n", name, pc.BaseURL)
		fmt.Printf("%-18s %s, %s\n", "", scope, ceiling)
	}
	fmt.Println()
	return nil
}
