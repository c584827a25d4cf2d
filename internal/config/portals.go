package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed portals.yaml
var defaultPortalsYAML []byte

// Portal holds the per-portal crawl constants: scope lists, province slug
// maps and the empirical pagination thresholds.
type Portal struct {
	BaseURL     string            `yaml:"base_url"`
	MaxPages    int               `yaml:"max_pages"`
	MinFullPage int               `yaml:"min_full_page"`
	SearchTerms []string          `yaml:"search_terms"`
	Categories  []string          `yaml:"categories"`
	Provinces   map[string]string `yaml:"provinces"`
	EmployeeMin int               `yaml:"employee_min"`
	EmployeeMax int               `yaml:"employee_max"`
}

// Portals is the parsed portals.yaml.
type Portals struct {
	Portals map[string]Portal `yaml:"portals"`
	// ChallengeFingerprints optionally replaces the built-in bot-defense
	// marker list.
	ChallengeFingerprints []string `yaml:"challenge_fingerprints"`
}

// ProvinceSlug maps an upper-cased region name to the portal's URL slug,
// falling back to the lower-cased region.
func (p Portal) ProvinceSlug(region string) string {
	if slug, ok := p.Provinces[region]; ok {
		return slug
	}
	return strings.ToLower(region)
}

// LoadPortals parses the embedded portal constants, or the file at path when
// non-empty.
func LoadPortals(path string) (*Portals, error) {
	data := defaultPortalsYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read portals config: %w", err)
		}
	}

	var ps Portals
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to parse portals config: %w", err)
	}
	if len(ps.Portals) == 0 {
		return nil, fmt.Errorf("portals config defines no portals")
	}
	return &ps, nil
}

// Get returns the named portal's constants.
func (ps *Portals) Get(name string) (Portal, error) {
	p, ok := ps.Portals[name]
	if !ok {
		return Portal{}, fmt.Errorf("unknown portal %q (known: %v)", name, ps.Names())
	}
	return p, nil
}

// Names lists the configured portal names, sorted.
func (ps *Portals) Names() []string {
	names := make([]string, 0, len(ps.Portals))
	for name := range ps.Portals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
