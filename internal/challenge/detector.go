// Package challenge detects anti-automation checkpoints in fetched pages and
// waits for an operator to clear them in the live browser session.
package challenge

import (
	"strings"

	"github.com/leadharvest/scrape/pkg/models"
)

// DefaultFingerprints returns the built-in markers of bot-defense pages.
// New defenses appear over time; the list is configuration, not logic, and
// can be replaced wholesale via NewDetector.
func DefaultFingerprints() []string {
	return []string{
		// Cloudflare
		"challenge-platform",
		"just a moment",
		"cf-challenge",
		"cf_chl_opt",
		// Incapsula / Imperva
		"incapsula",
		"_incapsula_resource",
		"incident_id",
		// Generic WAFs
		"human verification",
		"awswaf",
		// CAPTCHA providers
		"g-recaptcha-response",
		`class="g-recaptcha"`,
		"captcha-delivery",
		"hcaptcha-box",
		// Site-specific robot walls
		"capado_robots",
		"control robots",
	}
}

// Detector classifies page bodies as blocked or clear by substring match
// against a fingerprint list.
type Detector struct {
	fingerprints []string
}

// NewDetector builds a detector from the given fingerprint list, falling
// back to the defaults when none are provided. Fingerprints are matched
// case-insensitively.
func NewDetector(fingerprints ...string) *Detector {
	if len(fingerprints) == 0 {
		fingerprints = DefaultFingerprints()
	}
	lowered := make([]string, len(fingerprints))
	for i, f := range fingerprints {
		lowered[i] = strings.ToLower(f)
	}
	return &Detector{fingerprints: lowered}
}

// Classify reports whether body looks like a bot-defense interstitial.
func (d *Detector) Classify(body string) models.ChallengeState {
	lower := strings.ToLower(body)
	for _, f := range d.fingerprints {
		if strings.Contains(lower, f) {
			return models.StateChallenged
		}
	}
	return models.StateClear
}
