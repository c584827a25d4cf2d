// internal/challenge/detector_test.go
package challenge

import (
	"testing"

	"github.com/leadharvest/scrape/pkg/models"
)

func TestDetector_Classify(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name string
		body string
		want models.ChallengeState
	}{
		{"cloudflare interstitial", "<title>Just a moment...</title>", models.StateChallenged},
		{"cloudflare script", `<script src="/cdn-cgi/challenge-platform/h/b"></script>`, models.StateChallenged},
		{"incapsula", `<iframe src="/_Incapsula_Resource?SWJIYLWA=1"></iframe>`, models.StateChallenged},
		{"recaptcha widget", `<div class="g-recaptcha" data-sitekey="x"></div>`, models.StateChallenged},
		{"datadome", `<script src="https://ct.captcha-delivery.com/c.js"></script>`, models.StateChallenged},
		{"aws waf", "awswaf token required", models.StateChallenged},
		{"plain listing", "<html><body><h1>Empresas de Barcelona</h1></body></html>", models.StateClear},
		{"empty body", "", models.StateClear},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.Classify(tc.body); got != tc.want {
				t.Errorf("Classify(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

func TestDetector_CustomFingerprints(t *testing.T) {
	d := NewDetector("portal says no")

	if got := d.Classify("PORTAL SAYS NO"); got != models.StateChallenged {
		t.Error("Expected custom fingerprint to match case-insensitively")
	}
	// Custom list replaces the defaults entirely.
	if got := d.Classify("Just a moment..."); got != models.StateClear {
		t.Error("Expected default fingerprints to be replaced by the custom list")
	}
}
