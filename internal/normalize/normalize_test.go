// internal/normalize/normalize_test.go
package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leadharvest/scrape/pkg/models"
)

func TestNormalize_RejectsMissingName(t *testing.T) {
	item := models.NewRawItem()
	item.Set("city", "Barcelona")
	item.Set("phone", "931234567")

	if _, ok := Normalize(item, "empresite"); ok {
		t.Error("Expected item without legal_name to be rejected")
	}
}

func TestNormalize_NameUpperCasedAndCollapsed(t *testing.T) {
	item := models.NewRawItem()
	item.Set("legal_name", "  Acme   Widgets  sl ")

	rec, ok := Normalize(item, "empresite")
	if !ok {
		t.Fatal("Expected item to be accepted")
	}
	if rec.LegalName != "ACME WIDGETS SL" {
		t.Errorf("Expected 'ACME WIDGETS SL', got '%s'", rec.LegalName)
	}
	if rec.SourcePortal != "empresite" {
		t.Errorf("Expected source portal 'empresite', got '%s'", rec.SourcePortal)
	}
}

func TestNormalize_DomainFromWebsite(t *testing.T) {
	item := models.NewRawItem()
	item.Set("legal_name", "ACME SL")
	item.Set("website_url", "https://www.acme-widgets.es/contacto")

	rec, ok := Normalize(item, "europages")
	if !ok {
		t.Fatal("Expected item to be accepted")
	}
	if rec.Domain != "acme-widgets.es" {
		t.Errorf("Expected domain 'acme-widgets.es', got '%s'", rec.Domain)
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"tel:+34 93 123 45 67", "+34931234567", true},
		{"93 123 45 67", "931234567", true},
		{"(+34) 931-234-567", "+34931234567", true},
		{"123", "", false},
		{"", "", false},
		{"llamanos", "", false},
	}

	for _, tc := range tests {
		got, ok := CleanPhone(tc.in)
		if ok != tc.ok {
			t.Errorf("CleanPhone(%q): expected ok=%v, got %v", tc.in, tc.ok, ok)
			continue
		}
		if got != tc.want {
			t.Errorf("CleanPhone(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSummaryText_FlattensHTML(t *testing.T) {
	got := SummaryText("<p>Fabricante de <strong>maquinaria</strong> industrial.</p>")
	if strings.Contains(got, "<") {
		t.Errorf("Expected markup to be stripped, got %q", got)
	}
	if !strings.Contains(got, "maquinaria") {
		t.Errorf("Expected text content to survive, got %q", got)
	}
}

func TestNormalize_SummaryCapped(t *testing.T) {
	item := models.NewRawItem()
	item.Set("legal_name", "ACME SL")
	item.Set("summary", strings.Repeat("a", 800))

	rec, _ := Normalize(item, "empresite")
	if len(rec.Summary) != SummaryMaxLen {
		t.Errorf("Expected summary capped at %d, got %d", SummaryMaxLen, len(rec.Summary))
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("ñ", 10)
	got := Truncate(s, 5)
	if got != strings.Repeat("ñ", 5) {
		t.Errorf("Expected 5 runes, got %q", got)
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("BARCELONA"); got != "Barcelona" {
		t.Errorf("Expected 'Barcelona', got '%s'", got)
	}
	if got := TitleCase("el prat de llobregat"); got != "El Prat De Llobregat" {
		t.Errorf("Expected 'El Prat De Llobregat', got '%s'", got)
	}
	// Accented first letters are multibyte; a byte slice would corrupt them.
	if got := TitleCase("ÁVILA"); got != "Ávila" {
		t.Errorf("Expected 'Ávila', got '%s'", got)
	}
	if got := TitleCase("ÉCIJA"); got != "Écija" {
		t.Errorf("Expected 'Écija', got '%s'", got)
	}
	if got := TitleCase("castellón de la plana"); !utf8.ValidString(got) || got != "Castellón De La Plana" {
		t.Errorf("Expected 'Castellón De La Plana', got '%s'", got)
	}
}

func TestNormalize_AccentedCity(t *testing.T) {
	item := models.NewRawItem()
	item.Set("legal_name", "Bodegas del Sur SL")
	item.Set("city", "ÉCIJA")

	rec, ok := Normalize(item, "empresite")
	if !ok {
		t.Fatal("Expected the item to normalize")
	}
	if rec.City != "Écija" {
		t.Errorf("Expected city 'Écija', got '%s'", rec.City)
	}
	if !utf8.ValidString(rec.City) {
		t.Errorf("City is not valid UTF-8: %q", rec.City)
	}
}
