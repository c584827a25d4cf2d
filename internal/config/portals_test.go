package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPortals_Embedded(t *testing.T) {
	ps, err := LoadPortals("")
	if err != nil {
		t.Fatalf("LoadPortals failed: %v", err)
	}

	want := []string{"empresite", "europages", "paginasamarillas", "einforma", "empresia", "librebor"}
	for _, name := range want {
		if _, err := ps.Get(name); err != nil {
			t.Errorf("Expected embedded config to define %s: %v", name, err)
		}
	}

	emp, _ := ps.Get("empresite")
	if emp.MaxPages != 40 {
		t.Errorf("Expected empresite page ceiling 40, got %d", emp.MaxPages)
	}
	if emp.MinFullPage != 30 {
		t.Errorf("Expected empresite full page size 30, got %d", emp.MinFullPage)
	}

	eur, _ := ps.Get("europages")
	if len(eur.SearchTerms) == 0 {
		t.Error("Expected europages search terms")
	}

	pag, _ := ps.Get("paginasamarillas")
	if len(pag.Categories) == 0 {
		t.Error("Expected paginasamarillas categories")
	}
}

func TestLoadPortals_UnknownPortal(t *testing.T) {
	ps, err := LoadPortals("")
	if err != nil {
		t.Fatalf("LoadPortals failed: %v", err)
	}
	if _, err := ps.Get("nonexistent"); err == nil {
		t.Error("Expected an error for an unknown portal")
	}
}

func TestLoadPortals_FileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yaml")
	yaml := `portals:
  testportal:
    base_url: https://test.example
    max_pages: 3
challenge_fingerprints:
  - blocked by test
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	ps, err := LoadPortals(path)
	if err != nil {
		t.Fatalf("LoadPortals failed: %v", err)
	}
	p, err := ps.Get("testportal")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.MaxPages != 3 {
		t.Errorf("Expected page ceiling 3, got %d", p.MaxPages)
	}
	if len(ps.ChallengeFingerprints) != 1 {
		t.Errorf("Expected custom fingerprints to load, got %v", ps.ChallengeFingerprints)
	}
}

func TestProvinceSlug(t *testing.T) {
	p := Portal{Provinces: map[string]string{"BILBAO": "vizcaya"}}

	if got := p.ProvinceSlug("BILBAO"); got != "vizcaya" {
		t.Errorf("Expected mapped slug 'vizcaya', got '%s'", got)
	}
	if got := p.ProvinceSlug("MADRID"); got != "madrid" {
		t.Errorf("Expected lower-cased fallback, got '%s'", got)
	}
}
