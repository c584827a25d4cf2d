// internal/portals/empresite_test.go
package portals

import (
	"context"
	"strings"
	"testing"

	"github.com/leadharvest/scrape/internal/config"
	"github.com/leadharvest/scrape/internal/crawler"
	"github.com/leadharvest/scrape/pkg/models"
)

func empresiteTestPortal() config.Portal {
	return config.Portal{
		BaseURL:     "https://empresite.example.es",
		MaxPages:    40,
		MinFullPage: 2,
		EmployeeMin: 10,
		EmployeeMax: 200,
	}
}

const empresiteCard = `
<div class="cardCompanyBox">
  <meta itemprop="name" content="%NAME%">
  <h3><a href="/%SLUG%.html">%NAME%</a></h3>
  <span itemprop="address">Calle Mayor 1, Barcelona</span>
  <span class="line-clamp-2">Fabricante de maquinaria industrial.</span>
</div>`

func empresiteListing(names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, n := range names {
		card := strings.ReplaceAll(empresiteCard, "%NAME%", n)
		card = strings.ReplaceAll(card, "%SLUG%", strings.ToLower(strings.ReplaceAll(n, " ", "-")))
		b.WriteString(card)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestEmpresite_PageRequest(t *testing.T) {
	e := NewEmpresite(empresiteTestPortal())
	cfg := models.CrawlConfig{Region: "BARCELONA", EmployeeMin: 10, EmployeeMax: 200}
	scope := crawler.Scope{Label: "Terrassa", Value: "terrassa-barcelona"}

	req := e.PageRequest(cfg, scope, 1)
	if req.Method != "POST" {
		t.Errorf("Expected POST, got %s", req.Method)
	}
	want := "https://empresite.example.es/localidad/terrassa-barcelona/?testfiltros=1&emp_empleados_number=10-200"
	if req.URL != want {
		t.Errorf("Expected %s, got %s", want, req.URL)
	}

	req = e.PageRequest(cfg, scope, 3)
	if !strings.Contains(req.URL, "/PgNum-3/") {
		t.Errorf("Expected page 3 path segment, got %s", req.URL)
	}
}

func TestEmpresite_ExtractPage(t *testing.T) {
	e := NewEmpresite(empresiteTestPortal())
	cfg := models.CrawlConfig{Region: "BARCELONA", Details: true}
	scope := crawler.Scope{Label: "Terrassa", Value: "terrassa-barcelona"}

	res := models.FetchResult{StatusCode: 200, Body: empresiteListing("ACME WIDGETS SL", "OTHER CO SA")}
	out, err := e.ExtractPage(res, scope, cfg)
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}

	if len(out.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(out.Items))
	}
	first := out.Items[0]
	if first.Fields["legal_name"] != "ACME WIDGETS SL" {
		t.Errorf("Expected name from card meta, got '%s'", first.Fields["legal_name"])
	}
	if first.Fields["city"] != "Terrassa" {
		t.Errorf("Expected city 'Terrassa', got '%s'", first.Fields["city"])
	}
	if first.Fields["address"] != "Calle Mayor 1, Barcelona" {
		t.Errorf("Unexpected address '%s'", first.Fields["address"])
	}
	if first.DetailURL == "" {
		t.Error("Expected detail URL when details are requested")
	}

	// Two cards meet the full-page threshold of the test portal.
	if !out.HasNext {
		t.Error("Expected a full page to signal another page")
	}

	res.Body = empresiteListing("LONE COMPANY SL")
	out, err = e.ExtractPage(res, scope, cfg)
	if err != nil {
		t.Fatalf("ExtractPage failed: %v", err)
	}
	if out.HasNext {
		t.Error("Expected a short page to end the scope")
	}
}

func TestEmpresite_ExtractDetail_DataLayer(t *testing.T) {
	e := NewEmpresite(empresiteTestPortal())

	body := `<html><head>
<script>
var utag_data = {
  'CNAE': '2822',
  'GRUPO_SECTOR': 'Fabricacion de maquinaria'
};
</script>
</head><body>
<span itemprop="telephone" content="931234567"></span>
<a href="mailto:info@acme.es">info@acme.es</a>
<a itemprop="url" href="https://www.acme.es">web</a>
</body></html>`

	item := models.NewRawItem()
	item.Set("legal_name", "ACME WIDGETS SL")
	if err := e.ExtractDetail(models.FetchResult{StatusCode: 200, Body: body}, &item); err != nil {
		t.Fatalf("ExtractDetail failed: %v", err)
	}

	if item.Fields["cnae_code"] != "2822" {
		t.Errorf("Expected CNAE 2822, got '%s'", item.Fields["cnae_code"])
	}
	if item.Fields["industry"] != "Fabricacion de maquinaria" {
		t.Errorf("Unexpected industry '%s'", item.Fields["industry"])
	}
	if item.Fields["phone"] != "931234567" {
		t.Errorf("Expected phone from itemprop content, got '%s'", item.Fields["phone"])
	}
	if item.Fields["email"] != "info@acme.es" {
		t.Errorf("Unexpected email '%s'", item.Fields["email"])
	}
	if item.Fields["website_url"] != "https://www.acme.es" {
		t.Errorf("Unexpected website '%s'", item.Fields["website_url"])
	}
}

func TestEmpresite_ExtractDetail_RegexFallback(t *testing.T) {
	e := NewEmpresite(empresiteTestPortal())

	// Script references browser APIs goja cannot provide; the regex path
	// must still find the data layer literals.
	body := `<html><head><script>
document.addEventListener("load", function() {
  send({'CNAE': '4321', 'OTHER': 1, 'GRUPO_SECTOR': 'Instalaciones electricas'});
});
</script></head><body></body></html>`

	item := models.NewRawItem()
	if err := e.ExtractDetail(models.FetchResult{StatusCode: 200, Body: body}, &item); err != nil {
		t.Fatalf("ExtractDetail failed: %v", err)
	}
	if item.Fields["cnae_code"] != "4321" {
		t.Errorf("Expected CNAE 4321 via fallback, got '%s'", item.Fields["cnae_code"])
	}
}

func TestEmpresite_ListScopes_SingleCity(t *testing.T) {
	e := NewEmpresite(empresiteTestPortal())
	cfg := models.CrawlConfig{Region: "BARCELONA", City: "TERRASSA"}

	scopes, err := e.ListScopes(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("ListScopes failed: %v", err)
	}
	if len(scopes) != 1 || scopes[0].Value != "terrassa" {
		t.Errorf("Expected single lower-cased city scope, got %v", scopes)
	}
}
