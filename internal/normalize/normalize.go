// Package normalize turns raw extracted field maps into clean Records.
// It enforces the output invariants: legal_name present and upper-cased,
// phones digits-only with at least 9 digits, summaries capped, and no field
// ever emitted with an empty value.
package normalize

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leadharvest/scrape/pkg/models"
)

// SummaryMaxLen caps free-text summary fields.
const SummaryMaxLen = 500

// MinPhoneDigits is the shortest phone accepted; anything shorter is dropped
// rather than emitted.
const MinPhoneDigits = 9

var (
	nonPhoneRe   = regexp.MustCompile(`[^\d+]`)
	digitRe      = regexp.MustCompile(`\d`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var summaryConverter = md.NewConverter("", true, nil)

// Normalize builds a Record from a raw item. ok is false when the item has
// no usable legal name and must be discarded.
func Normalize(item models.RawItem, portal string) (rec models.Record, ok bool) {
	name := strings.TrimSpace(item.Fields["legal_name"])
	if name == "" {
		return models.Record{}, false
	}

	rec = models.Record{
		LegalName:     strings.ToUpper(whitespaceRe.ReplaceAllString(name, " ")),
		City:          TitleCase(item.Fields["city"]),
		Province:      TitleCase(item.Fields["province"]),
		Region:        TitleCase(item.Fields["region"]),
		Address:       strings.TrimSpace(item.Fields["address"]),
		Email:         strings.TrimSpace(item.Fields["email"]),
		CIF:           strings.TrimSpace(item.Fields["cif"]),
		CNAECode:      strings.TrimSpace(item.Fields["cnae_code"]),
		Industry:      strings.TrimSpace(item.Fields["industry"]),
		EmployeeCount: strings.TrimSpace(item.Fields["employee_count"]),
		SourcePortal:  portal,
		SourceURL:     strings.TrimSpace(item.Fields["source_url"]),
	}

	if phone, ok := CleanPhone(item.Fields["phone"]); ok {
		rec.Phone = phone
	}

	rec.Summary = Truncate(SummaryText(item.Fields["summary"]), SummaryMaxLen)

	if web := strings.TrimSpace(item.Fields["website_url"]); web != "" {
		rec.WebsiteURL = web
		rec.Domain = DomainOf(web)
	}
	// An extractor may supply the domain directly (API portals).
	if rec.Domain == "" {
		rec.Domain = strings.TrimSpace(item.Fields["domain"])
	}

	return rec, true
}

// CleanPhone strips everything but digits and the plus sign, and rejects
// candidates with fewer than MinPhoneDigits digits.
func CleanPhone(raw string) (string, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "tel:")
	phone := nonPhoneRe.ReplaceAllString(raw, "")
	if len(digitRe.FindAllString(phone, -1)) < MinPhoneDigits {
		return "", false
	}
	return phone, true
}

// TitleCase renders a place name with each word capitalized and the rest
// lowered. Accented names (ÁVILA, ÉCIJA) keep their accents intact.
func TitleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, so build one per call.
	return cases.Title(language.Spanish).String(s)
}

// SummaryText flattens a summary that may arrive as an HTML fragment into
// plain text: markup is converted to markdown-ish text, then whitespace is
// collapsed.
func SummaryText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		if converted, err := summaryConverter.ConvertString(s); err == nil {
			s = converted
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate caps s at max bytes on a rune boundary.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// DomainOf extracts the www-stripped host of a URL, or "".
func DomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
