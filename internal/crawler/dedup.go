package crawler

import (
	"regexp"
	"strings"

	"github.com/leadharvest/scrape/pkg/models"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Deduplicator suppresses items already seen this run. The seen set grows
// monotonically and is never persisted across runs.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator returns an empty per-run deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Accept reports whether key is new, recording it as a side effect. Empty
// keys are never deduplicated.
func (d *Deduplicator) Accept(key string) bool {
	key = CanonicalKey(key)
	if key == "" {
		return true
	}
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len reports how many distinct keys have been seen.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}

// CanonicalKey normalizes a dedup key: upper-cased, whitespace collapsed.
func CanonicalKey(key string) string {
	return strings.ToUpper(spaceRe.ReplaceAllString(strings.TrimSpace(key), " "))
}

// keyFor picks the canonical key for an item: the strategy's own key when it
// provides one, else the legal name, else the source URL.
func keyFor(strat Strategy, item models.RawItem) string {
	if k, ok := strat.(Keyer); ok {
		return k.DedupKey(item)
	}
	if name := item.Fields["legal_name"]; name != "" {
		return name
	}
	return item.Fields["source_url"]
}
