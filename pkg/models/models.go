package models

import "time"

// Record is one normalized company emitted by a crawl. Fields other than
// LegalName and SourcePortal are optional; empty values are never serialized.
type Record struct {
	LegalName     string `json:"legal_name"`
	City          string `json:"city,omitempty"`
	Province      string `json:"province,omitempty"`
	Region        string `json:"region,omitempty"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	WebsiteURL    string `json:"website_url,omitempty"`
	Domain        string `json:"domain,omitempty"`
	CIF           string `json:"cif,omitempty"`
	CNAECode      string `json:"cnae_code,omitempty"`
	Industry      string `json:"industry,omitempty"`
	EmployeeCount string `json:"employee_count,omitempty"`
	Summary       string `json:"summary,omitempty"`
	SourcePortal  string `json:"source_portal"`
	SourceURL     string `json:"source_url,omitempty"`
}

// RawItem is one candidate extracted from a page before normalization.
// Fields uses the canonical field names from Record's JSON tags.
type RawItem struct {
	Fields    map[string]string
	DetailURL string
}

// NewRawItem returns an item with an initialized field map.
func NewRawItem() RawItem {
	return RawItem{Fields: make(map[string]string)}
}

// Set stores a field value, dropping empty strings.
func (it RawItem) Set(key, value string) {
	if value != "" {
		it.Fields[key] = value
	}
}

// CrawlConfig describes one portal run. It is immutable for the run's
// duration; pass it by value.
type CrawlConfig struct {
	Portal      string
	Region      string
	City        string
	Limit       int // 0 = unbounded
	Details     bool
	EmployeeMin int
	EmployeeMax int
	DelayMin    time.Duration
	DelayMax    time.Duration
	Headless    bool
}

// PageRequest is one navigation target produced by a portal strategy.
type PageRequest struct {
	URL     string
	Method  string // GET when empty
	Referer string
	Headers map[string]string
	Form    map[string]string // url-encoded body for POST requests
}

// FetchResult is the transient outcome of one navigation. Body is not
// retained beyond a single extraction pass.
type FetchResult struct {
	StatusCode int
	Body       string
	FinalURL   string
}

// OK reports whether the fetch produced usable content. Browser navigations
// that never observed a network status report 0 and count as succeeded.
func (r FetchResult) OK() bool {
	return r.StatusCode == 0 || (r.StatusCode >= 200 && r.StatusCode < 300)
}

// ChallengeState classifies a fetched body with respect to anti-bot defenses.
type ChallengeState int

const (
	StateClear ChallengeState = iota
	StateChallenged
)

func (s ChallengeState) String() string {
	if s == StateChallenged {
		return "challenged"
	}
	return "clear"
}
