// internal/models/sitemap.go
package models

import (
	"encoding/xml"
	"strings"
	"time"
)

// URLSet represents the structure of a leaf XML sitemap.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []URL    `xml:"url"`
}

// URL represents a single URL entry in the sitemap. Fields stay raw
// strings so one bad value never fails the surrounding document;
// normalization happens entry by entry. Loc is a slice because a
// repeated <loc> is an entry defect the validator has to see.
type URL struct {
	Locs       []string `xml:"loc"`
	LastMod    string   `xml:"lastmod,omitempty"`
	ChangeFreq string   `xml:"changefreq,omitempty"`
	Priority   string   `xml:"priority,omitempty"`
}

// SitemapIndex represents the structure of a sitemap index document.
type SitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []SitemapRef `xml:"sitemap"`
}

// SitemapRef is one child-sitemap pointer inside an index document.
type SitemapRef struct {
	Locs    []string `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

// ChangeFreq is a sitemap change-frequency token.
type ChangeFreq string

const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// DefaultChangeFreq stands in for a missing or unrecognized changefreq.
const DefaultChangeFreq = ChangeFreqMonthly

// DefaultPriority stands in for a missing or out-of-range priority.
const DefaultPriority = 0.5

// ParseChangeFreq normalizes a raw changefreq token. Unknown tokens fall
// back to DefaultChangeFreq rather than failing the entry.
func ParseChangeFreq(raw string) ChangeFreq {
	switch ChangeFreq(strings.ToLower(strings.TrimSpace(raw))) {
	case ChangeFreqAlways:
		return ChangeFreqAlways
	case ChangeFreqHourly:
		return ChangeFreqHourly
	case ChangeFreqDaily:
		return ChangeFreqDaily
	case ChangeFreqWeekly:
		return ChangeFreqWeekly
	case ChangeFreqMonthly:
		return ChangeFreqMonthly
	case ChangeFreqYearly:
		return ChangeFreqYearly
	case ChangeFreqNever:
		return ChangeFreqNever
	default:
		return DefaultChangeFreq
	}
}

// SitemapEntry is one discovered page URL with its normalized sitemap
// metadata. URL is the unique key within a resolved set.
type SitemapEntry struct {
	URL          string     `json:"url"`
	Priority     float64    `json:"priority"`
	ChangeFreq   ChangeFreq `json:"change_frequency"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Source       string     `json:"source,omitempty"`
}

// SitemapIndexRef points at a child sitemap document. It exists only
// while a tree is being resolved and never reaches ranked output.
type SitemapIndexRef struct {
	URL          string     `json:"url"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// ScoreBreakdown carries the per-signal contributions behind a score so
// display and persistence can show where a number came from.
type ScoreBreakdown struct {
	Priority   float64 `json:"priority"`
	ChangeFreq float64 `json:"change_frequency"`
	Depth      float64 `json:"depth"`
	Keyword    float64 `json:"keyword"`
	Homepage   float64 `json:"homepage"`
	Recency    float64 `json:"recency"`
}

// Total sums the contributions.
func (b ScoreBreakdown) Total() float64 {
	return b.Priority + b.ChangeFreq + b.Depth + b.Keyword + b.Homepage + b.Recency
}

// ScoredEntry is a SitemapEntry enriched with its derived signals. It is
// immutable once produced; ranking only reorders scored entries.
type ScoredEntry struct {
	SitemapEntry
	Score      float64        `json:"score"`
	Depth      int            `json:"depth"`
	HasKeyword bool           `json:"has_keyword"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
}
