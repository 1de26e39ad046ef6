package scoring

import (
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sitescout/sitescout/internal/models"
)

const (
	priorityWeight  = 20.0
	keywordBonus    = 8.0
	homepageBonus   = 25.0
	maxDepthScore   = 10.0
	depthPenalty    = 2.0
	maxRecencyBonus = 10.0
)

// Config is the immutable scoring configuration for one run. NewScorer
// copies it, so later mutation by the caller cannot leak into scoring.
type Config struct {
	Keywords      []string
	FreqWeights   map[models.ChangeFreq]float64
	RecencyMaxAge time.Duration
}

// DefaultFreqWeights spreads the change-frequency signal evenly from
// most frequent down to never.
func DefaultFreqWeights() map[models.ChangeFreq]float64 {
	return map[models.ChangeFreq]float64{
		models.ChangeFreqAlways:  15.0,
		models.ChangeFreqHourly:  12.5,
		models.ChangeFreqDaily:   10.0,
		models.ChangeFreqWeekly:  7.5,
		models.ChangeFreqMonthly: 5.0,
		models.ChangeFreqYearly:  2.5,
		models.ChangeFreqNever:   0.0,
	}
}

// DefaultKeywords are the path keywords rewarded when no configuration
// overrides them.
func DefaultKeywords() []string {
	return []string{
		"about", "contact", "services", "products", "pricing",
		"faq", "support", "docs", "blog", "team",
	}
}

// Scorer assigns importance scores to sitemap entries. Score is a pure
// function of the entry, the configuration captured at construction, and
// the explicit now parameter; there is no hidden state or clock access.
type Scorer struct {
	keywords    []string
	freqWeights map[models.ChangeFreq]float64
	maxAge      time.Duration
	rootHost    string
}

// NewScorer builds a scorer for the given root URL. The root host
// decides which entries qualify for the homepage bonus.
func NewScorer(rootURL string, cfg Config) *Scorer {
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	weights := make(map[models.ChangeFreq]float64, len(cfg.FreqWeights))
	for freq, w := range cfg.FreqWeights {
		weights[freq] = w
	}
	if len(weights) == 0 {
		weights = DefaultFreqWeights()
	}

	rootHost := ""
	if u, err := url.Parse(rootURL); err == nil {
		rootHost = canonicalHost(u.Host)
	}

	return &Scorer{
		keywords:    keywords,
		freqWeights: weights,
		maxAge:      cfg.RecencyMaxAge,
		rootHost:    rootHost,
	}
}

// Score computes the six additive signal contributions for one entry.
// Contributions are independent of each other; there is no cap or
// normalization on the total.
func (s *Scorer) Score(entry models.SitemapEntry, now time.Time) models.ScoredEntry {
	u, err := url.Parse(entry.URL)
	if err != nil {
		u = &url.URL{}
	}

	depth := pathDepth(u.Path)
	pathLower := strings.ToLower(u.Path)

	matches := 0
	for _, kw := range s.keywords {
		if strings.Contains(pathLower, kw) {
			matches++
		}
	}

	b := models.ScoreBreakdown{
		Priority:   entry.Priority * priorityWeight,
		ChangeFreq: s.freqWeight(entry.ChangeFreq),
		Depth:      math.Max(0, maxDepthScore-depthPenalty*float64(depth)),
		Keyword:    float64(matches) * keywordBonus,
		Recency:    s.recencyBonus(entry.LastModified, now),
	}
	if s.isHomepage(u) {
		b.Homepage = homepageBonus
	}

	return models.ScoredEntry{
		SitemapEntry: entry,
		Score:        b.Total(),
		Depth:        depth,
		HasKeyword:   matches > 0,
		Breakdown:    b,
	}
}

// ScoreAll scores every entry, preserving discovery order so the ranker
// can tie-break on it.
func (s *Scorer) ScoreAll(entries []models.SitemapEntry, now time.Time) []models.ScoredEntry {
	scored := make([]models.ScoredEntry, 0, len(entries))
	for _, entry := range entries {
		scored = append(scored, s.Score(entry, now))
	}
	return scored
}

func (s *Scorer) freqWeight(freq models.ChangeFreq) float64 {
	if w, ok := s.freqWeights[freq]; ok {
		return w
	}
	// Tokens a configured table does not cover fall back to the default
	// frequency's weight.
	if w, ok := s.freqWeights[models.DefaultChangeFreq]; ok {
		return w
	}
	return DefaultFreqWeights()[models.DefaultChangeFreq]
}

func (s *Scorer) isHomepage(u *url.URL) bool {
	if u.Path != "" && u.Path != "/" {
		return false
	}
	return s.rootHost != "" && canonicalHost(u.Host) == s.rootHost
}

// recencyBonus decays linearly from the maximum at age zero to nothing
// at the configured horizon. A missing lastmod contributes nothing; a
// future one counts as fresh.
func (s *Scorer) recencyBonus(lastMod *time.Time, now time.Time) float64 {
	if lastMod == nil || s.maxAge <= 0 {
		return 0
	}
	age := now.Sub(*lastMod)
	if age < 0 {
		age = 0
	}
	if age >= s.maxAge {
		return 0
	}
	return maxRecencyBonus * (1 - float64(age)/float64(s.maxAge))
}

func pathDepth(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}

func canonicalHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
