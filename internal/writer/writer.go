package writer

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StatusFetched = "fetched"
	StatusFailed  = "failed"

	manifestName = "manifest.yaml"
	summaryName  = "summary.md"

	maxSlugLen = 80
)

// Writer persists one run's output: raw page HTML, a machine-readable
// manifest, and a human-readable summary, all under a single run
// directory.
type Writer struct {
	runDir string
}

// NewWriter creates the run directory <outputRoot>/<host>_<timestamp>/.
func NewWriter(outputRoot, rootURL string, startedAt time.Time) (*Writer, error) {
	dirName := fmt.Sprintf("%s_%s", hostSlug(rootURL), startedAt.Format("2006-01-02_15-04-05"))
	runDir := filepath.Join(outputRoot, dirName)

	if err := os.MkdirAll(runDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	return &Writer{runDir: runDir}, nil
}

// Dir returns the run directory path.
func (w *Writer) Dir() string { return w.runDir }

// WriteHTML stores one fetched page as NNN_<slug>.html and returns the
// file name relative to the run directory.
func (w *Writer) WriteHTML(rank int, pageURL string, body []byte) (string, error) {
	name := fmt.Sprintf("%03d_%s.html", rank, pathSlug(pageURL))

	if err := os.WriteFile(filepath.Join(w.runDir, name), body, 0o600); err != nil {
		return "", fmt.Errorf("failed to write page HTML: %w", err)
	}

	return name, nil
}

// Manifest is the machine-readable record of a run.
type Manifest struct {
	RootURL    string         `yaml:"root_url"`
	SitemapURL string         `yaml:"sitemap_url"`
	SiteType   string         `yaml:"site_type,omitempty"`
	Platform   string         `yaml:"platform,omitempty"`
	StartedAt  time.Time      `yaml:"started_at"`
	Discovered int            `yaml:"discovered"`
	Selected   int            `yaml:"selected"`
	Fetched    int            `yaml:"fetched"`
	Failed     int            `yaml:"failed"`
	Pages      []ManifestPage `yaml:"pages"`
}

// ManifestPage is one selected page's record.
type ManifestPage struct {
	URL        string    `yaml:"url"`
	Rank       int       `yaml:"rank"`
	Score      float64   `yaml:"score"`
	Breakdown  Breakdown `yaml:"breakdown"`
	File       string    `yaml:"file,omitempty"`
	Status     string    `yaml:"status"`
	StatusCode int       `yaml:"status_code,omitempty"`
	Error      string    `yaml:"error,omitempty"`
}

// Breakdown mirrors the per-signal score contributions.
type Breakdown struct {
	Priority   float64 `yaml:"priority"`
	ChangeFreq float64 `yaml:"change_freq"`
	Depth      float64 `yaml:"depth"`
	Keyword    float64 `yaml:"keyword"`
	Homepage   float64 `yaml:"homepage"`
	Recency    float64 `yaml:"recency"`
}

// WriteManifest serializes the manifest into the run directory.
func (w *Writer) WriteManifest(m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest to YAML: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.runDir, manifestName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// WriteSummary renders the human-readable run report.
func (w *Writer) WriteSummary(m *Manifest) error {
	var b strings.Builder

	host := hostSlug(m.RootURL)
	fmt.Fprintf(&b, "# %s scan report\n\n", strings.ReplaceAll(host, "_", "."))
	fmt.Fprintf(&b, "*Scanned on %s*\n\n", m.StartedAt.Format("2006-01-02 at 15:04:05"))
	fmt.Fprintf(&b, "**Root:** %s\n\n", m.RootURL)
	fmt.Fprintf(&b, "**Sitemap:** %s\n\n", m.SitemapURL)
	if m.Platform != "" {
		fmt.Fprintf(&b, "**Platform:** %s (%s)\n\n", m.Platform, m.SiteType)
	}

	fmt.Fprintf(&b, "Discovered %d URLs, selected %d, fetched %d, failed %d.\n\n",
		m.Discovered, m.Selected, m.Fetched, m.Failed)

	b.WriteString("## Pages\n\n")
	b.WriteString("| Rank | Score | Status | URL | File |\n")
	b.WriteString("|-----:|------:|--------|-----|------|\n")
	for _, p := range m.Pages {
		fmt.Fprintf(&b, "| %d | %.1f | %s | %s | %s |\n", p.Rank, p.Score, p.Status, p.URL, p.File)
	}
	b.WriteString("\n")

	var failures []ManifestPage
	for _, p := range m.Pages {
		if p.Status == StatusFailed {
			failures = append(failures, p)
		}
	}
	if len(failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, p := range failures {
			fmt.Fprintf(&b, "- %s: %s\n", p.URL, p.Error)
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(filepath.Join(w.runDir, summaryName), []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}

	return nil
}

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

func hostSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		safe := invalidFilenameChar.ReplaceAllString(rawURL, "_")
		return strings.Trim(safe, "_")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return strings.ReplaceAll(host, ".", "_")
}

func pathSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "page"
	}

	slug := strings.TrimPrefix(u.Path, "/")
	slug = invalidFilenameChar.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")

	if slug == "" {
		return "home"
	}
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	return slug
}
