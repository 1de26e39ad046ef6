package writer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testStart = time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

func TestNewWriterCreatesRunDir(t *testing.T) {
	root := t.TempDir()

	w, err := NewWriter(root, "https://www.example.com", testStart)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "example_com_2024-06-01_12-30-45"), w.Dir())
	info, err := os.Stat(w.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteHTML(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "https://example.com", testStart)
	require.NoError(t, err)

	name, err := w.WriteHTML(2, "https://example.com/services/web-design", []byte("<html>hi</html>"))
	require.NoError(t, err)
	assert.Equal(t, "002_services_web-design.html", name)

	data, err := os.ReadFile(filepath.Join(w.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(data))
}

func TestWriteHTMLHomepageSlug(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "https://example.com", testStart)
	require.NoError(t, err)

	name, err := w.WriteHTML(1, "https://example.com/", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, "001_home.html", name)
}

func TestWriteManifestRoundTrip(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "https://example.com", testStart)
	require.NoError(t, err)

	manifest := &Manifest{
		RootURL:    "https://example.com",
		SitemapURL: "https://example.com/sitemap.xml",
		SiteType:   "standard",
		StartedAt:  testStart,
		Discovered: 40,
		Selected:   2,
		Fetched:    1,
		Failed:     1,
		Pages: []ManifestPage{
			{
				URL:    "https://example.com/",
				Rank:   1,
				Score:  60,
				File:   "001_home.html",
				Status: StatusFetched,
				Breakdown: Breakdown{
					Priority: 20, ChangeFreq: 5, Depth: 10, Homepage: 25,
				},
				StatusCode: 200,
			},
			{
				URL:    "https://example.com/broken",
				Rank:   2,
				Score:  18,
				Status: StatusFailed,
				Error:  "received HTTP status 500",
			},
		},
	}

	require.NoError(t, w.WriteManifest(manifest))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "manifest.yaml"))
	require.NoError(t, err)

	var got Manifest
	require.NoError(t, yaml.Unmarshal(data, &got))

	assert.Equal(t, manifest.RootURL, got.RootURL)
	assert.Equal(t, manifest.Discovered, got.Discovered)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, "001_home.html", got.Pages[0].File)
	assert.InDelta(t, 25.0, got.Pages[0].Breakdown.Homepage, 1e-9)
	assert.Equal(t, StatusFailed, got.Pages[1].Status)
	assert.Equal(t, "received HTTP status 500", got.Pages[1].Error)
}

func TestWriteSummary(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "https://example.com", testStart)
	require.NoError(t, err)

	manifest := &Manifest{
		RootURL:    "https://example.com",
		SitemapURL: "https://example.com/sitemap.xml",
		SiteType:   "ecommerce",
		Platform:   "Shopify",
		StartedAt:  testStart,
		Discovered: 10,
		Selected:   2,
		Fetched:    1,
		Failed:     1,
		Pages: []ManifestPage{
			{URL: "https://example.com/", Rank: 1, Score: 60, File: "001_home.html", Status: StatusFetched},
			{URL: "https://example.com/broken", Rank: 2, Score: 18, Status: StatusFailed, Error: "connection refused"},
		},
	}

	require.NoError(t, w.WriteSummary(manifest))

	data, err := os.ReadFile(filepath.Join(w.Dir(), "summary.md"))
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "# example.com scan report")
	assert.Contains(t, report, "**Platform:** Shopify (ecommerce)")
	assert.Contains(t, report, "Discovered 10 URLs, selected 2, fetched 1, failed 1.")
	assert.Contains(t, report, "| 1 | 60.0 | fetched | https://example.com/ | 001_home.html |")
	assert.Contains(t, report, "## Failures")
	assert.Contains(t, report, "- https://example.com/broken: connection refused")
}

func TestPathSlugSanitizes(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/about", "about"},
		{"https://example.com/a/b/c", "a_b_c"},
		{"https://example.com/café/menu", "caf_menu"},
		{"https://example.com/", "home"},
		{"https://example.com/page?utm=1", "page"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pathSlug(tt.url), tt.url)
	}
}
