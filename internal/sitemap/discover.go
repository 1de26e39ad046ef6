package sitemap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
)

// defaultSitemapPaths are the conventional locations probed in order
// before falling back to robots.txt.
var defaultSitemapPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemaps.xml",
	"/sitemap1.xml",
	"/wp-sitemap.xml",
	"/sitemap/sitemap.xml",
}

// NormalizeSiteURL makes a bare host usable as a URL by assuming https.
func NormalizeSiteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// LooksLikeSitemapURL reports whether a URL can be used directly as a
// sitemap root, skipping discovery.
func LooksLikeSitemapURL(raw string) bool {
	u, err := url.Parse(NormalizeSiteURL(raw))
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.HasSuffix(p, ".xml") || strings.HasSuffix(p, ".xml.gz") || strings.Contains(p, "sitemap")
}

// Discover finds a site's sitemap URL by probing the conventional
// locations, then reading robots.txt Sitemap lines. Returns ErrNoSitemap
// when nothing answers with sitemap-looking content.
func (r *Resolver) Discover(ctx context.Context, siteURL string) (string, error) {
	base, err := url.Parse(NormalizeSiteURL(siteURL))
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid site URL %q", siteURL)
	}

	for _, p := range defaultSitemapPaths {
		candidate := base.ResolveReference(&url.URL{Path: p}).String()
		data, err := r.fetchDocument(ctx, candidate)
		if err != nil {
			r.log.Debug("sitemap candidate failed", "url", candidate, "error", err)
			continue
		}
		if looksLikeXML(data) {
			r.log.Info("found sitemap", "url", candidate)
			return candidate, nil
		}
		r.log.Debug("sitemap candidate is not XML", "url", candidate)
	}

	if loc, err := r.sitemapFromRobots(ctx, base); err == nil {
		return loc, nil
	}

	return "", ErrNoSitemap
}

func (r *Resolver) sitemapFromRobots(ctx context.Context, base *url.URL) (string, error) {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	data, err := r.fetchDocument(ctx, robotsURL)
	if err != nil {
		r.log.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
		return "", err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 8 || !strings.EqualFold(line[:8], "sitemap:") {
			continue
		}
		if loc := strings.TrimSpace(line[8:]); loc != "" {
			r.log.Info("found sitemap via robots.txt", "url", loc)
			return loc, nil
		}
	}
	return "", ErrNoSitemap
}

func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	for _, prefix := range [][]byte{[]byte("<?xml"), []byte("<urlset"), []byte("<sitemapindex")} {
		if bytes.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
