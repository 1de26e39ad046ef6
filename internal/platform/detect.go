package platform

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sitescout/sitescout/internal/models"
)

// Platform identifies a recognized e-commerce platform.
type Platform string

const (
	Shopify     Platform = "Shopify"
	WooCommerce Platform = "WooCommerce"
	BigCommerce Platform = "BigCommerce"
	// Unknown marks a site that looks like a store without a
	// recognizable platform signature.
	Unknown Platform = "Unknown"
	None    Platform = ""
)

// SiteType is the coarse classification of a site.
type SiteType string

const (
	TypeEcommerce SiteType = "ecommerce"
	TypeStandard  SiteType = "standard"
)

// Info is the outcome of platform detection.
type Info struct {
	Type       SiteType `json:"type"`
	Platform   Platform `json:"platform"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`
}

// Ecommerce reports whether the site was classified as a store.
func (i Info) Ecommerce() bool { return i.Type == TypeEcommerce }

var (
	shopifyChildRe = regexp.MustCompile(`(?i)sitemap_(products|collections|pages)_\d+\.xml`)
	wooChildRe     = regexp.MustCompile(`(?i)(?:^|/)(?:product|product_cat)-sitemap\d*\.xml`)
	wooPostsRe     = regexp.MustCompile(`(?i)/wp-sitemap-posts-product-`)
)

// Detect classifies a site from its sitemap URL and the child document
// URLs seen while resolving the tree. It never touches the network;
// everything it needs was already observed.
//
// Three indicator classes are checked: a platform host signature, a
// platform-specific child sitemap pattern, and a generic storefront
// subdomain. Confidence is the fraction of classes that fired.
func Detect(sitemapURL string, docURLs []string) Info {
	urls := make([]string, 0, len(docURLs)+1)
	urls = append(urls, sitemapURL)
	urls = append(urls, docURLs...)

	info := Info{Type: TypeStandard, Platform: None}
	fired := 0

	if p, ind := hostSignature(urls); p != None {
		info.Platform = p
		info.Indicators = append(info.Indicators, ind)
		fired++
	}

	if p, ind := childPattern(urls); p != None {
		if info.Platform == None {
			info.Platform = p
		}
		info.Indicators = append(info.Indicators, ind)
		fired++
	}

	if ind := storefrontSubdomain(urls); ind != "" {
		if info.Platform == None {
			info.Platform = Unknown
		}
		info.Indicators = append(info.Indicators, ind)
		fired++
	}

	if info.Platform != None {
		info.Type = TypeEcommerce
	}
	info.Confidence = float64(fired) / 3.0

	return info
}

func hostSignature(urls []string) (Platform, string) {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		switch {
		case strings.Contains(host, "myshopify.com"):
			return Shopify, fmt.Sprintf("host %s is a myshopify.com domain", host)
		case strings.Contains(host, "mybigcommerce.com"):
			return BigCommerce, fmt.Sprintf("host %s is a mybigcommerce.com domain", host)
		}
	}
	return None, ""
}

func childPattern(urls []string) (Platform, string) {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		path := u.Path
		switch {
		case shopifyChildRe.MatchString(path):
			return Shopify, fmt.Sprintf("child sitemap %s matches the Shopify layout", path)
		case wooChildRe.MatchString(path) || wooPostsRe.MatchString(path):
			return WooCommerce, fmt.Sprintf("child sitemap %s matches the WooCommerce layout", path)
		}
	}
	return None, ""
}

func storefrontSubdomain(urls []string) string {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if strings.HasPrefix(host, "shop.") || strings.HasPrefix(host, "store.") {
			return fmt.Sprintf("storefront subdomain %s", host)
		}
	}
	return ""
}

// policyPages are the /pages/ slugs stores use for boilerplate policy
// content.
var policyPages = map[string]bool{
	"privacy-policy":       true,
	"terms-of-service":     true,
	"terms-and-conditions": true,
	"refund-policy":        true,
	"shipping-policy":      true,
}

// IsProductPage reports whether the URL points at a single product.
func IsProductPage(rawURL string) bool {
	return pathContainsSegment(rawURL, "products")
}

// IsCollectionPage reports whether the URL points at a product
// collection or category listing.
func IsCollectionPage(rawURL string) bool {
	return pathContainsSegment(rawURL, "collections")
}

// IsSystemPage reports whether the URL is storefront plumbing: cart,
// checkout, account, or boilerplate policy pages.
func IsSystemPage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	segs := pathSegments(u.Path)
	if len(segs) == 0 {
		return false
	}
	switch segs[0] {
	case "cart", "checkout", "account", "policies":
		return true
	case "pages":
		return len(segs) > 1 && policyPages[segs[1]]
	}
	return false
}

// FilterEntries removes product and system pages from an entry set,
// keeping collection listings and regular pages. It returns the kept
// entries in their original order and the number removed.
func FilterEntries(entries []models.SitemapEntry) ([]models.SitemapEntry, int) {
	kept := make([]models.SitemapEntry, 0, len(entries))
	removed := 0
	for _, e := range entries {
		if IsProductPage(e.URL) || IsSystemPage(e.URL) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}

func pathContainsSegment(rawURL, want string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	for _, seg := range pathSegments(u.Path) {
		if seg == want {
			return true
		}
	}
	return false
}

func pathSegments(path string) []string {
	var segs []string
	for _, seg := range strings.Split(strings.ToLower(path), "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}
