package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/sitescout/sitescout/internal/models"
)

// DocumentKind discriminates the two sitemap document shapes.
type DocumentKind int

const (
	KindURLSet DocumentKind = iota
	KindIndex
)

// Document is the parsed form of one sitemap XML document. Entries is
// populated for a urlset, Refs for a sitemap index. Skipped holds the
// per-entry validation failures the caller is expected to log.
type Document struct {
	Source  string
	Kind    DocumentKind
	Entries []models.SitemapEntry
	Refs    []models.SitemapIndexRef
	Skipped []*ValidationError
}

// lastModFormats are the date layouts accepted for <lastmod>, tried in
// order from most to least specific.
var lastModFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDocument parses one sitemap XML document, dispatching on the root
// element name. A malformed document or unrecognized root yields a
// *ParseError; the caller recovers it and moves on. Entries with a
// missing, repeated, relative, or whitespace-only loc, or a non-numeric
// priority, are skipped individually without failing the document.
func ParseDocument(data []byte, source string) (*Document, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, &ParseError{URL: source, Err: err}
	}

	switch root {
	case "urlset":
		return parseURLSet(data, source)
	case "sitemapindex":
		return parseIndex(data, source)
	default:
		return nil, &ParseError{URL: source, Err: fmt.Errorf("unrecognized root element %q", root)}
	}
}

// rootElement returns the local name of the document's first start
// element, which decides the document shape regardless of the URL.
func rootElement(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func parseURLSet(data []byte, source string) (*Document, error) {
	var urlset models.URLSet
	if err := decode(data, &urlset); err != nil {
		return nil, &ParseError{URL: source, Err: err}
	}

	doc := &Document{Source: source, Kind: KindURLSet}
	for _, raw := range urlset.URLs {
		entry, verr := normalizeEntry(raw, source)
		if verr != nil {
			doc.Skipped = append(doc.Skipped, verr)
			continue
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc, nil
}

func parseIndex(data []byte, source string) (*Document, error) {
	var index models.SitemapIndex
	if err := decode(data, &index); err != nil {
		return nil, &ParseError{URL: source, Err: err}
	}

	doc := &Document{Source: source, Kind: KindIndex}
	for _, raw := range index.Sitemaps {
		loc, verr := validateLoc(raw.Locs, source)
		if verr != nil {
			doc.Skipped = append(doc.Skipped, verr)
			continue
		}
		doc.Refs = append(doc.Refs, models.SitemapIndexRef{
			URL:          loc,
			LastModified: parseLastMod(raw.LastMod),
		})
	}
	return doc, nil
}

func decode(data []byte, v interface{}) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder.Decode(v)
}

func normalizeEntry(raw models.URL, source string) (models.SitemapEntry, *ValidationError) {
	loc, verr := validateLoc(raw.Locs, source)
	if verr != nil {
		return models.SitemapEntry{}, verr
	}

	entry := models.SitemapEntry{
		URL:          loc,
		Priority:     models.DefaultPriority,
		ChangeFreq:   models.ParseChangeFreq(raw.ChangeFreq),
		LastModified: parseLastMod(raw.LastMod),
		Source:       source,
	}

	if p := strings.TrimSpace(raw.Priority); p != "" {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return models.SitemapEntry{}, &ValidationError{
				Source: source,
				Loc:    loc,
				Reason: fmt.Sprintf("non-numeric priority %q", raw.Priority),
			}
		}
		// Out-of-range values keep the default rather than clamping to
		// an endpoint the publisher never declared.
		if v >= 0.0 && v <= 1.0 {
			entry.Priority = v
		}
	}

	return entry, nil
}

func validateLoc(locs []string, source string) (string, *ValidationError) {
	if len(locs) == 0 {
		return "", &ValidationError{Source: source, Reason: "missing loc"}
	}
	if len(locs) > 1 {
		return "", &ValidationError{Source: source, Loc: strings.TrimSpace(locs[0]), Reason: "repeated loc"}
	}

	loc := strings.TrimSpace(locs[0])
	if loc == "" {
		return "", &ValidationError{Source: source, Reason: "empty loc"}
	}

	u, err := url.Parse(loc)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ValidationError{Source: source, Loc: loc, Reason: "loc is not an absolute URL"}
	}
	return loc, nil
}

func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range lastModFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	// Malformed dates count as absent, never as an error.
	return nil
}
