package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sitescout/sitescout/internal/models"
	"github.com/sitescout/sitescout/internal/utils"
)

// Resolver walks a sitemap tree from its root document into a flat,
// deduplicated entry set. One Resolve call owns all of its traversal
// state, so a Resolver can be reused across runs.
type Resolver struct {
	client    *http.Client
	userAgent string
	log       *utils.Logger
}

// Result carries the flattened entries plus the diagnostics of one
// resolution run. Per-document failures land in Errors; they reduce
// coverage without aborting the run.
type Result struct {
	Entries      []models.SitemapEntry
	DocumentURLs []string
	Documents    int
	IndexDocs    int
	URLSetDocs   int
	Duplicates   int
	Skipped      int
	Errors       []error
}

func NewResolver(timeout time.Duration, userAgent string, logger *utils.Logger) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		log:       logger,
	}
}

// Resolve retrieves and parses every document reachable from rootURL.
// Traversal is an explicit pre-order walk over a visited set, so cyclic
// index references terminate after each document is seen once. When the
// same page URL appears in several documents, the first-seen entry wins.
// Only a root-document fetch failure is returned as an error (with zero
// entries); every other failure is recorded on the Result and the walk
// continues.
func (r *Resolver) Resolve(ctx context.Context, rootURL string) (*Result, error) {
	res := &Result{}
	visited := make(map[string]bool)
	seen := make(map[string]bool)

	pending := []string{rootURL}
	first := true

	for len(pending) > 0 {
		docURL := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if visited[docURL] {
			r.log.Debug("sitemap document already visited, skipping", "url", docURL)
			continue
		}
		visited[docURL] = true

		data, err := r.fetchDocument(ctx, docURL)
		isRoot := first
		first = false
		if err != nil {
			res.Errors = append(res.Errors, err)
			if isRoot {
				r.log.Error("root sitemap unreachable", "url", docURL, "error", err)
				return res, err
			}
			r.log.Warn("failed to fetch sitemap document, continuing", "url", docURL, "error", err)
			continue
		}

		doc, err := ParseDocument(data, docURL)
		if err != nil {
			res.Errors = append(res.Errors, err)
			r.log.Warn("failed to parse sitemap document, continuing", "url", docURL, "error", err)
			continue
		}

		res.Documents++
		res.DocumentURLs = append(res.DocumentURLs, docURL)
		for _, verr := range doc.Skipped {
			res.Skipped++
			r.log.Warn("dropped sitemap entry", "source", verr.Source, "loc", verr.Loc, "reason", verr.Reason)
		}

		switch doc.Kind {
		case KindIndex:
			res.IndexDocs++
			r.log.Debug("parsed sitemap index", "url", docURL, "children", len(doc.Refs))
			// Push in reverse so children are processed in declaration order.
			for i := len(doc.Refs) - 1; i >= 0; i-- {
				pending = append(pending, doc.Refs[i].URL)
			}
		case KindURLSet:
			res.URLSetDocs++
			r.log.Debug("parsed urlset", "url", docURL, "entries", len(doc.Entries))
			for _, entry := range doc.Entries {
				if seen[entry.URL] {
					res.Duplicates++
					continue
				}
				seen[entry.URL] = true
				res.Entries = append(res.Entries, entry)
			}
		}
	}

	return res, nil
}

// gzipMagic is the first three bytes of a gzip stream; sitemaps are
// commonly published as .xml.gz.
var gzipMagic = []byte("\x1f\x8b\x08")

func (r *Resolver) fetchDocument(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, &FetchError{URL: docURL, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: docURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: docURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: docURL, Err: err}
	}

	return maybeGunzip(body, docURL)
}

func maybeGunzip(data []byte, docURL string) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{URL: docURL, Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &FetchError{URL: docURL, Err: err}
	}
	return out, nil
}
