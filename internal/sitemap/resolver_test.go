package sitemap

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/utils"
)

// newSitemapServer serves the given path->document map, substituting
// HOST in each document with the server's own base URL so fixtures can
// reference sibling documents. Paths ending in .gz are served gzipped.
func newSitemapServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, ok := pages[req.URL.Path]
		if !ok {
			http.NotFound(w, req)
			return
		}
		body = strings.ReplaceAll(body, "HOST", srv.URL)

		if strings.HasSuffix(req.URL.Path, ".gz") {
			w.Header().Set("Content-Type", "application/octet-stream")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(body))
			_ = gz.Close()
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testResolver() *Resolver {
	return NewResolver(5*time.Second, "sitescout-test/1.0", utils.Nop())
}

func urlsetWith(urls ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, u := range urls {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", u)
	}
	b.WriteString(`</urlset>`)
	return b.String()
}

func indexWith(refs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, r := range refs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", r)
	}
	b.WriteString(`</sitemapindex>`)
	return b.String()
}

func TestResolveDisjointUnion(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": indexWith("HOST/pages.xml", "HOST/posts.xml"),
		"/pages.xml":   urlsetWith("https://example.com/", "https://example.com/about"),
		"/posts.xml":   urlsetWith("https://example.com/blog/a", "https://example.com/blog/b", "https://example.com/blog/c"),
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	require.Len(t, res.Entries, 5)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 1, res.IndexDocs)
	assert.Equal(t, 2, res.URLSetDocs)
	assert.Equal(t, []string{
		srv.URL + "/sitemap.xml",
		srv.URL + "/pages.xml",
		srv.URL + "/posts.xml",
	}, res.DocumentURLs)

	// Entries arrive in document declaration order, pre-order across children.
	var got []string
	for _, e := range res.Entries {
		got = append(got, e.URL)
	}
	assert.Equal(t, []string{
		"https://example.com/",
		"https://example.com/about",
		"https://example.com/blog/a",
		"https://example.com/blog/b",
		"https://example.com/blog/c",
	}, got)
}

func TestResolveSelfReferencingIndexTerminates(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": indexWith("HOST/sitemap.xml", "HOST/pages.xml"),
		"/pages.xml":   urlsetWith("https://example.com/", "https://example.com/about"),
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Len(t, res.Entries, 2)
	assert.Empty(t, res.Errors)
}

func TestResolveMutualCycleTerminates(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/a.xml":     indexWith("HOST/b.xml"),
		"/b.xml":     indexWith("HOST/a.xml", "HOST/pages.xml"),
		"/pages.xml": urlsetWith("https://example.com/x"),
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/a.xml")
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "https://example.com/x", res.Entries[0].URL)
}

func TestResolveDuplicateURLFirstWins(t *testing.T) {
	first := `<?xml version="1.0"?><urlset>
<url><loc>https://example.com/dup</loc><priority>0.9</priority><changefreq>daily</changefreq></url>
</urlset>`
	second := `<?xml version="1.0"?><urlset>
<url><loc>https://example.com/dup</loc><priority>0.1</priority><changefreq>never</changefreq></url>
<url><loc>https://example.com/other</loc></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": indexWith("HOST/first.xml", "HOST/second.xml"),
		"/first.xml":   first,
		"/second.xml":  second,
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Duplicates)

	dup := res.Entries[0]
	assert.Equal(t, "https://example.com/dup", dup.URL)
	assert.Equal(t, 0.9, dup.Priority)
	assert.Equal(t, "daily", string(dup.ChangeFreq))
}

func TestResolveBrokenChildIsNonFatal(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": indexWith("HOST/ok.xml", "HOST/missing.xml", "HOST/broken.xml"),
		"/ok.xml":      urlsetWith("https://example.com/kept"),
		"/broken.xml":  `<?xml version="1.0"?><urlset><url>`,
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "https://example.com/kept", res.Entries[0].URL)

	require.Len(t, res.Errors, 2)
	var fe *FetchError
	require.True(t, errors.As(res.Errors[0], &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
	var pe *ParseError
	require.True(t, errors.As(res.Errors[1], &pe))
}

func TestResolveRootUnreachable(t *testing.T) {
	t.Run("status 404", func(t *testing.T) {
		srv := newSitemapServer(t, nil)

		res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, http.StatusNotFound, fe.Status)
		assert.Empty(t, res.Entries)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := newSitemapServer(t, nil)
		rootURL := srv.URL + "/sitemap.xml"
		srv.Close()

		res, err := testResolver().Resolve(context.Background(), rootURL)
		require.Error(t, err)

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Zero(t, fe.Status)
		assert.Empty(t, res.Entries)
	})
}

func TestResolveRootNotSitemapXML(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": `<!DOCTYPE html><html><body><h1>503</h1></body></html>`,
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Empty(t, res.Entries)
	require.Len(t, res.Errors, 1)
	var pe *ParseError
	require.True(t, errors.As(res.Errors[0], &pe))
}

func TestResolveGzippedChild(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml":  indexWith("HOST/pages.xml.gz"),
		"/pages.xml.gz": urlsetWith("https://example.com/zipped"),
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	require.Len(t, res.Entries, 1)
	assert.Equal(t, "https://example.com/zipped", res.Entries[0].URL)
}

func TestResolveRootURLSetDirectly(t *testing.T) {
	srv := newSitemapServer(t, map[string]string{
		"/sitemap.xml": urlsetWith("https://example.com/", "https://example.com/contact"),
	})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.URLSetDocs)
	assert.Zero(t, res.IndexDocs)
}

func TestResolveSkippedEntriesCounted(t *testing.T) {
	doc := `<?xml version="1.0"?><urlset>
<url><loc>https://example.com/good</loc></url>
<url><loc>  </loc></url>
<url><priority>0.2</priority></url>
</urlset>`

	srv := newSitemapServer(t, map[string]string{"/sitemap.xml": doc})

	res, err := testResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Len(t, res.Entries, 1)
	assert.Equal(t, 2, res.Skipped)
}
