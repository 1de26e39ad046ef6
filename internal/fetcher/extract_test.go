package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Acme Widgets - Home</title>
<meta name="description" content="Handmade widgets since 1985.">
<meta name="keywords" content="Widgets, Handmade, Tools">
<meta property="og:title" content="Acme Widgets OG">
</head>
<body>
<nav><a href="/about">About</a><a href="/contact">Contact</a></nav>
<main>
<h1>Welcome to Acme</h1>
<p>We build handmade widgets for discerning customers. Every widget is
inspected twice before it leaves our workshop in Portland.</p>
<p>Our catalog covers more than two hundred widget variants, from tiny
pocket widgets to industrial-grade machines.</p>
</main>
<footer>Copyright Acme</footer>
<script>console.log("tracking");</script>
</body>
</html>`

func TestExtractContent(t *testing.T) {
	got, err := ExtractContent("https://acme.example/", []byte(samplePage), 0)
	require.NoError(t, err)

	assert.Equal(t, "Acme Widgets - Home", got.Title)
	assert.Equal(t, "Handmade widgets since 1985.", got.Description)
	assert.Equal(t, []string{"widgets", "handmade", "tools"}, got.Tags)
	assert.Contains(t, got.Text, "handmade widgets for discerning customers")
	assert.NotContains(t, got.Text, "console.log")
}

func TestExtractContentOpenGraphFallbacks(t *testing.T) {
	page := `<html><head>
<meta property="og:title" content="Fallback Title">
<meta property="og:description" content="Fallback description.">
</head><body><p>Body text here.</p></body></html>`

	got, err := ExtractContent("https://acme.example/x", []byte(page), 0)
	require.NoError(t, err)

	assert.Equal(t, "Fallback Title", got.Title)
	assert.Equal(t, "Fallback description.", got.Description)
}

func TestExtractContentCapsTextLength(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><p>")
	for i := 0; i < 500; i++ {
		b.WriteString("word ")
	}
	b.WriteString("</p></body></html>")

	got, err := ExtractContent("https://acme.example/long", []byte(b.String()), 40)
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(got.Text)), 40)
	assert.True(t, strings.HasPrefix(got.Text, "word word"))
}

func TestFallbackTextStripsChrome(t *testing.T) {
	page := `<html><body>
<nav>NAVIGATION LINKS</nav>
<header>SITE HEADER</header>
<p>Actual article text.</p>
<footer>FOOTER BOILERPLATE</footer>
<script>var x = 1;</script>
<!-- hidden comment -->
</body></html>`

	got := fallbackText([]byte(page))

	assert.Contains(t, got, "Actual article text.")
	assert.NotContains(t, got, "NAVIGATION LINKS")
	assert.NotContains(t, got, "SITE HEADER")
	assert.NotContains(t, got, "FOOTER BOILERPLATE")
	assert.NotContains(t, got, "var x")
	assert.NotContains(t, got, "hidden comment")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "café", truncateRunes("café", 10))
	assert.Equal(t, "caf", truncateRunes("café au lait", 3))
	assert.Equal(t, "café", truncateRunes("café au lait", 4))
}
