package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// PageContent is what extraction distills from one fetched page.
type PageContent struct {
	Title       string
	Description string
	Tags        []string
	Text        string
}

// ExtractContent pulls the title, meta description, keyword tags, and
// readable body text out of an HTML document. maxTextLen caps the text
// length in runes; zero or negative leaves it uncapped.
func ExtractContent(pageURL string, body []byte, maxTextLen int) (*PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	content := &PageContent{Tags: make([]string, 0)}

	content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if content.Title == "" {
		content.Title = metaContent(doc, `meta[property="og:title"]`)
	}

	content.Description = metaContent(doc, `meta[name="description"]`)
	if content.Description == "" {
		content.Description = metaContent(doc, `meta[property="og:description"]`)
	}

	if keywords := metaContent(doc, `meta[name="keywords"]`); keywords != "" {
		for _, kw := range strings.Split(keywords, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" {
				content.Tags = append(content.Tags, strings.ToLower(kw))
			}
		}
	}

	text := readableText(pageURL, body)
	if text == "" {
		text = fallbackText(body)
	}
	text = strings.Join(strings.Fields(text), " ")
	if maxTextLen > 0 {
		text = truncateRunes(text, maxTextLen)
	}
	content.Text = text

	return content, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	if v, ok := doc.Find(selector).First().Attr("content"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// readableText runs the readability distiller. An empty result tells
// the caller to fall back to a plain DOM walk.
func readableText(pageURL string, body []byte) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}

	return article.TextContent
}

var chromeElements = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"noscript": true,
}

// fallbackText walks the DOM directly, dropping scripts, styles, and
// page chrome before collecting text nodes.
func fallbackText(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var removeNodes func(*html.Node)
	removeNodes = func(n *html.Node) {
		if n.Type == html.ElementNode && chromeElements[n.Data] {
			n.Parent.RemoveChild(n)
			return
		}
		if n.Type == html.CommentNode {
			n.Parent.RemoveChild(n)
			return
		}
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			removeNodes(c)
			c = next
		}
	}
	removeNodes(doc)

	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
