// Standalone probe for tuning content extraction. Fetches one page,
// prints its heading outline and element counts, then shows what the
// extractor pulls out of it. Not part of the scan pipeline.
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/sitescout/sitescout/internal/fetcher"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <page-url>", os.Args[0])
	}
	pageURL := os.Args[1]

	body, err := fetchPage(pageURL)
	if err != nil {
		log.Fatalf("Error fetching page: %v", err)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		log.Fatalf("Error parsing HTML: %v", err)
	}

	fmt.Println("=== Document structure ===")
	counts := make(map[string]int)
	countElements(doc, counts)
	for _, tag := range []string{"nav", "header", "main", "article", "aside", "footer", "script", "p", "a"} {
		fmt.Printf("  %-8s %d\n", tag, counts[tag])
	}

	fmt.Println("\n=== Heading outline ===")
	printHeadings(doc, 0)

	content, err := fetcher.ExtractContent(pageURL, body, 500)
	if err != nil {
		log.Fatalf("Error extracting content: %v", err)
	}

	fmt.Println("\n=== Extracted content ===")
	fmt.Printf("Title:       %s\n", content.Title)
	fmt.Printf("Description: %s\n", content.Description)
	if len(content.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(content.Tags, ", "))
	}
	fmt.Printf("Text:        %s\n", content.Text)
}

func fetchPage(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received HTTP status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func countElements(n *html.Node, counts map[string]int) {
	if n.Type == html.ElementNode {
		counts[n.Data]++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		countElements(c, counts)
	}
}

func printHeadings(n *html.Node, depth int) {
	if n.Type == html.ElementNode && len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
		fmt.Printf("  %s%s: %s\n", strings.Repeat("  ", int(n.Data[1]-'1')), n.Data, headingText(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		printHeadings(c, depth+1)
	}
}

func headingText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
