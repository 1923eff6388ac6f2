package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// FetchTimeout is the HTTP timeout for a single page fetch
	FetchTimeout = 30 * time.Second

	// MaxFetchBodySize caps how much of a page we read (2MB)
	MaxFetchBodySize int64 = 2 << 20

	// MaxExtractedContent caps the text returned to the caller, since it
	// ends up inside a model prompt
	MaxExtractedContent = 20000
)

// pageCache holds recently fetched page content so repeated pastes of the
// same link don't re-download the page.
var pageCache = gocache.New(PageCacheTTL, 10*time.Minute)

// FetchURLContent downloads a web page and extracts its readable text so the
// content can be attached to a question as context. Only http(s) URLs are
// accepted. Results are cached for PageCacheTTL.
func FetchURLContent(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL has no host")
	}

	if cached, ok := pageCache.Get(rawURL); ok {
		log.Printf("Returning cached content for %s", rawURL)
		return cached.(string), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	client := &http.Client{
		Timeout: FetchTimeout,
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, MaxFetchBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	content := ExtractReadableText(doc)
	if content == "" {
		return "", fmt.Errorf("no readable content found")
	}

	pageCache.Set(rawURL, content, gocache.DefaultExpiration)
	log.Printf("Fetched %d characters from %s", len(content), rawURL)

	return content, nil
}

// ExtractReadableText pulls the visible text out of a parsed page, dropping
// script, style and navigation chrome, and collapsing whitespace.
func ExtractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote").Each(func(i int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	})

	// Fallback for pages without any structural elements
	if len(parts) == 0 {
		text := strings.Join(strings.Fields(root.Text()), " ")
		if text != "" {
			parts = append(parts, text)
		}
	}

	content := strings.Join(parts, "\n")
	if len(content) > MaxExtractedContent {
		content = content[:MaxExtractedContent]
	}
	return content
}
