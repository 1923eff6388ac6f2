package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return doc
}

// TestExtractReadableText tests text extraction from common page shapes
func TestExtractReadableText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name: "article content preferred over chrome",
			html: `<html><body>
				<nav>Site navigation</nav>
				<article><h1>Title</h1><p>Body paragraph.</p></article>
				<footer>Copyright notice</footer>
			</body></html>`,
			contains: []string{"Title", "Body paragraph."},
			excludes: []string{"Site navigation", "Copyright notice"},
		},
		{
			name: "scripts and styles removed",
			html: `<html><body>
				<p>Visible text</p>
				<script>var hidden = "secret";</script>
				<style>.cls { color: red; }</style>
			</body></html>`,
			contains: []string{"Visible text"},
			excludes: []string{"secret", "color: red"},
		},
		{
			name: "list and table cells collected",
			html: `<html><body><main>
				<ul><li>First item</li><li>Second item</li></ul>
				<table><tr><td>Cell value</td></tr></table>
			</main></body></html>`,
			contains: []string{"First item", "Second item", "Cell value"},
		},
		{
			name:     "whitespace collapsed",
			html:     "<html><body><p>spaced    \n\t   out</p></body></html>",
			contains: []string{"spaced out"},
		},
		{
			name:     "fallback to body text without structural elements",
			html:     `<html><body><div>Unstructured page text</div></body></html>`,
			contains: []string{"Unstructured page text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := ExtractReadableText(docFromHTML(t, tt.html))
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("Extracted text missing %q:\n%s", want, text)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(text, unwanted) {
					t.Errorf("Extracted text contains %q:\n%s", unwanted, text)
				}
			}
		})
	}
}

// TestExtractReadableTextTruncates tests the prompt-size cap
func TestExtractReadableTextTruncates(t *testing.T) {
	html := "<html><body><p>" + strings.Repeat("x", MaxExtractedContent+500) + "</p></body></html>"
	text := ExtractReadableText(docFromHTML(t, html))
	if len(text) != MaxExtractedContent {
		t.Errorf("Extracted length = %d, want %d", len(text), MaxExtractedContent)
	}
}

// TestFetchURLContentValidation tests URL validation before any request is made
func TestFetchURLContentValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"file scheme", "file:///etc/passwd"},
		{"ftp scheme", "ftp://example.com/file"},
		{"javascript scheme", "javascript:alert(1)"},
		{"no host", "http://"},
		{"relative path", "/just/a/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FetchURLContent(context.Background(), tt.url); err == nil {
				t.Errorf("FetchURLContent(%q) succeeded, want error", tt.url)
			}
		})
	}
}

// TestFetchURLContent tests a successful fetch and the page cache
func TestFetchURLContent(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><article><h1>Cached Page</h1><p>Page body text.</p></article></body></html>`))
	}))
	defer server.Close()

	content, err := FetchURLContent(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchURLContent failed: %v", err)
	}
	if !strings.Contains(content, "Cached Page") || !strings.Contains(content, "Page body text.") {
		t.Errorf("Content = %q", content)
	}

	// Second fetch of the same URL is served from the cache
	content2, err := FetchURLContent(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Second FetchURLContent failed: %v", err)
	}
	if content2 != content {
		t.Error("Cached content differs from original")
	}
	if requestCount != 1 {
		t.Errorf("Server hit %d times, want 1", requestCount)
	}
}

// TestFetchURLContentErrorStatus tests non-200 handling
func TestFetchURLContentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := FetchURLContent(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 404 response, got nil")
	}
}

// TestFetchURLContentEmptyPage tests that a page with no readable text errors
func TestFetchURLContentEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>only();</script></body></html>`))
	}))
	defer server.Close()

	if _, err := FetchURLContent(context.Background(), server.URL); err == nil {
		t.Error("Expected error for page without readable content, got nil")
	}
}
