package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/studyhall-ai/quizgen/internal/chunker"
	"github.com/studyhall-ai/quizgen/internal/domain"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Scraper fetches a web page and extracts its title and readable text.
type Scraper struct {
	client *http.Client
}

// NewScraper creates a scraper with a bounded HTTP client.
func NewScraper(timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// Scrape fetches rawURL and returns the page title and normalized text content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (title, content string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", fmt.Errorf("invalid url %q: %w", rawURL, domain.ErrValidation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	// Some sites reject requests without a browser user agent.
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch url: status %d: %w", resp.StatusCode, domain.ErrValidation)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return "", "", fmt.Errorf("url is not an html page (content-type %q): %w", ct, domain.ErrValidation)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = extractTitle(doc)
	if title == "" {
		title = parsed.Hostname()
	}

	content = chunker.Normalize(extractText(doc))
	if content == "" {
		return "", "", fmt.Errorf("no readable content at %s: %w", rawURL, domain.ErrEmptyInput)
	}
	return title, content, nil
}

// skippedTags are elements whose subtrees carry no readable content.
var skippedTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "iframe": {}, "svg": {},
}

func extractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if _, skip := skippedTags[node.Data]; skip {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && (node.Data == "p" || node.Data == "br" || node.Data == "div" || node.Data == "li") {
			buf.WriteString(" ")
		}
	}
	walk(n)
	return buf.String()
}

// extractTitle prefers og:title, then <title>, then the first <h1>.
func extractTitle(doc *html.Node) string {
	var title, ogTitle, h1 string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "meta":
				var prop, content string
				for _, a := range node.Attr {
					switch a.Key {
					case "property":
						prop = a.Val
					case "content":
						content = a.Val
					}
				}
				if prop == "og:title" && ogTitle == "" {
					ogTitle = strings.TrimSpace(content)
				}
			case "title":
				if title == "" && node.FirstChild != nil {
					title = strings.TrimSpace(node.FirstChild.Data)
				}
			case "h1":
				if h1 == "" && node.FirstChild != nil && node.FirstChild.Type == html.TextNode {
					h1 = strings.TrimSpace(node.FirstChild.Data)
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if ogTitle != "" {
		return ogTitle
	}
	if title != "" {
		return title
	}
	return h1
}
