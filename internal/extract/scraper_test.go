package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/studyhall-ai/quizgen/internal/domain"
)

func newTestScraper() *Scraper {
	return NewScraper(5 * time.Second)
}

func TestScrape_ExtractsTitleAndContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Redux Basics</title></head>
<body><script>var hidden = 1;</script>
<p>Redux is a predictable state container.</p>
<div>Actions describe what happened.</div></body></html>`))
	}))
	defer srv.Close()

	title, content, err := newTestScraper().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Redux Basics" {
		t.Errorf("unexpected title: %q", title)
	}
	if !strings.Contains(content, "predictable state container") {
		t.Errorf("content missing paragraph text: %q", content)
	}
	if strings.Contains(content, "hidden") {
		t.Errorf("script content leaked into text: %q", content)
	}
}

func TestScrape_PrefersOGTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
<meta property="og:title" content="OG Wins"/>
<title>Plain Title</title></head><body><p>body text</p></body></html>`))
	}))
	defer srv.Close()

	title, _, err := newTestScraper().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "OG Wins" {
		t.Errorf("expected og:title to win, got %q", title)
	}
}

func TestScrape_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, _, err := newTestScraper().Scrape(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for non-html, got %v", err)
	}
}

func TestScrape_RejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "not a url"} {
		_, _, err := newTestScraper().Scrape(context.Background(), u)
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Scrape(%q): expected ErrValidation, got %v", u, err)
		}
	}
}

func TestScrape_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>x</title></head><body><script>a</script></body></html>`))
	}))
	defer srv.Close()

	_, _, err := newTestScraper().Scrape(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput for empty page, got %v", err)
	}
}

func TestScrape_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>hello</p></body></html>`))
	}))
	defer srv.Close()

	if _, _, err := newTestScraper().Scrape(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("expected browser user agent, got %q", gotUA)
	}
}
