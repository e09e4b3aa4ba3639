// Package meta extracts link-preview metadata from message text.
// Extraction is best-effort: any failure degrades to empty metadata and the
// message is stored without a preview.
package meta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"

	"github.com/team3/messenger-server/internal/store"
)

const maxBodyBytes = 512 * 1024

var urlPattern = xurls.Strict()

// Extractor fetches the first link in a text and scrapes preview fields.
type Extractor struct {
	client *http.Client
}

// New builds an extractor with the given per-request timeout.
func New(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Extractor{
		client: &http.Client{Timeout: timeout},
	}
}

// Extract returns preview metadata for the first URL found in text.
// A text without links yields empty metadata and no error.
func (e *Extractor) Extract(ctx context.Context, text string) (store.LinkMeta, error) {
	link := urlPattern.FindString(text)
	if link == "" {
		return store.LinkMeta{}, nil
	}
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "https://" + link
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return store.LinkMeta{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return store.LinkMeta{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return store.LinkMeta{}, fmt.Errorf("fetch %s: status %d", link, resp.StatusCode)
	}

	m := parsePage(io.LimitReader(resp.Body, maxBodyBytes))
	m.URL = link

	return m, nil
}

// parsePage scans an HTML document for the <title> and OpenGraph tags.
func parsePage(r io.Reader) store.LinkMeta {
	var (
		m       store.LinkMeta
		inTitle bool
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// Includes io.EOF: return whatever was collected.
			return m
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.Data {
			case "title":
				inTitle = true
			case "meta":
				applyMetaTag(&m, t)
			case "body":
				// Preview fields live in <head>; stop early.
				return m
			}
		case html.EndTagToken:
			if z.Token().Data == "title" {
				inTitle = false
			}
		case html.TextToken:
			if inTitle && m.Title == "" {
				m.Title = strings.TrimSpace(z.Token().Data)
			}
		}
	}
}

func applyMetaTag(m *store.LinkMeta, t html.Token) {
	var property, content string
	for _, a := range t.Attr {
		switch a.Key {
		case "property", "name":
			property = a.Val
		case "content":
			content = a.Val
		}
	}
	if content == "" {
		return
	}

	switch property {
	case "og:title":
		m.Title = content
	case "og:description", "description":
		if m.Description == "" || property == "og:description" {
			m.Description = content
		}
	case "og:image":
		m.Image = content
	}
}
