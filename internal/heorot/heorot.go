// Package heorot reads the bilingual Old English / Modern English edition
// published at heorot.dk and turns its HTML into raw line pairs.
package heorot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kokistudios/beodata/internal/cache"
	"github.com/kokistudios/beodata/internal/text"
)

// DefaultURL is the bilingual edition the corpus is built from.
const DefaultURL = "https://heorot.dk/beowulf-rede-text.html"

const (
	tableClass = "c15"
	textClass  = "c7"
	// Notes sit in divs inside rows. Only the c35 divs hold line text; one
	// of them wraps line 1066 because of malformed markup upstream.
	keepDivClass = "c35"
)

// HTTPError reports a non-success response from the source site.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Status)
}

// Client downloads the edition through a cache.
type Client struct {
	httpClient *http.Client
	cache      *cache.Cache
	userAgent  string
}

// NewClient returns a Client that stores downloads in c. A nil c disables
// caching.
func NewClient(c *cache.Cache) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cache:      c,
		userAgent:  "beodata/1.0",
	}
}

// Fetch returns the document at url, from the cache unless refresh is set.
// The second result reports whether the cache served it.
func (c *Client) Fetch(ctx context.Context, url string, refresh bool) ([]byte, bool, error) {
	if c.cache != nil && !refresh {
		if data, err := c.cache.Get(url); err == nil {
			return data, true, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, false, &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Put(url, data); err != nil {
			return nil, false, fmt.Errorf("caching %s: %w", url, err)
		}
	}
	return data, false, nil
}

// Parse extracts one RawPair per table row, numbered from 1 in document
// order. Rows whose Old English cell repeats the previous row are dropped.
// The edition carries no title rows, so Title is always false.
func Parse(r io.Reader) ([]text.RawPair, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("invalid HTML: %w", err)
	}
	var pairs []text.RawPair
	for _, table := range findAll(doc, atom.Table, tableClass) {
		var lastOE string
		for _, row := range findAll(table, atom.Tr, "") {
			for _, div := range findAll(row, atom.Div, "") {
				if attr(div, "class") != keepDivClass {
					div.Parent.RemoveChild(div)
				}
			}
			cols := findAll(row, atom.Span, textClass)
			if len(cols) < 2 {
				continue
			}
			oe, me := cols[0], cols[len(cols)-1]
			rendered := render(oe)
			if rendered == lastOE {
				continue
			}
			lastOE = rendered
			pairs = append(pairs, text.RawPair{
				Line:          len(pairs) + 1,
				OldEnglish:    cleanText(textContent(oe)),
				ModernEnglish: cleanText(textContent(me)),
			})
		}
	}
	return pairs, nil
}

// findAll returns the element descendants of n with the given tag and, when
// class is non-empty, carrying class among their classes.
func findAll(n *html.Node, tag atom.Atom, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag && (class == "" || hasClass(c, class)) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return textContent(n)
	}
	return buf.String()
}

// cleanText collapses whitespace, including no-break spaces, and turns the
// edition's "--" dashes into spaces.
func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "--", " ")
}
