// Package fetcher downloads web pages found by a web scan and reduces them to
// their title and visible text.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrUnsupportedContent is returned for responses that are neither HTML nor
// plain text.
var ErrUnsupportedContent = errors.New("fetcher: unsupported content type")

// FetchResult contains the extracted data from a webpage
type FetchResult struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
}

// Options configure a Fetcher. Zero values pick the defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
}

type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Veritas-Scanner/1.0"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2 << 20
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
}

// Fetch downloads a page and extracts its text. Bodies beyond the size limit
// are truncated.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, f.maxBytes)

	switch mediaType(resp.Header.Get("Content-Type")) {
	case "text/html", "application/xhtml+xml", "":
		if err := parseHTML(body, result); err != nil {
			return nil, fmt.Errorf("parsing error: %w", err)
		}
	case "text/plain":
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		result.Text = cleanText(strings.ToValidUTF8(string(data), ""))
	default:
		return result, fmt.Errorf("%w: %s", ErrUnsupportedContent, resp.Header.Get("Content-Type"))
	}

	return result, nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// skipped holds elements whose text is never shown to a reader.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// parseHTML extracts the title and the visible text
func parseHTML(body io.Reader, result *FetchResult) error {
	tokenizer := html.NewTokenizer(body)
	var (
		text      strings.Builder
		title     strings.Builder
		skipDepth int
		inTitle   bool
	)

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				result.Title = cleanText(title.String())
				result.Text = cleanText(text.String())
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch tag := string(name); {
			case skipped[tag]:
				skipDepth++
			case tag == "title":
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch tag := string(name); {
			case skipped[tag]:
				if skipDepth > 0 {
					skipDepth--
				}
			case tag == "title":
				inTitle = false
			}

		case html.TextToken:
			data := string(tokenizer.Text())
			if inTitle {
				title.WriteString(data)
				continue
			}
			if skipDepth == 0 {
				if trimmed := strings.TrimSpace(data); trimmed != "" {
					text.WriteString(trimmed)
					text.WriteByte(' ')
				}
			}
		}
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
