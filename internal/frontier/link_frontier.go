// Package frontier collects the links a web scan discovers, deduplicated by
// normalized URL and kept in discovery order.
package frontier

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"

	"github.com/knowledge-engine/veritas/internal/provider"
)

// Link is a unique search result together with the search chunk that first
// surfaced it.
type Link struct {
	URL    string          `json:"url"`
	Domain string          `json:"domain"`
	Hash   string          `json:"hash"`
	Result provider.Result `json:"result"`
	Chunk  string          `json:"chunk"`
	Seen   int             `json:"seen"`
}

// Frontier is not safe for concurrent use.
type Frontier struct {
	links    []*Link
	index    map[string]*Link
	maxLinks int
	stats    Stats
}

// Stats holds counters about the frontier
type Stats struct {
	TotalAdded   int `json:"total_added"`
	Duplicates   int `json:"duplicates"`
	Rejected     int `json:"rejected"`
	CurrentLinks int `json:"current_links"`
}

// New creates a frontier holding at most maxLinks links; 0 means unbounded.
func New(maxLinks int) *Frontier {
	return &Frontier{
		index:    make(map[string]*Link),
		maxLinks: maxLinks,
	}
}

// Add records a search result. It reports whether the link was new; repeated
// links only bump their Seen counter.
func (f *Frontier) Add(r provider.Result, chunk string) (bool, error) {
	normalized, err := NormalizeURL(r.Link)
	if err != nil {
		f.stats.Rejected++
		return false, err
	}

	hash := hashURL(normalized)
	if existing, ok := f.index[hash]; ok {
		existing.Seen++
		f.stats.Duplicates++
		return false, nil
	}
	if f.maxLinks > 0 && len(f.links) >= f.maxLinks {
		f.stats.Rejected++
		return false, nil
	}

	u, _ := url.Parse(normalized)
	link := &Link{
		URL:    normalized,
		Domain: u.Host,
		Hash:   hash,
		Result: r,
		Chunk:  chunk,
		Seen:   1,
	}
	f.links = append(f.links, link)
	f.index[hash] = link
	f.stats.TotalAdded++
	f.stats.CurrentLinks = len(f.links)
	return true, nil
}

// Links returns the unique links in discovery order.
func (f *Frontier) Links() []*Link {
	return f.links
}

func (f *Frontier) Len() int {
	return len(f.links)
}

func (f *Frontier) Stats() Stats {
	return f.stats
}

// NormalizeURL normalizes a URL for consistent handling
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must have a host")
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	// Remove trailing slash for paths (except root)
	if len(parsed.Path) > 1 && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String(), nil
}

func hashURL(u string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(u)))
}
