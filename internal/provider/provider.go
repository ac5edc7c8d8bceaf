// Package provider abstracts the web search backends a web scan queries.
package provider

import (
	"context"
	"errors"
	"unicode/utf8"
)

// ErrMissingAPIKey is returned when a provider needs credentials that were
// not configured.
var ErrMissingAPIKey = errors.New("provider: missing API key")

// exactPhraseMin is the query length from which a chunk is searched as an
// exact phrase.
const exactPhraseMin = 80

// Result is one organic search result.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchProvider defines the interface for web search integration
type SearchProvider interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
	Name() string
}

// BuildQuery quotes long chunks so the search engine looks for the exact
// phrase; short ones are searched as plain keywords.
func BuildQuery(chunk string) string {
	if utf8.RuneCountInString(chunk) >= exactPhraseMin {
		return `"` + chunk + `"`
	}
	return chunk
}
