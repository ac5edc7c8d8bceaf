package provider

import (
	"context"
	"strings"
	"sync"
)

// StaticProvider answers every query from a fixed result set. Results whose
// title or snippet shares a word with the query come first. It serves offline
// runs and tests.
type StaticProvider struct {
	results []Result
	mu      sync.Mutex
	queries []string
}

func NewStaticProvider(results []Result) *StaticProvider {
	return &StaticProvider{results: results}
}

func (p *StaticProvider) Name() string {
	return "static"
}

func (p *StaticProvider) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.queries = append(p.queries, query)
	p.mu.Unlock()

	words := strings.Fields(strings.ToLower(query))
	var related, other []Result
	for _, r := range p.results {
		if sharesWord(strings.ToLower(r.Title+" "+r.Snippet), words) {
			related = append(related, r)
		} else {
			other = append(other, r)
		}
	}
	out := append(related, other...)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Queries returns the queries received so far.
func (p *StaticProvider) Queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.queries...)
}

func sharesWord(text string, words []string) bool {
	for _, w := range words {
		if len(w) > 3 && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
