package websearch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/veritas/internal/chunker"
	"github.com/knowledge-engine/veritas/internal/fetcher"
	"github.com/knowledge-engine/veritas/internal/frontier"
	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/provider"
	"github.com/knowledge-engine/veritas/internal/search"
)

const (
	defaultMaxHits  = 20
	defaultMinScore = 0.1
	defaultWorkers  = 4
)

// PageFetcher downloads a result page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.FetchResult, error)
}

// Gate paces page downloads.
type Gate interface {
	Acquire(ctx context.Context, url string) error
	Release(url string)
}

// ScanOptions tune one scan.
type ScanOptions struct {
	Params          matcher.Params
	MaxChunks       int
	ResultsPerChunk int
	FetchPages      bool
}

// WebHit is a web page that shares text with the scanned document.
type WebHit struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	Chunk   string  `json:"chunk"`
	Fetched bool    `json:"fetched"`
}

// WebReport is the outcome of a scan. Matches and GlobalSimilarity come from
// the matcher run over the found pages, Hits rank the pages themselves.
type WebReport struct {
	Provider         string          `json:"provider"`
	Chunks           []string        `json:"chunks"`
	GlobalSimilarity float64         `json:"global_similarity"`
	Matches          []matcher.Match `json:"matches"`
	Hits             []WebHit        `json:"hits"`
	Links            int             `json:"links"`
	PagesFetched     int             `json:"pages_fetched"`
	SearchErrors     int             `json:"search_errors"`
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMaxHits caps the number of hits reported.
func WithMaxHits(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.maxHits = n
		}
	}
}

// WithMinScore sets the score a page must exceed to become a hit.
func WithMinScore(score float64) Option {
	return func(s *Scanner) {
		s.minScore = score
	}
}

// WithWorkers sets how many pages are downloaded in parallel.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Scanner searches the web for passages of a text.
type Scanner struct {
	provider provider.SearchProvider
	fetcher  PageFetcher
	gate     Gate
	logger   *logrus.Entry
	maxHits  int
	minScore float64
	workers  int
}

// NewScanner creates a scanner. fetcher and gate may be nil, in which case
// pages are never downloaded and hits are scored on their snippets.
func NewScanner(p provider.SearchProvider, f PageFetcher, g Gate, logger *logrus.Entry, opts ...Option) *Scanner {
	if logger == nil {
		logger = logrus.WithField("component", "web_scanner")
	}
	s := &Scanner{
		provider: p,
		fetcher:  f,
		gate:     g,
		logger:   logger,
		maxHits:  defaultMaxHits,
		minScore: defaultMinScore,
		workers:  defaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan searches every chunk of text, gathers the unique result links and
// scores them against text. A failing search for one chunk is logged and
// skipped; only context cancellation aborts the scan.
func (s *Scanner) Scan(ctx context.Context, text string, opts ScanOptions) (*WebReport, error) {
	start := time.Now()
	p := opts.Params

	report := &WebReport{
		Provider: s.provider.Name(),
		Chunks:   BuildSearchChunks(text, p.ChunkWords, p.StrideWords, opts.MaxChunks),
		Matches:  []matcher.Match{},
		Hits:     []WebHit{},
	}
	if len(report.Chunks) == 0 {
		return report, nil
	}

	links := frontier.New(0)
	for _, chunk := range report.Chunks {
		results, err := s.provider.Search(ctx, chunk, opts.ResultsPerChunk)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			report.SearchErrors++
			s.logger.WithError(err).WithField("provider", report.Provider).Warn("Search failed for chunk, skipping")
			continue
		}
		for _, r := range results {
			if _, err := links.Add(r, chunk); err != nil {
				s.logger.WithError(err).WithField("link", r.Link).Debug("Skipping search result")
			}
		}
	}
	report.Links = links.Len()
	if links.Len() == 0 {
		return report, nil
	}

	var pages []string
	if opts.FetchPages && s.fetcher != nil {
		pages = s.fetchPages(ctx, links.Links())
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	query := chunker.Split(search.Normalize(text), p.ChunkWords, p.StrideWords)
	corpus := make([]chunker.Chunk, 0, links.Len())
	fetched := make(map[string]bool)
	for i, link := range links.Links() {
		if pages != nil && pages[i] != "" {
			windows := chunker.Split(search.Normalize(pages[i]), p.ChunkWords, p.StrideWords)
			if len(windows) > 0 {
				fetched[link.URL] = true
				for _, w := range windows {
					corpus = append(corpus, chunker.Chunk{Source: link.URL, Text: w})
				}
				continue
			}
		}
		if snippet := search.Normalize(link.Result.Snippet); snippet != "" {
			corpus = append(corpus, chunker.Chunk{Source: link.URL, Text: snippet})
		}
	}
	report.PagesFetched = len(fetched)

	run, err := matcher.NewRun(query, corpus)
	if err != nil {
		s.logger.WithError(err).Debug("Nothing comparable in search results")
		return report, nil
	}
	result := run.Result(p)
	report.GlobalSimilarity = result.GlobalSimilarity
	report.Matches = result.Matches

	best := run.BestBySource()
	for _, link := range links.Links() {
		score := best[link.URL]
		if score <= s.minScore {
			continue
		}
		report.Hits = append(report.Hits, WebHit{
			Title:   link.Result.Title,
			Link:    link.URL,
			Snippet: link.Result.Snippet,
			Score:   score,
			Chunk:   link.Chunk,
			Fetched: fetched[link.URL],
		})
	}
	sort.SliceStable(report.Hits, func(i, j int) bool {
		return report.Hits[i].Score > report.Hits[j].Score
	})
	if len(report.Hits) > s.maxHits {
		report.Hits = report.Hits[:s.maxHits]
	}

	s.logger.WithFields(logrus.Fields{
		"chunks":        len(report.Chunks),
		"links":         report.Links,
		"pages_fetched": report.PagesFetched,
		"hits":          len(report.Hits),
		"search_errors": report.SearchErrors,
		"duration":      time.Since(start),
	}).Info("Web scan completed")

	return report, nil
}

// fetchPages downloads every link with a bounded worker pool. Failed pages
// are left empty.
func (s *Scanner) fetchPages(ctx context.Context, links []*frontier.Link) []string {
	pages := make([]string, len(links))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				text, err := s.fetchPage(ctx, links[i].URL)
				if err != nil {
					s.logger.WithError(err).WithField("url", links[i].URL).Debug("Page fetch failed, using snippet")
					continue
				}
				pages[i] = text
			}
		}()
	}

	for i := range links {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	return pages
}

func (s *Scanner) fetchPage(ctx context.Context, link string) (string, error) {
	if s.gate != nil {
		if err := s.gate.Acquire(ctx, link); err != nil {
			return "", err
		}
		defer s.gate.Release(link)
	}
	res, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
