package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/veritas/internal/config"
	"github.com/knowledge-engine/veritas/internal/fetcher"
	"github.com/knowledge-engine/veritas/internal/ingest"
	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/politeness"
	"github.com/knowledge-engine/veritas/internal/provider"
	"github.com/knowledge-engine/veritas/internal/report"
	"github.com/knowledge-engine/veritas/internal/storage"
	"github.com/knowledge-engine/veritas/internal/websearch"
)

var (
	ErrEmptyLibrary       = errors.New("engine: reference library is empty")
	ErrEmptyText          = errors.New("engine: no text to analyse")
	ErrUnknownProfile     = errors.New("engine: unknown profile")
	ErrUnknownMode        = errors.New("engine: unknown web scan mode")
	ErrWebScanUnavailable = errors.New("engine: web scan unavailable, no search provider configured")
	ErrReportNotFound     = errors.New("engine: report not found")
)

// gateIdle is how long an unused domain keeps its politeness state.
const gateIdle = 10 * time.Minute

// Engine orchestrates the library, the matcher and the web scanner
type Engine struct {
	Config   *config.Config
	Logger   *logrus.Entry
	Storage  storage.ContentStorage
	Profiles config.Profiles
	Provider provider.SearchProvider
	Gate     *politeness.Gate
	Scanner  *websearch.Scanner

	mu      sync.RWMutex
	reports map[string]any
	order   []string

	// Stats
	Stats EngineStats
}

type EngineStats struct {
	Comparisons int64     `json:"comparisons"`
	WebScans    int64     `json:"web_scans"`
	LastError   string    `json:"last_error,omitempty"`
	StartTime   time.Time `json:"start_time"`
}

// CompareRequest asks for a comparison of Text against the library. Params,
// when set, replace the named profile's parameters.
type CompareRequest struct {
	Name    string          `json:"name"`
	Text    string          `json:"text"`
	Profile string          `json:"profile"`
	Params  *matcher.Params `json:"params,omitempty"`
}

// Report is the stored outcome of a library comparison.
type Report struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Profile          string                   `json:"profile"`
	Params           matcher.Params           `json:"params"`
	GlobalSimilarity float64                  `json:"global_similarity"`
	Band             report.Band              `json:"band"`
	Matches          []matcher.Match          `json:"matches"`
	Highlighted      string                   `json:"highlighted"`
	Snippets         []matcher.SnippetOutcome `json:"snippets"`
	LibrarySize      int                      `json:"library_size"`
	CreatedAt        time.Time                `json:"created_at"`
}

// WebScanRequest asks for a web scan of Text.
type WebScanRequest struct {
	Name    string `json:"name"`
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Profile string `json:"profile"`
}

// WebScanReport is the stored outcome of a web scan.
type WebScanReport struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Mode      string      `json:"mode"`
	Profile   string      `json:"profile"`
	Band      report.Band `json:"band"`
	CreatedAt time.Time   `json:"created_at"`
	*websearch.WebReport
}

// Status summarises the engine for health checks.
type Status struct {
	Documents  int                   `json:"documents"`
	Profiles   []string              `json:"profiles"`
	WebScan    bool                  `json:"web_scan"`
	Provider   string                `json:"provider,omitempty"`
	Stats      EngineStats           `json:"stats"`
	Politeness politeness.Statistics `json:"politeness"`
}

// NewProvider returns the configured search provider, or nil when web scans
// are not configured.
func NewProvider(cfg config.WebConfig) provider.SearchProvider {
	if cfg.SerpAPIKey == "" {
		return nil
	}
	client := &http.Client{Timeout: cfg.SearchTimeout}
	return provider.NewSerpAPIProvider(cfg.SearchURL, cfg.SerpAPIKey, cfg.Language, cfg.Country, client)
}

// NewEngine wires the engine. searcher may be nil, which disables web scans.
func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.ContentStorage, searcher provider.SearchProvider) (*Engine, error) {
	if logger == nil {
		logger = logrus.WithField("component", "engine")
	}

	profiles, err := config.LoadProfiles(cfg.Matching.ProfilesFile)
	if err != nil {
		return nil, err
	}
	if _, ok := profiles.Lookup(cfg.Matching.DefaultProfile); !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownProfile, cfg.Matching.DefaultProfile)
	}

	gate := politeness.NewGate(cfg.Politeness, nil, logger.WithField("component", "politeness_gate"))

	e := &Engine{
		Config:   cfg,
		Logger:   logger,
		Storage:  store,
		Profiles: profiles,
		Provider: searcher,
		Gate:     gate,
		reports:  make(map[string]any),
		Stats:    EngineStats{StartTime: time.Now()},
	}

	if searcher != nil {
		ft := fetcher.NewFetcher(fetcher.Options{
			Timeout:   cfg.Politeness.RequestTimeout,
			UserAgent: cfg.Politeness.UserAgent,
			MaxBytes:  cfg.Web.MaxPageBytes,
		})
		e.Scanner = websearch.NewScanner(searcher, ft, gate, logger.WithField("component", "web_scanner"),
			websearch.WithMaxHits(cfg.Web.MaxHits),
			websearch.WithMinScore(cfg.Web.MinHitScore),
			websearch.WithWorkers(cfg.Politeness.DomainConcurrency*2),
		)
	}

	return e, nil
}

// Profile resolves a profile name; an empty name picks the default profile.
func (e *Engine) Profile(name string) (string, matcher.Params, error) {
	if strings.TrimSpace(name) == "" {
		name = e.Config.Matching.DefaultProfile
	}
	name = strings.ToLower(strings.TrimSpace(name))
	params, ok := e.Profiles.Lookup(name)
	if !ok {
		return "", matcher.Params{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return name, params, nil
}

// AddDocument extracts the text of an uploaded file and stores it in the
// library under name, replacing any document with the same name.
func (e *Engine) AddDocument(name string, data []byte) (*storage.Document, error) {
	text, err := ingest.Extract(name, data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	return e.save(name, text, string(ingest.FormatOf(name)))
}

// AddText stores already extracted text in the library.
func (e *Engine) AddText(name, text string) (*storage.Document, error) {
	return e.save(name, text, string(ingest.FormatText))
}

func (e *Engine) save(name, text, format string) (*storage.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", name, ingest.ErrNoText)
	}
	doc := &storage.Document{
		Name:    strings.TrimSpace(name),
		Text:    text,
		Format:  format,
		Words:   ingest.WordCount(text),
		AddedAt: time.Now().UTC(),
	}
	if err := e.Storage.Save(doc); err != nil {
		return nil, err
	}
	e.Logger.WithFields(logrus.Fields{
		"document": doc.Name,
		"format":   doc.Format,
		"words":    doc.Words,
	}).Info("Document added to library")
	return doc, nil
}

// RemoveDocument deletes a library document. Names are trimmed the same way
// AddDocument trims them.
func (e *Engine) RemoveDocument(name string) error {
	name = strings.TrimSpace(name)
	if err := e.Storage.Delete(name); err != nil {
		return err
	}
	e.Logger.WithField("document", name).Info("Document removed from library")
	return nil
}

func (e *Engine) ListDocuments() ([]*storage.Document, error) {
	return e.Storage.List()
}

// CompareWithLibrary compares the request text against every library
// document in one run and stores the report.
func (e *Engine) CompareWithLibrary(ctx context.Context, req CompareRequest) (*Report, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	profile, params, err := e.Profile(req.Profile)
	if err != nil {
		return nil, err
	}
	if req.Params != nil {
		if err := req.Params.Validate(); err != nil {
			return nil, err
		}
		profile, params = "custom", *req.Params
	}

	corpus, err := storage.Corpus(e.Storage)
	if err != nil {
		e.recordError(err)
		return nil, fmt.Errorf("load library: %w", err)
	}
	if len(corpus) == 0 {
		return nil, ErrEmptyLibrary
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result := matcher.ComputeMatches(req.Text, corpus, params)
	highlighted, outcomes := matcher.HighlightDetailed(req.Text, result.Matches)

	rep := &Report{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Profile:          profile,
		Params:           params,
		GlobalSimilarity: result.GlobalSimilarity,
		Band:             report.Classify(result.GlobalSimilarity),
		Matches:          result.Matches,
		Highlighted:      highlighted,
		Snippets:         outcomes,
		LibrarySize:      len(corpus),
		CreatedAt:        time.Now().UTC(),
	}
	if rep.Matches == nil {
		rep.Matches = []matcher.Match{}
	}

	e.remember(rep.ID, rep)
	e.mu.Lock()
	e.Stats.Comparisons++
	e.mu.Unlock()

	e.Logger.WithFields(logrus.Fields{
		"report":            rep.ID,
		"profile":           profile,
		"library_size":      len(corpus),
		"matches":           len(rep.Matches),
		"global_similarity": rep.GlobalSimilarity,
		"duration":          time.Since(start),
	}).Info("Library comparison completed")

	return rep, nil
}

// ScanWeb searches the web for passages of the request text.
func (e *Engine) ScanWeb(ctx context.Context, req WebScanRequest) (*WebScanReport, error) {
	if e.Scanner == nil {
		return nil, ErrWebScanUnavailable
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	profile, params, err := e.Profile(req.Profile)
	if err != nil {
		return nil, err
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = config.ModeQuick
	}
	maxChunks, ok := e.Config.Web.ChunksFor(mode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	web, err := e.Scanner.Scan(ctx, req.Text, websearch.ScanOptions{
		Params:          params,
		MaxChunks:       maxChunks,
		ResultsPerChunk: e.Config.Web.ResultsPerChunk,
		FetchPages:      e.Config.Web.FetchPages,
	})
	e.Gate.Cleanup(gateIdle)
	if err != nil {
		e.recordError(err)
		return nil, err
	}

	rep := &WebScanReport{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Mode:      mode,
		Profile:   profile,
		Band:      report.Classify(web.GlobalSimilarity),
		CreatedAt: time.Now().UTC(),
		WebReport: web,
	}
	e.remember(rep.ID, rep)
	e.mu.Lock()
	e.Stats.WebScans++
	e.mu.Unlock()
	return rep, nil
}

// LastReport returns a stored library report or web scan report by ID.
func (e *Engine) LastReport(id string) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rep, ok := e.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

// Status reports library size, profiles and counters.
func (e *Engine) Status() (Status, error) {
	docs, err := e.Storage.List()
	if err != nil {
		return Status{}, err
	}
	e.mu.RLock()
	stats := e.Stats
	e.mu.RUnlock()

	st := Status{
		Documents:  len(docs),
		Profiles:   e.Profiles.Names(),
		WebScan:    e.Scanner != nil,
		Stats:      stats,
		Politeness: e.Gate.Statistics(),
	}
	if e.Provider != nil {
		st.Provider = e.Provider.Name()
	}
	return st, nil
}

func (e *Engine) Close() error {
	return e.Storage.Close()
}

// remember caches a report, evicting the oldest beyond the configured size.
func (e *Engine) remember(id string, rep any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports[id] = rep
	e.order = append(e.order, id)
	limit := e.Config.Matching.ReportCacheSize
	if limit < 1 {
		limit = 1
	}
	for len(e.order) > limit {
		delete(e.reports, e.order[0])
		e.order = e.order[1:]
	}
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	e.Stats.LastError = err.Error()
	e.mu.Unlock()
}
