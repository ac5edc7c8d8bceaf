// Package politeness keeps web scans respectful: it honours robots.txt and
// paces and bounds requests per domain.
package politeness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/knowledge-engine/veritas/internal/config"
)

var (
	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("politeness: blocked by robots.txt")
	// ErrInvalidURL is returned for URLs without a host or with a scheme
	// other than http and https.
	ErrInvalidURL = errors.New("politeness: invalid URL")
)

// Gate must be passed before each page request. Acquire blocks until the
// domain has a free slot and its pacing allows another request; Release gives
// the slot back.
type Gate struct {
	config      config.PolitenessConfig
	logger      *logrus.Entry
	client      *http.Client
	domains     map[string]*domainState
	robotsCache map[string]*robotsEntry
	mu          sync.Mutex

	stats Statistics
}

type domainState struct {
	limiter    *rate.Limiter
	slots      chan struct{}
	lastAccess time.Time
	// users counts callers between Acquire and Release, including those
	// still waiting; Cleanup keeps the state while it is non-zero.
	users int
}

type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// Statistics holds gate counters
type Statistics struct {
	TotalRequests    int64 `json:"total_requests"`
	RejectedRequests int64 `json:"rejected_requests"`
	ActiveRequests   int64 `json:"active_requests"`
	Domains          int   `json:"domains"`
}

// NewGate creates a gate. A nil client gets one with the configured request
// timeout.
func NewGate(cfg config.PolitenessConfig, client *http.Client, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logrus.WithField("component", "politeness_gate")
	}
	if cfg.DomainConcurrency < 1 {
		cfg.DomainConcurrency = 1
	}
	if client == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Gate{
		config:      cfg,
		logger:      logger,
		client:      client,
		domains:     make(map[string]*domainState),
		robotsCache: make(map[string]*robotsEntry),
	}
}

// Acquire waits for permission to request rawURL. Every successful Acquire
// must be paired with Release.
func (g *Gate) Acquire(ctx context.Context, rawURL string) error {
	u, err := parseURL(rawURL)
	if err != nil {
		return err
	}

	allowed, err := g.IsURLAllowed(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		g.mu.Lock()
		g.stats.RejectedRequests++
		g.mu.Unlock()
		g.logger.WithField("url", rawURL).Debug("URL blocked by robots.txt")
		return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}

	state := g.domainState(u.Host)

	select {
	case state.slots <- struct{}{}:
	case <-ctx.Done():
		g.leave(state)
		return ctx.Err()
	}

	if err := state.limiter.Wait(ctx); err != nil {
		<-state.slots
		g.leave(state)
		return err
	}

	g.mu.Lock()
	g.stats.TotalRequests++
	g.stats.ActiveRequests++
	state.lastAccess = time.Now()
	g.mu.Unlock()
	return nil
}

// Release frees the domain slot taken by Acquire.
func (g *Gate) Release(rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	g.mu.Lock()
	state, ok := g.domains[u.Host]
	if ok {
		g.stats.ActiveRequests--
		state.lastAccess = time.Now()
		state.users--
	}
	g.mu.Unlock()

	if ok {
		select {
		case <-state.slots:
		default:
		}
	}
}

// IsURLAllowed checks if URL is allowed according to robots.txt
func (g *Gate) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	if !g.config.EnableRobotsCheck {
		return true, nil
	}

	u, err := parseURL(rawURL)
	if err != nil {
		return false, err
	}

	robotsData, err := g.robotsData(ctx, u)
	if err != nil {
		g.logger.WithError(err).WithField("domain", u.Host).Warn("Failed to get robots.txt, allowing request")
		return true, nil
	}
	if robotsData == nil {
		return true, nil
	}

	group := robotsData.FindGroup(g.config.UserAgent)
	if group == nil {
		return true, nil
	}
	return group.Test(u.EscapedPath()), nil
}

// Statistics returns a snapshot of the gate counters.
func (g *Gate) Statistics() Statistics {
	g.mu.Lock()
	defer g.mu.Unlock()
	stats := g.stats
	stats.Domains = len(g.domains)
	return stats
}

// Cleanup drops idle domain states and expired robots.txt entries.
func (g *Gate) Cleanup(idle time.Duration) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	var expiredDomains, expiredRobots int
	for domain, state := range g.domains {
		if now.Sub(state.lastAccess) > idle && state.users == 0 {
			delete(g.domains, domain)
			expiredDomains++
		}
	}
	for key, entry := range g.robotsCache {
		if now.Sub(entry.fetchTime) > g.config.RobotsCacheDuration {
			delete(g.robotsCache, key)
			expiredRobots++
		}
	}

	if expiredDomains > 0 || expiredRobots > 0 {
		g.logger.WithFields(logrus.Fields{
			"expired_domains": expiredDomains,
			"expired_robots":  expiredRobots,
		}).Debug("Cleanup completed")
	}
}

func (g *Gate) domainState(domain string) *domainState {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state, ok := g.domains[domain]; ok {
		state.users++
		state.lastAccess = time.Now()
		return state
	}

	limit := rate.Inf
	if g.config.MinDelay > 0 {
		limit = rate.Every(g.config.MinDelay)
	}
	state := &domainState{
		limiter:    rate.NewLimiter(limit, 1),
		slots:      make(chan struct{}, g.config.DomainConcurrency),
		lastAccess: time.Now(),
		users:      1,
	}
	g.domains[domain] = state
	g.logger.WithField("domain", domain).Debug("Created new domain state")
	return state
}

// leave undoes domainState for an Acquire that failed.
func (g *Gate) leave(state *domainState) {
	g.mu.Lock()
	state.users--
	g.mu.Unlock()
}

// robotsData fetches and caches robots.txt. A missing or non-200 robots.txt
// is cached as nil, which allows everything.
func (g *Gate) robotsData(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	entry, exists := g.robotsCache[key]
	g.mu.Unlock()

	if exists && time.Since(entry.fetchTime) < g.config.RobotsCacheDuration {
		return entry.robots, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", g.config.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robotsData *robotstxt.RobotsData
	if resp.StatusCode == http.StatusOK {
		robotsData, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	g.mu.Lock()
	g.robotsCache[key] = &robotsEntry{robots: robotsData, fetchTime: time.Now()}
	g.mu.Unlock()

	return robotsData, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return u, nil
}
