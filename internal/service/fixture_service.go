package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tribunapp/prediction/internal/config"
)

// ──────────────────────────────────────────────────────────────────────────────
// Feed wire types
// ──────────────────────────────────────────────────────────────────────────────

// FeedFixture is one upcoming fixture as the provider reports it.
type FeedFixture struct {
	Ref      string    `json:"ref"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Kickoff  time.Time `json:"kickoff"`
}

// Feed result statuses. Anything else is treated as still in play.
const (
	FeedStatusFinished  = "finished"
	FeedStatusPostponed = "postponed"
	FeedStatusInPlay    = "in_play"
)

// FeedResult is the provider's view of a fixture past kickoff.
type FeedResult struct {
	Ref       string `json:"ref"`
	Status    string `json:"status"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// Final reports whether the fixture has reached a terminal state the
// settlement poller can act on.
func (r *FeedResult) Final() bool {
	return r.Status == FeedStatusFinished || r.Status == FeedStatusPostponed
}

// ──────────────────────────────────────────────────────────────────────────────
// FixtureService
// ──────────────────────────────────────────────────────────────────────────────

// FixtureService talks to the external fixtures/results provider. The
// upcoming-fixtures list is cached briefly since the sync loop and the
// backoffice dashboard both read it; result lookups are never cached.
type FixtureService struct {
	client *http.Client
	cfg    *config.FeedConfig

	mu          sync.RWMutex
	cached      []FeedFixture
	cacheTime   time.Time
	lastSuccess time.Time
}

func NewFixtureService(cfg *config.Config) *FixtureService {
	return &FixtureService{
		client: &http.Client{Timeout: cfg.Feed.FetchTimeout},
		cfg:    &cfg.Feed,
	}
}

// FetchUpcoming returns the provider's upcoming fixtures, serving from the
// in-memory cache while it is fresher than CacheTTL.
//
//	GET /v1/fixtures/upcoming
//	{"fixtures":[{"ref":"...","home_team":"...","away_team":"...","kickoff":"..."}]}
func (fs *FixtureService) FetchUpcoming(ctx context.Context) ([]FeedFixture, error) {
	fs.mu.RLock()
	if !fs.cacheTime.IsZero() && time.Since(fs.cacheTime) < fs.cfg.CacheTTL {
		fixtures := fs.cached
		fs.mu.RUnlock()
		return fixtures, nil
	}
	fs.mu.RUnlock()

	body, err := fs.doGet(ctx, fs.cfg.BaseURL+"/v1/fixtures/upcoming")
	if err != nil {
		return nil, fmt.Errorf("fixture_service: upcoming: %w", err)
	}

	var resp struct {
		Fixtures []FeedFixture `json:"fixtures"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fixture_service: upcoming parse: %w", err)
	}

	now := time.Now()
	fs.mu.Lock()
	fs.cached = resp.Fixtures
	fs.cacheTime = now
	fs.lastSuccess = now
	fs.mu.Unlock()

	return resp.Fixtures, nil
}

// FetchResult looks up the current result for one fixture.
//
//	GET /v1/fixtures/{ref}/result
//	{"ref":"...","status":"finished","home_score":2,"away_score":1}
func (fs *FixtureService) FetchResult(ctx context.Context, ref string) (*FeedResult, error) {
	body, err := fs.doGet(ctx, fs.cfg.BaseURL+"/v1/fixtures/"+ref+"/result")
	if err != nil {
		return nil, fmt.Errorf("fixture_service: result %s: %w", ref, err)
	}

	var result FeedResult
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("fixture_service: result %s parse: %w", ref, err)
	}
	if result.Ref == "" {
		result.Ref = ref
	}

	fs.mu.Lock()
	fs.lastSuccess = time.Now()
	fs.mu.Unlock()

	return &result, nil
}

// FeedHealthy reports whether the provider answered within the last minute.
// Used by the backoffice dashboard.
func (fs *FixtureService) FeedHealthy() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return !fs.lastSuccess.IsZero() && time.Since(fs.lastSuccess) < time.Minute
}

// doGet performs an HTTP GET and returns the body bytes, or an error for any
// non-200 status code.
func (fs *FixtureService) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "tribunapp-prediction/1.0")

	resp, err := fs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
