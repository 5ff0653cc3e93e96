package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/service"
)

func feedConfig(baseURL string, cacheTTL time.Duration) *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{
			BaseURL:      baseURL,
			FetchTimeout: 2 * time.Second,
			CacheTTL:     cacheTTL,
		},
	}
}

func TestFetchUpcoming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/fixtures/upcoming" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fixtures":[
			{"ref":"fx-100","home_team":"Galatasaray","away_team":"Fenerbahce","kickoff":"2026-09-01T19:00:00Z"},
			{"ref":"fx-101","home_team":"Besiktas","away_team":"Trabzonspor","kickoff":"2026-09-02T17:30:00Z"}
		]}`))
	}))
	defer srv.Close()

	fs := service.NewFixtureService(feedConfig(srv.URL, time.Minute))

	fixtures, err := fs.FetchUpcoming(context.Background())
	if err != nil {
		t.Fatalf("FetchUpcoming: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("got %d fixtures, want 2", len(fixtures))
	}
	if fixtures[0].Ref != "fx-100" || fixtures[0].HomeTeam != "Galatasaray" {
		t.Errorf("unexpected first fixture: %+v", fixtures[0])
	}
	if !fs.FeedHealthy() {
		t.Error("feed should be healthy after a successful fetch")
	}
}

// A second call within the TTL must be served from cache, not the provider.
func TestFetchUpcomingCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"fixtures":[{"ref":"fx-1","home_team":"A","away_team":"B","kickoff":"2026-09-01T19:00:00Z"}]}`))
	}))
	defer srv.Close()

	fs := service.NewFixtureService(feedConfig(srv.URL, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := fs.FetchUpcoming(context.Background()); err != nil {
			t.Fatalf("FetchUpcoming #%d: %v", i+1, err)
		}
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("provider hit %d times, want 1 (cache within TTL)", got)
	}
}

func TestFetchResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/fixtures/fx-100/result" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"ref":"fx-100","status":"finished","home_score":2,"away_score":1}`))
	}))
	defer srv.Close()

	fs := service.NewFixtureService(feedConfig(srv.URL, time.Minute))

	res, err := fs.FetchResult(context.Background(), "fx-100")
	if err != nil {
		t.Fatalf("FetchResult: %v", err)
	}
	if res.Status != service.FeedStatusFinished || res.HomeScore != 2 || res.AwayScore != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if !res.Final() {
		t.Error("finished result should be final")
	}
}

func TestFeedResultFinal(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{service.FeedStatusFinished, true},
		{service.FeedStatusPostponed, true},
		{service.FeedStatusInPlay, false},
		{"half_time", false},
	}
	for _, tc := range cases {
		r := &service.FeedResult{Status: tc.status}
		if got := r.Final(); got != tc.want {
			t.Errorf("Final(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestFetchUpcomingProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	fs := service.NewFixtureService(feedConfig(srv.URL, time.Minute))

	if _, err := fs.FetchUpcoming(context.Background()); err == nil {
		t.Fatal("expected error on 502 response")
	}
	if fs.FeedHealthy() {
		t.Error("feed must not report healthy after a failed fetch")
	}
}
