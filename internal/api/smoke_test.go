// Package api_test runs HTTP-level smoke tests using net/http/httptest.
// These tests do NOT require a PostgreSQL database. They verify:
//   - Gin router routing and middleware wiring
//   - Request validation error responses (400)
//   - JWT auth middleware (401 without token, 401 with bad token)
//   - Response format consistency (success/error envelope)
//   - CORS preflight handling
package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/api"
	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/service"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

const testSecret = "test-jwt-secret-abcdefghijklmnop"

func testCfg() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:  "development",
			Port: "8080",
		},
		Auth: config.AuthConfig{
			JWTSecret: testSecret,
		},
		Betting: config.BettingConfig{
			MinStake: 10,
			MaxStake: 10000,
		},
	}
}

// buildTestRouter creates a Gin engine with a real TokenService (no DB needed
// for token parsing) and nil for everything that requires a DB.
func buildTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testCfg()
	tokenSvc := service.NewTokenService(cfg)

	return api.SetupRouter(api.RouterDeps{
		TokenSvc:      tokenSvc,
		MatchSvc:      nil,
		PredictionSvc: nil,
		StatsSvc:      nil,
		Hub:           nil,
		Cfg:           cfg,
	})
}

// signTestToken issues an access token the router's middleware will accept.
func signTestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := service.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role:      "user",
		TokenType: "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != "" {
		buf = bytes.NewBufferString(body)
	} else {
		buf = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("response is not valid JSON: %v, body: %s", err, rr.Body.String())
	}
	return m
}

// ── /health ───────────────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rr.Code)
	}
}

// ── JWT auth middleware (no token → 401) ──────────────────────────────────────

func TestMyStats_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/me/stats", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/me/stats without token = %d, want 401", rr.Code)
	}
}

func TestMyBalance_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/me/balance", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/me/balance without token = %d, want 401", rr.Code)
	}
}

func TestMyPredictions_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/predictions/my", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/predictions/my without token = %d, want 401", rr.Code)
	}
}

func TestPlacePrediction_NoToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	payload := `{"match_id":"11111111-1111-1111-1111-111111111111","outcome":"home","stake":100}`
	rr := do(t, h, http.MethodPost, "/api/predictions", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/predictions without token = %d, want 401", rr.Code)
	}
}

// ── JWT auth middleware (invalid token → 401) ─────────────────────────────────

func TestMyStats_InvalidToken_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/me/stats", "", map[string]string{
		"Authorization": "Bearer not.a.valid.jwt",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/me/stats with bad JWT = %d, want 401", rr.Code)
	}
}

func TestPlacePrediction_WrongSecret_Returns401(t *testing.T) {
	h := buildTestRouter(t)
	// Well-formed JWT signed with the wrong secret: ParseAccessToken rejects it.
	claims := service.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType: "access",
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("sign forged token: %v", err)
	}
	payload := `{"match_id":"11111111-1111-1111-1111-111111111111","outcome":"home","stake":100}`
	rr := do(t, h, http.MethodPost, "/api/predictions", payload, map[string]string{
		"Authorization": "Bearer " + forged,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/predictions with forged JWT = %d, want 401", rr.Code)
	}
}

func TestRefreshToken_Rejected(t *testing.T) {
	h := buildTestRouter(t)
	// Correct secret but type=refresh: must not pass the access-token check.
	claims := service.AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		TokenType: "refresh",
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}
	rr := do(t, h, http.MethodGet, "/api/me/stats", "", map[string]string{
		"Authorization": "Bearer " + refresh,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("refresh token on access route = %d, want 401", rr.Code)
	}
}

// ── Validation layer (valid token, bad body) ──────────────────────────────────

func TestPlacePrediction_EmptyBody_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	token := signTestToken(t, uuid.New())
	rr := do(t, h, http.MethodPost, "/api/predictions", `{}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/predictions empty body = %d, want 400", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["success"] != false {
		t.Errorf("response.success should be false on error, got %v", body["success"])
	}
	if body["code"] == nil {
		t.Errorf("error envelope missing 'code', got: %v", body)
	}
}

func TestPlacePrediction_BadMatchID_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	token := signTestToken(t, uuid.New())
	payload := `{"match_id":"not-a-uuid","outcome":"home","stake":100}`
	rr := do(t, h, http.MethodPost, "/api/predictions", payload, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST /api/predictions bad match_id = %d, want 400", rr.Code)
	}
}

func TestPredictionByID_BadID_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	token := signTestToken(t, uuid.New())
	rr := do(t, h, http.MethodGet, "/api/predictions/not-a-uuid", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/predictions/not-a-uuid = %d, want 400", rr.Code)
	}
}

// ── Public routes ─────────────────────────────────────────────────────────────

func TestLeaderboard_IsPublic(t *testing.T) {
	h := buildTestRouter(t)
	// No token: should NOT be 401. Will be 500 (nil statsSvc), that's acceptable.
	rr := do(t, h, http.MethodGet, "/api/leaderboard", "", nil)
	if rr.Code == http.StatusUnauthorized {
		t.Error("GET /api/leaderboard should be a public endpoint (no 401)")
	}
}

func TestUpcomingMatches_IsPublic(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/matches/upcoming", "", nil)
	if rr.Code == http.StatusUnauthorized {
		t.Error("GET /api/matches/upcoming should be public (no 401)")
	}
}

func TestMatchByID_BadID_Returns400(t *testing.T) {
	h := buildTestRouter(t)
	rr := do(t, h, http.MethodGet, "/api/matches/not-a-uuid", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("GET /api/matches/not-a-uuid = %d, want 400", rr.Code)
	}
}

// ── Error envelope format ─────────────────────────────────────────────────────

func TestErrorEnvelope_HasRequiredFields(t *testing.T) {
	h := buildTestRouter(t)
	token := signTestToken(t, uuid.New())
	rr := do(t, h, http.MethodPost, "/api/predictions", `{}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	body := decodeBody(t, rr)

	for _, field := range []string{"success", "error", "code"} {
		if _, ok := body[field]; !ok {
			t.Errorf("error envelope missing field %q, got: %v", field, body)
		}
	}
	if body["success"] != false {
		t.Errorf("error envelope.success = %v, want false", body["success"])
	}
}

// ── CORS headers ──────────────────────────────────────────────────────────────

func TestCORSOptionsRequest(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/predictions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent && rr.Code != http.StatusOK {
		t.Errorf("OPTIONS /api/predictions = %d, want 204 or 200", rr.Code)
	}
	allow := rr.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, "POST") {
		t.Errorf("Access-Control-Allow-Methods missing POST, got %q", allow)
	}
}

func TestCORSAllowOrigin_Dev(t *testing.T) {
	h := buildTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	origin := rr.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("dev CORS origin = %q, want *", origin)
	}
}
