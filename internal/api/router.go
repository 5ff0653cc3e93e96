package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tribunapp/prediction/internal/api/handler"
	"github.com/tribunapp/prediction/internal/api/middleware"
	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/service"
	"github.com/tribunapp/prediction/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	TokenSvc      *service.TokenService
	MatchSvc      *service.MatchService
	PredictionSvc *service.PredictionService
	StatsSvc      *service.StatsService
	Hub           *ws.Hub
	Cfg           *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	matchH := handler.NewMatchHandler(deps.MatchSvc, deps.PredictionSvc)
	predictionH := handler.NewPredictionHandler(deps.PredictionSvc)
	statsH := handler.NewStatsHandler(deps.StatsSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.TokenSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	readRL := middleware.RateLimitMiddleware(60)  // public read endpoints
	stakeRL := middleware.RateLimitMiddleware(10) // stake placement per IP

	api := r.Group("/api")
	api.Use(readRL)
	{
		// ── Matches (public) ─────────────────────────────────────────────────
		matches := api.Group("/matches")
		{
			matches.GET("/upcoming", matchH.ListUpcoming)
			matches.GET("", matchH.ListMatches)
			matches.GET("/:id", matchH.GetByID)
			matches.GET("/:id/odds", matchH.GetOdds)
		}

		// ── Leaderboard (public) ─────────────────────────────────────────────
		api.GET("/leaderboard", statsH.Leaderboard)

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me/stats", statsH.MyStats)
			authed.GET("/me/balance", statsH.MyBalance)

			// Predictions
			predictions := authed.Group("/predictions")
			{
				predictions.POST("", stakeRL, predictionH.Place)
				predictions.GET("/my", predictionH.GetMy)
				predictions.GET("/:id", predictionH.GetByID)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://tribunapp.com":     true,
				"https://www.tribunapp.com": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
