package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/tribunapp/prediction/internal/backoffice/handler"
	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/repository"
	"github.com/tribunapp/prediction/internal/service"
	"github.com/tribunapp/prediction/internal/ws"
)

// BackofficeDeps bundles every dependency needed for the admin router.
type BackofficeDeps struct {
	MatchSvc       *service.MatchService
	SettlementSvc  *service.SettlementService
	FixtureSvc     *service.FixtureService
	MatchRepo      *repository.MatchRepository
	PredictionRepo *repository.PredictionRepository
	Hub            *ws.Hub
	Cfg            *config.Config
}

// SetupBackofficeRouter creates the admin Gin engine. It listens on its own
// port; operator access is gated by the IP whitelist plus the X-Admin-Key
// header checked against a bcrypt hash.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))
	r.Use(adminKeyMiddleware(deps.Cfg))

	dashH := handler.NewDashboardHandler(deps.MatchRepo, deps.PredictionRepo, deps.FixtureSvc, deps.Hub)
	matchH := handler.NewMatchAdminHandler(deps.MatchSvc, deps.SettlementSvc, deps.PredictionRepo)

	admin := r.Group("/admin")
	{
		admin.GET("/dashboard", dashH.Dashboard)
		admin.GET("/ledger", dashH.Ledger)

		m := admin.Group("/matches")
		{
			m.GET("", matchH.List)
			m.POST("", matchH.Create)
			m.GET("/:id", matchH.Detail)
			m.POST("/:id/settle", matchH.Settle)
			m.POST("/:id/refund", matchH.Refund)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin key middleware ──────────────────────────────────────────────────────

// adminKeyMiddleware compares the X-Admin-Key header against the configured
// bcrypt hash. With no hash configured (development) the check is skipped.
func adminKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	hash := []byte(cfg.Auth.AdminKeyHash)
	if len(hash) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Key")
		if key == "" || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid admin key",
			})
			return
		}
		c.Next()
	}
}
