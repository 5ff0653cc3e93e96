package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
	"github.com/tribunapp/prediction/internal/service"
	"github.com/tribunapp/prediction/internal/ws"
)

// DashboardHandler serves the operator overview and the house ledger report.
type DashboardHandler struct {
	matchRepo      *repository.MatchRepository
	predictionRepo *repository.PredictionRepository
	fixtureSvc     *service.FixtureService
	hub            *ws.Hub
}

func NewDashboardHandler(
	matchRepo *repository.MatchRepository,
	predictionRepo *repository.PredictionRepository,
	fixtureSvc *service.FixtureService,
	hub *ws.Hub,
) *DashboardHandler {
	return &DashboardHandler{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		fixtureSvc:     fixtureSvc,
		hub:            hub,
	}
}

// Dashboard godoc
// GET /admin/dashboard
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	openPool, openMatches, err := h.matchRepo.OpenPoolTotals(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not read pool totals")
		return
	}

	fees, unclaimed, err := h.matchRepo.HouseLedgerTotals(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not read house ledger")
		return
	}

	pending, _ := h.predictionRepo.CountByStatus(ctx, domain.PredictionPending)
	won, _ := h.predictionRepo.CountByStatus(ctx, domain.PredictionWon)
	lost, _ := h.predictionRepo.CountByStatus(ctx, domain.PredictionLost)
	refunded, _ := h.predictionRepo.CountByStatus(ctx, domain.PredictionRefunded)

	var wsConnections int
	if h.hub != nil {
		wsConnections = h.hub.ConnectedCount()
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"timestamp": time.Now().UTC(),
		"open_pools": gin.H{
			"total_coins": openPool,
			"matches":     openMatches,
		},
		"house": gin.H{
			"fees_collected": fees,
			"unclaimed_pool": unclaimed,
		},
		"predictions": gin.H{
			"pending":  pending,
			"won":      won,
			"lost":     lost,
			"refunded": refunded,
		},
		"ws_connections": wsConnections,
		"feed_healthy":   h.fixtureSvc.FeedHealthy(),
	})
}

// Ledger godoc
// GET /admin/ledger?limit=50
func (h *DashboardHandler) Ledger(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.matchRepo.ListHouseLedger(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not read ledger")
		return
	}

	fees, unclaimed, err := h.matchRepo.HouseLedgerTotals(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not read ledger totals")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"entries":         entries,
		"total_fees":      fees,
		"total_unclaimed": unclaimed,
	})
}
