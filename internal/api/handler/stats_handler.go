package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tribunapp/prediction/internal/api/middleware"
	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/service"
)

// StatsHandler serves user stats, balance, and the leaderboard.
type StatsHandler struct {
	statsSvc *service.StatsService
}

func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// MyStats godoc
// GET /api/me/stats [JWT]
func (h *StatsHandler) MyStats(c *gin.Context) {
	userID := middleware.GetUserID(c)

	stats, err := h.statsSvc.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch stats")
		return
	}
	respondSuccess(c, http.StatusOK, stats)
}

// MyBalance godoc
// GET /api/me/balance [JWT]
func (h *StatsHandler) MyBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)

	coins, err := h.statsSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_USER_NOT_FOUND", domain.ErrUserNotFound.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch balance")
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"coins": coins})
}

// Leaderboard godoc
// GET /api/leaderboard?sort=profit&limit=50
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	sortKey := domain.LeaderboardSortKey(c.DefaultQuery("sort", string(domain.SortByProfit)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.statsSvc.GetLeaderboard(c.Request.Context(), sortKey, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSortKey) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_SORT_KEY", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch leaderboard")
		return
	}
	respondSuccess(c, http.StatusOK, entries)
}
