package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/service"
)

// MatchHandler serves the public match and odds endpoints.
type MatchHandler struct {
	matchSvc      *service.MatchService
	predictionSvc *service.PredictionService
}

func NewMatchHandler(matchSvc *service.MatchService, predictionSvc *service.PredictionService) *MatchHandler {
	return &MatchHandler{matchSvc: matchSvc, predictionSvc: predictionSvc}
}

// ListUpcoming godoc
// GET /api/matches/upcoming?limit=20
func (h *MatchHandler) ListUpcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	summaries, err := h.matchSvc.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch matches")
		return
	}
	respondSuccess(c, http.StatusOK, summaries)
}

// ListMatches godoc
// GET /api/matches?status=finished&page=1&limit=20
func (h *MatchHandler) ListMatches(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit
	status := domain.MatchStatus(c.Query("status"))

	matches, err := h.matchSvc.ListMatches(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch matches")
		return
	}
	respondList(c, matches, len(matches), page, limit)
}

// GetByID godoc
// GET /api/matches/:id
func (h *MatchHandler) GetByID(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match id")
		return
	}

	match, err := h.matchSvc.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_MATCH_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch match")
		return
	}
	respondSuccess(c, http.StatusOK, match)
}

// GetOdds godoc
// GET /api/matches/:id/odds
func (h *MatchHandler) GetOdds(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match id")
		return
	}

	odds, err := h.predictionSvc.GetOdds(c.Request.Context(), matchID)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_MATCH_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch odds")
		return
	}
	respondSuccess(c, http.StatusOK, odds)
}

// parsePagination reads ?page and ?limit with sane bounds.
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
