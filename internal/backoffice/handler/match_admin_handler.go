package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
	"github.com/tribunapp/prediction/internal/service"
)

// MatchAdminHandler serves match creation, inspection, settlement and refund
// for operators.
type MatchAdminHandler struct {
	matchSvc       *service.MatchService
	settlementSvc  *service.SettlementService
	predictionRepo *repository.PredictionRepository
}

func NewMatchAdminHandler(
	matchSvc *service.MatchService,
	settlementSvc *service.SettlementService,
	predictionRepo *repository.PredictionRepository,
) *MatchAdminHandler {
	return &MatchAdminHandler{
		matchSvc:       matchSvc,
		settlementSvc:  settlementSvc,
		predictionRepo: predictionRepo,
	}
}

// List godoc
// GET /admin/matches?status=scheduled&page=1&limit=50
func (h *MatchAdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	status := domain.MatchStatus(c.Query("status"))

	matches, err := h.matchSvc.ListMatches(c.Request.Context(), status, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not list matches")
		return
	}
	respondSuccess(c, http.StatusOK, matches)
}

// Create godoc
// POST /admin/matches
// Body: {"home_team":"...","away_team":"...","match_date":"RFC3339",
//
//	"external_ref":"...","seed_home":0,"seed_draw":0,"seed_away":0}
func (h *MatchAdminHandler) Create(c *gin.Context) {
	var req service.CreateMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	match, err := h.matchSvc.CreateMatch(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMatch) {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create match")
		return
	}
	respondSuccess(c, http.StatusCreated, match)
}

// Detail godoc
// GET /admin/matches/:id
func (h *MatchAdminHandler) Detail(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match id")
		return
	}

	ctx := c.Request.Context()
	match, err := h.matchSvc.GetMatch(ctx, matchID)
	if err != nil {
		if domain.IsNotFound(err) {
			respondError(c, http.StatusNotFound, "ERR_MATCH_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch match")
		return
	}

	pending, _ := h.predictionRepo.CountByMatchAndStatus(ctx, matchID, domain.PredictionPending)
	respondSuccess(c, http.StatusOK, gin.H{
		"match":               match,
		"odds":                match.Odds(),
		"percentages":         match.Percentages(),
		"pending_predictions": pending,
	})
}

// Settle godoc
// POST /admin/matches/:id/settle
// Body: {"home_score":2,"away_score":1}
func (h *MatchAdminHandler) Settle(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match id")
		return
	}

	var body struct {
		HomeScore *int `json:"home_score" binding:"required"`
		AwayScore *int `json:"away_score" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	if *body.HomeScore < 0 || *body.AwayScore < 0 {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "scores must be non-negative")
		return
	}

	result, err := h.settlementSvc.SettleMatch(c.Request.Context(), matchID, *body.HomeScore, *body.AwayScore)
	if err != nil {
		h.respondSettleError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// Refund godoc
// POST /admin/matches/:id/refund
func (h *MatchAdminHandler) Refund(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match id")
		return
	}

	result, err := h.settlementSvc.RefundMatch(c.Request.Context(), matchID)
	if err != nil {
		h.respondSettleError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

func (h *MatchAdminHandler) respondSettleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadySettled):
		respondError(c, http.StatusConflict, "ERR_ALREADY_SETTLED", domain.ErrAlreadySettled.Error())
	case errors.Is(err, domain.ErrMatchStillOpen):
		respondError(c, http.StatusConflict, "ERR_MATCH_STILL_OPEN", domain.ErrMatchStillOpen.Error())
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "ERR_MATCH_NOT_FOUND", domain.ErrMatchNotFound.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "settlement failed")
	}
}
