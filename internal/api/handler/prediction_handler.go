package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/api/middleware"
	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/service"
)

// PredictionHandler serves stake placement and prediction history endpoints.
type PredictionHandler struct {
	predictionSvc *service.PredictionService
}

func NewPredictionHandler(predictionSvc *service.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictionSvc: predictionSvc}
}

// Place godoc
// POST /api/predictions [JWT]
// Body: {"match_id":"uuid","outcome":"home","stake":250}
func (h *PredictionHandler) Place(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		MatchID string `json:"match_id" binding:"required"`
		Outcome string `json:"outcome"  binding:"required"`
		Stake   int64  `json:"stake"    binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	matchID, err := uuid.Parse(body.MatchID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_MATCH_ID", "invalid match_id format")
		return
	}

	req := domain.PlaceStakeRequest{
		UserID:  userID,
		MatchID: matchID,
		Outcome: domain.Outcome(body.Outcome),
		Stake:   body.Stake,
	}

	prediction, err := h.predictionSvc.PlaceStake(c.Request.Context(), req)
	if err != nil {
		h.respondPlaceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, prediction)
}

// respondPlaceError maps placement failures to HTTP codes. Insufficient
// balance carries the exact shortfall in the payload.
func (h *PredictionHandler) respondPlaceError(c *gin.Context, err error) {
	var balErr *domain.InsufficientBalanceError
	switch {
	case errors.Is(err, domain.ErrInvalidOutcome):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_OUTCOME", domain.ErrInvalidOutcome.Error())
	case errors.Is(err, domain.ErrInvalidStake):
		respondError(c, http.StatusBadRequest, "ERR_INVALID_STAKE", domain.ErrInvalidStake.Error())
	case errors.As(err, &balErr):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"success":   false,
			"error":     balErr.Error(),
			"code":      "ERR_INSUFFICIENT_BALANCE",
			"balance":   balErr.Balance,
			"required":  balErr.Required,
			"shortfall": balErr.Shortfall(),
		})
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", domain.ErrInsufficientBalance.Error())
	case errors.Is(err, domain.ErrUserInactive):
		respondError(c, http.StatusForbidden, "ERR_USER_INACTIVE", domain.ErrUserInactive.Error())
	case errors.Is(err, domain.ErrAlreadyPredicted):
		respondError(c, http.StatusConflict, "ERR_ALREADY_PREDICTED", domain.ErrAlreadyPredicted.Error())
	case errors.Is(err, domain.ErrMatchNotOpen):
		respondError(c, http.StatusConflict, "ERR_MATCH_NOT_OPEN", domain.ErrMatchNotOpen.Error())
	case errors.Is(err, domain.ErrMatchNotFound):
		respondError(c, http.StatusNotFound, "ERR_MATCH_NOT_FOUND", domain.ErrMatchNotFound.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not place prediction")
	}
}

// GetMy godoc
// GET /api/predictions/my?page=1&limit=20 [JWT]
func (h *PredictionHandler) GetMy(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	predictions, err := h.predictionSvc.GetMyPredictions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch predictions")
		return
	}
	respondList(c, predictions, len(predictions), page, limit)
}

// GetByID godoc
// GET /api/predictions/:id [JWT]
func (h *PredictionHandler) GetByID(c *gin.Context) {
	userID := middleware.GetUserID(c)

	predictionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_PREDICTION_ID", "invalid prediction id")
		return
	}

	prediction, err := h.predictionSvc.GetPredictionByID(c.Request.Context(), predictionID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this prediction does not belong to you")
		case domain.IsNotFound(err):
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", "prediction not found")
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch prediction")
		}
		return
	}
	respondSuccess(c, http.StatusOK, prediction)
}
