package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into PredictionService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the minimal interface PredictionService needs from the WS
// hub. Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastOddsUpdate(summary *domain.MatchSummary)
}

// ──────────────────────────────────────────────────────────────────────────────
// PredictionService
// ──────────────────────────────────────────────────────────────────────────────

// PredictionService orchestrates stake placement and prediction queries.
// All money movement happens inside a single PostgreSQL transaction: the
// balance debit, the pool update and the prediction insert either all commit
// or none do, so the caller never observes a half-applied stake.
type PredictionService struct {
	db             *sqlx.DB
	predictionRepo *repository.PredictionRepository
	matchRepo      *repository.MatchRepository
	userRepo       *repository.UserRepository
	cfg            *config.Config
	broadcaster    Broadcaster // injected after the WS hub is built
}

// NewPredictionService creates a PredictionService.
func NewPredictionService(
	db *sqlx.DB,
	predictionRepo *repository.PredictionRepository,
	matchRepo *repository.MatchRepository,
	userRepo *repository.UserRepository,
	cfg *config.Config,
) *PredictionService {
	return &PredictionService{
		db:             db,
		predictionRepo: predictionRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		cfg:            cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *PredictionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// PlaceStake
// ──────────────────────────────────────────────────────────────────────────────

// PlaceStake validates the request, atomically debits the user's coins,
// grows the match pools, and records the prediction with the odds the stake
// locked in, all inside one PostgreSQL transaction.
//
// The locked-in odds are computed on the pool as it stands AFTER this stake
// is added: the placing user's own coins move the price they get, which is
// the defining property of a parimutuel market.
//
// Preconditions are checked in a fixed order, each with a distinct error:
// outcome → stake bounds → balance → match open → no duplicate.
func (s *PredictionService) PlaceStake(ctx context.Context, req domain.PlaceStakeRequest) (*domain.Prediction, error) {
	// ── 1. Input validation (no side effects) ────────────────────────────────
	if !req.Outcome.IsValid() {
		return nil, domain.ErrInvalidOutcome
	}
	if req.Stake < s.cfg.Betting.MinStake {
		return nil, domain.ErrInvalidStake
	}
	if s.cfg.Betting.MaxStake > 0 && req.Stake > s.cfg.Betting.MaxStake {
		return nil, domain.ErrInvalidStake
	}

	// ── 2. Begin transaction ─────────────────────────────────────────────────
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("prediction_service.PlaceStake: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 3. Debit balance (FOR UPDATE; typed error carries the shortfall) ─────
	if err = s.userRepo.DebitCoins(ctx, tx, req.UserID, req.Stake); err != nil {
		return nil, err
	}

	// ── 4. Lock match row and verify it is still open ────────────────────────
	match, lockErr := s.matchRepo.GetForUpdate(ctx, tx, req.MatchID)
	if lockErr != nil {
		err = lockErr
		return nil, err
	}
	if !match.IsOpenForPredictions(time.Now().UTC()) {
		err = domain.ErrMatchNotOpen
		return nil, err
	}

	// ── 5. One stake per user per match ──────────────────────────────────────
	exists, existsErr := s.predictionRepo.ExistsForUserMatch(ctx, tx, req.UserID, req.MatchID)
	if existsErr != nil {
		err = existsErr
		return nil, err
	}
	if exists {
		err = domain.ErrAlreadyPredicted
		return nil, err
	}

	// ── 6. Grow the pools ────────────────────────────────────────────────────
	if err = s.matchRepo.ApplyStake(ctx, tx, req.MatchID, req.Outcome, req.Stake); err != nil {
		return nil, err
	}

	// ── 7. Price the post-stake pool and lock the odds in ────────────────────
	match.AddStake(req.Outcome, req.Stake)
	odds := match.OddsFor(req.Outcome)

	// ── 8. Persist the prediction ────────────────────────────────────────────
	prediction := &domain.Prediction{
		ID:               uuid.New(),
		UserID:           req.UserID,
		MatchID:          req.MatchID,
		Prediction:       req.Outcome,
		Stake:            req.Stake,
		OddsAtPrediction: odds,
		PotentialPayout:  domain.PotentialPayoutFor(req.Stake, odds),
		Status:           domain.PredictionPending,
		CreatedAt:        time.Now().UTC(),
	}
	if err = s.predictionRepo.Create(ctx, tx, prediction); err != nil {
		return nil, err
	}

	// ── 9. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("prediction_service.PlaceStake: commit: %w", err)
	}

	// ── 10. Async: broadcast the new odds to WS clients ──────────────────────
	go s.broadcastOdds(req.MatchID)

	return prediction, nil
}

// broadcastOdds pushes the refreshed odds line after a committed stake.
// Runs in a goroutine; failures only cost a broadcast, never the stake.
func (s *PredictionService) broadcastOdds(matchID uuid.UUID) {
	if s.broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return
	}
	summary := match.ToSummary()
	s.broadcaster.BroadcastOddsUpdate(&summary)
}

// ──────────────────────────────────────────────────────────────────────────────
// Odds query
// ──────────────────────────────────────────────────────────────────────────────

// OddsResponse is the read-only odds view for one match.
type OddsResponse struct {
	MatchID     uuid.UUID          `json:"match_id"`
	Odds        domain.OddsLine    `json:"odds"`
	Percentages domain.PercentLine `json:"percentages"`
	TotalPool   int64              `json:"total_pool"`
}

// GetOdds recomputes the current odds and pool percentages from the live
// pool state. Nothing is written; stored odds are display cache only.
func (s *PredictionService) GetOdds(ctx context.Context, matchID uuid.UUID) (*OddsResponse, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("prediction_service.GetOdds: %w", err)
	}
	return &OddsResponse{
		MatchID:     match.ID,
		Odds:        match.Odds(),
		Percentages: match.Percentages(),
		TotalPool:   match.TotalPool,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyPredictions returns paginated predictions for a user.
func (s *PredictionService) GetMyPredictions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Prediction, error) {
	predictions, err := s.predictionRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("prediction_service.GetMyPredictions: %w", err)
	}
	return predictions, nil
}

// GetPredictionByID returns a single prediction only if it belongs to userID.
func (s *PredictionService) GetPredictionByID(ctx context.Context, predictionID, userID uuid.UUID) (*domain.Prediction, error) {
	prediction, err := s.predictionRepo.GetByID(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("prediction_service.GetPredictionByID: %w", err)
	}
	if prediction.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return prediction, nil
}
