package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/tribunapp/prediction/internal/config"
	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Injected strategies
// ──────────────────────────────────────────────────────────────────────────────

// RewardModifier lets the wider platform adjust a winner's payout (equipped
// card bonuses and the like) without the settlement loop knowing about those
// subsystems. The default implementation changes nothing.
type RewardModifier interface {
	Modify(ctx context.Context, userID uuid.UUID, basePayout int64) int64
}

type noopRewardModifier struct{}

func (noopRewardModifier) Modify(_ context.Context, _ uuid.UUID, basePayout int64) int64 {
	return basePayout
}

// SettlementBroadcaster is the slice of the WS hub the settlement engine
// needs. Implemented by ws.Hub.
type SettlementBroadcaster interface {
	BroadcastMatchSettled(summary *domain.MatchSummary, result domain.Outcome)
	BroadcastMatchRefunded(summary *domain.MatchSummary)
}

// ──────────────────────────────────────────────────────────────────────────────
// SettlementService
// ──────────────────────────────────────────────────────────────────────────────

// SettlementService resolves finished matches and refunds cancelled ones.
//
// Each pending prediction is finalized in its own short transaction whose
// first statement flips the row out of 'pending'. A run that dies halfway can
// be retried safely: already-finalized predictions fail the guard and are
// skipped without a second credit. The match row update, itself guarded by
// is_settled = false, is the overall commit point; once it lands a repeat
// call reports ErrAlreadySettled and changes nothing.
type SettlementService struct {
	db             *sqlx.DB
	matchRepo      *repository.MatchRepository
	predictionRepo *repository.PredictionRepository
	statsRepo      *repository.StatsRepository
	userRepo       *repository.UserRepository
	cfg            *config.Config
	logger         *slog.Logger
	rewardModifier RewardModifier
	broadcaster    SettlementBroadcaster // optional, injected after the hub is built
}

func NewSettlementService(
	db *sqlx.DB,
	matchRepo *repository.MatchRepository,
	predictionRepo *repository.PredictionRepository,
	statsRepo *repository.StatsRepository,
	userRepo *repository.UserRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		db:             db,
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		statsRepo:      statsRepo,
		userRepo:       userRepo,
		cfg:            cfg,
		logger:         logger,
		rewardModifier: noopRewardModifier{},
	}
}

// SetRewardModifier swaps in a platform-provided payout strategy.
func (s *SettlementService) SetRewardModifier(m RewardModifier) {
	if m != nil {
		s.rewardModifier = m
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *SettlementService) SetBroadcaster(b SettlementBroadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// SettleMatch
// ──────────────────────────────────────────────────────────────────────────────

// SettlementResult reports what a settlement run did. SettledCount covers
// this run only; the money fields and WinnerCount are whole-match totals,
// rebuilt at commit time so a resumed run still reports the predictions an
// earlier interrupted run finalized.
type SettlementResult struct {
	MatchID      uuid.UUID      `json:"match_id"`
	Result       domain.Outcome `json:"result"`
	SettledCount int            `json:"settled_count"`
	WinnerCount  int            `json:"winner_count"`
	FeesTaken    int64          `json:"fees_taken"`
	PaidOut      int64          `json:"paid_out"`
}

// SettleMatch resolves every pending prediction on the match for the given
// final score. Winners are credited floor(stake × finalOdds) minus the fee
// on profit, times their streak multiplier; losers are marked lost. Each
// resolved prediction is folded into the user's PredictionStats and the rank
// tier is recomputed.
//
// When nobody backed the actual outcome the winning pool is empty, final
// odds degenerate to 1 and the house retains the whole pool.
func (s *SettlementService) SettleMatch(ctx context.Context, matchID uuid.UUID, homeScore, awayScore int) (*SettlementResult, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: %w", err)
	}
	if match.IsSettled {
		return nil, domain.ErrAlreadySettled
	}
	// A final score cannot exist before kickoff. Refusing here also fixes
	// the pool snapshot: once the window is closed no stake can change the
	// pools, so the odds computed below are the odds winners are paid at.
	if match.IsOpenForPredictions(time.Now().UTC()) {
		return nil, domain.ErrMatchStillOpen
	}

	result := domain.ResultFromScore(homeScore, awayScore)
	finalOdds := domain.FinalOdds(match.TotalPool, match.PoolFor(result))

	pending, err := s.predictionRepo.GetPendingByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: fetch pending: %w", err)
	}

	res := &SettlementResult{MatchID: matchID, Result: result}
	for _, p := range pending {
		done, perr := s.settlePrediction(ctx, p, result, finalOdds)
		if perr != nil {
			// The match stays unsettled and the poller retries. Predictions
			// already finalized are protected by their status guard.
			return nil, fmt.Errorf("settlement_service.SettleMatch: prediction %s: %w", p.ID, perr)
		}
		if done {
			res.SettledCount++
		}
	}

	// Commit point: freeze the match and write the house ledger together.
	// The row lock serialises against placement, which holds the same lock
	// while inserting a prediction, so the pending re-check below is
	// authoritative: zero pending under the lock means zero forever.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: begin final tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	locked, err := s.matchRepo.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: lock match: %w", err)
	}
	if locked.IsSettled {
		err = domain.ErrAlreadySettled
		return nil, err
	}
	stillPending, err := s.predictionRepo.CountPendingByMatch(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: %w", err)
	}
	if stillPending > 0 {
		err = fmt.Errorf("settlement_service.SettleMatch: %d predictions still pending, retrying", stillPending)
		return nil, err
	}

	// Ledger totals are rebuilt from the settled rows rather than from this
	// run's counters, so a run that resumes after a crash still records the
	// fees and payouts of the predictions the first run finalized. The fee
	// depends only on stake and odds, never on the winner's streak, which
	// is what makes it recomputable here.
	winners, err := s.predictionRepo.WinnersByMatch(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: %w", err)
	}
	res.WinnerCount = len(winners)
	for _, w := range winners {
		res.FeesTaken += domain.WinnerPayout(w.Stake, finalOdds, 0).HouseFee
		res.PaidOut += w.ActualPayout
	}
	var unclaimed int64
	if locked.PoolFor(result) == 0 {
		unclaimed = locked.TotalPool
	}

	if err = s.matchRepo.SettleFinal(ctx, tx, matchID, homeScore, awayScore, result); err != nil {
		return nil, err
	}
	if err = s.matchRepo.RecordHouseLedger(ctx, tx, matchID, res.FeesTaken, unclaimed); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("settlement_service.SettleMatch: commit final tx: %w", err)
	}

	s.logger.Info("match settled",
		"match_id", matchID,
		"result", result,
		"final_odds", finalOdds.StringFixed(2),
		"settled", res.SettledCount,
		"winners", res.WinnerCount,
		"paid_out", res.PaidOut,
		"fees", res.FeesTaken,
		"unclaimed", unclaimed,
	)

	if s.broadcaster != nil {
		match.Status = domain.MatchFinished
		match.IsSettled = true
		match.HomeScore = &homeScore
		match.AwayScore = &awayScore
		summary := match.ToSummary()
		s.broadcaster.BroadcastMatchSettled(&summary, result)
	}

	return res, nil
}

// settlePrediction finalizes one prediction in its own transaction. The
// returned bool reports whether this call performed the pending transition.
//
// The stats row is read FOR UPDATE inside the same transaction that writes
// it back, so two settlements touching the same user fold their streak and
// counter updates one after the other instead of overwriting each other.
func (s *SettlementService) settlePrediction(ctx context.Context, p *domain.Prediction, result domain.Outcome, finalOdds decimal.Decimal) (settled bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stats, err := s.statsRepo.GetForUpdate(ctx, tx, p.UserID)
	if err != nil {
		return false, err
	}

	if p.Prediction == result {
		breakdown := domain.WinnerPayout(p.Stake, finalOdds, stats.CurrentStreak+1)
		payout := s.rewardModifier.Modify(ctx, p.UserID, breakdown.Final)

		settled, err = s.predictionRepo.MarkSettled(ctx, tx, p.ID, domain.PredictionWon, payout)
		if err != nil || !settled {
			if err == nil {
				err = tx.Rollback()
			}
			return false, err
		}
		if err = s.userRepo.CreditCoins(ctx, tx, p.UserID, payout); err != nil {
			return false, err
		}
		stats.ApplyWin(p.Stake, payout)
		if err = s.statsRepo.Upsert(ctx, tx, stats); err != nil {
			return false, err
		}
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit: %w", err)
		}
		return true, nil
	}

	settled, err = s.predictionRepo.MarkSettled(ctx, tx, p.ID, domain.PredictionLost, 0)
	if err != nil || !settled {
		if err == nil {
			err = tx.Rollback()
		}
		return false, err
	}
	stats.ApplyLoss(p.Stake)
	if err = s.statsRepo.Upsert(ctx, tx, stats); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// RefundMatch
// ──────────────────────────────────────────────────────────────────────────────

// RefundResult reports what a refund run did.
type RefundResult struct {
	MatchID       uuid.UUID `json:"match_id"`
	RefundedCount int       `json:"refunded_count"`
	RefundedTotal int64     `json:"refunded_total"`
}

// RefundMatch returns every pending stake on a cancelled match, coin for
// coin. No fee, no odds, no stats impact: a refunded prediction never counts
// toward streaks, win rate or volume. The same status guard used by
// settlement makes refunds idempotent and resumable.
func (s *SettlementService) RefundMatch(ctx context.Context, matchID uuid.UUID) (*RefundResult, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: %w", err)
	}
	if match.IsSettled {
		return nil, domain.ErrAlreadySettled
	}

	pending, err := s.predictionRepo.GetPendingByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: fetch pending: %w", err)
	}

	res := &RefundResult{MatchID: matchID}
	for _, p := range pending {
		done, rerr := s.refundPrediction(ctx, p)
		if rerr != nil {
			return nil, fmt.Errorf("settlement_service.RefundMatch: prediction %s: %w", p.ID, rerr)
		}
		if done {
			res.RefundedCount++
			res.RefundedTotal += p.Stake
		}
	}

	// Cancellations can arrive before kickoff, so a stake may land between
	// the pending read above and this commit. The lock plus re-check turns
	// that into a retry instead of leaving the late stake stranded.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: begin final tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	locked, err := s.matchRepo.GetForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: lock match: %w", err)
	}
	if locked.IsSettled {
		err = domain.ErrAlreadySettled
		return nil, err
	}
	stillPending, err := s.predictionRepo.CountPendingByMatch(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: %w", err)
	}
	if stillPending > 0 {
		err = fmt.Errorf("settlement_service.RefundMatch: %d predictions still pending, retrying", stillPending)
		return nil, err
	}
	if err = s.matchRepo.CancelFinal(ctx, tx, matchID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("settlement_service.RefundMatch: commit final tx: %w", err)
	}

	s.logger.Info("match refunded",
		"match_id", matchID,
		"refunded", res.RefundedCount,
		"total", res.RefundedTotal,
	)

	if s.broadcaster != nil {
		match.Status = domain.MatchCancelled
		match.IsSettled = true
		summary := match.ToSummary()
		s.broadcaster.BroadcastMatchRefunded(&summary)
	}

	return res, nil
}

// refundPrediction returns one stake in its own transaction, guarded the same
// way as settlement.
func (s *SettlementService) refundPrediction(ctx context.Context, p *domain.Prediction) (refunded bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	refunded, err = s.predictionRepo.MarkSettled(ctx, tx, p.ID, domain.PredictionRefunded, p.Stake)
	if err != nil || !refunded {
		if err == nil {
			err = tx.Rollback()
		}
		return false, err
	}
	if err = s.userRepo.CreditCoins(ctx, tx, p.UserID, p.Stake); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
