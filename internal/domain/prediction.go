package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// PredictionStatus represents the current state of a user's stake.
type PredictionStatus string

const (
	PredictionPending  PredictionStatus = "pending"  // awaiting settlement
	PredictionWon      PredictionStatus = "won"      // match resolved in user's favour
	PredictionLost     PredictionStatus = "lost"     // match resolved against user
	PredictionRefunded PredictionStatus = "refunded" // match cancelled; stake returned
)

// ──────────────────────────────────────────────────────────────────────────────
// Prediction
// ──────────────────────────────────────────────────────────────────────────────

// Prediction is a single user stake on one match outcome. A user holds at
// most one prediction per match (enforced by a DB unique constraint).
//
// Stake is debited from the user's coin balance exactly once, at creation.
// The row is mutated exactly once afterwards, by settlement or refund, to a
// terminal status, and is never deleted.
type Prediction struct {
	ID               uuid.UUID        `json:"id"                 db:"id"`
	UserID           uuid.UUID        `json:"user_id"            db:"user_id"`
	MatchID          uuid.UUID        `json:"match_id"           db:"match_id"`
	Prediction       Outcome          `json:"prediction"         db:"prediction"`
	Stake            int64            `json:"stake"              db:"stake"`
	OddsAtPrediction decimal.Decimal  `json:"odds_at_prediction" db:"odds_at_prediction"`
	PotentialPayout  int64            `json:"potential_payout"   db:"potential_payout"`
	Status           PredictionStatus `json:"status"             db:"status"`
	ActualPayout     *int64           `json:"actual_payout"      db:"actual_payout"`
	CreatedAt        time.Time        `json:"created_at"         db:"created_at"`
	SettledAt        *time.Time       `json:"settled_at"         db:"settled_at"`
}

// IsPending returns true while the prediction can still be settled or refunded.
func (p *Prediction) IsPending() bool {
	return p.Status == PredictionPending
}

// PotentialPayoutFor computes the locked-in payout promise at placement time:
// floor(stake × odds). Odds are the post-stake parimutuel odds: the placing
// user's own stake moves the price they lock in.
func PotentialPayoutFor(stake int64, odds decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(odds).Floor().IntPart()
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceStakeRequest: value object used by PredictionService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceStakeRequest carries the validated inputs for placing a stake.
type PlaceStakeRequest struct {
	UserID  uuid.UUID
	MatchID uuid.UUID
	Outcome Outcome
	Stake   int64
}
