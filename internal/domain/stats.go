package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Rank tiers
// ──────────────────────────────────────────────────────────────────────────────

// RankTier is a coarse skill classification derived from volume, win rate and
// profit. It is recomputed from scratch at every settlement rather than
// incrementally, so a regressing user is demoted on their next settlement.
type RankTier string

const (
	RankNovice  RankTier = "novice"
	RankAmateur RankTier = "amateur"
	RankSemiPro RankTier = "semi_pro"
	RankPro     RankTier = "pro"
	RankExpert  RankTier = "expert"
	RankOracle  RankTier = "oracle"
)

// rankThreshold is one row of the tier table: all three minimums must be met.
type rankThreshold struct {
	tier        RankTier
	predictions int
	winRate     float64
	netProfit   int64
}

// rankTable is ordered highest tier first. EvaluateRank returns the first row
// whose thresholds are all satisfied, so ordering is the correctness guarantee.
var rankTable = []rankThreshold{
	{RankOracle, 500, 0.58, 50000},
	{RankExpert, 200, 0.55, 0},
	{RankPro, 100, 0.52, 0},
	{RankSemiPro, 50, 0.50, 0},
	{RankAmateur, 20, 0.45, 0},
	{RankNovice, 0, 0, 0},
}

// ──────────────────────────────────────────────────────────────────────────────
// PredictionStats
// ──────────────────────────────────────────────────────────────────────────────

// PredictionStats is the per-user lifetime prediction record. One row per
// user, lazily created on first stake, updated exactly once per settled
// (won/lost) prediction. Refunds never touch it.
//
// Invariants: Wins + Losses == TotalPredictions. TotalWon sums credited
// payouts while TotalLost sums lost stakes, so NetProfit is TotalWon minus
// TotalLost minus the stakes put on won predictions (a win's profit is
// payout minus stake, not the whole payout).
type PredictionStats struct {
	UserID           uuid.UUID `json:"user_id"           db:"user_id"`
	TotalPredictions int       `json:"total_predictions" db:"total_predictions"`
	Wins             int       `json:"wins"              db:"wins"`
	Losses           int       `json:"losses"            db:"losses"`
	TotalStaked      int64     `json:"total_staked"      db:"total_staked"`
	TotalWon         int64     `json:"total_won"         db:"total_won"`
	TotalLost        int64     `json:"total_lost"        db:"total_lost"`
	NetProfit        int64     `json:"net_profit"        db:"net_profit"`
	CurrentStreak    int       `json:"current_streak"    db:"current_streak"`
	BestStreak       int       `json:"best_streak"       db:"best_streak"`
	RankTier         RankTier  `json:"rank_tier"         db:"rank_tier"`
	UpdatedAt        time.Time `json:"updated_at"        db:"updated_at"`
}

// NewPredictionStats returns the zero record a user starts from.
func NewPredictionStats(userID uuid.UUID) *PredictionStats {
	return &PredictionStats{
		UserID:   userID,
		RankTier: RankNovice,
	}
}

// WinRate returns wins / total_predictions, or 0 with no history.
func (s *PredictionStats) WinRate() float64 {
	if s.TotalPredictions == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalPredictions)
}

// ApplyWin folds one winning prediction into the record and re-ranks.
// payout is the final credited amount (after fee and streak multiplier).
func (s *PredictionStats) ApplyWin(stake, payout int64) {
	s.TotalPredictions++
	s.Wins++
	s.TotalStaked += stake
	s.TotalWon += payout
	s.NetProfit += payout - stake
	s.CurrentStreak++
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.RankTier = EvaluateRank(s)
}

// ApplyLoss folds one losing prediction into the record and re-ranks.
// Any loss resets the current streak to zero.
func (s *PredictionStats) ApplyLoss(stake int64) {
	s.TotalPredictions++
	s.Losses++
	s.TotalStaked += stake
	s.TotalLost += stake
	s.NetProfit -= stake
	s.CurrentStreak = 0
	s.RankTier = EvaluateRank(s)
}

// EvaluateRank walks the tier table from oracle down to novice and returns
// the first (highest) tier whose prediction-count, win-rate and net-profit
// minimums are all satisfied.
func EvaluateRank(s *PredictionStats) RankTier {
	winRate := s.WinRate()
	for _, row := range rankTable {
		if s.TotalPredictions >= row.predictions &&
			winRate >= row.winRate &&
			s.NetProfit >= row.netProfit {
			return row.tier
		}
	}
	return RankNovice
}

// ──────────────────────────────────────────────────────────────────────────────
// Read models
// ──────────────────────────────────────────────────────────────────────────────

// StatsView is PredictionStats plus the computed win rate for API responses.
type StatsView struct {
	PredictionStats
	WinRate float64 `json:"win_rate"`
}

// LeaderboardSortKey selects the ranking dimension of the leaderboard.
type LeaderboardSortKey string

const (
	SortByProfit  LeaderboardSortKey = "profit"
	SortByWinRate LeaderboardSortKey = "win_rate"
	SortByStreak  LeaderboardSortKey = "streak"
)

// IsValid returns true for a recognised sort key.
func (k LeaderboardSortKey) IsValid() bool {
	return k == SortByProfit || k == SortByWinRate || k == SortByStreak
}

// LeaderboardEntry is one ranked row: stats joined with the public profile.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"     db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	PredictionStats
	WinRate float64 `json:"win_rate"`
}
