// Package domain defines the core business entities and the pure
// pool/odds/payout arithmetic for the parimutuel match prediction engine.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MatchStatus represents the lifecycle state of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled" // fixture known, accepting predictions
	MatchLive      MatchStatus = "live"      // kicked off, predictions closed
	MatchFinished  MatchStatus = "finished"  // final score known, settled
	MatchCancelled MatchStatus = "cancelled" // postponed/voided, stakes refunded
)

// Outcome represents the side a user predicts.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// IsValid returns true if the outcome is one of home/draw/away.
func (o Outcome) IsValid() bool {
	return o == OutcomeHome || o == OutcomeDraw || o == OutcomeAway
}

// Odds floor and the display defaults used while a pool side is still empty.
// The defaults exist purely to render plausible odds before any coins have
// been staked on a side; they are never used once real money is in the pool.
var (
	MinOdds         = decimal.NewFromFloat(1.01)
	DefaultHomeOdds = decimal.NewFromFloat(2.00)
	DefaultDrawOdds = decimal.NewFromFloat(3.50)
	DefaultAwayOdds = decimal.NewFromFloat(2.00)
)

// ──────────────────────────────────────────────────────────────────────────────
// Match
// ──────────────────────────────────────────────────────────────────────────────

// Match represents a single fixture with its parimutuel pools.
// All pool fields are whole coins and satisfy
// TotalPool == HomePool + DrawPool + AwayPool at all times.
type Match struct {
	ID          uuid.UUID   `json:"id"           db:"id"`
	HomeTeam    string      `json:"home_team"    db:"home_team"`
	AwayTeam    string      `json:"away_team"    db:"away_team"`
	ExternalRef string      `json:"external_ref" db:"external_ref"`
	Status      MatchStatus `json:"status"       db:"status"`
	MatchDate   time.Time   `json:"match_date"   db:"match_date"`

	HomeScore *int     `json:"home_score" db:"home_score"`
	AwayScore *int     `json:"away_score" db:"away_score"`
	Result    *Outcome `json:"result"     db:"result"`
	IsSettled bool     `json:"is_settled" db:"is_settled"`

	TotalPool       int64 `json:"total_pool"       db:"total_pool"`
	HomePool        int64 `json:"home_pool"        db:"home_pool"`
	DrawPool        int64 `json:"draw_pool"        db:"draw_pool"`
	AwayPool        int64 `json:"away_pool"        db:"away_pool"`
	PredictionCount int   `json:"prediction_count" db:"prediction_count"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PoolFor returns the pool staked on the given outcome.
func (m *Match) PoolFor(o Outcome) int64 {
	switch o {
	case OutcomeHome:
		return m.HomePool
	case OutcomeDraw:
		return m.DrawPool
	case OutcomeAway:
		return m.AwayPool
	}
	return 0
}

// AddStake increments the outcome pool, the total pool and the prediction
// count in memory. The repository applies the same deltas to the row; this
// in-memory mutation exists so placement can price the post-stake pool.
func (m *Match) AddStake(o Outcome, stake int64) {
	switch o {
	case OutcomeHome:
		m.HomePool += stake
	case OutcomeDraw:
		m.DrawPool += stake
	case OutcomeAway:
		m.AwayPool += stake
	}
	m.TotalPool += stake
	m.PredictionCount++
}

// ──────────────────────────────────────────────────────────────────────────────
// Pool → odds / percentages (pure, recomputed on every read)
// ──────────────────────────────────────────────────────────────────────────────

// OddsLine is the displayable payout multiplier per outcome.
type OddsLine struct {
	Home decimal.Decimal `json:"home"`
	Draw decimal.Decimal `json:"draw"`
	Away decimal.Decimal `json:"away"`
}

// For returns the odds for the given outcome.
func (l OddsLine) For(o Outcome) decimal.Decimal {
	switch o {
	case OutcomeHome:
		return l.Home
	case OutcomeDraw:
		return l.Draw
	case OutcomeAway:
		return l.Away
	}
	return decimal.Zero
}

// PercentLine is the share of the total pool per outcome, in whole percent.
type PercentLine struct {
	Home int `json:"home"`
	Draw int `json:"draw"`
	Away int `json:"away"`
}

// Odds derives the current odds line from the pool state:
//
//	odds[o] = max(total_pool / pool[o], 1.01)   when pool[o] > 0
//
// An empty side falls back to its display default (2.00 home/away, 3.50
// draw). Odds are truncated to 2 decimal places, never below MinOdds.
func (m *Match) Odds() OddsLine {
	return OddsLine{
		Home: oddsFromPool(m.TotalPool, m.HomePool, DefaultHomeOdds),
		Draw: oddsFromPool(m.TotalPool, m.DrawPool, DefaultDrawOdds),
		Away: oddsFromPool(m.TotalPool, m.AwayPool, DefaultAwayOdds),
	}
}

// OddsFor returns the current odds for one outcome.
func (m *Match) OddsFor(o Outcome) decimal.Decimal {
	return m.Odds().For(o)
}

func oddsFromPool(total, pool int64, fallback decimal.Decimal) decimal.Decimal {
	if pool <= 0 {
		return fallback
	}
	odds := decimal.NewFromInt(total).Div(decimal.NewFromInt(pool)).RoundDown(2)
	if odds.LessThan(MinOdds) {
		return MinOdds
	}
	return odds
}

// Percentages derives the pool distribution as whole percentages.
// An empty match reports the even-ish default 33/34/33 so the UI always has
// something summing to 100 to render.
func (m *Match) Percentages() PercentLine {
	if m.TotalPool <= 0 {
		return PercentLine{Home: 33, Draw: 34, Away: 33}
	}
	total := decimal.NewFromInt(m.TotalPool)
	pct := func(pool int64) int {
		return int(decimal.NewFromInt(pool * 100).Div(total).Round(0).IntPart())
	}
	return PercentLine{
		Home: pct(m.HomePool),
		Draw: pct(m.DrawPool),
		Away: pct(m.AwayPool),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsOpenForPredictions reports whether a stake may still be placed: the match
// must be scheduled AND its kickoff strictly in the future. A match whose
// kickoff has passed but whose status sync has not caught up yet is rejected.
func (m *Match) IsOpenForPredictions(now time.Time) bool {
	return m.Status == MatchScheduled && m.MatchDate.After(now)
}

// TimeToKickoff returns the duration until kickoff, or 0 if it has passed.
func (m *Match) TimeToKickoff() time.Duration {
	remaining := time.Until(m.MatchDate)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ──────────────────────────────────────────────────────────────────────────────
// MatchSummary: read model for list endpoints and WS broadcasts
// ──────────────────────────────────────────────────────────────────────────────

// MatchSummary is a derived, read-only view of a Match with live odds.
type MatchSummary struct {
	ID              uuid.UUID   `json:"id"`
	HomeTeam        string      `json:"home_team"`
	AwayTeam        string      `json:"away_team"`
	Status          MatchStatus `json:"status"`
	MatchDate       time.Time   `json:"match_date"`
	Odds            OddsLine    `json:"odds"`
	Percentages     PercentLine `json:"percentages"`
	TotalPool       int64       `json:"total_pool"`
	PredictionCount int         `json:"prediction_count"`
	KickoffInSec    int64       `json:"kickoff_in_sec"`
}

// ToSummary builds the read model with freshly computed odds.
func (m *Match) ToSummary() MatchSummary {
	return MatchSummary{
		ID:              m.ID,
		HomeTeam:        m.HomeTeam,
		AwayTeam:        m.AwayTeam,
		Status:          m.Status,
		MatchDate:       m.MatchDate,
		Odds:            m.Odds(),
		Percentages:     m.Percentages(),
		TotalPool:       m.TotalPool,
		PredictionCount: m.PredictionCount,
		KickoffInSec:    int64(m.TimeToKickoff().Seconds()),
	}
}
