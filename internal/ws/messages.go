// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeOddsUpdate     MsgType = "odds_update"
	MsgTypeMatchSettled   MsgType = "match_settled"
	MsgTypeMatchCancelled MsgType = "match_cancelled"
	MsgTypeError          MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// OddsUpdateMessage
// ──────────────────────────────────────────────────────────────────────────────

// OddsUpdateMessage is broadcast after any accepted stake moves a pool: the
// fresh odds line and pool split, so every open client reprices at once.
type OddsUpdateMessage struct {
	Type            MsgType            `json:"type"`
	MatchID         uuid.UUID          `json:"match_id"`
	Odds            domain.OddsLine    `json:"odds"`
	Percentages     domain.PercentLine `json:"percentages"`
	TotalPool       int64              `json:"total_pool"`
	PredictionCount int                `json:"prediction_count"`
	KickoffInSec    int64              `json:"kickoff_in_sec"`
	Timestamp       time.Time          `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// MatchSettledMessage
// ──────────────────────────────────────────────────────────────────────────────

// MatchSettledMessage is broadcast once per match when settlement commits.
type MatchSettledMessage struct {
	Type      MsgType        `json:"type"`
	MatchID   uuid.UUID      `json:"match_id"`
	Result    domain.Outcome `json:"result"`
	TotalPool int64          `json:"total_pool"`
	Timestamp time.Time      `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// MatchCancelledMessage
// ──────────────────────────────────────────────────────────────────────────────

// MatchCancelledMessage is broadcast when a match is voided and refunded.
type MatchCancelledMessage struct {
	Type      MsgType   `json:"type"`
	MatchID   uuid.UUID `json:"match_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
