// Package repository contains all database access for the prediction engine.
// Every money-moving method takes an explicit *sqlx.Tx so services control
// transaction boundaries; plain reads go through the pool connection.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tribunapp/prediction/internal/domain"
)

// MatchRepository handles all database operations for matches.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create inserts a new match row.
func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) error {
	query := `
		INSERT INTO matches
			(id, home_team, away_team, external_ref, status, match_date,
			 is_settled, total_pool, home_pool, draw_pool, away_pool,
			 prediction_count, created_at, updated_at)
		VALUES
			(:id, :home_team, :away_team, :external_ref, :status, :match_date,
			 :is_settled, :total_pool, :home_pool, :draw_pool, :away_pool,
			 :prediction_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("match_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a match by its primary key.
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var m domain.Match
	err := r.db.GetContext(ctx, &m, `SELECT * FROM matches WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match_repo.GetByID: %w", err)
	}
	return &m, nil
}

// GetByExternalRef fetches a match by the fixture provider's reference.
func (r *MatchRepository) GetByExternalRef(ctx context.Context, ref string) (*domain.Match, error) {
	var m domain.Match
	err := r.db.GetContext(ctx, &m, `SELECT * FROM matches WHERE external_ref = $1`, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match_repo.GetByExternalRef: %w", err)
	}
	return &m, nil
}

// List returns matches filtered by status (""=all), newest kickoff first.
func (r *MatchRepository) List(ctx context.Context, status domain.MatchStatus, limit, offset int) ([]*domain.Match, error) {
	var matches []*domain.Match
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &matches, `
			SELECT * FROM matches
			WHERE status = $1
			ORDER BY match_date DESC
			LIMIT $2 OFFSET $3`,
			status, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &matches, `
			SELECT * FROM matches
			ORDER BY match_date DESC
			LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("match_repo.List: %w", err)
	}
	return matches, nil
}

// ListUpcoming returns scheduled matches with a future kickoff, soonest first.
func (r *MatchRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*domain.Match, error) {
	var matches []*domain.Match
	err := r.db.SelectContext(ctx, &matches, `
		SELECT * FROM matches
		WHERE status = 'scheduled' AND match_date > $1
		ORDER BY match_date ASC
		LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("match_repo.ListUpcoming: %w", err)
	}
	return matches, nil
}

// ListUnsettledStarted returns matches whose kickoff has passed but which are
// not settled yet, the set the settlement poller keeps asking the fixture
// feed about.
func (r *MatchRepository) ListUnsettledStarted(ctx context.Context, now time.Time) ([]*domain.Match, error) {
	var matches []*domain.Match
	err := r.db.SelectContext(ctx, &matches, `
		SELECT * FROM matches
		WHERE is_settled = false
		  AND status IN ('scheduled', 'live')
		  AND match_date <= $1
		ORDER BY match_date ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("match_repo.ListUnsettledStarted: %w", err)
	}
	return matches, nil
}

// GetForUpdate loads the full match row FOR UPDATE inside a transaction.
// Placement uses it so concurrent stakes on the same match serialise and each
// stake prices the pool it actually joins; settlement uses it so its final
// commit cannot interleave with a stake still in flight.
func (r *MatchRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Match, error) {
	var m domain.Match
	err := tx.GetContext(ctx, &m, `SELECT * FROM matches WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("match_repo.GetForUpdate: %w", err)
	}
	return &m, nil
}

// ApplyStake adds a stake to the outcome pool, the total pool and the
// prediction count. Must run inside the tx holding the row lock, and only on
// an unsettled match. Pools are frozen after settlement.
func (r *MatchRepository) ApplyStake(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, outcome domain.Outcome, stake int64) error {
	var poolColumn string
	switch outcome {
	case domain.OutcomeHome:
		poolColumn = "home_pool"
	case domain.OutcomeDraw:
		poolColumn = "draw_pool"
	case domain.OutcomeAway:
		poolColumn = "away_pool"
	default:
		return domain.ErrInvalidOutcome
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE matches
		SET %s               = %s + $1,
		    total_pool       = total_pool + $1,
		    prediction_count = prediction_count + 1,
		    updated_at       = now()
		WHERE id = $2 AND is_settled = false`, poolColumn, poolColumn),
		stake, id)
	if err != nil {
		return fmt.Errorf("match_repo.ApplyStake: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMatchNotOpen
	}
	return nil
}

// MarkLive transitions every scheduled match whose kickoff has passed to
// live, returning how many rows changed.
func (r *MatchRepository) MarkLive(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches
		SET status = 'live', updated_at = now()
		WHERE status = 'scheduled' AND match_date <= $1`,
		now)
	if err != nil {
		return 0, fmt.Errorf("match_repo.MarkLive: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SettleFinal writes the final score, result and is_settled flag. The
// WHERE is_settled = false guard is the settlement commit point: a second
// settlement attempt affects zero rows and surfaces ErrAlreadySettled.
func (r *MatchRepository) SettleFinal(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, homeScore, awayScore int, result domain.Outcome) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE matches
		SET status     = 'finished',
		    home_score = $1,
		    away_score = $2,
		    result     = $3,
		    is_settled = true,
		    updated_at = now()
		WHERE id = $4 AND is_settled = false`,
		homeScore, awayScore, result, id)
	if err != nil {
		return fmt.Errorf("match_repo.SettleFinal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// CancelFinal marks the match cancelled and settled, with the same
// idempotency guard as SettleFinal.
func (r *MatchRepository) CancelFinal(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE matches
		SET status     = 'cancelled',
		    is_settled = true,
		    updated_at = now()
		WHERE id = $1 AND is_settled = false`,
		id)
	if err != nil {
		return fmt.Errorf("match_repo.CancelFinal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

// RecordHouseLedger writes the fee/unclaimed-pool audit row for a settled
// match. ON CONFLICT keeps a retried settlement from double-counting fees.
func (r *MatchRepository) RecordHouseLedger(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID, fees, unclaimed int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO house_ledger (match_id, fees_collected, unclaimed_pool, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (match_id) DO NOTHING`,
		matchID, fees, unclaimed)
	if err != nil {
		return fmt.Errorf("match_repo.RecordHouseLedger: %w", err)
	}
	return nil
}

// HouseLedgerTotals sums fees and unclaimed pools across all settled matches.
func (r *MatchRepository) HouseLedgerTotals(ctx context.Context) (fees int64, unclaimed int64, err error) {
	row := struct {
		Fees      int64 `db:"fees"`
		Unclaimed int64 `db:"unclaimed"`
	}{}
	err = r.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(fees_collected), 0) AS fees,
		       COALESCE(SUM(unclaimed_pool), 0) AS unclaimed
		FROM house_ledger`)
	if err != nil {
		return 0, 0, fmt.Errorf("match_repo.HouseLedgerTotals: %w", err)
	}
	return row.Fees, row.Unclaimed, nil
}

// HouseLedgerEntry is one per-match row of the house ledger report.
type HouseLedgerEntry struct {
	MatchID       uuid.UUID `json:"match_id"       db:"match_id"`
	HomeTeam      string    `json:"home_team"      db:"home_team"`
	AwayTeam      string    `json:"away_team"      db:"away_team"`
	FeesCollected int64     `json:"fees_collected" db:"fees_collected"`
	UnclaimedPool int64     `json:"unclaimed_pool" db:"unclaimed_pool"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
}

// ListHouseLedger returns the most recent ledger rows joined with team names.
func (r *MatchRepository) ListHouseLedger(ctx context.Context, limit int) ([]HouseLedgerEntry, error) {
	entries := []HouseLedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT l.match_id, m.home_team, m.away_team,
		       l.fees_collected, l.unclaimed_pool, l.created_at
		FROM house_ledger l
		JOIN matches m ON m.id = l.match_id
		ORDER BY l.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("match_repo.ListHouseLedger: %w", err)
	}
	return entries, nil
}

// OpenPoolTotals sums the pools still at play across unsettled matches.
func (r *MatchRepository) OpenPoolTotals(ctx context.Context) (pool int64, matches int, err error) {
	row := struct {
		Pool    int64 `db:"pool"`
		Matches int   `db:"matches"`
	}{}
	err = r.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(total_pool), 0) AS pool, COUNT(*) AS matches
		FROM matches
		WHERE is_settled = false`)
	if err != nil {
		return 0, 0, fmt.Errorf("match_repo.OpenPoolTotals: %w", err)
	}
	return row.Pool, row.Matches, nil
}
