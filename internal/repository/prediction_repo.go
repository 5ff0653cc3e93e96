package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tribunapp/prediction/internal/domain"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

// PredictionRepository handles all database operations for predictions.
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository creates a new PredictionRepository.
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create inserts a new prediction inside an existing transaction. A hit on
// the (user_id, match_id) unique constraint maps to ErrAlreadyPredicted,
// the constraint is the backstop behind the service's friendly pre-check.
func (r *PredictionRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.Prediction) error {
	query := `
		INSERT INTO predictions
			(id, user_id, match_id, prediction, stake, odds_at_prediction,
			 potential_payout, status, created_at)
		VALUES
			(:id, :user_id, :match_id, :prediction, :stake, :odds_at_prediction,
			 :potential_payout, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return domain.ErrAlreadyPredicted
		}
		return fmt.Errorf("prediction_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a prediction by its primary key.
func (r *PredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	var p domain.Prediction
	err := r.db.GetContext(ctx, &p, `SELECT * FROM predictions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPredictionNotFound
		}
		return nil, fmt.Errorf("prediction_repo.GetByID: %w", err)
	}
	return &p, nil
}

// ExistsForUserMatch reports whether the user already holds a prediction on
// the match. Runs inside the placement transaction so the answer is
// consistent with the row lock held on the match.
func (r *PredictionRepository) ExistsForUserMatch(ctx context.Context, tx *sqlx.Tx, userID, matchID uuid.UUID) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM predictions WHERE user_id = $1 AND match_id = $2
		)`,
		userID, matchID)
	if err != nil {
		return false, fmt.Errorf("prediction_repo.ExistsForUserMatch: %w", err)
	}
	return exists, nil
}

// GetByUserID returns paginated predictions for a user, newest first.
func (r *PredictionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Prediction, error) {
	var predictions []*domain.Prediction
	err := r.db.SelectContext(ctx, &predictions, `
		SELECT * FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("prediction_repo.GetByUserID: %w", err)
	}
	return predictions, nil
}

// GetPendingByMatch returns every still-pending prediction on a match in
// creation order. Settlement and refund both iterate this set.
func (r *PredictionRepository) GetPendingByMatch(ctx context.Context, matchID uuid.UUID) ([]*domain.Prediction, error) {
	var predictions []*domain.Prediction
	err := r.db.SelectContext(ctx, &predictions, `
		SELECT * FROM predictions
		WHERE match_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("prediction_repo.GetPendingByMatch: %w", err)
	}
	return predictions, nil
}

// CountPendingByMatch counts still-pending predictions on a match inside a
// transaction that already holds the match row lock. Settlement's final
// commit re-checks this under the lock so a stake that slipped in after the
// pending set was loaded aborts the commit instead of being stranded.
func (r *PredictionRepository) CountPendingByMatch(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM predictions
		WHERE match_id = $1 AND status = 'pending'`,
		matchID)
	if err != nil {
		return 0, fmt.Errorf("prediction_repo.CountPendingByMatch: %w", err)
	}
	return count, nil
}

// WinnerRow is the slice of a won prediction the settlement commit needs to
// rebuild whole-match fee and payout totals, including rows finalized by an
// earlier interrupted run.
type WinnerRow struct {
	Stake        int64 `db:"stake"`
	ActualPayout int64 `db:"actual_payout"`
}

// WinnersByMatch returns stake and payout for every won prediction on a
// match, read inside the settlement transaction.
func (r *PredictionRepository) WinnersByMatch(ctx context.Context, tx *sqlx.Tx, matchID uuid.UUID) ([]WinnerRow, error) {
	var rows []WinnerRow
	err := tx.SelectContext(ctx, &rows, `
		SELECT stake, COALESCE(actual_payout, 0) AS actual_payout
		FROM predictions
		WHERE match_id = $1 AND status = 'won'`,
		matchID)
	if err != nil {
		return nil, fmt.Errorf("prediction_repo.WinnersByMatch: %w", err)
	}
	return rows, nil
}

// MarkSettled moves a prediction to a terminal status inside a transaction.
// The WHERE status = 'pending' guard makes settlement idempotent per
// prediction: a row already finalized by an earlier (possibly crashed) run
// affects zero rows, and the caller must then skip the payout.
// Returns true when this call performed the transition.
func (r *PredictionRepository) MarkSettled(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status domain.PredictionStatus, actualPayout int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE predictions
		SET status        = $1,
		    actual_payout = $2,
		    settled_at    = now()
		WHERE id = $3 AND status = 'pending'`,
		status, actualPayout, id)
	if err != nil {
		return false, fmt.Errorf("prediction_repo.MarkSettled: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// CountByMatchAndStatus returns how many predictions on a match hold the
// given status. Used by the backoffice dashboard.
func (r *PredictionRepository) CountByMatchAndStatus(ctx context.Context, matchID uuid.UUID, status domain.PredictionStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM predictions WHERE match_id = $1 AND status = $2`,
		matchID, status)
	if err != nil {
		return 0, fmt.Errorf("prediction_repo.CountByMatchAndStatus: %w", err)
	}
	return count, nil
}

// CountByStatus returns the platform-wide prediction count per status.
func (r *PredictionRepository) CountByStatus(ctx context.Context, status domain.PredictionStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM predictions WHERE status = $1`, status)
	if err != nil {
		return 0, fmt.Errorf("prediction_repo.CountByStatus: %w", err)
	}
	return count, nil
}
