package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tribunapp/prediction/internal/domain"
)

// StatsRepository handles the per-user prediction_stats rows and the
// leaderboard query.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get returns the user's stats row, or a fresh zero record when none exists
// yet; stats are lazily created on the first settled prediction.
func (r *StatsRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.PredictionStats, error) {
	var s domain.PredictionStats
	err := r.db.GetContext(ctx, &s, `SELECT * FROM prediction_stats WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewPredictionStats(userID), nil
		}
		return nil, fmt.Errorf("stats_repo.Get: %w", err)
	}
	return &s, nil
}

// GetForUpdate loads the user's stats row FOR UPDATE inside a settlement
// transaction, so concurrent settlements of the same user fold their updates
// sequentially instead of overwriting each other. The row is created first
// when missing; FOR UPDATE on a row that does not exist would lock nothing
// and two first-time settlements could still race.
func (r *StatsRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*domain.PredictionStats, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO prediction_stats (user_id, rank_tier)
		VALUES ($1, 'novice')
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("stats_repo.GetForUpdate: %w", err)
	}
	var s domain.PredictionStats
	err = tx.GetContext(ctx, &s, `SELECT * FROM prediction_stats WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewPredictionStats(userID), nil
		}
		return nil, fmt.Errorf("stats_repo.GetForUpdate: %w", err)
	}
	return &s, nil
}

// Upsert writes the full stats record inside a settlement transaction.
// INSERT ... ON CONFLICT keeps the lazy-creation path and the update path in
// one statement.
func (r *StatsRepository) Upsert(ctx context.Context, tx *sqlx.Tx, s *domain.PredictionStats) error {
	query := `
		INSERT INTO prediction_stats
			(user_id, total_predictions, wins, losses, total_staked, total_won,
			 total_lost, net_profit, current_streak, best_streak, rank_tier, updated_at)
		VALUES
			(:user_id, :total_predictions, :wins, :losses, :total_staked, :total_won,
			 :total_lost, :net_profit, :current_streak, :best_streak, :rank_tier, now())
		ON CONFLICT (user_id) DO UPDATE SET
			total_predictions = EXCLUDED.total_predictions,
			wins              = EXCLUDED.wins,
			losses            = EXCLUDED.losses,
			total_staked      = EXCLUDED.total_staked,
			total_won         = EXCLUDED.total_won,
			total_lost        = EXCLUDED.total_lost,
			net_profit        = EXCLUDED.net_profit,
			current_streak    = EXCLUDED.current_streak,
			best_streak       = EXCLUDED.best_streak,
			rank_tier         = EXCLUDED.rank_tier,
			updated_at        = now()`
	if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("stats_repo.Upsert: %w", err)
	}
	return nil
}

// Leaderboard returns the top stats rows joined with the public profile,
// ordered by the requested key. Win-rate ordering only considers users with
// at least 10 settled predictions so a 1/1 record cannot top the board.
func (r *StatsRepository) Leaderboard(ctx context.Context, sortKey domain.LeaderboardSortKey, limit int) ([]*domain.LeaderboardEntry, error) {
	var orderBy, filter string
	switch sortKey {
	case domain.SortByProfit:
		orderBy = "ps.net_profit DESC"
	case domain.SortByWinRate:
		orderBy = "(ps.wins::float / ps.total_predictions) DESC, ps.total_predictions DESC"
		filter = "AND ps.total_predictions >= 10"
	case domain.SortByStreak:
		orderBy = "ps.current_streak DESC, ps.best_streak DESC"
	default:
		return nil, domain.ErrInvalidSortKey
	}

	query := fmt.Sprintf(`
		SELECT ps.*, u.username, u.display_name
		FROM prediction_stats ps
		JOIN users u ON u.id = ps.user_id
		WHERE ps.total_predictions > 0 %s
		ORDER BY %s
		LIMIT $1`, filter, orderBy)

	var entries []*domain.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("stats_repo.Leaderboard: %w", err)
	}
	for i, e := range entries {
		e.Rank = i + 1
		e.WinRate = e.PredictionStats.WinRate()
	}
	return entries, nil
}
