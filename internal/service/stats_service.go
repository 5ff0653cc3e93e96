package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
	"github.com/tribunapp/prediction/internal/repository"
)

// defaultLeaderboardSize caps leaderboard queries when the caller gives no
// limit or an absurd one.
const defaultLeaderboardSize = 50

// StatsService serves per-user prediction stats and the leaderboard. All
// figures come straight from the prediction_stats rows maintained by
// settlement; nothing here writes.
type StatsService struct {
	statsRepo *repository.StatsRepository
	userRepo  *repository.UserRepository
}

func NewStatsService(statsRepo *repository.StatsRepository, userRepo *repository.UserRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo, userRepo: userRepo}
}

// GetUserStats returns the user's lifetime record with the win rate computed.
// A user with no settled predictions gets the zero record, not an error.
func (s *StatsService) GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.StatsView, error) {
	stats, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats_service.GetUserStats: %w", err)
	}
	return &domain.StatsView{
		PredictionStats: *stats,
		WinRate:         stats.WinRate(),
	}, nil
}

// GetBalance returns the user's current coin balance.
func (s *StatsService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	coins, err := s.userRepo.GetCoins(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("stats_service.GetBalance: %w", err)
	}
	return coins, nil
}

// GetLeaderboard returns the top users ordered by the given sort key.
// The win_rate board only admits users with at least 10 settled predictions
// so a 1-for-1 novice cannot top it.
func (s *StatsService) GetLeaderboard(ctx context.Context, sortKey domain.LeaderboardSortKey, limit int) ([]*domain.LeaderboardEntry, error) {
	if sortKey == "" {
		sortKey = domain.SortByProfit
	}
	if !sortKey.IsValid() {
		return nil, domain.ErrInvalidSortKey
	}
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardSize
	}

	entries, err := s.statsRepo.Leaderboard(ctx, sortKey, limit)
	if err != nil {
		return nil, fmt.Errorf("stats_service.GetLeaderboard: %w", err)
	}
	return entries, nil
}
