package domain_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tribunapp/prediction/internal/domain"
)

func TestEvaluateRankTiers(t *testing.T) {
	cases := []struct {
		name  string
		preds int
		wins  int
		net   int64
		want  domain.RankTier
	}{
		{"fresh account", 0, 0, 0, domain.RankNovice},
		{"volume but cold", 100, 40, -500, domain.RankNovice}, // 40% win rate
		{"amateur floor", 20, 9, 100, domain.RankAmateur},     // 45%
		{"semi pro floor", 50, 25, 100, domain.RankSemiPro},   // 50%
		{"pro floor", 100, 52, 100, domain.RankPro},           // 52%
		{"expert floor", 200, 110, 100, domain.RankExpert},    // 55%
		{"oracle needs all three", 500, 290, 49999, domain.RankExpert},
		{"oracle", 500, 290, 50000, domain.RankOracle}, // 58%
		{"oracle volume, losing money", 500, 290, -1, domain.RankNovice},
	}
	for _, tc := range cases {
		s := &domain.PredictionStats{
			TotalPredictions: tc.preds,
			Wins:             tc.wins,
			Losses:           tc.preds - tc.wins,
			NetProfit:        tc.net,
		}
		if got := domain.EvaluateRank(s); got != tc.want {
			t.Errorf("%s: rank = %s, want %s", tc.name, got, tc.want)
		}
	}
}

// Ranks are recomputed from scratch, so a losing run demotes.
func TestRankDemotionOnLoss(t *testing.T) {
	s := domain.NewPredictionStats(uuid.New())
	// 25 wins at even money builds an amateur.
	for i := 0; i < 25; i++ {
		s.ApplyWin(100, 200)
	}
	if s.RankTier != domain.RankAmateur {
		t.Fatalf("after 25 wins rank = %s, want amateur", s.RankTier)
	}
	// 40 straight losses drags win rate to ~38% and profit negative.
	for i := 0; i < 40; i++ {
		s.ApplyLoss(100)
	}
	if s.RankTier != domain.RankNovice {
		t.Errorf("after losing run rank = %s, want novice", s.RankTier)
	}
}

func TestStreakTracking(t *testing.T) {
	s := domain.NewPredictionStats(uuid.New())

	s.ApplyWin(100, 250)
	s.ApplyWin(100, 250)
	s.ApplyWin(100, 250)
	if s.CurrentStreak != 3 || s.BestStreak != 3 {
		t.Fatalf("streaks = %d/%d, want 3/3", s.CurrentStreak, s.BestStreak)
	}

	s.ApplyLoss(100)
	if s.CurrentStreak != 0 {
		t.Errorf("loss should reset current streak, got %d", s.CurrentStreak)
	}
	if s.BestStreak != 3 {
		t.Errorf("loss must not touch best streak, got %d", s.BestStreak)
	}

	s.ApplyWin(100, 250)
	if s.CurrentStreak != 1 || s.BestStreak != 3 {
		t.Errorf("streaks = %d/%d, want 1/3", s.CurrentStreak, s.BestStreak)
	}
}

func TestStatsInvariants(t *testing.T) {
	s := domain.NewPredictionStats(uuid.New())
	s.ApplyWin(100, 385)
	s.ApplyLoss(50)
	s.ApplyWin(200, 410)
	s.ApplyLoss(75)

	if s.Wins+s.Losses != s.TotalPredictions {
		t.Errorf("wins %d + losses %d != total %d", s.Wins, s.Losses, s.TotalPredictions)
	}
	if s.NetProfit != s.TotalWon-s.TotalLost-(100+200) {
		// Won predictions contribute payout - stake.
		t.Errorf("net profit %d inconsistent with won %d / lost %d", s.NetProfit, s.TotalWon, s.TotalLost)
	}
	if s.TotalStaked != 425 {
		t.Errorf("total staked = %d, want 425", s.TotalStaked)
	}
}

func TestWinRate(t *testing.T) {
	s := &domain.PredictionStats{}
	if s.WinRate() != 0 {
		t.Errorf("empty win rate = %f, want 0", s.WinRate())
	}
	s = &domain.PredictionStats{TotalPredictions: 4, Wins: 3}
	if s.WinRate() != 0.75 {
		t.Errorf("win rate = %f, want 0.75", s.WinRate())
	}
}
