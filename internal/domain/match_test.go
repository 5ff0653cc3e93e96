package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tribunapp/prediction/internal/domain"
)

func TestOddsEmptyPoolDefaults(t *testing.T) {
	m := &domain.Match{}
	odds := m.Odds()

	if !odds.Home.Equal(decimal.NewFromFloat(2.00)) {
		t.Errorf("empty home odds = %s, want 2", odds.Home)
	}
	if !odds.Draw.Equal(decimal.NewFromFloat(3.50)) {
		t.Errorf("empty draw odds = %s, want 3.5", odds.Draw)
	}
	if !odds.Away.Equal(decimal.NewFromFloat(2.00)) {
		t.Errorf("empty away odds = %s, want 2", odds.Away)
	}
}

// A side holding nearly the whole pool would price below 1; the 1.01 floor
// keeps a winner from losing coins on a win.
func TestOddsFloor(t *testing.T) {
	m := &domain.Match{
		HomePool:  999,
		DrawPool:  1,
		AwayPool:  0,
		TotalPool: 1000,
	}
	odds := m.OddsFor(domain.OutcomeHome)
	if !odds.Equal(decimal.NewFromFloat(1.01)) {
		t.Errorf("dominant side odds = %s, want floor 1.01", odds)
	}
}

// Odds are truncated to 2 decimals, never rounded up.
func TestOddsTruncation(t *testing.T) {
	m := &domain.Match{
		HomePool:  300,
		DrawPool:  400,
		AwayPool:  300,
		TotalPool: 1000,
	}
	// 1000/300 = 3.333... → 3.33
	odds := m.OddsFor(domain.OutcomeHome)
	if !odds.Equal(decimal.NewFromFloat(3.33)) {
		t.Errorf("odds = %s, want truncated 3.33", odds)
	}
}

func TestPercentagesDefaultAndSplit(t *testing.T) {
	empty := &domain.Match{}
	p := empty.Percentages()
	if p.Home != 33 || p.Draw != 34 || p.Away != 33 {
		t.Errorf("empty split = %d/%d/%d, want 33/34/33", p.Home, p.Draw, p.Away)
	}

	m := &domain.Match{HomePool: 600, DrawPool: 300, AwayPool: 100, TotalPool: 1000}
	p = m.Percentages()
	if p.Home != 60 || p.Draw != 30 || p.Away != 10 {
		t.Errorf("split = %d/%d/%d, want 60/30/10", p.Home, p.Draw, p.Away)
	}
}

// Odds monotonicity: staking on a side shortens that side and lengthens the
// others.
func TestOddsMoveWithStakes(t *testing.T) {
	m := &domain.Match{HomePool: 500, DrawPool: 250, AwayPool: 250, TotalPool: 1000}

	homeBefore := m.OddsFor(domain.OutcomeHome)
	awayBefore := m.OddsFor(domain.OutcomeAway)

	m.AddStake(domain.OutcomeHome, 500)

	if got := m.OddsFor(domain.OutcomeHome); !got.LessThan(homeBefore) {
		t.Errorf("home odds should shorten: %s -> %s", homeBefore, got)
	}
	if got := m.OddsFor(domain.OutcomeAway); !got.GreaterThan(awayBefore) {
		t.Errorf("away odds should lengthen: %s -> %s", awayBefore, got)
	}
	if m.TotalPool != m.HomePool+m.DrawPool+m.AwayPool {
		t.Errorf("pool conservation broken: total %d, parts %d", m.TotalPool, m.HomePool+m.DrawPool+m.AwayPool)
	}
}

func TestIsOpenForPredictions(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		status domain.MatchStatus
		date   time.Time
		want   bool
	}{
		{"scheduled future", domain.MatchScheduled, now.Add(time.Hour), true},
		{"scheduled past kickoff", domain.MatchScheduled, now.Add(-time.Minute), false},
		{"scheduled exactly now", domain.MatchScheduled, now, false},
		{"live", domain.MatchLive, now.Add(time.Hour), false},
		{"finished", domain.MatchFinished, now.Add(time.Hour), false},
		{"cancelled", domain.MatchCancelled, now.Add(time.Hour), false},
	}
	for _, tc := range cases {
		m := &domain.Match{Status: tc.status, MatchDate: tc.date}
		if got := m.IsOpenForPredictions(now); got != tc.want {
			t.Errorf("%s: open = %v, want %v", tc.name, got, tc.want)
		}
	}
}
