package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tribunapp/prediction/internal/domain"
)

// TestLockedOddsAndPotentialPayout walks a stake through placement pricing.
// No I/O, pure arithmetic.
//
//	Pools before: home 600, draw 300, away 100 (total 1000)
//	User stakes 100 on away.
//	Pools after:  away 200, total 1100
//	Locked odds  = 1100 / 200 = 5.50   (post-stake pricing)
//	Potential    = floor(100 × 5.50) = 550
func TestLockedOddsAndPotentialPayout(t *testing.T) {
	m := &domain.Match{
		HomePool:  600,
		DrawPool:  300,
		AwayPool:  100,
		TotalPool: 1000,
	}

	m.AddStake(domain.OutcomeAway, 100)

	if m.TotalPool != 1100 || m.AwayPool != 200 {
		t.Fatalf("pools after stake = total %d away %d, want 1100/200", m.TotalPool, m.AwayPool)
	}

	odds := m.OddsFor(domain.OutcomeAway)
	want := decimal.NewFromFloat(5.50)
	if !odds.Equal(want) {
		t.Errorf("locked odds = %s, want %s", odds, want)
	}

	payout := domain.PotentialPayoutFor(100, odds)
	if payout != 550 {
		t.Errorf("potential payout = %d, want 550", payout)
	}
}

// TestWinnerPayoutBreakdown verifies the full fee + streak pipeline.
//
//	stake 100, final odds 4.0, streak after win = 5
//	gross = 400, profit = 300, fee = floor(300 × 0.05) = 15
//	net   = 385, multiplier 1.25, final = floor(385 × 1.25) = 481
func TestWinnerPayoutBreakdown(t *testing.T) {
	b := domain.WinnerPayout(100, decimal.NewFromInt(4), 5)

	if b.Gross != 400 {
		t.Errorf("gross = %d, want 400", b.Gross)
	}
	if b.Profit != 300 {
		t.Errorf("profit = %d, want 300", b.Profit)
	}
	if b.HouseFee != 15 {
		t.Errorf("fee = %d, want 15", b.HouseFee)
	}
	if b.Net != 385 {
		t.Errorf("net = %d, want 385", b.Net)
	}
	if b.Final != 481 {
		t.Errorf("final = %d, want 481", b.Final)
	}
}

// TestFeeOnProfitOnly: a break-even winner (odds exactly 1) pays no fee and
// gets the stake back untouched.
func TestFeeOnProfitOnly(t *testing.T) {
	b := domain.WinnerPayout(250, decimal.NewFromInt(1), 1)

	if b.Gross != 250 || b.Profit != 0 || b.HouseFee != 0 || b.Final != 250 {
		t.Errorf("break-even breakdown = %+v, want gross=net=final=250, fee=0", b)
	}
}

// The house fee is charged before the streak multiplier, so it depends only
// on stake and final odds. The ledger relies on that: fees for a match are
// rebuilt at commit time from stake and odds alone, without knowing what
// streak each winner was on when their prediction settled.
func TestHouseFeeIndependentOfStreak(t *testing.T) {
	odds := decimal.RequireFromString("4.00")
	base := domain.WinnerPayout(100, odds, 0)

	for _, streak := range []int{1, 3, 5, 10, 37} {
		b := domain.WinnerPayout(100, odds, streak)
		if b.HouseFee != base.HouseFee {
			t.Errorf("streak %d: fee %d, want %d regardless of streak",
				streak, b.HouseFee, base.HouseFee)
		}
	}
	if base.HouseFee != 15 {
		t.Errorf("fee on 300 profit = %d, want 15", base.HouseFee)
	}
}

func TestStreakMultiplier(t *testing.T) {
	cases := []struct {
		streak int
		want   string
	}{
		{0, "1"},
		{1, "1"},
		{2, "1"},
		{3, "1.1"},
		{4, "1.1"},
		{5, "1.25"},
		{9, "1.25"},
		{10, "1.5"},
		{37, "1.5"},
	}
	for _, tc := range cases {
		got := domain.StreakMultiplier(tc.streak)
		if got.String() != tc.want {
			t.Errorf("StreakMultiplier(%d) = %s, want %s", tc.streak, got, tc.want)
		}
	}
}

func TestResultFromScore(t *testing.T) {
	if got := domain.ResultFromScore(2, 1); got != domain.OutcomeHome {
		t.Errorf("2-1 = %s, want home", got)
	}
	if got := domain.ResultFromScore(0, 0); got != domain.OutcomeDraw {
		t.Errorf("0-0 = %s, want draw", got)
	}
	if got := domain.ResultFromScore(1, 3); got != domain.OutcomeAway {
		t.Errorf("1-3 = %s, want away", got)
	}
}

// TestFinalOddsDegenerate: nobody backed the winner, odds collapse to 1 and
// no payout exceeds stakes (the house keeps the pool).
func TestFinalOddsDegenerate(t *testing.T) {
	odds := domain.FinalOdds(1000, 0)
	if !odds.Equal(decimal.NewFromInt(1)) {
		t.Errorf("degenerate final odds = %s, want 1", odds)
	}
}

// TestCurrencyConservation settles a three-way pool by hand and checks that
// coins leave the system only through the house fee channel.
//
//	home 600 / draw 300 / away 100, result home.
//	Final odds = 1000/600. Two home winners staked 400 and 200.
func TestCurrencyConservation(t *testing.T) {
	const totalPool = 1000
	finalOdds := domain.FinalOdds(totalPool, 600)

	w1 := domain.WinnerPayout(400, finalOdds, 1)
	w2 := domain.WinnerPayout(200, finalOdds, 1)

	paidOut := w1.Final + w2.Final
	fees := w1.HouseFee + w2.HouseFee
	// Truncation dust also stays with the house.
	if paidOut+fees > totalPool {
		t.Errorf("paid %d + fees %d exceeds pool %d", paidOut, fees, totalPool)
	}
	if w1.Final <= 400 || w2.Final <= 200 {
		t.Errorf("winners should profit: got %d (stake 400), %d (stake 200)", w1.Final, w2.Final)
	}
}
