package domain

import "github.com/shopspring/decimal"

// ──────────────────────────────────────────────────────────────────────────────
// Settlement constants
// ──────────────────────────────────────────────────────────────────────────────

// HouseFeeRate is the fee levied on a winner's profit only, never on the
// returned principal. A break-even winner pays nothing.
var HouseFeeRate = decimal.NewFromFloat(0.05)

// streakThreshold maps a consecutive-win count to a payout multiplier.
type streakThreshold struct {
	streak     int
	multiplier decimal.Decimal
}

// streakTable is ordered highest threshold first; thresholds are inclusive
// and non-stacking: only the single highest threshold met applies.
var streakTable = []streakThreshold{
	{10, decimal.NewFromFloat(1.50)},
	{5, decimal.NewFromFloat(1.25)},
	{3, decimal.NewFromFloat(1.10)},
}

// ──────────────────────────────────────────────────────────────────────────────
// Pure settlement arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// ResultFromScore derives the match outcome from the final score.
func ResultFromScore(homeScore, awayScore int) Outcome {
	switch {
	case homeScore > awayScore:
		return OutcomeHome
	case homeScore < awayScore:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// FinalOdds computes the settlement odds: total_pool / winning_pool.
// When the winning pool is zero nobody predicted the actual outcome: the
// degenerate odds are 1 and the house retains the entire pool, since the
// winner set is empty and no payouts happen.
func FinalOdds(totalPool, winnerPool int64) decimal.Decimal {
	if winnerPool <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(totalPool).Div(decimal.NewFromInt(winnerPool))
}

// StreakMultiplier returns the payout bonus for the given consecutive-win
// count. Only the highest threshold met applies; below the lowest threshold
// the multiplier is 1.
func StreakMultiplier(streak int) decimal.Decimal {
	for _, row := range streakTable {
		if streak >= row.streak {
			return row.multiplier
		}
	}
	return decimal.NewFromInt(1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Winner payout breakdown
// ──────────────────────────────────────────────────────────────────────────────

// PayoutBreakdown records every intermediate figure of a winning settlement
// so the ledger and tests can account for each coin.
type PayoutBreakdown struct {
	Gross      int64           // floor(stake × finalOdds)
	Profit     int64           // gross − stake
	HouseFee   int64           // floor(profit × HouseFeeRate)
	Net        int64           // gross − houseFee
	Multiplier decimal.Decimal // streak multiplier applied to net
	Final      int64           // floor(net × multiplier), the credited amount
}

// WinnerPayout computes the full payout breakdown for one winning stake.
//
//	gross  = floor(stake × finalOdds)
//	fee    = floor((gross − stake) × 5%)     fee on profit only
//	net    = gross − fee
//	final  = floor(net × streakMultiplier)   newStreak = pre-update streak + 1
func WinnerPayout(stake int64, finalOdds decimal.Decimal, newStreak int) PayoutBreakdown {
	gross := decimal.NewFromInt(stake).Mul(finalOdds).Floor().IntPart()
	profit := gross - stake
	if profit < 0 {
		profit = 0
	}
	fee := decimal.NewFromInt(profit).Mul(HouseFeeRate).Floor().IntPart()
	net := gross - fee
	mult := StreakMultiplier(newStreak)
	final := decimal.NewFromInt(net).Mul(mult).Floor().IntPart()

	return PayoutBreakdown{
		Gross:      gross,
		Profit:     profit,
		HouseFee:   fee,
		Net:        net,
		Multiplier: mult,
		Final:      final,
	}
}
