package service

import (
	"github.com/shopspring/decimal"

	"wingo/models"
)

// SelectOutcome picks the result digit of a round from its pending bets.
//
// With no bets the digit is uniform. A lone bet below threshold is steered to
// one of its winning digits, a lone bet at or above threshold to one of its
// losing digits. With two or more bets the digit minimising the total payout
// is chosen, ties broken uniformly. Random-type bets draw a private digit from
// rng wherever they need one.
func SelectOutcome(bets []*models.Bet, threshold decimal.Decimal, rng models.RandomSource) int {
	switch len(bets) {
	case 0:
		return rng.Intn(len(models.Digits))
	case 1:
		return selectSingleBetOutcome(bets[0], threshold, rng)
	default:
		return selectMinimumPayoutOutcome(bets, rng)
	}
}

func selectSingleBetOutcome(bet *models.Bet, threshold decimal.Decimal, rng models.RandomSource) int {
	winning := bet.WinningDigits()
	if bet.Type == models.BetTypeRandom {
		winning = []int{rng.Intn(len(models.Digits))}
	}

	candidates := winning
	if !bet.Amount.LessThan(threshold) {
		candidates = complementDigits(winning)
	}
	if len(candidates) == 0 {
		return rng.Intn(len(models.Digits))
	}
	return candidates[rng.Intn(len(candidates))]
}

func selectMinimumPayoutOutcome(bets []*models.Bet, rng models.RandomSource) int {
	totals := PayoutByDigit(bets, rng)

	best := []int{0}
	for digit := 1; digit < len(totals); digit++ {
		switch totals[digit].Cmp(totals[best[0]]) {
		case -1:
			best = []int{digit}
		case 0:
			best = append(best, digit)
		}
	}

	if len(best) == 1 {
		return best[0]
	}
	return best[rng.Intn(len(best))]
}

// PayoutByDigit returns the total the house would pay for each candidate digit.
// Random-type bets draw a fresh private digit for every candidate.
func PayoutByDigit(bets []*models.Bet, rng models.RandomSource) [10]decimal.Decimal {
	var totals [10]decimal.Decimal
	for _, digit := range models.Digits {
		total := decimal.Zero
		for _, bet := range bets {
			total = total.Add(bet.PayoutFor(bet.Wins(digit, rng)))
		}
		totals[digit] = total
	}
	return totals
}

func complementDigits(digits []int) []int {
	excluded := make(map[int]bool, len(digits))
	for _, d := range digits {
		excluded[d] = true
	}

	var rest []int
	for _, d := range models.Digits {
		if !excluded[d] {
			rest = append(rest, d)
		}
	}
	return rest
}
