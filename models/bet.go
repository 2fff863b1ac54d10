package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BetType is the kind of prediction a bet makes
type BetType string

const (
	BetTypeColor    BetType = "color"
	BetTypeNumber   BetType = "number"
	BetTypeBigSmall BetType = "bigsmall"
	BetTypeRandom   BetType = "random"
)

// BetStatus represents whether a bet has been settled
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusSettled BetStatus = "settled"
)

// Bet values for color and bigsmall bets
const (
	ColorGreen  = "green"
	ColorRed    = "red"
	ColorViolet = "violet"
	SizeBig     = "big"
	SizeSmall   = "small"
)

// CurrencyScale is the number of decimal places money is stored with
const CurrencyScale = 2

// Digits is the full outcome space of a round
var Digits = [10]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

var (
	colorDigits = map[string][]int{
		ColorGreen:  {1, 3, 7, 9},
		ColorRed:    {2, 4, 6, 8, 9},
		ColorViolet: {0, 5},
	}
	sizeDigits = map[string][]int{
		SizeBig:   {5, 6, 7, 8, 9},
		SizeSmall: {0, 1, 2, 3, 4},
	}

	multiplierTwo    = decimal.NewFromInt(2)
	multiplierViolet = decimal.NewFromFloat(4.5)
	multiplierNumber = decimal.NewFromInt(9)
)

// RandomSource draws uniformly distributed integers in [0, n)
type RandomSource interface {
	Intn(n int) int
}

// Bet is a wager on the outcome digit of one round
type Bet struct {
	ID        int64           `db:"id"`
	RoundID   int64           `db:"round_id"`
	UserID    int64           `db:"user_id"`
	Type      BetType         `db:"type"`
	Value     string          `db:"value"`
	Amount    decimal.Decimal `db:"amount"`
	Status    BetStatus       `db:"status"`
	Win       *bool           `db:"win"`
	Payout    decimal.Decimal `db:"payout"`
	CreatedAt time.Time       `db:"created_at"`
	SettledAt *time.Time      `db:"settled_at"`
}

func (b *Bet) normalizedValue() string {
	return strings.ToLower(strings.TrimSpace(b.Value))
}

// Multiplier returns the payout multiplier of the bet, or zero for an unknown type or value
func (b *Bet) Multiplier() decimal.Decimal {
	value := b.normalizedValue()
	switch b.Type {
	case BetTypeColor:
		switch value {
		case ColorGreen, ColorRed:
			return multiplierTwo
		case ColorViolet:
			return multiplierViolet
		}
	case BetTypeBigSmall:
		if _, ok := sizeDigits[value]; ok {
			return multiplierTwo
		}
	case BetTypeNumber:
		if _, ok := b.number(); ok {
			return multiplierNumber
		}
	case BetTypeRandom:
		return multiplierNumber
	}
	return decimal.Zero
}

// WinningDigits returns the digits for which a fixed-choice bet wins.
// Random bets have no fixed winning set and return nil.
func (b *Bet) WinningDigits() []int {
	value := b.normalizedValue()
	switch b.Type {
	case BetTypeColor:
		return colorDigits[value]
	case BetTypeBigSmall:
		return sizeDigits[value]
	case BetTypeNumber:
		if n, ok := b.number(); ok {
			return []int{n}
		}
	}
	return nil
}

// WinsWith reports whether a fixed-choice bet wins for result.
// Random bets always return false here; use Wins.
func (b *Bet) WinsWith(result int) bool {
	return digitIn(result, b.WinningDigits())
}

// Wins reports whether the bet wins for result. A random bet draws its own
// private digit from rng on every call, so repeated calls may disagree.
func (b *Bet) Wins(result int, rng RandomSource) bool {
	if b.Type == BetTypeRandom {
		return rng.Intn(len(Digits)) == result
	}
	return b.WinsWith(result)
}

// PayoutFor returns amount × multiplier rounded to CurrencyScale if won, otherwise zero.
// Halves round away from zero, matching Postgres NUMERIC.
func (b *Bet) PayoutFor(won bool) decimal.Decimal {
	if !won {
		return decimal.Zero
	}
	return b.Amount.Mul(b.Multiplier()).Round(CurrencyScale)
}

func (b *Bet) number() (int, bool) {
	n, err := strconv.Atoi(b.normalizedValue())
	if err != nil || n < 0 || n > 9 {
		return 0, false
	}
	return n, true
}

func digitIn(digit int, digits []int) bool {
	for _, d := range digits {
		if d == digit {
			return true
		}
	}
	return false
}
