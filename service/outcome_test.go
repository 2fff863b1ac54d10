package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/models"
)

// scriptedRandom returns queued values modulo n, then zeros
type scriptedRandom struct {
	values []int
	calls  int
}

func (r *scriptedRandom) Intn(n int) int {
	defer func() { r.calls++ }()
	if r.calls < len(r.values) {
		return r.values[r.calls] % n
	}
	return 0
}

var threshold = decimal.NewFromInt(500)

func bet(betType models.BetType, value string, amount int64) *models.Bet {
	return &models.Bet{
		UserID: 1,
		Type:   betType,
		Value:  value,
		Amount: decimal.NewFromInt(amount),
		Status: models.BetStatusPending,
	}
}

func TestSelectOutcome_NoBets(t *testing.T) {
	rng := &scriptedRandom{values: []int{6}}
	assert.Equal(t, 6, SelectOutcome(nil, threshold, rng))
	assert.Equal(t, 1, rng.calls)
}

func TestSelectOutcome_SingleSmallNumberBetWins(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeNumber, "5", 100)}
	for seed := 0; seed < 10; seed++ {
		assert.Equal(t, 5, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{seed}}))
	}
}

func TestSelectOutcome_SingleLargeNumberBetLoses(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeNumber, "5", 1000)}
	for seed := 0; seed < 10; seed++ {
		digit := SelectOutcome(bets, threshold, &scriptedRandom{values: []int{seed}})
		assert.NotEqual(t, 5, digit)
		assert.GreaterOrEqual(t, digit, 0)
		assert.LessOrEqual(t, digit, 9)
	}
}

func TestSelectOutcome_ThresholdIsInclusiveForLosing(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeColor, "violet", 500)}
	for seed := 0; seed < 10; seed++ {
		digit := SelectOutcome(bets, threshold, &scriptedRandom{values: []int{seed}})
		assert.NotContains(t, []int{0, 5}, digit)
	}
}

func TestSelectOutcome_SingleColorBetPicksFromWinningSet(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeColor, "RED ", 10)}
	for seed := 0; seed < 5; seed++ {
		digit := SelectOutcome(bets, threshold, &scriptedRandom{values: []int{seed}})
		assert.Contains(t, []int{2, 4, 6, 8, 9}, digit)
	}
}

func TestSelectOutcome_SingleMalformedBetFallsBackToAllDigits(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeNumber, "twelve", 10)}
	assert.Equal(t, 7, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{7}}))

	bets = []*models.Bet{bet(models.BetType("parlay"), "x", 1000)}
	assert.Equal(t, 3, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{3}}))
}

func TestSelectOutcome_SingleRandomBet(t *testing.T) {
	t.Run("small bet steered to its private digit", func(t *testing.T) {
		bets := []*models.Bet{bet(models.BetTypeRandom, "", 100)}
		assert.Equal(t, 4, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{4, 0}}))
	})

	t.Run("large bet steered away from its private digit", func(t *testing.T) {
		bets := []*models.Bet{bet(models.BetTypeRandom, "", 1000)}
		// private digit 0, then index 0 of {1..9}
		assert.Equal(t, 1, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{0, 0}}))
	})
}

func TestSelectOutcome_MinimumPayoutAcrossBets(t *testing.T) {
	bets := []*models.Bet{
		bet(models.BetTypeColor, "green", 100),
		bet(models.BetTypeColor, "red", 300),
		bet(models.BetTypeBigSmall, "big", 150),
	}

	totals := PayoutByDigit(bets, &scriptedRandom{})
	assert.True(t, totals[0].IsZero())
	assert.True(t, decimal.NewFromInt(1100).Equal(totals[9]))
	for digit := 1; digit < 10; digit++ {
		assert.True(t, totals[digit].IsPositive(), "digit %d", digit)
	}

	rng := &scriptedRandom{values: []int{5}}
	assert.Equal(t, 0, SelectOutcome(bets, threshold, rng))
	assert.Equal(t, 0, rng.calls, "a unique minimum needs no tie break")
}

func TestSelectOutcome_TiesBrokenByRandomSource(t *testing.T) {
	bets := []*models.Bet{
		bet(models.BetTypeNumber, "1", 100),
		bet(models.BetTypeNumber, "2", 100),
	}
	// zero payout digits in order: 0,3,4,5,6,7,8,9
	assert.Equal(t, 0, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{0}}))
	assert.Equal(t, 5, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{3}}))
	assert.Equal(t, 9, SelectOutcome(bets, threshold, &scriptedRandom{values: []int{7}}))
}

func TestSelectOutcome_IsHouseEdgeMinimal(t *testing.T) {
	bets := []*models.Bet{
		bet(models.BetTypeNumber, "3", 400),
		bet(models.BetTypeColor, "violet", 250),
		bet(models.BetTypeBigSmall, "small", 900),
		bet(models.BetTypeColor, "green", 50),
	}

	digit := SelectOutcome(bets, threshold, &scriptedRandom{})
	totals := PayoutByDigit(bets, &scriptedRandom{})
	for d := range totals {
		assert.True(t, totals[digit].LessThanOrEqual(totals[d]), "digit %d pays less than chosen %d", d, digit)
	}
}

func TestSelectOutcome_RandomBetsDrawPerCandidate(t *testing.T) {
	bets := []*models.Bet{
		bet(models.BetTypeRandom, "", 100),
		bet(models.BetTypeNumber, "0", 100),
	}
	rng := &scriptedRandom{}
	SelectOutcome(bets, threshold, rng)
	// one private draw per candidate digit, plus the tie break
	assert.GreaterOrEqual(t, rng.calls, 10)
}

func TestResolveBets_RandomBetRedrawsAfterSelection(t *testing.T) {
	bets := []*models.Bet{bet(models.BetTypeRandom, "", 100)}

	// selection: private digit 4, pick index 0 of {4}
	// resolution: fresh private digit 7
	rng := &scriptedRandom{values: []int{4, 0, 7}}
	digit := SelectOutcome(bets, threshold, rng)
	require.Equal(t, 4, digit)

	ResolveBets(bets, digit, NewDemoUserCache(), rng, testNow)
	require.NotNil(t, bets[0].Win)
	assert.False(t, *bets[0].Win)
	assert.True(t, bets[0].Payout.IsZero())
}

func TestResolveBets_DemoOverride(t *testing.T) {
	demo := NewDemoUserCache()
	demo.Add(42)

	demoBet := bet(models.BetTypeNumber, "8", 100)
	demoBet.UserID = 42
	violet := bet(models.BetTypeColor, "violet", 100)
	violet.UserID = 42
	regular := bet(models.BetTypeNumber, "8", 100)

	demoWinners := ResolveBets([]*models.Bet{demoBet, violet, regular}, 3, demo, &scriptedRandom{}, testNow)

	assert.Equal(t, 2, demoWinners)
	assert.True(t, *demoBet.Win)
	assert.True(t, decimal.NewFromInt(900).Equal(demoBet.Payout))
	assert.True(t, *violet.Win)
	assert.True(t, decimal.NewFromInt(450).Equal(violet.Payout))
	assert.False(t, *regular.Win)
	assert.True(t, regular.Payout.IsZero())
	assert.True(t, testNow.Equal(*regular.SettledAt))
}

func TestResolveBets_PayoutImpliesWin(t *testing.T) {
	bets := []*models.Bet{
		bet(models.BetTypeColor, "red", 10),
		bet(models.BetTypeColor, "green", 10),
		bet(models.BetTypeBigSmall, "big", 10),
		bet(models.BetTypeNumber, "9", 10),
		bet(models.BetType("bogus"), "9", 10),
	}
	ResolveBets(bets, 9, nil, &scriptedRandom{}, testNow)

	for _, b := range bets {
		if b.Payout.IsPositive() {
			assert.True(t, *b.Win)
		}
	}
	assert.True(t, decimal.NewFromInt(20).Equal(bets[0].Payout))
	assert.True(t, decimal.NewFromInt(90).Equal(bets[3].Payout))
	assert.False(t, *bets[4].Win)
}
