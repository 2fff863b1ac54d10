package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"wingo/config"
	"wingo/models"
	"wingo/service"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate settlement of random bet sets and report the house edge",
	Long: `Simulate draws random bet sets, selects each outcome with the live
settlement policy and reports stake, payout and win rates. Nothing is written
to the database.

Example:
  wingo simulate --rounds 100000 --bets 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rounds, _ := cmd.Flags().GetInt("rounds")
		betsPerRound, _ := cmd.Flags().GetInt("bets")
		if rounds <= 0 || betsPerRound <= 0 {
			return fmt.Errorf("--rounds and --bets must be positive")
		}

		stats := simulateRounds(rounds, betsPerRound, config.Get().SingleBetThreshold, service.NewRandomSource())
		stats.print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	simulateCmd.Flags().Int("rounds", 100000, "Number of rounds to simulate")
	simulateCmd.Flags().Int("bets", 3, "Bets per round")
}

var simulatedStakes = []int64{10, 50, 100, 500, 1000}

type simulationStats struct {
	Rounds      int
	Bets        int
	Winners     int
	TotalStake  decimal.Decimal
	TotalPayout decimal.Decimal
	DigitCounts [10]int
	ZeroPayout  int
}

// HouseEdge is the share of stake kept by the house
func (s simulationStats) HouseEdge() decimal.Decimal {
	if s.TotalStake.IsZero() {
		return decimal.Zero
	}
	return s.TotalStake.Sub(s.TotalPayout).Div(s.TotalStake)
}

func (s simulationStats) print(w io.Writer) {
	fmt.Fprintf(w, "Rounds:             %d\n", s.Rounds)
	fmt.Fprintf(w, "Bets:               %d\n", s.Bets)
	fmt.Fprintf(w, "Winning bets:       %d (%.2f%%)\n", s.Winners, percent(s.Winners, s.Bets))
	fmt.Fprintf(w, "Zero-payout rounds: %d (%.2f%%)\n", s.ZeroPayout, percent(s.ZeroPayout, s.Rounds))
	fmt.Fprintf(w, "Total stake:        %s\n", s.TotalStake.StringFixed(2))
	fmt.Fprintf(w, "Total payout:       %s\n", s.TotalPayout.StringFixed(2))
	fmt.Fprintf(w, "House edge:         %s%%\n", s.HouseEdge().Mul(decimal.NewFromInt(100)).StringFixed(2))
	fmt.Fprintln(w, "Result distribution:")
	for digit, count := range s.DigitCounts {
		fmt.Fprintf(w, "  %d: %6.2f%%\n", digit, percent(count, s.Rounds))
	}
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// simulateRounds settles rounds of random bets in memory with the same
// outcome selection and bet resolution used by the engine.
func simulateRounds(rounds, betsPerRound int, threshold decimal.Decimal, rng models.RandomSource) simulationStats {
	stats := simulationStats{
		TotalStake:  decimal.Zero,
		TotalPayout: decimal.Zero,
	}
	settledAt := time.Now().UTC()

	for i := 0; i < rounds; i++ {
		bets := make([]*models.Bet, betsPerRound)
		for j := range bets {
			bets[j] = randomBet(rng)
		}

		digit := service.SelectOutcome(bets, threshold, rng)
		service.ResolveBets(bets, digit, nil, rng, settledAt)

		roundPayout := decimal.Zero
		for _, bet := range bets {
			stats.TotalStake = stats.TotalStake.Add(bet.Amount)
			roundPayout = roundPayout.Add(bet.Payout)
			if *bet.Win {
				stats.Winners++
			}
		}
		if roundPayout.IsZero() {
			stats.ZeroPayout++
		}

		stats.TotalPayout = stats.TotalPayout.Add(roundPayout)
		stats.DigitCounts[digit]++
		stats.Bets += len(bets)
		stats.Rounds++
	}

	return stats
}

func randomBet(rng models.RandomSource) *models.Bet {
	bet := &models.Bet{
		Amount: decimal.NewFromInt(simulatedStakes[rng.Intn(len(simulatedStakes))]),
		Status: models.BetStatusPending,
	}

	switch rng.Intn(4) {
	case 0:
		bet.Type = models.BetTypeColor
		bet.Value = []string{models.ColorGreen, models.ColorRed, models.ColorViolet}[rng.Intn(3)]
	case 1:
		bet.Type = models.BetTypeBigSmall
		bet.Value = []string{models.SizeBig, models.SizeSmall}[rng.Intn(2)]
	case 2:
		bet.Type = models.BetTypeNumber
		bet.Value = fmt.Sprintf("%d", rng.Intn(10))
	default:
		bet.Type = models.BetTypeRandom
		bet.Value = "random"
	}
	return bet
}
