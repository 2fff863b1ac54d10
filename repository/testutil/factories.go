package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"wingo/models"
)

// CreateTestRound creates an unsaved pending round starting at start
func CreateTestRound(interval models.Interval, serial int64, start time.Time) *models.Round {
	start = start.UTC().Truncate(time.Millisecond)
	return &models.Round{
		Period:       models.FormatPeriod(start),
		Interval:     interval.Label,
		SerialNumber: serial,
		StartTime:    start,
		EndTime:      start.Add(interval.Duration),
		Status:       models.RoundStatusPending,
	}
}

// CreateTestBet creates an unsaved pending bet
func CreateTestBet(roundID, userID int64, betType models.BetType, value string, amount int64) *models.Bet {
	return &models.Bet{
		RoundID: roundID,
		UserID:  userID,
		Type:    betType,
		Value:   value,
		Amount:  decimal.NewFromInt(amount),
		Status:  models.BetStatusPending,
	}
}

// CreateTestBalanceHistory creates a wingo win ledger entry
func CreateTestBalanceHistory(userID int64, before, change int64) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   decimal.NewFromInt(before),
		BalanceAfter:    decimal.NewFromInt(before + change),
		ChangeAmount:    decimal.NewFromInt(change),
		TransactionType: models.TransactionTypeWingoWin,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
