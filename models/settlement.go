package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementResult summarises one settled round
type SettlementResult struct {
	Round        *Round
	ResultNumber int
	Bets         []*Bet
	TotalStake   decimal.Decimal
	TotalPayout  decimal.Decimal
	WinnerCount  int
	DemoWinners  int
	SettledAt    time.Time
}

// BatchResult summarises one settlement tick
type BatchResult struct {
	Attempted int
	Settled   int
	Skipped   int
	Failed    int
}
