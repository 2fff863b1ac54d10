package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a player account with a spendable balance
type User struct {
	ID        int64           `db:"id"`
	Username  string          `db:"username"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// DemoUser marks a promotional account whose bets always win
type DemoUser struct {
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}
