package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wingo/events"
	"wingo/models"
)

// RoundRepository defines the interface for round data access
type RoundRepository interface {
	// GetActive returns every pending round whose window covers now, across all intervals
	GetActive(ctx context.Context, now time.Time) ([]*models.Round, error)

	// GetActiveByInterval returns the pending round of one interval covering now, or nil
	GetActiveByInterval(ctx context.Context, interval string, now time.Time) (*models.Round, error)

	// GetLatestByInterval returns the round with the latest end time, or nil
	GetLatestByInterval(ctx context.Context, interval string) (*models.Round, error)

	// NextSerialNumber returns the serial number the next round of the interval should use
	NextSerialNumber(ctx context.Context, interval string) (int64, error)

	// LockInterval serialises round creation for an interval until the transaction ends
	LockInterval(ctx context.Context, interval string) error

	// Create inserts a new round and fills in its ID and CreatedAt
	Create(ctx context.Context, round *models.Round) error

	// GetExpiredPending returns pending rounds that ended before now, oldest first
	GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Round, error)

	// GetByIDForUpdate locks and returns a round, or nil
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Round, error)

	// MarkSettled records the result of a pending round
	MarkSettled(ctx context.Context, id int64, result int, resultAt time.Time) error

	// GetRecentByInterval returns the most recent rounds of an interval, newest first
	GetRecentByInterval(ctx context.Context, interval string, limit int) ([]*models.Round, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create creates a new pending bet
	Create(ctx context.Context, bet *models.Bet) error

	// GetPendingByRoundForUpdate locks and returns the pending bets of a round
	GetPendingByRoundForUpdate(ctx context.Context, roundID int64) ([]*models.Bet, error)

	// GetByRound returns all bets of a round
	GetByRound(ctx context.Context, roundID int64) ([]*models.Bet, error)

	// Settle persists the outcome of a bet and marks it settled
	Settle(ctx context.Context, bet *models.Bet) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user, or nil
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, username string, initialBalance decimal.Decimal) (*models.User, error)

	// AddBalance adds to a user's balance atomically and returns the new balance
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// DemoUserRepository defines the interface for the demo user registry
type DemoUserRepository interface {
	List(ctx context.Context) ([]*models.DemoUser, error)
	Add(ctx context.Context, userID int64) error
	// Remove reports whether a row was deleted
	Remove(ctx context.Context, userID int64) (bool, error)
}

// EventPublisher accepts events for best-effort delivery
type EventPublisher interface {
	Publish(event events.Event) error
}

// DemoUserOracle answers whether a user is a demo account
type DemoUserOracle interface {
	IsDemoUser(userID int64) bool
}

// Guard runs fn only when no other run with the same name is in flight.
// A call that finds name busy returns ran=false without waiting.
type Guard interface {
	TryRun(ctx context.Context, name string, fn func(ctx context.Context) error) (ran bool, err error)
}

// RoundService keeps exactly one open round per interval
type RoundService interface {
	// EnsureActiveRounds opens a round for every interval that has none covering now
	EnsureActiveRounds(ctx context.Context) error

	// CreateNextRound opens the next round of an interval, or returns the one already open
	CreateNextRound(ctx context.Context, interval models.Interval) (*models.Round, error)

	// GetRecentRounds returns the latest rounds of an interval
	GetRecentRounds(ctx context.Context, interval string, limit int) ([]*models.Round, error)
}

// SettlementService draws results for expired rounds and pays winners
type SettlementService interface {
	// SettleExpiredRounds settles one batch of expired rounds
	SettleExpiredRounds(ctx context.Context) (*models.BatchResult, error)

	// SettleRound settles a single round. It returns nil when the round was already settled.
	SettleRound(ctx context.Context, roundID int64) (*models.SettlementResult, error)
}

// DemoUserService manages the persistent demo user registry and its cache
type DemoUserService interface {
	DemoUserOracle
	Refresh(ctx context.Context) error
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*models.DemoUser, error)
	// Count returns the number of cached demo users
	Count() int
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction and discards queued events
	Rollback() error

	// Repository getters
	RoundRepository() RoundRepository
	BetRepository() BetRepository
	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
