package repository

import (
	"context"
	"fmt"

	"wingo/database"
	"wingo/models"
)

const betColumns = `id, round_id, user_id, type, value, amount, status, win, payout, created_at, settled_at`

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

// Create creates a new pending bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	if bet.Status == "" {
		bet.Status = models.BetStatusPending
	}

	query := `
		INSERT INTO bets (round_id, user_id, type, value, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.RoundID,
		bet.UserID,
		bet.Type,
		bet.Value,
		bet.Amount,
		bet.Status,
	).Scan(&bet.ID, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet for user %d in round %d: %w", bet.UserID, bet.RoundID, err)
	}

	return nil
}

// GetPendingByRoundForUpdate locks and returns the pending bets of a round
func (r *BetRepository) GetPendingByRoundForUpdate(ctx context.Context, roundID int64) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE round_id = $1 AND status = 'pending'
		ORDER BY id
		FOR UPDATE
	`

	bets, err := r.queryBets(ctx, query, roundID)
	if err != nil {
		return nil, classifyError(err, "failed to lock pending bets for round %d", roundID)
	}
	return bets, nil
}

// GetByRound returns all bets of a round
func (r *BetRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE round_id = $1
		ORDER BY id
	`

	bets, err := r.queryBets(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for round %d: %w", roundID, err)
	}
	return bets, nil
}

// Settle persists the outcome of a pending bet
func (r *BetRepository) Settle(ctx context.Context, bet *models.Bet) error {
	if bet.Win == nil || bet.SettledAt == nil {
		return fmt.Errorf("bet %d has no outcome", bet.ID)
	}

	query := `
		UPDATE bets
		SET status = 'settled', win = $1, payout = $2, settled_at = $3
		WHERE id = $4 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, *bet.Win, bet.Payout, *bet.SettledAt, bet.ID)
	if err != nil {
		return classifyError(err, "failed to settle bet %d", bet.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bet %d is not pending", bet.ID)
	}

	bet.Status = models.BetStatusSettled
	return nil
}

func (r *BetRepository) queryBets(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var bet models.Bet
		err := rows.Scan(
			&bet.ID,
			&bet.RoundID,
			&bet.UserID,
			&bet.Type,
			&bet.Value,
			&bet.Amount,
			&bet.Status,
			&bet.Win,
			&bet.Payout,
			&bet.CreatedAt,
			&bet.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}
