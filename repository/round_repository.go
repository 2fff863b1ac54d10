package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wingo/database"
	"wingo/models"
)

const roundColumns = `id, period, interval_label, serial_number, start_time, end_time, status, result_number, result_at, created_at`

// RoundRepository implements the RoundRepository interface
type RoundRepository struct {
	q queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

// newRoundRepositoryWithTx creates a new round repository with a transaction
func newRoundRepositoryWithTx(tx queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

func scanRound(row pgx.Row) (*models.Round, error) {
	var round models.Round
	err := row.Scan(
		&round.ID,
		&round.Period,
		&round.Interval,
		&round.SerialNumber,
		&round.StartTime,
		&round.EndTime,
		&round.Status,
		&round.ResultNumber,
		&round.ResultAt,
		&round.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *RoundRepository) queryRounds(ctx context.Context, query string, args ...any) ([]*models.Round, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rounds: %w", err)
	}

	return rounds, nil
}

func (r *RoundRepository) queryRound(ctx context.Context, query string, args ...any) (*models.Round, error) {
	round, err := scanRound(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return round, err
}

// GetActive returns every pending round whose window covers now
func (r *RoundRepository) GetActive(ctx context.Context, now time.Time) ([]*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = 'pending' AND start_time <= $1 AND end_time > $1
		ORDER BY interval_label, start_time
	`

	rounds, err := r.queryRounds(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rounds: %w", err)
	}
	return rounds, nil
}

// GetActiveByInterval returns the pending round of an interval covering now
func (r *RoundRepository) GetActiveByInterval(ctx context.Context, interval string, now time.Time) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE interval_label = $1 AND status = 'pending' AND start_time <= $2 AND end_time > $2
		ORDER BY start_time
		LIMIT 1
	`

	round, err := r.queryRound(ctx, query, interval, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active round for interval %s: %w", interval, err)
	}
	return round, nil
}

// GetLatestByInterval returns the round of an interval with the latest end time
func (r *RoundRepository) GetLatestByInterval(ctx context.Context, interval string) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE interval_label = $1
		ORDER BY end_time DESC
		LIMIT 1
	`

	round, err := r.queryRound(ctx, query, interval)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest round for interval %s: %w", interval, err)
	}
	return round, nil
}

// NextSerialNumber returns one past the highest serial of the interval,
// falling back to one past the row count when no serial is recorded
func (r *RoundRepository) NextSerialNumber(ctx context.Context, interval string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(serial_number), COUNT(*)) + 1
		FROM rounds
		WHERE interval_label = $1
	`

	var next int64
	if err := r.q.QueryRow(ctx, query, interval).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next serial for interval %s: %w", interval, err)
	}
	return next, nil
}

// LockInterval takes a transaction-scoped advisory lock for the interval
func (r *RoundRepository) LockInterval(ctx context.Context, interval string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('wingo:round:' || $1))`, interval); err != nil {
		return fmt.Errorf("failed to lock interval %s: %w", interval, err)
	}
	return nil
}

// Create inserts a new round
func (r *RoundRepository) Create(ctx context.Context, round *models.Round) error {
	if round.Status == "" {
		round.Status = models.RoundStatusPending
	}

	query := `
		INSERT INTO rounds (period, interval_label, serial_number, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		round.Period,
		round.Interval,
		round.SerialNumber,
		round.StartTime,
		round.EndTime,
		round.Status,
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		return classifyError(err, "failed to create round %s for interval %s", round.Period, round.Interval)
	}

	return nil
}

// GetExpiredPending returns pending rounds that ended before now, oldest first
func (r *RoundRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = 'pending' AND end_time < $1
		ORDER BY end_time ASC
		LIMIT $2
	`

	rounds, err := r.queryRounds(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired rounds: %w", err)
	}
	return rounds, nil
}

// GetByIDForUpdate locks and returns a round
func (r *RoundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE id = $1
		FOR UPDATE
	`

	round, err := r.queryRound(ctx, query, id)
	if err != nil {
		return nil, classifyError(err, "failed to lock round %d", id)
	}
	return round, nil
}

// MarkSettled records the result of a pending round
func (r *RoundRepository) MarkSettled(ctx context.Context, id int64, result int, resultAt time.Time) error {
	if result < 0 || result > 9 {
		return fmt.Errorf("result %d out of range", result)
	}

	query := `
		UPDATE rounds
		SET status = 'settled', result_number = $1, result_at = $2
		WHERE id = $3 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, result, resultAt, id)
	if err != nil {
		return classifyError(err, "failed to settle round %d", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("round %d is not pending", id)
	}

	return nil
}

// GetRecentByInterval returns the latest rounds of an interval, newest first
func (r *RoundRepository) GetRecentByInterval(ctx context.Context, interval string, limit int) ([]*models.Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE interval_label = $1
		ORDER BY start_time DESC
		LIMIT $2
	`

	rounds, err := r.queryRounds(ctx, query, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent rounds for interval %s: %w", interval, err)
	}
	return rounds, nil
}
